package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger == nil {
		t.Fatalf("expected logger instance")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) || logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected info level by default")
	}
	_ = logger.Sync()
}

func TestNewWithLevel(t *testing.T) {
	logger, err := New(" Debug ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected debug level to be enabled")
	}
	_ = logger.Sync()

	if _, err := New("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
