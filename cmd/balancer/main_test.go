package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	osSignal "os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/eugenenazirov/balance-table/internal/balance"
	"github.com/eugenenazirov/balance-table/internal/config"
	"github.com/eugenenazirov/balance-table/internal/inventory"
)

func testConfig() config.Config {
	return config.Config{
		MinTarget:       0,
		MaxTarget:       25,
		MaxCombinations: balance.DefaultMaxCombinations,
		Workers:         2,
		Interpolate:     true,
	}
}

func writeInventory(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "weights.txt")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write inventory: %v", err)
	}
	return path
}

func TestRunSolveWritesTable(t *testing.T) {
	input := writeInventory(t, "3\n2 1\n3 2\n6 2\n")
	output := filepath.Join(t.TempDir(), "out", "table.txt")

	if err := runSolve(context.Background(), testConfig(), zaptest.NewLogger(t), input, output); err != nil {
		t.Fatalf("runSolve returned error: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if n := strings.Count(out, "weight="); n != 26 {
		t.Fatalf("expected 26 records, got %d", n)
	}
	if !strings.Contains(out, "weight=7, was_interpolated=false") {
		t.Fatalf("expected exact record for 7")
	}
	// 20 is the largest reachable mass.
	if !strings.Contains(out, "weight=25, was_interpolated=true") {
		t.Fatalf("expected interpolated record for 25")
	}
}

func TestRunSolveRawMode(t *testing.T) {
	input := writeInventory(t, "1\n5 1\n")
	output := filepath.Join(t.TempDir(), "table.txt")
	cfg := testConfig()
	cfg.Interpolate = false

	if err := runSolve(context.Background(), cfg, zaptest.NewLogger(t), input, output); err != nil {
		t.Fatalf("runSolve returned error: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if n := strings.Count(string(data), "weight="); n != 2 {
		t.Fatalf("expected records for 0 and 5 only, got %d", n)
	}
}

func TestRunSolveEmptyInventory(t *testing.T) {
	input := writeInventory(t, "0\n")
	output := filepath.Join(t.TempDir(), "table.txt")
	cfg := testConfig()
	cfg.MinTarget, cfg.MaxTarget = 5, 20

	if err := runSolve(context.Background(), cfg, zaptest.NewLogger(t), input, output); err != nil {
		t.Fatalf("runSolve returned error: %v", err)
	}
	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	out := string(data)
	if n := strings.Count(out, "weight="); n != 16 {
		t.Fatalf("expected 16 records, got %d", n)
	}
	if n := strings.Count(out, "left: []\n\t\t\t\t\t\t\t\t\tright: []"); n != 16 {
		t.Fatalf("expected every record to use the empty placement, got %d", n)
	}
}

func TestRunSolveFailures(t *testing.T) {
	logger := zaptest.NewLogger(t)
	output := filepath.Join(t.TempDir(), "table.txt")

	err := runSolve(context.Background(), testConfig(), logger, filepath.Join(t.TempDir(), "missing.txt"), output)
	if err == nil {
		t.Fatalf("expected error for missing input")
	}

	err = runSolve(context.Background(), testConfig(), logger, writeInventory(t, "1\n5\n"), output)
	if !errors.Is(err, inventory.ErrMalformedInput) {
		t.Fatalf("expected ErrMalformedInput, got %v", err)
	}

	err = runSolve(context.Background(), testConfig(), logger, writeInventory(t, "1\n0 4\n"), output)
	if !errors.Is(err, balance.ErrInvalidInventory) {
		t.Fatalf("expected ErrInvalidInventory, got %v", err)
	}

	cfg := testConfig()
	cfg.MaxCombinations = 10
	err = runSolve(context.Background(), cfg, logger, writeInventory(t, "1\n1 30\n"), output)
	if !errors.Is(err, balance.ErrIntractableInventory) {
		t.Fatalf("expected ErrIntractableInventory, got %v", err)
	}

	if _, statErr := os.Stat(output); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file after failures, got %v", statErr)
	}
}

func TestShutdownOnSignal(t *testing.T) {
	t.Cleanup(func() {
		signalNotify = osSignal.Notify
	})
	signalNotify = func(ch chan<- os.Signal, _ ...os.Signal) {
		go func() {
			ch <- syscall.SIGTERM
		}()
	}

	server := &http.Server{}
	drained := make(chan struct{}, 1)
	server.RegisterOnShutdown(func() {
		drained <- struct{}{}
	})

	core, logs := observer.New(zap.InfoLevel)
	shutdown(server, 10*time.Millisecond, zap.New(core))

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatalf("expected server shutdown hooks to run")
	}
	if logs.FilterMessage("shutting down server").Len() != 1 {
		t.Fatalf("expected shutdown to be logged once, got %v", logs.All())
	}
}
