package inventory

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is returned when an inventory line cannot be parsed into a value and a count.
var ErrMalformedInput = errors.New("inventory line must contain an integer value and an integer count")

// LineError reports the 1-based line on which parsing failed.
type LineError struct {
	Line   int
	Text   string
	Reason string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d %q: %s", e.Line, e.Text, e.Reason)
}

// Unwrap lets callers match LineError against ErrMalformedInput.
func (e *LineError) Unwrap() error {
	return ErrMalformedInput
}
