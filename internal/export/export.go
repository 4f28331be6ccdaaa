// Package export writes solved lookup tables in the plain-text layout
// operators read at the scale.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/eugenenazirov/balance-table/internal/balance"
)

// ErrEmptyTable is returned when there is no row to report for a target.
var ErrEmptyTable = errors.New("solution table has no rows")

// Write emits one record per target in the table's bounds when interpolate is
// set, otherwise one record per retained row.
func Write(w io.Writer, table *balance.Table, interpolate bool) error {
	bw := bufio.NewWriter(w)
	if interpolate {
		if table.Len() == 0 {
			return ErrEmptyTable
		}
		for _, m := range table.Matches() {
			if err := writeRecord(bw, m); err != nil {
				return err
			}
		}
	} else {
		for _, row := range table.Rows() {
			if err := writeRecord(bw, balance.Match{Target: row.Sum, Row: row}); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// WriteFile creates path, including missing parent directories, and writes the table to it.
func WriteFile(path string, table *balance.Table, interpolate bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := Write(file, table, interpolate); err != nil {
		_ = file.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	return file.Close()
}

func writeRecord(w *bufio.Writer, m balance.Match) error {
	_, err := fmt.Fprintf(w, "weight=%d, was_interpolated=%t\t\tleft: %s\n\t\t\t\t\t\t\t\t\tright: %s\n\n",
		m.Target, m.Interpolated, formatUnits(m.Row.Left), formatUnits(m.Row.Right))
	return err
}

func formatUnits(units []int) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, u := range units {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(strconv.Itoa(u))
	}
	b.WriteByte(']')
	return b.String()
}
