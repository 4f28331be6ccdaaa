// Package inventory reads weight inventories. The file format starts with a
// header line that is ignored, followed by one "<value> <count>" pair per line.
package inventory

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/eugenenazirov/balance-table/internal/balance"
)

// Load opens path and parses it with Parse.
func Load(path string) ([]balance.Denomination, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory %s: %w", path, err)
	}
	defer file.Close()

	inv, err := Parse(file)
	if err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse reads the header-prefixed inventory format in file order. Blank lines
// are skipped and columns after the count are ignored.
func Parse(r io.Reader) ([]balance.Denomination, error) {
	scanner := bufio.NewScanner(r)
	var out []balance.Denomination
	line := 0
	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		text := scanner.Text()
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		d, err := parseFields(fields)
		if err != nil {
			return nil, &LineError{Line: line, Text: text, Reason: err.Error()}
		}
		out = append(out, d)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return out, nil
}

// ParseList parses the compact "value:count,value:count" form used by flags,
// environment variables and the YAML config.
func ParseList(raw string) ([]balance.Denomination, error) {
	parts := strings.Split(raw, ",")
	out := make([]balance.Denomination, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := parseFields(strings.SplitN(part, ":", 2))
		if err != nil {
			return nil, &LineError{Line: i + 1, Text: part, Reason: err.Error()}
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no denominations provided: %w", ErrMalformedInput)
	}
	return out, nil
}

// FormatList renders inv in the form accepted by ParseList.
func FormatList(inv []balance.Denomination) string {
	parts := make([]string, len(inv))
	for i, d := range inv {
		parts[i] = strconv.Itoa(d.Value) + ":" + strconv.Itoa(d.Count)
	}
	return strings.Join(parts, ",")
}

func parseFields(fields []string) (balance.Denomination, error) {
	if len(fields) < 2 {
		return balance.Denomination{}, fmt.Errorf("missing count")
	}
	value, err := strconv.Atoi(strings.TrimSpace(fields[0]))
	if err != nil {
		return balance.Denomination{}, fmt.Errorf("invalid value %q", fields[0])
	}
	count, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return balance.Denomination{}, fmt.Errorf("invalid count %q", fields[1])
	}
	return balance.Denomination{Value: value, Count: count}, nil
}
