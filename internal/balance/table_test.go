package balance

import (
	"errors"
	"math"
	"testing"
)

func TestExactOrNearest(t *testing.T) {
	t.Parallel()

	table := NewTable([]Row{
		{Sum: 10}, {Sum: 1}, {Sum: 4}, {Sum: 7}, {Sum: 12},
	}, Bounds{Low: 0, High: 11})

	tests := []struct {
		name   string
		target int
		want   int
	}{
		{name: "Exact", target: 4, want: 4},
		{name: "ExactFirst", target: 1, want: 1},
		{name: "NearerBelow", target: 5, want: 4},
		{name: "NearerAbove", target: 6, want: 7},
		{name: "TieFavoursHigher", target: 11, want: 12},
		{name: "BelowFirstRowInsideRange", target: 0, want: 1},
		{name: "BelowRange", target: -50, want: 1},
		{name: "PastEnd", target: 400, want: 12},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			row, ok := table.ExactOrNearest(tc.target)
			if !ok {
				t.Fatalf("expected a row")
			}
			if row.Sum != tc.want {
				t.Fatalf("target %d: expected sum %d, got %d", tc.target, tc.want, row.Sum)
			}
		})
	}
}

func TestExactOrNearestWithUndershoot(t *testing.T) {
	t.Parallel()

	table := NewTable([]Row{{Sum: -7}, {Sum: 2}, {Sum: 9}}, Bounds{Low: 0, High: 8, RetainUndershoot: true})

	if row, _ := table.ExactOrNearest(-6); row.Sum != -7 {
		t.Fatalf("expected undershoot row -7, got %d", row.Sum)
	}
	if row, _ := table.ExactOrNearest(-1); row.Sum != 2 {
		t.Fatalf("expected nearest row 2, got %d", row.Sum)
	}
}

func TestExactOrNearestNeverSkipsCloserNeighbour(t *testing.T) {
	t.Parallel()

	table := NewTable([]Row{{Sum: 0}, {Sum: 3}, {Sum: 8}, {Sum: 9}, {Sum: 15}, {Sum: 30}}, Bounds{Low: 0, High: 25})
	rows := table.Rows()
	for target := 0; target <= 40; target++ {
		row, _ := table.ExactOrNearest(target)
		best := distance(rows[0].Sum, target)
		for _, r := range rows {
			best = min(best, distance(r.Sum, target))
		}
		if distance(row.Sum, target) != best {
			t.Fatalf("target %d: got %d, a row %d away exists", target, row.Sum, best)
		}
	}
}

func TestNewTableDeduplicatesAndCopies(t *testing.T) {
	t.Parallel()

	input := []Row{{Sum: 3, Right: []int{3}}, {Sum: 1}, {Sum: 3, Right: []int{1, 2}}}
	table := NewTable(input, Bounds{Low: 0, High: 5})

	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if input[0].Sum != 3 || input[1].Sum != 1 {
		t.Fatalf("expected input to be left untouched, got %+v", input)
	}
	row, ok := table.Exact(3)
	if !ok || len(row.Right) != 1 {
		t.Fatalf("expected the first row for sum 3 to win, got %+v", row)
	}
	if _, ok := table.Exact(2); ok {
		t.Fatalf("did not expect an exact row for 2")
	}
}

func TestMatches(t *testing.T) {
	t.Parallel()

	table := NewTable([]Row{{Sum: 0}, {Sum: 2}, {Sum: 5}}, Bounds{Low: 0, High: 4})
	matches := table.Matches()
	if len(matches) != 5 {
		t.Fatalf("expected 5 matches, got %d", len(matches))
	}

	wantSums := []int{0, 2, 2, 2, 5}
	wantInterpolated := []bool{false, true, false, true, true}
	for i, m := range matches {
		if m.Target != i {
			t.Fatalf("match %d: unexpected target %d", i, m.Target)
		}
		if m.Row.Sum != wantSums[i] || m.Interpolated != wantInterpolated[i] {
			t.Fatalf("match %d: expected sum %d interpolated=%t, got %+v", i, wantSums[i], wantInterpolated[i], m)
		}
	}
}

func TestMatchesRejectsOversizedRange(t *testing.T) {
	t.Parallel()

	for _, bounds := range []Bounds{
		{Low: 0, High: math.MaxInt},
		{Low: math.MinInt, High: math.MaxInt},
		{Low: 0, High: MaxRangeSpan},
	} {
		table := NewTable([]Row{{Sum: 0}}, bounds)
		if got := table.Matches(); got != nil {
			t.Fatalf("bounds %+v: expected no matches, got %d", bounds, len(got))
		}
	}
}

func TestBoundsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bounds Bounds
		valid  bool
	}{
		{name: "Default", bounds: Bounds{Low: DefaultMinTarget, High: DefaultMaxTarget}, valid: true},
		{name: "SingleTarget", bounds: Bounds{Low: -7, High: -7}, valid: true},
		{name: "Inverted", bounds: Bounds{Low: 1, High: 0}},
		{name: "TooWide", bounds: Bounds{Low: -1, High: MaxRangeSpan - 1}},
		{name: "Overflowing", bounds: Bounds{Low: math.MinInt, High: math.MaxInt}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.bounds.Validate()
			if tc.valid && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidRange) {
				t.Fatalf("expected ErrInvalidRange, got %v", err)
			}
		})
	}
}

func TestEmptyTable(t *testing.T) {
	t.Parallel()

	table := NewTable(nil, Bounds{Low: 0, High: 10})
	if _, ok := table.ExactOrNearest(3); ok {
		t.Fatalf("expected no row from an empty table")
	}
	if got := table.Matches(); got != nil {
		t.Fatalf("expected no matches, got %v", got)
	}
}
