package balance

import (
	"sort"
)

// Table is the sorted, immutable set of retained rows.
type Table struct {
	rows   []Row
	bounds Bounds
}

// NewTable builds a table from rows, sorting a copy by sum. Rows with a
// duplicate sum after the first are dropped.
func NewTable(rows []Row, bounds Bounds) *Table {
	sorted := make([]Row, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Sum < sorted[j].Sum })

	unique := sorted[:0]
	for i, row := range sorted {
		if i > 0 && row.Sum == sorted[i-1].Sum {
			continue
		}
		unique = append(unique, row)
	}
	return &Table{rows: unique, bounds: bounds}
}

// Len reports the number of retained sums.
func (t *Table) Len() int {
	return len(t.rows)
}

// Bounds returns the range the table was built for.
func (t *Table) Bounds() Bounds {
	return t.bounds
}

// Rows returns a copy of the rows in ascending sum order.
func (t *Table) Rows() []Row {
	out := make([]Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// Exact returns the row whose sum equals target.
func (t *Table) Exact(target int) (Row, bool) {
	i := t.search(target)
	if i < len(t.rows) && t.rows[i].Sum == target {
		return t.rows[i], true
	}
	return Row{}, false
}

// ExactOrNearest returns the row for target, or the closest row when no
// combination sums to target exactly. Equal distances favour the higher sum.
// Targets below the range's lower bound return the smallest row unless the
// table retains an undershoot entry. ok is false only for an empty table.
func (t *Table) ExactOrNearest(target int) (Row, bool) {
	if len(t.rows) == 0 {
		return Row{}, false
	}
	if target < t.bounds.Low && !t.bounds.RetainUndershoot {
		return t.rows[0], true
	}

	p := t.search(target)
	switch {
	case p < len(t.rows) && t.rows[p].Sum == target:
		return t.rows[p], true
	case p == 0:
		return t.rows[0], true
	case p == len(t.rows) || distance(t.rows[p].Sum, target) > distance(t.rows[p-1].Sum, target):
		return t.rows[p-1], true
	default:
		return t.rows[p], true
	}
}

// Match wraps ExactOrNearest and flags rows whose sum differs from target.
func (t *Table) Match(target int) (Match, bool) {
	row, ok := t.ExactOrNearest(target)
	if !ok {
		return Match{}, false
	}
	return Match{Target: target, Interpolated: row.Sum != target, Row: row}, true
}

// Matches returns one Match for every target in the table's bounds. It is nil
// for an empty table or bounds that fail Validate.
func (t *Table) Matches() []Match {
	if len(t.rows) == 0 || t.bounds.Validate() != nil {
		return nil
	}
	out := make([]Match, 0, t.bounds.High-t.bounds.Low+1)
	for target := t.bounds.Low; target <= t.bounds.High; target++ {
		m, _ := t.Match(target)
		out = append(out, m)
	}
	return out
}

func (t *Table) search(target int) int {
	return sort.Search(len(t.rows), func(i int) bool { return t.rows[i].Sum >= target })
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
