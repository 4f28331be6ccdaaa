package balance

import (
	"fmt"
	"sort"
)

// Reconstruct turns every retained combination into explicit pan placements.
// A negative contribution of denomination i puts |m/value| units on the left
// pan, a positive one puts them on the right pan. Rows are sorted by sum.
//
// For negative values the pan follows the sign of m/value, so that
// Sum == total(Right) - total(Left) holds for every row.
func Reconstruct(inventory []Denomination, lists []ContributionList, sums map[int]CombinationIndex) ([]Row, error) {
	if err := Validate(inventory); err != nil {
		return nil, err
	}
	if len(lists) != len(inventory) {
		return nil, fmt.Errorf("got %d contribution lists for %d denominations: %w", len(lists), len(inventory), ErrInvalidInventory)
	}

	rows := make([]Row, 0, len(sums))
	for sum, index := range sums {
		row, err := placement(inventory, lists, index)
		if err != nil {
			return nil, fmt.Errorf("sum %d: %w", sum, err)
		}
		row.Sum = sum
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Sum < rows[j].Sum })
	return rows, nil
}

func placement(inventory []Denomination, lists []ContributionList, index CombinationIndex) (Row, error) {
	if len(index) != len(inventory) {
		return Row{}, fmt.Errorf("combination has %d entries for %d denominations: %w", len(index), len(inventory), ErrInvalidInventory)
	}

	row := Row{Left: []int{}, Right: []int{}}
	for i, d := range inventory {
		if index[i] < 0 || index[i] >= len(lists[i]) {
			return Row{}, fmt.Errorf("denomination %d: index %d out of range: %w", i+1, index[i], ErrInvalidInventory)
		}
		units := lists[i][index[i]] / d.Value
		switch {
		case units < 0:
			row.Left = appendUnits(row.Left, d.Value, -units)
		case units > 0:
			row.Right = appendUnits(row.Right, d.Value, units)
		}
	}
	return row, nil
}

func appendUnits(dst []int, value, n int) []int {
	for ; n > 0; n-- {
		dst = append(dst, value)
	}
	return dst
}
