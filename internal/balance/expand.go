package balance

import (
	"fmt"
	"math"
	"math/bits"
)

// Expand returns the 2*count+1 net contributions of d, i*value for i from
// -count to count. A zero count yields [0].
func Expand(d Denomination) ContributionList {
	if d.Count < 0 {
		return ContributionList{}
	}
	out := make(ContributionList, 0, 2*d.Count+1)
	for i := -d.Count; i <= d.Count; i++ {
		out = append(out, i*d.Value)
	}
	return out
}

// ExpandAll expands every denomination, keeping inventory order.
func ExpandAll(inventory []Denomination) []ContributionList {
	lists := make([]ContributionList, len(inventory))
	for i, d := range inventory {
		lists[i] = Expand(d)
	}
	return lists
}

// Validate rejects denominations that cannot be reconstructed into pan placements.
func Validate(inventory []Denomination) error {
	for i, d := range inventory {
		if d.Value == 0 {
			return fmt.Errorf("denomination %d: zero value: %w", i+1, ErrInvalidInventory)
		}
		if d.Count < 0 {
			return fmt.Errorf("denomination %d: negative count %d: %w", i+1, d.Count, ErrInvalidInventory)
		}
	}
	return nil
}

// CombinationCount returns the product of 2*count+1 over the inventory.
// The product saturates at math.MaxUint64 instead of overflowing.
func CombinationCount(inventory []Denomination) uint64 {
	total := uint64(1)
	for _, d := range inventory {
		if d.Count < 0 {
			return 0
		}
		hi, lo := bits.Mul64(total, uint64(2*d.Count+1))
		if hi != 0 {
			return math.MaxUint64
		}
		total = lo
	}
	return total
}

// CheckBudget fails with ErrIntractableInventory when the inventory spans more
// than budget combinations. A zero budget disables the check.
func CheckBudget(inventory []Denomination, budget uint64) error {
	if budget == 0 {
		return nil
	}
	if n := CombinationCount(inventory); n > budget {
		return fmt.Errorf("%d combinations exceed budget of %d: %w", n, budget, ErrIntractableInventory)
	}
	return nil
}
