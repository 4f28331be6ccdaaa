package balance

import (
	"context"
	"fmt"
)

// Denomination is one weight value together with the number of physical
// units of it that are available.
type Denomination struct {
	Value int `json:"value" yaml:"value"`
	Count int `json:"count" yaml:"count"`
}

// ContributionList holds every net mass a single denomination can add to a
// combination, from all units on the left pan to all units on the right pan.
type ContributionList []int

// CombinationIndex picks one entry of each denomination's ContributionList.
type CombinationIndex []int

// Bounds is the inclusive range of sums that must be captured exactly.
// When RetainUndershoot is set the closest sum below Low is kept as well,
// mirroring the single overshoot entry kept above High.
type Bounds struct {
	Low              int  `json:"low"`
	High             int  `json:"high"`
	RetainUndershoot bool `json:"retainUndershoot"`
}

// Validate rejects inverted ranges and ranges covering more than MaxRangeSpan targets.
func (b Bounds) Validate() error {
	if b.Low > b.High {
		return fmt.Errorf("min target %d exceeds max target %d: %w", b.Low, b.High, ErrInvalidRange)
	}
	if uint64(b.High)-uint64(b.Low) >= MaxRangeSpan {
		return fmt.Errorf("range %d..%d covers more than %d targets: %w", b.Low, b.High, MaxRangeSpan, ErrInvalidRange)
	}
	return nil
}

// Row is one achievable sum and a placement of weight units that realises it.
// Left and Right list one entry per unit, so Sum == total(Right) - total(Left).
type Row struct {
	Sum   int   `json:"sum"`
	Left  []int `json:"left"`
	Right []int `json:"right"`
}

// Match is the row selected for a requested target mass.
type Match struct {
	Target       int  `json:"target"`
	Interpolated bool `json:"interpolated"`
	Row          Row  `json:"row"`
}

// Solver describes the behaviour required to build a lookup table from an inventory.
type Solver interface {
	Solve(ctx context.Context, inventory []Denomination) (*Table, error)
}
