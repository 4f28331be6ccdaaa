package balance

import "errors"

var (
	// ErrInvalidInventory is returned when a denomination has a zero value or a negative count.
	ErrInvalidInventory = errors.New("inventory must contain non-zero values with non-negative counts")
	// ErrIntractableInventory is returned when the combination space exceeds the enumeration budget.
	ErrIntractableInventory = errors.New("inventory has too many combinations to enumerate")
	// ErrInvalidRange is returned when the minimum target is greater than the
	// maximum target or the range covers more than MaxRangeSpan targets.
	ErrInvalidRange = errors.New("invalid target range")
)
