package balance

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultMinTarget is the smallest mass the lookup table must cover.
	DefaultMinTarget = 0
	// DefaultMaxTarget is the largest mass the lookup table must cover.
	DefaultMaxTarget = 10000
	// DefaultMaxCombinations bounds the product of 2*count+1 over an inventory.
	DefaultMaxCombinations uint64 = 2_000_000_000
	// MaxRangeSpan is the largest number of targets a table may cover.
	MaxRangeSpan = 10_000_000
)

// Option configures a Solver created by New.
type Option func(*productSolver)

// WithBounds sets the target range and the undershoot policy.
func WithBounds(bounds Bounds) Option {
	return func(s *productSolver) {
		s.bounds = bounds
	}
}

// WithMaxCombinations sets the enumeration budget. Zero disables the check.
func WithMaxCombinations(n uint64) Option {
	return func(s *productSolver) {
		s.maxCombinations = n
	}
}

// WithWorkers sets the number of concurrent traversals. Values below one
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(s *productSolver) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		s.workers = n
	}
}

// WithLogger sets the logger used for progress reporting.
func WithLogger(logger *zap.Logger) Option {
	return func(s *productSolver) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type productSolver struct {
	bounds          Bounds
	maxCombinations uint64
	workers         int
	logger          *zap.Logger
}

// New creates a Solver that enumerates the per-denomination product space.
func New(opts ...Option) Solver {
	s := &productSolver{
		bounds:          Bounds{Low: DefaultMinTarget, High: DefaultMaxTarget},
		maxCombinations: DefaultMaxCombinations,
		workers:         1,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *productSolver) Solve(ctx context.Context, inventory []Denomination) (*Table, error) {
	if err := s.bounds.Validate(); err != nil {
		return nil, err
	}
	if err := Validate(inventory); err != nil {
		return nil, err
	}
	if err := CheckBudget(inventory, s.maxCombinations); err != nil {
		return nil, err
	}

	lists := ExpandAll(inventory)
	s.logger.Info("expanded inventory",
		zap.Int("denominations", len(inventory)),
		zap.Uint64("estimated_combinations", CombinationCount(inventory)),
	)

	start := time.Now()
	sums, err := Enumerate(ctx, lists, s.bounds, s.workers)
	if err != nil {
		return nil, err
	}
	s.logger.Info("enumerated combinations",
		zap.Duration("duration", time.Since(start)),
		zap.Int("sums", len(sums)),
		zap.Int("workers", s.workers),
	)

	start = time.Now()
	rows, err := Reconstruct(inventory, lists, sums)
	if err != nil {
		return nil, err
	}
	table := NewTable(rows, s.bounds)
	s.logger.Info("built solution table",
		zap.Duration("duration", time.Since(start)),
		zap.Int("rows", table.Len()),
	)
	return table, nil
}
