package balance

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// checkInterval is the number of evaluated combinations between context checks.
const checkInterval = 1 << 16

type candidate struct {
	sum   int
	index CombinationIndex
}

// accumulator collects one combination per in-range sum plus the closest
// overshoot (and, optionally, undershoot) seen so far. Each traversal owns
// its own accumulator.
type accumulator struct {
	bounds Bounds
	sums   map[int]CombinationIndex
	over   *candidate
	under  *candidate
}

func newAccumulator(bounds Bounds) *accumulator {
	return &accumulator{
		bounds: bounds,
		sums:   make(map[int]CombinationIndex),
	}
}

func (a *accumulator) record(sum int, index []int) {
	switch {
	case sum >= a.bounds.Low && sum <= a.bounds.High:
		if _, ok := a.sums[sum]; !ok {
			a.sums[sum] = cloneIndex(index)
		}
	case sum > a.bounds.High:
		if a.over == nil || sum < a.over.sum {
			a.over = &candidate{sum: sum, index: cloneIndex(index)}
		}
	case a.bounds.RetainUndershoot:
		if a.under == nil || sum > a.under.sum {
			a.under = &candidate{sum: sum, index: cloneIndex(index)}
		}
	}
}

// absorb merges a later partition into a. Existing entries win ties, which
// keeps the merged result identical to a single sequential traversal.
func (a *accumulator) absorb(b *accumulator) {
	for sum, index := range b.sums {
		if _, ok := a.sums[sum]; !ok {
			a.sums[sum] = index
		}
	}
	if b.over != nil && (a.over == nil || b.over.sum < a.over.sum) {
		a.over = b.over
	}
	if b.under != nil && (a.under == nil || b.under.sum > a.under.sum) {
		a.under = b.under
	}
}

func (a *accumulator) result() map[int]CombinationIndex {
	out := make(map[int]CombinationIndex, len(a.sums)+2)
	for sum, index := range a.sums {
		out[sum] = index
	}
	if a.over != nil {
		out[a.over.sum] = a.over.index
	}
	if a.under != nil {
		out[a.under.sum] = a.under.index
	}
	return out
}

// Enumerate walks the Cartesian product of lists and returns one combination
// for every achievable sum inside bounds, plus the smallest achievable sum
// above bounds.High (and the largest below bounds.Low when RetainUndershoot is
// set). For sums reachable by several combinations the first one in traversal
// order is kept. With workers > 1 the first list is split into contiguous
// partitions walked concurrently; the result does not depend on workers.
// An empty lists always yields the single sum 0.
func Enumerate(ctx context.Context, lists []ContributionList, bounds Bounds, workers int) (map[int]CombinationIndex, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	// The empty combination answers every target, wherever the range lies.
	if len(lists) == 0 {
		return map[int]CombinationIndex{0: {}}, nil
	}
	for _, list := range lists {
		if len(list) == 0 {
			return map[int]CombinationIndex{}, nil
		}
	}

	plan := newPlan(lists)
	partitions := split(len(lists[0]), workers)
	if len(partitions) == 1 {
		acc := newAccumulator(bounds)
		if err := plan.walk(ctx, acc, 0, len(lists[0])); err != nil {
			return nil, err
		}
		return acc.result(), nil
	}

	accs := make([]*accumulator, len(partitions))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range partitions {
		accs[i] = newAccumulator(bounds)
		acc, first, last := accs[i], p[0], p[1]
		g.Go(func() error {
			return plan.walk(gctx, acc, first, last)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := accs[0]
	for _, acc := range accs[1:] {
		merged.absorb(acc)
	}
	return merged.result(), nil
}

// plan holds the read-only data shared by every traversal of one product.
type plan struct {
	lists   []ContributionList
	minIdx  []int
	maxIdx  []int
	minRest []int // minRest[d] is the smallest total lists[d:] can contribute
	maxRest []int
}

func newPlan(lists []ContributionList) *plan {
	n := len(lists)
	p := &plan{
		lists:   lists,
		minIdx:  make([]int, n),
		maxIdx:  make([]int, n),
		minRest: make([]int, n+1),
		maxRest: make([]int, n+1),
	}
	for d, list := range lists {
		for i, v := range list {
			if v < list[p.minIdx[d]] {
				p.minIdx[d] = i
			}
			if v > list[p.maxIdx[d]] {
				p.maxIdx[d] = i
			}
		}
	}
	for d := n - 1; d >= 0; d-- {
		p.minRest[d] = p.minRest[d+1] + lists[d][p.minIdx[d]]
		p.maxRest[d] = p.maxRest[d+1] + lists[d][p.maxIdx[d]]
	}
	return p
}

// walk runs an iterative depth-first traversal with the first dimension
// restricted to [first, last). Subtrees whose every completion lies above
// the range collapse to their minimal completion, and subtrees lying wholly
// below it are skipped or collapse to their maximal completion.
func (p *plan) walk(ctx context.Context, acc *accumulator, first, last int) error {
	n := len(p.lists)
	index := make([]int, n)
	partial := make([]int, n)
	index[0] = first - 1

	ticks := 0
	depth := 0
	for {
		index[depth]++
		limit := len(p.lists[depth])
		if depth == 0 {
			limit = last
		}
		if index[depth] >= limit {
			if depth == 0 {
				return nil
			}
			depth--
			continue
		}

		ticks++
		if ticks%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		sum := partial[depth] + p.lists[depth][index[depth]]
		if depth == n-1 {
			acc.record(sum, index)
			continue
		}

		next := depth + 1
		switch {
		case sum+p.minRest[next] > acc.bounds.High:
			copy(index[next:], p.minIdx[next:])
			acc.record(sum+p.minRest[next], index)
		case sum+p.maxRest[next] < acc.bounds.Low:
			if acc.bounds.RetainUndershoot {
				copy(index[next:], p.maxIdx[next:])
				acc.record(sum+p.maxRest[next], index)
			}
		default:
			partial[next] = sum
			depth = next
			index[depth] = -1
		}
	}
}

// split divides [0, n) into at most workers contiguous, non-empty ranges.
func split(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}
	out := make([][2]int, 0, workers)
	size, extra := n/workers, n%workers
	start := 0
	for i := 0; i < workers; i++ {
		end := start + size
		if i < extra {
			end++
		}
		out = append(out, [2]int{start, end})
		start = end
	}
	return out
}

func cloneIndex(index []int) CombinationIndex {
	out := make(CombinationIndex, len(index))
	copy(out, index)
	return out
}
