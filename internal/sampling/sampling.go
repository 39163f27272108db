// Package sampling provides the deterministic random machinery for the
// assignment pipeline: one seeded source threaded through every shuffle and
// draw, and weighted index sampling over distribution weights. Uniform
// choices are drawn by callers directly from the same source.
package sampling

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
)

// NewRand returns the run's single pseudorandom source. Identical seed,
// identical call order, identical output.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(int64(seed)))
}

// WeightedIndex samples indices in proportion to a fixed weight column.
// Construction is O(n); each draw is a binary search over cumulative sums.
type WeightedIndex struct {
	cum   []int64
	total int64
}

// NewWeightedIndex builds a sampler over the given weights. All weights must
// be non-negative and at least one must be positive.
func NewWeightedIndex(weights []int) (*WeightedIndex, error) {
	if len(weights) == 0 {
		return nil, errors.New("weighted index: no weights")
	}
	cum := make([]int64, len(weights))
	var total int64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("weighted index: negative weight at %d", i)
		}
		total += int64(w)
		cum[i] = total
	}
	if total == 0 {
		return nil, errors.New("weighted index: all weights zero")
	}
	return &WeightedIndex{cum: cum, total: total}, nil
}

// Sample draws one index.
func (w *WeightedIndex) Sample(rng *rand.Rand) int {
	target := rng.Int63n(w.total)
	return sort.Search(len(w.cum), func(i int) bool { return w.cum[i] > target })
}

// Weighted pairs a row index with its weight, for draws over a subsampled
// view of a distribution table.
type Weighted struct {
	Idx int
	N   int
}

// ChooseWeighted draws one entry from items in proportion to N.
func ChooseWeighted(rng *rand.Rand, items []Weighted) (int, error) {
	if len(items) == 0 {
		return 0, errors.New("choose weighted: empty distribution")
	}
	var total int64
	for _, it := range items {
		if it.N < 0 {
			return 0, fmt.Errorf("choose weighted: negative weight for index %d", it.Idx)
		}
		total += int64(it.N)
	}
	if total == 0 {
		return 0, errors.New("choose weighted: all weights zero")
	}
	target := rng.Int63n(total)
	var cum int64
	for _, it := range items {
		cum += int64(it.N)
		if cum > target {
			return it.Idx, nil
		}
	}
	// Unreachable: cum reaches total > target.
	return items[len(items)-1].Idx, nil
}
