package sampling

import (
	"math"
	"math/rand/v2"
	"sort"
)

// Positions returns the sorted 0-based data row positions to keep when taking
// a sample of n rows out of total with technique t. len(result) <= n always
// holds, and positions are strictly increasing.
func Positions(t Technique, total, n int, rng *rand.Rand) []int {
	if total <= 0 || n <= 0 {
		return nil
	}
	if n > total {
		n = total
	}
	switch t.OrDefault() {
	case Random:
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return floyd(rng, total, n)
	case Stratified:
		k := int(math.Round(float64(total) / float64(n)))
		if k < 1 {
			k = 1
		}
		out := make([]int, 0, n)
		for i := 0; i < total && len(out) < n; i += k {
			out = append(out, i)
		}
		return out
	default:
		out := make([]int, n)
		for i := range out {
			out[i] = i
		}
		return out
	}
}

// Selector answers "keep row i?" for a stream of rows, so connectors that
// iterate a cursor do not need random access.
type Selector struct {
	keep []int
	next int
}

// NewSelector wraps sorted positions.
func NewSelector(positions []int) *Selector {
	return &Selector{keep: positions}
}

// Keep reports whether position i is selected. Positions must be queried in
// increasing order.
func (s *Selector) Keep(i int) bool {
	for s.next < len(s.keep) && s.keep[s.next] < i {
		s.next++
	}
	if s.next < len(s.keep) && s.keep[s.next] == i {
		s.next++
		return true
	}
	return false
}

// Done reports whether every selected position has been consumed.
func (s *Selector) Done() bool {
	return s.next >= len(s.keep)
}

// Sample applies positions to an in-memory slice.
func Sample[T any](rows []T, positions []int) []T {
	out := make([]T, 0, len(positions))
	for _, p := range positions {
		if p >= 0 && p < len(rows) {
			out = append(out, rows[p])
		}
	}
	return out
}

// floyd draws n distinct positions from [0, total) without materializing a
// permutation of the whole range.
func floyd(rng *rand.Rand, total, n int) []int {
	set := make(map[int]struct{}, n)
	for j := total - n; j < total; j++ {
		t := rng.IntN(j + 1)
		if _, ok := set[t]; ok {
			t = j
		}
		set[t] = struct{}{}
	}
	out := make([]int, 0, n)
	for p := range set {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}
