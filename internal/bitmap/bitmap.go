// Package bitmap is a fixed-size set of row positions backed by 64-bit words.
package bitmap

import "math/bits"

// Bitmap holds positions in [0, Len()).
type Bitmap struct {
	words []uint64
	n     int
}

// New returns an empty bitmap for positions [0, n). n <= 0 yields an empty
// set that ignores every Set.
func New(n int) *Bitmap {
	if n <= 0 {
		return &Bitmap{}
	}
	return &Bitmap{words: make([]uint64, (n+63)/64), n: n}
}

// Len is the number of addressable positions.
func (b *Bitmap) Len() int { return b.n }

// Set adds i. Positions outside [0, Len()) are ignored.
func (b *Bitmap) Set(i int) {
	if i < 0 || i >= b.n {
		return
	}
	b.words[i/64] |= 1 << uint(i%64)
}

// Has reports whether i was set.
func (b *Bitmap) Has(i int) bool {
	if i < 0 || i >= b.n {
		return false
	}
	return b.words[i/64]&(1<<uint(i%64)) != 0
}

// Count returns the number of set positions.
func (b *Bitmap) Count() int {
	c := 0
	for _, w := range b.words {
		c += bits.OnesCount64(w)
	}
	return c
}
