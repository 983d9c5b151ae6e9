package bitmap

import "testing"

/*
TestBitmap_Bounds sets the edges of every word boundary and checks that
out-of-range positions are ignored rather than panicking.
*/
func TestBitmap_Bounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		n     int
		set   []int
		words int
	}{
		{n: 0, set: []int{0, 1}, words: 0},
		{n: 1, set: []int{0}, words: 1},
		{n: 64, set: []int{0, 63}, words: 1},
		{n: 65, set: []int{0, 63, 64}, words: 2},
		{n: 200, set: []int{-1, 5, 128, 199, 200}, words: 4},
	}
	for _, tc := range tests {
		b := New(tc.n)
		if len(b.words) != tc.words || b.Len() != max(tc.n, 0) {
			t.Fatalf("New(%d): words=%d len=%d", tc.n, len(b.words), b.Len())
		}
		want := 0
		for _, i := range tc.set {
			b.Set(i)
			if i >= 0 && i < tc.n {
				want++
				if !b.Has(i) {
					t.Fatalf("New(%d): Has(%d) = false after Set", tc.n, i)
				}
			} else if b.Has(i) {
				t.Fatalf("New(%d): out of range %d reported as set", tc.n, i)
			}
		}
		if got := b.Count(); got != want {
			t.Fatalf("New(%d): Count = %d, want %d", tc.n, got, want)
		}
	}
}

func TestBitmap_Idempotent(t *testing.T) {
	t.Parallel()

	b := New(10)
	b.Set(3)
	b.Set(3)
	if b.Count() != 1 || b.Has(2) || b.Has(4) {
		t.Fatalf("count=%d", b.Count())
	}
}
