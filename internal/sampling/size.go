package sampling

import (
	"math"
)

const (
	// DefaultMaxBytes is the byte budget of one sample.
	DefaultMaxBytes = 2_000_000
	// DefaultMaxRows caps the sample size regardless of the byte budget.
	DefaultMaxRows = 200

	minProbeRows = 25
	maxProbeRows = 250
)

// Budget bounds the size of a sample.
type Budget struct {
	MaxBytes int
	MaxRows  int
}

// DefaultBudget returns the built-in limits.
func DefaultBudget() Budget {
	return Budget{MaxBytes: DefaultMaxBytes, MaxRows: DefaultMaxRows}
}

func (b Budget) withDefaults() Budget {
	if b.MaxBytes <= 0 {
		b.MaxBytes = DefaultMaxBytes
	}
	if b.MaxRows <= 0 {
		b.MaxRows = DefaultMaxRows
	}
	return b
}

// ProbeRows is the number of leading rows whose sizes are measured to estimate
// the average row size: 1% of the source, clamped to [25, 250].
func ProbeRows(total int) int {
	n := int(float64(total) * 0.01)
	if n > maxProbeRows {
		n = maxProbeRows
	}
	if n < minProbeRows {
		n = minProbeRows
	}
	return n
}

// Size returns the sample size N for a source of total rows given the byte
// sizes of the probed rows. N never exceeds MaxRows or total.
func (b Budget) Size(total int, probe []int) int {
	b = b.withDefaults()
	if total <= 0 {
		return 0
	}
	n := b.MaxRows
	if len(probe) > 0 {
		sum := 0
		for _, s := range probe {
			sum += s
		}
		avg := float64(sum) / float64(len(probe))
		if avg > 0 {
			byBytes := int(math.Round(float64(b.MaxBytes) / avg))
			if byBytes < n {
				n = byBytes
			}
		}
	}
	if n < 1 {
		n = 1
	}
	if n > total {
		n = total
	}
	return n
}
