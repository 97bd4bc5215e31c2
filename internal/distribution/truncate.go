package distribution

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultMaxRounds is the number of redraw rounds a truncated distribution
// attempts before giving up. Each round redraws every still-missing point.
const DefaultMaxRounds = 100

// Truncated rejects points of a base distribution that fall outside a box
// and redraws them.
type Truncated struct {
	base      Distribution
	bounds    r3.Box
	maxRounds int
}

// Truncate wraps d so that every sample lies inside bounds. A non-positive
// maxRounds selects DefaultMaxRounds.
func Truncate(d Distribution, bounds r3.Box, maxRounds int) (*Truncated, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil base distribution", ErrSampling)
	}
	if err := ValidateBox(bounds); err != nil {
		return nil, err
	}
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	return &Truncated{base: d, bounds: bounds, maxRounds: maxRounds}, nil
}

// Bounds returns the truncation box.
func (t *Truncated) Bounds() r3.Box { return t.bounds }

// Base returns the wrapped distribution.
func (t *Truncated) Base() Distribution { return t.base }

// Sample draws n points inside the bounds, or fails with ErrSampling once
// the round budget is spent.
func (t *Truncated) Sample(n int) ([]r3.Vec, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	out := make([]r3.Vec, 0, n)
	for round := 0; len(out) < n; round++ {
		if round == t.maxRounds {
			return nil, fmt.Errorf("%w: %d of %d points inside %v after %d rounds",
				ErrSampling, len(out), n, t.bounds, t.maxRounds)
		}
		pts, err := t.base.Sample(n - len(out))
		if err != nil {
			return nil, err
		}
		for _, p := range pts {
			if Contains(t.bounds, p) {
				out = append(out, p)
			}
		}
	}
	return out, nil
}
