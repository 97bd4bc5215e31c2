package distribution

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform draws points uniformly from an axis-aligned box.
type Uniform struct {
	bounds r3.Box
	axes   [3]distuv.Uniform
}

// NewUniform returns a uniform distribution over bounds using src.
func NewUniform(bounds r3.Box, src rand.Source) (*Uniform, error) {
	if err := ValidateBox(bounds); err != nil {
		return nil, err
	}
	return &Uniform{
		bounds: bounds,
		axes: [3]distuv.Uniform{
			{Min: bounds.Min.X, Max: bounds.Max.X, Src: src},
			{Min: bounds.Min.Y, Max: bounds.Max.Y, Src: src},
			{Min: bounds.Min.Z, Max: bounds.Max.Z, Src: src},
		},
	}, nil
}

// Bounds returns the box the distribution draws from.
func (u *Uniform) Bounds() r3.Box { return u.bounds }

// Sample draws n points.
func (u *Uniform) Sample(n int) ([]r3.Vec, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{X: u.axes[0].Rand(), Y: u.axes[1].Rand(), Z: u.axes[2].Rand()}
	}
	return out, nil
}
