// Package distribution provides composable point distributions over the
// normalized unit cube and the tagging, truncation and weighted-union
// combinators used to build a dataset-wide crop sampler.
//
// Every distribution draws from an explicit math/rand/v2 source so that a
// seeded build reproduces the same points.
package distribution

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	// ErrSampling is returned when a distribution cannot produce the requested points.
	ErrSampling = errors.New("sampling failed")
	// ErrInvalidBounds is returned for boxes whose minimum exceeds their maximum.
	ErrInvalidBounds = errors.New("invalid bounds")
	// ErrInvalidWeight is returned for negative or non-finite mixture weights.
	ErrInvalidWeight = errors.New("invalid weight")
	// ErrEmpty is returned when a distribution is built from no data.
	ErrEmpty = errors.New("empty distribution")
)

// Distribution produces batches of points in normalized [0,1]^3 space.
type Distribution interface {
	Sample(n int) ([]r3.Vec, error)
}

// Func adapts an ordinary function to the Distribution interface.
type Func func(n int) ([]r3.Vec, error)

// Sample calls f(n).
func (f Func) Sample(n int) ([]r3.Vec, error) { return f(n) }

// UnitBox is the full normalized cube [0,1]^3.
func UnitBox() r3.Box {
	return r3.Box{Min: r3.Vec{}, Max: r3.Vec{X: 1, Y: 1, Z: 1}}
}

// Contains reports whether p lies inside b, bounds included.
func Contains(b r3.Box, p r3.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// ValidateBox checks that every Min coordinate is not greater than its Max.
func ValidateBox(b r3.Box) error {
	if b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z {
		return fmt.Errorf("%w: min %v exceeds max %v", ErrInvalidBounds, b.Min, b.Max)
	}
	return nil
}

func checkCount(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative count %d", ErrSampling, n)
	}
	return nil
}
