// Package cube holds the registry of seismic cubes known to a dataset.
package cube

import (
	"errors"
	"fmt"
)

// Axis indices shared by every package that addresses cube coordinates.
const (
	AxisInline    = 0
	AxisCrossline = 1
	AxisHeight    = 2
)

// AxisNames are the short labels used in logs and error messages.
var AxisNames = [3]string{"i", "x", "h"}

var (
	// ErrUnknownCube is returned when a cube identifier is not registered.
	ErrUnknownCube = errors.New("unknown cube")
	// ErrInvalidCube is returned when a cube fails validation on registration.
	ErrInvalidCube = errors.New("invalid cube")
)

// Cube describes the valid coordinate range of one survey volume.
// Valid coordinates along axis a are [0, Extent[a]).
type Cube struct {
	ID     string
	Extent [3]int
	// Offset is subtracted from absolute label coordinates before they are
	// scaled by Extent during normalization.
	Offset [3]float64
}

// Validate checks that the cube has an identifier and positive extents.
func (c Cube) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidCube)
	}
	for a, e := range c.Extent {
		if e <= 0 {
			return fmt.Errorf("%w: cube %q extent_%s must be positive, got %d", ErrInvalidCube, c.ID, AxisNames[a], e)
		}
	}
	return nil
}

// Registry is an ordered, read-only set of cubes. The iteration order is the
// registration order and is the order every fold over cubes uses.
type Registry struct {
	order []string
	cubes map[string]Cube
}

// NewRegistry validates the cubes and returns a registry in the given order.
func NewRegistry(cubes ...Cube) (*Registry, error) {
	r := &Registry{
		order: make([]string, 0, len(cubes)),
		cubes: make(map[string]Cube, len(cubes)),
	}
	for _, c := range cubes {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.cubes[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCube, c.ID)
		}
		r.order = append(r.order, c.ID)
		r.cubes[c.ID] = c
	}
	return r, nil
}

// Get returns the cube registered under id.
func (r *Registry) Get(id string) (Cube, bool) {
	if r == nil {
		return Cube{}, false
	}
	c, ok := r.cubes[id]
	return c, ok
}

// Lookup is Get with an ErrUnknownCube error for missing ids.
func (r *Registry) Lookup(id string) (Cube, error) {
	c, ok := r.Get(id)
	if !ok {
		return Cube{}, fmt.Errorf("%w: %q", ErrUnknownCube, id)
	}
	return c, nil
}

// IDs returns the cube identifiers in registry order.
func (r *Registry) IDs() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Cubes returns the cubes in registry order.
func (r *Registry) Cubes() []Cube {
	if r == nil {
		return nil
	}
	out := make([]Cube, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.cubes[id])
	}
	return out
}

// Len returns the number of registered cubes.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}
