package distribution

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// TaggedPoint is a normalized point labelled with the cube it was drawn for.
type TaggedPoint struct {
	CubeID string
	Point  r3.Vec
}

// Values returns the point as (cube_id, i, x, h).
func (p TaggedPoint) Values() [4]any {
	return [4]any{p.CubeID, p.Point.X, p.Point.Y, p.Point.Z}
}

// Tagged binds a distribution to one cube so that its samples can be mixed
// with samples of other cubes.
type Tagged struct {
	CubeID string
	Dist   Distribution
}

// Tag returns d labelled with cubeID.
func Tag(cubeID string, d Distribution) Tagged {
	return Tagged{CubeID: cubeID, Dist: d}
}

// Sample draws n points from the underlying distribution and tags them.
func (t Tagged) Sample(n int) ([]TaggedPoint, error) {
	if t.Dist == nil {
		return nil, fmt.Errorf("%w: cube %q has no distribution", ErrSampling, t.CubeID)
	}
	pts, err := t.Dist.Sample(n)
	if err != nil {
		return nil, fmt.Errorf("cube %q: %w", t.CubeID, err)
	}
	out := make([]TaggedPoint, len(pts))
	for i, p := range pts {
		out[i] = TaggedPoint{CubeID: t.CubeID, Point: p}
	}
	return out, nil
}
