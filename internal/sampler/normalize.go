package sampler

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/labels"
)

// Transform maps one absolute label point into normalized cube coordinates.
type Transform func(labels.Point) r3.Vec

// CubeTransform returns the default transform of c: (p - offset) / extent.
func CubeTransform(c cube.Cube) Transform {
	return func(p labels.Point) r3.Vec {
		return r3.Vec{
			X: (p.I - c.Offset[0]) / float64(c.Extent[0]),
			Y: (p.X - c.Offset[1]) / float64(c.Extent[1]),
			Z: (p.H - c.Offset[2]) / float64(c.Extent[2]),
		}
	}
}

// Normalize maps cloud into [0,1]^3 with tf. Points landing outside the unit
// cube are reported as ErrDataQuality rather than clamped.
func Normalize(cloud labels.Cloud, tf Transform) ([]r3.Vec, error) {
	out := make([]r3.Vec, len(cloud))
	for i, p := range cloud {
		v := tf(p)
		if !inUnit(v.X) || !inUnit(v.Y) || !inUnit(v.Z) {
			return nil, fmt.Errorf("%w: point %d (%g, %g, %g) normalizes to %v outside the unit cube",
				ErrDataQuality, i, p.I, p.X, p.H, v)
		}
		out[i] = v
	}
	return out, nil
}

// inUnit also rejects NaN.
func inUnit(v float64) bool {
	return v >= 0 && v <= 1
}
