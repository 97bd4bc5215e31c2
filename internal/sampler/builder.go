// Package sampler builds the dataset-wide crop sampler: one truncated,
// cube-tagged distribution per registered cube, folded into a weighted
// mixture.
package sampler

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/distribution"
	"github.com/banshee-data/crop.planner/internal/labels"
)

// weightTolerance is the allowed deviation of supplied weights from a sum of 1.
const weightTolerance = 1e-6

var (
	// ErrConfig is returned for malformed weights, modes or bounds. It is
	// always raised before any distribution is built.
	ErrConfig = errors.New("invalid sampler config")
	// ErrDataQuality is returned when label points do not normalize into the
	// unit cube or an empirical cube has no labels.
	ErrDataQuality = errors.New("label data quality")
	// ErrSampling is returned by the built mixture when a truncated
	// distribution cannot satisfy its bounds.
	ErrSampling = distribution.ErrSampling
)

// Kind selects how a cube's distribution is built.
type Kind string

const (
	KindExplicit  Kind = "explicit"
	KindEmpirical Kind = "empirical"
	KindUniform   Kind = "uniform"
)

// Mode is the per-cube distribution choice. Unknown kinds fall back to a
// uniform distribution over the unit cube.
type Mode struct {
	Kind Kind
	// Dist is used as-is for KindExplicit and must draw from [0,1]^3.
	Dist distribution.Distribution
}

// Explicit uses d unchanged (apart from truncation).
func Explicit(d distribution.Distribution) Mode { return Mode{Kind: KindExplicit, Dist: d} }

// Empirical builds a histogram distribution from the cube's labels.
func Empirical() Mode { return Mode{Kind: KindEmpirical} }

// Uniform builds a uniform distribution over Options.UniformBounds.
func Uniform() Mode { return Mode{Kind: KindUniform} }

// ModeOf parses a mode name as used in configuration files.
func ModeOf(name string) Mode { return Mode{Kind: Kind(name)} }

// Options controls Build. The zero value samples every cube uniformly with
// equal weight over the unit cube.
type Options struct {
	// Mode applies to every cube unless PerCube is set.
	Mode Mode
	// PerCube, when non-nil, must hold a mode for every registered cube.
	PerCube map[string]Mode
	// Weights are per-cube probabilities in registry order. Nil means 1/n each.
	Weights []float64
	// Bounds truncates every per-cube distribution. Nil means the unit cube;
	// a degenerate box is kept as given.
	Bounds *r3.Box
	// UniformBounds is the support of KindUniform. Nil means the unit cube.
	UniformBounds *r3.Box
	// Bins per axis for empirical histograms; 0 means distribution.DefaultBins.
	Bins int
	// MaxRounds caps truncation redraws; 0 means distribution.DefaultMaxRounds.
	MaxRounds int
	// Transforms overrides the default (p - offset) / extent normalization
	// for individual cubes.
	Transforms map[string]Transform
	// Seed makes the whole mixture reproducible.
	Seed uint64
}

func (o *Options) bounds() r3.Box {
	if o.Bounds == nil {
		return distribution.UnitBox()
	}
	return *o.Bounds
}

func (o *Options) uniformBounds() r3.Box {
	if o.UniformBounds == nil {
		return distribution.UnitBox()
	}
	return *o.UniformBounds
}

// Build resolves one distribution per cube of reg, truncates and tags each,
// and folds them in registry order into a weighted mixture.
//
// Configuration problems fail with ErrConfig before any distribution is
// built; bad labels fail with ErrDataQuality.
func Build(reg *cube.Registry, clouds map[string]labels.Cloud, opts Options) (*distribution.Mixture, error) {
	cubes := reg.Cubes()
	weights, modes, err := resolve(cubes, opts)
	if err != nil {
		opsf("rejecting sampler config: %v", err)
		return nil, err
	}

	mixture := distribution.EmptyMixture(rand.NewPCG(opts.Seed, 0))
	for i, c := range cubes {
		src := rand.NewPCG(opts.Seed, uint64(i)+1)
		base, err := buildBase(c, modes[i], clouds[c.ID], &opts, src)
		if err != nil {
			opsf("cube %q: %v", c.ID, err)
			return nil, err
		}
		truncated, err := distribution.Truncate(base, opts.bounds(), opts.MaxRounds)
		if err != nil {
			return nil, fmt.Errorf("cube %q: %w", c.ID, err)
		}
		mixture, err = mixture.Union(weights[i], distribution.Tag(c.ID, truncated))
		if err != nil {
			return nil, err
		}
		diagf("cube %q: mode=%s weight=%.4f", c.ID, modes[i].Kind, weights[i])
	}
	return mixture, nil
}

// resolve validates the options and returns weights and modes in registry order.
func resolve(cubes []cube.Cube, opts Options) ([]float64, []Mode, error) {
	if len(cubes) == 0 {
		return nil, nil, fmt.Errorf("%w: no cubes registered", ErrConfig)
	}

	weights := opts.Weights
	if weights == nil {
		weights = make([]float64, len(cubes))
		for i := range weights {
			weights[i] = 1 / float64(len(cubes))
		}
	} else {
		if len(weights) != len(cubes) {
			return nil, nil, fmt.Errorf("%w: %d weights for %d cubes", ErrConfig, len(weights), len(cubes))
		}
		for i, w := range weights {
			if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, nil, fmt.Errorf("%w: weight %d for cube %q is %v", ErrConfig, i, cubes[i].ID, w)
			}
		}
		if sum := floats.Sum(weights); math.Abs(sum-1) > weightTolerance {
			return nil, nil, fmt.Errorf("%w: weights sum to %v, want 1", ErrConfig, sum)
		}
	}

	modes := make([]Mode, len(cubes))
	for i, c := range cubes {
		m := opts.Mode
		if opts.PerCube != nil {
			var ok bool
			if m, ok = opts.PerCube[c.ID]; !ok {
				return nil, nil, fmt.Errorf("%w: no mode for cube %q", ErrConfig, c.ID)
			}
		}
		if m.Kind == KindExplicit && m.Dist == nil {
			return nil, nil, fmt.Errorf("%w: explicit mode for cube %q without a distribution", ErrConfig, c.ID)
		}
		modes[i] = m
	}

	if err := distribution.ValidateBox(opts.bounds()); err != nil {
		return nil, nil, fmt.Errorf("%w: truncation bounds: %w", ErrConfig, err)
	}
	if err := distribution.ValidateBox(opts.uniformBounds()); err != nil {
		return nil, nil, fmt.Errorf("%w: uniform bounds: %w", ErrConfig, err)
	}
	return weights, modes, nil
}

func buildBase(c cube.Cube, m Mode, cloud labels.Cloud, opts *Options, src rand.Source) (distribution.Distribution, error) {
	switch m.Kind {
	case KindExplicit:
		return m.Dist, nil
	case KindEmpirical:
		if len(cloud) == 0 {
			return nil, fmt.Errorf("%w: cube %q has no label points for an empirical distribution", ErrDataQuality, c.ID)
		}
		tf := opts.Transforms[c.ID]
		if tf == nil {
			tf = CubeTransform(c)
		}
		points, err := Normalize(cloud, tf)
		if err != nil {
			return nil, fmt.Errorf("cube %q: %w", c.ID, err)
		}
		return distribution.NewHistogram(points, opts.Bins, src)
	case KindUniform:
		return distribution.NewUniform(opts.uniformBounds(), src)
	default:
		diagf("cube %q: unsupported mode %q, using uniform over the unit cube", c.ID, m.Kind)
		return distribution.NewUniform(distribution.UnitBox(), src)
	}
}
