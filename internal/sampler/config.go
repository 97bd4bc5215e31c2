package sampler

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/crop.planner/internal/config"
)

// OptionsFromConfig converts a SamplingConfig into Build options. Per-cube
// transforms and explicit distributions cannot be expressed in a config
// file and are left for the caller to add.
func OptionsFromConfig(cfg *config.SamplingConfig) Options {
	opts := Options{
		Mode:          ModeOf(cfg.GetMode()),
		Weights:       cfg.Weights,
		Bounds:        box(cfg.GetBounds()),
		UniformBounds: box(cfg.GetUniformBounds()),
		Bins:          cfg.GetBins(),
		MaxRounds:     cfg.GetTruncationMaxRounds(),
		Seed:          cfg.GetSeed(),
	}
	if len(cfg.PerCubeMode) > 0 {
		opts.PerCube = make(map[string]Mode, len(cfg.PerCubeMode))
		for id, name := range cfg.PerCubeMode {
			opts.PerCube[id] = ModeOf(name)
		}
	}
	return opts
}

func box(low, high [3]float64) *r3.Box {
	return &r3.Box{Min: vec(low), Max: vec(high)}
}

func vec(v [3]float64) r3.Vec {
	return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
}
