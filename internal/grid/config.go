package grid

import "github.com/banshee-data/crop.planner/internal/config"

// SpecFromConfig builds a Spec for cubeID over ranges from cfg, applying the
// config defaults for window shape, stride and batch size.
func SpecFromConfig(cfg *config.SamplingConfig, cubeID string, ranges [3]Span) Spec {
	return Spec{
		CubeID:      cubeID,
		WindowShape: cfg.GetWindowShape(),
		Ranges:      ranges,
		Stride:      cfg.GetStride(),
		BatchSize:   cfg.GetBatchSize(),
	}
}
