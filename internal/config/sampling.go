package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical sampling defaults file.
const DefaultConfigPath = "config/sampling.defaults.json"

// Defaults used when a field is omitted.
const (
	DefaultWindow    = 64
	DefaultBatchSize = 16
	DefaultBins      = 100
	DefaultMaxRounds = 100
	DefaultMode      = "empirical"
)

// SamplingConfig holds the grid and sampler parameters. Every field is
// optional; the Get* methods supply defaults for omitted ones. The same
// keys are used in JSON and YAML files.
type SamplingConfig struct {
	// Grid planner params
	WindowShape []int `json:"window_shape,omitempty" yaml:"window_shape,omitempty"`
	Stride      []int `json:"stride,omitempty" yaml:"stride,omitempty"`
	BatchSize   *int  `json:"batch_size,omitempty" yaml:"batch_size,omitempty"`

	// Sampler params
	Mode                *string           `json:"mode,omitempty" yaml:"mode,omitempty"`
	PerCubeMode         map[string]string `json:"per_cube_mode,omitempty" yaml:"per_cube_mode,omitempty"`
	Weights             []float64         `json:"weights,omitempty" yaml:"weights,omitempty"`
	Bins                *int              `json:"bins,omitempty" yaml:"bins,omitempty"`
	TruncationMaxRounds *int              `json:"truncation_max_rounds,omitempty" yaml:"truncation_max_rounds,omitempty"`
	BoundsLow           []float64         `json:"bounds_low,omitempty" yaml:"bounds_low,omitempty"`
	BoundsHigh          []float64         `json:"bounds_high,omitempty" yaml:"bounds_high,omitempty"`
	UniformLow          []float64         `json:"uniform_low,omitempty" yaml:"uniform_low,omitempty"`
	UniformHigh         []float64         `json:"uniform_high,omitempty" yaml:"uniform_high,omitempty"`
	Seed                *uint64           `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Helper functions to create pointers
func ptrInt(v int) *int          { return &v }
func ptrString(v string) *string { return &v }
func ptrUint64(v uint64) *uint64 { return &v }

// EmptySamplingConfig returns a SamplingConfig with all fields unset.
func EmptySamplingConfig() *SamplingConfig {
	return &SamplingConfig{}
}

// LoadSamplingConfig loads a SamplingConfig from a .json, .yaml or .yml
// file under 1MB. Omitted fields keep their defaults.
func LoadSamplingConfig(path string) (*SamplingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySamplingConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical sampling defaults from
// DefaultConfigPath, searching the current directory and its parents.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *SamplingConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from cmd/cubeplan/ and friends
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSamplingConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid. Cross-checks
// against a cube registry (weights per cube, ranges) happen in the
// consuming packages.
func (c *SamplingConfig) Validate() error {
	if err := checkTriple("window_shape", c.WindowShape); err != nil {
		return err
	}
	if err := checkTriple("stride", c.Stride); err != nil {
		return err
	}
	if c.BatchSize != nil && *c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive, got %d", *c.BatchSize)
	}
	if c.Bins != nil && *c.Bins <= 0 {
		return fmt.Errorf("bins must be positive, got %d", *c.Bins)
	}
	if c.TruncationMaxRounds != nil && *c.TruncationMaxRounds <= 0 {
		return fmt.Errorf("truncation_max_rounds must be positive, got %d", *c.TruncationMaxRounds)
	}
	for i, w := range c.Weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("weights[%d] must be a non-negative finite number, got %v", i, w)
		}
	}

	if err := checkBox("bounds", c.BoundsLow, c.BoundsHigh); err != nil {
		return err
	}
	return checkBox("uniform", c.UniformLow, c.UniformHigh)
}

// checkBox validates a <name>_low/<name>_high pair inside the unit cube.
func checkBox(name string, low, high []float64) error {
	if (low == nil) != (high == nil) {
		return fmt.Errorf("%s_low and %s_high must be set together", name, name)
	}
	if low == nil {
		return nil
	}
	if len(low) != 3 || len(high) != 3 {
		return fmt.Errorf("%s_low and %s_high need 3 values, got %d and %d", name, name, len(low), len(high))
	}
	for a := 0; a < 3; a++ {
		lo, hi := low[a], high[a]
		if !(lo >= 0 && lo <= hi && hi <= 1) {
			return fmt.Errorf("%s on axis %d must satisfy 0 <= low <= high <= 1, got [%v, %v]", name, a, lo, hi)
		}
	}
	return nil
}

func checkTriple(name string, v []int) error {
	if v == nil {
		return nil
	}
	if len(v) != 3 {
		return fmt.Errorf("%s needs 3 values (i, x, h), got %d", name, len(v))
	}
	for a, n := range v {
		if n <= 0 {
			return fmt.Errorf("%s[%d] must be positive, got %d", name, a, n)
		}
	}
	return nil
}

// GetWindowShape returns the window shape or the default cube of DefaultWindow.
func (c *SamplingConfig) GetWindowShape() [3]int {
	if len(c.WindowShape) != 3 {
		return [3]int{DefaultWindow, DefaultWindow, DefaultWindow}
	}
	return [3]int{c.WindowShape[0], c.WindowShape[1], c.WindowShape[2]}
}

// GetStride returns the stride, defaulting to the window shape.
func (c *SamplingConfig) GetStride() [3]int {
	if len(c.Stride) != 3 {
		return c.GetWindowShape()
	}
	return [3]int{c.Stride[0], c.Stride[1], c.Stride[2]}
}

// GetBatchSize returns the batch size or the default.
func (c *SamplingConfig) GetBatchSize() int {
	if c.BatchSize == nil {
		return DefaultBatchSize
	}
	return *c.BatchSize
}

// GetMode returns the sampler mode name or the default.
func (c *SamplingConfig) GetMode() string {
	if c.Mode == nil || *c.Mode == "" {
		return DefaultMode
	}
	return *c.Mode
}

// GetBins returns the histogram bins per axis or the default.
func (c *SamplingConfig) GetBins() int {
	if c.Bins == nil {
		return DefaultBins
	}
	return *c.Bins
}

// GetTruncationMaxRounds returns the truncation redraw cap or the default.
func (c *SamplingConfig) GetTruncationMaxRounds() int {
	if c.TruncationMaxRounds == nil {
		return DefaultMaxRounds
	}
	return *c.TruncationMaxRounds
}

// GetSeed returns the random seed or 0.
func (c *SamplingConfig) GetSeed() uint64 {
	if c.Seed == nil {
		return 0
	}
	return *c.Seed
}

// GetBounds returns the truncation bounds, defaulting to the unit cube.
func (c *SamplingConfig) GetBounds() (low, high [3]float64) {
	return unitOr(c.BoundsLow, c.BoundsHigh)
}

// GetUniformBounds returns the support of the uniform mode, defaulting to
// the unit cube.
func (c *SamplingConfig) GetUniformBounds() (low, high [3]float64) {
	return unitOr(c.UniformLow, c.UniformHigh)
}

func unitOr(lo, hi []float64) (low, high [3]float64) {
	if len(lo) != 3 || len(hi) != 3 {
		return [3]float64{}, [3]float64{1, 1, 1}
	}
	copy(low[:], lo)
	copy(high[:], hi)
	return low, high
}
