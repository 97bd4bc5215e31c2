package sampler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/distribution"
	"github.com/banshee-data/crop.planner/internal/labels"
	"github.com/banshee-data/crop.planner/internal/testutil"
)

func TestBuild_WeightedFrequencies(t *testing.T) {
	t.Parallel()

	m, err := Build(testutil.TwoCubes(t), nil, Options{Mode: Uniform(), Weights: []float64{0.3, 0.7}, Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"north", "south"}, m.CubeIDs())

	const n = 100000
	pts, err := m.Sample(n)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, p := range pts {
		counts[p.CubeID]++
	}
	assert.InDelta(t, 0.3, float64(counts["north"])/n, 0.02)
	assert.InDelta(t, 0.7, float64(counts["south"])/n, 0.02)
}

func TestBuild_DefaultWeights(t *testing.T) {
	t.Parallel()

	m, err := Build(testutil.TwoCubes(t), nil, Options{})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.5}, m.Weights())
}

func TestBuild_ConfigErrors(t *testing.T) {
	t.Parallel()

	reg := testutil.TwoCubes(t)
	testCases := []struct {
		name string
		opts Options
	}{
		{"weights_length", Options{Weights: []float64{1}}},
		{"negative_weight", Options{Weights: []float64{1.5, -0.5}}},
		{"weights_sum", Options{Weights: []float64{0.5, 0.6}}},
		{"per_cube_missing", Options{PerCube: map[string]Mode{"north": Uniform()}}},
		{"explicit_nil", Options{Mode: Explicit(nil)}},
		{"inverted_bounds", Options{Bounds: &r3.Box{Min: r3.Vec{X: 1, Y: 1, Z: 1}, Max: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}}}},
		{"inverted_uniform_bounds", Options{UniformBounds: &r3.Box{Min: r3.Vec{X: 1}, Max: r3.Vec{X: 0.5, Y: 1, Z: 1}}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			m, err := Build(reg, nil, tc.opts)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Nil(t, m)
		})
	}
}

func TestBuild_NoCubes(t *testing.T) {
	t.Parallel()

	reg, err := cube.NewRegistry()
	require.NoError(t, err)
	_, err = Build(reg, nil, Options{})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuild_TruncationBounds(t *testing.T) {
	t.Parallel()

	bounds := r3.Box{Min: r3.Vec{X: 0.2, Y: 0.2, Z: 0.2}, Max: r3.Vec{X: 0.6, Y: 0.7, Z: 0.8}}
	testCases := []struct {
		name string
		opts Options
	}{
		{"uniform", Options{Mode: Uniform(), Bounds: &bounds, Seed: 3}},
		{"empirical", Options{
			PerCube: map[string]Mode{"north": Empirical(), "south": Uniform()},
			Bounds:  &bounds,
			Bins:    20,
			Seed:    4,
		}},
		{"fallback", Options{Mode: ModeOf("gaussian"), Bounds: &bounds, Seed: 5}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			clouds := map[string]labels.Cloud{"north": testutil.ClusterCloud()}
			m, err := Build(testutil.TwoCubes(t), clouds, tc.opts)
			require.NoError(t, err)

			pts, err := m.Sample(5000)
			require.NoError(t, err)
			for _, p := range pts {
				assert.True(t, distribution.Contains(bounds, p.Point), "%s sample %v outside %v", p.CubeID, p.Point, bounds)
			}
		})
	}
}

func TestBuild_EmpiricalFollowsLabels(t *testing.T) {
	t.Parallel()

	clouds := map[string]labels.Cloud{"north": testutil.ClusterCloud()}
	m, err := Build(testutil.TwoCubes(t), clouds, Options{
		PerCube: map[string]Mode{"north": Empirical(), "south": Uniform()},
		Weights: []float64{1, 0},
		Bins:    10,
		Seed:    6,
	})
	require.NoError(t, err)

	pts, err := m.Sample(2000)
	require.NoError(t, err)
	// Labels span i in [1040,1049] -> [0.4,0.5), x in [2090,2109] -> [0.45,0.55),
	// h in [20,24] -> [0.4,0.5) so every draw lands in the matching 10-bin cells.
	for _, p := range pts {
		require.Equal(t, "north", p.CubeID)
		assert.True(t, p.Point.X >= 0.4 && p.Point.X <= 0.5, "i=%v", p.Point.X)
		assert.True(t, p.Point.Y >= 0.4 && p.Point.Y <= 0.6, "x=%v", p.Point.Y)
		assert.True(t, p.Point.Z >= 0.4 && p.Point.Z <= 0.5, "h=%v", p.Point.Z)
	}
}

func TestBuild_DataQuality(t *testing.T) {
	t.Parallel()

	opts := Options{PerCube: map[string]Mode{"north": Empirical(), "south": Uniform()}}

	_, err := Build(testutil.TwoCubes(t), nil, opts)
	assert.ErrorIs(t, err, ErrDataQuality)

	outside := map[string]labels.Cloud{"north": {{I: 999, X: 2000, H: 0}}}
	_, err = Build(testutil.TwoCubes(t), outside, opts)
	assert.ErrorIs(t, err, ErrDataQuality)
}

func TestBuild_Transform(t *testing.T) {
	t.Parallel()

	// The cloud is in a foreign frame that the default transform would reject.
	clouds := map[string]labels.Cloud{"north": {{I: -5, X: -5, H: -5}}}
	m, err := Build(testutil.TwoCubes(t), clouds, Options{
		PerCube: map[string]Mode{"north": Empirical(), "south": Uniform()},
		Weights: []float64{1, 0},
		Transforms: map[string]Transform{
			"north": func(labels.Point) r3.Vec { return r3.Vec{X: 0.95, Y: 0.95, Z: 0.95} },
		},
		Bins: 10,
	})
	require.NoError(t, err)

	pts, err := m.Sample(100)
	require.NoError(t, err)
	for _, p := range pts {
		assert.GreaterOrEqual(t, p.Point.X, 0.9)
	}
}

func TestBuild_ExplicitDistribution(t *testing.T) {
	t.Parallel()

	fixed := distribution.Func(func(n int) ([]r3.Vec, error) {
		out := make([]r3.Vec, n)
		for i := range out {
			out[i] = r3.Vec{X: 0.25, Y: 0.5, Z: 0.75}
		}
		return out, nil
	})
	m, err := Build(testutil.TwoCubes(t), nil, Options{Mode: Explicit(fixed)})
	require.NoError(t, err)

	pts, err := m.Sample(10)
	require.NoError(t, err)
	for _, p := range pts {
		assert.Equal(t, r3.Vec{X: 0.25, Y: 0.5, Z: 0.75}, p.Point)
	}

	c, ok := m.Component("south")
	require.True(t, ok)
	_, isTruncated := c.Dist.(*distribution.Truncated)
	assert.True(t, isTruncated, "per-cube distributions are truncated")
}

func TestBuild_UnsatisfiableBounds(t *testing.T) {
	t.Parallel()

	outside := distribution.Func(func(n int) ([]r3.Vec, error) {
		return make([]r3.Vec, n), nil
	})
	m, err := Build(testutil.TwoCubes(t), nil, Options{
		Mode:      Explicit(outside),
		Bounds:    &r3.Box{Min: r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}, Max: r3.Vec{X: 1, Y: 1, Z: 1}},
		MaxRounds: 3,
	})
	require.NoError(t, err)

	_, err = m.Sample(5)
	assert.ErrorIs(t, err, ErrSampling)
}

func TestBuild_Reproducible(t *testing.T) {
	t.Parallel()

	opts := Options{PerCube: map[string]Mode{"north": Empirical(), "south": Uniform()}, Bins: 8, Seed: 99}
	clouds := map[string]labels.Cloud{"north": testutil.ClusterCloud()}

	a, err := Build(testutil.TwoCubes(t), clouds, opts)
	require.NoError(t, err)
	b, err := Build(testutil.TwoCubes(t), clouds, opts)
	require.NoError(t, err)

	pa, err := a.Sample(500)
	require.NoError(t, err)
	pb, err := b.Sample(500)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestBuild_Logging(t *testing.T) {
	var ops, diag bytes.Buffer
	SetLogWriters(&ops, &diag)
	defer SetLogWriters(nil, nil)

	_, err := Build(testutil.TwoCubes(t), nil, Options{Mode: ModeOf("mystery")})
	require.NoError(t, err)
	assert.True(t, strings.Contains(diag.String(), `unsupported mode "mystery"`), diag.String())

	_, err = Build(testutil.TwoCubes(t), nil, Options{Weights: []float64{1}})
	require.Error(t, err)
	assert.Contains(t, ops.String(), "rejecting sampler config")
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	c := cube.Cube{ID: "c", Extent: [3]int{10, 20, 40}, Offset: [3]float64{100, 200, 0}}
	pts, err := Normalize(labels.Cloud{{I: 105, X: 210, H: 40}}, CubeTransform(c))
	require.NoError(t, err)
	assert.Equal(t, []r3.Vec{{X: 0.5, Y: 0.5, Z: 1}}, pts)

	_, err = Normalize(labels.Cloud{{I: 111, X: 200, H: 0}}, CubeTransform(c))
	assert.ErrorIs(t, err, ErrDataQuality)
}

func TestModeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Empirical(), ModeOf("empirical"))
	assert.Equal(t, Uniform(), ModeOf("uniform"))
	assert.Equal(t, Kind("other"), ModeOf("other").Kind)
	assert.Equal(t, KindExplicit, Explicit(nil).Kind)
}
