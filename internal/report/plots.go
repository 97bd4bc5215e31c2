// Package report renders diagnostics of sampler draws and coverage plans:
// PNG charts via gonum/plot, HTML heatmaps via go-echarts and CSV exports.
package report

import (
	"fmt"
	"image/color"
	"path/filepath"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/distribution"
)

var (
	weightColor = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	sampleColor = color.RGBA{R: 53, G: 183, B: 121, A: 255}
)

// Frequencies returns the share of pts drawn for each id, in ids order.
func Frequencies(ids []string, pts []distribution.TaggedPoint) []float64 {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	freq := make([]float64, len(ids))
	if len(pts) == 0 {
		return freq
	}
	for _, p := range pts {
		if i, ok := index[p.CubeID]; ok {
			freq[i]++
		}
	}
	for i := range freq {
		freq[i] /= float64(len(pts))
	}
	return freq
}

// PlotCubeFrequencies writes a bar chart PNG comparing each cube's mixture
// weight with its observed share of pts.
func PlotCubeFrequencies(path string, m *distribution.Mixture, pts []distribution.TaggedPoint) error {
	ids := m.CubeIDs()
	if len(ids) == 0 {
		return fmt.Errorf("mixture has no cubes")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Cube selection (%d draws)", len(pts))
	p.Y.Label.Text = "Share"
	p.Y.Min = 0

	w := vg.Points(18)
	weights, err := plotter.NewBarChart(plotter.Values(m.Weights()), w)
	if err != nil {
		return fmt.Errorf("weight bars: %w", err)
	}
	weights.Color = weightColor
	weights.LineStyle.Width = vg.Length(0)
	weights.Offset = -w / 2

	observed, err := plotter.NewBarChart(plotter.Values(Frequencies(ids, pts)), w)
	if err != nil {
		return fmt.Errorf("sample bars: %w", err)
	}
	observed.Color = sampleColor
	observed.LineStyle.Width = vg.Length(0)
	observed.Offset = w / 2

	p.Add(weights, observed)
	p.Legend.Add("weight", weights)
	p.Legend.Add("sampled", observed)
	p.Legend.Top = true
	p.NominalX(ids...)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save frequency plot: %w", err)
	}
	return nil
}

// PlotAxisHistograms writes one histogram PNG per normalized axis of pts
// into dir and returns the file paths in i, x, h order.
func PlotAxisHistograms(dir string, pts []distribution.TaggedPoint, bins int) ([]string, error) {
	if len(pts) == 0 {
		return nil, fmt.Errorf("no samples to plot")
	}
	if bins <= 0 {
		bins = 20
	}

	axes := [3]plotter.Values{
		make(plotter.Values, len(pts)),
		make(plotter.Values, len(pts)),
		make(plotter.Values, len(pts)),
	}
	for k, tp := range pts {
		axes[0][k] = tp.Point.X
		axes[1][k] = tp.Point.Y
		axes[2][k] = tp.Point.Z
	}

	paths := make([]string, 0, 3)
	for a, vs := range axes {
		name := cube.AxisNames[a]
		p := plot.New()
		p.Title.Text = fmt.Sprintf("Axis %s (n=%d, mean=%.3f)", name, len(vs), stat.Mean(vs, nil))
		p.X.Label.Text = "Normalized " + name
		p.Y.Label.Text = "Count"
		p.X.Min, p.X.Max = 0, 1

		h, err := plotter.NewHist(vs, bins)
		if err != nil {
			return nil, fmt.Errorf("histogram %s: %w", name, err)
		}
		h.FillColor = sampleColor
		p.Add(h)

		file := filepath.Join(dir, fmt.Sprintf("axis_%s.png", name))
		if err := p.Save(8*vg.Inch, 4*vg.Inch, file); err != nil {
			return nil, fmt.Errorf("save %s histogram: %w", name, err)
		}
		paths = append(paths, file)
	}
	return paths, nil
}
