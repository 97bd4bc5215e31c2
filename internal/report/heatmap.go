package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/crop.planner/internal/grid"
)

var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// Coverage counts, for every (i, x) column of the plan's window union, how
// many windows cover it. Indices are relative to the plan Offset. A window
// repeated along h counts once per h anchor.
func Coverage(p *grid.Plan) [][]int {
	windows := p.Windows()
	if len(windows) == 0 {
		return nil
	}

	var size [2]int
	for _, w := range windows {
		end := w.End(p.WindowShape)
		for a := 0; a < 2; a++ {
			if n := end[a] - p.Offset[a]; n > size[a] {
				size[a] = n
			}
		}
	}

	counts := make([][]int, size[0])
	for i := range counts {
		counts[i] = make([]int, size[1])
	}
	for _, w := range windows {
		for i := w.Start[0]; i < w.Start[0]+p.WindowShape[0]; i++ {
			for x := w.Start[1]; x < w.Start[1]+p.WindowShape[1]; x++ {
				counts[i-p.Offset[0]][x-p.Offset[1]]++
			}
		}
	}
	return counts
}

// CoverageHeatmap renders an HTML heatmap of Coverage(p) to w.
func CoverageHeatmap(w io.Writer, p *grid.Plan) error {
	counts := Coverage(p)
	if counts == nil {
		return fmt.Errorf("plan %s has no windows", p.ID)
	}

	xs := make([]string, len(counts))
	for i := range counts {
		xs[i] = strconv.Itoa(i + p.Offset[0])
	}
	ys := make([]string, len(counts[0]))
	for x := range counts[0] {
		ys[x] = strconv.Itoa(x + p.Offset[1])
	}

	maxCount := 0
	data := make([]opts.HeatMapData, 0, len(counts)*len(counts[0]))
	for i, row := range counts {
		for x, c := range row {
			if c > maxCount {
				maxCount = c
			}
			data = append(data, opts.HeatMapData{Value: [3]interface{}{i, x, c}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Window coverage", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Window coverage",
			Subtitle: fmt.Sprintf("cube=%s plan=%s windows=%d", p.CubeID, p.ID, p.Len()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: xs, Name: "inline", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: ys, Name: "crossline", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        float32(maxCount),
			InRange:    &opts.VisualMapInRange{Color: viridis},
		}),
	)
	hm.AddSeries("coverage", data)

	if err := hm.Render(w); err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	return nil
}
