package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/banshee-data/crop.planner/internal/catalog"
	"github.com/banshee-data/crop.planner/internal/config"
	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/grid"
	"github.com/banshee-data/crop.planner/internal/labels"
	"github.com/banshee-data/crop.planner/internal/report"
	"github.com/banshee-data/crop.planner/internal/sampler"
)

const defaultDBPath = "cubeplan.db"

// loadConfig reads path, or returns an empty config (all defaults) when
// path is empty.
func loadConfig(path string) (*config.SamplingConfig, error) {
	if path == "" {
		return config.EmptySamplingConfig(), nil
	}
	return config.LoadSamplingConfig(path)
}

// parseSpan parses "low:high". An empty string selects [0, extent).
func parseSpan(s string, extent int) (grid.Span, error) {
	if s == "" {
		return grid.Span{Low: 0, High: extent}, nil
	}
	lo, hi, ok := strings.Cut(s, ":")
	if !ok {
		return grid.Span{}, fmt.Errorf("range %q must be low:high", s)
	}
	low, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return grid.Span{}, fmt.Errorf("range %q: invalid low: %w", s, err)
	}
	high, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return grid.Span{}, fmt.Errorf("range %q: invalid high: %w", s, err)
	}
	return grid.Span{Low: low, High: high}, nil
}

func handleImportCubes(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import-cubes", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	csvPath := fs.String("csv", "", "Cube geometry CSV (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *csvPath == "" {
		return errors.New("--csv is required")
	}

	f, err := os.Open(filepath.Clean(*csvPath))
	if err != nil {
		return err
	}
	defer f.Close()
	cubes, err := cube.ReadCSV(f)
	if err != nil {
		return err
	}

	db, err := catalog.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	for _, c := range cubes {
		if err := db.PutCube(c); err != nil {
			return err
		}
	}
	fmt.Fprintf(stdout, "stored %d cubes in %s\n", len(cubes), *dbPath)
	return nil
}

func handleImportLabels(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("import-labels", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	cubeID := fs.String("cube", "", "Cube the labels belong to (required)")
	csvPath := fs.String("csv", "", "Label point cloud CSV with an i,x,h header (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cubeID == "" || *csvPath == "" {
		return errors.New("--cube and --csv are required")
	}

	cloud, err := labels.LoadCloud(*csvPath)
	if err != nil {
		return err
	}
	db, err := catalog.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PutLabels(*cubeID, cloud); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "stored %d label points for cube %s\n", len(cloud), *cubeID)
	return nil
}

func handleGrid(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("grid", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	cfgPath := fs.String("config", "", "Sampling config file")
	cubeID := fs.String("cube", "", "Cube to cover (required)")
	var rangeFlags [3]*string
	for a, name := range cube.AxisNames {
		rangeFlags[a] = fs.String("range-"+name, "", "Requested low:high along "+name+" (default: whole extent)")
	}
	record := fs.Bool("record", false, "Store the plan in the catalog")
	heatmap := fs.String("heatmap", "", "Write a coverage heatmap HTML to this path")
	verbose := fs.Bool("v", false, "Log diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cubeID == "" {
		return errors.New("--cube is required")
	}
	setupLogging(stderr, *verbose)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := catalog.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	reg, err := db.Registry()
	if err != nil {
		return err
	}
	c, err := reg.Lookup(*cubeID)
	if err != nil {
		return err
	}

	var ranges [3]grid.Span
	for a := range ranges {
		if ranges[a], err = parseSpan(*rangeFlags[a], c.Extent[a]); err != nil {
			return err
		}
	}

	plan, err := grid.NewPlanner(reg).Plan(grid.SpecFromConfig(cfg, c.ID, ranges))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "plan %s cube=%s windows=%d batches=%d offset=%v output_shape=%v\n",
		plan.ID, plan.CubeID, plan.Len(), plan.NumBatches(), plan.Offset, plan.OutputShape)

	if *record {
		if err := db.RecordPlan(plan); err != nil {
			return err
		}
	}
	if *heatmap != "" && plan.Len() > 0 {
		f, err := os.Create(filepath.Clean(*heatmap))
		if err != nil {
			return err
		}
		err = report.CoverageHeatmap(f, plan)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
	}

	for b := 0; !plan.Exhausted(); b++ {
		batch, err := plan.NextBatch()
		if err != nil {
			return err
		}
		starts := make([]string, len(batch))
		for k, w := range batch {
			starts[k] = fmt.Sprintf("(%d,%d,%d)", w.Start[0], w.Start[1], w.Start[2])
		}
		fmt.Fprintf(stdout, "batch %d: %s\n", b, strings.Join(starts, " "))
	}
	return nil
}

func handlePlans(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("plans", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	cubeID := fs.String("cube", "", "Only list plans of this cube")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := catalog.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	plans, err := db.Plans(*cubeID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tCUBE\tWINDOW\tSTRIDE\tWINDOWS\tBATCHES")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%d\t%d\n", p.ID, p.CubeID, p.WindowShape, p.Stride, p.NumWindows, p.NumBatches)
	}
	return tw.Flush()
}

func handleSample(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("sample", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	cfgPath := fs.String("config", "", "Sampling config file")
	n := fs.Int("n", 1000, "Number of crop centres to draw")
	out := fs.String("out", "-", "Samples CSV path, - for stdout")
	plots := fs.String("plots", "", "Write frequency and axis histogram PNGs into this directory")
	verbose := fs.Bool("v", false, "Log diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}
	setupLogging(stderr, *verbose)

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	db, err := catalog.NewDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	reg, err := db.Registry()
	if err != nil {
		return err
	}
	clouds, err := db.Clouds()
	if err != nil {
		return err
	}

	mixture, err := sampler.Build(reg, clouds, sampler.OptionsFromConfig(cfg))
	if err != nil {
		return err
	}
	pts, err := mixture.Sample(*n)
	if err != nil {
		return err
	}

	if *out == "-" {
		if err := report.WriteSamplesCSV(stdout, reg, pts); err != nil {
			return err
		}
	} else {
		f, err := os.Create(filepath.Clean(*out))
		if err != nil {
			return err
		}
		err = report.WriteSamplesCSV(f, reg, pts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %d samples to %s\n", len(pts), *out)
	}

	if *plots != "" && len(pts) > 0 {
		if err := os.MkdirAll(*plots, 0o755); err != nil {
			return err
		}
		if err := report.PlotCubeFrequencies(filepath.Join(*plots, "cube_frequencies.png"), mixture, pts); err != nil {
			return err
		}
		if _, err := report.PlotAxisHistograms(*plots, pts, cfg.GetBins()); err != nil {
			return err
		}
	}
	return nil
}

func handleMigrate(args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("migrate", stderr)
	dbPath := fs.String("db", defaultDBPath, "Catalog database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	action := fs.Arg(0)

	db, err := catalog.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		err = db.MigrateUp()
	case "down":
		err = db.MigrateDown()
	case "status", "":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}
	if err != nil {
		return err
	}

	current, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	latest, err := catalog.LatestVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "version %d of %d (dirty: %v)\n", current, latest, dirty)
	return nil
}
