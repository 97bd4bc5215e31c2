// Command cubeplan manages a catalog of seismic cubes and label clouds,
// plans inference coverage grids and draws training crop centres.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/banshee-data/crop.planner/internal/grid"
	"github.com/banshee-data/crop.planner/internal/sampler"
	"github.com/banshee-data/crop.planner/internal/version"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches one subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	command, rest := args[0], args[1:]
	var err error
	switch command {
	case "import-cubes":
		err = handleImportCubes(rest, stdout, stderr)
	case "import-labels":
		err = handleImportLabels(rest, stdout, stderr)
	case "grid":
		err = handleGrid(rest, stdout, stderr)
	case "plans":
		err = handlePlans(rest, stdout, stderr)
	case "sample":
		err = handleSample(rest, stdout, stderr)
	case "migrate":
		err = handleMigrate(rest, stdout, stderr)
	case "version":
		fmt.Fprintln(stdout, version.String("cubeplan"))
	case "help", "-h", "--help":
		printUsage(stdout)
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", command)
		printUsage(stderr)
		return 2
	}

	if err != nil {
		fmt.Fprintf(stderr, "cubeplan %s: %v\n", command, err)
		return 1
	}
	return 0
}

// newFlagSet returns a flag set that reports parse errors instead of exiting.
func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// setupLogging routes the ops streams to stderr, plus diag when verbose.
func setupLogging(stderr io.Writer, verbose bool) {
	var diag io.Writer
	if verbose {
		diag = stderr
	}
	grid.SetLogWriters(stderr, diag, nil)
	sampler.SetLogWriters(stderr, diag)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `cubeplan - coverage grids and crop sampling for seismic cubes

Usage: cubeplan <command> [options]

Commands:
  import-cubes   Store cube geometry from a CSV table
  import-labels  Store the label point cloud of one cube from a CSV file
  grid           Plan coverage windows for a cube sub-volume
  plans          List recorded grid plans
  sample         Draw crop centres from the dataset mixture
  migrate        Manage the catalog schema (up, down, status)
  version        Show build information
  help           Show this help message

Common Flags:
  --db <file>        Catalog database (default: cubeplan.db)
  --config <file>    Sampling config (.json, .yaml or .yml)
  -v                 Log diagnostics to stderr

Examples:
  cubeplan import-cubes --csv cubes.csv
  cubeplan import-labels --cube north --csv north_horizon.csv
  cubeplan grid --cube north --range-i 0:400 --range-x 0:300 --range-h 0:1500 --record
  cubeplan sample --n 1000 --out samples.csv --plots ./report`)
}
