// Package testutil provides shared fixtures for package tests: a small cube
// registry, a clustered label cloud and file helpers.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/labels"
)

// North and South are the cubes returned by TwoCubes.
var (
	North = cube.Cube{ID: "north", Extent: [3]int{100, 200, 50}, Offset: [3]float64{1000, 2000, 0}}
	South = cube.Cube{ID: "south", Extent: [3]int{10, 10, 10}}
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// TwoCubes returns a registry holding North then South.
func TwoCubes(t *testing.T) *cube.Registry {
	t.Helper()
	reg, err := cube.NewRegistry(North, South)
	AssertNoError(t, err)
	return reg
}

// ClusterCloud returns 50 label points around the centre of North. They
// normalize into i [0.4,0.5), x [0.45,0.55) and h [0.4,0.5).
func ClusterCloud() labels.Cloud {
	var cloud labels.Cloud
	for k := 0; k < 50; k++ {
		cloud = append(cloud, labels.Point{I: 1040 + float64(k%10), X: 2090 + float64(k%20), H: 20 + float64(k%5)})
	}
	return cloud
}

// WriteFile writes body to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
