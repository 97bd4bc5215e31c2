// Package labels reads and writes labelled horizon point clouds.
package labels

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
)

// ErrMissingColumn is returned when a point cloud header lacks one of the
// coordinate columns.
var ErrMissingColumn = errors.New("missing point cloud column")

// Point is one labelled point in absolute cube coordinates.
type Point struct {
	I, X, H float64
}

// Cloud is the ordered label point cloud of one cube.
type Cloud []Point

// pointRow is the CSV layout of a point cloud file. Further columns are ignored.
type pointRow struct {
	I float64 `csv:"i"`
	X float64 `csv:"x"`
	H float64 `csv:"h"`
}

// ReadCloud parses a CSV point cloud with an "i,x,h" header. A header
// without all three coordinate columns fails with ErrMissingColumn.
func ReadCloud(r io.Reader) (Cloud, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read point cloud: %w", err)
	}
	if err := checkHeader(data, "i", "x", "h"); err != nil {
		return nil, err
	}
	var rows []*pointRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse point cloud: %w", err)
	}
	cloud := make(Cloud, 0, len(rows))
	for _, row := range rows {
		cloud = append(cloud, Point{I: row.I, X: row.X, H: row.H})
	}
	return cloud, nil
}

func checkHeader(data []byte, required ...string) error {
	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("failed to read point cloud header: %w", err)
	}
	for k, name := range header {
		header[k] = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
	}
	for _, col := range required {
		if !slices.Contains(header, col) {
			return fmt.Errorf("%w: %q in header %v", ErrMissingColumn, col, header)
		}
	}
	return nil
}

// LoadCloud reads a CSV point cloud file.
func LoadCloud(path string) (Cloud, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open point cloud: %w", err)
	}
	defer f.Close()
	return ReadCloud(f)
}

// LoadClouds reads one point cloud file per cube id.
func LoadClouds(paths map[string]string) (map[string]Cloud, error) {
	out := make(map[string]Cloud, len(paths))
	for id, path := range paths {
		cloud, err := LoadCloud(path)
		if err != nil {
			return nil, fmt.Errorf("cube %q: %w", id, err)
		}
		out[id] = cloud
	}
	return out, nil
}

// WriteCloud writes cloud as CSV with an "i,x,h" header.
func WriteCloud(w io.Writer, cloud Cloud) error {
	rows := make([]*pointRow, len(cloud))
	for i, p := range cloud {
		rows[i] = &pointRow{I: p.I, X: p.X, H: p.H}
	}
	return gocsv.Marshal(rows, w)
}
