package cube

import (
	"bytes"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/gocarina/gocsv"
)

// cubeRow is the CSV layout of a cube geometry table.
type cubeRow struct {
	ID      string  `csv:"cube_id"`
	ExtentI int     `csv:"extent_i"`
	ExtentX int     `csv:"extent_x"`
	ExtentH int     `csv:"extent_h"`
	OffsetI float64 `csv:"offset_i"`
	OffsetX float64 `csv:"offset_x"`
	OffsetH float64 `csv:"offset_h"`
}

// ReadCSV parses a geometry table with a
// "cube_id,extent_i,extent_x,extent_h,offset_i,offset_x,offset_h" header.
// Offset columns may be omitted; a missing id or extent column fails with
// ErrInvalidCube.
func ReadCSV(r io.Reader) ([]Cube, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read cube table: %w", err)
	}
	if err := checkHeader(data, "cube_id", "extent_i", "extent_x", "extent_h"); err != nil {
		return nil, err
	}
	var rows []*cubeRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse cube table: %w", err)
	}
	out := make([]Cube, 0, len(rows))
	for _, row := range rows {
		c := Cube{
			ID:     row.ID,
			Extent: [3]int{row.ExtentI, row.ExtentX, row.ExtentH},
			Offset: [3]float64{row.OffsetI, row.OffsetX, row.OffsetH},
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func checkHeader(data []byte, required ...string) error {
	header, err := gocsv.DefaultCSVReader(bytes.NewReader(data)).Read()
	if err != nil {
		return fmt.Errorf("failed to read cube table header: %w", err)
	}
	for k, name := range header {
		header[k] = strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF"))
	}
	for _, col := range required {
		if !slices.Contains(header, col) {
			return fmt.Errorf("%w: cube table has no %q column", ErrInvalidCube, col)
		}
	}
	return nil
}
