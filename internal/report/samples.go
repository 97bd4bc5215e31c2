package report

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/banshee-data/crop.planner/internal/cube"
	"github.com/banshee-data/crop.planner/internal/distribution"
)

// sampleRow is the CSV layout of one sampled crop centre.
type sampleRow struct {
	CubeID string  `csv:"cube_id"`
	I      float64 `csv:"i"`
	X      float64 `csv:"x"`
	H      float64 `csv:"h"`
	AbsI   float64 `csv:"abs_i"`
	AbsX   float64 `csv:"abs_x"`
	AbsH   float64 `csv:"abs_h"`
}

// WriteSamplesCSV writes pts with their normalized and absolute coordinates.
// Absolute coordinates are offset + v * extent of the point's cube.
func WriteSamplesCSV(w io.Writer, reg *cube.Registry, pts []distribution.TaggedPoint) error {
	rows := make([]*sampleRow, len(pts))
	for k, tp := range pts {
		c, err := reg.Lookup(tp.CubeID)
		if err != nil {
			return fmt.Errorf("sample %d: %w", k, err)
		}
		rows[k] = &sampleRow{
			CubeID: tp.CubeID,
			I:      tp.Point.X,
			X:      tp.Point.Y,
			H:      tp.Point.Z,
			AbsI:   c.Offset[0] + tp.Point.X*float64(c.Extent[0]),
			AbsX:   c.Offset[1] + tp.Point.Y*float64(c.Extent[1]),
			AbsH:   c.Offset[2] + tp.Point.Z*float64(c.Extent[2]),
		}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}
