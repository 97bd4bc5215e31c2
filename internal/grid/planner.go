// Package grid plans exhaustive coverage of a cube sub-volume by fixed-size
// windows, for batched inference and later reassembly of the predictions.
package grid

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/crop.planner/internal/cube"
)

// DefaultBatchSize is used by callers that do not pick a batch size.
const DefaultBatchSize = 16

var (
	// ErrRange is returned when a requested range leaves the cube bounds.
	ErrRange = errors.New("range outside cube")
	// ErrInvalidSpec is returned for non-positive window, stride or batch
	// sizes and for strides larger than the window.
	ErrInvalidSpec = errors.New("invalid grid spec")
	// ErrExhausted is returned by NextBatch once every window was handed out.
	ErrExhausted = errors.New("grid exhausted")
	// ErrUnknownCube is returned when a Spec names an unregistered cube.
	ErrUnknownCube = cube.ErrUnknownCube
)

// Spec describes one coverage request.
type Spec struct {
	CubeID      string
	WindowShape [3]int
	// Ranges are the requested [low, high) intervals along i, x and h.
	Ranges [3]Span
	// Stride between consecutive anchors. A zero entry means the window
	// size on that axis (non-overlapping tiling). A stride larger than the
	// window would leave voxels uncovered and fails with ErrInvalidSpec.
	Stride    [3]int
	BatchSize int
}

// Planner builds coverage plans against a cube registry.
type Planner struct {
	registry *cube.Registry
}

// NewPlanner returns a planner over reg.
func NewPlanner(reg *cube.Registry) *Planner {
	return &Planner{registry: reg}
}

// Plan validates spec and enumerates its windows. Either a complete plan or
// an error is returned.
func (p *Planner) Plan(spec Spec) (*Plan, error) {
	c, err := p.registry.Lookup(spec.CubeID)
	if err != nil {
		opsf("rejecting plan: %v", err)
		return nil, err
	}

	stride, err := resolveSpec(&spec)
	if err != nil {
		opsf("rejecting plan for cube %q: %v", spec.CubeID, err)
		return nil, err
	}
	if err := checkRanges(c, spec.Ranges); err != nil {
		opsf("rejecting plan for cube %q: %v", spec.CubeID, err)
		return nil, err
	}

	plan := &Plan{
		ID:          uuid.New().String(),
		CubeID:      c.ID,
		WindowShape: spec.WindowShape,
		Stride:      stride,
		Ranges:      spec.Ranges,
		BatchSize:   spec.BatchSize,
	}
	for a, r := range spec.Ranges {
		plan.OutputShape[a] = r.Len()
		plan.CropSlice[a] = Span{Low: 0, High: r.Len()}
	}

	for _, r := range spec.Ranges {
		if r.Empty() {
			diagf("plan %s: empty range on cube %q, no windows", plan.ID, c.ID)
			return plan, nil
		}
	}
	for a, w := range spec.WindowShape {
		if w > c.Extent[a] {
			err := fmt.Errorf("%w: cube %q window_%s %d exceeds extent %d", ErrRange, c.ID, cube.AxisNames[a], w, c.Extent[a])
			opsf("rejecting plan: %v", err)
			return nil, err
		}
	}

	var starts [3][]int
	for a := range starts {
		var corrected bool
		starts[a], corrected = axisStarts(spec.Ranges[a], spec.WindowShape[a], stride[a], c.Extent[a])
		if corrected {
			diagf("plan %s: axis %s boundary anchor %d appended (range %v, window %d, extent %d)",
				plan.ID, cube.AxisNames[a], starts[a][len(starts[a])-1], spec.Ranges[a], spec.WindowShape[a], c.Extent[a])
		}
	}

	plan.windows = make([]Window, 0, len(starts[0])*len(starts[1])*len(starts[2]))
	for _, i := range starts[0] {
		for _, x := range starts[1] {
			for _, h := range starts[2] {
				plan.windows = append(plan.windows, Window{CubeID: c.ID, Start: [3]int{i, x, h}})
			}
		}
	}
	plan.Offset = minAnchor(plan.windows)

	diagf("plan %s: cube %q %d windows (%dx%dx%d) in %d batches of %d",
		plan.ID, c.ID, plan.Len(), len(starts[0]), len(starts[1]), len(starts[2]), plan.NumBatches(), plan.BatchSize)
	return plan, nil
}

// resolveSpec checks sizes and returns the effective stride.
func resolveSpec(spec *Spec) ([3]int, error) {
	var stride [3]int
	if spec.BatchSize <= 0 {
		return stride, fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidSpec, spec.BatchSize)
	}
	for a := range stride {
		w := spec.WindowShape[a]
		if w <= 0 {
			return stride, fmt.Errorf("%w: window_%s must be positive, got %d", ErrInvalidSpec, cube.AxisNames[a], w)
		}
		s := spec.Stride[a]
		if s == 0 {
			s = w
		}
		if s < 0 {
			return stride, fmt.Errorf("%w: stride_%s must be positive, got %d", ErrInvalidSpec, cube.AxisNames[a], s)
		}
		if s > w {
			return stride, fmt.Errorf("%w: stride_%s %d exceeds window %d and would leave gaps", ErrInvalidSpec, cube.AxisNames[a], s, w)
		}
		stride[a] = s
	}
	return stride, nil
}

// checkRanges rejects ranges starting below zero or ending past the extent.
func checkRanges(c cube.Cube, ranges [3]Span) error {
	for a, r := range ranges {
		if r.Low < 0 {
			return fmt.Errorf("%w: cube %q range_%s [%d, %d) starts below 0", ErrRange, c.ID, cube.AxisNames[a], r.Low, r.High)
		}
		if r.High > c.Extent[a] {
			return fmt.Errorf("%w: cube %q range_%s [%d, %d) exceeds extent %d", ErrRange, c.ID, cube.AxisNames[a], r.Low, r.High, c.Extent[a])
		}
	}
	return nil
}

func minAnchor(windows []Window) [3]int {
	var out [3]int
	if len(windows) == 0 {
		return out
	}
	out = windows[0].Start
	for _, w := range windows[1:] {
		for a := range out {
			if w.Start[a] < out[a] {
				out[a] = w.Start[a]
			}
		}
	}
	return out
}
