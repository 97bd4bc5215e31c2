package grid

import "fmt"

// Window is the minimum corner of one fixed-size window. The size is shared
// by every window of a plan (Plan.WindowShape).
type Window struct {
	CubeID string
	Start  [3]int
}

// End returns the exclusive upper corner of the window for the given shape.
func (w Window) End(shape [3]int) [3]int {
	return [3]int{w.Start[0] + shape[0], w.Start[1] + shape[1], w.Start[2] + shape[2]}
}

// Plan is the ordered window enumeration of one coverage request together
// with the bookkeeping needed to stitch per-window outputs back together.
//
// Windows are handed out by NextBatch exactly once. A Plan is not safe for
// concurrent draining; callers that need a second pass must plan again.
type Plan struct {
	ID          string
	CubeID      string
	WindowShape [3]int
	Stride      [3]int
	Ranges      [3]Span
	BatchSize   int

	// Offset is the elementwise minimum anchor of the plan.
	Offset [3]int
	// OutputShape is the size of the reassembled prediction volume.
	OutputShape [3]int
	// CropSlice is the part of the output volume matching the requested ranges.
	CropSlice [3]Span

	windows []Window
	cursor  int
}

// Len returns the total number of windows.
func (p *Plan) Len() int { return len(p.windows) }

// NumBatches returns ceil(Len/BatchSize).
func (p *Plan) NumBatches() int {
	if p.BatchSize <= 0 {
		return 0
	}
	return (len(p.windows) + p.BatchSize - 1) / p.BatchSize
}

// Remaining returns the number of windows not yet handed out.
func (p *Plan) Remaining() int { return len(p.windows) - p.cursor }

// Exhausted reports whether every window was handed out.
func (p *Plan) Exhausted() bool { return p.cursor >= len(p.windows) }

// Windows returns a copy of all windows in enumeration order. It does not
// move the batch cursor.
func (p *Plan) Windows() []Window {
	out := make([]Window, len(p.windows))
	copy(out, p.windows)
	return out
}

// LocalAnchors returns each window anchor relative to Offset, in
// enumeration order. These are the write positions into the output volume.
func (p *Plan) LocalAnchors() [][3]int {
	out := make([][3]int, len(p.windows))
	for i, w := range p.windows {
		for a := range w.Start {
			out[i][a] = w.Start[a] - p.Offset[a]
		}
	}
	return out
}

// NextBatch returns the next run of up to BatchSize windows. After the last
// batch every call fails with ErrExhausted.
func (p *Plan) NextBatch() ([]Window, error) {
	if p.Exhausted() {
		opsf("plan %s: batch requested after exhaustion", p.ID)
		return nil, fmt.Errorf("%w: plan %s handed out all %d windows", ErrExhausted, p.ID, len(p.windows))
	}
	end := p.cursor + p.BatchSize
	if end > len(p.windows) {
		end = len(p.windows)
	}
	batch := make([]Window, end-p.cursor)
	copy(batch, p.windows[p.cursor:end])
	p.cursor = end
	tracef("plan %s: batch of %d windows, %d remaining", p.ID, len(batch), p.Remaining())
	return batch, nil
}
