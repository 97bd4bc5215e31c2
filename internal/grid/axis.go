package grid

import "sort"

// Span is a half-open integer interval [Low, High).
type Span struct {
	Low  int
	High int
}

// Len returns High-Low, or 0 for empty and inverted spans.
func (s Span) Len() int {
	if s.High <= s.Low {
		return 0
	}
	return s.High - s.Low
}

// Empty reports whether the span contains no coordinate.
func (s Span) Empty() bool { return s.High <= s.Low }

// axisStarts returns the sorted window anchors along one axis.
//
// Anchors are generated every stride from r.Low while below r.High. Anchors
// whose window would pass the cube extent are dropped, and if any were
// dropped a single anchor at r.High-window is appended so the far end of the
// range stays covered. The result may contain duplicates.
//
// The second return value reports whether the corrective anchor was added.
func axisStarts(r Span, window, stride, extent int) ([]int, bool) {
	if r.Empty() {
		return nil, false
	}

	generated := 0
	starts := make([]int, 0, (r.High-r.Low+stride-1)/stride+1)
	for v := r.Low; v < r.High; v += stride {
		generated++
		if v+window <= extent {
			starts = append(starts, v)
		}
	}

	corrected := false
	if len(starts) != generated {
		last := r.High - window
		if last < 0 {
			last = 0
		}
		starts = append(starts, last)
		corrected = true
	}

	sort.Ints(starts)
	return starts, corrected
}
