package grid

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/banshee-data/crop.planner/internal/cube"
)

func testPlanner(t *testing.T, cubes ...cube.Cube) *Planner {
	t.Helper()
	reg, err := cube.NewRegistry(cubes...)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return NewPlanner(reg)
}

func drain(t *testing.T, p *Plan) [][]Window {
	t.Helper()
	var batches [][]Window
	for !p.Exhausted() {
		b, err := p.NextBatch()
		if err != nil {
			t.Fatalf("NextBatch: %v", err)
		}
		batches = append(batches, b)
	}
	return batches
}

func TestPlan_FourWindowExample(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{4, 4, 1}})

	plan, err := planner.Plan(Spec{
		CubeID:      "c",
		WindowShape: [3]int{2, 2, 1},
		Stride:      [3]int{2, 2, 1},
		Ranges:      [3]Span{{0, 4}, {0, 4}, {0, 1}},
		BatchSize:   100,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	want := []Window{
		{CubeID: "c", Start: [3]int{0, 0, 0}},
		{CubeID: "c", Start: [3]int{0, 2, 0}},
		{CubeID: "c", Start: [3]int{2, 0, 0}},
		{CubeID: "c", Start: [3]int{2, 2, 0}},
	}
	if diff := cmp.Diff(want, plan.Windows()); diff != "" {
		t.Errorf("windows mismatch (-want +got):\n%s", diff)
	}
	if plan.Len() != 4 {
		t.Errorf("Len() = %d, want 4", plan.Len())
	}
	if plan.NumBatches() != 1 {
		t.Errorf("NumBatches() = %d, want 1", plan.NumBatches())
	}
	if plan.Offset != [3]int{0, 0, 0} {
		t.Errorf("Offset = %v, want (0,0,0)", plan.Offset)
	}
	if plan.OutputShape != [3]int{4, 4, 1} {
		t.Errorf("OutputShape = %v, want (4,4,1)", plan.OutputShape)
	}
	if plan.CropSlice != [3]Span{{0, 4}, {0, 4}, {0, 1}} {
		t.Errorf("CropSlice = %v", plan.CropSlice)
	}
	if plan.ID == "" {
		t.Error("expected plan id")
	}

	batches := drain(t, plan)
	if len(batches) != 1 || len(batches[0]) != 4 {
		t.Fatalf("expected one batch of 4, got %v", batches)
	}
	if _, err := plan.NextBatch(); !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestPlan_CorrectionPaths(t *testing.T) {
	testCases := []struct {
		name    string
		extentI int
		wantI   []int
	}{
		// extent_i=4: anchor 2 has 2+2=4 <= 4, kept, nothing appended.
		{"no_correction", 4, []int{0, 2}},
		// extent_i=3: anchor 2 has 2+2=4 > 3, dropped, 3-2=1 appended.
		{"correction_appended", 3, []int{0, 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{tc.extentI, 4, 1}})
			plan, err := planner.Plan(Spec{
				CubeID:      "c",
				WindowShape: [3]int{2, 2, 1},
				Ranges:      [3]Span{{0, 3}, {0, 4}, {0, 1}},
				BatchSize:   100,
			})
			if err != nil {
				t.Fatalf("Plan: %v", err)
			}

			var want []Window
			for _, i := range tc.wantI {
				for _, x := range []int{0, 2} {
					want = append(want, Window{CubeID: "c", Start: [3]int{i, x, 0}})
				}
			}
			if diff := cmp.Diff(want, plan.Windows()); diff != "" {
				t.Errorf("windows mismatch (-want +got):\n%s", diff)
			}
			if plan.OutputShape != [3]int{3, 4, 1} {
				t.Errorf("OutputShape = %v, want (3,4,1)", plan.OutputShape)
			}
			if plan.Stride != [3]int{2, 2, 1} {
				t.Errorf("Stride = %v, want window shape", plan.Stride)
			}
		})
	}
}

func TestPlan_BatchesInOrder(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{10, 10, 10}})
	plan, err := planner.Plan(Spec{
		CubeID:      "c",
		WindowShape: [3]int{3, 4, 5},
		Stride:      [3]int{2, 4, 5},
		Ranges:      [3]Span{{1, 8}, {2, 9}, {0, 10}},
		BatchSize:   4,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	// i: 1,3,5,7 -> 7+3 <= 10 kept. x: 2,6 -> 6+4 <= 10 kept. h: 0,5.
	if plan.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", plan.Len())
	}
	if plan.NumBatches() != 4 {
		t.Errorf("NumBatches() = %d, want 4", plan.NumBatches())
	}

	all := plan.Windows()
	batches := drain(t, plan)
	if len(batches) != plan.NumBatches() {
		t.Fatalf("drained %d batches, want %d", len(batches), plan.NumBatches())
	}
	var flat []Window
	for _, b := range batches {
		if len(b) > plan.BatchSize {
			t.Errorf("batch of %d exceeds batch size %d", len(b), plan.BatchSize)
		}
		flat = append(flat, b...)
	}
	if diff := cmp.Diff(all, flat); diff != "" {
		t.Errorf("drained windows differ from enumeration (-want +got):\n%s", diff)
	}

	// i outermost, x middle, h innermost.
	for k := 1; k < len(flat); k++ {
		a, b := flat[k-1].Start, flat[k].Start
		less := a[0] < b[0] ||
			(a[0] == b[0] && a[1] < b[1]) ||
			(a[0] == b[0] && a[1] == b[1] && a[2] < b[2])
		if !less {
			t.Errorf("window %d %v not after %v", k, b, a)
		}
	}

	if plan.Offset != [3]int{1, 2, 0} {
		t.Errorf("Offset = %v, want (1,2,0)", plan.Offset)
	}
	anchors := plan.LocalAnchors()
	if anchors[0] != [3]int{0, 0, 0} || anchors[len(anchors)-1] != [3]int{6, 4, 5} {
		t.Errorf("unexpected local anchors %v", anchors)
	}

	for i := 0; i < 2; i++ {
		if _, err := plan.NextBatch(); !errors.Is(err, ErrExhausted) {
			t.Errorf("call %d: expected ErrExhausted, got %v", i, err)
		}
	}
}

func TestPlan_UnevenLastBatch(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{10, 1, 1}})
	plan, err := planner.Plan(Spec{
		CubeID:      "c",
		WindowShape: [3]int{1, 1, 1},
		Ranges:      [3]Span{{0, 10}, {0, 1}, {0, 1}},
		BatchSize:   3,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	var sizes []int
	for _, b := range drain(t, plan) {
		sizes = append(sizes, len(b))
	}
	if diff := cmp.Diff([]int{3, 3, 3, 1}, sizes); diff != "" {
		t.Errorf("batch sizes mismatch (-want +got):\n%s", diff)
	}
	if plan.Remaining() != 0 {
		t.Errorf("Remaining() = %d, want 0", plan.Remaining())
	}
}

func TestPlan_CoverageProperty(t *testing.T) {
	extent := [3]int{7, 6, 5}
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: extent})

	specs := []Spec{
		{WindowShape: [3]int{3, 2, 2}, Ranges: [3]Span{{0, 7}, {1, 6}, {0, 5}}},
		{WindowShape: [3]int{4, 4, 3}, Stride: [3]int{3, 2, 1}, Ranges: [3]Span{{2, 7}, {0, 5}, {1, 4}}},
		{WindowShape: [3]int{7, 6, 5}, Ranges: [3]Span{{3, 4}, {5, 6}, {4, 5}}},
		{WindowShape: [3]int{2, 5, 4}, Stride: [3]int{1, 5, 2}, Ranges: [3]Span{{6, 7}, {0, 6}, {0, 5}}},
	}

	for n, spec := range specs {
		spec.CubeID = "c"
		spec.BatchSize = 5
		plan, err := planner.Plan(spec)
		if err != nil {
			t.Fatalf("spec %d: %v", n, err)
		}

		covered := map[[3]int]bool{}
		for _, w := range plan.Windows() {
			end := w.End(spec.WindowShape)
			for a := range end {
				if w.Start[a] < 0 || end[a] > extent[a] {
					t.Fatalf("spec %d: window %v out of bounds", n, w)
				}
			}
			for i := w.Start[0]; i < end[0]; i++ {
				for x := w.Start[1]; x < end[1]; x++ {
					for h := w.Start[2]; h < end[2]; h++ {
						covered[[3]int{i, x, h}] = true
					}
				}
			}
		}
		r := spec.Ranges
		for i := r[0].Low; i < r[0].High; i++ {
			for x := r[1].Low; x < r[1].High; x++ {
				for h := r[2].Low; h < r[2].High; h++ {
					if !covered[[3]int{i, x, h}] {
						t.Fatalf("spec %d: voxel (%d,%d,%d) not covered", n, i, x, h)
					}
				}
			}
		}
	}
}

func TestPlan_EmptyRange(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{4, 4, 4}})
	plan, err := planner.Plan(Spec{
		CubeID:      "c",
		WindowShape: [3]int{2, 2, 2},
		Ranges:      [3]Span{{0, 4}, {2, 2}, {0, 4}},
		BatchSize:   8,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Len() != 0 || plan.NumBatches() != 0 {
		t.Errorf("expected empty plan, got %d windows in %d batches", plan.Len(), plan.NumBatches())
	}
	if plan.OutputShape != [3]int{4, 0, 4} {
		t.Errorf("OutputShape = %v", plan.OutputShape)
	}
	if _, err := plan.NextBatch(); !errors.Is(err, ErrExhausted) {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestPlan_Errors(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{4, 4, 4}})
	base := Spec{
		CubeID:      "c",
		WindowShape: [3]int{2, 2, 2},
		Ranges:      [3]Span{{0, 4}, {0, 4}, {0, 4}},
		BatchSize:   4,
	}

	testCases := []struct {
		name   string
		mutate func(*Spec)
		want   error
	}{
		{"negative_low", func(s *Spec) { s.Ranges[0] = Span{-1, 5} }, ErrRange},
		{"high_past_extent", func(s *Spec) { s.Ranges[2] = Span{0, 5} }, ErrRange},
		{"window_past_extent", func(s *Spec) { s.WindowShape[1] = 5 }, ErrRange},
		{"unknown_cube", func(s *Spec) { s.CubeID = "nope" }, ErrUnknownCube},
		{"zero_batch", func(s *Spec) { s.BatchSize = 0 }, ErrInvalidSpec},
		{"zero_window", func(s *Spec) { s.WindowShape[0] = 0 }, ErrInvalidSpec},
		{"negative_stride", func(s *Spec) { s.Stride[2] = -1 }, ErrInvalidSpec},
		{"stride_past_window", func(s *Spec) { s.Stride[0] = 3 }, ErrInvalidSpec},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			spec := base
			tc.mutate(&spec)
			plan, err := planner.Plan(spec)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
			if plan != nil {
				t.Error("expected no partial plan")
			}
		})
	}
}

func TestPlan_Logging(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{3, 1, 1}})
	plan, err := planner.Plan(Spec{
		CubeID:      "c",
		WindowShape: [3]int{2, 1, 1},
		Ranges:      [3]Span{{0, 3}, {0, 1}, {0, 1}},
		BatchSize:   1,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	drain(t, plan)
	_, _ = plan.NextBatch()

	if !strings.Contains(diag.String(), "boundary anchor 1 appended") {
		t.Errorf("diag log missing correction: %q", diag.String())
	}
	if !strings.Contains(trace.String(), "batch of 1 windows") {
		t.Errorf("trace log missing batch: %q", trace.String())
	}
	if !strings.Contains(ops.String(), "after exhaustion") {
		t.Errorf("ops log missing exhaustion: %q", ops.String())
	}
}

func TestPlan_IndependentPlans(t *testing.T) {
	planner := testPlanner(t, cube.Cube{ID: "c", Extent: [3]int{4, 4, 1}})
	spec := Spec{
		CubeID:      "c",
		WindowShape: [3]int{2, 2, 1},
		Ranges:      [3]Span{{0, 4}, {0, 4}, {0, 1}},
		BatchSize:   2,
	}
	a, err := planner.Plan(spec)
	if err != nil {
		t.Fatal(err)
	}
	b, err := planner.Plan(spec)
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Error("expected distinct plan ids")
	}

	drain(t, a)
	if b.Remaining() != 4 {
		t.Errorf("draining one plan moved the other: remaining %d", b.Remaining())
	}
	if diff := cmp.Diff(a, b, cmp.AllowUnexported(Plan{}), cmpopts.IgnoreFields(Plan{}, "ID")); diff == "" {
		t.Error("expected cursors to differ")
	}
	if diff := cmp.Diff(a.Windows(), b.Windows()); diff != "" {
		t.Errorf("same spec produced different windows:\n%s", diff)
	}
}
