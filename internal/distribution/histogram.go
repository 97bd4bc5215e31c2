package distribution

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultBins is the number of histogram bins per axis.
const DefaultBins = 100

// Histogram is an empirical distribution over the unit cube. Points are
// binned on a regular grid of Bins^3 cells; sampling picks a cell with
// probability proportional to its count and then a uniform point inside it.
type Histogram struct {
	bins   int
	edges  []float64
	counts []float64
	total  float64
	cells  distuv.Categorical
	rng    *rand.Rand
}

// NewHistogram bins points (which must lie in [0,1]^3) into bins cells per axis.
func NewHistogram(points []r3.Vec, bins int, src rand.Source) (*Histogram, error) {
	if bins <= 0 {
		bins = DefaultBins
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: histogram needs at least one point", ErrEmpty)
	}

	edges := floats.Span(make([]float64, bins+1), 0, 1)
	counts := make([]float64, bins*bins*bins)
	unit := UnitBox()
	for i, p := range points {
		if !Contains(unit, p) {
			return nil, fmt.Errorf("%w: point %d %v outside unit cube", ErrInvalidBounds, i, p)
		}
		ii := binIndex(edges, p.X)
		xi := binIndex(edges, p.Y)
		hi := binIndex(edges, p.Z)
		counts[(ii*bins+xi)*bins+hi]++
	}

	return &Histogram{
		bins:   bins,
		edges:  edges,
		counts: counts,
		total:  float64(len(points)),
		cells:  distuv.NewCategorical(counts, src),
		rng:    rand.New(src),
	}, nil
}

// binIndex maps v in [0,1] onto its bin. The upper edge belongs to the last bin.
func binIndex(edges []float64, v float64) int {
	if idx := floats.Within(edges, v); idx >= 0 {
		return idx
	}
	return len(edges) - 2
}

// Bins returns the number of bins per axis.
func (h *Histogram) Bins() int { return h.bins }

// Density returns the fraction of binned points in the cell holding p.
func (h *Histogram) Density(p r3.Vec) float64 {
	if !Contains(UnitBox(), p) {
		return 0
	}
	ii := binIndex(h.edges, p.X)
	xi := binIndex(h.edges, p.Y)
	hi := binIndex(h.edges, p.Z)
	return h.counts[(ii*h.bins+xi)*h.bins+hi] / h.total
}

// Sample draws n points.
func (h *Histogram) Sample(n int) ([]r3.Vec, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	out := make([]r3.Vec, n)
	for k := range out {
		cell := int(h.cells.Rand())
		hi := cell % h.bins
		xi := (cell / h.bins) % h.bins
		ii := cell / (h.bins * h.bins)
		out[k] = r3.Vec{
			X: h.within(ii),
			Y: h.within(xi),
			Z: h.within(hi),
		}
	}
	return out, nil
}

func (h *Histogram) within(bin int) float64 {
	lo, hi := h.edges[bin], h.edges[bin+1]
	return lo + h.rng.Float64()*(hi-lo)
}
