package distribution

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

type component struct {
	weight float64
	tagged Tagged
}

// Mixture is a weighted union of tagged distributions. Each draw first picks
// a component with probability proportional to its weight and then samples
// that component, so cube frequencies follow the weights only in expectation.
//
// A Mixture is immutable; Union returns a new value.
type Mixture struct {
	components []component
	src        rand.Source
}

// EmptyMixture returns the identity of Union: a mixture with no components
// that takes part in no draws. src drives the component selection of every
// mixture folded from it.
func EmptyMixture(src rand.Source) *Mixture {
	return &Mixture{src: src}
}

// Union returns m extended by t with the given weight.
func (m *Mixture) Union(weight float64, t Tagged) (*Mixture, error) {
	if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
		return nil, fmt.Errorf("%w: cube %q weight %v", ErrInvalidWeight, t.CubeID, weight)
	}
	components := make([]component, len(m.components), len(m.components)+1)
	copy(components, m.components)
	components = append(components, component{weight: weight, tagged: t})
	return &Mixture{components: components, src: m.src}, nil
}

// Len returns the number of components, zero-weight ones included.
func (m *Mixture) Len() int { return len(m.components) }

// CubeIDs returns the component cube identifiers in fold order.
func (m *Mixture) CubeIDs() []string {
	out := make([]string, len(m.components))
	for i, c := range m.components {
		out[i] = c.tagged.CubeID
	}
	return out
}

// Weights returns the component weights in fold order.
func (m *Mixture) Weights() []float64 {
	out := make([]float64, len(m.components))
	for i, c := range m.components {
		out[i] = c.weight
	}
	return out
}

// Component returns the tagged distribution folded in for cubeID.
func (m *Mixture) Component(cubeID string) (Tagged, bool) {
	for _, c := range m.components {
		if c.tagged.CubeID == cubeID {
			return c.tagged, true
		}
	}
	return Tagged{}, false
}

// Sample draws n tagged points. The result is in draw order.
func (m *Mixture) Sample(n int) ([]TaggedPoint, error) {
	if err := checkCount(n); err != nil {
		return nil, err
	}
	if n == 0 {
		return []TaggedPoint{}, nil
	}

	weights := m.Weights()
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: mixture has no weighted components", ErrSampling)
	}

	selector := distuv.NewCategorical(weights, m.src)
	picks := make([]int, n)
	counts := make([]int, len(m.components))
	for i := range picks {
		picks[i] = int(selector.Rand())
		counts[picks[i]]++
	}

	// Each component is sampled once for all its draws; the batches are then
	// consumed in draw order.
	batches := make([][]TaggedPoint, len(m.components))
	for i, c := range m.components {
		if counts[i] == 0 {
			continue
		}
		pts, err := c.tagged.Sample(counts[i])
		if err != nil {
			return nil, err
		}
		if len(pts) != counts[i] {
			return nil, fmt.Errorf("%w: cube %q returned %d of %d points", ErrSampling, c.tagged.CubeID, len(pts), counts[i])
		}
		batches[i] = pts
	}

	out := make([]TaggedPoint, n)
	next := make([]int, len(m.components))
	for i, k := range picks {
		out[i] = batches[k][next[k]]
		next[k]++
	}
	return out, nil
}
