package sequence

import (
	"slices"

	"github.com/ewilliams-labs/cadence/internal/core/graph"
)

// tour is a closed tour over the augmented matrix with the dummy node pinned
// at position 0. fwd and bwd are prefix sums of arc costs walked forwards and
// backwards, used to price segment reversals in constant time.
type tour struct {
	m     *graph.DistanceMatrix
	nodes []int
	cost  float64
	fwd   []float64
	bwd   []float64
}

func newTour(m *graph.DistanceMatrix, nodes []int) *tour {
	t := &tour{
		m:     m,
		nodes: nodes,
		fwd:   make([]float64, len(nodes)),
		bwd:   make([]float64, len(nodes)),
	}
	t.refresh()
	return t
}

func (t *tour) clone() *tour {
	return &tour{
		m:     t.m,
		nodes: slices.Clone(t.nodes),
		cost:  t.cost,
		fwd:   slices.Clone(t.fwd),
		bwd:   slices.Clone(t.bwd),
	}
}

// refresh recomputes the cost and the prefix sums after the node order changed.
func (t *tour) refresh() {
	size := len(t.nodes)
	t.fwd[0], t.bwd[0] = 0, 0
	for k := 0; k+1 < size; k++ {
		a, b := t.nodes[k], t.nodes[k+1]
		t.fwd[k+1] = t.fwd[k] + t.m.At(a, b)
		t.bwd[k+1] = t.bwd[k] + t.m.At(b, a)
	}
	t.cost = t.fwd[size-1] + t.m.At(t.nodes[size-1], t.nodes[0])
}

func (t *tour) at(pos int) int {
	return t.nodes[pos%len(t.nodes)]
}

// reverseDelta prices reversing positions i..j (1 <= i < j < len).
func (t *tour) reverseDelta(i, j int) float64 {
	a, b := t.nodes[i-1], t.at(j+1)
	first, last := t.nodes[i], t.nodes[j]
	before := t.m.At(a, first) + t.m.At(last, b) + t.fwd[j] - t.fwd[i]
	after := t.m.At(a, last) + t.m.At(first, b) + t.bwd[j] - t.bwd[i]
	return after - before
}

func (t *tour) reverse(i, j int) {
	slices.Reverse(t.nodes[i : j+1])
	t.refresh()
}

// relocateGain is the cost saved by cutting positions i..i+l-1 out and
// joining their neighbors.
func (t *tour) relocateGain(i, l int) float64 {
	prev, next := t.nodes[i-1], t.at(i+l)
	first, last := t.nodes[i], t.nodes[i+l-1]
	return t.m.At(prev, first) + t.m.At(last, next) - t.m.At(prev, next)
}

// insertCost is the cost added by placing the segment i..i+l-1, in its
// current orientation, between positions p and p+1.
func (t *tour) insertCost(i, l, p int) float64 {
	u, v := t.nodes[p], t.at(p+1)
	first, last := t.nodes[i], t.nodes[i+l-1]
	return t.m.At(u, first) + t.m.At(last, v) - t.m.At(u, v)
}

// relocate moves the segment i..i+l-1 to sit after the node now at p.
func (t *tour) relocate(i, l, p int) {
	seg := slices.Clone(t.nodes[i : i+l])
	t.nodes = slices.Delete(t.nodes, i, i+l)
	q := p
	if p > i {
		q = p - l
	}
	t.nodes = slices.Insert(t.nodes, q+1, seg...)
	t.refresh()
}

// path drops the dummy and returns the real nodes in tour order.
func (t *tour) path() []int {
	return slices.Clone(t.nodes[1:])
}
