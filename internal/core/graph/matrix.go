// Package graph builds the directed transition-distance matrix between every
// ordered pair of tracks.
package graph

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/features"
)

// DistanceMatrix is an n×n matrix whose (i, j) entry is the cost of playing
// track j right after track i. It is not symmetric and its diagonal need not
// be zero. Storage is a single contiguous row-major buffer.
type DistanceMatrix struct {
	dense *mat.Dense
	n     int
}

// NewDistanceMatrix wraps row-major data of length n*n. It returns
// ErrDegenerateInput when the shape is wrong or n is zero.
func NewDistanceMatrix(n int, data []float64) (*DistanceMatrix, error) {
	if n <= 0 || len(data) != n*n {
		return nil, domain.Degenerate("distance matrix needs %d entries, got %d", n*n, len(data))
	}
	return &DistanceMatrix{dense: mat.NewDense(n, n, data), n: n}, nil
}

// FromRows builds a matrix from a square slice of rows.
func FromRows(rows [][]float64) (*DistanceMatrix, error) {
	n := len(rows)
	data := make([]float64, 0, n*n)
	for _, r := range rows {
		if len(r) != n {
			return nil, domain.Degenerate("distance matrix rows must have length %d", n)
		}
		data = append(data, r...)
	}
	return NewDistanceMatrix(n, data)
}

// Size returns n.
func (m *DistanceMatrix) Size() int { return m.n }

// At returns the cost of the transition i -> j.
func (m *DistanceMatrix) At(i, j int) float64 { return m.dense.At(i, j) }

// Row returns the outgoing costs of i. The slice aliases the matrix storage
// and must not be modified.
func (m *DistanceMatrix) Row(i int) []float64 { return m.dense.RawRowView(i) }

// Rows copies the matrix into a slice of rows.
func (m *DistanceMatrix) Rows() [][]float64 {
	out := make([][]float64, m.n)
	for i := range out {
		out[i] = mat.Row(nil, i, m.dense)
	}
	return out
}

// Augment returns an (n+1)×(n+1) copy whose last row and column connect a
// dummy node to every node at zero cost.
func (m *DistanceMatrix) Augment() *DistanceMatrix {
	n := m.n + 1
	aug := mat.NewDense(n, n, nil)
	aug.Slice(0, m.n, 0, m.n).(*mat.Dense).Copy(m.dense)
	return &DistanceMatrix{dense: aug, n: n}
}

// PathCost sums the transition costs along order.
func (m *DistanceMatrix) PathCost(order []int) float64 {
	var total float64
	for k := 1; k < len(order); k++ {
		total += m.At(order[k-1], order[k])
	}
	return total
}

// Transitions returns the cost of arriving at each position of order from its
// predecessor; the first position costs 0.
func (m *DistanceMatrix) Transitions(order []int) []float64 {
	out := make([]float64, len(order))
	for k := 1; k < len(order); k++ {
		out[k] = m.At(order[k-1], order[k])
	}
	return out
}

// MarshalJSON encodes the matrix as an array of rows.
func (m *DistanceMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Rows())
}

// UnmarshalJSON decodes an array of rows.
func (m *DistanceMatrix) UnmarshalJSON(b []byte) error {
	var rows [][]float64
	if err := json.Unmarshal(b, &rows); err != nil {
		return err
	}
	dm, err := FromRows(rows)
	if err != nil {
		return err
	}
	*m = *dm
	return nil
}

// Build computes the distance matrix of tracks under weights. A zero Weights
// value means uniform weights. Every track is vectorized before any distance
// is computed, so an incomplete track aborts the build up front.
func Build(tracks []domain.Track, weights domain.Weights) (*DistanceMatrix, error) {
	if len(tracks) == 0 {
		return nil, domain.Degenerate("cannot build a graph over an empty collection")
	}
	outgoing, err := features.VectorizeAll(tracks, true)
	if err != nil {
		return nil, err
	}
	incoming, err := features.VectorizeAll(tracks, false)
	if err != nil {
		return nil, err
	}
	return FromVectors(outgoing, incoming, weights)
}

// FromVectors computes ‖(out[i] − in[j]) ⊙ w‖₂ for every ordered pair.
func FromVectors(outgoing, incoming []domain.CompositeVector, weights domain.Weights) (*DistanceMatrix, error) {
	n := len(outgoing)
	if n == 0 || len(incoming) != n {
		return nil, domain.Degenerate("need matching non-empty outgoing and incoming vectors, got %d and %d", n, len(incoming))
	}
	if weights.IsZero() {
		weights = domain.UniformWeights()
	}
	if err := ValidateWeights(weights); err != nil {
		return nil, err
	}

	data := make([]float64, n*n)
	w := weights[:]
	scratch := make([]float64, domain.CompositeDims)
	for i := 0; i < n; i++ {
		row := data[i*n : (i+1)*n]
		for j := 0; j < n; j++ {
			floats.SubTo(scratch, outgoing[i][:], incoming[j][:])
			floats.Mul(scratch, w)
			row[j] = floats.Norm(scratch, 2)
		}
	}
	return NewDistanceMatrix(n, data)
}

// ValidateWeights rejects NaN and infinite weights.
func ValidateWeights(w domain.Weights) error {
	for _, x := range w {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return domain.ErrInvalidWeights
		}
	}
	return nil
}
