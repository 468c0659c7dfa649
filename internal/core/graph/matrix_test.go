package graph

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

func mkTrack(id string, f domain.FeatureVector, start, end domain.EdgeVector) domain.Track {
	return domain.Track{ID: id, Features: &f, Start: &start, End: &end}
}

func TestBuild_DirectedDistances(t *testing.T) {
	f := domain.FeatureVector{0.5, 0.5, 0.5, 0.5, 0.5}
	tracks := []domain.Track{
		mkTrack("a", f, domain.EdgeVector{0, 0}, domain.EdgeVector{3, 4}),
		mkTrack("b", f, domain.EdgeVector{3, 4}, domain.EdgeVector{0, 0}),
	}

	m, err := Build(tracks, domain.Weights{})
	require.NoError(t, err)
	require.Equal(t, 2, m.Size())

	// a ends where b starts; b ends where a starts.
	assert.InDelta(t, 0, m.At(0, 1), 1e-12)
	assert.InDelta(t, 0, m.At(1, 0), 1e-12)
	// A track's own end does not match its own start.
	assert.InDelta(t, 5, m.At(0, 0), 1e-12)
	assert.InDelta(t, 5, m.At(1, 1), 1e-12)
}

func TestBuild_Asymmetric(t *testing.T) {
	tracks := []domain.Track{
		mkTrack("a", domain.FeatureVector{}, domain.EdgeVector{0, 0}, domain.EdgeVector{1, 0}),
		mkTrack("b", domain.FeatureVector{}, domain.EdgeVector{1, 0}, domain.EdgeVector{7, 0}),
	}
	m, err := Build(tracks, domain.UniformWeights())
	require.NoError(t, err)
	assert.InDelta(t, 0, m.At(0, 1), 1e-12)
	assert.InDelta(t, 7, m.At(1, 0), 1e-12)
}

func TestBuild_Weights(t *testing.T) {
	tracks := []domain.Track{
		mkTrack("a", domain.FeatureVector{1, 0, 0, 0, 0}, domain.EdgeVector{0, 0}, domain.EdgeVector{2, 0}),
		mkTrack("b", domain.FeatureVector{0, 0, 0, 0, 0}, domain.EdgeVector{0, 0}, domain.EdgeVector{0, 0}),
	}
	w := domain.UniformWeights()
	w[0] = 3 // acousticness
	w[5] = 0 // loudness ignored

	m, err := Build(tracks, w)
	require.NoError(t, err)
	// a -> b: feature diff 1 weighted by 3, loudness diff 2 weighted by 0.
	assert.InDelta(t, 3, m.At(0, 1), 1e-12)

	uniform, err := Build(tracks, domain.UniformWeights())
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt(5), uniform.At(0, 1), 1e-12)
}

func TestBuild_ShapeAndFiniteness(t *testing.T) {
	var tracks []domain.Track
	for i := 0; i < 9; i++ {
		x := float64(i)
		tracks = append(tracks, mkTrack(string(rune('a'+i)),
			domain.FeatureVector{x / 10, 1 - x/10, x * x / 100, 0.5, x / 9},
			domain.EdgeVector{-x, 90 + x}, domain.EdgeVector{-2 * x, 100 - x}))
	}

	m, err := Build(tracks, domain.Weights{})
	require.NoError(t, err)
	require.Equal(t, len(tracks), m.Size())
	rows := m.Rows()
	require.Len(t, rows, len(tracks))
	for i, row := range rows {
		require.Len(t, row, len(tracks))
		for j, v := range row {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "entry (%d,%d) not finite", i, j)
			assert.GreaterOrEqual(t, v, 0.0)
		}
	}
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(nil, domain.Weights{})
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)

	ok := mkTrack("ok", domain.FeatureVector{}, domain.EdgeVector{}, domain.EdgeVector{})
	broken := mkTrack("lonely", domain.FeatureVector{}, domain.EdgeVector{}, domain.EdgeVector{})
	broken.Start, broken.End = nil, nil

	_, err = Build([]domain.Track{ok, broken}, domain.Weights{})
	var missing *domain.MissingFeatureDataError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "lonely", missing.TrackID)

	w := domain.UniformWeights()
	w[2] = math.NaN()
	_, err = Build([]domain.Track{ok}, w)
	assert.ErrorIs(t, err, domain.ErrInvalidWeights)
}

func TestAugment(t *testing.T) {
	m, err := FromRows([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)

	aug := m.Augment()
	want := [][]float64{{1, 2, 0}, {3, 4, 0}, {0, 0, 0}}
	if diff := cmp.Diff(want, aug.Rows()); diff != "" {
		t.Fatalf("augmented matrix mismatch (-want +got):\n%s", diff)
	}
	// The original is untouched.
	assert.Equal(t, 2, m.Size())
	assert.Equal(t, 4.0, m.At(1, 1))
}

func TestPathCostAndTransitions(t *testing.T) {
	m, err := FromRows([][]float64{
		{0, 1, 9},
		{9, 0, 2},
		{4, 9, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, m.PathCost([]int{0, 1, 2}))
	assert.Equal(t, []float64{0, 4, 1}, m.Transitions([]int{2, 0, 1}))
	assert.Equal(t, 0.0, m.PathCost([]int{1}))
}

func TestJSONRoundTrip(t *testing.T) {
	m, err := FromRows([][]float64{{0, 1.5}, {2.5, 0}})
	require.NoError(t, err)

	b, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,1.5],[2.5,0]]`, string(b))

	var back DistanceMatrix
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, m.Rows(), back.Rows())

	_, err = FromRows([][]float64{{1, 2}, {3}})
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)
}
