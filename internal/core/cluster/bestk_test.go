package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

func TestSeparationScore(t *testing.T) {
	pts := []domain.CompositeVector{{0}, {2}, {10}}
	labels := []int{0, 0, 1}
	centroids := []domain.CompositeVector{{1}, {10}}

	// a = mean(1, 0) = 0.5 is averaged per cluster, not per point.
	// b = mean(9, 9) = 9.
	got := SeparationScore(pts, labels, centroids)
	assert.InDelta(t, (9-0.5)/9, got, 1e-12)
}

func TestSeparationScore_EmptyClusterSkipped(t *testing.T) {
	pts := []domain.CompositeVector{{0}, {2}, {10}}
	labels := []int{0, 0, 1}
	centroids := []domain.CompositeVector{{1}, {10}, {4}}

	// a = mean(1, 0), cluster 2 has no points.
	// b = mean((9+3)/2, (9+6)/2, (3+6)/2) = mean(6, 7.5, 4.5) = 6.
	got := SeparationScore(pts, labels, centroids)
	assert.InDelta(t, (6-0.5)/6, got, 1e-12)
}

func TestSeparationScore_AllZero(t *testing.T) {
	pts := []domain.CompositeVector{{1}, {1}}
	assert.Equal(t, 0.0, SeparationScore(pts, []int{0, 1}, []domain.CompositeVector{{1}, {1}}))
	assert.Equal(t, 0.0, SeparationScore(nil, nil, nil))
}

func TestBestK_TwoTightGroups(t *testing.T) {
	pts := twoGroups(5)

	res, err := BestK(pts, BestKOptions{MaxK: 5})
	require.NoError(t, err)
	assert.Equal(t, 2, res.K)
	assert.InDelta(t, 1, res.Score, 1e-12)
	require.Len(t, res.Trials, 4)
	for i, tr := range res.Trials {
		assert.Equal(t, i+2, tr.K)
	}

	for i := 1; i < 5; i++ {
		assert.Equal(t, res.Labels[0], res.Labels[i])
		assert.Equal(t, res.Labels[5], res.Labels[5+i])
	}
	assert.NotEqual(t, res.Labels[0], res.Labels[5])
}

func TestBestK_ClampsMaxK(t *testing.T) {
	pts := []domain.CompositeVector{fill(0), fill(1), fill(5), fill(6)}
	res, err := BestK(pts, BestKOptions{})
	require.NoError(t, err)
	require.Len(t, res.Trials, 2)
	assert.Equal(t, 3, res.Trials[1].K)
}

func TestBestK_Errors(t *testing.T) {
	_, err := BestK([]domain.CompositeVector{fill(0), fill(1)}, BestKOptions{})
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)

	_, err = BestK(twoGroups(3), BestKOptions{MaxK: 1})
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)
}
