// Package standardize rescales a collection's vectors to zero mean and unit
// variance per column.
//
// Feature columns are measured over every track's feature vector. Edge
// columns are measured over one pooled sample holding both the start and the
// end edge of every track, since both describe the same kind of boundary.
// Statistics are population statistics and live only for the duration of a
// call.
package standardize

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/features"
)

// MinStdDev is the smallest standard deviation treated as real variance.
// Columns below it are written as 0.
const MinStdDev = 1e-12

// Result holds freshly allocated standardized tracks plus the columns that
// had no variance.
type Result struct {
	Tracks               []domain.Track `json:"tracks"`
	ZeroVarianceFeatures []int          `json:"zero_variance_features,omitempty"`
	ZeroVarianceEdges    []int          `json:"zero_variance_edges,omitempty"`
}

// Tracks standardizes the given tracks. The input slice and its vectors are
// left untouched.
func Tracks(tracks []domain.Track) (Result, error) {
	if len(tracks) == 0 {
		return Result{}, domain.Degenerate("cannot standardize an empty collection")
	}
	if err := features.Validate(tracks); err != nil {
		return Result{}, err
	}

	n := len(tracks)
	out := make([]domain.Track, n)
	feats := make([]domain.FeatureVector, n)
	starts := make([]domain.EdgeVector, n)
	ends := make([]domain.EdgeVector, n)

	var res Result
	col := make([]float64, 2*n)

	for d := 0; d < domain.FeatureDims; d++ {
		for i, t := range tracks {
			col[i] = t.Features[d]
		}
		mean, std, ok := moments(col[:n])
		if !ok {
			res.ZeroVarianceFeatures = append(res.ZeroVarianceFeatures, d)
		}
		for i := range tracks {
			feats[i][d] = zscore(col[i], mean, std, ok)
		}
	}

	for d := 0; d < domain.EdgeDims; d++ {
		for i, t := range tracks {
			col[i] = t.Start[d]
			col[n+i] = t.End[d]
		}
		mean, std, ok := moments(col)
		if !ok {
			res.ZeroVarianceEdges = append(res.ZeroVarianceEdges, d)
		}
		for i := range tracks {
			starts[i][d] = zscore(col[i], mean, std, ok)
			ends[i][d] = zscore(col[n+i], mean, std, ok)
		}
	}

	for i, t := range tracks {
		out[i] = domain.Track{
			ID:       t.ID,
			Name:     t.Name,
			Features: &feats[i],
			Start:    &starts[i],
			End:      &ends[i],
		}
	}
	res.Tracks = out
	return res, nil
}

// moments returns the population mean and standard deviation of x and
// whether the deviation is usable as a divisor.
func moments(x []float64) (mean, std float64, ok bool) {
	mean, std = stat.PopMeanStdDev(x, nil)
	if math.IsNaN(std) || math.IsInf(std, 0) || std < MinStdDev {
		return mean, 0, false
	}
	return mean, std, true
}

func zscore(x, mean, std float64, ok bool) float64 {
	if !ok {
		return 0
	}
	return (x - mean) / std
}
