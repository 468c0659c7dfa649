package cluster

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// DefaultMaxK is the largest k BestK tries when BestKOptions.MaxK is 0.
const DefaultMaxK = 10

// SeparationScore rates a partition by comparing how far centroids sit from
// each other with how far points sit from their own centroid:
//
//	a = mean over clusters of the mean point-to-centroid distance
//	b = mean over centroids of the mean distance to the other centroids
//	score = (b - a) / max(a, b)
//
// This is a centroid-only approximation, not the per-point silhouette
// coefficient. Clusters without points are left out of a. The score is 0
// when both a and b are 0.
func SeparationScore(points []domain.CompositeVector, labels []int, centroids []domain.CompositeVector) float64 {
	k := len(centroids)
	if k == 0 {
		return 0
	}

	sums := make([]float64, k)
	counts := make([]int, k)
	for i, c := range labels {
		sums[c] += floats.Distance(points[i][:], centroids[c][:], 2)
		counts[c]++
	}
	var intra float64
	var nonEmpty int
	for c := range sums {
		if counts[c] == 0 {
			continue
		}
		intra += sums[c] / float64(counts[c])
		nonEmpty++
	}
	if nonEmpty > 0 {
		intra /= float64(nonEmpty)
	}

	var inter float64
	if k > 1 {
		for i := range centroids {
			var s float64
			for j := range centroids {
				if i != j {
					s += floats.Distance(centroids[i][:], centroids[j][:], 2)
				}
			}
			inter += s / float64(k-1)
		}
		inter /= float64(k)
	}

	denom := math.Max(intra, inter)
	if denom == 0 {
		return 0
	}
	return (inter - intra) / denom
}

// BestKOptions configures the search over k.
type BestKOptions struct {
	MaxK   int
	KMeans KMeansOptions // K is ignored
}

// Trial is the score of one k.
type Trial struct {
	K     int     `json:"k"`
	Score float64 `json:"score"`
}

// BestKResult is the winning partition and the score of every k tried.
type BestKResult struct {
	KMeansResult
	Score  float64 `json:"score"`
	Trials []Trial `json:"trials"`
}

// BestK runs KMeans for k = 2..min(MaxK, n-1) and keeps the partition with
// the highest SeparationScore. Ties keep the smaller k.
func BestK(points []domain.CompositeVector, opts BestKOptions) (BestKResult, error) {
	n := len(points)
	if n < 3 {
		return BestKResult{}, domain.Degenerate("best-k search needs at least 3 points, got %d", n)
	}
	maxK := opts.MaxK
	if maxK <= 0 {
		maxK = DefaultMaxK
	}
	if maxK > n-1 {
		maxK = n - 1
	}
	if maxK < 2 {
		return BestKResult{}, domain.Degenerate("max k=%d leaves nothing to search", opts.MaxK)
	}

	best := BestKResult{Score: math.Inf(-1)}
	for k := 2; k <= maxK; k++ {
		km := opts.KMeans
		km.K = k
		res, err := KMeans(points, km)
		if err != nil {
			return BestKResult{}, err
		}
		score := SeparationScore(points, res.Labels, res.Centroids)
		best.Trials = append(best.Trials, Trial{K: k, Score: score})
		if score > best.Score {
			best.KMeansResult = res
			best.Score = score
		}
	}
	return best, nil
}
