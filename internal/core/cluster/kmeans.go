// Package cluster groups tracks of similar sound.
//
// KMeans and BestK partition composite vectors around centroids. DBSCAN
// works on a precomputed distance matrix and labels sparse tracks as noise.
// The two are independent; neither calls the other.
package cluster

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// DefaultMaxIter caps Lloyd iterations when KMeansOptions.MaxIter is 0.
const DefaultMaxIter = 1000

// KMeansOptions configures a single k-means run.
type KMeansOptions struct {
	K       int
	MaxIter int
	Seed    int64
}

// KMeansResult is a k-means partition.
type KMeansResult struct {
	K         int                      `json:"k"`
	Labels    []int                    `json:"labels"`
	Centroids []domain.CompositeVector `json:"centroids"`
	// Iterations is the number of assignment passes performed.
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
	// EmptyClusters counts centroid updates skipped because a cluster had no
	// points; such a cluster keeps its previous centroid.
	EmptyClusters int `json:"empty_clusters"`
}

// KMeans runs Lloyd's algorithm. Initial centroids are k distinct points
// drawn without replacement. Each pass assigns every point to the nearest
// centroid (ties go to the lowest index) and stops once an assignment repeats
// the previous one.
func KMeans(points []domain.CompositeVector, opts KMeansOptions) (KMeansResult, error) {
	n := len(points)
	k := opts.K
	if n == 0 {
		return KMeansResult{}, domain.Degenerate("cannot cluster an empty collection")
	}
	if k < 1 || k >= n {
		return KMeansResult{}, domain.Degenerate("k=%d must be in [1, %d)", k, n)
	}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}

	rng := rngFromSeed(opts.Seed)
	centroids := make([]domain.CompositeVector, k)
	for c, idx := range rng.Perm(n)[:k] {
		centroids[c] = points[idx]
	}

	labels := make([]int, n)
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	sums := make([]domain.CompositeVector, k)
	counts := make([]int, k)

	res := KMeansResult{K: k}
	for iter := 0; iter < maxIter; iter++ {
		res.Iterations++
		for i := range points {
			labels[i] = nearest(points[i], centroids)
		}
		if slices.Equal(labels, prev) {
			res.Converged = true
			break
		}
		copy(prev, labels)

		for c := range sums {
			sums[c] = domain.CompositeVector{}
			counts[c] = 0
		}
		for i, c := range labels {
			floats.Add(sums[c][:], points[i][:])
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				res.EmptyClusters++
				continue
			}
			floats.ScaleTo(centroids[c][:], 1/float64(counts[c]), sums[c][:])
		}
	}

	res.Labels = labels
	res.Centroids = centroids
	return res, nil
}

// nearest returns the index of the closest centroid; the first minimum wins.
func nearest(p domain.CompositeVector, centroids []domain.CompositeVector) int {
	best := 0
	bestDist := floats.Distance(p[:], centroids[0][:], 2)
	for c := 1; c < len(centroids); c++ {
		if d := floats.Distance(p[:], centroids[c][:], 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// Distances returns each point's distance to its own centroid.
func (r KMeansResult) Distances(points []domain.CompositeVector) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = floats.Distance(p[:], r.Centroids[r.Labels[i]][:], 2)
	}
	return out
}

// Groups lists point indices per cluster, ordered by cluster id.
func (r KMeansResult) Groups() [][]int {
	out := make([][]int, r.K)
	for i, c := range r.Labels {
		out[c] = append(out[c], i)
	}
	return out
}
