package cluster

import (
	"math"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/graph"
)

// Label values used by DBSCAN. Cluster ids start at 1.
const (
	Unclassified = 0
	Noise        = -1
)

// NoisePolicy decides whether a point already labeled noise can later be
// absorbed into a cluster as a border point.
type NoisePolicy string

const (
	// ReclaimNoise lets a cluster expansion relabel noise points it reaches.
	ReclaimNoise NoisePolicy = "reclaim"
	// TerminalNoise keeps the noise label once assigned.
	TerminalNoise NoisePolicy = "terminal"
)

// DBSCANOptions configures density clustering.
type DBSCANOptions struct {
	// Eps is the neighborhood radius; neighbors are strictly closer than Eps.
	Eps float64
	// MinPts is the neighborhood size that makes a point a core point.
	MinPts int
	// Shuffle visits points in a seeded random order instead of index order.
	Shuffle bool
	Seed    int64
	Policy  NoisePolicy
}

// DBSCANResult holds one label per point: Noise or a cluster id >= 1 in
// discovery order.
type DBSCANResult struct {
	Labels   []int  `json:"labels"`
	Clusters int    `json:"clusters"`
	Noise    int    `json:"noise"`
	Core     []bool `json:"core"`
}

// DBSCAN clusters the rows of a distance matrix. The neighborhood of p is
// every j with m(p, j) < Eps, read from row p, so on an asymmetric matrix
// neighborhoods are directional. A point whose own entry is not below Eps is
// not its own neighbor.
func DBSCAN(m *graph.DistanceMatrix, opts DBSCANOptions) (DBSCANResult, error) {
	if m == nil || m.Size() == 0 {
		return DBSCANResult{}, domain.Degenerate("cannot cluster an empty collection")
	}
	if math.IsNaN(opts.Eps) || math.IsInf(opts.Eps, 0) || opts.Eps <= 0 {
		return DBSCANResult{}, domain.Degenerate("eps=%v must be a positive finite radius", opts.Eps)
	}
	if opts.MinPts < 1 {
		return DBSCANResult{}, domain.Degenerate("min_pts=%d must be at least 1", opts.MinPts)
	}
	policy := opts.Policy
	if policy == "" {
		policy = ReclaimNoise
	}

	n := m.Size()
	s := &scan{
		m:       m,
		eps:     opts.Eps,
		minPts:  opts.MinPts,
		labels:  make([]int, n),
		visited: make([]bool, n),
		core:    make([]bool, n),
		reclaim: policy == ReclaimNoise,
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if opts.Shuffle {
		rng := rngFromSeed(opts.Seed)
		rng.Shuffle(n, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	cluster := 0
	for _, p := range order {
		if s.visited[p] {
			continue
		}
		s.visited[p] = true
		neighbors := s.neighbors(p)
		if len(neighbors) < s.minPts {
			s.labels[p] = Noise
			continue
		}
		s.core[p] = true
		cluster++
		s.expand(p, neighbors, cluster)
	}

	res := DBSCANResult{Labels: s.labels, Clusters: cluster, Core: s.core}
	for _, l := range s.labels {
		if l == Noise {
			res.Noise++
		}
	}
	return res, nil
}

type scan struct {
	m       *graph.DistanceMatrix
	eps     float64
	minPts  int
	labels  []int
	visited []bool
	core    []bool
	reclaim bool
}

func (s *scan) neighbors(p int) []int {
	var out []int
	for j, d := range s.m.Row(p) {
		if d < s.eps {
			out = append(out, j)
		}
	}
	return out
}

// expand grows cluster from the core point p. The frontier is a FIFO queue;
// an unvisited member is visited once and, if it is itself a core point,
// contributes its own neighborhood.
func (s *scan) expand(p int, frontier []int, cluster int) {
	s.labels[p] = cluster
	for len(frontier) > 0 {
		q := frontier[0]
		frontier = frontier[1:]

		if !s.visited[q] {
			s.visited[q] = true
			next := s.neighbors(q)
			if len(next) >= s.minPts {
				s.core[q] = true
				frontier = append(frontier, next...)
			}
		}
		switch s.labels[q] {
		case Unclassified:
			s.labels[q] = cluster
		case Noise:
			if s.reclaim {
				s.labels[q] = cluster
			}
		}
	}
}
