package services

import (
	"context"
	"fmt"
	"log"

	"github.com/ewilliams-labs/cadence/internal/core/cluster"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/features"
	"github.com/ewilliams-labs/cadence/internal/core/graph"
	"github.com/ewilliams-labs/cadence/internal/core/sequence"
	"github.com/ewilliams-labs/cadence/internal/core/standardize"
)

// Defaults fill the zero-valued parameters of incoming tasks.
type Defaults struct {
	Weights domain.Weights
	MaxK    int
	MaxIter int
	Seed    int64
	Path    sequence.Options
}

// Sequencer runs the pipeline behind every task kind: validate, standardize,
// vectorize or build the graph, then cluster or order.
type Sequencer struct {
	defaults Defaults
}

// NewSequencer constructs a Sequencer.
func NewSequencer(defaults Defaults) *Sequencer {
	return &Sequencer{defaults: defaults}
}

// Run executes spec synchronously. Only PathTask observes ctx; the other
// kinds finish in bounded time.
func (s *Sequencer) Run(ctx context.Context, spec TaskSpec) (TaskResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("service: invalid %s task: %w", spec.Kind(), err)
	}

	var (
		res TaskResult
		err error
	)
	switch t := spec.(type) {
	case StandardizeTask:
		res, err = s.standardize(t)
	case BuildGraphTask:
		res, err = s.buildGraph(t)
	case CentroidClusterTask:
		res, err = s.clusterCentroid(t)
	case DensityClusterTask:
		res, err = s.clusterDensity(t)
	case PathTask:
		res, err = s.approximatePath(ctx, t)
	default:
		return nil, fmt.Errorf("service: unsupported task %T", spec)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Sequencer) standardize(t StandardizeTask) (StandardizeResult, error) {
	res, err := s.prepare(t.Tracks)
	if err != nil {
		return StandardizeResult{}, err
	}
	return StandardizeResult{
		Tracks:               res.Tracks,
		ZeroVarianceFeatures: res.ZeroVarianceFeatures,
		ZeroVarianceEdges:    res.ZeroVarianceEdges,
	}, nil
}

func (s *Sequencer) buildGraph(t BuildGraphTask) (GraphResult, error) {
	m, err := s.graph(t.Tracks, t.Weights)
	if err != nil {
		return GraphResult{}, err
	}
	return GraphResult{TrackIDs: trackIDs(t.Tracks), Matrix: m}, nil
}

func (s *Sequencer) clusterCentroid(t CentroidClusterTask) (CentroidClusterResult, error) {
	std, err := s.prepare(t.Tracks)
	if err != nil {
		return CentroidClusterResult{}, err
	}
	points, err := features.VectorizeAll(std.Tracks, t.Outgoing)
	if err != nil {
		return CentroidClusterResult{}, fmt.Errorf("service: vectorize: %w", err)
	}

	km := cluster.KMeansOptions{
		K:       t.K,
		MaxIter: firstNonZero(t.MaxIter, s.defaults.MaxIter),
		Seed:    firstNonZero(t.Seed, s.defaults.Seed),
	}

	out := CentroidClusterResult{TrackIDs: trackIDs(t.Tracks)}
	var part cluster.KMeansResult
	if t.Search {
		best, err := cluster.BestK(points, cluster.BestKOptions{
			MaxK:   firstNonZero(t.MaxK, s.defaults.MaxK),
			KMeans: km,
		})
		if err != nil {
			return CentroidClusterResult{}, fmt.Errorf("service: best k: %w", err)
		}
		part = best.KMeansResult
		score := best.Score
		out.Score = &score
		out.Trials = best.Trials
	} else {
		if km.K == 0 {
			km.K = DefaultK(len(points))
		}
		part, err = cluster.KMeans(points, km)
		if err != nil {
			return CentroidClusterResult{}, fmt.Errorf("service: k-means: %w", err)
		}
	}

	out.K = part.K
	out.Labels = part.Labels
	out.Groups = part.Groups()
	out.Distances = part.Distances(points)
	out.Centroids = part.Centroids
	out.Iterations = part.Iterations
	out.Converged = part.Converged
	out.EmptyClusters = part.EmptyClusters
	return out, nil
}

func (s *Sequencer) clusterDensity(t DensityClusterTask) (DensityClusterResult, error) {
	m, err := s.graph(t.Tracks, t.Weights)
	if err != nil {
		return DensityClusterResult{}, err
	}
	res, err := cluster.DBSCAN(m, cluster.DBSCANOptions{
		Eps:     t.Eps,
		MinPts:  t.MinPts,
		Shuffle: t.Shuffle,
		Seed:    firstNonZero(t.Seed, s.defaults.Seed),
		Policy:  t.Policy,
	})
	if err != nil {
		return DensityClusterResult{}, fmt.Errorf("service: dbscan: %w", err)
	}
	return DensityClusterResult{TrackIDs: trackIDs(t.Tracks), DBSCANResult: res}, nil
}

func (s *Sequencer) approximatePath(ctx context.Context, t PathTask) (PathResult, error) {
	opts := t.Options
	opts.MaxIterations = firstNonZero(opts.MaxIterations, s.defaults.Path.MaxIterations)
	opts.MaxStall = firstNonZero(opts.MaxStall, s.defaults.Path.MaxStall)
	opts.Strength = firstNonZero(opts.Strength, s.defaults.Path.Strength)
	opts.TimeLimit = firstNonZero(opts.TimeLimit, s.defaults.Path.TimeLimit)
	opts.Seed = firstNonZero(opts.Seed, firstNonZero(s.defaults.Path.Seed, s.defaults.Seed))

	var m *graph.DistanceMatrix
	if len(t.Tracks) > 0 {
		var err error
		if m, err = s.graph(t.Tracks, t.Weights); err != nil {
			return PathResult{}, err
		}
	}
	res, err := sequence.Approximate(ctx, m, opts)
	if err != nil {
		return PathResult{}, fmt.Errorf("service: approximate path: %w", err)
	}
	if !res.Exhaustive {
		log.Printf("WARN service: path search stopped early (%s) after %d rounds", res.Stop, res.Rounds)
	}

	ids := make([]string, len(res.Order))
	for i, idx := range res.Order {
		ids[i] = t.Tracks[idx].ID
	}
	return PathResult{TrackIDs: ids, Result: res}, nil
}

// prepare standardizes a validated collection.
func (s *Sequencer) prepare(tracks []domain.Track) (standardize.Result, error) {
	res, err := standardize.Tracks(tracks)
	if err != nil {
		return standardize.Result{}, fmt.Errorf("service: standardize: %w", err)
	}
	if len(res.ZeroVarianceFeatures) > 0 || len(res.ZeroVarianceEdges) > 0 {
		log.Printf("INFO service: zero-variance columns features=%v edges=%v", res.ZeroVarianceFeatures, res.ZeroVarianceEdges)
	}
	return res, nil
}

func (s *Sequencer) graph(tracks []domain.Track, w domain.Weights) (*graph.DistanceMatrix, error) {
	std, err := s.prepare(tracks)
	if err != nil {
		return nil, err
	}
	if w.IsZero() {
		w = s.defaults.Weights
	}
	m, err := graph.Build(std.Tracks, w)
	if err != nil {
		return nil, fmt.Errorf("service: build graph: %w", err)
	}
	return m, nil
}

// DefaultK is the cluster count used when a task names neither k nor a
// search: a quarter of the tracks, at least 2 and below n.
func DefaultK(n int) int {
	k := n / 4
	if k < 2 {
		k = 2
	}
	if k > n-1 {
		k = n - 1
	}
	return k
}

func trackIDs(tracks []domain.Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

func firstNonZero[T comparable](v, fallback T) T {
	var zero T
	if v != zero {
		return v
	}
	return fallback
}
