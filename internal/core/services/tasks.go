package services

import (
	"math"

	"github.com/ewilliams-labs/cadence/internal/core/cluster"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/features"
	"github.com/ewilliams-labs/cadence/internal/core/graph"
	"github.com/ewilliams-labs/cadence/internal/core/sequence"
)

// TaskSpec describes one unit of work. Each kind has its own concrete type;
// Sequencer.Run switches on them.
type TaskSpec interface {
	Kind() domain.TaskKind
	// Validate checks the inputs before the task is queued.
	Validate() error
	// Clone deep-copies the spec so the caller may keep mutating its tracks.
	Clone() TaskSpec
}

// StandardizeTask rescales the tracks' vectors.
type StandardizeTask struct {
	Tracks []domain.Track `json:"tracks"`
}

// BuildGraphTask computes the directed distance matrix of the standardized
// tracks.
type BuildGraphTask struct {
	Tracks  []domain.Track `json:"tracks"`
	Weights domain.Weights `json:"weights"`
}

// CentroidClusterTask partitions the tracks with k-means. When Search is set
// the best k in [2, MaxK] is chosen; otherwise K is used, and a zero K falls
// back to a quarter of the track count.
type CentroidClusterTask struct {
	Tracks  []domain.Track `json:"tracks"`
	K       int            `json:"k"`
	Search  bool           `json:"search"`
	MaxK    int            `json:"max_k"`
	MaxIter int            `json:"max_iter"`
	Seed    int64          `json:"seed"`
	// Outgoing clusters on end edges instead of start edges.
	Outgoing bool `json:"outgoing"`
}

// DensityClusterTask runs DBSCAN over the distance matrix.
type DensityClusterTask struct {
	Tracks  []domain.Track      `json:"tracks"`
	Weights domain.Weights      `json:"weights"`
	Eps     float64             `json:"eps"`
	MinPts  int                 `json:"min_pts"`
	Policy  cluster.NoisePolicy `json:"policy"`
	Shuffle bool                `json:"shuffle"`
	Seed    int64               `json:"seed"`
}

// PathTask orders the tracks to minimise total transition cost.
type PathTask struct {
	Tracks  []domain.Track   `json:"tracks"`
	Weights domain.Weights   `json:"weights"`
	Options sequence.Options `json:"options"`
}

func (StandardizeTask) Kind() domain.TaskKind     { return domain.KindStandardize }
func (BuildGraphTask) Kind() domain.TaskKind      { return domain.KindBuildGraph }
func (CentroidClusterTask) Kind() domain.TaskKind { return domain.KindClusterCentroid }
func (DensityClusterTask) Kind() domain.TaskKind  { return domain.KindClusterDensity }
func (PathTask) Kind() domain.TaskKind            { return domain.KindApproximatePath }

func (t StandardizeTask) Validate() error { return validateTracks(t.Tracks) }

func (t BuildGraphTask) Validate() error {
	if err := validateTracks(t.Tracks); err != nil {
		return err
	}
	return graph.ValidateWeights(t.Weights)
}

func (t CentroidClusterTask) Validate() error {
	if err := validateTracks(t.Tracks); err != nil {
		return err
	}
	n := len(t.Tracks)
	if t.Search {
		if n < 3 {
			return domain.Degenerate("best-k search needs at least 3 tracks, got %d", n)
		}
		if t.MaxK < 0 || t.MaxK == 1 {
			return domain.Degenerate("max_k=%d must be 0 or at least 2", t.MaxK)
		}
		return nil
	}
	if t.K < 0 || t.K >= n || (t.K == 0 && n < 2) {
		return domain.Degenerate("k=%d must be in [1, %d)", t.K, n)
	}
	return nil
}

func (t DensityClusterTask) Validate() error {
	if err := validateTracks(t.Tracks); err != nil {
		return err
	}
	if math.IsNaN(t.Eps) || math.IsInf(t.Eps, 0) || t.Eps <= 0 {
		return domain.Degenerate("eps=%v must be a positive finite radius", t.Eps)
	}
	if t.MinPts < 1 {
		return domain.Degenerate("min_pts=%d must be at least 1", t.MinPts)
	}
	switch t.Policy {
	case "", cluster.ReclaimNoise, cluster.TerminalNoise:
	default:
		return domain.Degenerate("unknown noise policy %q", t.Policy)
	}
	return graph.ValidateWeights(t.Weights)
}

// Validate accepts empty and single-track collections, which order trivially.
func (t PathTask) Validate() error {
	if err := features.Validate(t.Tracks); err != nil {
		return err
	}
	if t.Options.MaxIterations < 0 || t.Options.MaxStall < 0 || t.Options.Strength < 0 || t.Options.TimeLimit < 0 {
		return domain.Degenerate("path options must not be negative")
	}
	return graph.ValidateWeights(t.Weights)
}

func (t StandardizeTask) Clone() TaskSpec {
	t.Tracks = domain.CloneTracks(t.Tracks)
	return t
}

func (t BuildGraphTask) Clone() TaskSpec {
	t.Tracks = domain.CloneTracks(t.Tracks)
	return t
}

func (t CentroidClusterTask) Clone() TaskSpec {
	t.Tracks = domain.CloneTracks(t.Tracks)
	return t
}

func (t DensityClusterTask) Clone() TaskSpec {
	t.Tracks = domain.CloneTracks(t.Tracks)
	return t
}

func (t PathTask) Clone() TaskSpec {
	t.Tracks = domain.CloneTracks(t.Tracks)
	return t
}

func validateTracks(tracks []domain.Track) error {
	if len(tracks) == 0 {
		return domain.Degenerate("no tracks given")
	}
	return features.Validate(tracks)
}

// TaskResult is the output of a finished task. Concrete types mirror the
// TaskSpec kinds.
type TaskResult interface {
	Kind() domain.TaskKind
}

// StandardizeResult carries the rescaled tracks.
type StandardizeResult struct {
	Tracks               []domain.Track `json:"tracks"`
	ZeroVarianceFeatures []int          `json:"zero_variance_features,omitempty"`
	ZeroVarianceEdges    []int          `json:"zero_variance_edges,omitempty"`
}

// GraphResult carries the distance matrix; row and column i is TrackIDs[i].
type GraphResult struct {
	TrackIDs []string              `json:"track_ids"`
	Matrix   *graph.DistanceMatrix `json:"matrix"`
}

// CentroidClusterResult is a k-means partition with per-track distances to
// the assigned centroid. Score and Trials are set only for a best-k search.
type CentroidClusterResult struct {
	TrackIDs      []string                 `json:"track_ids"`
	K             int                      `json:"k"`
	Labels        []int                    `json:"labels"`
	Groups        [][]int                  `json:"groups"`
	Distances     []float64                `json:"distances"`
	Centroids     []domain.CompositeVector `json:"centroids"`
	Iterations    int                      `json:"iterations"`
	Converged     bool                     `json:"converged"`
	EmptyClusters int                      `json:"empty_clusters"`
	Score         *float64                 `json:"score,omitempty"`
	Trials        []cluster.Trial          `json:"trials,omitempty"`
}

// DensityClusterResult is a DBSCAN labelling.
type DensityClusterResult struct {
	TrackIDs []string `json:"track_ids"`
	cluster.DBSCANResult
}

// PathResult is the best order found, with the tracks' IDs in that order.
type PathResult struct {
	TrackIDs []string `json:"track_ids"`
	sequence.Result
}

func (StandardizeResult) Kind() domain.TaskKind     { return domain.KindStandardize }
func (GraphResult) Kind() domain.TaskKind           { return domain.KindBuildGraph }
func (CentroidClusterResult) Kind() domain.TaskKind { return domain.KindClusterCentroid }
func (DensityClusterResult) Kind() domain.TaskKind  { return domain.KindClusterDensity }
func (PathResult) Kind() domain.TaskKind            { return domain.KindApproximatePath }
