package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/cadence/internal/core/cluster"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/sequence"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

func newStandardizeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "standardize",
		Short: "Rescale features and edges to zero mean and unit variance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			return s.run(cmd.Context(), cmd.OutOrStdout(), services.StandardizeTask{Tracks: s.playlist.Tracks})
		},
	}
}

func newMatrixCmd(g *globals) *cobra.Command {
	var weights []float64
	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Print the directed transition-cost matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := weightsFlag(weights)
			if err != nil {
				return err
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			return s.run(cmd.Context(), cmd.OutOrStdout(), services.BuildGraphTask{Tracks: s.playlist.Tracks, Weights: w})
		},
	}
	cmd.Flags().Float64SliceVarP(&weights, "weights", "w", nil, "Seven per-dimension weights (features then edge)")
	return cmd
}

func newClusterCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Group tracks by similarity",
	}
	cmd.AddCommand(newKMeansCmd(g), newDBSCANCmd(g))
	return cmd
}

func newKMeansCmd(g *globals) *cobra.Command {
	var t services.CentroidClusterTask
	cmd := &cobra.Command{
		Use:   "kmeans",
		Short: "Partition tracks into k centroid clusters",
		Long: `Partition tracks with k-means. With --search the k in [2, max-k] with the
best separation score is chosen; otherwise --k is used, defaulting to a
quarter of the track count.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			t.Tracks = s.playlist.Tracks
			return s.run(cmd.Context(), cmd.OutOrStdout(), t)
		},
	}
	f := cmd.Flags()
	f.IntVarP(&t.K, "k", "k", 0, "Number of clusters (0 picks a quarter of the tracks)")
	f.BoolVar(&t.Search, "search", false, "Search k in [2, max-k] for the best separation")
	f.IntVar(&t.MaxK, "max-k", 0, "Upper bound for --search (0 uses the configured value)")
	f.IntVar(&t.MaxIter, "max-iter", 0, "Iteration cap (0 uses the configured value)")
	f.Int64Var(&t.Seed, "seed", 0, "Random seed (0 uses the configured value)")
	f.BoolVar(&t.Outgoing, "outgoing", false, "Cluster on end edges instead of start edges")
	return cmd
}

func newDBSCANCmd(g *globals) *cobra.Command {
	var (
		t       services.DensityClusterTask
		weights []float64
		policy  string
	)
	cmd := &cobra.Command{
		Use:   "dbscan",
		Short: "Find density clusters over the transition-cost matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := weightsFlag(weights)
			if err != nil {
				return err
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			t.Tracks = s.playlist.Tracks
			t.Weights = w
			t.Policy = cluster.NoisePolicy(policy)
			return s.run(cmd.Context(), cmd.OutOrStdout(), t)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&t.Eps, "eps", 0, "Neighbourhood radius")
	f.IntVar(&t.MinPts, "min-pts", 2, "Neighbours (including the point) needed for a core point")
	f.StringVar(&policy, "policy", string(cluster.ReclaimNoise), "Noise policy: reclaim or terminal")
	f.BoolVar(&t.Shuffle, "shuffle", false, "Visit points in a seeded random order")
	f.Int64Var(&t.Seed, "seed", 0, "Random seed for --shuffle")
	f.Float64SliceVarP(&weights, "weights", "w", nil, "Seven per-dimension weights (features then edge)")
	_ = cmd.MarkFlagRequired("eps")
	return cmd
}

// optimizeOutput adds the tracks in play order to a path result.
type optimizeOutput struct {
	services.PathResult
	Tracks []domain.Track `json:"tracks"`
}

func newOptimizeCmd(g *globals) *cobra.Command {
	var (
		opts    sequence.Options
		weights []float64
	)
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Order tracks to minimise total transition cost",
		Long: `Approximate the cheapest open path through every track. An interrupt
stops the search early and prints the best order found so far.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := weightsFlag(weights)
			if err != nil {
				return err
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := s.seq.Run(ctx, services.PathTask{Tracks: s.playlist.Tracks, Weights: w, Options: opts})
			if err != nil {
				return err
			}
			path := res.(services.PathResult)
			return writeJSON(cmd.OutOrStdout(), optimizeOutput{
				PathResult: path,
				Tracks:     s.playlist.Reorder(path.Order),
			})
		},
	}
	f := cmd.Flags()
	f.IntVar(&opts.MaxIterations, "max-iterations", 0, "Perturbation rounds (0 uses the configured value)")
	f.IntVar(&opts.MaxStall, "max-stall", 0, "Rounds without improvement before stopping")
	f.IntVar(&opts.Strength, "strength", 0, "Perturbations applied per round")
	f.DurationVar(&opts.TimeLimit, "time-limit", 0, "Wall-clock limit such as 10s (0 uses the configured value)")
	f.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 uses the configured value)")
	f.Float64SliceVarP(&weights, "weights", "w", nil, "Seven per-dimension weights (features then edge)")
	return cmd
}
