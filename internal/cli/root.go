// Package cli implements the cadence command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ewilliams-labs/cadence/internal/adapters/playlistfile"
	"github.com/ewilliams-labs/cadence/internal/config"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

// globals are the flags shared by every command.
type globals struct {
	input  string
	config string
	source ports.PlaylistSource
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	g := &globals{source: playlistfile.NewLoader()}
	root := &cobra.Command{
		Use:   "cadence",
		Short: "Cadence - playlist sequencing and clustering",
		Long: `Cadence standardizes track features, builds transition-cost matrices,
clusters tracks and orders playlists for smooth transitions.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&g.input, "input", "i", "", "Playlist file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVarP(&g.config, "config", "c", "", "YAML configuration file (default $CADENCE_CONFIG)")

	root.AddCommand(
		newStandardizeCmd(g),
		newMatrixCmd(g),
		newClusterCmd(g),
		newOptimizeCmd(g),
		newServeCmd(g),
	)
	return root
}

// Execute runs the command tree against ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// session is what a compute command needs: the loaded configuration, a
// sequencer built from it and the input playlist.
type session struct {
	cfg      config.Config
	seq      *services.Sequencer
	playlist domain.Playlist
}

func (g *globals) open(ctx context.Context) (*session, error) {
	if g.input == "" {
		return nil, fmt.Errorf("cli: --input is required")
	}
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	p, err := g.source.Load(ctx, g.input)
	if err != nil {
		return nil, err
	}
	return &session{
		cfg:      cfg,
		seq:      services.NewSequencer(cfg.Compute.Defaults()),
		playlist: p,
	}, nil
}

// run executes spec and prints the result as indented JSON.
func (s *session) run(ctx context.Context, out io.Writer, spec services.TaskSpec) error {
	res, err := s.seq.Run(ctx, spec)
	if err != nil {
		return err
	}
	return writeJSON(out, res)
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// weightsFlag converts an optional --weights value.
func weightsFlag(vals []float64) (domain.Weights, error) {
	w, err := domain.WeightsFromSlice(vals)
	if err != nil {
		return w, fmt.Errorf("cli: --weights: %w", err)
	}
	return w, nil
}
