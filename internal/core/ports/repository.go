package ports

import (
	"context"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// PlaylistSource loads a fully populated playlist by reference.
type PlaylistSource interface {
	Load(ctx context.Context, ref string) (domain.Playlist, error)
}
