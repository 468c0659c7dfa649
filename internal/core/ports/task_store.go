package ports

import (
	"context"
	"time"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// TaskStore tracks task status records. It never holds computation results.
// Implementations return domain.ErrNotFound for unknown IDs and
// domain.ErrInvalidTransition when a status change is not allowed.
type TaskStore interface {
	Create(ctx context.Context, rec domain.TaskRecord) error
	Transition(ctx context.Context, id string, next domain.TaskStatus, errMsg string, at time.Time) (domain.TaskRecord, error)
	Get(ctx context.Context, id string) (domain.TaskRecord, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]domain.TaskRecord, error)
}
