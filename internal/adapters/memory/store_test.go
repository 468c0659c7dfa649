package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

func record(id string, created time.Time) domain.TaskRecord {
	return domain.TaskRecord{ID: id, Kind: domain.KindStandardize, Status: domain.StatusQueued, CreatedAt: created}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, err := New(0)
	require.NoError(t, err)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Create(ctx, record("a", now)))
	assert.Error(t, s.Create(ctx, record("a", now)))

	rec, err := s.Transition(ctx, "a", domain.StatusRunning, "", now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, rec.StartedAt)

	rec, err = s.Transition(ctx, "a", domain.StatusCompleted, "", now.Add(2*time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.Transition(ctx, "a", domain.StatusCancelled, "", now)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Transition(ctx, "missing", domain.StatusRunning, "", now)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_EvictsFinishedAndLists(t *testing.T) {
	ctx := context.Background()
	s, err := New(2)
	require.NoError(t, err)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, s.Create(ctx, record(id, at)))
		_, err := s.Transition(ctx, id, domain.StatusCancelled, "", at)
		require.NoError(t, err)
	}

	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].ID)
	assert.Equal(t, "b", list[1].ID)

	list, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStore_KeepsUnfinishedRecords(t *testing.T) {
	ctx := context.Background()
	s, err := New(1)
	require.NoError(t, err)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Create(ctx, record(id, base.Add(time.Duration(i)*time.Minute))))
	}
	_, err = s.Transition(ctx, "a", domain.StatusRunning, "", base)
	require.NoError(t, err)

	for _, id := range []string{"a", "b", "c"} {
		_, err := s.Get(ctx, id)
		assert.NoError(t, err, id)
	}
	list, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 3)

	rec, err := s.Transition(ctx, "a", domain.StatusCompleted, "", base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, rec.Status)

	// a finishes into the single-slot tier; b finishing evicts it.
	_, err = s.Transition(ctx, "b", domain.StatusCancelled, "", base.Add(time.Hour))
	require.NoError(t, err)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "c")
	assert.NoError(t, err)
}
