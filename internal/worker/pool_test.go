package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ewilliams-labs/cadence/internal/adapters/memory"
	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

type runnerFunc func(ctx context.Context, spec services.TaskSpec) (services.TaskResult, error)

func (f runnerFunc) Run(ctx context.Context, spec services.TaskSpec) (services.TaskResult, error) {
	return f(ctx, spec)
}

// blockUntilCancelled signals on started and returns a partial result once
// the task context is cancelled.
func blockUntilCancelled(started chan<- string) runnerFunc {
	return func(ctx context.Context, spec services.TaskSpec) (services.TaskResult, error) {
		started <- string(spec.Kind())
		<-ctx.Done()
		return services.PathResult{TrackIDs: []string{"partial"}}, nil
	}
}

func track(id string, x float64) domain.Track {
	f := domain.NewFeatureVector(x, x, x, x, x)
	s := domain.NewEdgeVector(x, x)
	e := domain.NewEdgeVector(x, x)
	return domain.Track{ID: id, Features: &f, Start: &s, End: &e}
}

func standardizeSpec() services.StandardizeTask {
	return services.StandardizeTask{Tracks: []domain.Track{track("a", 1), track("b", 2)}}
}

func newTestPool(t *testing.T, r Runner, queue int) *Pool {
	t.Helper()
	store, err := memory.New(0)
	require.NoError(t, err)
	p, err := NewPool(r, store, queue, 16)
	require.NoError(t, err)
	return p
}

func waitForStatus(t *testing.T, p *Pool, id string, want domain.TaskStatus) domain.TaskRecord {
	t.Helper()
	var rec domain.TaskRecord
	require.Eventually(t, func() bool {
		var err error
		rec, err = p.Status(context.Background(), id)
		return err == nil && rec.Status == want
	}, 5*time.Second, 5*time.Millisecond, "task %s never reached %s (last %s)", id, want, rec.Status)
	return rec
}

func TestPool_RunsTaskToCompletion(t *testing.T) {
	p := newTestPool(t, services.NewSequencer(services.Defaults{}), 4)
	p.Start(2)
	defer p.Stop()

	spec := standardizeSpec()
	id, err := p.Submit(context.Background(), spec)
	require.NoError(t, err)

	// The pool works on its own copy.
	spec.Tracks[0].Features[0] = 100

	rec := waitForStatus(t, p, id, domain.StatusCompleted)
	assert.Equal(t, domain.KindStandardize, rec.Kind)
	assert.NotNil(t, rec.StartedAt)
	assert.NotNil(t, rec.FinishedAt)

	res, err := p.Result(context.Background(), id)
	require.NoError(t, err)
	out := res.(services.StandardizeResult)
	assert.Equal(t, -1.0, out.Tracks[0].Features[0])
}

func TestPool_SubmitRejectsInvalidSpec(t *testing.T) {
	p := newTestPool(t, services.NewSequencer(services.Defaults{}), 1)
	id, err := p.Submit(context.Background(), services.StandardizeTask{})
	assert.ErrorIs(t, err, domain.ErrDegenerateInput)
	assert.Empty(t, id)
}

func TestPool_QueueFull(t *testing.T) {
	p := newTestPool(t, services.NewSequencer(services.Defaults{}), 1)

	_, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)

	id, err := p.Submit(context.Background(), standardizeSpec())
	assert.ErrorIs(t, err, ErrQueueFull)
	require.NotEmpty(t, id)

	rec, err := p.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, rec.Status)
	assert.Equal(t, ErrQueueFull.Error(), rec.Error)
}

func TestPool_CancelQueued(t *testing.T) {
	p := newTestPool(t, runnerFunc(func(context.Context, services.TaskSpec) (services.TaskResult, error) {
		t.Error("a cancelled task must not run")
		return nil, nil
	}), 2)

	id, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)

	rec, err := p.Cancel(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)

	p.Start(1)
	p.Stop()

	rec, err = p.Status(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, rec.Status)

	_, err = p.Result(context.Background(), id)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestPool_CancelRunningKeepsResult(t *testing.T) {
	started := make(chan string, 1)
	p := newTestPool(t, blockUntilCancelled(started), 2)
	p.Start(1)
	defer p.Stop()

	id, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)
	<-started
	waitForStatus(t, p, id, domain.StatusRunning)

	_, err = p.Result(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFinished)

	_, err = p.Cancel(context.Background(), id)
	require.NoError(t, err)
	waitForStatus(t, p, id, domain.StatusCancelled)

	res, err := p.Result(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []string{"partial"}, res.(services.PathResult).TrackIDs)
}

func TestPool_RecordsFailure(t *testing.T) {
	p := newTestPool(t, runnerFunc(func(context.Context, services.TaskSpec) (services.TaskResult, error) {
		return nil, errors.New("boom")
	}), 2)
	p.Start(1)
	defer p.Stop()

	id, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)

	rec := waitForStatus(t, p, id, domain.StatusFailed)
	assert.Equal(t, "boom", rec.Error)
}

func TestPool_StopCancelsOutstandingTasks(t *testing.T) {
	started := make(chan string, 2)
	p := newTestPool(t, blockUntilCancelled(started), 4)
	p.Start(1)

	running, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)
	<-started
	queued, err := p.Submit(context.Background(), standardizeSpec())
	require.NoError(t, err)

	p.Stop()

	for _, id := range []string{running, queued} {
		rec, err := p.Status(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, rec.Status, id)
	}

	_, err = p.Submit(context.Background(), standardizeSpec())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestPool_UnknownTask(t *testing.T) {
	p := newTestPool(t, services.NewSequencer(services.Defaults{}), 1)
	_, err := p.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = p.Result(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = p.Cancel(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
