// Package worker runs tasks in the background and tracks their status.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
	"github.com/ewilliams-labs/cadence/internal/core/ports"
	"github.com/ewilliams-labs/cadence/internal/core/services"
)

var (
	// ErrQueueFull is returned by Submit when no queue slot is free. The
	// task's record is kept and marked failed.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("worker: pool stopped")
	// ErrNotFinished is returned by Result while a task is queued or running.
	ErrNotFinished = errors.New("worker: task not finished")
	// ErrNoResult is returned by Result for a finished task whose result was
	// never produced or has been evicted from the cache.
	ErrNoResult = errors.New("worker: result unavailable")
)

// Runner executes a single task synchronously.
type Runner interface {
	Run(ctx context.Context, spec services.TaskSpec) (services.TaskResult, error)
}

type job struct {
	id   string
	spec services.TaskSpec
}

// entry is the in-flight state of a task that has not finished.
type entry struct {
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// Pool manages background workers for submitted tasks.
type Pool struct {
	runner  Runner
	store   ports.TaskStore
	jobs    chan job
	results *lru.Cache[string, services.TaskResult]
	wg      sync.WaitGroup

	// mu serializes status transitions made by Submit, Cancel and the workers.
	mu     sync.Mutex
	tasks  map[string]*entry
	closed bool

	base context.Context
	halt context.CancelFunc
	now  func() time.Time
}

// NewPool creates a pool with a bounded queue and a results cache holding up
// to cacheSize finished results.
func NewPool(runner Runner, store ports.TaskStore, queueSize, cacheSize int) (*Pool, error) {
	if queueSize < 1 {
		queueSize = 1
	}
	if cacheSize < 1 {
		cacheSize = 1
	}
	results, err := lru.New[string, services.TaskResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("worker: results cache: %w", err)
	}
	base, halt := context.WithCancel(context.Background())
	return &Pool{
		runner:  runner,
		store:   store,
		jobs:    make(chan job, queueSize),
		results: results,
		tasks:   make(map[string]*entry),
		base:    base,
		halt:    halt,
		now:     time.Now,
	}, nil
}

// Start launches the worker goroutines.
func (p *Pool) Start(workers int) {
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				p.process(j)
			}
		}()
	}
}

// Stop closes the queue, cancels running tasks and waits for the workers.
// Tasks still queued are marked cancelled.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.halt()
	p.wg.Wait()
}

// Submit validates spec, records it as queued and hands a private copy to
// the workers. It never blocks on a full queue.
func (p *Pool) Submit(ctx context.Context, spec services.TaskSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	rec := domain.TaskRecord{
		ID:        id,
		Kind:      spec.Kind(),
		Status:    domain.StatusQueued,
		CreatedAt: p.now().UTC(),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrStopped
	}
	if err := p.store.Create(ctx, rec); err != nil {
		return "", fmt.Errorf("worker: create task: %w", err)
	}

	taskCtx, cancel := context.WithCancel(p.base)
	select {
	case p.jobs <- job{id: id, spec: spec.Clone()}:
		p.tasks[id] = &entry{ctx: taskCtx, cancel: cancel}
	default:
		cancel()
		p.transition(id, domain.StatusFailed, ErrQueueFull.Error())
		log.Printf("WARN worker: dropping task %s (%s): queue full", id, rec.Kind)
		return id, ErrQueueFull
	}
	log.Printf("INFO worker: task %s (%s) queued", id, rec.Kind)
	return id, nil
}

// Status returns the task's record.
func (p *Pool) Status(ctx context.Context, id string) (domain.TaskRecord, error) {
	return p.store.Get(ctx, id)
}

// List returns up to limit records, newest first.
func (p *Pool) List(ctx context.Context, limit int) ([]domain.TaskRecord, error) {
	return p.store.List(ctx, limit)
}

// Result returns the output of a finished task. A task cancelled while
// running keeps the best result it reached.
func (p *Pool) Result(ctx context.Context, id string) (services.TaskResult, error) {
	rec, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !rec.Status.Terminal() {
		return nil, ErrNotFinished
	}
	res, ok := p.results.Get(id)
	if !ok {
		return nil, ErrNoResult
	}
	return res, nil
}

// Cancel requests cancellation. A queued task is cancelled at once; a
// running task is signalled and settles when its computation returns.
// Cancelling a finished task is a no-op.
func (p *Pool) Cancel(ctx context.Context, id string) (domain.TaskRecord, error) {
	p.mu.Lock()
	if e, ok := p.tasks[id]; ok {
		e.cancel()
		if !e.running {
			delete(p.tasks, id)
			p.transition(id, domain.StatusCancelled, "")
		}
	}
	p.mu.Unlock()
	return p.store.Get(ctx, id)
}

func (p *Pool) process(j job) {
	p.mu.Lock()
	e, ok := p.tasks[j.id]
	if !ok {
		p.mu.Unlock()
		return
	}
	if e.ctx.Err() != nil {
		delete(p.tasks, j.id)
		p.transition(j.id, domain.StatusCancelled, "")
		p.mu.Unlock()
		return
	}
	e.running = true
	p.transition(j.id, domain.StatusRunning, "")
	p.mu.Unlock()

	started := p.now()
	res, err := p.runner.Run(e.ctx, j.spec)
	cancelled := e.ctx.Err() != nil
	e.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, j.id)

	switch {
	case err != nil:
		p.transition(j.id, domain.StatusFailed, err.Error())
		log.Printf("WARN worker: task %s (%s) failed: %v", j.id, j.spec.Kind(), err)
	case cancelled:
		p.results.Add(j.id, res)
		p.transition(j.id, domain.StatusCancelled, "")
		log.Printf("INFO worker: task %s (%s) cancelled after %s", j.id, j.spec.Kind(), p.now().Sub(started))
	default:
		p.results.Add(j.id, res)
		p.transition(j.id, domain.StatusCompleted, "")
		log.Printf("INFO worker: task %s (%s) completed in %s", j.id, j.spec.Kind(), p.now().Sub(started))
	}
}

// transition records a status change; callers hold p.mu.
func (p *Pool) transition(id string, next domain.TaskStatus, msg string) {
	if _, err := p.store.Transition(context.Background(), id, next, msg, p.now().UTC()); err != nil {
		log.Printf("WARN worker: task %s -> %s: %v", id, next, err)
	}
}
