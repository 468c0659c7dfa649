// Package memory provides a bounded in-memory task ledger.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// DefaultSize is the number of finished records kept when New is given 0.
const DefaultSize = 1024

// Store implements ports.TaskStore. Queued and running records are kept
// until they finish; finished records move to an LRU and the least recently
// touched one is evicted once it is full.
type Store struct {
	mu       sync.Mutex
	live     map[string]domain.TaskRecord
	finished *lru.Cache[string, domain.TaskRecord]
}

// New creates a store holding up to size finished records.
func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	finished, err := lru.New[string, domain.TaskRecord](size)
	if err != nil {
		return nil, fmt.Errorf("memory: %w", err)
	}
	return &Store{live: make(map[string]domain.TaskRecord), finished: finished}, nil
}

func (s *Store) Create(_ context.Context, rec domain.TaskRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(rec.ID); ok {
		return fmt.Errorf("memory: task %s already exists", rec.ID)
	}
	s.put(rec)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.live[id]; ok {
		return rec, nil
	}
	rec, ok := s.finished.Get(id)
	if !ok {
		return domain.TaskRecord{}, domain.ErrNotFound
	}
	return rec, nil
}

func (s *Store) Transition(_ context.Context, id string, next domain.TaskStatus, errMsg string, at time.Time) (domain.TaskRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.lookup(id)
	if !ok {
		return domain.TaskRecord{}, domain.ErrNotFound
	}
	if err := rec.Apply(next, errMsg, at); err != nil {
		return domain.TaskRecord{}, fmt.Errorf("memory: task %s %s -> %s: %w", id, rec.Status, next, err)
	}
	s.put(rec)
	return rec, nil
}

func (s *Store) List(_ context.Context, limit int) ([]domain.TaskRecord, error) {
	s.mu.Lock()
	recs := s.finished.Values()
	for _, rec := range s.live {
		recs = append(recs, rec)
	}
	s.mu.Unlock()

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// lookup finds a record without refreshing its recency.
func (s *Store) lookup(id string) (domain.TaskRecord, bool) {
	if rec, ok := s.live[id]; ok {
		return rec, true
	}
	return s.finished.Peek(id)
}

// put stores rec in the tier matching its status.
func (s *Store) put(rec domain.TaskRecord) {
	if rec.Status.Terminal() {
		delete(s.live, rec.ID)
		s.finished.Add(rec.ID, rec)
		return
	}
	s.live[rec.ID] = rec
}
