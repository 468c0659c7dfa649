package domain

import "time"

// TaskKind names the computation a task runs.
type TaskKind string

const (
	KindStandardize     TaskKind = "standardize"
	KindBuildGraph      TaskKind = "build_graph"
	KindClusterCentroid TaskKind = "cluster_centroid"
	KindClusterDensity  TaskKind = "cluster_density"
	KindApproximatePath TaskKind = "approximate_path"
)

// Valid reports whether k is one of the known kinds.
func (k TaskKind) Valid() bool {
	switch k {
	case KindStandardize, KindBuildGraph, KindClusterCentroid, KindClusterDensity, KindApproximatePath:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a task may move from s to next.
// queued -> running|failed|cancelled, running -> completed|failed|cancelled.
func (s TaskStatus) CanTransition(next TaskStatus) bool {
	switch s {
	case StatusQueued:
		return next == StatusRunning || next == StatusFailed || next == StatusCancelled
	case StatusRunning:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled
	}
	return false
}

// TaskRecord is the trackable state of one task. It never carries the
// computation's result.
type TaskRecord struct {
	ID         string     `json:"id"`
	Kind       TaskKind   `json:"kind"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Apply moves the record to next at time at, stamping start/finish times.
func (r *TaskRecord) Apply(next TaskStatus, errMsg string, at time.Time) error {
	if !r.Status.CanTransition(next) {
		return ErrInvalidTransition
	}
	r.Status = next
	if errMsg != "" {
		r.Error = errMsg
	}
	if next == StatusRunning {
		t := at
		r.StartedAt = &t
	}
	if next.Terminal() {
		t := at
		r.FinishedAt = &t
	}
	return nil
}
