package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFeatureData indicates a track lacks its feature or edge vectors.
	ErrMissingFeatureData = errors.New("domain: missing feature data")
	// ErrDegenerateInput indicates an input the computations cannot work with,
	// such as an empty collection or k >= n.
	ErrDegenerateInput = errors.New("domain: degenerate input")
	// ErrInvalidWeights indicates a non-finite distance weight.
	ErrInvalidWeights = errors.New("domain: invalid weights")
	ErrDuplicateTrack = errors.New("domain: duplicate track")
	ErrNotFound       = errors.New("domain: not found")
	// ErrInvalidTransition is returned when a task status change is not allowed.
	ErrInvalidTransition = errors.New("domain: invalid status transition")
)

// MissingFeatureDataError names the track and the vector that is absent.
// Want is set when the vector was present with Got instead of Want values.
type MissingFeatureDataError struct {
	TrackID string
	Field   string
	Got     int
	Want    int
}

func (e *MissingFeatureDataError) Error() string {
	if e.Want > 0 {
		return fmt.Sprintf("track %q has a %s vector of %d values, want %d", e.TrackID, e.Field, e.Got, e.Want)
	}
	return fmt.Sprintf("track %q has no %s vector", e.TrackID, e.Field)
}

func (e *MissingFeatureDataError) Is(target error) bool {
	return target == ErrMissingFeatureData
}

// DegenerateInputError describes why an input was rejected.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	if e.Reason == "" {
		return ErrDegenerateInput.Error()
	}
	return "degenerate input: " + e.Reason
}

func (e *DegenerateInputError) Is(target error) bool {
	return target == ErrDegenerateInput
}

// Degenerate is shorthand for a DegenerateInputError with a formatted reason.
func Degenerate(format string, args ...any) error {
	return &DegenerateInputError{Reason: fmt.Sprintf(format, args...)}
}
