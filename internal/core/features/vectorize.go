// Package features turns tracks into the fixed-length vectors the rest of
// the pipeline computes on.
package features

import (
	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// Vectorize joins the track's feature vector with its end edge when outgoing
// is true, or its start edge otherwise. A track missing any of the three
// vectors yields a *domain.MissingFeatureDataError naming it.
func Vectorize(t domain.Track, outgoing bool) (domain.CompositeVector, error) {
	if err := t.Check(); err != nil {
		return domain.CompositeVector{}, err
	}
	if outgoing {
		return domain.Compose(*t.Features, *t.End), nil
	}
	return domain.Compose(*t.Features, *t.Start), nil
}

// VectorizeAll vectorizes every track, stopping at the first incomplete one.
func VectorizeAll(tracks []domain.Track, outgoing bool) ([]domain.CompositeVector, error) {
	out := make([]domain.CompositeVector, len(tracks))
	for i, t := range tracks {
		v, err := Vectorize(t, outgoing)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Validate checks every track before any numeric work starts.
func Validate(tracks []domain.Track) error {
	for _, t := range tracks {
		if err := t.Check(); err != nil {
			return err
		}
	}
	return nil
}
