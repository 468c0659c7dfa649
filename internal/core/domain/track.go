package domain

import (
	"encoding/json"
	"fmt"
)

const (
	// FeatureDims is the length of a track's acoustic feature vector.
	FeatureDims = 5
	// EdgeDims is the length of a start or end edge vector.
	EdgeDims = 2
	// CompositeDims is the length of a feature vector joined with one edge vector.
	CompositeDims = FeatureDims + EdgeDims
)

// FeatureVector holds acousticness, danceability, energy, instrumentalness
// and valence, in that order.
type FeatureVector [FeatureDims]float64

// NewFeatureVector builds a FeatureVector from named audio features.
func NewFeatureVector(acousticness, danceability, energy, instrumentalness, valence float64) FeatureVector {
	return FeatureVector{acousticness, danceability, energy, instrumentalness, valence}
}

// EdgeVector describes a track boundary as (loudness, tempo).
type EdgeVector [EdgeDims]float64

// NewEdgeVector builds an EdgeVector.
func NewEdgeVector(loudness, tempo float64) EdgeVector {
	return EdgeVector{loudness, tempo}
}

func (e EdgeVector) Loudness() float64 { return e[0] }
func (e EdgeVector) Tempo() float64    { return e[1] }

// CompositeVector is a FeatureVector followed by one EdgeVector.
type CompositeVector [CompositeDims]float64

// Compose joins a feature vector and an edge vector.
func Compose(f FeatureVector, e EdgeVector) CompositeVector {
	var c CompositeVector
	copy(c[:FeatureDims], f[:])
	copy(c[FeatureDims:], e[:])
	return c
}

// Weights scales each composite dimension before a distance is taken.
type Weights [CompositeDims]float64

// UniformWeights returns weights of 1 for every dimension.
func UniformWeights() Weights {
	var w Weights
	for i := range w {
		w[i] = 1
	}
	return w
}

// WeightsFromSlice converts an optional list of weights. An empty list gives
// zero Weights, which callers treat as uniform; any other length than
// CompositeDims is rejected.
func WeightsFromSlice(vals []float64) (Weights, error) {
	var w Weights
	switch len(vals) {
	case 0:
	case CompositeDims:
		copy(w[:], vals)
	default:
		return w, fmt.Errorf("%w: need %d weights, got %d", ErrInvalidWeights, CompositeDims, len(vals))
	}
	return w, nil
}

// IsZero reports whether no weight was set, which callers treat as "use uniform".
func (w Weights) IsZero() bool {
	return w == Weights{}
}

// Track represents a musical track in the domain layer.
// Features, Start and End are nil when the catalog did not supply them.
type Track struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	Features *FeatureVector `json:"features" yaml:"features"`
	Start    *EdgeVector    `json:"start" yaml:"start"` // first section
	End      *EdgeVector    `json:"end" yaml:"end"`     // last section
}

// NewTrack builds a Track from variable-length vectors. A nil slice leaves
// the vector absent; any other slice must have exactly the vector's length.
func NewTrack(id, name string, features, start, end []float64) (Track, error) {
	t := Track{ID: id, Name: name}
	if features != nil {
		if len(features) != FeatureDims {
			return Track{}, &MissingFeatureDataError{TrackID: id, Field: "features", Got: len(features), Want: FeatureDims}
		}
		var f FeatureVector
		copy(f[:], features)
		t.Features = &f
	}
	edges := []struct {
		field string
		vals  []float64
		dst   **EdgeVector
	}{
		{"start", start, &t.Start},
		{"end", end, &t.End},
	}
	for _, e := range edges {
		if e.vals == nil {
			continue
		}
		if len(e.vals) != EdgeDims {
			return Track{}, &MissingFeatureDataError{TrackID: id, Field: e.field, Got: len(e.vals), Want: EdgeDims}
		}
		var v EdgeVector
		copy(v[:], e.vals)
		*e.dst = &v
	}
	return t, nil
}

// UnmarshalJSON rejects vectors of the wrong length instead of zero-filling
// them.
func (t *Track) UnmarshalJSON(b []byte) error {
	var w struct {
		ID       string    `json:"id"`
		Name     string    `json:"name"`
		Features []float64 `json:"features"`
		Start    []float64 `json:"start"`
		End      []float64 `json:"end"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	out, err := NewTrack(w.ID, w.Name, w.Features, w.Start, w.End)
	if err != nil {
		return err
	}
	*t = out
	return nil
}

// Check returns a MissingFeatureDataError naming the first absent vector.
func (t Track) Check() error {
	switch {
	case t.Features == nil:
		return &MissingFeatureDataError{TrackID: t.ID, Field: "features"}
	case t.Start == nil:
		return &MissingFeatureDataError{TrackID: t.ID, Field: "start"}
	case t.End == nil:
		return &MissingFeatureDataError{TrackID: t.ID, Field: "end"}
	}
	return nil
}

// Clone returns a deep copy; the vectors of the copy share no memory with t.
func (t Track) Clone() Track {
	out := Track{ID: t.ID, Name: t.Name}
	if t.Features != nil {
		f := *t.Features
		out.Features = &f
	}
	if t.Start != nil {
		s := *t.Start
		out.Start = &s
	}
	if t.End != nil {
		e := *t.End
		out.End = &e
	}
	return out
}

// CloneTracks deep-copies a slice of tracks.
func CloneTracks(tracks []Track) []Track {
	if tracks == nil {
		return nil
	}
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.Clone()
	}
	return out
}
