package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func completeTrack(id string) Track {
	f := NewFeatureVector(0.1, 0.2, 0.3, 0.4, 0.5)
	s := NewEdgeVector(-8, 120)
	e := NewEdgeVector(-6, 122)
	return Track{ID: id, Name: "Song " + id, Features: &f, Start: &s, End: &e}
}

func TestPlaylist_AddTrack(t *testing.T) {
	tests := []struct {
		name          string
		initialTracks []Track
		toAdd         Track
		wantErr       error
		wantLen       int
	}{
		{
			name:          "adds new track successfully",
			initialTracks: []Track{},
			toAdd:         completeTrack("t1"),
			wantErr:       nil,
			wantLen:       1,
		},
		{
			name: "fails when adding track with duplicate ID",
			initialTracks: []Track{
				completeTrack("t1"),
			},
			toAdd:   completeTrack("t1"),
			wantErr: ErrDuplicateTrack,
			wantLen: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Playlist{ID: "pl-1", Name: "Test Playlist"}
			// seed initial tracks directly
			p.Tracks = append(p.Tracks, tc.initialTracks...)

			err := p.AddTrack(tc.toAdd)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
			} else {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected error %v, got %v", tc.wantErr, err)
				}
			}

			if got := len(p.Tracks); got != tc.wantLen {
				t.Fatalf("expected %d tracks, got %d", tc.wantLen, got)
			}

			if tc.wantErr == nil {
				last := p.Tracks[len(p.Tracks)-1]
				if !reflect.DeepEqual(last, tc.toAdd) {
					t.Fatalf("last track mismatch: want %+v, got %+v", tc.toAdd, last)
				}
			}
		})
	}
}

func TestPlaylist_Validate(t *testing.T) {
	noEnd := completeTrack("t2")
	noEnd.End = nil
	noFeatures := completeTrack("t3")
	noFeatures.Features = nil

	tests := []struct {
		name      string
		tracks    []Track
		wantErr   error
		wantTrack string
		wantField string
	}{
		{name: "empty playlist is degenerate", tracks: nil, wantErr: ErrDegenerateInput},
		{name: "complete tracks pass", tracks: []Track{completeTrack("t1")}},
		{name: "missing end edge names the track", tracks: []Track{completeTrack("t1"), noEnd}, wantErr: ErrMissingFeatureData, wantTrack: "t2", wantField: "end"},
		{name: "missing features names the track", tracks: []Track{noFeatures}, wantErr: ErrMissingFeatureData, wantTrack: "t3", wantField: "features"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Playlist{ID: "pl-1", Name: "Test", Tracks: tc.tracks}
			err := p.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if tc.wantTrack != "" {
				var missing *MissingFeatureDataError
				if !errors.As(err, &missing) {
					t.Fatalf("expected MissingFeatureDataError, got %T", err)
				}
				if missing.TrackID != tc.wantTrack || missing.Field != tc.wantField {
					t.Fatalf("expected %s/%s, got %s/%s", tc.wantTrack, tc.wantField, missing.TrackID, missing.Field)
				}
			}
		})
	}
}

func TestTrack_CloneDoesNotAlias(t *testing.T) {
	orig := completeTrack("t1")
	cp := orig.Clone()
	cp.Features[0] = 99
	cp.Start[0] = 99
	cp.End[1] = 99

	if orig.Features[0] == 99 || orig.Start[0] == 99 || orig.End[1] == 99 {
		t.Fatalf("clone shares memory with original: %+v", orig)
	}
}

func TestCompose(t *testing.T) {
	f := NewFeatureVector(1, 2, 3, 4, 5)
	e := NewEdgeVector(6, 7)
	got := Compose(f, e)
	want := CompositeVector{1, 2, 3, 4, 5, 6, 7}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if e.Loudness() != 6 || e.Tempo() != 7 {
		t.Fatalf("edge accessors mismatch: %v", e)
	}
}

func TestTaskRecord_Apply(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		wantErr bool
	}{
		{name: "queued to running", from: StatusQueued, to: StatusRunning},
		{name: "queued to cancelled", from: StatusQueued, to: StatusCancelled},
		{name: "running to completed", from: StatusRunning, to: StatusCompleted},
		{name: "running to failed", from: StatusRunning, to: StatusFailed},
		{name: "queued to completed is rejected", from: StatusQueued, to: StatusCompleted, wantErr: true},
		{name: "completed is terminal", from: StatusCompleted, to: StatusRunning, wantErr: true},
		{name: "cancelled is terminal", from: StatusCancelled, to: StatusFailed, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := TaskRecord{ID: "x", Kind: KindBuildGraph, Status: tc.from}
			err := r.Apply(tc.to, "", now)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidTransition) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Status != tc.to {
				t.Fatalf("expected status %s, got %s", tc.to, r.Status)
			}
			if tc.to == StatusRunning && (r.StartedAt == nil || !r.StartedAt.Equal(now)) {
				t.Fatalf("expected StartedAt to be stamped")
			}
			if tc.to.Terminal() && r.FinishedAt == nil {
				t.Fatalf("expected FinishedAt to be stamped")
			}
		})
	}
}

func TestPlaylist_Reorder(t *testing.T) {
	p := Playlist{Tracks: []Track{completeTrack("a"), completeTrack("b"), completeTrack("c")}}
	got := p.Reorder([]int{2, 0, 1})
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if !reflect.DeepEqual(ids, []string{"c", "a", "b"}) {
		t.Fatalf("expected c a b, got %v", ids)
	}
}

func TestTrack_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantErr   bool
		wantField string
		wantGot   int
	}{
		{name: "complete", body: `{"id":"a","features":[1,2,3,4,5],"start":[-5,120],"end":[-6,121]}`},
		{name: "absent vectors stay nil", body: `{"id":"a"}`},
		{name: "short features", body: `{"id":"a","features":[0.3],"start":[-5,120],"end":[-6,121]}`, wantErr: true, wantField: "features", wantGot: 1},
		{name: "empty features", body: `{"id":"a","features":[],"start":[-5,120],"end":[-6,121]}`, wantErr: true, wantField: "features", wantGot: 0},
		{name: "long features", body: `{"id":"a","features":[1,2,3,4,5,6],"start":[-5,120],"end":[-6,121]}`, wantErr: true, wantField: "features", wantGot: 6},
		{name: "short start", body: `{"id":"a","features":[1,2,3,4,5],"start":[-5],"end":[-6,121]}`, wantErr: true, wantField: "start", wantGot: 1},
		{name: "empty end", body: `{"id":"a","features":[1,2,3,4,5],"start":[-5,120],"end":[]}`, wantErr: true, wantField: "end", wantGot: 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var tr Track
			err := json.Unmarshal([]byte(tc.body), &tr)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMissingFeatureData) {
				t.Fatalf("expected ErrMissingFeatureData, got %v", err)
			}
			var missing *MissingFeatureDataError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFeatureDataError, got %T", err)
			}
			if missing.TrackID != "a" || missing.Field != tc.wantField || missing.Got != tc.wantGot {
				t.Fatalf("expected a/%s/%d, got %+v", tc.wantField, tc.wantGot, missing)
			}
		})
	}

	var tr Track
	if err := json.Unmarshal([]byte(`{"id":"a","features":[1,2,3,4,5],"start":[-5,120]}`), &tr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *tr.Features != NewFeatureVector(1, 2, 3, 4, 5) || *tr.Start != NewEdgeVector(-5, 120) || tr.End != nil {
		t.Fatalf("unexpected decode: %+v", tr)
	}
}

func TestWeightsFromSlice(t *testing.T) {
	w, err := WeightsFromSlice(nil)
	if err != nil || !w.IsZero() {
		t.Fatalf("expected zero weights, got %v, %v", w, err)
	}
	w, err = WeightsFromSlice([]float64{1, 2, 3, 4, 5, 6, 7})
	if err != nil || w != (Weights{1, 2, 3, 4, 5, 6, 7}) {
		t.Fatalf("expected copied weights, got %v, %v", w, err)
	}
	if _, err := WeightsFromSlice([]float64{2}); !errors.Is(err, ErrInvalidWeights) {
		t.Fatalf("expected ErrInvalidWeights, got %v", err)
	}
}
