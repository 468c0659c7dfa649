// Package playlistfile reads fully populated playlists from local JSON or
// YAML files.
//
// A file holds either a playlist object ({id, name, tracks}) or a bare list of
// tracks. Each track gives its vectors compactly (features [5], start [2],
// end [2]) or in catalog-export form: named audio_features plus a list of
// sections whose first and last entries become the start and end edges.
package playlistfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ewilliams-labs/cadence/internal/core/domain"
)

// Format is the encoding of a playlist file.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("playlistfile: unsupported extension for %s", path)
}

// Loader implements ports.PlaylistSource over the local filesystem.
type Loader struct{}

// NewLoader creates a Loader.
func NewLoader() *Loader { return &Loader{} }

// Load reads the playlist at path and checks that it has tracks and that
// every track carries all of its vectors. A playlist without an ID takes the
// file's base name.
func (l *Loader) Load(ctx context.Context, path string) (domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return domain.Playlist{}, err
	}
	format, err := FormatFor(path)
	if err != nil {
		return domain.Playlist{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("playlistfile: reading %s: %w", path, err)
	}
	p, err := Decode(data, format)
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("playlistfile: %s: %w", path, err)
	}
	if p.ID == "" {
		p.ID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if p.Name == "" {
		p.Name = p.ID
	}
	if err := p.Validate(); err != nil {
		return domain.Playlist{}, fmt.Errorf("playlistfile: %s: %w", path, err)
	}
	return p, nil
}

type wirePlaylist struct {
	ID     string      `json:"id" yaml:"id"`
	Name   string      `json:"name" yaml:"name"`
	Tracks []wireTrack `json:"tracks" yaml:"tracks"`
}

type wireTrack struct {
	ID            string                `json:"id" yaml:"id"`
	Name          string                `json:"name" yaml:"name"`
	Features      []float64      `json:"features" yaml:"features"`
	Start         []float64      `json:"start" yaml:"start"`
	End           []float64      `json:"end" yaml:"end"`
	AudioFeatures *audioFeatures `json:"audio_features" yaml:"audio_features"`
	Sections      []section      `json:"sections" yaml:"sections"`
}

type audioFeatures struct {
	Acousticness     float64 `json:"acousticness" yaml:"acousticness"`
	Danceability     float64 `json:"danceability" yaml:"danceability"`
	Energy           float64 `json:"energy" yaml:"energy"`
	Instrumentalness float64 `json:"instrumentalness" yaml:"instrumentalness"`
	Valence          float64 `json:"valence" yaml:"valence"`
}

type section struct {
	Loudness float64 `json:"loudness" yaml:"loudness"`
	Tempo    float64 `json:"tempo" yaml:"tempo"`
}

// toDomain maps a wire track; compact vectors win over the export form.
// Compact vectors of the wrong length are rejected.
func (wt wireTrack) toDomain() (domain.Track, error) {
	t, err := domain.NewTrack(wt.ID, wt.Name, wt.Features, wt.Start, wt.End)
	if err != nil {
		return domain.Track{}, err
	}
	if t.Features == nil && wt.AudioFeatures != nil {
		af := wt.AudioFeatures
		f := domain.NewFeatureVector(af.Acousticness, af.Danceability, af.Energy, af.Instrumentalness, af.Valence)
		t.Features = &f
	}
	if len(wt.Sections) > 0 {
		if t.Start == nil {
			first := wt.Sections[0]
			s := domain.NewEdgeVector(first.Loudness, first.Tempo)
			t.Start = &s
		}
		if t.End == nil {
			last := wt.Sections[len(wt.Sections)-1]
			e := domain.NewEdgeVector(last.Loudness, last.Tempo)
			t.End = &e
		}
	}
	return t, nil
}

// Decode parses a playlist document. Duplicate track IDs are rejected.
func Decode(data []byte, format Format) (domain.Playlist, error) {
	var wp wirePlaylist
	switch format {
	case FormatJSON:
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("[")) {
			if err := json.Unmarshal(data, &wp.Tracks); err != nil {
				return domain.Playlist{}, fmt.Errorf("decoding tracks: %w", err)
			}
		} else if err := json.Unmarshal(data, &wp); err != nil {
			return domain.Playlist{}, fmt.Errorf("decoding playlist: %w", err)
		}
	case FormatYAML:
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return domain.Playlist{}, fmt.Errorf("decoding playlist: %w", err)
		}
		if len(root.Content) > 0 && root.Content[0].Kind == yaml.SequenceNode {
			if err := root.Content[0].Decode(&wp.Tracks); err != nil {
				return domain.Playlist{}, fmt.Errorf("decoding tracks: %w", err)
			}
		} else if err := root.Decode(&wp); err != nil {
			return domain.Playlist{}, fmt.Errorf("decoding playlist: %w", err)
		}
	default:
		return domain.Playlist{}, fmt.Errorf("unknown format %q", format)
	}

	p := domain.Playlist{ID: wp.ID, Name: wp.Name, Tracks: make([]domain.Track, 0, len(wp.Tracks))}
	for _, wt := range wp.Tracks {
		t, err := wt.toDomain()
		if err != nil {
			return domain.Playlist{}, err
		}
		if err := p.AddTrack(t); err != nil {
			return domain.Playlist{}, fmt.Errorf("track %q: %w", wt.ID, err)
		}
	}
	return p, nil
}
