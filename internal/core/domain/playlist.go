package domain

// Playlist is an ordered collection of tracks. Order is the starting point
// for sequencing and is ignored by clustering.
type Playlist struct {
	ID     string  `json:"id" yaml:"id"`
	Name   string  `json:"name" yaml:"name"`
	Tracks []Track `json:"tracks" yaml:"tracks"`
}

// AddTrack appends a track to the playlist while preventing duplicate IDs.
// If the incoming track has a non-empty ID that already exists in the
// playlist, AddTrack returns ErrDuplicateTrack.
func (p *Playlist) AddTrack(t Track) error {
	if t.ID != "" {
		for _, ex := range p.Tracks {
			if ex.ID == t.ID {
				return ErrDuplicateTrack
			}
		}
	}
	p.Tracks = append(p.Tracks, t)
	return nil
}

// Validate checks that the playlist is non-empty and that every track carries
// its feature and edge vectors.
func (p Playlist) Validate() error {
	if len(p.Tracks) == 0 {
		return Degenerate("playlist %q has no tracks", p.ID)
	}
	for _, t := range p.Tracks {
		if err := t.Check(); err != nil {
			return err
		}
	}
	return nil
}

// Reorder returns the tracks in the given index order, such as the Order of
// a sequenced path.
func (p Playlist) Reorder(order []int) []Track {
	out := make([]Track, 0, len(order))
	for _, i := range order {
		out = append(out, p.Tracks[i])
	}
	return out
}
