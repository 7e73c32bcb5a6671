package playlist

import (
	"iter"

	"github.com/jscyril/mp3cli/api"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// TrackList is the ordered, non-empty sequence of tracks a session plays.
// It is built once at startup and never modified, so it needs no locking.
type TrackList struct {
	tracks []api.Track
}

// NewTrackList copies tracks into a new list. It returns ErrNoTracks when
// there is nothing to play.
func NewTrackList(tracks []api.Track) (*TrackList, error) {
	if len(tracks) == 0 {
		return nil, playerrors.ErrNoTracks
	}

	l := &TrackList{tracks: make([]api.Track, len(tracks))}
	copy(l.tracks, tracks)
	return l, nil
}

// Len returns the number of tracks in the list
func (l *TrackList) Len() int {
	return len(l.tracks)
}

// All iterates over the tracks in play order.
func (l *TrackList) All() iter.Seq2[int, api.Track] {
	return func(yield func(int, api.Track) bool) {
		for i, t := range l.tracks {
			if !yield(i, t) {
				return
			}
		}
	}
}
