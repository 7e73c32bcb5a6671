package api

import "time"

// Track is one playable file discovered under the music folder.
type Track struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Index    int    `json:"index"`
}

// Command is a user request translated from a keypress.
type Command int

const (
	CmdNone Command = iota
	CmdPause
	CmdResume
	CmdNext
	CmdQuit
)

func (c Command) String() string {
	switch c {
	case CmdPause:
		return "pause"
	case CmdResume:
		return "resume"
	case CmdNext:
		return "next"
	case CmdQuit:
		return "quit"
	default:
		return "none"
	}
}

// EventType identifies driver lifecycle events published on the bus.
type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackEnded
	EventTrackSkipped
	EventTrackFailed
	EventListenerJoined
	EventPlaylistDone
	EventQuit
)

func (t EventType) String() string {
	switch t {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventTrackSkipped:
		return "track_skipped"
	case EventTrackFailed:
		return "track_failed"
	case EventListenerJoined:
		return "listener_joined"
	case EventPlaylistDone:
		return "playlist_done"
	case EventQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// AudioEvent is a single lifecycle notification. Track is nil for events
// that are not tied to a track; Err is set for EventTrackFailed.
type AudioEvent struct {
	Type  EventType
	Track *Track
	Err   error
	At    time.Time
}
