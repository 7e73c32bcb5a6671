package control

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/jscyril/mp3cli/api"
)

// KeySource yields keypresses. PollKey returns false when no key arrived
// within timeout or ctx was cancelled.
type KeySource interface {
	PollKey(ctx context.Context, timeout time.Duration) (rune, bool)
}

// Sink is the part of the audio sink the listener drives.
type Sink interface {
	Play()
	Pause()
	Stop()
}

// Listener turns keypresses into sink actions for the duration of one track.
type Listener struct {
	keys   KeySource
	sink   Sink
	keymap KeyMap
	skip   *atomic.Bool
	quit   func()
	poll   time.Duration
}

// NewListener creates a listener. skip is set when the user asks for the
// next track; quit is called when the user asks to leave.
func NewListener(keys KeySource, sink Sink, keymap KeyMap, skip *atomic.Bool, quit func(), poll time.Duration) *Listener {
	return &Listener{
		keys:   keys,
		sink:   sink,
		keymap: keymap,
		skip:   skip,
		quit:   quit,
		poll:   poll,
	}
}

// Run polls for keys until ctx is cancelled, the user skips, or the user
// quits, and returns the command that ended it (api.CmdNone on cancellation).
// Cancellation is noticed within one poll interval.
func (l *Listener) Run(ctx context.Context) api.Command {
	for ctx.Err() == nil {
		key, ok := l.keys.PollKey(ctx, l.poll)
		if !ok {
			continue
		}

		switch l.keymap.Lookup(key) {
		case api.CmdPause:
			l.sink.Pause()
		case api.CmdResume:
			l.sink.Play()
		case api.CmdNext:
			l.skip.Store(true)
			l.sink.Stop()
			return api.CmdNext
		case api.CmdQuit:
			l.quit()
			return api.CmdQuit
		}
	}
	return api.CmdNone
}
