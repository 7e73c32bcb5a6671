package player

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/faiface/beep"

	"github.com/jscyril/mp3cli/api"
	"github.com/jscyril/mp3cli/internal/audio"
	"github.com/jscyril/mp3cli/internal/config"
	"github.com/jscyril/mp3cli/internal/control"
	"github.com/jscyril/mp3cli/internal/playlist"
	"github.com/jscyril/mp3cli/pkg/events"
)

// Sink is the audio sink as seen by the driver.
type Sink interface {
	control.Sink
	Append(src beep.StreamSeekCloser, format beep.Format) error
	Empty() bool
}

// Terminal is the terminal controller as seen by the driver.
type Terminal interface {
	control.KeySource
	RenderNowPlaying(path string) error
	Farewell() error
	Restore() error
}

// Options tunes a Driver. Zero fields take defaults.
type Options struct {
	Decode       audio.DecodeFunc
	Bus          *events.EventBus // may be nil
	Keys         control.KeyMap
	Logger       *log.Logger // per-track diagnostics
	Exit         func(code int)
	ListenerPoll time.Duration
	WaitInterval time.Duration
}

// Driver plays a track list from start to end, one track at a time, with a
// control listener running alongside each track.
type Driver struct {
	tracks *playlist.TrackList
	sink   Sink
	term   Terminal
	opts   Options

	skip     atomic.Bool
	quitOnce sync.Once
}

// NewDriver creates a driver for tracks.
func NewDriver(tracks *playlist.TrackList, sink Sink, term Terminal, opts Options) *Driver {
	defaults := config.GetDefaultConfig()

	if opts.Decode == nil {
		opts.Decode = audio.DecodeFile
	}
	if opts.Keys == nil {
		opts.Keys, _ = control.NewKeyMap(defaults.Keys)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(os.Stderr, "", 0)
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.ListenerPoll <= 0 {
		opts.ListenerPoll = defaults.Playback.ListenerPoll
	}
	if opts.WaitInterval <= 0 {
		opts.WaitInterval = defaults.Playback.WaitInterval
	}

	return &Driver{
		tracks: tracks,
		sink:   sink,
		term:   term,
		opts:   opts,
	}
}

// Run plays every track in order. It returns nil once the list is
// exhausted, or ctx.Err() if ctx is cancelled first. A quit request from
// the user ends the process through Options.Exit.
func (d *Driver) Run(ctx context.Context) error {
	for _, track := range d.tracks.All() {
		if err := d.playTrack(ctx, track); err != nil {
			return err
		}
	}

	d.publish(api.EventPlaylistDone, nil, nil)
	return nil
}

func (d *Driver) playTrack(ctx context.Context, track api.Track) error {
	if err := d.term.RenderNowPlaying(track.FilePath); err != nil {
		return fmt.Errorf("render status line: %w", err)
	}
	d.publish(api.EventTrackStarted, &track, nil)

	// A track that cannot be decoded gets no listener; it is over before
	// there is anything to control.
	src, format, err := d.opts.Decode(track.FilePath)
	if err != nil {
		d.fail(track, err)
		return nil
	}

	d.skip.Store(false)
	if err := d.sink.Append(src, format); err != nil {
		src.Close()
		d.fail(track, err)
		return nil
	}
	d.sink.Play()

	trackCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go d.listen(trackCtx, &wg)

	waitErr := d.wait(ctx)

	cancel()
	wg.Wait()
	d.publish(api.EventListenerJoined, &track, nil)

	if waitErr != nil {
		return waitErr
	}
	if d.skip.Load() {
		d.publish(api.EventTrackSkipped, &track, nil)
	} else {
		d.publish(api.EventTrackEnded, &track, nil)
	}
	return nil
}

// wait blocks until the sink drains or the listener requests a skip,
// checking once per WaitInterval.
func (d *Driver) wait(ctx context.Context) error {
	ticker := time.NewTicker(d.opts.WaitInterval)
	defer ticker.Stop()

	for !d.sink.Empty() && !d.skip.Load() {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *Driver) listen(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer func() {
		if r := recover(); r != nil {
			d.restore()
			panic(r)
		}
	}()

	listener := control.NewListener(d.term, d.sink, d.opts.Keys, &d.skip, d.quit, d.opts.ListenerPoll)
	listener.Run(ctx)
}

// quit prints the farewell, restores the terminal and exits with status 0.
func (d *Driver) quit() {
	d.quitOnce.Do(func() {
		if err := d.term.Farewell(); err != nil {
			d.opts.Logger.Printf("farewell: %v", err)
		}
		d.restore()
		d.publish(api.EventQuit, nil, nil)
		d.opts.Exit(0)
	})
}

func (d *Driver) restore() {
	if err := d.term.Restore(); err != nil {
		d.opts.Logger.Printf("restore terminal: %v", err)
	}
}

func (d *Driver) fail(track api.Track, err error) {
	d.opts.Logger.Printf("skipping %s: %v", track.FilePath, err)
	d.publish(api.EventTrackFailed, &track, err)
}

func (d *Driver) publish(t api.EventType, track *api.Track, err error) {
	d.opts.Bus.Publish(api.AudioEvent{Type: t, Track: track, Err: err})
}
