package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"

	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// resampleQuality is passed to beep.Resample for sources whose sample rate
// differs from the device rate.
const resampleQuality = 4

// source is one appended track: what the device hears and what must be
// closed once it is done.
type source struct {
	streamer beep.Streamer
	closer   beep.StreamSeekCloser
}

// Sink is a queued playback device. It registers itself with the output
// once and is then pulled by the output's audio callback for the life of
// the process, emitting silence while empty or paused.
//
// Every method, including Stream, holds mu for its own duration only.
type Sink struct {
	mu         sync.Mutex
	out        Output
	sampleRate beep.SampleRate
	current    *source
	queue      []*source
	paused     bool
}

// NewSink initialises out at sampleRate and starts feeding it.
func NewSink(out Output, sampleRate beep.SampleRate, buffer time.Duration) (*Sink, error) {
	if sampleRate <= 0 {
		return nil, playerrors.NewPlayerError("speaker_init", "",
			fmt.Errorf("%w: sample rate %d", playerrors.ErrInvalidFormat, sampleRate))
	}

	if err := out.Init(sampleRate, sampleRate.N(buffer)); err != nil {
		return nil, playerrors.NewPlayerError("speaker_init", "", err)
	}

	s := &Sink{
		out:        out,
		sampleRate: sampleRate,
	}
	out.Play(s)
	return s, nil
}

// Append queues src. It starts playing right away unless the sink is
// paused or another source is still playing.
func (s *Sink) Append(src beep.StreamSeekCloser, format beep.Format) error {
	if format.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", playerrors.ErrInvalidFormat, format.SampleRate)
	}

	var streamer beep.Streamer = src
	if format.SampleRate != s.sampleRate {
		streamer = beep.Resample(resampleQuality, format.SampleRate, s.sampleRate, src)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &source{streamer: streamer, closer: src}
	if s.current == nil {
		s.current = entry
	} else {
		s.queue = append(s.queue, entry)
	}
	return nil
}

// Play resumes a paused sink. It is a no-op when already playing.
func (s *Sink) Play() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// Pause halts output without discarding the current source. It is a no-op
// when already paused.
func (s *Sink) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Stop closes and drops the current and all queued sources. The pause
// state is kept; a later Append works as usual.
func (s *Sink) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.closer.Close()
		s.current = nil
	}
	for _, q := range s.queue {
		q.closer.Close()
	}
	s.queue = nil
}

// Empty reports whether there is no source left to play.
func (s *Sink) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == nil && len(s.queue) == 0
}

// Close stops playback and releases the output device.
func (s *Sink) Close() {
	s.Stop()
	s.out.Close()
}

// Stream implements beep.Streamer. It is called from the output's audio
// goroutine, always fills samples and never reports the end of stream.
func (s *Sink) Stream(samples [][2]float64) (n int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	filled := 0
	for filled < len(samples) && !s.paused && s.current != nil {
		got, more := s.current.streamer.Stream(samples[filled:])
		filled += got
		if !more || got == 0 {
			s.advanceLocked()
		}
	}

	for i := filled; i < len(samples); i++ {
		samples[i] = [2]float64{}
	}
	return len(samples), true
}

// Err implements beep.Streamer.
func (s *Sink) Err() error {
	return nil
}

// advanceLocked closes the drained source and moves to the next queued one.
func (s *Sink) advanceLocked() {
	s.current.closer.Close()
	s.current = nil
	if len(s.queue) > 0 {
		s.current = s.queue[0]
		s.queue = s.queue[1:]
	}
}
