package audio

import (
	"errors"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

const testRate = beep.SampleRate(44100)

type fakeOutput struct {
	rate      beep.SampleRate
	bufSize   int
	initErr   error
	streamers []beep.Streamer
	closed    bool
}

func (o *fakeOutput) Init(sampleRate beep.SampleRate, bufferSize int) error {
	o.rate, o.bufSize = sampleRate, bufferSize
	return o.initErr
}

func (o *fakeOutput) Play(s ...beep.Streamer) { o.streamers = append(o.streamers, s...) }

func (o *fakeOutput) Close() { o.closed = true }

// testSource yields n stereo samples of a constant value.
type testSource struct {
	n, pos int
	value  float64
	closed bool
}

func (s *testSource) Stream(samples [][2]float64) (int, bool) {
	if s.pos >= s.n {
		return 0, false
	}
	k := min(len(samples), s.n-s.pos)
	for i := 0; i < k; i++ {
		samples[i] = [2]float64{s.value, s.value}
	}
	s.pos += k
	return k, true
}

func (s *testSource) Err() error { return nil }
func (s *testSource) Len() int { return s.n }
func (s *testSource) Position() int { return s.pos }
func (s *testSource) Seek(p int) error { s.pos = p; return nil }
func (s *testSource) Close() error { s.closed = true; return nil }

func newTestSink(t *testing.T) (*Sink, *fakeOutput) {
	t.Helper()
	out := &fakeOutput{}
	sink, err := NewSink(out, testRate, 100*time.Millisecond)
	require.NoError(t, err)
	return sink, out
}

func pull(s beep.Streamer, n int) [][2]float64 {
	buf := make([][2]float64, n)
	s.Stream(buf)
	return buf
}

func TestNewSinkRegistersWithOutput(t *testing.T) {
	sink, out := newTestSink(t)

	assert.Equal(t, testRate, out.rate)
	assert.Equal(t, testRate.N(100*time.Millisecond), out.bufSize)
	require.Len(t, out.streamers, 1)
	assert.Same(t, sink, out.streamers[0])
	assert.True(t, sink.Empty())
	assert.Equal(t, [2]float64{}, pull(sink, 4)[0], "an idle sink plays silence")
}

func TestNewSinkInitFailure(t *testing.T) {
	out := &fakeOutput{initErr: errors.New("no device")}

	_, err := NewSink(out, testRate, time.Second)

	var pe *playerrors.PlayerError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "speaker_init", pe.Op)
	assert.Empty(t, out.streamers)

	_, err = NewSink(&fakeOutput{}, 0, time.Second)
	assert.ErrorIs(t, err, playerrors.ErrInvalidFormat)
}

func TestSinkPlaysSourceToNaturalEnd(t *testing.T) {
	sink, _ := newTestSink(t)
	src := &testSource{n: 10, value: 0.5}

	require.NoError(t, sink.Append(src, beep.Format{SampleRate: testRate, NumChannels: 2, Precision: 2}))
	assert.False(t, sink.Empty())

	buf := pull(sink, 16)
	assert.Equal(t, [2]float64{0.5, 0.5}, buf[9])
	assert.Equal(t, [2]float64{}, buf[10], "silence after the source drains")

	assert.True(t, sink.Empty())
	assert.True(t, src.closed)
}

func TestSinkPauseResumeKeepsSource(t *testing.T) {
	sink, _ := newTestSink(t)
	src := &testSource{n: 100, value: 0.25}
	require.NoError(t, sink.Append(src, beep.Format{SampleRate: testRate}))

	pull(sink, 10)
	assert.Equal(t, 10, src.pos)

	sink.Pause()
	sink.Pause() // no-op

	buf := pull(sink, 10)
	assert.Equal(t, [2]float64{}, buf[0])
	assert.Equal(t, 10, src.pos, "paused sink must not consume the source")
	assert.False(t, sink.Empty())

	sink.Play()
	sink.Play() // no-op

	buf = pull(sink, 10)
	assert.Equal(t, [2]float64{0.25, 0.25}, buf[0])
	assert.Equal(t, 20, src.pos)
	assert.False(t, src.closed)
}

func TestSinkStopDiscardsAndAcceptsNextAppend(t *testing.T) {
	sink, _ := newTestSink(t)
	first := &testSource{n: 100}
	queued := &testSource{n: 100}
	require.NoError(t, sink.Append(first, beep.Format{SampleRate: testRate}))
	require.NoError(t, sink.Append(queued, beep.Format{SampleRate: testRate}))

	sink.Stop()

	assert.True(t, sink.Empty())
	assert.True(t, first.closed)
	assert.True(t, queued.closed)

	// Stop on an empty sink is harmless.
	assert.NotPanics(t, sink.Stop)

	next := &testSource{n: 4, value: 1}
	require.NoError(t, sink.Append(next, beep.Format{SampleRate: testRate}))
	buf := pull(sink, 4)
	assert.Equal(t, [2]float64{1, 1}, buf[3])
}

func TestSinkQueueAdvancesWithinOneCallback(t *testing.T) {
	sink, _ := newTestSink(t)
	a := &testSource{n: 3, value: 0.1}
	b := &testSource{n: 5, value: 0.2}
	require.NoError(t, sink.Append(a, beep.Format{SampleRate: testRate}))
	require.NoError(t, sink.Append(b, beep.Format{SampleRate: testRate}))

	buf := pull(sink, 6)

	assert.Equal(t, [2]float64{0.1, 0.1}, buf[2])
	assert.Equal(t, [2]float64{0.2, 0.2}, buf[3])
	assert.True(t, a.closed)
	assert.False(t, b.closed)
	assert.False(t, sink.Empty())

	pull(sink, 6)
	assert.True(t, b.closed)
	assert.True(t, sink.Empty())
}

func TestSinkAppendWhilePaused(t *testing.T) {
	sink, _ := newTestSink(t)
	sink.Pause()

	src := &testSource{n: 10, value: 1}
	require.NoError(t, sink.Append(src, beep.Format{SampleRate: testRate}))
	assert.False(t, sink.Empty())

	pull(sink, 10)
	assert.Equal(t, 0, src.pos)

	sink.Play()
	pull(sink, 10)
	assert.Equal(t, 10, src.pos)
}

func TestSinkResamplesOtherRates(t *testing.T) {
	sink, _ := newTestSink(t)
	src := &testSource{n: 2205, value: 0.5}

	require.NoError(t, sink.Append(src, beep.Format{SampleRate: 22050}))

	for i := 0; i < 10 && !sink.Empty(); i++ {
		pull(sink, 1024)
	}
	assert.True(t, sink.Empty())
	assert.True(t, src.closed)
}

func TestSinkAppendInvalidFormat(t *testing.T) {
	sink, _ := newTestSink(t)

	err := sink.Append(&testSource{n: 1}, beep.Format{})
	assert.ErrorIs(t, err, playerrors.ErrInvalidFormat)
	assert.True(t, sink.Empty())
}

func TestSinkClose(t *testing.T) {
	sink, out := newTestSink(t)
	src := &testSource{n: 10}
	require.NoError(t, sink.Append(src, beep.Format{SampleRate: testRate}))

	sink.Close()

	assert.True(t, out.closed)
	assert.True(t, src.closed)
}
