package control

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jscyril/mp3cli/api"
	"github.com/jscyril/mp3cli/internal/config"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// scriptedKeys hands out queued keys, then behaves like an idle terminal.
type scriptedKeys struct {
	keys chan rune
}

func newScriptedKeys(keys ...rune) *scriptedKeys {
	s := &scriptedKeys{keys: make(chan rune, len(keys)+1)}
	for _, k := range keys {
		s.keys <- k
	}
	return s
}

func (s *scriptedKeys) PollKey(ctx context.Context, timeout time.Duration) (rune, bool) {
	select {
	case k := <-s.keys:
		return k, true
	case <-time.After(timeout):
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *recordingSink) Play()  { s.record("play") }
func (s *recordingSink) Pause() { s.record("pause") }
func (s *recordingSink) Stop()  { s.record("stop") }

func (s *recordingSink) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func defaultKeyMap(t *testing.T) KeyMap {
	t.Helper()
	m, err := NewKeyMap(config.GetDefaultConfig().Keys)
	require.NoError(t, err)
	return m
}

func TestNewKeyMapDefaults(t *testing.T) {
	m := defaultKeyMap(t)

	assert.Equal(t, api.CmdPause, m.Lookup('p'))
	assert.Equal(t, api.CmdResume, m.Lookup('r'))
	assert.Equal(t, api.CmdNext, m.Lookup('n'))
	assert.Equal(t, api.CmdQuit, m.Lookup('q'))
	assert.Equal(t, api.CmdQuit, m.Lookup(CtrlC))
	assert.Equal(t, api.CmdNone, m.Lookup('x'))
	assert.Equal(t, api.CmdNone, m.Lookup('P'), "bindings are case-sensitive")
}

func TestNewKeyMapInvalid(t *testing.T) {
	tests := []struct {
		name string
		keys config.KeyMap
	}{
		{"empty", config.KeyMap{Pause: "", Resume: "r", Next: "n", Quit: "q"}},
		{"too long", config.KeyMap{Pause: "pp", Resume: "r", Next: "n", Quit: "q"}},
		{"duplicate", config.KeyMap{Pause: "p", Resume: "p", Next: "n", Quit: "q"}},
		{"control char", config.KeyMap{Pause: "p", Resume: "r", Next: "n", Quit: "\x03"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewKeyMap(tt.keys)
			assert.ErrorIs(t, err, playerrors.ErrInvalidKeyBinding)
		})
	}
}

func TestNewKeyMapCustom(t *testing.T) {
	m, err := NewKeyMap(config.KeyMap{Pause: " ", Resume: "▶", Next: "j", Quit: "x"})
	require.NoError(t, err)

	assert.Equal(t, api.CmdPause, m.Lookup(' '))
	assert.Equal(t, api.CmdResume, m.Lookup('▶'))
	assert.Equal(t, api.CmdNone, m.Lookup('q'))
}

func newTestListener(t *testing.T, keys KeySource, quit func()) (*Listener, *recordingSink, *atomic.Bool) {
	t.Helper()
	sink := &recordingSink{}
	skip := &atomic.Bool{}
	if quit == nil {
		quit = func() {}
	}
	return NewListener(keys, sink, defaultKeyMap(t), skip, quit, 5*time.Millisecond), sink, skip
}

func TestListenerPauseResumeThenNext(t *testing.T) {
	l, sink, skip := newTestListener(t, newScriptedKeys('p', 'x', 'r', 'n', 'p'), nil)

	cmd := l.Run(context.Background())

	assert.Equal(t, api.CmdNext, cmd)
	assert.True(t, skip.Load())
	assert.Equal(t, []string{"pause", "play", "stop"}, sink.Calls(), "keys after next are not consumed")
}

func TestListenerQuit(t *testing.T) {
	quits := 0
	l, sink, skip := newTestListener(t, newScriptedKeys('q'), func() { quits++ })

	cmd := l.Run(context.Background())

	assert.Equal(t, api.CmdQuit, cmd)
	assert.Equal(t, 1, quits)
	assert.False(t, skip.Load())
	assert.Empty(t, sink.Calls())
}

func TestListenerCtrlCQuits(t *testing.T) {
	quits := 0
	l, _, _ := newTestListener(t, newScriptedKeys(CtrlC), func() { quits++ })

	assert.Equal(t, api.CmdQuit, l.Run(context.Background()))
	assert.Equal(t, 1, quits)
}

func TestListenerStopsOnCancel(t *testing.T) {
	l, sink, skip := newTestListener(t, newScriptedKeys(), nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan api.Command)
	go func() { done <- l.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case cmd := <-done:
		assert.Equal(t, api.CmdNone, cmd)
	case <-time.After(time.Second):
		t.Fatal("listener did not observe cancellation")
	}
	assert.False(t, skip.Load())
	assert.Empty(t, sink.Calls())
}
