package terminal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/cancelreader"
	"golang.org/x/term"

	"github.com/jscyril/mp3cli/internal/config"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// NowPlayingPrefix starts every status line.
const NowPlayingPrefix = "🎶 Now playing: "

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	keyStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	hintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Controller owns the terminal for the life of a session: raw mode, the
// status line and the stream of keypresses.
type Controller struct {
	in     *os.File
	out    io.Writer
	errOut io.Writer
	keys   chan rune
	done   chan struct{}

	mu       sync.Mutex // guards everything below and serialises writes
	raw      bool
	entered  bool
	lineOpen bool // a status line without trailing newline is on screen
	width    int  // terminal columns, 0 when unknown
	oldState *term.State
	reader   cancelreader.CancelReader
}

// New creates a controller reading keys from in and writing to out and errOut.
func New(in *os.File, out, errOut io.Writer) *Controller {
	return &Controller{
		in:     in,
		out:    out,
		errOut: errOut,
		keys:   make(chan rune, 32),
		done:   make(chan struct{}),
	}
}

// Banner renders the one-line controls help shown after the screen is cleared.
func Banner(keys config.KeyMap) string {
	controls := []string{
		control(keys.Pause, "pause"),
		control(keys.Resume, "resume"),
		control(keys.Next, "next"),
		control(keys.Quit, "quit"),
	}
	return titleStyle.Render("🎵 MP3 Player") +
		hintStyle.Render(" - Controls: ") +
		strings.Join(controls, hintStyle.Render(", "))
}

func control(key, label string) string {
	return keyStyle.Render("["+key+"]") + " " + label
}

// Enter switches the terminal to raw mode, starts reading keys, clears the
// screen and prints banner. It can only be called once.
func (c *Controller) Enter(banner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entered {
		return fmt.Errorf("enter raw mode: already entered")
	}

	fd := c.in.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return playerrors.ErrNotTerminal
	}

	state, err := term.MakeRaw(int(fd))
	if err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}

	reader, err := cancelreader.NewReader(c.in)
	if err != nil {
		_ = term.Restore(int(fd), state)
		return fmt.Errorf("open key reader: %w", err)
	}

	if w, _, err := term.GetSize(int(fd)); err == nil {
		c.width = w
	}

	c.entered = true
	c.raw = true
	c.oldState = state
	c.reader = reader
	go readKeys(reader, c.keys, c.done)

	return c.writeLocked(ansi.EraseEntireScreen + ansi.CursorHomePosition + banner + "\r\n")
}

// Restore leaves raw mode and stops the key reader. It is safe to call more
// than once and from any goroutine.
func (c *Controller) Restore() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.raw {
		return nil
	}
	c.raw = false

	if c.lineOpen {
		_ = c.writeLocked("\r\n")
		c.lineOpen = false
	}

	close(c.done)
	c.reader.Cancel()

	if err := term.Restore(int(c.in.Fd()), c.oldState); err != nil {
		return fmt.Errorf("restore terminal: %w", err)
	}
	return nil
}

// RenderNowPlaying replaces the current line with the status for path. The
// line is cut to the terminal width so it never wraps.
func (c *Controller) RenderNowPlaying(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	line := NowPlayingPrefix + path
	if c.width > 1 {
		line = runewidth.Truncate(line, c.width-1, "…")
	}
	err := c.writeLocked(ansi.EraseEntireLine + ansi.CursorHorizontalAbsolute(1) + "\r" + line)
	c.lineOpen = true
	return err
}

// Farewell prints the goodbye message on its own line.
func (c *Controller) Farewell() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lineOpen = false
	return c.writeLocked("\r\nGoodbye!\r\n")
}

// PollKey waits up to timeout for a keypress. It returns false on timeout,
// on cancellation of ctx, and (after waiting) once input is exhausted.
func (c *Controller) PollKey(ctx context.Context, timeout time.Duration) (rune, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case k, ok := <-c.keys:
		if ok {
			return k, true
		}
		// Input is gone; behave like an idle poll so callers do not spin.
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		return 0, false
	case <-timer.C:
		return 0, false
	case <-ctx.Done():
		return 0, false
	}
}

// ErrWriter returns a writer for diagnostics. Output starts below an open
// status line, and newlines become CRLF while the terminal is raw.
func (c *Controller) ErrWriter() io.Writer {
	return diagWriter{c}
}

type diagWriter struct {
	c *Controller
}

func (w diagWriter) Write(p []byte) (int, error) {
	c := w.c
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	if c.lineOpen {
		buf.WriteString("\r\n")
		c.lineOpen = false
	}
	if c.raw {
		buf.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n")))
	} else {
		buf.Write(p)
	}

	if _, err := c.errOut.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

type flusher interface {
	Flush() error
}

func (c *Controller) writeLocked(s string) error {
	if _, err := io.WriteString(c.out, s); err != nil {
		return err
	}
	if f, ok := c.out.(flusher); ok {
		return f.Flush()
	}
	return nil
}
