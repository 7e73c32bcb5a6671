package control

import (
	"fmt"
	"unicode/utf8"

	"github.com/jscyril/mp3cli/api"
	"github.com/jscyril/mp3cli/internal/config"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// CtrlC is the byte a raw-mode terminal sends for Ctrl-C. It always quits.
const CtrlC rune = 0x03

// KeyMap translates keypresses into commands.
type KeyMap map[rune]api.Command

// NewKeyMap builds a KeyMap from configured bindings. Every binding must be a
// single character and no two commands may share one.
func NewKeyMap(keys config.KeyMap) (KeyMap, error) {
	bindings := []struct {
		name string
		key  string
		cmd  api.Command
	}{
		{"pause", keys.Pause, api.CmdPause},
		{"resume", keys.Resume, api.CmdResume},
		{"next", keys.Next, api.CmdNext},
		{"quit", keys.Quit, api.CmdQuit},
	}

	m := KeyMap{CtrlC: api.CmdQuit}
	for _, b := range bindings {
		if utf8.RuneCountInString(b.key) != 1 {
			return nil, fmt.Errorf("%w: %s must be one character, got %q",
				playerrors.ErrInvalidKeyBinding, b.name, b.key)
		}
		r, _ := utf8.DecodeRuneInString(b.key)
		if r == utf8.RuneError || r < 0x20 || r == 0x7f {
			return nil, fmt.Errorf("%w: %s is not a printable character",
				playerrors.ErrInvalidKeyBinding, b.name)
		}
		if prev, ok := m[r]; ok {
			return nil, fmt.Errorf("%w: %q is bound to both %s and %s",
				playerrors.ErrInvalidKeyBinding, b.key, prev, b.cmd)
		}
		m[r] = b.cmd
	}
	return m, nil
}

// Lookup returns the command bound to key, or api.CmdNone.
func (m KeyMap) Lookup(key rune) api.Command {
	return m[key]
}
