package terminal

import (
	"io"
	"unicode/utf8"
)

const escape = 0x1b

// maxPending bounds an unfinished sequence carried between reads.
const maxPending = 32

// readKeys forwards every key read from r to keys until r fails or done is
// closed. keys is closed on return. A sequence split across reads is
// completed by the next read.
func readKeys(r io.ReadCloser, keys chan<- rune, done <-chan struct{}) {
	defer close(keys)
	defer r.Close()

	buf := make([]byte, 64)
	var pending []byte
	for {
		n, err := r.Read(buf)
		in := buf[:n]
		if len(pending) > 0 && n > 0 {
			if len(pending) == 1 && pending[0] == escape && in[0] != '[' && in[0] != 'O' {
				// The Esc key on its own.
				pending = nil
			}
			in = append(pending, in...)
		}

		parsed, rest := parseKeys(in)
		pending = nil
		if len(rest) <= maxPending {
			pending = append(pending, rest...)
		}

		for _, k := range parsed {
			select {
			case keys <- k:
			case <-done:
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// parseKeys splits raw terminal input into runes. Escape sequences (arrow
// and function keys, alt-chords) are dropped as a whole so their trailing
// letters are not mistaken for commands. rest holds an unfinished escape
// sequence or rune at the end of buf.
func parseKeys(buf []byte) (keys []rune, rest []byte) {
	for i := 0; i < len(buf); {
		if buf[i] == escape {
			n, complete := escapeLen(buf[i:])
			if !complete {
				return keys, buf[i:]
			}
			i += n
			continue
		}
		if !utf8.FullRune(buf[i:]) {
			return keys, buf[i:]
		}
		r, size := utf8.DecodeRune(buf[i:])
		keys = append(keys, r)
		i += size
	}
	return keys, nil
}

// escapeLen returns the length of the escape sequence at the start of b and
// whether b holds all of it.
func escapeLen(b []byte) (int, bool) {
	if len(b) < 2 {
		return len(b), false
	}
	switch b[1] {
	case '[':
		// CSI: parameters up to a final byte in 0x40-0x7e.
		for i := 2; i < len(b); i++ {
			if b[i] >= 0x40 && b[i] <= 0x7e {
				return i + 1, true
			}
		}
		return len(b), false
	case 'O':
		// SS3: exactly one final byte.
		if len(b) < 3 {
			return len(b), false
		}
		return 3, true
	default:
		return 2, true
	}
}
