package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions
var (
	ErrUsage             = errors.New("invalid usage")
	ErrNoTracks          = errors.New("no MP3 files found")
	ErrInvalidFormat     = errors.New("unsupported audio format")
	ErrNotTerminal       = errors.New("input is not a terminal")
	ErrInvalidKeyBinding = errors.New("invalid key binding")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// PlayerError wraps errors with additional context
type PlayerError struct {
	Op    string // Operation that failed
	Track string // Track path if applicable
	Err   error  // Underlying error
}

func (e *PlayerError) Error() string {
	if e.Track != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.Track, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *PlayerError) Unwrap() error {
	return e.Err
}

// NewPlayerError creates a new PlayerError
func NewPlayerError(op, track string, err error) *PlayerError {
	return &PlayerError{Op: op, Track: track, Err: err}
}

// ScanError represents an entry the enumerator had to skip
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan error at %s: %v", e.Path, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}
