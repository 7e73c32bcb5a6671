package library

import (
	"context"
	"crypto/md5"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/jscyril/mp3cli/api"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// Extension is the only file extension the scanner accepts. The match is
// case-sensitive.
const Extension = ".mp3"

// Scanner walks a directory tree and collects playable files.
type Scanner struct {
	// OnError is called for every entry the walk had to skip.
	OnError func(*playerrors.ScanError)
}

// NewScanner creates a new file scanner
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsSupported reports whether path has the accepted extension.
func IsSupported(path string) bool {
	return filepath.Ext(path) == Extension
}

// Scan walks root recursively and returns the MP3 files below it in
// filepath.WalkDir order: lexical by name within each directory, a
// directory's contents right after the directory itself.
//
// Unreadable entries are skipped and reported to OnError; an unreadable root
// therefore yields no tracks rather than an error. Only cancellation of ctx
// makes Scan fail.
func (s *Scanner) Scan(ctx context.Context, root string) ([]api.Track, error) {
	var tracks []api.Track

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			s.report(p, err)
			if d != nil && d.IsDir() && p != root {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !IsSupported(p) {
			return nil
		}

		tracks = append(tracks, api.Track{
			ID:       generateTrackID(p),
			FilePath: p,
			Index:    len(tracks),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tracks, nil
}

func (s *Scanner) report(path string, err error) {
	if s.OnError != nil {
		s.OnError(&playerrors.ScanError{Path: path, Err: err})
	}
}

// generateTrackID creates a unique ID for a track based on its file path
func generateTrackID(filePath string) string {
	hash := md5.Sum([]byte(filePath))
	return fmt.Sprintf("track-%x", hash[:8])
}
