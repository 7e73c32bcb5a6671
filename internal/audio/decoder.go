package audio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"

	"github.com/jscyril/mp3cli/internal/library"
	playerrors "github.com/jscyril/mp3cli/pkg/errors"
)

// DecodeFunc turns a file path into a PCM source for the sink.
type DecodeFunc func(path string) (beep.StreamSeekCloser, beep.Format, error)

var _ DecodeFunc = DecodeFile

// bufferedFile reads through a bufio.Reader but closes the underlying file.
type bufferedFile struct {
	*bufio.Reader
	io.Closer
}

// DecodeFile opens path read-only and decodes it as MP3. The returned
// streamer owns the file; closing it closes the file.
func DecodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	if !library.IsSupported(path) {
		return nil, beep.Format{}, playerrors.NewPlayerError("decode", path,
			fmt.Errorf("%w: %s", playerrors.ErrInvalidFormat, filepath.Ext(path)))
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, playerrors.NewPlayerError("open", path, err)
	}

	streamer, format, err := mp3.Decode(bufferedFile{Reader: bufio.NewReader(file), Closer: file})
	if err != nil {
		file.Close()
		return nil, beep.Format{}, playerrors.NewPlayerError("decode", path, err)
	}

	return streamer, format, nil
}
