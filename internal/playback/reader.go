package playback

import (
	"fmt"

	"github.com/spf13/afero"
)

// sampleReader owns the open recording file while a session is playing.
type sampleReader struct {
	file   afero.File
	offset int64
	size   int64
}

func openReader(fs afero.Fs, path string, size, offset int64) (*sampleReader, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileUnavailable, err)
	}
	return &sampleReader{file: f, offset: offset, size: size}, nil
}

// next performs one bounded read at the current offset and advances it by the
// bytes actually read. Reads never go past the size recorded at load time.
func (r *sampleReader) next(chunkSize int) ([]byte, error) {
	remaining := r.size - r.offset
	if remaining <= 0 {
		return nil, nil
	}
	if int64(chunkSize) > remaining {
		chunkSize = int(remaining)
	}

	buf := make([]byte, chunkSize)
	n, err := r.file.ReadAt(buf, r.offset)
	r.offset += int64(n)
	return buf[:n], err
}

func (r *sampleReader) close() error {
	return r.file.Close()
}
