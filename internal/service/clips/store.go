// Package clips persists synthesized utterances as numbered MP3 files.
package clips

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Store writes output_<n>.mp3 files under a directory.
type Store struct {
	fs  afero.Fs
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(fs afero.Fs, dir string) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create clip directory: %w", err)
	}
	return &Store{fs: fs, dir: dir}, nil
}

// Path returns the file name for clip index.
func (s *Store) Path(index int) string {
	return filepath.Join(s.dir, fmt.Sprintf("output_%d.mp3", index))
}

// Save writes audio for clip index, replacing any earlier file, and returns its path.
func (s *Store) Save(index int, audio []byte) (string, error) {
	path := s.Path(index)
	if err := afero.WriteFile(s.fs, path, audio, 0o644); err != nil {
		return "", fmt.Errorf("write clip %d: %w", index, err)
	}
	return path, nil
}

// Open opens clip index for reading.
func (s *Store) Open(index int) (io.ReadCloser, error) {
	f, err := s.fs.Open(s.Path(index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("clip %d: %w", index, os.ErrNotExist)
		}
		return nil, fmt.Errorf("open clip %d: %w", index, err)
	}
	return f, nil
}
