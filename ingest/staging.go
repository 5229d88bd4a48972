package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Staging is the transient directory uploaded files are written to for
// the duration of one ingestion run. Callers must call Cleanup on every
// exit path; it is safe to call more than once.
type Staging struct {
	dir string
}

func NewStaging(root string) (*Staging, error) {
	if root != "" {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("create staging root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(root, "staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	return &Staging{dir: dir}, nil
}

// Add writes one uploaded file into the staging directory and returns
// its path.
func (s *Staging) Add(name string, r io.Reader) (string, error) {
	path := filepath.Join(s.dir, filepath.Base(name))

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return "", err
	}

	if err := f.Close(); err != nil {
		return "", err
	}

	return path, nil
}

func (s *Staging) Dir() string {
	return s.dir
}

func (s *Staging) Cleanup() error {
	return os.RemoveAll(s.dir)
}
