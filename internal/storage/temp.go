package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// TempDir holds short lived local copies of remote objects.
type TempDir struct {
	dir string
}

// NewTempDir creates a new TempDir.
// If dir is empty, a "framethumb" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewTempDir(dir string) (*TempDir, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "framethumb")
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	return &TempDir{dir: dir}, nil
}

// Dir returns the temporary directory path.
func (t *TempDir) Dir() string {
	return t.dir
}

// SaveTemp saves data to a temporary file and returns the file path.
// The name is used as a base for the filename with a unique suffix; its
// extension is kept so tools probing by extension still work.
func (t *TempDir) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	name = filepath.Base(name)
	ext := filepath.Ext(name)
	pattern := strings.TrimSuffix(name, ext) + "_*" + ext

	f, err := os.CreateTemp(t.dir, pattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	fileName := f.Name()
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(fileName)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(fileName)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// CleanupTemp removes the specified temporary files.
// It continues cleanup even if some files fail to delete,
// returning the first error encountered.
func (t *TempDir) CleanupTemp(paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove temp file %s: %w", p, err)
			}
		}
	}
	return firstErr
}
