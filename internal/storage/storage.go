// Package storage locates video and subtitle assets.
// It defines the Storage interface (port) for hexagonal architecture and
// implementations for a local directory tree and an S3 bucket.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Storage makes stored assets available as local files, which is what the
// ffmpeg based decoder reads.
type Storage interface {
	// Fetch returns a local file holding the object stored under key.
	// Returns ErrNotFound if the object does not exist.
	// The caller must Close the returned File.
	Fetch(ctx context.Context, key string) (*File, error)
}

// File is a local copy of, or a direct reference to, a stored object.
type File struct {
	// Path is the local filesystem path of the object.
	Path    string
	release func() error
}

// Close releases any temporary copy. It is safe to call more than once.
func (f *File) Close() error {
	if f == nil || f.release == nil {
		return nil
	}
	release := f.release
	f.release = nil
	return release()
}
