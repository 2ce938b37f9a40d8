package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewLocalStorage(t *testing.T) {
	t.Run("accepts existing directory", func(t *testing.T) {
		root := t.TempDir()

		storage, err := NewLocalStorage(root)
		if err != nil {
			t.Fatalf("NewLocalStorage() error = %v", err)
		}
		if storage.Root() != root {
			t.Errorf("Root() = %v, want %v", storage.Root(), root)
		}
	})

	t.Run("rejects missing directory", func(t *testing.T) {
		_, err := NewLocalStorage(filepath.Join(t.TempDir(), "missing"))
		if err == nil {
			t.Fatal("expected error for missing root")
		}
	})

	t.Run("rejects regular file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := NewLocalStorage(file); err == nil {
			t.Fatal("expected error for non-directory root")
		}
	})

	t.Run("rejects empty root", func(t *testing.T) {
		if _, err := NewLocalStorage(""); err == nil {
			t.Fatal("expected error for empty root")
		}
	})
}

func TestLocalStorage_Fetch(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	writeObject(t, storage.Root(), "0a1b2c3d_12.mkv", "video")

	t.Run("returns path of existing object", func(t *testing.T) {
		f, err := storage.Fetch(ctx, "0a1b2c3d_12.mkv")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		defer func() { _ = f.Close() }()

		want := filepath.Join(storage.Root(), "0a1b2c3d_12.mkv")
		if f.Path != want {
			t.Errorf("Path = %v, want %v", f.Path, want)
		}
	})

	t.Run("close leaves object in place", func(t *testing.T) {
		f, err := storage.Fetch(ctx, "0a1b2c3d_12.mkv")
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if err := f.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
		if _, err := os.Stat(f.Path); err != nil {
			t.Errorf("object removed by Close: %v", err)
		}
	})

	t.Run("missing object returns ErrNotFound", func(t *testing.T) {
		_, err := storage.Fetch(ctx, "0a1b2c3d_12_1000.webp")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("directory returns ErrNotFound", func(t *testing.T) {
		if err := os.Mkdir(filepath.Join(storage.Root(), "dir.mkv"), 0750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		_, err := storage.Fetch(ctx, "dir.mkv")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("rejects keys escaping the root", func(t *testing.T) {
		for _, key := range []string{"../etc/passwd", "/etc/passwd", ""} {
			_, err := storage.Fetch(ctx, key)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Fetch(%q): expected ErrInvalidKey, got %v", key, err)
			}
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := storage.Fetch(ctx, "0a1b2c3d_12.mkv")
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestFile_Close(t *testing.T) {
	t.Run("nil file", func(t *testing.T) {
		var f *File
		if err := f.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})

	t.Run("release runs once", func(t *testing.T) {
		calls := 0
		f := &File{Path: "x", release: func() error { calls++; return nil }}
		_ = f.Close()
		_ = f.Close()
		if calls != 1 {
			t.Errorf("release called %d times, want 1", calls)
		}
	})
}

func setupTestStorage(t *testing.T) *LocalStorage {
	t.Helper()
	storage, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}
	return storage
}

func writeObject(t *testing.T, root, key, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(root, key), []byte(content), 0600); err != nil {
		t.Fatalf("failed to write object: %v", err)
	}
}
