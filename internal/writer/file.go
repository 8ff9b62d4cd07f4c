// Package writer provides output files that appear on disk only once they
// are complete.
package writer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File stages writes in a temporary file next to Path. Close syncs it and
// renames it over Path; Abort throws it away. A File that is neither
// closed nor aborted leaves Path untouched.
type File struct {
	Path string

	tmp  *os.File
	done bool
}

// Create opens a staging file in the directory of path.
func Create(path string) (*File, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".shimkit-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return &File{Path: path, tmp: tmp}, nil
}

func (f *File) Write(p []byte) (int, error) {
	if f.done {
		return 0, os.ErrClosed
	}
	return f.tmp.Write(p)
}

// Close commits the staged bytes to Path.
func (f *File) Close() error {
	if f.done {
		return nil
	}
	f.done = true
	tmpPath := f.tmp.Name()

	if err := f.tmp.Sync(); err != nil {
		_ = f.tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := f.tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.Path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Abort discards the staged bytes. It is a no-op after Close.
func (f *File) Abort() error {
	if f.done {
		return nil
	}
	f.done = true
	return errors.Join(f.tmp.Close(), os.Remove(f.tmp.Name()))
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	f, err := Create(path)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Abort()
		return fmt.Errorf("write temp file: %w", err)
	}
	return f.Close()
}
