// Package fileutils holds filesystem helpers shared by file-backed stores.
package fileutils

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempPrefix marks in-flight temporary files; directory scanners skip them.
const TempPrefix = ".tmp-"

// AtomicWriteFile writes data to a temporary file in the target directory and
// renames it over path, so readers observe either the old or the new content.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	tmpName, err := WriteTemp(filepath.Dir(path), filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// WriteTemp writes data to a new synced temporary file in dir and returns its
// path. The caller publishes it (rename, link) and removes it on failure.
func WriteTemp(dir, name string, data []byte, perm os.FileMode) (string, error) {
	tmp, err := os.CreateTemp(dir, TempPrefix+name+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to set permissions: %w", err)
	}
	return tmpName, nil
}

// IsTempFile reports whether name is an unpublished file from WriteTemp.
func IsTempFile(name string) bool {
	return len(name) >= len(TempPrefix) && name[:len(TempPrefix)] == TempPrefix
}
