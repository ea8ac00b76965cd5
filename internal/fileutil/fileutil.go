package fileutil

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteFileAtomic writes data to path via a temp file in the same directory
// followed by a rename, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WaitForStableFile blocks until path keeps the same non-zero size across one
// settle interval, signalling that the writer has finished. It gives up after
// maxChecks intervals or when ctx is cancelled.
func WaitForStableFile(ctx context.Context, path string, settle time.Duration, maxChecks int) error {
	if settle <= 0 {
		settle = 100 * time.Millisecond
	}
	if maxChecks <= 0 {
		maxChecks = 60
	}

	var lastSize int64 = -1
	for i := 0; i < maxChecks; i++ {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		size := info.Size()
		if size > 0 && size == lastSize {
			return nil
		}
		lastSize = size

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(settle):
		}
	}
	return fmt.Errorf("file %s did not stabilize after %d checks", path, maxChecks)
}
