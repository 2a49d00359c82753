// Package artifact guards what reaches the output directory: every file is
// checked against its closed-form size, written atomically and recorded in
// a manifest.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSizeIntegrity is the sentinel wrapped by SizeIntegrityError.
var ErrSizeIntegrity = errors.New("artifact: size integrity")

// SizeIntegrityError reports a file whose byte length differs from the size
// its header implies.
type SizeIntegrityError struct {
	Name string
	Want int64
	Got  int64
}

func (e *SizeIntegrityError) Error() string {
	return fmt.Sprintf("artifact: %s is %d bytes, expected %d", e.Name, e.Got, e.Want)
}

func (e *SizeIntegrityError) Unwrap() error {
	return ErrSizeIntegrity
}

// Verify compares an artifact's actual size with its expected size.
func Verify(name string, got, want int64) error {
	if got != want {
		return &SizeIntegrityError{Name: name, Want: want, Got: got}
	}

	return nil
}

// WriteFile writes data to path only if it is exactly want bytes long.
// The bytes go to a temporary file in the same directory which is synced,
// re-checked and renamed over path. On failure path is left untouched.
func WriteFile(path string, data []byte, want int64) (err error) {
	name := filepath.Base(path)

	if err := Verify(name, int64(len(data)), want); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), name+".tmp-*")
	if err != nil {
		return fmt.Errorf("artifact: create temp for %s: %w", name, err)
	}

	tmpPath := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("artifact: write %s: %w", name, err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("artifact: sync %s: %w", name, err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return fmt.Errorf("artifact: stat %s: %w", name, err)
	}

	if err = Verify(name, info.Size(), want); err != nil {
		return err
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("artifact: close %s: %w", name, err)
	}

	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("artifact: chmod %s: %w", name, err)
	}

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("artifact: rename %s: %w", name, err)
	}

	return nil
}

// CheckFile compares the on-disk size of path with want.
func CheckFile(path string, want int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("artifact: %w", err)
	}

	return Verify(filepath.Base(path), info.Size(), want)
}
