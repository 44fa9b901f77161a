package fsx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Swappable so tests can simulate EXDEV and friends.
var renameFunc = os.Rename

// PathTypeConflictError reports a destination that exists with the wrong
// type, for example a directory where a file should land.
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("destination %q is a %s, expected a %s", e.Path, e.Got, e.Want)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// CrossDeviceError reports a rename that failed with EXDEV. Files are never
// copied and deleted as a fallback.
type CrossDeviceError struct {
	Src string
	Dst string
	Err error
}

func (e *CrossDeviceError) Error() string {
	return fmt.Sprintf("cannot move %q to %q across filesystems: %v", e.Src, e.Dst, e.Err)
}

func (e *CrossDeviceError) Unwrap() error { return e.Err }

func IsCrossDevice(err error) bool {
	var e *CrossDeviceError
	return errors.As(err, &e)
}

// Rename moves src to dst, replacing a regular file already at dst.
// Moving a file onto a directory is reported as a PathTypeConflictError and
// EXDEV as a CrossDeviceError.
func Rename(src, dst string) error {
	if fi, err := os.Lstat(dst); err == nil && fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "file", Got: "directory"}
	}

	if err := renameFunc(src, dst); err != nil {
		if isEXDEV(err) {
			return &CrossDeviceError{Src: src, Dst: dst, Err: err}
		}
		return err
	}
	return nil
}

// EnsureDir creates dir and any missing parents. A directory that already
// exists, or that another goroutine creates first, is not an error.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		if fi, statErr := os.Stat(dir); statErr == nil && fi.IsDir() {
			return nil
		}
		return err
	}
	return nil
}

// Exists reports whether path is present, without following symlinks.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// RemoveEmptyDir removes dir only when it has no entries. It never deletes
// recursively. A directory that is already gone counts as removed.
func RemoveEmptyDir(dir string) error {
	err := os.Remove(dir)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// IsDirNotEmpty reports whether err came from removing a directory that
// still holds entries.
func IsDirNotEmpty(err error) bool {
	return isNotEmpty(err)
}

// MoveDir moves the directory src to dst. When dst already exists the
// contents of src are merged into it: files replace files of the same name
// and subdirectories are merged the same way. src is gone afterwards.
func MoveDir(src, dst string) error {
	fi, err := os.Lstat(dst)
	if errors.Is(err, os.ErrNotExist) {
		renameErr := renameFunc(src, dst)
		if renameErr == nil {
			return nil
		}
		// Another mover may have created dst in the meantime.
		if fi, err = os.Lstat(dst); err != nil {
			if isEXDEV(renameErr) {
				return &CrossDeviceError{Src: src, Dst: dst, Err: renameErr}
			}
			return renameErr
		}
	}
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return &PathTypeConflictError{Path: dst, Want: "directory", Got: "file"}
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dst, e.Name())
		if e.IsDir() {
			err = MoveDir(from, to)
		} else {
			err = Rename(from, to)
		}
		if err != nil {
			return err
		}
	}
	return RemoveEmptyDir(src)
}
