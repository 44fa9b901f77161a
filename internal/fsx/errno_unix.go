//go:build unix

package fsx

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isEXDEV(err error) bool {
	return errors.Is(err, unix.EXDEV)
}

// Some systems report EEXIST instead of ENOTEMPTY for rmdir.
func isNotEmpty(err error) bool {
	return errors.Is(err, unix.ENOTEMPTY) || errors.Is(err, unix.EEXIST)
}
