//go:build !unix && !windows

package fsx

func isEXDEV(error) bool { return false }

func isNotEmpty(error) bool { return false }
