package processor

import (
	"fmt"
	"path/filepath"
	"strings"

	"declutter/internal/fsx"
)

// destName normalizes name and checks the result is a single path element.
func destName(norm NormalizeFunc, name string) (string, error) {
	out := norm(name)
	if out == "" || out == "." || out == ".." || strings.ContainsAny(out, `/\`) {
		return "", fmt.Errorf("%q normalizes to %q: %w", name, out, ErrUnsafeName)
	}
	return out, nil
}

// relocate moves entry into destDir under its normalized name, replacing a
// file already there. It reports vanished=true when the source is gone.
func relocate(entry Entry, destDir string, norm NormalizeFunc) (dest string, vanished bool, err error) {
	name, err := destName(norm, entry.Name)
	if err != nil {
		return "", false, err
	}
	dest = filepath.Join(destDir, name)

	exists, err := fsx.Exists(entry.Path)
	if err != nil {
		return dest, false, err
	}
	if !exists {
		return dest, true, nil
	}

	if err := fsx.EnsureDir(destDir); err != nil {
		return dest, false, fmt.Errorf("create %s: %w", destDir, err)
	}

	if filepath.Clean(entry.Path) == filepath.Clean(dest) {
		return dest, false, nil
	}

	if err := fsx.Rename(entry.Path, dest); err != nil {
		return dest, false, fmt.Errorf("move %s: %w", entry.RelPath, err)
	}
	return dest, false, nil
}
