package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"declutter/internal/archive"
	"declutter/internal/fsx"
)

type extractOutcome int

const (
	extracted extractOutcome = iota
	extractVanished
	extractNotArchive
)

// stagingPattern names the private folders archives are unpacked into before
// their contents land in archives/<stem>.
const stagingPattern = ".extract-*"

// extractArchive unpacks entry into archivesDir/<normalized stem> and deletes
// the archive once its contents are out. Contents are unpacked into a
// private staging folder and merged into the final folder only on success.
// A failure removes nothing but the staging folder, and a file that turns
// out not to be an archive stays where it is.
func extractArchive(ctx context.Context, entry Entry, archivesDir string, opts Options, log *logrus.Entry) (string, extractOutcome, error) {
	name, err := destName(opts.Normalize, archive.Stem(entry.Name))
	if err != nil {
		return "", extracted, err
	}
	folder := filepath.Join(archivesDir, name)

	exists, err := fsx.Exists(entry.Path)
	if err != nil {
		return folder, extracted, err
	}
	if !exists {
		return folder, extractVanished, nil
	}

	if err := fsx.EnsureDir(archivesDir); err != nil {
		return folder, extracted, fmt.Errorf("create %s: %w", archivesDir, err)
	}

	staging, err := os.MkdirTemp(archivesDir, stagingPattern)
	if err != nil {
		return folder, extracted, fmt.Errorf("create staging folder: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			log.WithError(rmErr).WithField("staging", staging).Warning("Failed to remove staging folder")
		}
	}()

	// Extract into a folder carrying the final name: single-file streams
	// without a stored name are named after it.
	out := filepath.Join(staging, name)
	if err := os.Mkdir(out, 0o755); err != nil {
		return folder, extracted, fmt.Errorf("create staging folder: %w", err)
	}

	err = opts.Unpacker.Unpack(ctx, entry.Path, out)
	switch {
	case errors.Is(err, archive.ErrNotArchive):
		return folder, extractNotArchive, err
	case err != nil:
		return folder, extracted, fmt.Errorf("extract %s: %w", entry.RelPath, err)
	}

	if err := fsx.MoveDir(out, folder); err != nil {
		return folder, extracted, fmt.Errorf("move contents of %s into %s: %w", entry.RelPath, folder, err)
	}

	if err := os.Remove(entry.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return folder, extracted, fmt.Errorf("remove %s: %w", entry.RelPath, err)
	}
	return folder, extracted, nil
}
