// Package zipx extracts zip archives with saracen/fastzip.
package zipx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	kzip "github.com/klauspost/compress/zip"
	"github.com/saracen/fastzip"

	"declutter/internal/archive"
	"declutter/pkg/magic"
)

func init() {
	archive.Register(magic.KindZip, NewExtractor)
}

// maxLinkTarget caps how much of a symlink entry is read as its target.
const maxLinkTarget = 4096

// Concurrency bounds the goroutines fastzip uses per archive. Archives are
// already unpacked in parallel by the caller.
var Concurrency = 1

// extractor is a zip stream extractor.
type extractor struct {
	r    io.ReaderAt
	size int64
	dir  string
}

// NewExtractor returns a new zip extractor.
func NewExtractor(r io.ReaderAt, size int64, dir string) (archive.Extractor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &extractor{r: r, size: size, dir: abs}, nil
}

// Extract extracts files from the reader to the directory passed to
// NewExtractor.
func (e *extractor) Extract(ctx context.Context) error {
	if err := e.checkSymlinks(); err != nil {
		return err
	}

	x, err := fastzip.NewExtractorFromReader(e.r, e.size, e.dir, fastzip.WithExtractorConcurrency(Concurrency))
	if err != nil {
		return classify(err)
	}
	defer func() { _ = x.Close() }()

	return classify(x.Extract(ctx))
}

// checkSymlinks refuses an archive holding a symlink whose target lies
// outside the extraction folder. fastzip creates symlinks as they are.
func (e *extractor) checkSymlinks() error {
	zr, err := kzip.NewReader(e.r, e.size)
	if err != nil {
		return classify(err)
	}

	for _, f := range zr.File {
		if f.Mode()&os.ModeSymlink == 0 {
			continue
		}

		path, err := archive.WithinDir(e.dir, f.Name)
		if err != nil {
			return archive.DecodeError(magic.KindZip, err)
		}
		target, err := readLinkTarget(f)
		if err != nil {
			return classify(err)
		}
		if !archive.LinkWithin(e.dir, path, target) {
			return &archive.FormatError{
				Kind: magic.KindZip,
				Err:  fmt.Errorf("symlink %s points outside the extraction folder: %s", f.Name, target),
			}
		}
	}
	return nil
}

func readLinkTarget(f *kzip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = rc.Close() }()

	b, err := io.ReadAll(io.LimitReader(rc, maxLinkTarget))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// classify turns decoding failures into FormatErrors and keeps filesystem
// errors as they are.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, kzip.ErrFormat),
		errors.Is(err, kzip.ErrAlgorithm),
		errors.Is(err, kzip.ErrChecksum),
		errors.Is(err, io.ErrUnexpectedEOF):
		return &archive.FormatError{Kind: magic.KindZip, Err: err}
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}

	return archive.DecodeError(magic.KindZip, err)
}
