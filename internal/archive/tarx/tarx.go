// Package tarx extracts tar streams, optionally wrapped in gzip or zstd, and
// single-file gzip or zstd streams.
package tarx

import (
	"archive/tar"
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	gzip "github.com/klauspost/pgzip"
	"github.com/sirupsen/logrus"

	"declutter/internal/archive"
	"declutter/pkg/magic"
)

func init() {
	archive.Register(magic.KindTar, newExtractor(magic.KindTar))
	archive.Register(magic.KindGzip, newExtractor(magic.KindGzip))
	archive.Register(magic.KindZstd, newExtractor(magic.KindZstd))
}

const irregularModes = os.ModeNamedPipe | os.ModeSocket | os.ModeDevice | os.ModeCharDevice | os.ModeIrregular

// extractor is a tar stream extractor with an optional compression layer.
type extractor struct {
	kind magic.Kind
	r    io.ReaderAt
	size int64
	dir  string
}

func newExtractor(kind magic.Kind) archive.NewExtractorFunc {
	return func(r io.ReaderAt, size int64, dir string) (archive.Extractor, error) {
		return NewExtractor(kind, r, size, dir)
	}
}

// NewExtractor returns an extractor for the given container kind.
func NewExtractor(kind magic.Kind, r io.ReaderAt, size int64, dir string) (archive.Extractor, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &extractor{kind: kind, r: r, size: size, dir: abs}, nil
}

// Extract extracts files from the reader to the directory passed to
// NewExtractor.
func (e *extractor) Extract(ctx context.Context) error {
	src := io.NewSectionReader(e.r, 0, e.size)

	switch e.kind {
	case magic.KindTar:
		return e.extractTar(ctx, src)

	case magic.KindGzip:
		gz, err := gzip.NewReader(src)
		if err != nil {
			return archive.DecodeError(e.kind, err)
		}
		defer func() { _ = gz.Close() }()
		return e.extractStream(ctx, gz, gz.Header.Name)

	case magic.KindZstd:
		zr, err := zstd.NewReader(src, zstd.WithDecoderLowmem(true))
		if err != nil {
			return archive.DecodeError(e.kind, err)
		}
		defer zr.Close()
		return e.extractStream(ctx, zr, "")
	}

	return archive.ErrUnsupportedArchiveFormat
}

// extractStream unpacks a decompressed stream: a tar inside is expanded,
// anything else is written as a single file.
func (e *extractor) extractStream(ctx context.Context, r io.Reader, name string) error {
	br := bufio.NewReader(r)
	isTar, err := magic.PeekTar(br)
	if err != nil {
		return archive.DecodeError(e.kind, err)
	}
	if isTar {
		return e.extractTar(ctx, br)
	}

	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		name = filepath.Base(e.dir)
	}
	path, err := archive.WithinDir(e.dir, name)
	if err != nil {
		return archive.DecodeError(e.kind, err)
	}

	return e.writeFile(path, br, 0o644)
}

//nolint:gocognit
func (e *extractor) extractTar(ctx context.Context, r io.Reader) error {
	tr := tar.NewReader(r)

	var symlinks []*tar.Header
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return archive.DecodeError(e.kind, err)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		fi := hdr.FileInfo()
		if fi.Mode()&irregularModes != 0 || hdr.Typeflag == tar.TypeLink {
			logrus.WithField("entry", hdr.Name).Warning("archive entry ignored")
			continue
		}

		path, err := archive.WithinDir(e.dir, hdr.Name)
		if err != nil {
			return archive.DecodeError(e.kind, err)
		}
		if path == e.dir {
			continue
		}

		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}

		switch {
		case fi.Mode()&os.ModeSymlink != 0:
			symlinks = append(symlinks, hdr)

		case fi.Mode().IsDir():
			err := os.Mkdir(path, 0o755)
			if err != nil && !os.IsExist(err) {
				return err
			}

		case fi.Mode().IsRegular():
			if err := e.writeFile(path, tr, fi.Mode().Perm()); err != nil {
				return err
			}
			_ = os.Chtimes(path, time.Now(), fi.ModTime())
		}
	}

	// Symlinks last, so an entry cannot be written through one.
	for _, hdr := range symlinks {
		if err := e.symlink(hdr); err != nil {
			return err
		}
	}

	return nil
}

func (e *extractor) symlink(hdr *tar.Header) error {
	path, err := archive.WithinDir(e.dir, hdr.Name)
	if err != nil {
		return archive.DecodeError(e.kind, err)
	}

	target := hdr.Linkname
	if !archive.LinkWithin(e.dir, path, target) {
		logrus.WithFields(logrus.Fields{"entry": hdr.Name, "target": target}).
			Warning("archive symlink pointing outside the extraction folder ignored")
		return nil
	}

	_ = os.Remove(path)
	return os.Symlink(target, path)
}

// writeFile copies r into path. Read failures are decoding errors, write
// failures are filesystem errors.
func (e *extractor) writeFile(path string, r io.Reader, perm os.FileMode) error {
	// Remove first so an existing symlink is never followed.
	_ = os.Remove(path)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}

	w := &trackingWriter{w: f}
	_, copyErr := io.Copy(w, r)
	closeErr := f.Close()

	switch {
	case copyErr != nil && w.err != nil:
		return copyErr
	case copyErr != nil:
		return archive.DecodeError(e.kind, copyErr)
	}
	return closeErr
}

type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}
