package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"declutter/pkg/magic"
)

var (
	// ErrNotArchive matches every error caused by the archive data itself:
	// an unrecognised container, a corrupt header or a truncated stream.
	// Callers use it to tell "this is not really an archive" apart from
	// filesystem failures.
	ErrNotArchive = errors.New("not a recognized archive")

	// ErrUnsupportedArchiveFormat is returned if no extractor has been
	// registered for a detected container.
	ErrUnsupportedArchiveFormat = errors.New("unsupported archive format")
)

// FormatError wraps a decoding failure. It matches ErrNotArchive.
type FormatError struct {
	Kind magic.Kind
	Err  error
}

func (e *FormatError) Error() string {
	if e.Kind == magic.KindUnknown {
		return fmt.Sprintf("%v: %v", ErrNotArchive, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", ErrNotArchive, e.Kind, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrNotArchive }

// DecodeError classifies an error raised while reading archive data. I/O
// errors on the archive file itself stay as they are; anything else means
// the bytes could not be decoded and becomes a FormatError.
func DecodeError(kind magic.Kind, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotArchive) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return err
	}
	return &FormatError{Kind: kind, Err: err}
}

var errUnknownContainer = errors.New("unknown container signature")

// Extractor is an interface for the Extract method.
type Extractor interface {
	Extract(ctx context.Context) error
}

// NewExtractorFunc instantiates an extractor writing into dir.
type NewExtractorFunc func(r io.ReaderAt, size int64, dir string) (Extractor, error)

var extractors = make(map[magic.Kind]NewExtractorFunc)

// Register registers an extractor for a container kind, returning the one it
// replaced. Registration happens from init functions only.
func Register(kind magic.Kind, extractor NewExtractorFunc) NewExtractorFunc {
	prev := extractors[kind]
	extractors[kind] = extractor
	return prev
}

// NewExtractor returns a new Extractor for the container kind.
func NewExtractor(kind magic.Kind, r io.ReaderAt, size int64, dir string) (Extractor, error) {
	fn := extractors[kind]
	if fn == nil {
		return nil, fmt.Errorf("%q format: %w", kind, ErrUnsupportedArchiveFormat)
	}

	return fn(r, size, dir)
}

// Unpack extracts the archive at path into dir, which must exist. The
// container is recognised from its content, not its name.
func Unpack(ctx context.Context, path, dir string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return &FormatError{Err: fmt.Errorf("%s is not a regular file", path)}
	}

	kind, err := magic.SniffReader(io.NewSectionReader(f, 0, fi.Size()))
	if err != nil {
		return err
	}
	if kind == magic.KindUnknown {
		return &FormatError{Err: errUnknownContainer}
	}

	extractor, err := NewExtractor(kind, f, fi.Size(), dir)
	if err != nil {
		return err
	}

	return extractor.Extract(ctx)
}

// UnpackerFunc adapts a function to the Unpack method set.
type UnpackerFunc func(ctx context.Context, path, dir string) error

func (fn UnpackerFunc) Unpack(ctx context.Context, path, dir string) error {
	return fn(ctx, path, dir)
}

// Default returns an unpacker backed by the registered extractors.
func Default() UnpackerFunc {
	return Unpack
}

var compoundSuffixes = []string{".tar.gz", ".tar.zst"}

// Stem strips the archive suffix from name, including compound suffixes
// such as ".tar.gz".
func Stem(name string) string {
	name = filepath.Base(name)
	lower := strings.ToLower(name)
	for _, suffix := range compoundSuffixes {
		if strings.HasSuffix(lower, suffix) && len(name) > len(suffix) {
			return name[:len(name)-len(suffix)]
		}
	}

	ext := filepath.Ext(name)
	if ext == name {
		return name
	}
	return strings.TrimSuffix(name, ext)
}

// WithinDir resolves name inside dir and refuses paths escaping it.
func WithinDir(dir, name string) (string, error) {
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	if !IsWithin(dir, path) {
		return "", fmt.Errorf("%s cannot be extracted outside of %s", name, dir)
	}
	return path, nil
}

// IsWithin reports whether the cleaned path is dir or lies below it.
func IsWithin(dir, path string) bool {
	dir = filepath.Clean(dir)
	path = filepath.Clean(path)
	return path == dir || strings.HasPrefix(path, dir+string(filepath.Separator))
}

// LinkWithin reports whether a symlink created at path with the given target
// resolves inside dir. Absolute targets never do.
func LinkWithin(dir, path, target string) bool {
	if filepath.IsAbs(target) {
		return false
	}
	return IsWithin(dir, filepath.Join(filepath.Dir(path), target))
}
