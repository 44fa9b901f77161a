package processor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"declutter/internal/classify"
)

// DefaultWorkers is the pool size used when Options.Workers is not set.
const DefaultWorkers = 4

// ErrUnsafeName is returned when a normalized name would leave its
// destination folder.
var ErrUnsafeName = errors.New("unsafe normalized name")

// NormalizeFunc turns an arbitrary file name into a filesystem-safe one. It
// must be pure.
type NormalizeFunc func(name string) string

// Unpacker extracts the archive at path into dir. Errors matching
// archive.ErrNotArchive mean the file is not an archive at all.
type Unpacker interface {
	Unpack(ctx context.Context, path, dir string) error
}

type Options struct {
	Workers   int
	Exclude   []string
	Normalize NormalizeFunc
	Unpacker  Unpacker
	DryRun    bool
	Logger    *logrus.Entry
}

// Entry is a snapshot of one path found by Scan.
type Entry struct {
	Path    string
	RelPath string
	Name    string
	Ext     string
	IsDir   bool
	Size    int64
}

type Action int

const (
	ActionMoved Action = iota
	ActionExtracted
	ActionVanished
	ActionNotArchive
	ActionFailed
	ActionPlanned
)

func (a Action) String() string {
	switch a {
	case ActionMoved:
		return "moved"
	case ActionExtracted:
		return "extracted"
	case ActionVanished:
		return "vanished"
	case ActionNotArchive:
		return "not-archive"
	case ActionFailed:
		return "failed"
	case ActionPlanned:
		return "planned"
	default:
		return "unknown"
	}
}

// Result is the outcome of one file entry.
type Result struct {
	Entry          Entry
	Classification classify.Classification
	Action         Action
	Dest           string
	Kind           string
	Err            error
}

type Summary struct {
	Files       int
	Moved       int
	Extracted   int
	Vanished    int
	NotArchives int
	Failed      int
	DirsRemoved int
	DirsKept    int
	Bytes       int64
}

// Failure kinds.
const (
	KindUnsafeName   = "unsafe-name"
	KindRelocate     = "relocate"
	KindExtract      = "extract"
	KindPanic        = "panic"
	KindNotArchive   = "not-archive"
	KindNotEmpty     = "not-empty"
	KindCleanup      = "cleanup"
	KindTypeConflict = "type-conflict"
	KindCrossDevice  = "cross-device"
)

type Failure struct {
	Path string
	Kind string
	Err  error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.Kind, f.Path, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

type Report struct {
	RunID   string
	Root    string
	DryRun  bool
	Summary Summary
	Results []Result

	// Failures holds the entries that could not be processed.
	Failures []Failure
	// NotArchives holds archive-named files left in place.
	NotArchives []Failure
	// KeptDirs holds directories the cleanup pass could not remove.
	KeptDirs []Failure
}

// Err aggregates the per-entry failures. Not-archive files and kept
// directories are reported but do not count.
func (r *Report) Err() error {
	var result *multierror.Error
	for _, f := range r.Failures {
		result = multierror.Append(result, f)
	}
	return result.ErrorOrNil()
}

type ProgressUpdate struct {
	TotalDelta     int
	ProcessedDelta int
	MovedDelta     int
	ExtractedDelta int
	ErrorDelta     int
	BytesDelta     int64
	Current        string
}
