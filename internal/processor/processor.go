package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"

	"declutter/internal/archive"
	"declutter/internal/classify"
	"declutter/internal/fsx"
	"declutter/internal/normalize"
)

// Run organizes root: it scans the tree, moves or extracts every file on a
// bounded pool of workers and, once all of them are done, removes the
// directories that were left empty.
func Run(ctx context.Context, root string, opts Options, updates chan<- ProgressUpdate) (*Report, error) {
	opts = opts.withDefaults()

	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}

	files, dirs, err := Scan(absRoot, opts.Exclude)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", absRoot, err)
	}

	log := opts.Logger.WithField("root", absRoot)
	log.WithFields(logrus.Fields{"files": len(files), "dirs": len(dirs)}).Debug("Scan complete")

	report := &Report{Root: absRoot, DryRun: opts.DryRun}
	send(ctx, updates, ProgressUpdate{TotalDelta: len(files)})

	results := make(chan Result)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			report.add(res)
			send(ctx, updates, progressFor(res))
		}
	}()

	p := pool.New().WithMaxGoroutines(opts.Workers)
	for _, entry := range files {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() {
			results <- process(ctx, absRoot, entry, opts, log)
		})
	}
	p.Wait()
	close(results)
	<-collectorDone

	report.sort()

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return report, nil
		}
		return report, err
	}

	if !opts.DryRun {
		cleaned := cleanup(dirs, log)
		report.Summary.DirsRemoved = len(cleaned.Removed)
		report.Summary.DirsKept = len(cleaned.Kept)
		report.KeptDirs = cleaned.Kept
	}

	return report, nil
}

func (o Options) withDefaults() Options {
	if o.Workers < 1 {
		o.Workers = DefaultWorkers
	}
	if o.Normalize == nil {
		o.Normalize = normalize.Normalize
	}
	if o.Unpacker == nil {
		o.Unpacker = archive.Default()
	}
	if o.Logger == nil {
		o.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return o
}

// process handles one file. A panic is confined to the entry that caused it.
func process(ctx context.Context, root string, entry Entry, opts Options, log *logrus.Entry) Result {
	var res Result

	var pc panics.Catcher
	pc.Try(func() {
		res = handle(ctx, root, entry, opts, log)
	})
	if r := pc.Recovered(); r != nil {
		log.WithField("path", entry.RelPath).Error("Panic while processing entry")
		res = Result{Entry: entry, Action: ActionFailed, Kind: KindPanic, Err: r.AsError()}
	}
	return res
}

func handle(ctx context.Context, root string, entry Entry, opts Options, log *logrus.Entry) Result {
	c := classify.Classify(entry.Name)
	res := Result{Entry: entry, Classification: c}
	destDir := c.Dir(root)

	log = log.WithFields(logrus.Fields{"path": entry.RelPath, "category": c.Category.String()})

	if opts.DryRun {
		return plan(res, destDir, opts.Normalize)
	}

	if c.Category == classify.Archive {
		folder, outcome, err := extractArchive(ctx, entry, destDir, opts, log)
		res.Dest = folder
		switch {
		case outcome == extractNotArchive:
			log.WithError(err).Warning("Not an archive, leaving it in place")
			res.Action, res.Kind, res.Err = ActionNotArchive, KindNotArchive, err
		case err != nil:
			log.WithError(err).Error("Failed to extract archive")
			res.Action, res.Kind, res.Err = ActionFailed, failureKind(err, KindExtract), err
		case outcome == extractVanished:
			log.Debug("Archive vanished before processing")
			res.Action = ActionVanished
		default:
			log.WithField("dest", folder).Info("Extracted archive")
			res.Action = ActionExtracted
		}
		return res
	}

	dest, vanished, err := relocate(entry, destDir, opts.Normalize)
	res.Dest = dest
	switch {
	case err != nil:
		log.WithError(err).Error("Failed to move file")
		res.Action, res.Kind, res.Err = ActionFailed, failureKind(err, KindRelocate), err
	case vanished:
		log.Debug("File vanished before processing")
		res.Action = ActionVanished
	default:
		log.WithField("dest", dest).Info("Moved file")
		res.Action = ActionMoved
	}
	return res
}

// plan fills in the destination without touching the filesystem.
func plan(res Result, destDir string, norm NormalizeFunc) Result {
	name := res.Entry.Name
	if res.Classification.Category == classify.Archive {
		name = archive.Stem(name)
	}

	out, err := destName(norm, name)
	if err != nil {
		res.Action, res.Kind, res.Err = ActionFailed, KindUnsafeName, err
		return res
	}
	res.Action = ActionPlanned
	res.Dest = filepath.Join(destDir, out)
	return res
}

func failureKind(err error, fallback string) string {
	switch {
	case errors.Is(err, ErrUnsafeName):
		return KindUnsafeName
	case fsx.IsPathTypeConflict(err):
		return KindTypeConflict
	case fsx.IsCrossDevice(err):
		return KindCrossDevice
	}
	return fallback
}

func progressFor(res Result) ProgressUpdate {
	u := ProgressUpdate{ProcessedDelta: 1, Current: res.Entry.RelPath}
	switch res.Action {
	case ActionMoved:
		u.MovedDelta = 1
		u.BytesDelta = res.Entry.Size
	case ActionExtracted:
		u.ExtractedDelta = 1
		u.BytesDelta = res.Entry.Size
	case ActionFailed:
		u.ErrorDelta = 1
	}
	return u
}

func send(ctx context.Context, updates chan<- ProgressUpdate, u ProgressUpdate) {
	if updates == nil {
		return
	}
	select {
	case updates <- u:
	case <-ctx.Done():
	}
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	r.Summary.Files++

	switch res.Action {
	case ActionMoved:
		r.Summary.Moved++
		r.Summary.Bytes += res.Entry.Size
	case ActionExtracted:
		r.Summary.Extracted++
		r.Summary.Bytes += res.Entry.Size
	case ActionPlanned:
		r.Summary.Bytes += res.Entry.Size
	case ActionVanished:
		r.Summary.Vanished++
	case ActionNotArchive:
		r.Summary.NotArchives++
		r.NotArchives = append(r.NotArchives, Failure{Path: res.Entry.Path, Kind: res.Kind, Err: res.Err})
	case ActionFailed:
		r.Summary.Failed++
		r.Failures = append(r.Failures, Failure{Path: res.Entry.Path, Kind: res.Kind, Err: res.Err})
	}
}

func (r *Report) sort() {
	sort.Slice(r.Results, func(i, j int) bool { return r.Results[i].Entry.Path < r.Results[j].Entry.Path })
	byPath := func(fs []Failure) {
		sort.Slice(fs, func(i, j int) bool { return fs[i].Path < fs[j].Path })
	}
	byPath(r.Failures)
	byPath(r.NotArchives)
}
