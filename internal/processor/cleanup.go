package processor

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"declutter/internal/fsx"
)

type cleanupResult struct {
	Removed []string
	Kept    []Failure
}

// cleanup removes the empty directories among dirs, children before their
// parents. Nothing is ever removed recursively.
func cleanup(dirs []Entry, log *logrus.Entry) cleanupResult {
	ordered := make([]Entry, len(dirs))
	copy(ordered, dirs)
	sortDeepestFirst(ordered)

	var result cleanupResult
	for _, dir := range ordered {
		err := fsx.RemoveEmptyDir(dir.Path)
		switch {
		case err == nil:
			result.Removed = append(result.Removed, dir.Path)

		case fsx.IsDirNotEmpty(err):
			log.WithField("path", dir.RelPath).Info("Directory not empty, keeping it")
			result.Kept = append(result.Kept, Failure{Path: dir.Path, Kind: KindNotEmpty, Err: err})

		default:
			log.WithError(err).WithField("path", dir.RelPath).Warning("Failed to remove directory")
			result.Kept = append(result.Kept, Failure{Path: dir.Path, Kind: KindCleanup, Err: err})
		}
	}
	return result
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(os.PathSeparator))
}

func sortDeepestFirst(dirs []Entry) {
	sort.SliceStable(dirs, func(i, j int) bool {
		di, dj := depth(dirs[i].Path), depth(dirs[j].Path)
		if di != dj {
			return di > dj
		}
		return dirs[i].Path > dirs[j].Path
	})
}
