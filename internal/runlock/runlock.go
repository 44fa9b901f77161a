// Package runlock keeps two runs from organizing the same folder at once.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrLocked is returned when another process holds the lock for a root.
var ErrLocked = errors.New("another declutter run is organizing this folder")

// Dir holds the lock files. They live outside the tree being organized.
var Dir = os.TempDir()

type Lock struct {
	root string
	lock *flock.Flock
}

// Path returns the lock file used for root, which must be absolute.
func Path(root string) string {
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(filepath.Clean(root))))
	return filepath.Join(Dir, "declutter-"+id.String()+".lock")
}

// Acquire takes the lock for root without waiting.
func Acquire(root string) (*Lock, error) {
	l := &Lock{root: root, lock: flock.New(Path(root))}

	ok, err := l.lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%s: %w", root, ErrLocked)
	}
	return l, nil
}

func (l *Lock) Path() string {
	return l.lock.Path()
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock for %s: %w", l.root, err)
	}
	_ = os.Remove(l.lock.Path())
	return nil
}
