package fsx

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameReplacesExistingFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	require.NoError(t, Rename(src, dst))

	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(b))
	assert.NoFileExists(t, src)
}

func TestRenameOntoDirectory(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "taken")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(dst, 0o755))

	err := Rename(src, dst)
	require.Error(t, err)
	assert.True(t, IsPathTypeConflict(err), "got %T %v", err, err)
	assert.FileExists(t, src)
}

func TestEnsureDirConcurrent(t *testing.T) {
	target := filepath.Join(t.TempDir(), "a", "b", "c")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- EnsureDir(target)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.DirExists(t, target)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()

	ok, err := Exists(dir)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveEmptyDir(t *testing.T) {
	root := t.TempDir()

	empty := filepath.Join(root, "empty")
	require.NoError(t, os.Mkdir(empty, 0o755))
	require.NoError(t, RemoveEmptyDir(empty))
	assert.NoDirExists(t, empty)

	// Already gone is fine.
	require.NoError(t, RemoveEmptyDir(empty))

	full := filepath.Join(root, "full")
	require.NoError(t, os.Mkdir(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, "keep.txt"), nil, 0o644))

	err := RemoveEmptyDir(full)
	require.Error(t, err)
	assert.True(t, IsDirNotEmpty(err), "got %T %v", err, err)
	assert.FileExists(t, filepath.Join(full, "keep.txt"))
}

func TestMoveDirRenamesWhenMissing(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "a.txt"), []byte("a"), 0o644))

	require.NoError(t, MoveDir(src, dst))

	assert.NoDirExists(t, src)
	assert.FileExists(t, filepath.Join(dst, "sub", "a.txt"))
}

func TestMoveDirMergesIntoExisting(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	for path, body := range map[string]string{
		filepath.Join(dst, "kept.txt"):       "kept",
		filepath.Join(dst, "same.txt"):       "old",
		filepath.Join(dst, "sub", "old.txt"): "old",
		filepath.Join(src, "same.txt"):       "new",
		filepath.Join(src, "sub", "new.txt"): "new",
		filepath.Join(src, "fresh", "f.txt"): "fresh",
	} {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	require.NoError(t, MoveDir(src, dst))

	assert.NoDirExists(t, src)
	for rel, want := range map[string]string{
		"kept.txt":    "kept",
		"same.txt":    "new",
		"sub/old.txt": "old",
		"sub/new.txt": "new",
		"fresh/f.txt": "fresh",
	} {
		b, err := os.ReadFile(filepath.Join(dst, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, want, string(b), rel)
	}
}

func TestMoveDirOntoFile(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	dst := filepath.Join(root, "dst")
	require.NoError(t, os.Mkdir(src, 0o755))
	require.NoError(t, os.WriteFile(dst, nil, 0o644))

	err := MoveDir(src, dst)
	assert.True(t, IsPathTypeConflict(err), "got %T %v", err, err)
	assert.DirExists(t, src)
}
