package processor

import (
	"io/fs"
	"path"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/samber/lo"

	"declutter/internal/classify"
)

// Scan walks root once and returns its files and directories sorted by path.
// Root itself is not part of the result, nor is anything matching one of the
// exclude patterns. Output of earlier runs is left out: files already in the
// folder their classification sends them to, the extracted archive folders
// under archives/, and the category and type folders themselves. Everything
// else inside a category folder is scanned like any other directory.
func Scan(root string, exclude []string) ([]Entry, []Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if p == root {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		slashRel := filepath.ToSlash(rel)

		if excluded(exclude, slashRel) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path.Dir(slashRel) == classify.Archive.Folder() {
				return fs.SkipDir
			}
			if sortedDir(slashRel) {
				return nil
			}
		} else if inPlace(root, p, d.Name()) {
			return nil
		}

		entry := Entry{
			Path:    p,
			RelPath: rel,
			Name:    d.Name(),
			IsDir:   d.IsDir(),
		}
		if !d.IsDir() {
			entry.Ext = classify.Ext(d.Name())
			if info, err := d.Info(); err == nil {
				entry.Size = info.Size()
			}
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	dirs, files := lo.FilterReject(entries, func(e Entry, _ int) bool { return e.IsDir })
	return files, dirs, nil
}

// sortedDir reports whether slashRel is a category folder under root or a
// type folder inside one.
func sortedDir(slashRel string) bool {
	parent, name := path.Split(slashRel)
	if parent == "" {
		_, ok := classify.FolderCategory(name)
		return ok
	}

	category, ok := classify.FolderCategory(path.Clean(parent))
	if !ok || category == classify.Archive || category == classify.Other {
		return false
	}
	c := classify.Classify("x." + name)
	return c.Category == category && c.TypeTag == name
}

// inPlace reports whether a file already sits in the folder its
// classification sends it to. Archives are never in place: they are
// extracted wherever they are found.
func inPlace(root, p, name string) bool {
	c := classify.Classify(name)
	if c.Category == classify.Archive {
		return false
	}
	return filepath.Dir(p) == c.Dir(root)
}

func excluded(patterns []string, slashRel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, slashRel); ok {
			return true
		}
	}
	return false
}
