// Package scan walks working trees and lists their regular files.
package scan

import (
	"io/fs"
	"os"
	"path/filepath"
)

// File describes one regular file in a working tree. Listings are
// recomputed on every call, never persisted.
type File struct {
	// Path is relative to the tree root, using forward slashes.
	Path string `json:"path"`
	// Size in bytes.
	Size int64 `json:"size"`
}

// gitDir is the version-control metadata directory excluded from listings.
const gitDir = ".git"

// Files walks root recursively and returns every regular file under it,
// excluding version-control metadata. Unreadable entries are skipped.
func Files(root string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == gitDir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		size := int64(0)
		if fi, e := os.Stat(path); e == nil {
			size = fi.Size()
		}
		files = append(files, File{Path: filepath.ToSlash(rel), Size: size})
		return nil
	})
	return files, err
}

// HasGitMetadata reports whether dir holds a genuine working tree: the
// directory alone is not trusted, the version-control metadata must be
// present too.
func HasGitMetadata(dir string) bool {
	st, err := os.Stat(filepath.Join(dir, gitDir))
	return err == nil && st.IsDir()
}
