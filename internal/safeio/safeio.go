package safeio

import (
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

var (
	// ErrUnsafePath is returned when a caller-supplied path would resolve
	// outside its base directory.
	ErrUnsafePath = errors.New("safeio: path escapes base directory")
	// ErrBadRepoID is returned for repository ids that do not match the
	// fixed identifier shape.
	ErrBadRepoID = errors.New("safeio: invalid repository id")
)

// Repository ids are version-4 UUIDs. Because ids are used to build
// filesystem paths, the alphabet is structurally unable to encode ".."
// or an absolute-path escape.
var repoIDPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidRepoID reports whether id matches the fixed repository-id shape.
func ValidRepoID(id string) bool {
	return repoIDPattern.MatchString(id)
}

// ResolveUnder resolves rel against baseDir and returns the absolute
// result, or ErrUnsafePath when rel is absolute, still contains a ".."
// segment after normalization, or resolves outside baseDir. The textual
// ".." rejection and the post-resolution prefix check are both applied;
// either alone leaves a gap.
func ResolveUnder(baseDir, rel string) (string, error) {
	if rel == "" {
		return "", ErrUnsafePath
	}
	if filepath.IsAbs(rel) || (runtime.GOOS == "windows" && filepath.VolumeName(rel) != "") {
		return "", ErrUnsafePath
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrUnsafePath
	}

	base, err := filepath.Abs(baseDir)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(base, clean)
	if !hasPathPrefix(joined, base) {
		return "", ErrUnsafePath
	}
	return joined, nil
}

// ResolveRepoPath joins a validated repository id under reposRoot.
// The id check already excludes separators; containment is re-verified
// after the join anyway.
func ResolveRepoPath(reposRoot, repoID string) (string, error) {
	if !ValidRepoID(repoID) {
		return "", ErrBadRepoID
	}
	if strings.ContainsAny(repoID, `/\`) {
		return "", ErrBadRepoID
	}
	root, err := filepath.Abs(reposRoot)
	if err != nil {
		return "", err
	}
	joined := filepath.Join(root, repoID)
	if !hasPathPrefix(joined, root) {
		return "", ErrUnsafePath
	}
	return joined, nil
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if len(root) == 0 {
		return true
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
