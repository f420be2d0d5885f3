// Package repo manages the on-disk working trees backing cloned
// repositories: clone, sync, list, read and delete, with every
// caller-supplied id, path and branch validated before it reaches the
// filesystem or a git invocation.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"repolens/internal/gitx"
	"repolens/internal/identity"
	"repolens/internal/safeio"
	"repolens/internal/scan"
)

var (
	// ErrBadInput marks malformed urls, branches, ids or paths, caught
	// before any filesystem or network side effect.
	ErrBadInput = errors.New("repo: invalid input")
	// ErrRepoNotFound means no working tree exists for the id.
	ErrRepoNotFound = errors.New("repo: repository not found")
	// ErrFileNotFound means the resolved file is absent from the tree.
	ErrFileNotFound = errors.New("repo: file not found")
)

const listingCacheSize = 128

// Manager orchestrates the repository lifecycle over a single repos root.
type Manager struct {
	root string
	ids  *identity.Map

	listings *lru.Cache[string, []scan.File]

	// cloneMu serializes clones per identity key so two racing clones of
	// the same (url, branch) cannot orphan a working tree.
	cloneMu sync.Mutex
	cloning map[string]*sync.Mutex
}

// NewManager creates the repos root if needed and opens the identity map
// stored inside it.
func NewManager(root string, ids *identity.Map) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("repo: create repos root: %w", err)
	}
	cache, err := lru.New[string, []scan.File](listingCacheSize)
	if err != nil {
		return nil, err
	}
	return &Manager{
		root:     root,
		ids:      ids,
		listings: cache,
		cloning:  map[string]*sync.Mutex{},
	}, nil
}

// CloneResult is the outcome of Clone.
type CloneResult struct {
	RepoID string      `json:"repoId"`
	Files  []scan.File `json:"files"`
	// Cached is true when an existing working tree serviced the request
	// and no git invocation happened.
	Cached bool `json:"cached"`
}

// Clone fetches url (branch optional, empty means the remote default) into
// a fresh working tree, or returns the existing tree for the same
// (url, branch). The identity map is a hint only; the clone counts as
// cached only when the tree genuinely exists on disk with git metadata.
func (m *Manager) Clone(ctx context.Context, url, branch, credential string) (*CloneResult, error) {
	if !gitx.ValidRepoURL(url) {
		return nil, fmt.Errorf("%w: malformed repository url", ErrBadInput)
	}
	if branch != "" && !gitx.ValidBranchName(branch) {
		return nil, fmt.Errorf("%w: malformed branch name", ErrBadInput)
	}

	key := identity.Key(url, branch)
	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if id, ok := m.ids.Get(url, branch); ok {
		if dir, err := safeio.ResolveRepoPath(m.root, id); err == nil && scan.HasGitMetadata(dir) {
			files, err := m.listDir(id, dir)
			if err != nil {
				return nil, err
			}
			return &CloneResult{RepoID: id, Files: files, Cached: true}, nil
		}
		// Stale mapping: entry exists but the tree is gone. Disk wins.
		log.Printf("repo: stale identity mapping for %s, recloning", id)
	}

	id := uuid.NewString()
	dir, err := safeio.ResolveRepoPath(m.root, id)
	if err != nil {
		return nil, err
	}

	args := []string{"clone"}
	if branch != "" {
		args = append(args, "--branch", branch, "--single-branch", "--depth", "1")
	}
	args = append(args, gitx.WithCredential(url, credential), dir)
	if _, err := runGit(ctx, args...); err != nil {
		_ = os.RemoveAll(dir)
		return nil, gitx.ClassifyError(err, branch)
	}

	if err := m.ids.Set(url, branch, id); err != nil {
		return nil, fmt.Errorf("repo: record identity mapping: %w", err)
	}
	files, err := m.listDir(id, dir)
	if err != nil {
		return nil, err
	}
	return &CloneResult{RepoID: id, Files: files, Cached: false}, nil
}

// Sync fetches the named remote branch and hard-resets the working tree to
// its tip. Destructive: local modifications to the tree are discarded,
// trees are disposable mirrors and never a place for edits.
func (m *Manager) Sync(ctx context.Context, repoID, url, branch, credential string) ([]scan.File, error) {
	if branch == "" {
		branch = identity.DefaultBranch
	}
	if !gitx.ValidBranchName(branch) {
		return nil, fmt.Errorf("%w: malformed branch name", ErrBadInput)
	}
	if url != "" && !gitx.ValidRepoURL(url) {
		return nil, fmt.Errorf("%w: malformed repository url", ErrBadInput)
	}
	dir, err := m.treeDir(repoID)
	if err != nil {
		return nil, err
	}

	// The configured origin serves unless the caller re-supplies the url,
	// which also carries any refreshed credential.
	remote := "origin"
	if url != "" {
		remote = gitx.WithCredential(url, credential)
	}

	if _, err := runGit(ctx, "-C", dir, "fetch", "--depth", "1", remote, branch); err != nil {
		return nil, gitx.ClassifyError(err, branch)
	}
	if _, err := runGit(ctx, "-C", dir, "reset", "--hard", "FETCH_HEAD"); err != nil {
		return nil, gitx.ClassifyError(err, branch)
	}

	m.listings.Remove(repoID)
	return m.listDir(repoID, dir)
}

// ListFiles returns every regular file in the working tree, relative to
// its root, excluding version-control metadata. Listings are served from
// an LRU cache keyed by repository id and invalidated on Sync and Delete;
// a tree modified outside those operations serves a stale listing until
// the entry is evicted.
func (m *Manager) ListFiles(repoID string) ([]scan.File, error) {
	dir, err := m.treeDir(repoID)
	if err != nil {
		return nil, err
	}
	return m.listDir(repoID, dir)
}

// ReadFile returns the content of one file in the tree. path is validated
// before any disk access.
func (m *Manager) ReadFile(repoID, path string) ([]byte, error) {
	dir, err := m.treeDir(repoID)
	if err != nil {
		return nil, err
	}
	abs, err := safeio.ResolveUnder(dir, path)
	if err != nil {
		return nil, fmt.Errorf("%w: unsafe file path", ErrBadInput)
	}
	st, err := os.Stat(abs)
	if err != nil || st.IsDir() {
		return nil, ErrFileNotFound
	}
	return os.ReadFile(abs)
}

// Exists reports whether a genuine working tree (directory plus git
// metadata) is on disk for repoID.
func (m *Manager) Exists(repoID string) bool {
	dir, err := safeio.ResolveRepoPath(m.root, repoID)
	return err == nil && scan.HasGitMetadata(dir)
}

// Delete removes the working tree and its identity-map entry. Idempotent:
// a missing tree is a no-op.
func (m *Manager) Delete(repoID string) error {
	dir, err := safeio.ResolveRepoPath(m.root, repoID)
	if err != nil {
		return fmt.Errorf("%w: malformed repository id", ErrBadInput)
	}
	if _, err := m.ids.RemoveID(repoID); err != nil {
		return fmt.Errorf("repo: remove identity mapping: %w", err)
	}
	m.listings.Remove(repoID)
	return os.RemoveAll(dir)
}

func (m *Manager) treeDir(repoID string) (string, error) {
	dir, err := safeio.ResolveRepoPath(m.root, repoID)
	if err != nil {
		return "", fmt.Errorf("%w: malformed repository id", ErrBadInput)
	}
	if !scan.HasGitMetadata(dir) {
		return "", ErrRepoNotFound
	}
	return dir, nil
}

func (m *Manager) listDir(repoID, dir string) ([]scan.File, error) {
	if files, ok := m.listings.Get(repoID); ok {
		return files, nil
	}
	files, err := scan.Files(dir)
	if err != nil {
		return nil, fmt.Errorf("repo: list files: %w", err)
	}
	m.listings.Add(repoID, files)
	return files, nil
}

func (m *Manager) lockFor(key string) *sync.Mutex {
	m.cloneMu.Lock()
	defer m.cloneMu.Unlock()
	if l, ok := m.cloning[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	m.cloning[key] = l
	return l
}

// runGit is injectable in tests.
var runGit = func(ctx context.Context, args ...string) ([]byte, error) {
	return gitx.Run(ctx, args...)
}
