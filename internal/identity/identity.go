// Package identity persists the (normalized url, branch) -> repository id
// mapping that backs clone deduplication. The map is small and mutates
// rarely (once per clone or delete), so every mutation rewrites the whole
// file; a corrupt or missing file reads as an empty map.
package identity

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const DefaultBranch = "main"

// Map is a durable key -> repoID dictionary. Safe for use from multiple
// goroutines within one process; there is no cross-process locking.
type Map struct {
	path string

	mu      sync.Mutex
	entries map[string]string
}

// Open loads the map stored at path. A parse failure is repaired by
// starting from an empty map rather than propagated.
func Open(path string) *Map {
	m := &Map{path: path, entries: map[string]string{}}
	b, err := os.ReadFile(path)
	if err != nil {
		return m
	}
	var entries map[string]string
	if err := json.Unmarshal(b, &entries); err != nil || entries == nil {
		return m
	}
	m.entries = entries
	return m
}

// NormalizeURL collapses equivalent URLs to one spelling: lowercase,
// trimmed, trailing ".git" stripped.
func NormalizeURL(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	return strings.TrimSuffix(u, ".git")
}

// Key builds the map key for a (url, branch) pair. An empty branch means
// DefaultBranch.
func Key(url, branch string) string {
	if branch == "" {
		branch = DefaultBranch
	}
	return NormalizeURL(url) + ":" + branch
}

// ParseKey splits a key back into (normalized url, branch). The split is
// on the last colon: URLs themselves contain colons ("https://",
// "git@host:path").
func ParseKey(key string) (url, branch string) {
	i := strings.LastIndex(key, ":")
	if i < 0 {
		return key, DefaultBranch
	}
	return key[:i], key[i+1:]
}

// Get returns the repoID recorded for (url, branch), if any.
func (m *Map) Get(url, branch string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.entries[Key(url, branch)]
	return id, ok
}

// Set records repoID for (url, branch) and persists the map.
func (m *Map) Set(url, branch, repoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[Key(url, branch)] = repoID
	return m.save()
}

// Remove deletes the entry for (url, branch) and persists the map.
func (m *Map) Remove(url, branch string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, Key(url, branch))
	return m.save()
}

// RemoveID deletes every entry mapping to repoID. Linear in the number of
// mappings, which stays small in practice.
func (m *Map) RemoveID(repoID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := false
	for k, v := range m.entries {
		if v == repoID {
			delete(m.entries, k)
			removed = true
		}
	}
	if !removed {
		return false, nil
	}
	return true, m.save()
}

// All returns a copy of every key -> repoID entry.
func (m *Map) All() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}

func (m *Map) save() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(m.entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, b, 0o644)
}
