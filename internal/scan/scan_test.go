package scan

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func write(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestFilesExcludesGitMetadata(t *testing.T) {
	root := t.TempDir()
	write(t, root, "a.txt", "root file")
	write(t, root, "src/b.go", "package b")
	write(t, root, ".git/HEAD", "ref: refs/heads/main")
	write(t, root, ".git/objects/x", "blob")
	write(t, root, "deep/level2/c.md", "# c")

	files, err := Files(root)
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	var got []string
	sizes := map[string]int64{}
	for _, f := range files {
		got = append(got, f.Path)
		sizes[f.Path] = f.Size
	}
	sort.Strings(got)
	want := []string{"a.txt", "deep/level2/c.md", "src/b.go"}
	if len(got) != len(want) {
		t.Fatalf("got=%v want=%v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got=%v want=%v", got, want)
		}
	}
	if sizes["a.txt"] != int64(len("root file")) {
		t.Fatalf("size of a.txt=%d", sizes["a.txt"])
	}
}

func TestHasGitMetadata(t *testing.T) {
	root := t.TempDir()
	if HasGitMetadata(root) {
		t.Fatal("bare directory should not count as a working tree")
	}
	if err := os.MkdirAll(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if !HasGitMetadata(root) {
		t.Fatal("directory with .git should count as a working tree")
	}
}
