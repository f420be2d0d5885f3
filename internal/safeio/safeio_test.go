package safeio

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidRepoID(t *testing.T) {
	accept := []string{
		"123e4567-e89b-42d3-a456-426614174000",
		"00000000-0000-4000-8000-000000000000",
		"AAAAAAAA-BBBB-4CCC-9DDD-EEEEEEEEEEEE",
	}
	for _, id := range accept {
		if !ValidRepoID(id) {
			t.Fatalf("%q should be accepted", id)
		}
	}
	reject := []string{
		"",
		"not-a-uuid",
		"123e4567-e89b-12d3-a456-426614174000",  // wrong version nibble
		"123e4567-e89b-42d3-c456-426614174000",  // wrong variant nibble
		"123e4567e89b42d3a456426614174000",      // no dashes
		"../123e4567-e89b-42d3-a456-4266141740", // traversal
		"123e4567-e89b-42d3-a456-42661417400/",  // separator
		`123e4567-e89b-42d3-a456-42661417400\`,  // separator
	}
	for _, id := range reject {
		if ValidRepoID(id) {
			t.Fatalf("%q should be rejected", id)
		}
	}
}

// Every id the service mints must pass its own validator.
func TestValidRepoIDAcceptsGeneratedIDs(t *testing.T) {
	for i := 0; i < 64; i++ {
		id := uuid.NewString()
		if !ValidRepoID(id) {
			t.Fatalf("generated id %q should be accepted", id)
		}
	}
}

func TestResolveUnder(t *testing.T) {
	base := t.TempDir()

	got, err := ResolveUnder(base, "a/b.txt")
	if err != nil {
		t.Fatalf("ResolveUnder: %v", err)
	}
	want := filepath.Join(base, "a", "b.txt")
	if got != want {
		t.Fatalf("got=%q want=%q", got, want)
	}

	// "." resolves to the base itself
	got, err = ResolveUnder(base, ".")
	if err != nil {
		t.Fatalf("ResolveUnder dot: %v", err)
	}
	if got != filepath.Clean(base) {
		t.Fatalf("got=%q want base %q", got, base)
	}

	for _, rel := range []string{"../x", "a/../../x", "..", "../../etc/passwd", ""} {
		if _, err := ResolveUnder(base, rel); !errors.Is(err, ErrUnsafePath) {
			t.Fatalf("%q: want ErrUnsafePath, got %v", rel, err)
		}
	}
	if _, err := ResolveUnder(base, filepath.Join(base, "abs.txt")); !errors.Is(err, ErrUnsafePath) {
		t.Fatalf("absolute input should be rejected, got %v", err)
	}

	// inner ".." that still stays under base is fine after normalization
	got, err = ResolveUnder(base, "a/../b.txt")
	if err != nil {
		t.Fatalf("ResolveUnder inner dotdot: %v", err)
	}
	if got != filepath.Join(base, "b.txt") {
		t.Fatalf("got=%q", got)
	}
}

func TestResolveRepoPath(t *testing.T) {
	root := t.TempDir()
	id := "123e4567-e89b-42d3-a456-426614174000"

	got, err := ResolveRepoPath(root, id)
	if err != nil {
		t.Fatalf("ResolveRepoPath: %v", err)
	}
	if got != filepath.Join(root, id) {
		t.Fatalf("got=%q", got)
	}
	if !strings.HasPrefix(got, filepath.Clean(root)) {
		t.Fatalf("resolved path %q not under root %q", got, root)
	}

	for _, bad := range []string{"", "..", "x/y", "not-a-uuid"} {
		if _, err := ResolveRepoPath(root, bad); !errors.Is(err, ErrBadRepoID) {
			t.Fatalf("%q: want ErrBadRepoID, got %v", bad, err)
		}
	}
}
