package bookmark

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "bookmarks.db"), "", "test-secret")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Put(Bookmark{
		Name:       "widgets",
		URL:        "https://github.com/acme/widgets",
		Branch:     "main",
		Credential: "user:tok-secret",
	}))

	got, err := s.Get("widgets")
	require.NoError(t, err)
	require.Equal(t, "https://github.com/acme/widgets", got.URL)
	require.Equal(t, "user:tok-secret", got.Credential, "credential must decrypt back")
	require.False(t, got.CreatedAt.IsZero())
}

func TestCredentialStoredEncrypted(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(Bookmark{Name: "x", URL: "https://h/a/b", Credential: "plaintext-token"}))

	var blob []byte
	row := s.db.QueryRow(s.q(`SELECT credential FROM bookmarks WHERE name = $1`), "x")
	require.NoError(t, row.Scan(&blob))
	require.NotContains(t, string(blob), "plaintext-token")
}

func TestPutUpsertsAndListOmitsCredential(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(Bookmark{Name: "x", URL: "https://h/a/b", Credential: "one"}))
	require.NoError(t, s.Put(Bookmark{Name: "x", URL: "https://h/a/c", Credential: "two"}))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "https://h/a/c", list[0].URL)
	require.Empty(t, list[0].Credential)

	got, err := s.Get("x")
	require.NoError(t, err)
	require.Equal(t, "two", got.Credential)
}

func TestDeleteAndNotFound(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(Bookmark{Name: "x", URL: "https://h/a/b"}))
	require.NoError(t, s.Delete("x"))
	require.NoError(t, s.Delete("x"), "deleting a missing bookmark is a no-op")

	_, err := s.Get("x")
	require.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestEmptyCredential(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(Bookmark{Name: "x", URL: "https://h/a/b"}))
	got, err := s.Get("x")
	require.NoError(t, err)
	require.Empty(t, got.Credential)
}
