// Package bookmark persists saved-repository bookmarks. Credentials are
// encrypted at rest; url and branch are plain. Storage is database/sql
// over an embedded sqlite file by default, or Postgres when a DSN is
// configured.
package bookmark

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/crypto/chacha20poly1305"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no bookmark has the requested name.
var ErrNotFound = errors.New("bookmark: not found")

// Bookmark is one saved repository. Credential is only populated by Get;
// List leaves it empty.
type Bookmark struct {
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Branch     string    `json:"branch,omitempty"`
	Credential string    `json:"-"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store is safe for concurrent use; database/sql pools underneath.
type Store struct {
	db  *sql.DB
	pg  bool
	key [chacha20poly1305.KeySize]byte
}

// Open connects to Postgres when dsn is non-empty, otherwise to the sqlite
// file at path. secret derives the at-rest encryption key.
func Open(path, dsn, secret string) (*Store, error) {
	var db *sql.DB
	var err error
	pg := strings.TrimSpace(dsn) != ""
	if pg {
		db, err = sql.Open("pgx", strings.TrimSpace(dsn))
	} else {
		db, err = sql.Open("sqlite", path)
	}
	if err != nil {
		return nil, fmt.Errorf("bookmark: open store: %w", err)
	}
	s := &Store{db: db, pg: pg, key: sha256.Sum256([]byte(secret))}
	if err := s.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS bookmarks (
		name       TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		branch     TEXT NOT NULL DEFAULT '',
		credential BLOB,
		created_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("bookmark: ensure schema: %w", err)
	}
	return nil
}

// Put inserts or replaces a bookmark.
func (s *Store) Put(b Bookmark) error {
	if strings.TrimSpace(b.Name) == "" || strings.TrimSpace(b.URL) == "" {
		return errors.New("bookmark: name and url are required")
	}
	cred, err := s.seal(b.Credential)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(s.q(
		`INSERT INTO bookmarks (name, url, branch, credential, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (name) DO UPDATE
		 SET url = excluded.url, branch = excluded.branch, credential = excluded.credential`),
		b.Name, b.URL, b.Branch, cred, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("bookmark: put: %w", err)
	}
	return nil
}

// Get returns one bookmark with its credential decrypted.
func (s *Store) Get(name string) (Bookmark, error) {
	var b Bookmark
	var cred []byte
	row := s.db.QueryRow(s.q(`SELECT name, url, branch, credential, created_at FROM bookmarks WHERE name = $1`), name)
	if err := row.Scan(&b.Name, &b.URL, &b.Branch, &cred, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Bookmark{}, ErrNotFound
		}
		return Bookmark{}, fmt.Errorf("bookmark: get: %w", err)
	}
	plain, err := s.open(cred)
	if err != nil {
		return Bookmark{}, err
	}
	b.Credential = plain
	return b, nil
}

// List returns every bookmark, credentials omitted.
func (s *Store) List() ([]Bookmark, error) {
	rows, err := s.db.Query(`SELECT name, url, branch, created_at FROM bookmarks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("bookmark: list: %w", err)
	}
	defer rows.Close()
	var out []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.Name, &b.URL, &b.Branch, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// Delete removes a bookmark; deleting a missing name is a no-op.
func (s *Store) Delete(name string) error {
	_, err := s.db.Exec(s.q(`DELETE FROM bookmarks WHERE name = $1`), name)
	if err != nil {
		return fmt.Errorf("bookmark: delete: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

var placeholderPattern = regexp.MustCompile(`\$\d+`)

// q rewrites $N placeholders to sqlite's positional form when not on
// Postgres. Queries never reuse a placeholder, so the rewrite is safe.
func (s *Store) q(query string) string {
	if s.pg {
		return query
	}
	return placeholderPattern.ReplaceAllString(query, "?")
}

// seal encrypts cred as nonce||ciphertext; empty credentials stay nil.
func (s *Store) seal(cred string) ([]byte, error) {
	if cred == "" {
		return nil, nil
	}
	aead, err := chacha20poly1305.New(s.key[:])
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	return append(nonce, aead.Seal(nil, nonce, []byte(cred), nil)...), nil
}

func (s *Store) open(blob []byte) (string, error) {
	if len(blob) == 0 {
		return "", nil
	}
	aead, err := chacha20poly1305.New(s.key[:])
	if err != nil {
		return "", err
	}
	if len(blob) < aead.NonceSize() {
		return "", errors.New("bookmark: credential blob too short")
	}
	plain, err := aead.Open(nil, blob[:aead.NonceSize()], blob[aead.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("bookmark: decrypt credential: %w", err)
	}
	return string(plain), nil
}
