// Package store persists extracted postings in SQLite via the pure-Go
// modernc driver. One table, keyed by sourceTag + "_" + id; re-upload of
// the same posting overwrites the stored row.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rishabhxpandey/lnkd-apb/models"
	"github.com/rishabhxpandey/lnkd-apb/simhash"
)

// ErrNotFound is returned when no posting exists under the given key.
var ErrNotFound = errors.New("store: posting not found")

// Store wraps the SQLite database holding extracted postings.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and
// configures WAL mode. Call Migrate before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection to ":memory:" is a separate database;
		// pin the pool to one connection so tests see a single store.
		db.SetMaxOpenConns(1)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: exec %s: %w", pragma, err)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS postings (
	key           TEXT PRIMARY KEY,
	id            TEXT NOT NULL,
	url           TEXT NOT NULL,
	title         TEXT NOT NULL,
	organization  TEXT NOT NULL,
	body          TEXT NOT NULL,
	body_markdown TEXT NOT NULL DEFAULT '',
	posted_label  TEXT NOT NULL DEFAULT '',
	fetched_at    DATETIME NOT NULL,
	source_tag    TEXT NOT NULL,
	fingerprint   INTEGER NOT NULL DEFAULT 0,
	degraded      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_postings_fetched_at ON postings(fetched_at);
`

// Migrate creates the schema. Idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, migration); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put inserts the posting, overwriting any existing row with the same key.
func (s *Store) Put(ctx context.Context, p *models.Posting) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO postings
			(key, id, url, title, organization, body, body_markdown,
			 posted_label, fetched_at, source_tag, fingerprint, degraded)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			id            = excluded.id,
			url           = excluded.url,
			title         = excluded.title,
			organization  = excluded.organization,
			body          = excluded.body,
			body_markdown = excluded.body_markdown,
			posted_label  = excluded.posted_label,
			fetched_at    = excluded.fetched_at,
			source_tag    = excluded.source_tag,
			fingerprint   = excluded.fingerprint,
			degraded      = excluded.degraded`,
		p.Key(), p.ID, p.URL, p.Title, p.Organization, p.Body, p.BodyMarkdown,
		p.PostedLabel, p.FetchedAt, p.SourceTag, int64(p.Fingerprint), p.Degraded,
	)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", p.Key(), err)
	}
	return nil
}

// Get returns the posting stored under key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (*models.Posting, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, title, organization, body, body_markdown,
			posted_label, fetched_at, source_tag, fingerprint, degraded
		 FROM postings WHERE key = ?`,
		key,
	)
	return scanPosting(row)
}

// List returns stored postings ordered newest first. limit <= 0 falls
// back to 100.
func (s *Store) List(ctx context.Context, limit, offset int) ([]models.Posting, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, title, organization, body, body_markdown,
			posted_label, fetched_at, source_tag, fingerprint, degraded
		 FROM postings ORDER BY fetched_at DESC, key LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var postings []models.Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list iterate: %w", err)
	}
	return postings, nil
}

// Delete removes the posting under key. ErrNotFound when nothing was
// stored there.
func (s *Store) Delete(ctx context.Context, key string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM postings WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of stored postings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM postings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Fingerprints returns every stored key with its SimHash fingerprint,
// for the similarity scan.
func (s *Store) Fingerprints(ctx context.Context) ([]simhash.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, fingerprint FROM postings`)
	if err != nil {
		return nil, fmt.Errorf("store: fingerprints: %w", err)
	}
	defer rows.Close()

	var candidates []simhash.Candidate
	for rows.Next() {
		var key string
		var fp int64
		if err := rows.Scan(&key, &fp); err != nil {
			return nil, fmt.Errorf("store: scan fingerprint: %w", err)
		}
		candidates = append(candidates, simhash.Candidate{Key: key, Fingerprint: uint64(fp)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: fingerprints iterate: %w", err)
	}
	return candidates, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPosting(row scannable) (*models.Posting, error) {
	var p models.Posting
	var fetchedAt time.Time
	var fp int64

	err := row.Scan(&p.ID, &p.URL, &p.Title, &p.Organization, &p.Body, &p.BodyMarkdown,
		&p.PostedLabel, &fetchedAt, &p.SourceTag, &fp, &p.Degraded)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: scan posting: %w", err)
	}

	p.FetchedAt = fetchedAt.UTC()
	p.Fingerprint = uint64(fp)
	return &p, nil
}
