package translation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS translations (
	id          TEXT PRIMARY KEY,
	text        TEXT NOT NULL,
	src         TEXT NOT NULL,
	dst         TEXT NOT NULL,
	translation TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS translations_expires_at ON translations(expires_at);`

// SQLiteStore persists entries in a local SQLite file. Times are stored as
// unix nanoseconds; expires_at 0 means no expiry.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (and creates) the database at path. Use ":memory:" for tests.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key Key) (Entry, bool, error) {
	var (
		e                  Entry
		created, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT text, src, dst, translation, created_at, expires_at FROM translations WHERE id = ?`,
		key.ID(),
	).Scan(&e.Key.Text, &e.Key.Src, &e.Key.Dst, &e.Translation, &created, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.CreatedAt = time.Unix(0, created)
	if expiresAt > 0 {
		e.ExpiresAt = time.Unix(0, expiresAt)
	}
	if e.Expired(s.now()) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, entry Entry) error {
	var expiresAt int64
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt.UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO translations (id, text, src, dst, translation, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET translation = excluded.translation,
		   created_at = excluded.created_at, expires_at = excluded.expires_at`,
		entry.Key.ID(), entry.Key.Text, entry.Key.Src, entry.Key.Dst, entry.Translation,
		entry.CreatedAt.UnixNano(), expiresAt,
	)
	return err
}

func (s *SQLiteStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM translations WHERE expires_at > 0 AND expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM translations`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
