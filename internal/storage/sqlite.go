package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"board_mirror/internal/model"
	"board_mirror/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database. Each row holds the
// same JSON document the directory store writes to disk.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: shard tasks write concurrently, and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// GetThread returns the record for id.
func (s *SQLite) GetThread(ctx context.Context, id int64) (*model.ThreadRecord, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM threads WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query thread %d: %w", id, err)
	}
	rec, err := decodeThread([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("thread %d: %w", id, err)
	}
	return rec, nil
}

// PutThread inserts or replaces the record for id.
func (s *SQLite) PutThread(ctx context.Context, id int64, rec *model.ThreadRecord) error {
	data, err := encodeThread(rec)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threads (id, document, reply_count, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   document = excluded.document,
		   reply_count = excluded.reply_count,
		   updated_at = excluded.updated_at`,
		id, string(data), len(rec.Replies), now,
	)
	if err != nil {
		return fmt.Errorf("upsert thread %d: %w", id, err)
	}
	return nil
}

// CountThreads returns the number of stored threads.
func (s *SQLite) CountThreads(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count threads: %w", err)
	}
	return n, nil
}
