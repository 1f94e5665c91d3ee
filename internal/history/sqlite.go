package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite via modernc.org/sqlite (pure Go).
type SQLiteStore struct {
	db *sql.DB
}

// Compile-time check that SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates a new SQLite-backed store.
// dbPath is the path to the SQLite database file; use ":memory:" for testing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	// Each new connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS fetches (
			id          TEXT PRIMARY KEY,
			target      TEXT NOT NULL,
			record_json TEXT NOT NULL,
			status_code TEXT DEFAULT '',
			error       TEXT DEFAULT '',
			fetched_at  TEXT NOT NULL
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create table: %w", err)
	}

	createIndexSQL := `
		CREATE INDEX IF NOT EXISTS idx_fetches_target ON fetches(target, fetched_at);
	`
	if _, err := db.Exec(createIndexSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save persists rec. If rec.ID is empty, a new UUID is generated and
// assigned.
func (s *SQLiteStore) Save(ctx context.Context, rec *Record) error {
	stamp(rec, uuid.NewString)

	recJSON, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal record: %w", err)
	}

	query := `
		INSERT INTO fetches (id, target, record_json, status_code, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			target      = excluded.target,
			record_json = excluded.record_json,
			status_code = excluded.status_code,
			error       = excluded.error,
			fetched_at  = excluded.fetched_at
	`
	_, err = s.db.ExecContext(ctx, query,
		rec.ID,
		rec.Target,
		string(recJSON),
		rec.StatusCode,
		rec.Error,
		rec.FetchedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("history: save record: %w", err)
	}

	return nil
}

// Latest retrieves the most recent record for the given target.
// Returns (nil, nil) if none is found.
func (s *SQLiteStore) Latest(ctx context.Context, target string) (*Record, error) {
	query := `
		SELECT record_json FROM fetches
		WHERE target = ?
		ORDER BY fetched_at DESC
		LIMIT 1
	`
	return s.loadOne(ctx, query, target)
}

// LoadByID retrieves a record by its unique ID.
// Returns (nil, nil) if none is found.
func (s *SQLiteStore) LoadByID(ctx context.Context, id string) (*Record, error) {
	query := `SELECT record_json FROM fetches WHERE id = ?`
	return s.loadOne(ctx, query, id)
}

// loadOne executes a query that returns a single record_json column and
// deserializes it into a Record.
func (s *SQLiteStore) loadOne(ctx context.Context, query string, args ...interface{}) (*Record, error) {
	row := s.db.QueryRowContext(ctx, query, args...)

	var recJSON string
	if err := row.Scan(&recJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("history: scan row: %w", err)
	}

	var rec Record
	if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
		return nil, fmt.Errorf("history: unmarshal record: %w", err)
	}

	return &rec, nil
}

// List returns a summary of all stored records, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]*Summary, error) {
	query := `SELECT id, target, status_code, error, fetched_at FROM fetches ORDER BY fetched_at DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("history: list records: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		var (
			summary   Summary
			fetchedAt string
		)
		if err := rows.Scan(&summary.ID, &summary.Target, &summary.StatusCode, &summary.Error, &fetchedAt); err != nil {
			return nil, fmt.Errorf("history: scan summary row: %w", err)
		}
		t, err := time.Parse(timeLayout, fetchedAt)
		if err != nil {
			return nil, fmt.Errorf("history: parse fetched_at %q: %w", fetchedAt, err)
		}
		summary.FetchedAt = t
		summaries = append(summaries, &summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate rows: %w", err)
	}

	return summaries, nil
}

// Delete removes a record by its ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM fetches WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("history: delete record: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Cleanup removes records whose fetched_at is older than maxAge from now.
// It returns the number of deleted records.
func (s *SQLiteStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Format(timeLayout)

	query := `DELETE FROM fetches WHERE fetched_at < ?`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}

	return deleted, nil
}
