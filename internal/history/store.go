// Package history persists a record of each fetch so earlier responses can
// be listed and inspected later.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Record captures the outcome of one fetch.
type Record struct {
	ID         string            `json:"id"`
	Target     string            `json:"target"`
	Host       string            `json:"host"`
	Port       int               `json:"port"`
	Path       string            `json:"path"`
	StatusCode string            `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	BodySize   int64             `json:"body_size"`
	DurationMS int64             `json:"duration_ms"`
	Error      string            `json:"error,omitempty"`
	FetchedAt  time.Time         `json:"fetched_at"`
}

// Summary is a lightweight record overview.
type Summary struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	StatusCode string    `json:"status_code"`
	Error      string    `json:"error,omitempty"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Store persists and retrieves fetch records.
type Store interface {
	// Save persists rec, assigning a new ID when rec.ID is empty.
	Save(ctx context.Context, rec *Record) error

	// Latest returns the most recent record for target, or (nil, nil).
	Latest(ctx context.Context, target string) (*Record, error)

	// LoadByID returns the record with the given ID, or (nil, nil).
	LoadByID(ctx context.Context, id string) (*Record, error)

	// List returns summaries, newest first.
	List(ctx context.Context) ([]*Summary, error)

	// Delete removes a record by ID.
	Delete(ctx context.Context, id string) error

	// Cleanup removes records fetched more than maxAge ago and returns how
	// many were removed.
	Cleanup(ctx context.Context, maxAge time.Duration) (int64, error)

	Close() error
}

// NewStore opens the configured backend: "sqlite", "bbolt", or
// ""/"none" for a store that keeps nothing.
func NewStore(typ, path string) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "sqlite":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("history: sqlite store requires a path")
		}
		s, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("history: bbolt store requires a path")
		}
		s, err := NewBoltStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("history: unsupported store type %q", typ)
	}
}

// stamp fills the ID and FetchedAt of rec when they are unset.
func stamp(rec *Record, newID func() string) {
	if rec.ID == "" {
		rec.ID = newID()
	}
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = time.Now().UTC()
	}
}

func (r *Record) summary() *Summary {
	return &Summary{
		ID:         r.ID,
		Target:     r.Target,
		StatusCode: r.StatusCode,
		Error:      r.Error,
		FetchedAt:  r.FetchedAt,
	}
}

type noopStore struct{}

func (noopStore) Save(context.Context, *Record) error                   { return nil }
func (noopStore) Latest(context.Context, string) (*Record, error)       { return nil, nil }
func (noopStore) LoadByID(context.Context, string) (*Record, error)     { return nil, nil }
func (noopStore) List(context.Context) ([]*Summary, error)              { return nil, nil }
func (noopStore) Delete(context.Context, string) error                  { return nil }
func (noopStore) Cleanup(context.Context, time.Duration) (int64, error) { return 0, nil }
func (noopStore) Close() error                                          { return nil }
