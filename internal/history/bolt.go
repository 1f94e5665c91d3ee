package history

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

const fetchBucket = "fetches"

// BoltStore implements Store on a single bbolt bucket keyed by record ID.
type BoltStore struct {
	db *bolt.DB
}

// Compile-time check that BoltStore implements Store.
var _ Store = (*BoltStore)(nil)

// NewBoltStore opens or creates the bbolt file at path.
func NewBoltStore(path string) (*BoltStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("history: open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(fetchBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: init bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Save persists rec, assigning a UUID when rec.ID is empty.
func (b *BoltStore) Save(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stamp(rec, uuid.NewString)

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("history: marshal record: %w", err)
	}
	err = b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(rec.ID), data)
	})
	if err != nil {
		return fmt.Errorf("history: save record: %w", err)
	}
	return nil
}

// Latest returns the newest record for target, or (nil, nil).
func (b *BoltStore) Latest(ctx context.Context, target string) (*Record, error) {
	var latest *Record
	err := b.each(ctx, func(rec *Record) error {
		if rec.Target == target && (latest == nil || rec.FetchedAt.After(latest.FetchedAt)) {
			latest = rec
		}
		return nil
	})
	return latest, err
}

// LoadByID returns the record with id, or (nil, nil).
func (b *BoltStore) LoadByID(ctx context.Context, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rec *Record
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx)
		if err != nil {
			return err
		}
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}
		rec = &Record{}
		return json.Unmarshal(data, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("history: load record: %w", err)
	}
	return rec, nil
}

// List returns all summaries, newest first.
func (b *BoltStore) List(ctx context.Context) ([]*Summary, error) {
	var summaries []*Summary
	err := b.each(ctx, func(rec *Record) error {
		summaries = append(summaries, rec.summary())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].FetchedAt.After(summaries[j].FetchedAt)
	})
	return summaries, nil
}

// Delete removes the record with id.
func (b *BoltStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("history: delete record: %w", err)
	}
	return nil
}

// Cleanup removes records fetched more than maxAge ago.
func (b *BoltStore) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)

	var deleted int64
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx)
		if err != nil {
			return err
		}
		var expired [][]byte
		err = bucket.ForEach(func(k, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil || rec.FetchedAt.Before(cutoff) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("history: cleanup records: %w", err)
	}
	return deleted, nil
}

// Close closes the bbolt file.
func (b *BoltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// each decodes every stored record in key order.
func (b *BoltStore) each(ctx context.Context, fn func(*Record) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket, err := bucketOf(tx)
		if err != nil {
			return err
		}
		return bucket.ForEach(func(_, v []byte) error {
			var rec Record
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			return fn(&rec)
		})
	})
	if err != nil {
		return fmt.Errorf("history: read records: %w", err)
	}
	return nil
}

func bucketOf(tx *bolt.Tx) (*bolt.Bucket, error) {
	bucket := tx.Bucket([]byte(fetchBucket))
	if bucket == nil {
		return nil, fmt.Errorf("fetch bucket missing")
	}
	return bucket, nil
}
