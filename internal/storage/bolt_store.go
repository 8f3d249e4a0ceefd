package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/scholarscout-hq/scholarscout/internal/domain"
)

const (
	urlBucket         = "urls"
	scholarshipBucket = "scholarships"
)

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db *bolt.DB
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{urlBucket, scholarshipBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &boltStore{db: db}, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// KnownURLs loads every recorded URL into a set.
func (b *boltStore) KnownURLs() (map[string]struct{}, error) {
	if b == nil || b.db == nil {
		return map[string]struct{}{}, nil
	}

	out := make(map[string]struct{})
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(urlBucket))
		if bucket == nil {
			return fmt.Errorf("url bucket missing")
		}
		return bucket.ForEach(func(k, _ []byte) error {
			out[string(k)] = struct{}{}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkURL records a URL as seen.
func (b *boltStore) MarkURL(url string) error {
	if b == nil || b.db == nil {
		return nil
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(urlBucket))
		if bucket == nil {
			return fmt.Errorf("url bucket missing")
		}
		value := []byte(time.Now().UTC().Format(time.RFC3339))
		return bucket.Put([]byte(url), value)
	})
}

// SaveScholarship upserts the record keyed by URL and marks the URL as seen.
func (b *boltStore) SaveScholarship(rec domain.Scholarship) error {
	if b == nil || b.db == nil {
		return nil
	}
	if rec.URL == "" {
		return fmt.Errorf("scholarship record has no url")
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal scholarship: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(scholarshipBucket))
		if bucket == nil {
			return fmt.Errorf("scholarship bucket missing")
		}
		if err := bucket.Put([]byte(rec.URL), payload); err != nil {
			return err
		}
		urls := tx.Bucket([]byte(urlBucket))
		if urls == nil {
			return fmt.Errorf("url bucket missing")
		}
		value := []byte(time.Now().UTC().Format(time.RFC3339))
		return urls.Put([]byte(rec.URL), value)
	})
}
