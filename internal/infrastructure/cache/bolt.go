package cache

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pricelens/backend/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("search")

// BoltCache persists cache entries in a single bbolt file, so search
// responses survive between batch runs. Each value is stored with an
// 8-byte big-endian expiry (unix nanoseconds) prefix.
type BoltCache struct {
	db  *bolt.DB
	now func() time.Time
}

// NewBoltCache opens (or creates) the database at path
func NewBoltCache(path string) (*BoltCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for cache: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltCache{db: db, now: time.Now}, nil
}

// Get retrieves a value; expired entries are reported as misses
func (c *BoltCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketName).Get([]byte(key))
		if len(raw) < 8 {
			return domain.ErrCacheMiss
		}
		expiry := int64(binary.BigEndian.Uint64(raw[:8]))
		if c.now().UnixNano() > expiry {
			return domain.ErrCacheMiss
		}
		value = append([]byte(nil), raw[8:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value with TTL
func (c *BoltCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	raw := make([]byte, 8+len(value))
	binary.BigEndian.PutUint64(raw[:8], uint64(c.now().Add(ttl).UnixNano()))
	copy(raw[8:], value)

	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), raw)
	})
}

// Delete removes a value
func (c *BoltCache) Delete(ctx context.Context, key string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

// Exists checks if a key exists and is not expired
func (c *BoltCache) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if err == domain.ErrCacheMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Prune deletes every expired entry and returns how many were removed
func (c *BoltCache) Prune() (int, error) {
	removed := 0
	now := c.now().UnixNano()
	err := c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if len(v) < 8 || int64(binary.BigEndian.Uint64(v[:8])) < now {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

// Close closes the database
func (c *BoltCache) Close() error {
	return c.db.Close()
}
