package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
)

const snapshotBucket = "phonebooks"

// boltStore implements a Store backed by BoltDB.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	snapshotTTL     time.Duration
	cleanupInterval time.Duration
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
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
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		snapshotTTL:     opts.SnapshotTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// SaveSnapshot persists the snapshot for the given source id.
func (b *boltStore) SaveSnapshot(sourceID string, snap Snapshot) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := time.Now()
	if snap.FetchedAt.IsZero() {
		snap.FetchedAt = now
	}
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}
		return bucket.Put([]byte(sourceID), payload)
	})
}

// LoadSnapshot returns the persisted snapshot for the source id, if one
// exists and has not outlived the TTL. Stale snapshots are deleted.
func (b *boltStore) LoadSnapshot(sourceID string) (Snapshot, bool, error) {
	if b == nil || b.db == nil {
		return Snapshot{}, false, nil
	}

	if err := b.maybeCleanupExpired(time.Now()); err != nil {
		return Snapshot{}, false, err
	}

	var (
		snap  Snapshot
		found bool
	)
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}

		key := []byte(sourceID)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		var stored Snapshot
		if err := json.Unmarshal(value, &stored); err != nil || b.expired(stored, time.Now()) {
			return bucket.Delete(key)
		}

		snap = stored
		found = true
		return nil
	})
	return snap, found, err
}

func (b *boltStore) expired(snap Snapshot, now time.Time) bool {
	return snap.FetchedAt.IsZero() || !snap.FetchedAt.Add(b.snapshotTTL).After(now)
}

// maybeCleanupExpired removes stale snapshots on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	if b == nil || b.db == nil {
		return nil
	}

	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(snapshotBucket))
		if bucket == nil {
			return fmt.Errorf("snapshot bucket missing")
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var stored Snapshot
			if err := json.Unmarshal(v, &stored); err != nil || b.expired(stored, now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}
