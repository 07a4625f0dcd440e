package storage

import (
	"fmt"
	"strings"
	"time"
)

// Package storage provides local snapshot persistence so lookups keep
// working across restarts before the first successful fetch.

// Snapshot is a persisted copy of one directory's state.
type Snapshot struct {
	Name      string            `json:"name"`
	Entries   map[string]string `json:"entries"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// Store persists phonebook snapshots keyed by source id.
type Store interface {
	Close() error
	SaveSnapshot(sourceID string, snap Snapshot) error
	LoadSnapshot(sourceID string) (Snapshot, bool, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	SnapshotTTL     time.Duration
	CleanupInterval time.Duration
}

const (
	defaultSnapshotTTL     = 7 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.SnapshotTTL <= 0 {
		opts.SnapshotTTL = defaultSnapshotTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                          { return nil }
func (noopStore) SaveSnapshot(string, Snapshot) error   { return nil }
func (noopStore) LoadSnapshot(string) (Snapshot, bool, error) { return Snapshot{}, false, nil }
