package phonebook

import (
	"context"
	"strings"
	"sync"

	"github.com/hausnetz/fonwatch/internal/logger"
	"github.com/hausnetz/fonwatch/pkg/phonebooks"
)

// Directory is a locally cached, normalized phonebook fetched from a
// remote source. It answers point lookups by phone number.
//
// Refresh is best effort: a failed fetch leaves the previous name and
// index untouched, so a transient router problem never blanks out a
// working phonebook.
type Directory struct {
	mu    sync.RWMutex
	name  string
	index map[string]string

	source  phonebooks.Source
	fetcher phonebooks.Fetcher
	regions RegionProvider
}

// NewDirectory builds a directory for the given source and performs one
// synchronous best-effort fetch so data is available immediately when the
// remote is reachable. Construction never fails; on fetch failure the
// directory starts empty.
func NewDirectory(ctx context.Context, fetcher phonebooks.Fetcher, source phonebooks.Source, regions RegionProvider) *Directory {
	d := &Directory{
		index:   make(map[string]string),
		source:  source,
		fetcher: fetcher,
		regions: regions,
	}
	d.Refresh(ctx)
	return d
}

// Refresh fetches the source document and atomically replaces the cached
// name and index on success. All failures are logged and swallowed.
func (d *Directory) Refresh(ctx context.Context) {
	pb, err := d.fetcher.Fetch(ctx, d.source)
	if err != nil {
		logger.WarnObj("phonebook refresh failed", "refresh_error", map[string]any{
			"source_id": d.source.ID,
			"url":       d.source.URL,
			"error":     err.Error(),
		})
		return
	}

	region := d.region()
	index := make(map[string]string)
	for _, contact := range pb.Contacts {
		for _, raw := range contact.Numbers {
			key := Normalize(raw, region)
			if prev, ok := index[key]; ok && prev != contact.Name {
				// Last write wins in document order; surface the overwrite.
				logger.DebugObj("phonebook number collision", "collision", map[string]any{
					"source_id": d.source.ID,
					"number":    key,
					"kept":      contact.Name,
					"dropped":   prev,
				})
			}
			index[key] = contact.Name
		}
	}

	d.mu.Lock()
	d.name = pb.Name
	d.index = index
	d.mu.Unlock()

	logger.DebugObj("phonebook refreshed", "refresh_result", map[string]any{
		"source_id": d.source.ID,
		"name":      pb.Name,
		"entries":   len(index),
	})
}

// Name returns the cached phonebook name ("" until the first successful fetch).
func (d *Directory) Name() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.name
}

// SourceID returns the id of the source this directory was built from.
func (d *Directory) SourceID() string {
	return d.source.ID
}

// Size returns the number of indexed numbers.
func (d *Directory) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.index)
}

// LookupNumber normalizes query the same way indexed numbers were
// normalized and returns the matching contact name. A query that
// normalizes to blank never matches, even if the index were to contain
// an empty key.
func (d *Directory) LookupNumber(query string) (string, bool) {
	normalized := Normalize(query, d.region())
	logger.DebugObj("lookup normalized query", "lookup", map[string]any{
		"raw":        query,
		"normalized": normalized,
	})
	if strings.TrimSpace(normalized) == "" {
		return "", false
	}

	d.mu.RLock()
	name, ok := d.index[normalized]
	d.mu.RUnlock()
	return name, ok
}

// Snapshot returns the cached name plus a copy of the index, for persistence.
func (d *Directory) Snapshot() (string, map[string]string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entries := make(map[string]string, len(d.index))
	for k, v := range d.index {
		entries[k] = v
	}
	return d.name, entries
}

// Seed installs a previously persisted snapshot, but only while the
// directory is still empty. A live fetch always beats stale data.
func (d *Directory) Seed(name string, entries map[string]string) {
	if len(entries) == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.index) > 0 {
		return
	}

	d.name = name
	d.index = make(map[string]string, len(entries))
	for k, v := range entries {
		d.index[k] = v
	}
}

func (d *Directory) region() string {
	if d.regions == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(d.regions.Region()))
}
