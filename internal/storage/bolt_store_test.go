package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T, opts Options) Store {
	t.Helper()
	store, err := NewStore("bbolt", filepath.Join(t.TempDir(), "snapshots.db"), opts)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRoundtrip(t *testing.T) {
	store := newTestStore(t, Options{})

	in := Snapshot{
		Name:    "Family",
		Entries: map[string]string{"+491701234567": "Alice", "+49301234567": "Alice"},
	}
	if err := store.SaveSnapshot("fritzbox", in); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	out, found, err := store.LoadSnapshot("fritzbox")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if !found {
		t.Fatal("snapshot not found after save")
	}
	if out.Name != "Family" {
		t.Errorf("Name = %q, want Family", out.Name)
	}
	if len(out.Entries) != 2 || out.Entries["+491701234567"] != "Alice" {
		t.Errorf("unexpected entries: %v", out.Entries)
	}
	if out.FetchedAt.IsZero() {
		t.Error("FetchedAt not defaulted on save")
	}
}

func TestBoltStoreMissingSnapshot(t *testing.T) {
	store := newTestStore(t, Options{})

	_, found, err := store.LoadSnapshot("unknown")
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if found {
		t.Fatal("unexpectedly found snapshot for unknown source")
	}
}

func TestBoltStoreExpiredSnapshotIsDropped(t *testing.T) {
	store := newTestStore(t, Options{SnapshotTTL: time.Hour})

	stale := Snapshot{
		Name:      "Family",
		Entries:   map[string]string{"+491701234567": "Alice"},
		FetchedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := store.SaveSnapshot("fritzbox", stale); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	if _, found, err := store.LoadSnapshot("fritzbox"); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	} else if found {
		t.Fatal("expired snapshot was returned")
	}

	// The stale entry must be gone, not just hidden.
	if _, found, _ := store.LoadSnapshot("fritzbox"); found {
		t.Fatal("expired snapshot resurfaced")
	}
}

func TestBoltStoreOverwrite(t *testing.T) {
	store := newTestStore(t, Options{})

	if err := store.SaveSnapshot("fritzbox", Snapshot{Name: "Old", Entries: map[string]string{"+49": "X"}}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}
	if err := store.SaveSnapshot("fritzbox", Snapshot{Name: "New", Entries: map[string]string{"+49": "Y"}}); err != nil {
		t.Fatalf("SaveSnapshot failed: %v", err)
	}

	out, found, err := store.LoadSnapshot("fritzbox")
	if err != nil || !found {
		t.Fatalf("LoadSnapshot = %v, %v", found, err)
	}
	if out.Name != "New" || out.Entries["+49"] != "Y" {
		t.Errorf("overwrite did not take: %+v", out)
	}
}

func TestNewStoreNoop(t *testing.T) {
	for _, typ := range []string{"", "none", "disabled"} {
		store, err := NewStore(typ, "", Options{})
		if err != nil {
			t.Fatalf("NewStore(%q) failed: %v", typ, err)
		}
		if err := store.SaveSnapshot("x", Snapshot{Name: "X"}); err != nil {
			t.Fatalf("noop SaveSnapshot failed: %v", err)
		}
		if _, found, err := store.LoadSnapshot("x"); err != nil || found {
			t.Fatalf("noop LoadSnapshot = %v, %v; want miss", found, err)
		}
	}
}

func TestNewStoreRejectsBadConfig(t *testing.T) {
	if _, err := NewStore("bbolt", "  ", Options{}); err == nil {
		t.Fatal("expected error for bbolt without path")
	}
	if _, err := NewStore("redis", "x", Options{}); err == nil {
		t.Fatal("expected error for unsupported storage type")
	}
}
