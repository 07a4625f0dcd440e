package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hausnetz/fonwatch/internal/config"
)

const phonebookXML = `<phonebooks><phonebook name="Family">
<contact><person><realName>Alice</realName></person>
<telephony><number type="mobile">+491701234567</number></telephony></contact>
</phonebook></phonebooks>`

func writePhonebooksFile(t *testing.T, dir, url string) string {
	t.Helper()
	path := filepath.Join(dir, "phonebooks.yaml")
	content := fmt.Sprintf("phonebooks:\n  - id: fritzbox\n    type: tr064\n    url: %s\n    region: DE\n", url)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write phonebooks file: %v", err)
	}
	return path
}

func testConfig(t *testing.T, dir, phonebooksFile string) *config.Config {
	t.Helper()
	return &config.Config{
		AppName:                "fonwatch",
		Env:                    "test",
		LogLevel:               "error",
		PhonebooksFile:         phonebooksFile,
		PublishersFile:         filepath.Join(dir, "absent-publishers.yaml"),
		RefreshInterval:        time.Minute,
		FetchTimeout:           2 * time.Second,
		StorageType:            "bbolt",
		BBoltPath:              filepath.Join(dir, "snapshots.db"),
		SnapshotTTL:            time.Hour,
		StorageCleanupInterval: time.Hour,
	}
}

func TestNewMonitorBuildsDirectories(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(phonebookXML))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := testConfig(t, dir, writePhonebooksFile(t, dir, server.URL))

	m, err := NewMonitor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	defer m.closeStore()

	dirs := m.Directories()
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if name, ok := dirs[0].LookupNumber("0170 1234567"); !ok || name != "Alice" {
		t.Fatalf("LookupNumber = %q, %v; want Alice, true", name, ok)
	}
}

func TestMonitorSeedsFromSnapshotWhenSourceIsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(phonebookXML))
	}))

	dir := t.TempDir()
	cfg := testConfig(t, dir, writePhonebooksFile(t, dir, server.URL))

	m, err := NewMonitor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}
	m.persistSnapshots()
	m.closeStore()
	server.Close()

	// Restart against a dead source; the snapshot must keep lookups working.
	cfg2 := testConfig(t, dir, writePhonebooksFile(t, dir, "http://127.0.0.1:1/phonebook.xml"))
	cfg2.BBoltPath = cfg.BBoltPath

	m2, err := NewMonitor(context.Background(), cfg2, nil)
	if err != nil {
		t.Fatalf("NewMonitor after restart failed: %v", err)
	}
	defer m2.closeStore()

	dirs := m2.Directories()
	if len(dirs) != 1 {
		t.Fatalf("expected 1 directory, got %d", len(dirs))
	}
	if name, ok := dirs[0].LookupNumber("+491701234567"); !ok || name != "Alice" {
		t.Fatalf("seeded lookup = %q, %v; want Alice, true", name, ok)
	}
	if got := dirs[0].Name(); got != "Family" {
		t.Fatalf("seeded name = %q, want Family", got)
	}
}

func TestMonitorRunStopsOnContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(phonebookXML))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfg := testConfig(t, dir, writePhonebooksFile(t, dir, server.URL))

	m, err := NewMonitor(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewMonitor failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
