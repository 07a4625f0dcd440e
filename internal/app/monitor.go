package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hausnetz/fonwatch/internal/callmonitor"
	"github.com/hausnetz/fonwatch/internal/config"
	"github.com/hausnetz/fonwatch/internal/logger"
	"github.com/hausnetz/fonwatch/internal/phonebook"
	"github.com/hausnetz/fonwatch/internal/storage"
	"github.com/hausnetz/fonwatch/pkg/httpclient"
	"github.com/hausnetz/fonwatch/pkg/phonebooks"
	"github.com/hausnetz/fonwatch/pkg/publishers"
)

// Monitor represents the fonwatch runtime. It owns the phonebook
// directories, refreshes them on a timer, persists snapshots, and runs
// the call monitor feeding resolved call events into the publishers.
type Monitor struct {
	cfg             *config.Config
	sourceReg       *phonebooks.Registry
	directories     []*phonebook.Directory
	fanout          *publishers.Fanout
	callMon         *callmonitor.Monitor
	refreshInterval time.Duration
	store           storage.Store
}

// Logger is the injectable logging surface for the runtime.
type Logger = publishers.Logger

// NewMonitor builds the fonwatch runtime from config files. Phonebook
// directories perform their initial fetch here; sources that cannot be
// reached start from a persisted snapshot when one is fresh enough.
func NewMonitor(ctx context.Context, cfg *config.Config, log Logger) (*Monitor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sourceReg, err := phonebooks.LoadRegistry(cfg.PhonebooksFile)
	if err != nil {
		return nil, fmt.Errorf("load phonebooks registry: %w", err)
	}
	sources := sourceReg.All()
	sourceIDs := make([]string, 0, len(sources))
	for _, src := range sources {
		sourceIDs = append(sourceIDs, src.ID)
	}
	logger.InfoObj("phonebooks registry loaded", "phonebooks_meta", map[string]any{
		"count": len(sourceIDs),
		"ids":   sourceIDs,
	})

	fanout, err := buildFanout(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		SnapshotTTL:     cfg.SnapshotTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.InfoObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"snapshot_ttl_seconds":     int(cfg.SnapshotTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client := httpclient.NewRestyClient(cfg.FetchTimeout)
	fetcherReg := phonebooks.DefaultFetcherRegistry(client)

	directories, err := buildDirectories(ctx, cfg, sources, fetcherReg, store)
	if err != nil {
		store.Close()
		return nil, err
	}

	m := &Monitor{
		cfg:             cfg,
		sourceReg:       sourceReg,
		directories:     directories,
		fanout:          fanout,
		refreshInterval: cfg.RefreshInterval,
		store:           store,
	}

	if cfg.CallMonitorEnabled {
		dirs := make([]callmonitor.Directory, 0, len(directories))
		for _, d := range directories {
			dirs = append(dirs, d)
		}
		m.callMon = callmonitor.New(cfg.CallMonitorAddress, dirs, fanout)
	}

	return m, nil
}

// buildFanout loads and instantiates publishers. Publishing is only
// required when the call monitor is enabled; otherwise the daemon just
// maintains lookup caches.
func buildFanout(ctx context.Context, cfg *config.Config, log Logger) (*publishers.Fanout, error) {
	publisherReg, err := publishers.LoadRegistry(cfg.PublishersFile)
	if err != nil {
		if cfg.CallMonitorEnabled {
			return nil, fmt.Errorf("load publishers registry: %w", err)
		}
		logger.WarnObj("publishers registry unavailable, events disabled", "publishers_file", cfg.PublishersFile)
		return publishers.NewFanout(nil), nil
	}

	enabled := publisherReg.Enabled()
	if len(enabled) == 0 {
		if cfg.CallMonitorEnabled {
			return nil, fmt.Errorf("no publishers configured")
		}
		return publishers.NewFanout(nil), nil
	}

	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	logger.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})

	return publishers.NewFanout(pubClients), nil
}

// buildDirectories constructs one directory per source (triggering the
// initial fetch) and seeds empty ones from persisted snapshots.
func buildDirectories(ctx context.Context, cfg *config.Config, sources []phonebooks.Source, fetcherReg phonebooks.FetcherRegistry, store storage.Store) ([]*phonebook.Directory, error) {
	directories := make([]*phonebook.Directory, 0, len(sources))
	for _, src := range sources {
		fetcher, err := fetcherReg.FetcherFor(src)
		if err != nil {
			return nil, fmt.Errorf("resolve fetcher for phonebook %s: %w", src.ID, err)
		}

		region := src.Region
		if region == "" {
			region = cfg.DefaultRegion
		}

		dir := phonebook.NewDirectory(ctx, fetcher, src, phonebook.StaticRegion(region))
		if dir.Size() == 0 {
			snap, ok, err := store.LoadSnapshot(src.ID)
			if err != nil {
				logger.WarnObj("snapshot load failed", "snapshot_error", map[string]any{
					"source_id": src.ID,
					"error":     err.Error(),
				})
			} else if ok {
				dir.Seed(snap.Name, snap.Entries)
				logger.InfoObj("phonebook seeded from snapshot", "snapshot_meta", map[string]any{
					"source_id":  src.ID,
					"entries":    len(snap.Entries),
					"fetched_at": snap.FetchedAt,
				})
			}
		}
		directories = append(directories, dir)
	}
	return directories, nil
}

// Run starts the refresh loop (and the call monitor, when enabled) until
// the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m == nil || len(m.directories) == 0 {
		return fmt.Errorf("monitor is not initialized")
	}
	defer m.closeStore()

	logger.InfoObj("monitor loop starting", "monitor_state", map[string]any{
		"phonebooks_count": len(m.directories),
		"publishers_count": m.fanout.Size(),
		"refresh_interval": m.refreshInterval.String(),
		"callmonitor":      m.callMon != nil,
	})

	if m.callMon != nil {
		go func() {
			if err := m.callMon.Run(ctx); err != nil {
				logger.ErrorObj("call monitor stopped", "error", err)
			}
		}()
	}

	// The initial fetch already ran during construction; persist its result.
	m.persistSnapshots()

	ticker := time.NewTicker(m.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoObj("monitor loop exiting", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			m.refreshOnce(ctx)
		}
	}
}

// refreshOnce refreshes every directory and persists the fresh snapshots.
func (m *Monitor) refreshOnce(ctx context.Context) {
	start := time.Now()
	for _, dir := range m.directories {
		dir.Refresh(ctx)
	}
	m.persistSnapshots()
	logger.InfoObj("refresh completed", "refresh_meta", map[string]any{
		"phonebooks_count": len(m.directories),
		"elapsed_ms":       time.Since(start).Milliseconds(),
	})
}

// persistSnapshots stores the state of every non-empty directory.
func (m *Monitor) persistSnapshots() {
	for _, dir := range m.directories {
		name, entries := dir.Snapshot()
		if len(entries) == 0 {
			continue
		}
		snap := storage.Snapshot{
			Name:      name,
			Entries:   entries,
			FetchedAt: time.Now(),
		}
		if err := m.store.SaveSnapshot(dir.SourceID(), snap); err != nil {
			logger.WarnObj("snapshot save failed", "snapshot_error", map[string]any{
				"source_id": dir.SourceID(),
				"error":     err.Error(),
			})
		}
	}
}

// Directories exposes the phonebook directories, mainly for lookup tooling.
func (m *Monitor) Directories() []*phonebook.Directory {
	if m == nil {
		return nil
	}
	return m.directories
}

// closeStore safely closes the storage backend, logging any errors encountered.
func (m *Monitor) closeStore() {
	if m == nil || m.store == nil {
		return
	}
	if err := m.store.Close(); err != nil {
		logger.ErrorObj("storage close failed", "error", err)
	}
}
