package api

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/hotspot.report/internal/db"
	"github.com/banshee-data/hotspot.report/internal/hotspot"
	"github.com/banshee-data/hotspot.report/internal/ingest"
	"github.com/banshee-data/hotspot.report/internal/timeutil"
)

// DefaultCacheTTL is how long a computed snapshot is served before the
// source is read again.
const DefaultCacheTTL = time.Hour

// DefaultSnapshotsKept bounds the stored snapshot history.
const DefaultSnapshotsKept = 48

// ReportSource supplies the current report batch.
type ReportSource interface {
	Reports(ctx context.Context) ([]hotspot.Report, error)
}

// SnapshotStore persists computed snapshots. *db.DB implements it.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *db.Snapshot) error
	LatestSnapshot(ctx context.Context) (*db.Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]db.SnapshotSummary, error)
	PruneSnapshots(ctx context.Context, keep int) (int64, error)
}

// HotspotService caches the latest hotspot snapshot and recomputes it from
// the source once it is older than the TTL.
type HotspotService struct {
	engine *hotspot.Engine
	source ReportSource
	store  SnapshotStore // optional
	clock  timeutil.Clock
	ttl    time.Duration
	keep   int

	mu      sync.Mutex
	current *db.Snapshot
	loaded  bool
}

// ServiceOption configures a HotspotService.
type ServiceOption func(*HotspotService)

// WithStore persists snapshots and seeds the cache from the latest one.
func WithStore(store SnapshotStore) ServiceOption {
	return func(s *HotspotService) { s.store = store }
}

// WithClock sets the clock used for cache expiry and snapshot times.
func WithClock(c timeutil.Clock) ServiceOption {
	return func(s *HotspotService) { s.clock = c }
}

// WithTTL sets the cache lifetime. Non-positive values disable caching.
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *HotspotService) { s.ttl = ttl }
}

// WithSnapshotsKept sets how many stored snapshots survive pruning.
func WithSnapshotsKept(n int) ServiceOption {
	return func(s *HotspotService) { s.keep = n }
}

// NewHotspotService creates a service computing hotspots from source.
func NewHotspotService(engine *hotspot.Engine, source ReportSource, opts ...ServiceOption) *HotspotService {
	s := &HotspotService{
		engine: engine,
		source: source,
		clock:  timeutil.RealClock{},
		ttl:    DefaultCacheTTL,
		keep:   DefaultSnapshotsKept,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Result is a snapshot plus whether it is being served after a failed
// refresh.
type Result struct {
	Snapshot *db.Snapshot
	Stale    bool
}

// Hotspots returns the cached snapshot while it is fresh, or recomputes it.
// force skips the freshness check. When recomputation fails the last known
// snapshot is returned as stale; with none, the error is returned.
// Concurrent callers share one refresh.
func (s *HotspotService) Hotspots(ctx context.Context, force bool) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded && s.store != nil {
		latest, err := s.store.LatestSnapshot(ctx)
		if err != nil {
			opsf("failed to load latest snapshot: %v", err)
		} else {
			s.current = latest
		}
		s.loaded = true
	}

	if !force && s.current != nil && s.clock.Since(s.current.CreatedAt) < s.ttl {
		return Result{Snapshot: s.current}, nil
	}

	snap, err := s.refresh(ctx)
	if err != nil {
		if s.current != nil {
			opsf("hotspot refresh failed, serving snapshot %s: %v", s.current.ID, err)
			return Result{Snapshot: s.current, Stale: true}, nil
		}
		return Result{}, err
	}
	s.current = snap
	return Result{Snapshot: snap}, nil
}

// Current returns the cached snapshot without refreshing, or nil.
func (s *HotspotService) Current() *db.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Config returns the engine configuration.
func (s *HotspotService) Config() hotspot.Config {
	return s.engine.Config()
}

func (s *HotspotService) refresh(ctx context.Context) (*db.Snapshot, error) {
	start := s.clock.Now()

	reports, err := s.source.Reports(ctx)
	var shape *ingest.DataShapeError
	switch {
	case errors.As(err, &shape):
		opsf("report source has malformed data, producing no clusters: %v", err)
		reports = nil
	case err != nil:
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	clusters, stats := s.engine.RunWithStats(reports)
	snap := &db.Snapshot{
		ID:          uuid.NewString(),
		CreatedAt:   s.clock.Now(),
		ReportCount: len(reports),
		Params:      s.engine.Config(),
		Clusters:    clusters,
		Stats:       stats,
	}

	if s.store != nil {
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			opsf("failed to store snapshot %s: %v", snap.ID, err)
		} else if s.keep > 0 {
			if _, err := s.store.PruneSnapshots(ctx, s.keep); err != nil {
				opsf("failed to prune snapshots: %v", err)
			}
		}
	}

	diagf("computed snapshot %s: %d reports, %d clusters in %v",
		snap.ID, snap.ReportCount, len(clusters), s.clock.Since(start))
	return snap, nil
}
