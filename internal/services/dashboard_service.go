package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"omzet/internal/cache"
	"omzet/internal/core"
	"omzet/internal/format"
	"omzet/internal/report"
	"omzet/internal/source"
)

const (
	snapshotKey         = "snapshot"
	defaultSnapshotTTL  = 5 * time.Minute
	defaultViewCacheCap = 128
	defaultLoadTimeout  = time.Minute
)

// RefreshRequester asks background workers to re-import a table.
type RefreshRequester interface {
	RequestRefresh(ctx context.Context, source, table string) (uuid.UUID, error)
}

// Options tunes a DashboardService. Zero values take defaults.
type Options struct {
	SnapshotTTL   time.Duration
	ViewCacheSize int
	Formatter     *format.Formatter
	Requester     RefreshRequester
	Table         string
	// LoadTimeout bounds a shared source load. It is detached from the
	// context of whichever caller started the load.
	LoadTimeout time.Duration
}

// RefreshResult describes a completed snapshot reload.
type RefreshResult struct {
	Source    string    `json:"source"`
	Records   int       `json:"records"`
	Rejected  int       `json:"rejected"`
	LoadedAt  time.Time `json:"loaded_at"`
	RequestID string    `json:"request_id,omitempty"`
}

// DashboardService owns the record snapshot and runs the report pipeline
// against it. The snapshot is loaded once per TTL and replaced only by a
// successful load.
type DashboardService struct {
	src         source.RecordSource
	snapshots   *cache.LRUCache[snapshot]
	views       *cache.LRUCache[report.Dashboard]
	formatter   format.Formatter
	requester   RefreshRequester
	table       string
	loadTimeout time.Duration
	loads       singleflight.Group

	// gen is handed out when a load starts. stored is the generation of
	// the snapshot in the cache; a load finishing with a lower generation
	// than stored is discarded.
	gen    atomic.Uint64
	mu     sync.Mutex
	stored uint64
}

type snapshot struct {
	batch core.Batch
	gen   uint64
}

func NewDashboardService(src source.RecordSource, opts Options) *DashboardService {
	ttl := opts.SnapshotTTL
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}
	size := opts.ViewCacheSize
	if size <= 0 {
		size = defaultViewCacheCap
	}
	timeout := opts.LoadTimeout
	if timeout <= 0 {
		timeout = defaultLoadTimeout
	}
	f := format.New()
	if opts.Formatter != nil {
		f = *opts.Formatter
	}
	return &DashboardService{
		src:         src,
		snapshots:   cache.NewLRUCache[snapshot](1, ttl),
		views:       cache.NewLRUCache[report.Dashboard](size, ttl),
		formatter:   f,
		requester:   opts.Requester,
		table:       opts.Table,
		loadTimeout: timeout,
	}
}

// RegisterCaches hands the service caches to a cleanup manager.
func (s *DashboardService) RegisterCaches(m *cache.Manager) {
	m.Register("snapshots", s.snapshots)
	m.Register("dashboards", s.views)
}

func (s *DashboardService) Formatter() format.Formatter {
	return s.formatter
}

// Snapshot returns the current batch, loading it when missing or expired.
// Concurrent callers share one load.
func (s *DashboardService) Snapshot(ctx context.Context) (core.Batch, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return core.Batch{}, err
	}
	return snap.batch, nil
}

func (s *DashboardService) current(ctx context.Context) (snapshot, error) {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}
	return s.shared(ctx, snapshotKey, func(lctx context.Context) (snapshot, error) {
		if snap, ok := s.snapshots.Get(snapshotKey); ok {
			return snap, nil
		}
		return s.load(lctx)
	})
}

// Refresh re-queries the source and swaps the snapshot on success. When a
// requester is configured, a background re-import is requested as well;
// failing to publish it does not fail the refresh.
func (s *DashboardService) Refresh(ctx context.Context) (RefreshResult, error) {
	snap, err := s.shared(ctx, "refresh", s.load)
	if err != nil {
		return RefreshResult{}, err
	}
	b := snap.batch
	res := RefreshResult{
		Source:   b.Source,
		Records:  len(b.Records),
		Rejected: len(b.Rejected),
		LoadedAt: b.LoadedAt,
	}
	if s.requester != nil {
		id, err := s.requester.RequestRefresh(ctx, s.src.Name(), s.table)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to publish refresh request", "source", s.src.Name(), "error", err)
		} else {
			res.RequestID = id.String()
		}
	}
	return res, nil
}

// shared runs fn once for every concurrent caller of key. The load itself
// is not cancelled when one caller gives up; each caller only stops
// waiting on its own context.
func (s *DashboardService) shared(ctx context.Context, key string, fn func(context.Context) (snapshot, error)) (snapshot, error) {
	ch := s.loads.DoChan(key, func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return fn(lctx)
	})
	select {
	case <-ctx.Done():
		return snapshot{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return snapshot{}, r.Err
		}
		return r.Val.(snapshot), nil
	}
}

func (s *DashboardService) load(ctx context.Context) (snapshot, error) {
	gen := s.gen.Add(1)
	start := time.Now()
	b, err := s.src.Load(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Snapshot load failed", "source", s.src.Name(), "error", err)
		return snapshot{}, err
	}
	snap := snapshot{batch: b, gen: gen}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen <= s.stored {
		slog.DebugContext(ctx, "Discarding superseded snapshot load",
			"source", b.Source, "generation", gen, "current", s.stored)
		if cur, ok := s.snapshots.Get(snapshotKey); ok {
			return cur, nil
		}
		return snap, nil
	}
	s.snapshots.Set(snapshotKey, snap)
	s.stored = gen
	s.views.Purge()
	slog.InfoContext(ctx, "Snapshot loaded",
		"source", b.Source,
		"records", len(b.Records),
		"rejected", len(b.Rejected),
		"generation", gen,
		"duration", time.Since(start))
	return snap, nil
}

// Dashboard runs the report pipeline for q on the current snapshot.
// Results are cached per query until the snapshot changes.
func (s *DashboardService) Dashboard(ctx context.Context, q report.Query) (report.Dashboard, error) {
	snap, err := s.current(ctx)
	if err != nil {
		return report.Dashboard{}, err
	}
	key := queryKey(snap.gen, q)
	if d, ok := s.views.Get(key); ok {
		return d, nil
	}
	d, err := report.Build(snap.batch, q, s.formatter)
	if err != nil {
		return report.Dashboard{}, err
	}
	s.views.Set(key, d)
	return d, nil
}

// Categories returns the distinct categories of the current snapshot.
func (s *DashboardService) Categories(ctx context.Context) ([]string, error) {
	b, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return b.Categories(), nil
}

// DefaultQuery selects every category over the full span of the data. An
// empty snapshot yields today's date and no categories.
func (s *DashboardService) DefaultQuery(ctx context.Context) (report.Query, error) {
	b, err := s.Snapshot(ctx)
	if err != nil {
		return report.Query{}, err
	}
	r, ok := b.Bounds()
	if !ok {
		today := core.DateOf(time.Now())
		r = core.NewDateRange(today, today)
	}
	return report.Query{
		Range:     r,
		Selection: core.NewSelection(b.Categories()...),
		Period:    core.Monthly,
	}, nil
}

// Ready reports whether a snapshot can be served.
func (s *DashboardService) Ready(ctx context.Context) error {
	if _, err := s.Snapshot(ctx); err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return nil
}

// queryKey names a view of one snapshot generation, so a view built from
// a replaced snapshot is never served.
func queryKey(gen uint64, q report.Query) string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(gen, 10))
	b.WriteByte('|')
	b.WriteString(q.Range.Start.String())
	b.WriteByte('|')
	b.WriteString(q.Range.End.String())
	b.WriteByte('|')
	b.WriteString(strings.Join(q.Selection.Names(), "\x1f"))
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(q.Cumulative))
	b.WriteByte('|')
	b.WriteString(q.Period.String())
	b.WriteByte('|')
	b.WriteString(strconv.FormatBool(q.Currency))
	return b.String()
}
