package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"omzet/internal/amqp"
	"omzet/internal/core"
	"omzet/internal/source"
	"omzet/internal/source/memory"
	"omzet/internal/storage"
)

type failingSource struct{}

func (failingSource) Name() string { return "failing" }
func (failingSource) Load(context.Context) (core.Batch, error) {
	return core.Batch{}, core.ErrSourceUnavailable
}

type rejectingSource struct{}

func (rejectingSource) Name() string { return "rejecting" }
func (rejectingSource) Load(context.Context) (core.Batch, error) {
	return core.Batch{Rejected: []core.Rejection{{Row: 1, Reason: core.ErrMalformedRecord}}}, nil
}

func newStore(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "omzet.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func records() []core.Record {
	return []core.Record{
		{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Category: "Infaq", Measure: decimal.NewFromInt(1000)},
		{Timestamp: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Category: "Zakat", Measure: decimal.NewFromInt(2000)},
	}
}

func loadTable(t *testing.T, repo *storage.SQLiteRepository) core.Batch {
	t.Helper()
	src, err := repo.Source("saldo", source.KategoriSaldo)
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("load table: %v", err)
	}
	return b
}

func TestHandleImportsTable(t *testing.T) {
	repo := newStore(t)
	w := NewRefreshWorker(memory.New(records()), repo, "saldo", source.KategoriSaldo)

	if err := w.Handle(context.Background(), amqp.NewRefreshMessage("remote", "saldo")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if b := loadTable(t, repo); len(b.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(b.Records))
	}
}

func TestHandleIgnoresOtherTables(t *testing.T) {
	repo := newStore(t)
	w := NewRefreshWorker(memory.New(records()), repo, "saldo", source.KategoriSaldo)
	if err := w.Handle(context.Background(), amqp.NewRefreshMessage("remote", "revenue")); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if b := loadTable(t, repo); len(b.Records) != 0 {
		t.Fatalf("table should be untouched")
	}
}

func TestHandleSourceFailureIsRetryable(t *testing.T) {
	w := NewRefreshWorker(failingSource{}, newStore(t), "saldo", source.KategoriSaldo)
	err := w.Handle(context.Background(), amqp.NewRefreshMessage("remote", ""))
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestImportKeepsTableWhenEverythingRejected(t *testing.T) {
	repo := newStore(t)
	ctx := context.Background()
	if _, err := NewRefreshWorker(memory.New(records()), repo, "saldo", source.KategoriSaldo).Import(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := NewRefreshWorker(rejectingSource{}, repo, "saldo", source.KategoriSaldo).Import(ctx); err != nil {
		t.Fatal(err)
	}
	if b := loadTable(t, repo); len(b.Records) != 2 {
		t.Fatalf("previous content lost, %d records", len(b.Records))
	}
}

func TestStartupImportRunsOnce(t *testing.T) {
	repo := newStore(t)
	ctx := context.Background()
	src := memory.New(records())
	w := NewRefreshWorker(src, repo, "saldo", source.KategoriSaldo)

	if err := w.StartupImport(ctx); err != nil {
		t.Fatal(err)
	}
	src.Replace(records()[:1])
	if err := w.StartupImport(ctx); err != nil {
		t.Fatal(err)
	}
	if b := loadTable(t, repo); len(b.Records) != 2 {
		t.Fatalf("second startup import should be skipped, got %d records", len(b.Records))
	}
}

func TestRunPeriodicStopsOnCancel(t *testing.T) {
	w := NewRefreshWorker(memory.New(records()), newStore(t), "saldo", source.KategoriSaldo)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := w.RunPeriodic(ctx, 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
