// Package worker imports snapshots from a remote record source into SQLite
// so the dashboard can serve them without hitting the remote endpoint.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"omzet/internal/amqp"
	"omzet/internal/core"
	"omzet/internal/source"
	"omzet/internal/storage"
)

// Importer replaces a table's content with a batch.
type Importer interface {
	Replace(ctx context.Context, table string, mapping source.FieldMapping, b core.Batch) (storage.Import, error)
	LastImport(ctx context.Context, table string) (storage.Import, bool, error)
}

type RefreshWorker struct {
	src     source.RecordSource
	store   Importer
	table   string
	mapping source.FieldMapping
}

func NewRefreshWorker(src source.RecordSource, store Importer, table string, mapping source.FieldMapping) *RefreshWorker {
	return &RefreshWorker{src: src, store: store, table: table, mapping: mapping}
}

// Handle serves one refresh request. Only the configured table is imported;
// requests for other tables are acknowledged and ignored.
func (w *RefreshWorker) Handle(ctx context.Context, msg *amqp.RefreshMessage) error {
	if msg.Table != "" && msg.Table != w.table {
		slog.WarnContext(ctx, "Ignoring refresh request for unknown table",
			"id", msg.ID, "table", msg.Table, "configured", w.table)
		return nil
	}
	slog.InfoContext(ctx, "Processing refresh request",
		"id", msg.ID,
		"source", msg.Source,
		"requested_at", msg.RequestedAt)
	_, err := w.Import(ctx)
	return err
}

// Import loads the source and replaces the table. A batch in which every
// row was rejected is not imported, so the previous content survives.
func (w *RefreshWorker) Import(ctx context.Context) (storage.Import, error) {
	b, err := w.src.Load(ctx)
	if err != nil {
		return storage.Import{}, fmt.Errorf("load %s: %w", w.src.Name(), err)
	}
	if len(b.Records) == 0 && len(b.Rejected) > 0 {
		slog.ErrorContext(ctx, "All records rejected, keeping previous table",
			"table", w.table, "rejected", len(b.Rejected), "first", b.Rejected[0].Error())
		return storage.Import{}, nil
	}
	for _, rj := range b.Rejected {
		slog.WarnContext(ctx, "Rejected record", "table", w.table, "row", rj.Row, "reason", rj.Reason)
	}
	imp, err := w.store.Replace(ctx, w.table, w.mapping, b)
	if err != nil {
		return storage.Import{}, fmt.Errorf("replace %s: %w", w.table, err)
	}
	return imp, nil
}

// StartupImport imports once if the table has never been imported.
func (w *RefreshWorker) StartupImport(ctx context.Context) error {
	_, ok, err := w.store.LastImport(ctx, w.table)
	if err != nil {
		return fmt.Errorf("check last import: %w", err)
	}
	if ok {
		slog.InfoContext(ctx, "Table already imported, skipping startup import", "table", w.table)
		return nil
	}
	slog.InfoContext(ctx, "No previous import found, importing on startup", "table", w.table)
	_, err = w.Import(ctx)
	return err
}

// RunPeriodic imports every interval until ctx is done. Failures are logged
// and retried on the next tick.
func (w *RefreshWorker) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.Import(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic import failed", "table", w.table, "error", err)
			}
		}
	}
}
