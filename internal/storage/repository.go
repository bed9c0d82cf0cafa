// Package storage keeps revenue tables in SQLite. It serves them as record
// sources and lets the refresh worker replace a table's content atomically.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"omzet/internal/core"
	"omzet/internal/source"
)

var (
	ErrInvalidIdentifier = errors.New("invalid identifier")

	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type SQLiteRepository struct {
	db *sql.DB
}

// Import is one row of the imports log.
type Import struct {
	ID         int64
	Table      string
	Source     string
	Accepted   int
	Rejected   int
	ImportedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by readiness probes.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Source returns a record source reading table through mapping.
func (r *SQLiteRepository) Source(table string, mapping source.FieldMapping) (*TableSource, error) {
	if err := checkIdents(table, mapping); err != nil {
		return nil, err
	}
	return &TableSource{db: r.db, table: table, mapping: mapping, now: time.Now}, nil
}

// Replace swaps the content of table for the records of b in one
// transaction and appends to the imports log. On error the table is left
// untouched.
func (r *SQLiteRepository) Replace(ctx context.Context, table string, mapping source.FieldMapping, b core.Batch) (Import, error) {
	if err := checkIdents(table, mapping); err != nil {
		return Import{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Import{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+quote(table)); err != nil {
		return Import{}, fmt.Errorf("clear %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (?, ?, ?)",
		quote(table), quote(mapping.Timestamp), quote(mapping.Category), quote(mapping.Measure))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return Import{}, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range b.Records {
		if _, err := stmt.ExecContext(ctx, formatTimestamp(rec.Timestamp), rec.Category, rec.Measure.String()); err != nil {
			return Import{}, fmt.Errorf("insert into %s: %w", table, err)
		}
	}

	imp := Import{
		Table:      table,
		Source:     b.Source,
		Accepted:   len(b.Records),
		Rejected:   len(b.Rejected),
		ImportedAt: time.Now().UTC(),
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO imports (table_name, source, accepted, rejected, imported_at) VALUES (?, ?, ?, ?, ?)",
		imp.Table, imp.Source, imp.Accepted, imp.Rejected, imp.ImportedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Import{}, fmt.Errorf("log import: %w", err)
	}
	if imp.ID, err = res.LastInsertId(); err != nil {
		return Import{}, fmt.Errorf("import id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Import{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Table replaced",
		"table", table,
		"source", b.Source,
		"accepted", imp.Accepted,
		"rejected", imp.Rejected)
	return imp, nil
}

// LastImport returns the most recent import of table; ok is false if the
// table was never imported.
func (r *SQLiteRepository) LastImport(ctx context.Context, table string) (imp Import, ok bool, err error) {
	var importedAt string
	err = r.db.QueryRowContext(ctx,
		"SELECT id, table_name, source, accepted, rejected, imported_at FROM imports WHERE table_name = ? ORDER BY id DESC LIMIT 1",
		table).Scan(&imp.ID, &imp.Table, &imp.Source, &imp.Accepted, &imp.Rejected, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Import{}, false, nil
	}
	if err != nil {
		return Import{}, false, fmt.Errorf("query last import: %w", err)
	}
	if imp.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt); err != nil {
		return Import{}, false, fmt.Errorf("parse import time: %w", err)
	}
	return imp, true, nil
}

var _ source.RecordSource = (*TableSource)(nil)

// TableSource reads one table as a record source.
type TableSource struct {
	db      *sql.DB
	table   string
	mapping source.FieldMapping
	now     func() time.Time
}

func (s *TableSource) Name() string { return "sqlite:" + s.table }

// Load selects the mapped columns in insertion order. A missing table or
// column makes the source unavailable; bad cells are rejected row by row.
func (s *TableSource) Load(ctx context.Context) (core.Batch, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s ORDER BY rowid",
		quote(s.mapping.Timestamp), quote(s.mapping.Category), quote(s.mapping.Measure), quote(s.table))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return core.Batch{}, source.Unavailable(s.Name(), err)
	}
	defer rows.Close()

	in := source.NewIngester(s.Name())
	for rows.Next() {
		var ts, cat, measure any
		if err := rows.Scan(&ts, &cat, &measure); err != nil {
			return core.Batch{}, source.Unavailable(s.Name(), fmt.Errorf("scan: %w", err))
		}
		in.Add(cellString(ts), cellString(cat), cellString(measure))
	}
	if err := rows.Err(); err != nil {
		return core.Batch{}, source.Unavailable(s.Name(), err)
	}
	return in.Batch(s.now()), nil
}

// cellString renders a SQLite value for ingestion. NULL becomes empty and
// is rejected downstream.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return formatTimestamp(x)
	default:
		return fmt.Sprint(x)
	}
}

// formatTimestamp writes midnight UTC values as plain dates.
func formatTimestamp(t time.Time) string {
	if t.Location() == time.UTC && t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(time.RFC3339Nano)
}

func checkIdents(table string, m source.FieldMapping) error {
	for _, id := range append([]string{table}, m.Fields()...) {
		if !identRe.MatchString(id) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	return nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}
