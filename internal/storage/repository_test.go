package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"omzet/internal/core"
	"omzet/internal/source"
)

func newRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "omzet.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func saldoBatch() core.Batch {
	return core.Batch{
		Source: "remote:test",
		Records: []core.Record{
			{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Category: "Infaq", Measure: decimal.RequireFromString("1500000")},
			{Timestamp: time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC), Category: "Zakat", Measure: decimal.RequireFromString("-250.75")},
		},
		Rejected: []core.Rejection{{Row: 3, Reason: core.ErrMalformedRecord}},
	}
}

func TestReplaceThenLoad(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	imp, err := repo.Replace(ctx, "saldo", source.KategoriSaldo, saldoBatch())
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if imp.Accepted != 2 || imp.Rejected != 1 || imp.ID == 0 {
		t.Fatalf("unexpected import %+v", imp)
	}

	src, err := repo.Source("saldo", source.KategoriSaldo)
	if err != nil {
		t.Fatalf("source: %v", err)
	}
	b, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Records) != 2 || len(b.Rejected) != 0 {
		t.Fatalf("unexpected batch %+v", b)
	}
	if !b.Records[1].Measure.Equal(decimal.RequireFromString("-250.75")) {
		t.Fatalf("measure not exact: %s", b.Records[1].Measure)
	}
	if !b.Records[1].Timestamp.Equal(time.Date(2024, 1, 3, 14, 30, 0, 0, time.UTC)) {
		t.Fatalf("timestamp = %v", b.Records[1].Timestamp)
	}

	// A second replace drops the previous content.
	next := core.Batch{Source: "remote:test", Records: saldoBatch().Records[:1]}
	if _, err := repo.Replace(ctx, "saldo", source.KategoriSaldo, next); err != nil {
		t.Fatalf("second replace: %v", err)
	}
	b, err = src.Load(ctx)
	if err != nil || len(b.Records) != 1 {
		t.Fatalf("after second replace: %v %d records", err, len(b.Records))
	}

	last, ok, err := repo.LastImport(ctx, "saldo")
	if err != nil || !ok || last.Accepted != 1 {
		t.Fatalf("last import = %+v %v %v", last, ok, err)
	}
}

func TestLastImportNone(t *testing.T) {
	_, ok, err := newRepo(t).LastImport(context.Background(), "revenue")
	if err != nil || ok {
		t.Fatalf("expected no import, got ok=%v err=%v", ok, err)
	}
}

func TestLoadLegacyTypedTable(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	stmts := []string{
		`CREATE TABLE legacy (date TEXT, school TEXT, revenue REAL)`,
		`INSERT INTO legacy VALUES ('2024-03-01', 'SD', 1500000)`,
		`INSERT INTO legacy VALUES ('2024-03-02', 'SMP', 12.5)`,
		`INSERT INTO legacy VALUES ('2024-03-03', 'SMA', NULL)`,
		`INSERT INTO legacy VALUES ('soon', 'SMA', 3)`,
	}
	for _, s := range stmts {
		if _, err := repo.db.ExecContext(ctx, s); err != nil {
			t.Fatalf("%s: %v", s, err)
		}
	}
	src, err := repo.Source("legacy", source.SchoolRevenue)
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(b.Records) != 2 || len(b.Rejected) != 2 {
		t.Fatalf("got %d records and %d rejections", len(b.Records), len(b.Rejected))
	}
	if !b.Records[0].Measure.Equal(decimal.NewFromInt(1500000)) {
		t.Fatalf("measure = %s", b.Records[0].Measure)
	}
}

func TestLoadKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	cats := []string{"Zakat", "Infaq", "Wakaf", "Donasi"}
	var in core.Batch
	for i, c := range cats {
		in.Records = append(in.Records, core.Record{
			Timestamp: day.AddDate(0, 0, (len(cats)-i)%2),
			Category:  c,
			Measure:   decimal.NewFromInt(int64(i)),
		})
	}
	if _, err := repo.Replace(ctx, "saldo", source.KategoriSaldo, in); err != nil {
		t.Fatalf("replace: %v", err)
	}
	src, err := repo.Source("saldo", source.KategoriSaldo)
	if err != nil {
		t.Fatal(err)
	}
	b, err := src.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for i, r := range b.Records {
		if r.Category != cats[i] {
			t.Fatalf("record %d = %s, want %s", i, r.Category, cats[i])
		}
	}
}

func TestLoadMissingTable(t *testing.T) {
	src, err := newRepo(t).Source("nope", source.KategoriSaldo)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Load(context.Background()); !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestRejectsUnsafeIdentifiers(t *testing.T) {
	repo := newRepo(t)
	if _, err := repo.Source("saldo; DROP TABLE saldo", source.KategoriSaldo); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
	bad := source.FieldMapping{Name: "x", Timestamp: "tanggal", Category: "kat egori", Measure: "saldo"}
	if _, err := repo.Replace(context.Background(), "saldo", bad, core.Batch{}); !errors.Is(err, ErrInvalidIdentifier) {
		t.Fatalf("expected ErrInvalidIdentifier, got %v", err)
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{[]byte("y"), "y"},
		{int64(-42), "-42"},
		{1500000.0, "1500000"},
		{0.25, "0.25"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
	}
	for _, tt := range tests {
		if got := cellString(tt.in); got != tt.want {
			t.Errorf("cellString(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
