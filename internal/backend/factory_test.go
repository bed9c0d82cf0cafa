package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"omzet/internal/config"
	"omzet/internal/source"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{
		Schema:            "school_revenue",
		SQLiteDBPath:      "./data/omzet.db",
		SQLiteTable:       "revenue",
		RemoteURL:         "https://example.test/api",
		RemoteTimeout:     time.Second,
		RemoteMaxAttempts: 2,
	}

	cfg, err := FromAppConfig(app, "remote")
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != RemoteBackend || cfg.Mapping != source.SchoolRevenue || cfg.RemoteMaxAttempts != 2 {
		t.Errorf("unexpected config %+v", cfg)
	}

	if _, err := FromAppConfig(app, "postgres"); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := FromAppConfig(nil, "memory"); err == nil {
		t.Error("expected error for nil config")
	}
	app.Schema = "orders"
	if _, err := FromAppConfig(app, "memory"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory ok", Config{Type: MemoryBackend, Mapping: source.KategoriSaldo, MemoryCSVPath: "x.csv"}, ""},
		{"memory without path", Config{Type: MemoryBackend, Mapping: source.KategoriSaldo}, "CSV path"},
		{"sqlite without table", Config{Type: SQLiteBackend, Mapping: source.KategoriSaldo, SQLiteDBPath: "x.db"}, "SQLite table"},
		{"remote without url", Config{Type: RemoteBackend, Mapping: source.KategoriSaldo}, "remote URL"},
		{"sheets without id", Config{Type: SheetsBackend, Mapping: source.KategoriSaldo}, "Spreadsheet ID"},
		{"bad type", Config{Type: "kafka", Mapping: source.KategoriSaldo}, "invalid backend type"},
		{"empty mapping", Config{Type: MemoryBackend, MemoryCSVPath: "x.csv"}, "mapping"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCreateMemorySource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saldo.csv")
	data := "tanggal,kategori,saldo\n2024-01-02,SD,100\n2024-01-03,SMP,50\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewFactory(nil).CreateSource(context.Background(), Config{
		Type:          MemoryBackend,
		Mapping:       source.KategoriSaldo,
		MemoryCSVPath: path,
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	defer res.Close()

	b, err := res.Source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(b.Records))
	}
}

func TestCreateSQLiteSource(t *testing.T) {
	res, err := NewFactory(nil).CreateSource(context.Background(), Config{
		Type:         SQLiteBackend,
		Mapping:      source.KategoriSaldo,
		SQLiteDBPath: filepath.Join(t.TempDir(), "omzet.db"),
		SQLiteTable:  "saldo",
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	defer res.Close()

	b, err := res.Source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Records) != 0 {
		t.Errorf("fresh database should be empty, got %d records", len(b.Records))
	}
}

func TestCreateRemoteSource(t *testing.T) {
	res, err := NewFactory(nil).CreateSource(context.Background(), Config{
		Type:      RemoteBackend,
		Mapping:   source.SchoolRevenue,
		RemoteURL: "https://example.test/api/revenue",
	})
	if err != nil {
		t.Fatalf("CreateSource: %v", err)
	}
	if !strings.Contains(res.Source.Name(), "example.test") {
		t.Errorf("Name() = %q", res.Source.Name())
	}
	if err := res.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
