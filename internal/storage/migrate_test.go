package storage

import (
	"path/filepath"
	"testing"
)

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omzet.db")

	if v, err := SchemaVersion(path); err != nil || v != 0 {
		t.Fatalf("fresh database: version %d, err %v", v, err)
	}

	first, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if first != 3 {
		t.Errorf("version = %d, want 3", first)
	}

	second, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
	if second != first {
		t.Errorf("second run moved version from %d to %d", first, second)
	}

	if v, err := SchemaVersion(path); err != nil || v != 3 {
		t.Errorf("SchemaVersion() = %d, %v", v, err)
	}
}
