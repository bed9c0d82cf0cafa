package backend

import (
	"context"
	"time"

	"omzet/internal/source"
)

// CleanupFunc releases resources held by a source.
type CleanupFunc func() error

// Result contains the record source and an optional cleanup function.
type Result struct {
	Source  source.RecordSource
	Cleanup CleanupFunc
}

// Close runs the cleanup function when there is one.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates record sources based on configuration
type Factory interface {
	CreateSource(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for source creation
type Config struct {
	Type    BackendType
	Mapping source.FieldMapping

	// SQLite
	SQLiteDBPath string
	SQLiteTable  string

	// Memory
	MemoryCSVPath string

	// Remote
	RemoteURL         string
	RemoteTimeout     time.Duration
	RemoteMaxAttempts int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
	RemoteBackend BackendType = "remote"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, SheetsBackend, MemoryBackend, RemoteBackend:
		return true
	default:
		return false
	}
}
