package backend

import (
	"context"
	"fmt"
	"log/slog"

	"omzet/internal/source/memory"
	"omzet/internal/source/remote"
	"omzet/internal/source/sheets"
	"omzet/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateSource implements Factory.CreateSource
func (f *DefaultFactory) CreateSource(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteSource(config)
	case SheetsBackend:
		return f.createSheetsSource(ctx, config)
	case RemoteBackend:
		return f.createRemoteSource(config)
	case MemoryBackend:
		return f.createMemorySource(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteSource(config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	src, err := repo.Source(config.SQLiteTable, config.Mapping)
	if err != nil {
		repo.Close()
		return nil, err
	}

	f.logger.Info("Initialized SQLite source",
		"db_path", config.SQLiteDBPath,
		"table", config.SQLiteTable,
		"schema", config.Mapping.Name)

	return &Result{Source: src, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createSheetsSource(ctx context.Context, config Config) (*Result, error) {
	cli, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Range:           config.GoogleSheetRange,
		Mapping:         config.Mapping,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets source", "range", config.GoogleSheetRange)
	return &Result{Source: cli}, nil
}

func (f *DefaultFactory) createRemoteSource(config Config) (*Result, error) {
	cli, err := remote.New(remote.Config{
		URL:         config.RemoteURL,
		Mapping:     config.Mapping,
		Timeout:     config.RemoteTimeout,
		MaxAttempts: config.RemoteMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize remote source: %w", err)
	}

	f.logger.Info("Initialized remote source",
		"url", config.RemoteURL,
		"max_attempts", config.RemoteMaxAttempts)
	return &Result{Source: cli}, nil
}

func (f *DefaultFactory) createMemorySource(config Config) (*Result, error) {
	store := memory.NewFromFile(config.MemoryCSVPath, config.Mapping)
	f.logger.Info("Initialized memory source", "csv_path", config.MemoryCSVPath)
	return &Result{Source: store}, nil
}
