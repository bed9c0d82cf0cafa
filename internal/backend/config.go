package backend

import (
	"fmt"

	"omzet/internal/config"
	"omzet/internal/source"
)

// FromAppConfig builds the source configuration for backend, which is
// usually appConfig.DataBackend or, in the worker, appConfig.ImportBackend.
func FromAppConfig(appConfig *config.Config, backend string) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(backend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", backend)
	}

	mapping, err := source.MappingByName(appConfig.Schema)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Type:    backendType,
		Mapping: mapping,

		SQLiteDBPath: appConfig.SQLiteDBPath,
		SQLiteTable:  appConfig.SQLiteTable,

		MemoryCSVPath: appConfig.MemoryCSVPath,

		RemoteURL:         appConfig.RemoteURL,
		RemoteTimeout:     appConfig.RemoteTimeout,
		RemoteMaxAttempts: appConfig.RemoteMaxAttempts,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetRange:         appConfig.GoogleSheetRange,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if err := c.Mapping.Validate(); err != nil {
		return err
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		if c.SQLiteTable == "" {
			return fmt.Errorf("SQLite table is required for sqlite backend")
		}
	case SheetsBackend:
		if c.GoogleSpreadsheetID == "" {
			return fmt.Errorf("Google Spreadsheet ID is required for sheets backend")
		}
	case RemoteBackend:
		if c.RemoteURL == "" {
			return fmt.Errorf("remote URL is required for remote backend")
		}
	case MemoryBackend:
		if c.MemoryCSVPath == "" {
			return fmt.Errorf("CSV path is required for memory backend")
		}
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, SQLiteBackend, RemoteBackend, SheetsBackend}
}
