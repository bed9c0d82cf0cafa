package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Record source backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendSheets = "sheets"
)

var (
	validBackends = []string{BackendMemory, BackendSQLite, BackendRemote, BackendSheets}
	validSchemas  = []string{"kategori_saldo", "school_revenue"}
	validLevels   = []string{"debug", "info", "warn", "error"}
	tableNameRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int

	// Record source
	DataBackend string
	Schema      string

	// SQLite
	SQLiteDBPath string
	SQLiteTable  string

	// Memory (CSV)
	MemoryCSVPath string

	// Remote JSON endpoint
	RemoteURL         string
	RemoteTimeout     time.Duration
	RemoteMaxAttempts int

	// Google Sheets
	GoogleSpreadsheetID      string
	GoogleSheetRange         string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Snapshot lifetime in the dashboard and import period in the worker
	RefreshInterval time.Duration

	// AMQP, optional for the dashboard
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Worker: where imports come from
	ImportBackend string

	// Display
	CurrencySymbol string
	Locale         string
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", "info")),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 30),

		DataBackend: getEnv("DATA_BACKEND", BackendMemory),
		Schema:      getEnv("SCHEMA", "kategori_saldo"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/omzet.db"),
		SQLiteTable:  getEnv("SQLITE_TABLE", "saldo"),

		MemoryCSVPath: getEnv("MEMORY_CSV_PATH", "./data/omzet.csv"),

		RemoteURL:         getEnv("REMOTE_URL", ""),
		RemoteTimeout:     getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		RemoteMaxAttempts: getEnvInt("REMOTE_MAX_ATTEMPTS", 3),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetRange:         getEnv("GOOGLE_SHEET_RANGE", "Saldo!A:C"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 5*time.Minute),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "omzet"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "refresh_requests"),

		ImportBackend: getEnv("IMPORT_BACKEND", BackendRemote),

		CurrencySymbol: getEnv("CURRENCY_SYMBOL", "Rp"),
		Locale:         getEnv("LOCALE", "id"),
	}
}

// Validate checks the dashboard configuration and reports every problem
// at once.
func (c *Config) Validate() error {
	errs := c.common()
	errs = append(errs, c.backendErrors(c.DataBackend, "data backend")...)
	return joinErrors(errs)
}

// ValidateWorker checks the worker configuration: an import backend that
// is not SQLite itself, a SQLite target and, when set, AMQP settings.
func (c *Config) ValidateWorker() error {
	errs := c.common()
	if c.ImportBackend == BackendSQLite {
		errs = append(errs, "import backend cannot be sqlite: it is the import target")
	}
	errs = append(errs, c.backendErrors(c.ImportBackend, "import backend")...)
	errs = append(errs, c.sqliteErrors()...)
	return joinErrors(errs)
}

func (c *Config) common() []string {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validLevels, c.LogLevel) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	if !slices.Contains(validSchemas, c.Schema) {
		errs = append(errs, fmt.Sprintf("invalid schema '%s': must be one of %v", c.Schema, validSchemas))
	}

	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}

	if c.RefreshInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if strings.TrimSpace(c.Locale) == "" {
		errs = append(errs, "locale cannot be empty")
	}
	return errs
}

func (c *Config) backendErrors(backend, label string) []string {
	if !slices.Contains(validBackends, backend) {
		return []string{fmt.Sprintf("invalid %s '%s': must be one of %v", label, backend, validBackends)}
	}

	var errs []string
	switch backend {
	case BackendSQLite:
		errs = append(errs, c.sqliteErrors()...)
	case BackendMemory:
		if c.MemoryCSVPath == "" {
			errs = append(errs, "memory CSV path cannot be empty when using memory backend")
		}
	case BackendRemote:
		if c.RemoteURL == "" {
			errs = append(errs, "remote URL is required when using remote backend")
		} else if u, err := url.Parse(c.RemoteURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("invalid remote URL '%s': must be http or https", c.RemoteURL))
		}
		if c.RemoteTimeout <= 0 {
			errs = append(errs, fmt.Sprintf("invalid remote timeout %v: must be positive", c.RemoteTimeout))
		}
		if c.RemoteMaxAttempts < 1 || c.RemoteMaxAttempts > 10 {
			errs = append(errs, fmt.Sprintf("invalid remote max attempts %d: must be between 1 and 10", c.RemoteMaxAttempts))
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errs = append(errs, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleSheetRange == "" {
			errs = append(errs, "Google sheet range is required when using sheets backend")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}
	return errs
}

func (c *Config) sqliteErrors() []string {
	var errs []string
	if !tableNameRe.MatchString(c.SQLiteTable) {
		errs = append(errs, fmt.Sprintf("invalid SQLite table '%s': must be a plain identifier", c.SQLiteTable))
	}
	if c.SQLiteDBPath == "" {
		return append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	dir := filepath.Dir(c.SQLiteDBPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errs = append(errs, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}
	return errs
}

func joinErrors(errs []string) error {
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
