// Package sheets reads records from a Google Sheets range whose first row
// is a header.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"omzet/internal/core"
	"omzet/internal/source"
)

var _ source.RecordSource = (*Client)(nil)

// Config selects the spreadsheet range and the credentials used to read it.
// CredentialsJSON wins over CredentialsFile; with neither set,
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Config struct {
	SpreadsheetID   string
	Range           string
	Mapping         source.FieldMapping
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	rng           string
	mapping       source.FieldMapping
	now           func() time.Time
}

// New creates a Sheets client. Extra options are passed to the API client
// and replace credential lookup when given.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	if strings.TrimSpace(cfg.Range) == "" {
		return nil, errors.New("missing GOOGLE_SHEET_RANGE")
	}
	if err := cfg.Mapping.Validate(); err != nil {
		return nil, err
	}
	if len(opts) == 0 {
		creds, err := credentials(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsReadonlyScope),
		}
	}
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		rng:           cfg.Range,
		mapping:       cfg.Mapping,
		now:           time.Now,
	}, nil
}

func credentials(ctx context.Context, cfg Config) ([]byte, error) {
	inline := strings.TrimSpace(cfg.CredentialsJSON)
	file := strings.TrimSpace(cfg.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func (c *Client) Name() string {
	return "sheets:" + c.spreadsheetID + "!" + c.rng
}

// Load reads the configured range. Dates are requested as formatted strings
// and numbers unformatted so thousands separators never reach the parser.
func (c *Client) Load(ctx context.Context) (core.Batch, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		return core.Batch{}, source.Unavailable(c.Name(), fmt.Errorf("read %s: %w", c.rng, err))
	}
	b, err := parseValues(resp.Values, c.Name(), c.mapping)
	if err != nil {
		return core.Batch{}, source.Unavailable(c.Name(), err)
	}
	b.LoadedAt = c.now()
	return b, nil
}

// parseValues converts a values matrix into a batch. Fully blank rows are
// ignored; anything else goes through ingestion.
func parseValues(values [][]interface{}, name string, mapping source.FieldMapping) (core.Batch, error) {
	if len(values) == 0 {
		return core.Batch{}, fmt.Errorf("%w: range is empty", core.ErrSourceUnavailable)
	}
	cols, err := mapping.Resolve(toStrings(values[0]))
	if err != nil {
		return core.Batch{}, err
	}
	in := source.NewIngester(name)
	for _, raw := range values[1:] {
		row := toStrings(raw)
		if blank(row) {
			continue
		}
		in.Add(cols.Pick(row))
	}
	return in.Batch(time.Time{}), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(x))
		}
	}
	return out
}

func blank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
