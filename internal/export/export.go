// Package export writes report tables to downloadable files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Format identifies an export file type.
type Format string

const (
	FormatExcel Format = "xlsx"
	FormatPDF   Format = "pdf"
)

// ErrUnsupportedFormat is returned for unknown export formats.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ParseFormat accepts "xlsx"/"excel" and "pdf", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "xlsx", "excel":
		return FormatExcel, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Table is an already formatted grid ready for export.
type Table struct {
	Title     string
	Subtitle  string
	CreatedAt time.Time
	Header    []string
	Rows      [][]string
}

// Exporter writes a Table in one file format.
type Exporter interface {
	Export(t *Table, w io.Writer) error
	ContentType() string
	Extension() string
}

// Service picks an Exporter by format.
type Service struct {
	exporters map[Format]Exporter
}

// NewService returns a Service with the Excel and PDF exporters.
func NewService() *Service {
	return &Service{
		exporters: map[Format]Exporter{
			FormatExcel: NewExcelExporter(),
			FormatPDF:   NewPDFExporter(),
		},
	}
}

// Exporter returns the exporter registered for format.
func (s *Service) Exporter(format Format) (Exporter, error) {
	e, ok := s.exporters[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return e, nil
}

// Export renders t into memory and returns the bytes with their content type.
func (s *Service) Export(t *Table, format Format) ([]byte, string, error) {
	e, err := s.Exporter(format)
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	if err := e.Export(t, &buf); err != nil {
		return nil, "", fmt.Errorf("export %s: %w", format, err)
	}
	return buf.Bytes(), e.ContentType(), nil
}

// Filename builds a download name such as "omzet-2024-03-01_2024-03-31.xlsx".
func Filename(prefix, suffix string, e Exporter) string {
	name := prefix
	if suffix != "" {
		name += "-" + suffix
	}
	return name + e.Extension()
}
