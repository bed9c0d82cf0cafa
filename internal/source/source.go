// Package source defines how revenue records enter the system: the
// RecordSource port, the field mapping that names the three columns of a
// table, and the ingestion step that rejects malformed rows.
package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"omzet/internal/core"
)

// RecordSource loads one snapshot of records. Failures are wrapped in
// core.ErrSourceUnavailable.
type RecordSource interface {
	Name() string
	Load(ctx context.Context) (core.Batch, error)
}

// FieldMapping names the timestamp, category and measure fields of a table.
type FieldMapping struct {
	Name      string
	Timestamp string
	Category  string
	Measure   string
}

var (
	// SchoolRevenue is the (date, school, revenue) schema.
	SchoolRevenue = FieldMapping{Name: "school_revenue", Timestamp: "date", Category: "school", Measure: "revenue"}
	// KategoriSaldo is the (tanggal, kategori, saldo) schema.
	KategoriSaldo = FieldMapping{Name: "kategori_saldo", Timestamp: "tanggal", Category: "kategori", Measure: "saldo"}
)

var ErrUnknownMapping = errors.New("unknown field mapping")

// MappingByName returns a preset mapping. Empty name yields KategoriSaldo.
func MappingByName(name string) (FieldMapping, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", KategoriSaldo.Name:
		return KategoriSaldo, nil
	case SchoolRevenue.Name:
		return SchoolRevenue, nil
	default:
		return FieldMapping{}, fmt.Errorf("%w: %q", ErrUnknownMapping, name)
	}
}

// Validate checks that all three field names are set and distinct.
func (m FieldMapping) Validate() error {
	fields := m.Fields()
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("mapping %q: empty field name", m.Name)
		}
		if _, dup := seen[strings.ToLower(f)]; dup {
			return fmt.Errorf("mapping %q: duplicate field %q", m.Name, f)
		}
		seen[strings.ToLower(f)] = struct{}{}
	}
	return nil
}

// Fields returns timestamp, category and measure field names in that order.
func (m FieldMapping) Fields() []string {
	return []string{m.Timestamp, m.Category, m.Measure}
}

// Columns holds the positions of the mapped fields in a header row.
type Columns struct {
	Timestamp int
	Category  int
	Measure   int
}

// Resolve finds the mapped fields in header, ignoring case and surrounding
// space. A missing field is a schema error and makes the source unavailable.
func (m FieldMapping) Resolve(header []string) (Columns, error) {
	idx := func(name string) int {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
		return -1
	}
	c := Columns{Timestamp: idx(m.Timestamp), Category: idx(m.Category), Measure: idx(m.Measure)}
	var missing []string
	if c.Timestamp < 0 {
		missing = append(missing, m.Timestamp)
	}
	if c.Category < 0 {
		missing = append(missing, m.Category)
	}
	if c.Measure < 0 {
		missing = append(missing, m.Measure)
	}
	if len(missing) > 0 {
		return Columns{}, fmt.Errorf("%w: missing column %s; got headers=%v",
			core.ErrSourceUnavailable, strings.Join(missing, ","), header)
	}
	return c, nil
}

// Pick returns the timestamp, category and measure cells of row. Short rows
// yield empty strings.
func (c Columns) Pick(row []string) (ts, category, measure string) {
	return safeGet(row, c.Timestamp), safeGet(row, c.Category), safeGet(row, c.Measure)
}

func safeGet(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Unavailable wraps err as a source failure for the named source.
func Unavailable(name string, err error) error {
	if errors.Is(err, core.ErrSourceUnavailable) {
		return fmt.Errorf("%s: %w", name, err)
	}
	return fmt.Errorf("%s: %w: %v", name, core.ErrSourceUnavailable, err)
}
