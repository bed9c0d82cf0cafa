package source

import (
	"fmt"
	"strings"
	"time"

	"omzet/internal/core"
)

// ParseRecord validates the raw cells of one row. Any problem is reported
// as core.ErrMalformedRecord; nothing is coerced to zero.
func ParseRecord(ts, category, measure string) (core.Record, error) {
	t, err := core.ParseTimestamp(ts)
	if err != nil {
		return core.Record{}, err
	}
	category = strings.TrimSpace(category)
	if category == "" {
		return core.Record{}, fmt.Errorf("%w: %w", core.ErrMalformedRecord, core.ErrEmptyCategory)
	}
	m, err := core.ParseMeasure(measure)
	if err != nil {
		return core.Record{}, err
	}
	return core.Record{Timestamp: t, Category: category, Measure: m}, nil
}

// Ingester accumulates accepted records and rejections for one snapshot.
// Rows are numbered from 1 in the order they are added.
type Ingester struct {
	batch core.Batch
	row   int
}

// NewIngester starts a snapshot for the named source.
func NewIngester(name string) *Ingester {
	return &Ingester{batch: core.Batch{Source: name}}
}

// Add parses one row and records it as accepted or rejected.
func (in *Ingester) Add(ts, category, measure string) {
	in.row++
	rec, err := ParseRecord(ts, category, measure)
	if err != nil {
		in.reject(err)
		return
	}
	in.batch.Records = append(in.batch.Records, rec)
}

// Reject counts a row that could not even be read as three cells.
func (in *Ingester) Reject(reason error) {
	in.row++
	in.reject(reason)
}

func (in *Ingester) reject(reason error) {
	in.batch.Rejected = append(in.batch.Rejected, core.Rejection{Row: in.row, Reason: reason})
}

// Batch returns the snapshot, stamped with loadedAt.
func (in *Ingester) Batch(loadedAt time.Time) core.Batch {
	b := in.batch
	b.LoadedAt = loadedAt
	return b
}
