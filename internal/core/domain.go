package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// Date is a calendar day. The wrapped time is always midnight UTC so
	// that two Dates for the same day compare equal.
	Date struct {
		time.Time
	}

	// Record is one revenue event read from a record source.
	Record struct {
		Timestamp time.Time
		Category  string
		Measure   decimal.Decimal
	}

	// DateRange is an inclusive range of calendar days.
	DateRange struct {
		Start Date
		End   Date
	}

	// Rejection describes a source row that failed validation at ingestion.
	Rejection struct {
		Row    int // 1-based position in the source
		Reason error
	}

	// Batch is one snapshot loaded from a record source.
	Batch struct {
		Source   string
		Records  []Record
		Rejected []Rejection
		LoadedAt time.Time
	}
)

var (
	ErrInvalidRange      = errors.New("invalid range")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrMalformedRecord   = errors.New("malformed record")
	ErrEmptyCategory     = errors.New("empty category")
	ErrZeroTimestamp     = errors.New("zero timestamp")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t, read in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a date string in YYYY-MM-DD format.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Before reports whether d is an earlier day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// After reports whether d is a later day than o.
func (d Date) After(o Date) bool {
	return d.Time.After(o.Time)
}

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool {
	return d.Time.Equal(o.Time)
}

// AddDays returns the day n days after d.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// String renders the ISO form, used for keys and logs.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

// NewDateRange builds a range without reordering its bounds.
func NewDateRange(start, end Date) DateRange {
	return DateRange{Start: start, End: end}
}

// Validate refuses ranges whose start is after their end.
func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: missing bound", ErrInvalidRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether the calendar day of t lies within the range.
func (r DateRange) Contains(t time.Time) bool {
	d := DateOf(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

func (rec Record) Validate() error {
	if rec.Timestamp.IsZero() {
		return ErrZeroTimestamp
	}
	if strings.TrimSpace(rec.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Day returns the calendar day of the record.
func (rec Record) Day() Date {
	return DateOf(rec.Timestamp)
}

func (rj Rejection) Error() string {
	return fmt.Sprintf("row %d: %v", rj.Row, rj.Reason)
}

func (rj Rejection) Unwrap() error {
	return rj.Reason
}

// Categories returns the distinct categories of the batch in first-seen order.
func (b Batch) Categories() []string {
	seen := make(map[string]struct{}, 8)
	out := make([]string, 0, 8)
	for _, r := range b.Records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// Bounds returns the earliest and latest day in the batch.
// ok is false for an empty batch.
func (b Batch) Bounds() (r DateRange, ok bool) {
	for i, rec := range b.Records {
		d := rec.Day()
		if i == 0 {
			r = DateRange{Start: d, End: d}
			continue
		}
		if d.Before(r.Start) {
			r.Start = d
		}
		if d.After(r.End) {
			r.End = d
		}
	}
	return r, len(b.Records) > 0
}
