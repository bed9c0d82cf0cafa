package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseMeasure parses a numeric measure. Negative and zero values are
// accepted; empty or non-numeric input is a malformed record.
//
// Examples:
//
//	ParseMeasure("1500000") -> 1500000
//	ParseMeasure("-250.5")  -> -250.5
//	ParseMeasure("")        -> error
func ParseMeasure(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty measure", ErrMalformedRecord)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: measure %q is not a number", ErrMalformedRecord, s)
	}
	return d, nil
}

// ParseTimestamp accepts the date layouts seen in revenue tables: plain
// ISO dates, ISO date-times with or without zone, and dd/mm/yyyy.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrMalformedRecord)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: timestamp %q has no known layout", ErrMalformedRecord, s)
}

var timestampLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006",
}
