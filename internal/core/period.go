package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	Daily     PeriodUnit = "day"
	Weekly    PeriodUnit = "week"
	Monthly   PeriodUnit = "month"
	Quarterly PeriodUnit = "quarter"
	Yearly    PeriodUnit = "year"
)

type (
	PeriodUnit string

	// Period identifies a calendar period by its unit and first day.
	Period struct {
		Unit  PeriodUnit
		Start Date
	}
)

var ErrInvalidPeriodUnit = errors.New("invalid period unit")

// ParsePeriodUnit maps a query value onto a PeriodUnit. Empty means monthly.
func ParsePeriodUnit(s string) (PeriodUnit, error) {
	if s == "" {
		return Monthly, nil
	}
	u := PeriodUnit(s)
	if !u.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriodUnit, s)
	}
	return u, nil
}

func (u PeriodUnit) IsValid() bool {
	switch u {
	case Daily, Weekly, Monthly, Quarterly, Yearly:
		return true
	default:
		return false
	}
}

func (u PeriodUnit) String() string {
	return string(u)
}

// Truncate returns the first day of the period containing d.
// Weeks start on Monday.
func (u PeriodUnit) Truncate(d Date) Date {
	switch u {
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDays(-offset)
	case Monthly:
		return NewDate(d.Year(), int(d.Month()), 1)
	case Quarterly:
		first := (int(d.Month())-1)/3*3 + 1
		return NewDate(d.Year(), first, 1)
	case Yearly:
		return NewDate(d.Year(), 1, 1)
	default:
		return d
	}
}

// PeriodOf returns the period of unit u that contains t.
func PeriodOf(u PeriodUnit, t time.Time) Period {
	return Period{Unit: u, Start: u.Truncate(DateOf(t))}
}

// Before orders periods chronologically by their first day.
func (p Period) Before(o Period) bool {
	return p.Start.Before(o.Start)
}

// Key is a stable sortable identifier, e.g. "month:2024-03-01".
func (p Period) Key() string {
	return string(p.Unit) + ":" + p.Start.String()
}
