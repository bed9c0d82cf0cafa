// Package format renders aggregated values for display. A Formatter is an
// immutable value: the same input always yields the same string.
package format

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"omzet/internal/core"
)

// DefaultCurrencySymbol is prefixed by Currency unless overridden.
const DefaultCurrencySymbol = "Rp"

var (
	indonesianMonths = [12]string{
		"Januari", "Februari", "Maret", "April", "Mei", "Juni",
		"Juli", "Agustus", "September", "Oktober", "November", "Desember",
	}
	englishMonths = [12]string{
		"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December",
	}
)

// Formatter turns numbers, dates and periods into display strings.
type Formatter struct {
	lang       language.Tag
	sep        string
	symbol     string
	months     [12]string
	weekPrefix string
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithLanguage selects the locale used for the grouping separator and
// labels. Digits stay Latin and groups stay three wide in every locale.
func WithLanguage(tag language.Tag) Option {
	return func(f *Formatter) {
		f.lang = tag
		f.sep = groupSeparator(tag)
		if isIndonesian(tag) {
			f.months = indonesianMonths
			f.weekPrefix = "Minggu"
		} else {
			f.months = englishMonths
			f.weekPrefix = "Week of"
		}
	}
}

// WithCurrencySymbol replaces the "Rp" prefix used by Currency.
func WithCurrencySymbol(symbol string) Option {
	return func(f *Formatter) {
		f.symbol = strings.TrimSpace(symbol)
	}
}

// WithMonthNames overrides the month labels used by Period.
func WithMonthNames(names [12]string) Option {
	return func(f *Formatter) {
		f.months = names
	}
}

// New returns a Formatter for Indonesian display ("." grouping, Rp)
// adjusted by opts. Options apply in order.
func New(opts ...Option) Formatter {
	f := Formatter{symbol: DefaultCurrencySymbol}
	WithLanguage(language.Indonesian)(&f)
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// ParseLanguage resolves a locale string such as "id" or "en-US". Empty
// input yields Indonesian.
func ParseLanguage(s string) (language.Tag, error) {
	if strings.TrimSpace(s) == "" {
		return language.Indonesian, nil
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return tag, nil
}

// Language returns the locale of f.
func (f Formatter) Language() language.Tag {
	return f.lang
}

// Integer truncates d toward zero and groups every three digits.
//
// Examples (Indonesian):
//   - 1234567    -> "1.234.567"
//   - -500       -> "-500"
//   - -0.9       -> "0"
func (f Formatter) Integer(d decimal.Decimal) string {
	return groupDigits(d.Truncate(0).String(), f.sep)
}

// Currency renders an integer amount with the currency symbol, placing the
// sign before the symbol ("-Rp 500").
func (f Formatter) Currency(d decimal.Decimal) string {
	s := f.Integer(d)
	if f.symbol == "" {
		return s
	}
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		return "-" + f.symbol + " " + rest
	}
	return f.symbol + " " + s
}

// Date renders a calendar day as dd/mm/yyyy.
func (f Formatter) Date(d core.Date) string {
	return d.Format("02/01/2006")
}

// Period labels a rollup period. Months use the configured month names.
func (f Formatter) Period(p core.Period) string {
	start := p.Start
	switch p.Unit {
	case core.Daily:
		return f.Date(start)
	case core.Weekly:
		return f.weekPrefix + " " + f.Date(start)
	case core.Quarterly:
		return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
	case core.Yearly:
		return fmt.Sprintf("%d", start.Year())
	default:
		return fmt.Sprintf("%s %d", f.months[start.Month()-1], start.Year())
	}
}

// groupSeparator is whatever the locale puts between "1" and "000".
// Locales without one fall back to ",".
func groupSeparator(tag language.Tag) string {
	sep := strings.TrimFunc(message.NewPrinter(tag).Sprintf("%d", 1000), unicode.IsDigit)
	if sep == "" {
		return ","
	}
	return sep
}

// groupDigits inserts sep every three digits of an integer string of any
// length.
func groupDigits(s, sep string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i := 0; i < len(s); i++ {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isIndonesian(tag language.Tag) bool {
	base, _ := tag.Base()
	return base.String() == "id"
}
