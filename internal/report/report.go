// Package report runs the Filter, Aggregate and Format stages once and
// returns the view model consumed by the presentation shell.
package report

import (
	"time"

	"github.com/shopspring/decimal"

	"omzet/internal/core"
	"omzet/internal/engine"
	"omzet/internal/export"
	"omzet/internal/format"
)

// DateHeader labels the first column of the pivot table.
const DateHeader = "Tanggal"

// Query describes one dashboard request.
type Query struct {
	Range      core.DateRange
	Selection  core.Selection
	Cumulative bool
	Period     core.PeriodUnit
	Currency   bool
}

type (
	// Card is one display card per selected category.
	Card struct {
		Category string          `json:"category"`
		Value    string          `json:"value"`
		Raw      decimal.Decimal `json:"raw"`
	}

	// Table is the date x category pivot with formatted cells.
	Table struct {
		Header     []string   `json:"header"`
		Rows       [][]string `json:"rows"`
		Cumulative bool       `json:"cumulative"`
	}

	// Series is one named line or bar series. PointLabels align with Values.
	Series struct {
		Name        string            `json:"name"`
		Values      []decimal.Decimal `json:"values"`
		PointLabels []string          `json:"point_labels,omitempty"`
		Markers     bool              `json:"markers,omitempty"`
	}

	// Chart is a set of series sharing the same x-axis labels.
	Chart struct {
		Type   string   `json:"type"`
		Labels []string `json:"labels"`
		Series []Series `json:"series"`
	}

	// Dashboard is everything the presentation layer renders for a Query.
	Dashboard struct {
		Start      string   `json:"start"`
		End        string   `json:"end"`
		Categories []string `json:"categories"`
		Period     string   `json:"period"`
		Cards      []Card   `json:"cards"`
		Table      Table    `json:"table"`
		Bar        Chart    `json:"bar"`
		Trend      Chart    `json:"trend"`
		Daily      Chart    `json:"daily"`
		NoData     bool     `json:"no_data"`
		Rejected   int      `json:"rejected"`
	}
)

// Build filters batch by q, aggregates and formats the result with f.
// An invalid range returns core.ErrInvalidRange and no dashboard.
func Build(batch core.Batch, q Query, f format.Formatter) (Dashboard, error) {
	fs, err := engine.Filter(batch.Records, q.Range, q.Selection)
	if err != nil {
		return Dashboard{}, err
	}

	unit := q.Period
	if !unit.IsValid() {
		unit = core.Monthly
	}
	money := f.Integer
	if q.Currency {
		money = f.Currency
	}

	totals := engine.CategoryTotals(fs)
	d := Dashboard{
		Start:      q.Range.Start.String(),
		End:        q.Range.End.String(),
		Categories: q.Selection.Names(),
		Period:     unit.String(),
		Cards:      make([]Card, len(totals)),
		Table:      buildTable(engine.DatePivot(fs, q.Cumulative), f, money),
		Bar:        Chart{Type: "bar", Labels: make([]string, len(totals)), Series: []Series{}},
		Trend:      buildTrend(engine.PeriodRollup(fs, unit), f, money),
		Daily:      buildDaily(engine.DailyTotals(fs), f, money),
		NoData:     fs.IsEmpty(),
		Rejected:   len(batch.Rejected),
	}

	bar := Series{Name: "total", Values: make([]decimal.Decimal, len(totals)), PointLabels: make([]string, len(totals))}
	for i, t := range totals {
		label := money(t.Total)
		d.Cards[i] = Card{Category: t.Category, Value: label, Raw: t.Total}
		d.Bar.Labels[i] = t.Category
		bar.Values[i] = t.Total
		bar.PointLabels[i] = label
	}
	if len(totals) > 0 {
		d.Bar.Series = append(d.Bar.Series, bar)
	}
	return d, nil
}

func buildTable(p engine.Pivot, f format.Formatter, money func(decimal.Decimal) string) Table {
	t := Table{
		Header:     append([]string{DateHeader}, p.Columns...),
		Rows:       make([][]string, len(p.Rows)),
		Cumulative: p.Cumulative,
	}
	for i, row := range p.Rows {
		cells := make([]string, 0, len(row.Cells)+1)
		cells = append(cells, f.Date(row.Date))
		for _, c := range row.Cells {
			cells = append(cells, money(c))
		}
		t.Rows[i] = cells
	}
	return t
}

func buildTrend(r engine.Rollup, f format.Formatter, money func(decimal.Decimal) string) Chart {
	c := Chart{Type: "line", Labels: make([]string, len(r.Rows)), Series: make([]Series, len(r.Columns))}
	for i, row := range r.Rows {
		c.Labels[i] = f.Period(row.Period)
	}
	for j, name := range r.Columns {
		s := Series{
			Name:        name,
			Values:      make([]decimal.Decimal, len(r.Rows)),
			PointLabels: make([]string, len(r.Rows)),
			Markers:     true,
		}
		for i, row := range r.Rows {
			s.Values[i] = row.Cells[j]
			s.PointLabels[i] = money(row.Cells[j])
		}
		c.Series[j] = s
	}
	return c
}

func buildDaily(days []engine.DayTotal, f format.Formatter, money func(decimal.Decimal) string) Chart {
	c := Chart{Type: "line", Labels: make([]string, len(days)), Series: []Series{}}
	if len(days) == 0 {
		return c
	}
	s := Series{
		Name:        "total",
		Values:      make([]decimal.Decimal, len(days)),
		PointLabels: make([]string, len(days)),
		Markers:     true,
	}
	for i, d := range days {
		c.Labels[i] = f.Date(d.Date)
		s.Values[i] = d.Total
		s.PointLabels[i] = money(d.Total)
	}
	c.Series = append(c.Series, s)
	return c
}

// ToExport converts the pivot table of d into an export table.
func ToExport(d Dashboard, title string, now time.Time) *export.Table {
	subtitle := d.Start + " - " + d.End
	if d.Table.Cumulative {
		subtitle += " (kumulatif)"
	}
	return &export.Table{
		Title:     title,
		Subtitle:  subtitle,
		CreatedAt: now,
		Header:    d.Table.Header,
		Rows:      d.Table.Rows,
	}
}
