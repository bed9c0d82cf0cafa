package engine

import (
	"slices"

	"github.com/shopspring/decimal"

	"omzet/internal/core"
)

type (
	// CategoryTotal is the sum of measures for one selected category.
	CategoryTotal struct {
		Category string
		Total    decimal.Decimal
	}

	// PivotRow holds one day of a pivot; Cells align with Pivot.Columns.
	PivotRow struct {
		Date  core.Date
		Cells []decimal.Decimal
	}

	// Pivot is a dense date x category grid.
	Pivot struct {
		Columns    []string
		Rows       []PivotRow
		Cumulative bool
	}

	// RollupRow holds one period of a rollup; Cells align with Rollup.Columns.
	RollupRow struct {
		Period core.Period
		Cells  []decimal.Decimal
	}

	// Rollup is a dense period x category grid in chronological order.
	Rollup struct {
		Unit    core.PeriodUnit
		Columns []string
		Rows    []RollupRow
	}

	// DayTotal is the sum over all selected categories for one day.
	DayTotal struct {
		Date  core.Date
		Total decimal.Decimal
	}
)

// CategoryTotals sums measures per category. Every selected category gets
// exactly one entry, in selection order, even when nothing matched it.
func CategoryTotals(fs FilteredSet) []CategoryTotal {
	names := fs.Selection.Names()
	out := make([]CategoryTotal, len(names))
	pos := make(map[string]int, len(names))
	for i, n := range names {
		out[i] = CategoryTotal{Category: n, Total: decimal.Zero}
		pos[n] = i
	}
	for _, rec := range fs.Records {
		if i, ok := pos[rec.Category]; ok {
			out[i].Total = out[i].Total.Add(rec.Measure)
		}
	}
	return out
}

// DatePivot groups by calendar day and category. Rows are the days present
// in the filtered set in ascending order; missing cells are zero. With
// cumulative set, each column becomes a running total that starts at the
// first row of the filtered window.
func DatePivot(fs FilteredSet, cumulative bool) Pivot {
	if fs.Selection.IsEmpty() {
		return Pivot{Cumulative: cumulative}
	}
	keys, cells := denseGrid(fs, core.Record.Day, core.Date.Before)
	if cumulative {
		runningSum(cells)
	}
	p := Pivot{Columns: fs.Selection.Names(), Cumulative: cumulative, Rows: make([]PivotRow, len(keys))}
	for i, k := range keys {
		p.Rows[i] = PivotRow{Date: k, Cells: cells[i]}
	}
	return p
}

// PeriodRollup groups by calendar period and category. Rows are ordered by
// the first day of each period, never by label.
func PeriodRollup(fs FilteredSet, unit core.PeriodUnit) Rollup {
	if !unit.IsValid() {
		unit = core.Monthly
	}
	if fs.Selection.IsEmpty() {
		return Rollup{Unit: unit}
	}
	keyOf := func(rec core.Record) core.Period { return core.PeriodOf(unit, rec.Timestamp) }
	keys, cells := denseGrid(fs, keyOf, core.Period.Before)
	r := Rollup{Unit: unit, Columns: fs.Selection.Names(), Rows: make([]RollupRow, len(keys))}
	for i, k := range keys {
		r.Rows[i] = RollupRow{Period: k, Cells: cells[i]}
	}
	return r
}

// DailyTotals sums all selected categories per day, ascending by day.
func DailyTotals(fs FilteredSet) []DayTotal {
	p := DatePivot(fs, false)
	out := make([]DayTotal, len(p.Rows))
	for i, row := range p.Rows {
		total := decimal.Zero
		for _, c := range row.Cells {
			total = total.Add(c)
		}
		out[i] = DayTotal{Date: row.Date, Total: total}
	}
	return out
}

// Column returns the cells of one category, or nil if it is not a column.
func (p Pivot) Column(category string) []decimal.Decimal {
	j := slices.Index(p.Columns, category)
	if j < 0 {
		return nil
	}
	col := make([]decimal.Decimal, len(p.Rows))
	for i, row := range p.Rows {
		col[i] = row.Cells[j]
	}
	return col
}

// IsEmpty reports whether the pivot has no rows.
func (p Pivot) IsEmpty() bool {
	return len(p.Rows) == 0
}

// denseGrid sums measures into one row per distinct key and one column per
// selected category, then orders rows with less. Rows whose keys compare
// equal keep first-seen order.
func denseGrid[K comparable](fs FilteredSet, keyOf func(core.Record) K, less func(a, b K) bool) ([]K, [][]decimal.Decimal) {
	names := fs.Selection.Names()
	col := make(map[string]int, len(names))
	for j, n := range names {
		col[n] = j
	}

	type row struct {
		key   K
		cells []decimal.Decimal
	}
	var rows []*row
	byKey := make(map[K]*row)
	for _, rec := range fs.Records {
		j, ok := col[rec.Category]
		if !ok {
			continue
		}
		k := keyOf(rec)
		r, ok := byKey[k]
		if !ok {
			r = &row{key: k, cells: zeros(len(names))}
			byKey[k] = r
			rows = append(rows, r)
		}
		r.cells[j] = r.cells[j].Add(rec.Measure)
	}

	slices.SortStableFunc(rows, func(a, b *row) int {
		switch {
		case less(a.key, b.key):
			return -1
		case less(b.key, a.key):
			return 1
		default:
			return 0
		}
	})

	keys := make([]K, len(rows))
	cells := make([][]decimal.Decimal, len(rows))
	for i, r := range rows {
		keys[i] = r.key
		cells[i] = r.cells
	}
	return keys, cells
}

func runningSum(cells [][]decimal.Decimal) {
	if len(cells) == 0 {
		return
	}
	for j := range cells[0] {
		acc := decimal.Zero
		for i := range cells {
			acc = acc.Add(cells[i][j])
			cells[i][j] = acc
		}
	}
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
