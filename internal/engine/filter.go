package engine

import (
	"omzet/internal/core"
)

// FilteredSet is the subsequence of records inside a date range and a
// category selection. Records keep their source order.
type FilteredSet struct {
	Range     core.DateRange
	Selection core.Selection
	Records   []core.Record
}

// Filter keeps the records whose calendar day lies in r (inclusive on
// both ends) and whose category is selected.
//
// An invalid range yields core.ErrInvalidRange and no result. An empty
// selection is not an error: the result is simply empty.
func Filter(records []core.Record, r core.DateRange, sel core.Selection) (FilteredSet, error) {
	if err := r.Validate(); err != nil {
		return FilteredSet{}, err
	}
	fs := FilteredSet{Range: r, Selection: sel}
	if sel.IsEmpty() {
		return fs, nil
	}
	for _, rec := range records {
		if !sel.Contains(rec.Category) || !r.Contains(rec.Timestamp) {
			continue
		}
		fs.Records = append(fs.Records, rec)
	}
	return fs, nil
}

// IsEmpty reports whether no record matched.
func (fs FilteredSet) IsEmpty() bool {
	return len(fs.Records) == 0
}
