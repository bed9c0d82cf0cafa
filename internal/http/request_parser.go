// This file turns dashboard query strings into report queries.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"omzet/internal/core"
	"omzet/internal/report"
)

// ParamError reports a malformed query parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ParseDashboardQuery reads start, end, category, cumulative, period and
// currency from query. Missing parameters keep the value from defaults.
// A category parameter that is present but blank selects nothing. The
// order of start and end is not checked here.
func ParseDashboardQuery(query url.Values, defaults report.Query) (report.Query, error) {
	q := defaults

	if v := strings.TrimSpace(query.Get("start")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return report.Query{}, &ParamError{Param: "start", Value: v, Err: err}
		}
		q.Range.Start = d
	}
	if v := strings.TrimSpace(query.Get("end")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return report.Query{}, &ParamError{Param: "end", Value: v, Err: err}
		}
		q.Range.End = d
	}

	if raw, ok := query["category"]; ok {
		names := make([]string, 0, len(raw))
		for _, v := range raw {
			names = append(names, sanitizeInput(v))
		}
		q.Selection = core.NewSelection(names...)
	}

	var err error
	if q.Cumulative, err = parseBool(query, "cumulative", defaults.Cumulative); err != nil {
		return report.Query{}, err
	}
	if q.Currency, err = parseBool(query, "currency", defaults.Currency); err != nil {
		return report.Query{}, err
	}

	if v := strings.TrimSpace(query.Get("period")); v != "" {
		u, err := core.ParsePeriodUnit(strings.ToLower(v))
		if err != nil {
			return report.Query{}, &ParamError{Param: "period", Value: v, Err: err}
		}
		q.Period = u
	}

	return q, nil
}

func parseBool(query url.Values, key string, def bool) (bool, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, &ParamError{Param: key, Value: v, Err: err}
	}
	return b, nil
}
