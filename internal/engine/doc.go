// Package engine implements the filter and aggregation stages of the
// revenue report.
//
// Every function here is a pure transformation: no function keeps state
// between calls, and identical inputs always yield identical outputs. The
// filter stage is the only place that can refuse to compute (invalid date
// range); aggregation assumes its input has been validated at ingestion.
package engine
