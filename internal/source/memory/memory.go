// Package memory is a record source backed by a CSV file or a fixed slice,
// used for local development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"omzet/internal/core"
	"omzet/internal/source"
)

var _ source.RecordSource = (*Store)(nil)

type Store struct {
	mu      sync.Mutex
	name    string
	path    string
	mapping source.FieldMapping
	records []core.Record
	now     func() time.Time
}

// New returns a store that always serves records.
func New(records []core.Record) *Store {
	return &Store{name: "memory", records: append([]core.Record(nil), records...), now: time.Now}
}

// NewFromFile returns a store that re-reads the CSV at path on every Load.
// The first line is the header and is resolved through mapping.
func NewFromFile(path string, mapping source.FieldMapping) *Store {
	return &Store{name: "csv:" + path, path: path, mapping: mapping, now: time.Now}
}

func (s *Store) Name() string { return s.name }

// Load returns the current snapshot.
func (s *Store) Load(_ context.Context) (core.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return core.Batch{
			Source:   s.name,
			Records:  append([]core.Record(nil), s.records...),
			LoadedAt: s.now(),
		}, nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return core.Batch{}, source.Unavailable(s.name, err)
	}
	defer f.Close()
	b, err := ReadCSV(f, s.name, s.mapping)
	if err != nil {
		return core.Batch{}, source.Unavailable(s.name, err)
	}
	b.LoadedAt = s.now()
	return b, nil
}

// Replace swaps the served records. It has no effect on file-backed stores.
func (s *Store) Replace(records []core.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append([]core.Record(nil), records...)
}

// ReadCSV ingests CSV data whose first row is a header.
func ReadCSV(r io.Reader, name string, mapping source.FieldMapping) (core.Batch, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return core.Batch{}, fmt.Errorf("%w: empty csv", core.ErrSourceUnavailable)
		}
		return core.Batch{}, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapping.Resolve(header)
	if err != nil {
		return core.Batch{}, err
	}

	in := source.NewIngester(name)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				in.Reject(fmt.Errorf("%w: %v", core.ErrMalformedRecord, perr))
				continue
			}
			return core.Batch{}, err
		}
		in.Add(cols.Pick(row))
	}
	return in.Batch(time.Time{}), nil
}
