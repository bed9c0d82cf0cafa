package source

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"omzet/internal/core"
)

func TestMappingByName(t *testing.T) {
	tests := []struct {
		name    string
		want    FieldMapping
		wantErr bool
	}{
		{"", KategoriSaldo, false},
		{"kategori_saldo", KategoriSaldo, false},
		{"School_Revenue", SchoolRevenue, false},
		{"orders", FieldMapping{}, true},
	}
	for _, tt := range tests {
		got, err := MappingByName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Fatalf("MappingByName(%q) err = %v", tt.name, err)
		}
		if got != tt.want {
			t.Fatalf("MappingByName(%q) = %+v", tt.name, got)
		}
	}
}

func TestMappingValidate(t *testing.T) {
	if err := SchoolRevenue.Validate(); err != nil {
		t.Fatalf("preset invalid: %v", err)
	}
	bad := FieldMapping{Name: "x", Timestamp: "d", Category: "D", Measure: "m"}
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if err := (FieldMapping{Name: "x", Timestamp: "d"}).Validate(); err == nil {
		t.Fatalf("expected empty field error")
	}
}

func TestResolve(t *testing.T) {
	cols, err := KategoriSaldo.Resolve([]string{"id", " Saldo ", "TANGGAL", "kategori"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cols != (Columns{Timestamp: 2, Category: 3, Measure: 1}) {
		t.Fatalf("unexpected columns %+v", cols)
	}
	ts, cat, m := cols.Pick([]string{"1", "500", "2024-01-01"})
	if ts != "2024-01-01" || cat != "" || m != "500" {
		t.Fatalf("pick = %q %q %q", ts, cat, m)
	}

	_, err = SchoolRevenue.Resolve([]string{"date", "school"})
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestParseRecord(t *testing.T) {
	tests := []struct {
		name    string
		ts, cat string
		measure string
		wantErr bool
	}{
		{"iso date", "2024-03-01", "SD", "1500000", false},
		{"datetime", "2024-03-01 08:30:00", "SD", "-20", false},
		{"dd/mm/yyyy", "01/03/2024", "SD", "0", false},
		{"decimal", "2024-03-01T10:00:00Z", "SD", "12.5", false},
		{"bad date", "March 1st", "SD", "1", true},
		{"empty category", "2024-03-01", "  ", "1", true},
		{"text measure", "2024-03-01", "SD", "lots", true},
		{"empty measure", "2024-03-01", "SD", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRecord(tt.ts, tt.cat, tt.measure)
			if tt.wantErr {
				if !errors.Is(err, core.ErrMalformedRecord) {
					t.Fatalf("expected ErrMalformedRecord, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIngesterKeepsOrderAndCountsRows(t *testing.T) {
	in := NewIngester("test")
	in.Add("2024-03-02", "SD", "10")
	in.Add("2024-03-01", "SMP", "abc")
	in.Reject(errors.New("short row"))
	in.Add("2024-03-01", "SD", "5")

	loaded := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	b := in.Batch(loaded)
	if b.Source != "test" || !b.LoadedAt.Equal(loaded) {
		t.Fatalf("unexpected batch header %+v", b)
	}
	if len(b.Records) != 2 || !b.Records[1].Measure.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected records %+v", b.Records)
	}
	if len(b.Rejected) != 2 || b.Rejected[0].Row != 2 || b.Rejected[1].Row != 3 {
		t.Fatalf("unexpected rejections %+v", b.Rejected)
	}
}

func TestUnavailable(t *testing.T) {
	err := Unavailable("remote", errors.New("dial tcp: refused"))
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Fatalf("not wrapped: %v", err)
	}
	again := Unavailable("remote", err)
	if !errors.Is(again, core.ErrSourceUnavailable) {
		t.Fatalf("not wrapped: %v", again)
	}
}
