package pitarchive

import (
	"encoding/json"
	"errors"
	"testing"
)

func testAsset() *Asset {
	return &Asset{
		Name:       "income",
		Scheme:     ByPeriod,
		PrimaryKey: []string{"ts_code", "end_date"},
	}
}

func TestCanonicalNumbers(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{json.Number("0.10"), "0.1"},
		{json.Number("1e-1"), "0.1"},
		{json.Number("42"), "42"},
		{0.1, "0.1"},
		{nil, ""},
		{true, "true"},
		{"text", "text"},
		{int64(7), "7"},
	}
	for _, tc := range tests {
		got, err := canonical(tc.in)
		if err != nil {
			t.Fatalf("canonical(%v): %v", tc.in, err)
		}
		if got != tc.want {
			t.Errorf("canonical(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAppendRejectsWrongArity(t *testing.T) {
	rs := NewRecordSet("a", "b")
	if err := rs.Append("only one"); !errors.Is(err, ErrNormalization) {
		t.Fatalf("Append with one cell: got %v, want ErrNormalization", err)
	}
}

func TestNormalizeSortsByPrimaryKey(t *testing.T) {
	rs := NewRecordSet("ts_code", "end_date", "revenue")
	rs.MustAppend("600000.SH", "20200331", 300)
	rs.MustAppend("000001.SZ", "20200331", 100)
	rs.MustAppend("300001.SZ", "20200331", 200)

	norm, err := rs.Normalize(testAsset())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"000001.SZ", "300001.SZ", "600000.SH"}
	for i, row := range norm.Rows {
		if row[0] != want[i] {
			t.Errorf("row %d: got %q, want %q", i, row[0], want[i])
		}
	}
}

func TestNormalizeMissingPrimaryKeyColumn(t *testing.T) {
	rs := NewRecordSet("ts_code", "revenue")
	rs.MustAppend("000001.SZ", 100)
	if _, err := rs.Normalize(testAsset()); !errors.Is(err, ErrNormalization) {
		t.Fatalf("got %v, want ErrNormalization", err)
	}
}

func TestNormalizeDedup(t *testing.T) {
	build := func() *RecordSet {
		rs := NewRecordSet("ts_code", "end_date", "revenue")
		rs.MustAppend("000001.SZ", "20200331", 100)
		rs.MustAppend("000001.SZ", "20200331", 150) // conflicting duplicate
		return rs
	}
	tests := []struct {
		name    string
		dedup   Dedup
		want    string
		wantErr bool
	}{
		{name: "fail", dedup: DedupFail, wantErr: true},
		{name: "keep_first", dedup: DedupKeepFirst, want: "100"},
		{name: "keep_last", dedup: DedupKeepLast, want: "150"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			asset := testAsset()
			asset.Dedup = tc.dedup
			norm, err := build().Normalize(asset)
			if tc.wantErr {
				if !errors.Is(err, ErrNormalization) {
					t.Fatalf("got %v, want ErrNormalization", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if norm.Len() != 1 {
				t.Fatalf("got %d rows, want 1", norm.Len())
			}
			if got := norm.Rows[0][2]; got != tc.want {
				t.Errorf("kept revenue %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNormalizeExactDuplicatesAlwaysCollapse(t *testing.T) {
	rs := NewRecordSet("ts_code", "end_date", "revenue")
	rs.MustAppend("000001.SZ", "20200331", 100)
	rs.MustAppend("000001.SZ", "20200331", 100)

	norm, err := rs.Normalize(testAsset()) // DedupFail
	if err != nil {
		t.Fatal(err)
	}
	if norm.Len() != 1 {
		t.Fatalf("got %d rows, want 1", norm.Len())
	}
}
