package pitarchive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/pitarchive/date"
)

func TestResolveKey(t *testing.T) {
	tests := []struct {
		name    string
		asset   *Asset
		req     Request
		want    string
		wantErr bool
	}{
		{
			name:  "period end",
			asset: &Asset{Name: "income", Scheme: ByPeriod},
			req:   Request{Period: date.New(2020, time.March, 31)},
			want:  "20200331",
		},
		{
			name:  "period canonicalized to quarter end",
			asset: &Asset{Name: "income", Scheme: ByPeriod},
			req:   Request{Period: date.New(2020, time.February, 10)},
			want:  "20200331",
		},
		{
			name:  "date",
			asset: &Asset{Name: "dividend", Scheme: ByDate},
			req:   Request{Date: date.New(2020, time.February, 10)},
			want:  "20200210",
		},
		{
			name:  "trade date",
			asset: &Asset{Name: "daily", Scheme: ByTradeDate},
			req:   Request{Date: date.New(2020, time.February, 10)},
			want:  "20200210",
		},
		{
			name:  "snapshot",
			asset: &Asset{Name: "stock_basic", Scheme: Snapshot},
			req:   Request{},
			want:  "ALL",
		},
		{
			name:  "entity",
			asset: &Asset{Name: "daily_by_code", Scheme: ByEntity},
			req:   Request{Entity: "000001.SZ"},
			want:  "000001.SZ",
		},
		{
			name:    "entity with path separator",
			asset:   &Asset{Name: "daily_by_code", Scheme: ByEntity},
			req:     Request{Entity: "../escape"},
			wantErr: true,
		},
		{
			name:    "period without date",
			asset:   &Asset{Name: "income", Scheme: ByPeriod},
			req:     Request{},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ResolveKey(tc.asset, tc.req)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("got key %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResolveKeyDeterministic(t *testing.T) {
	asset := &Asset{Name: "income", Scheme: ByPeriod}
	req := Request{Period: date.New(2021, time.May, 2)}
	a, err := ResolveKey(asset, req)
	if err != nil {
		t.Fatal(err)
	}
	b, err := ResolveKey(asset, req)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same request resolved to %q then %q", a, b)
	}
}

func TestVersionLayout(t *testing.T) {
	ingest := date.New(2024, time.January, 15)
	got := VersionDataFile("/archive", "income", "20200331", ingest, 2)
	want := filepath.Join("/archive", "income", "period=20200331", "ingest_date=2024-01-15", "2.jsonl")
	if got != want {
		t.Errorf("data file:\n got %s\nwant %s", got, want)
	}
	meta := VersionMetaFile("/archive", "income", "20200331", ingest, 2)
	wantMeta := filepath.Join("/archive", "income", "period=20200331", "ingest_date=2024-01-15", "2.meta.json")
	if meta != wantMeta {
		t.Errorf("meta file:\n got %s\nwant %s", meta, wantMeta)
	}
}
