package pitarchive

import (
	"slices"
	"testing"
	"time"

	"github.com/etnz/pitarchive/date"
)

func planKeys(t *testing.T, p *Planner, asset *Asset, mode Mode, opts PlanOptions) []string {
	t.Helper()
	items, err := p.Plan(asset, mode, opts)
	if err != nil {
		t.Fatal(err)
	}
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}

func TestPlanBackfillQuarters(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.January, 15))
	asset := &Asset{
		Name:          "income",
		Scheme:        ByPeriod,
		PrimaryKey:    []string{"ts_code", "end_date"},
		BackfillStart: date.New(2020, time.January, 1),
	}
	got := planKeys(t, p, asset, Backfill, PlanOptions{To: date.New(2020, time.December, 31)})
	want := []string{"20200331", "20200630", "20200930", "20201231"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlanBackfillSkipsProcessed(t *testing.T) {
	ledger := newTestLedger(t)
	d := date.New(2024, time.January, 10)
	if err := ledger.Append(entryOn("20200331", d, 1, "f1", StatusSuccess)); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Append(entryOn("20200630", d, 0, "", StatusFailed)); err != nil {
		t.Fatal(err)
	}

	p := NewPlanner(ledger, date.New(2021, time.January, 15))
	asset := &Asset{
		Name:          "income",
		Scheme:        ByPeriod,
		PrimaryKey:    []string{"ts_code", "end_date"},
		BackfillStart: date.New(2020, time.January, 1),
	}
	opts := PlanOptions{To: date.New(2020, time.December, 31)}

	// Successful partition skipped, failed one retried.
	got := planKeys(t, p, asset, Backfill, opts)
	want := []string{"20200630", "20200930", "20201231"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	// Force re-enumerates everything.
	opts.Force = true
	got = planKeys(t, p, asset, Backfill, opts)
	if len(got) != 4 {
		t.Errorf("forced plan has %d items, want 4: %v", len(got), got)
	}
}

func TestPlanStandardUpdate(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.February, 15))
	asset := &Asset{Name: "income", Scheme: ByPeriod, PrimaryKey: []string{"k"}}
	got := planKeys(t, p, asset, StandardUpdate, PlanOptions{})
	want := []string{"20210331"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlanSlidingWindow(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.February, 15))
	asset := &Asset{Name: "income", Scheme: ByPeriod, PrimaryKey: []string{"k"}, Lookback: 3}
	got := planKeys(t, p, asset, SlidingWindow, PlanOptions{})
	want := []string{"20200630", "20200930", "20201231", "20210331"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlanDisclosurePeakUsesEnlargedWindow(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.April, 15))
	asset := &Asset{Name: "income", Scheme: ByPeriod, PrimaryKey: []string{"k"}, Lookback: 2}
	got := planKeys(t, p, asset, DisclosurePeak, PlanOptions{})
	// PeakLookback defaults to twice the lookback: 4 preceding quarters.
	if len(got) != 5 {
		t.Fatalf("got %d items, want 5: %v", len(got), got)
	}
	if got[len(got)-1] != "20210630" {
		t.Errorf("last item %q, want current quarter 20210630", got[len(got)-1])
	}
}

func TestPlanByDateWindow(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.February, 15))
	asset := &Asset{Name: "dividend", Scheme: ByDate, PrimaryKey: []string{"k"}}
	got := planKeys(t, p, asset, SlidingWindow, PlanOptions{Window: 2})
	want := []string{"20210213", "20210214", "20210215"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlanTradeDateUsesCalendar(t *testing.T) {
	ledger := newTestLedger(t)
	p := NewPlanner(ledger, date.New(2021, time.February, 15))
	p.Trading = date.NewCalendar(
		date.New(2021, time.February, 10),
		date.New(2021, time.February, 11),
		date.New(2021, time.February, 15),
	)
	asset := &Asset{Name: "daily", Scheme: ByTradeDate, PrimaryKey: []string{"k"}}
	got := planKeys(t, p, asset, SlidingWindow, PlanOptions{Window: 1})
	want := []string{"20210211", "20210215"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestPlanSnapshotAndEntity(t *testing.T) {
	p := NewPlanner(newTestLedger(t), date.New(2021, time.February, 15))

	snap := &Asset{Name: "stock_basic", Scheme: Snapshot, PrimaryKey: []string{"k"}}
	if got := planKeys(t, p, snap, StandardUpdate, PlanOptions{}); !slices.Equal(got, []string{"ALL"}) {
		t.Errorf("snapshot plan: got %v, want [ALL]", got)
	}

	ent := &Asset{
		Name:       "daily_by_code",
		Scheme:     ByEntity,
		PrimaryKey: []string{"k"},
		Entities:   []string{"000001.SZ", "600000.SH"},
	}
	got := planKeys(t, p, ent, StandardUpdate, PlanOptions{})
	if !slices.Equal(got, []string{"000001.SZ", "600000.SH"}) {
		t.Errorf("entity plan: got %v", got)
	}
}

func TestInDisclosurePeak(t *testing.T) {
	tests := []struct {
		month time.Month
		want  bool
	}{
		{time.January, true},
		{time.April, true},
		{time.May, false},
		{time.July, true},
		{time.August, true},
		{time.September, false},
		{time.October, true},
		{time.December, false},
	}
	for _, tc := range tests {
		d := date.New(2021, tc.month, 10)
		if got := InDisclosurePeak(d); got != tc.want {
			t.Errorf("InDisclosurePeak(%s) = %v, want %v", d, got, tc.want)
		}
	}
}

func TestDisclosedPeriods(t *testing.T) {
	got := DisclosedPeriods(date.New(2021, time.April, 10))
	want := []date.Date{
		date.New(2020, time.December, 31),
		date.New(2021, time.March, 31),
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got := DisclosedPeriods(date.New(2021, time.June, 10)); got != nil {
		t.Errorf("June discloses nothing, got %v", got)
	}
}
