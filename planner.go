package pitarchive

import (
	"fmt"
	"iter"
	"time"

	"github.com/etnz/pitarchive/date"
)

// Mode selects how the planner enumerates partitions for one run. Modes are
// chosen by the caller (CLI flag or external schedule), never self-triggered.
type Mode int

const (
	// Backfill enumerates every partition from the asset's backfill start to
	// today, skipping partitions already archived unless forced.
	Backfill Mode = iota
	// StandardUpdate refreshes only the current partition.
	StandardUpdate
	// SlidingWindow refreshes the current partition plus the asset's
	// lookback window, catching late corrections to recent history.
	SlidingWindow
	// DisclosurePeak is a sliding window with the asset's enlarged peak
	// lookback, for the months when restatements cluster.
	DisclosurePeak
)

func (m Mode) String() string {
	switch m {
	case Backfill:
		return "backfill"
	case StandardUpdate:
		return "update"
	case SlidingWindow:
		return "sliding-window"
	case DisclosurePeak:
		return "disclosure-peak"
	default:
		return "unknown"
	}
}

// ParseMode parses a string into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "backfill":
		return Backfill, nil
	case "update":
		return StandardUpdate, nil
	case "sliding-window":
		return SlidingWindow, nil
	case "disclosure-peak":
		return DisclosurePeak, nil
	default:
		return 0, fmt.Errorf("unknown planner mode: %q", s)
	}
}

// WorkItem is one partition to fetch, fingerprint and commit.
type WorkItem struct {
	Asset *Asset
	Key   string
	Req   Request
}

// PlanOptions tunes one planning pass. The zero value is the asset's default
// behavior for the mode.
type PlanOptions struct {
	// Force re-enumerates backfill partitions that were already archived.
	Force bool
	// Window overrides the asset's lookback window size (sliding-window and
	// disclosure-peak modes). Zero keeps the asset default.
	Window int
	// From and To bound a backfill. Zero values default to the asset's
	// backfill start and today.
	From, To date.Date
}

// Planner turns an asset and a mode into the ordered set of partitions one
// run must visit. It is a pure enumeration: nothing is fetched here.
type Planner struct {
	ledger *Ledger
	today  date.Date
	// Trading is the trade calendar for ByTradeDate assets. When nil,
	// weekdays are used instead.
	Trading *date.Calendar
}

// NewPlanner returns a planner enumerating as of today.
func NewPlanner(ledger *Ledger, today date.Date) *Planner {
	return &Planner{ledger: ledger, today: today}
}

// Plan enumerates the work set for one asset in one mode.
func (p *Planner) Plan(asset *Asset, mode Mode, opts PlanOptions) ([]WorkItem, error) {
	switch mode {
	case Backfill:
		return p.planBackfill(asset, opts)
	case StandardUpdate:
		return p.planWindow(asset, 0)
	case SlidingWindow:
		n := opts.Window
		if n == 0 {
			n = asset.WindowSize(false)
		}
		return p.planWindow(asset, n)
	case DisclosurePeak:
		n := opts.Window
		if n == 0 {
			n = asset.WindowSize(true)
		}
		return p.planWindow(asset, n)
	default:
		return nil, fmt.Errorf("asset %q: unknown planner mode %v", asset.Name, mode)
	}
}

func (p *Planner) planBackfill(asset *Asset, opts PlanOptions) ([]WorkItem, error) {
	from, to := opts.From, opts.To
	if from.IsZero() {
		from = asset.BackfillStart
	}
	if to.IsZero() {
		to = p.today
	}
	if from.IsZero() {
		return nil, fmt.Errorf("asset %q: backfill needs a start date", asset.Name)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("asset %q: backfill range %s..%s is empty", asset.Name, from, to)
	}

	var items []WorkItem
	switch asset.Scheme {
	case ByPeriod:
		for end := range date.Ends(asset.granularity(), from, to) {
			items = append(items, WorkItem{Asset: asset, Req: Request{Period: end}})
		}
	case ByDate:
		for d := range date.Ends(asset.granularity(), from, to) {
			items = append(items, WorkItem{Asset: asset, Req: Request{Date: d}})
		}
	case ByTradeDate:
		for d := range p.tradingDays(from, to) {
			items = append(items, WorkItem{Asset: asset, Req: Request{Date: d}})
		}
	case Snapshot:
		items = append(items, WorkItem{Asset: asset, Req: Request{}})
	case ByEntity:
		for _, e := range asset.Entities {
			items = append(items, WorkItem{Asset: asset, Req: Request{Entity: e}})
		}
	default:
		return nil, fmt.Errorf("asset %q: unknown scheme %v", asset.Name, asset.Scheme)
	}

	items, err := p.resolveKeys(asset, items)
	if err != nil {
		return nil, err
	}
	if opts.Force {
		return items, nil
	}
	done, err := p.ledger.ProcessedKeys(asset.Name)
	if err != nil {
		return nil, err
	}
	kept := items[:0]
	for _, it := range items {
		if !done[it.Key] {
			kept = append(kept, it)
		}
	}
	return kept, nil
}

// planWindow enumerates the current partition plus the n preceding ones.
// n == 0 is a standard update.
func (p *Planner) planWindow(asset *Asset, n int) ([]WorkItem, error) {
	var items []WorkItem
	switch asset.Scheme {
	case ByPeriod:
		// Step from the quarter start: month arithmetic on day 1 never
		// overflows into the next month.
		start := p.today.StartOf(date.Quarterly)
		for i := n; i >= 0; i-- {
			period := start.AddMonth(-3 * i).EndOf(date.Quarterly)
			items = append(items, WorkItem{Asset: asset, Req: Request{Period: period}})
		}
	case ByDate:
		for i := n; i >= 0; i-- {
			items = append(items, WorkItem{Asset: asset, Req: Request{Date: p.today.Add(-i)}})
		}
	case ByTradeDate:
		cal := p.Trading
		if cal == nil {
			cal = date.Weekdays(p.today.Add(-2*(n+1)-7), p.today)
		}
		for d := range cal.Last(n+1, p.today) {
			items = append(items, WorkItem{Asset: asset, Req: Request{Date: d}})
		}
	case Snapshot:
		items = append(items, WorkItem{Asset: asset, Req: Request{}})
	case ByEntity:
		for _, e := range asset.Entities {
			items = append(items, WorkItem{Asset: asset, Req: Request{Entity: e}})
		}
	default:
		return nil, fmt.Errorf("asset %q: unknown scheme %v", asset.Name, asset.Scheme)
	}
	return p.resolveKeys(asset, items)
}

func (p *Planner) resolveKeys(asset *Asset, items []WorkItem) ([]WorkItem, error) {
	for i := range items {
		key, err := ResolveKey(asset, items[i].Req)
		if err != nil {
			return nil, err
		}
		items[i].Key = key
	}
	return items, nil
}

func (p *Planner) tradingDays(from, to date.Date) iter.Seq[date.Date] {
	if p.Trading != nil {
		return p.Trading.Between(from, to)
	}
	return date.Weekdays(from, to).Between(from, to)
}

// InDisclosurePeak reports whether a date falls in a month when reporting
// periods are being disclosed or restated in bulk: annual plus Q1 season
// (January through April), half-year season (July and August) and Q3 season
// (October). External schedules use it to pick DisclosurePeak mode.
func InDisclosurePeak(d date.Date) bool {
	switch d.Month() {
	case time.January, time.February, time.March, time.April:
		return true
	case time.July, time.August:
		return true
	case time.October:
		return true
	default:
		return false
	}
}

// DisclosedPeriods returns the reporting-period ends being disclosed in the
// month of d, oldest first. Empty outside peak months.
func DisclosedPeriods(d date.Date) []date.Date {
	switch d.Month() {
	case time.January, time.February, time.March:
		return []date.Date{date.New(d.Year()-1, time.December, 31)}
	case time.April:
		return []date.Date{
			date.New(d.Year()-1, time.December, 31),
			date.New(d.Year(), time.March, 31),
		}
	case time.July, time.August:
		return []date.Date{date.New(d.Year(), time.June, 30)}
	case time.October:
		return []date.Date{date.New(d.Year(), time.September, 30)}
	default:
		return nil
	}
}
