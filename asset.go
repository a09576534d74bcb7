package pitarchive

import (
	"fmt"

	"github.com/etnz/pitarchive/date"
)

// Scheme is the partitioning scheme of an asset. It is a closed set: adding a
// new scheme means adding a variant here plus its key-derivation rule in the
// resolver and its enumeration rule in the planner.
type Scheme int

const (
	// ByPeriod partitions by reporting-period end date (quarterly financial
	// statements and the like).
	ByPeriod Scheme = iota
	// ByDate partitions by calendar date (event-driven data such as
	// dividend announcements).
	ByDate
	// Snapshot keeps a single logical partition holding the latest full
	// extract (reference data such as the listed-securities table).
	Snapshot
	// ByTradeDate partitions by exchange trading day.
	ByTradeDate
	// ByEntity partitions by entity key (one partition per instrument code).
	ByEntity
)

func (s Scheme) String() string {
	switch s {
	case ByPeriod:
		return "period"
	case ByDate:
		return "date"
	case Snapshot:
		return "snapshot"
	case ByTradeDate:
		return "trade_date"
	case ByEntity:
		return "entity"
	default:
		return "unknown"
	}
}

// ParseScheme parses a string into a Scheme.
func ParseScheme(s string) (Scheme, error) {
	switch s {
	case "period":
		return ByPeriod, nil
	case "date":
		return ByDate, nil
	case "snapshot":
		return Snapshot, nil
	case "trade_date":
		return ByTradeDate, nil
	case "entity":
		return ByEntity, nil
	default:
		return 0, fmt.Errorf("unknown partitioning scheme: %q", s)
	}
}

// Dedup is the strategy resolving duplicate primary keys during
// normalization.
type Dedup int

const (
	// DedupFail rejects record sets containing duplicate primary keys.
	DedupFail Dedup = iota
	// DedupKeepFirst keeps the first occurrence of a duplicated key.
	DedupKeepFirst
	// DedupKeepLast keeps the last occurrence of a duplicated key.
	DedupKeepLast
)

func (d Dedup) String() string {
	switch d {
	case DedupFail:
		return "fail"
	case DedupKeepFirst:
		return "keep_first"
	case DedupKeepLast:
		return "keep_last"
	default:
		return "unknown"
	}
}

// ParseDedup parses a string into a Dedup strategy.
func ParseDedup(s string) (Dedup, error) {
	switch s {
	case "", "fail":
		return DedupFail, nil
	case "keep_first":
		return DedupKeepFirst, nil
	case "keep_last":
		return DedupKeepLast, nil
	default:
		return 0, fmt.Errorf("unknown dedup strategy: %q", s)
	}
}

// DefaultLookback is the number of preceding partitions re-checked by a
// sliding-window update when the asset does not override it.
const DefaultLookback = 12

// Asset is a named logical dataset with an immutable identity and a declared
// partitioning scheme. Assets are configured once, in the manifest.
type Asset struct {
	// Name identifies the asset and the top-level storage directory.
	Name string

	// Scheme is the partitioning scheme driving key derivation and window
	// planning.
	Scheme Scheme

	// PrimaryKey lists the columns forming the record identity, in order.
	// Normalization sorts and deduplicates by this tuple before hashing.
	PrimaryKey []string

	// Dedup resolves duplicate primary keys; DedupFail by default.
	Dedup Dedup

	// BackfillStart is the earliest partition date for historical backfill.
	// Zero for snapshot and entity assets.
	BackfillStart date.Date

	// Lookback is the number of preceding partitions a sliding-window update
	// revisits. Zero means DefaultLookback.
	Lookback int

	// PeakLookback replaces Lookback during disclosure-peak windows.
	// Zero means 2*Lookback.
	PeakLookback int

	// Entities drives ByEntity assets: one partition per listed key.
	Entities []string

	// Extract maps payload documents to records; empty for sources that
	// already produce record sets.
	Extract *ExtractRules
}

// WindowSize returns the number of preceding partitions to revisit for the
// given planner mode, applying the asset defaults.
func (a *Asset) WindowSize(peak bool) int {
	n := a.Lookback
	if n <= 0 {
		n = DefaultLookback
	}
	if !peak {
		return n
	}
	if a.PeakLookback > 0 {
		return a.PeakLookback
	}
	return 2 * n
}

// granularity returns the calendar period of one partition for schemes that
// enumerate over time.
func (a *Asset) granularity() date.Period {
	if a.Scheme == ByPeriod {
		return date.Quarterly
	}
	return date.Daily
}
