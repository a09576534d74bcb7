package pitarchive

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/etnz/pitarchive/date"
)

// Archive ties together a storage root, a manifest, the ledger, the writer
// and a source. It is the run surface: everything a scheduler or the CLI
// calls goes through it.
type Archive struct {
	root     string
	manifest *Manifest
	ledger   *Ledger
	writer   *Writer
	source   Source

	// Workers bounds the ingestion worker pool. Zero means DefaultWorkers.
	Workers int
	// FetchTimeout bounds one fetch attempt. Zero means DefaultFetchTimeout.
	FetchTimeout time.Duration
	// CommitTimeout bounds one publish. Zero means DefaultCommitTimeout.
	CommitTimeout time.Duration
	// Trading is the trade calendar for ByTradeDate assets. Nil falls back
	// to weekdays.
	Trading *date.Calendar
	// Today overrides the planning date, for replays and tests.
	Today date.Date

	// leases serializes ingestion per partition across every run on this
	// archive, so overlapping runs cannot double-publish the same key.
	leases keyedMutex
}

// LedgerDirName is the ledger directory under the archive root. The leading
// underscore keeps it clear of asset directories, whose names are lowercase
// identifiers.
const LedgerDirName = "_ledger"

// Open opens an archive at root, creating the ledger directory if needed.
func Open(root string, manifest *Manifest, source Source) (*Archive, error) {
	ledger, err := OpenLedger(filepath.Join(root, LedgerDirName))
	if err != nil {
		return nil, err
	}
	return &Archive{
		root:     root,
		manifest: manifest,
		ledger:   ledger,
		writer:   NewWriter(root, ledger),
		source:   source,
	}, nil
}

// Root returns the archive storage root.
func (a *Archive) Root() string { return a.root }

// Ledger returns the archive's ledger.
func (a *Archive) Ledger() *Ledger { return a.ledger }

// Manifest returns the archive's asset manifest.
func (a *Archive) Manifest() *Manifest { return a.manifest }

func (a *Archive) today() date.Date {
	if !a.Today.IsZero() {
		return a.Today
	}
	return date.Today()
}

func (a *Archive) asset(name string) (*Asset, error) {
	asset := a.manifest.Asset(name)
	if asset == nil {
		return nil, fmt.Errorf("unknown asset %q", name)
	}
	return asset, nil
}

func (a *Archive) runner() *runner {
	r := &runner{
		source:        a.source,
		ledger:        a.ledger,
		writer:        a.writer,
		workers:       a.Workers,
		fetchTimeout:  a.FetchTimeout,
		commitTimeout: a.CommitTimeout,
		leases:        &a.leases,
		ingest:        a.today(),
	}
	if r.fetchTimeout <= 0 {
		r.fetchTimeout = DefaultFetchTimeout
	}
	if r.commitTimeout <= 0 {
		r.commitTimeout = DefaultCommitTimeout
	}
	return r
}

func (a *Archive) planner() *Planner {
	p := NewPlanner(a.ledger, a.today())
	p.Trading = a.Trading
	return p
}

// Backfill archives every partition of the asset from its configured start
// (or from) to today (or to). Partitions already archived are skipped unless
// force is set.
func (a *Archive) Backfill(ctx context.Context, name string, from, to date.Date, force bool) (*RunSummary, error) {
	asset, err := a.asset(name)
	if err != nil {
		return nil, err
	}
	items, err := a.planner().Plan(asset, Backfill, PlanOptions{From: from, To: to, Force: force})
	if err != nil {
		return nil, err
	}
	return a.runner().run(ctx, items), nil
}

// Update refreshes the asset's current partition.
func (a *Archive) Update(ctx context.Context, name string) (*RunSummary, error) {
	asset, err := a.asset(name)
	if err != nil {
		return nil, err
	}
	items, err := a.planner().Plan(asset, StandardUpdate, PlanOptions{})
	if err != nil {
		return nil, err
	}
	return a.runner().run(ctx, items), nil
}

// UpdateWithLookback refreshes the asset's current partition plus its
// lookback window scaled by multiplier, re-running change detection on each
// to capture late corrections. A multiplier below 1 means 1.
func (a *Archive) UpdateWithLookback(ctx context.Context, name string, multiplier int) (*RunSummary, error) {
	asset, err := a.asset(name)
	if err != nil {
		return nil, err
	}
	if multiplier < 1 {
		multiplier = 1
	}
	mode := SlidingWindow
	window := asset.WindowSize(false) * multiplier
	if InDisclosurePeak(a.today()) {
		mode = DisclosurePeak
		window = asset.WindowSize(true) * multiplier
	}
	items, err := a.planner().Plan(asset, mode, PlanOptions{Window: window})
	if err != nil {
		return nil, err
	}
	return a.runner().run(ctx, items), nil
}

// Sweep reconciles the archive after a crash. It must not run concurrently
// with an ingestion run on the same root.
func (a *Archive) Sweep() (*SweepReport, error) {
	return Sweep(a.root, a.ledger)
}
