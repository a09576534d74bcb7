package pitarchive

import (
	"sort"

	"github.com/etnz/pitarchive/date"
)

// AssetSummary aggregates the ledger of one asset: how much is archived and
// how fresh it is.
type AssetSummary struct {
	Asset string
	// Partitions counts distinct partition keys with at least one version.
	Partitions int
	// Versions counts published versions across all partitions.
	Versions int
	// Empty counts partitions whose latest state is a confirmed empty fetch.
	Empty int
	// Failures counts failed ledger entries.
	Failures int
	// LastIngest is the most recent ingest date of any entry.
	LastIngest date.Date
	// Recent holds the newest ledger entries, most recent first.
	Recent []Entry
}

// recentEntries caps AssetSummary.Recent.
const recentEntries = 10

// Summarize aggregates one asset's ledger.
func (a *Archive) Summarize(asset string) (*AssetSummary, error) {
	entries, err := a.ledger.Entries(asset)
	if err != nil {
		return nil, err
	}
	s := &AssetSummary{Asset: asset}
	partitions := make(map[string]bool)
	latestFP := make(map[string]string)
	for _, e := range entries {
		if e.IngestDate.After(s.LastIngest) {
			s.LastIngest = e.IngestDate
		}
		switch e.Status {
		case StatusSuccess:
			latestFP[e.Key] = e.Fingerprint
			if e.Ordinal > 0 {
				partitions[e.Key] = true
				s.Versions++
			}
		case StatusFailed:
			s.Failures++
		}
	}
	s.Partitions = len(partitions)
	for _, fp := range latestFP {
		if fp == EmptyFingerprint {
			s.Empty++
		}
	}
	n := len(entries)
	for i := n - 1; i >= 0 && i >= n-recentEntries; i-- {
		s.Recent = append(s.Recent, entries[i])
	}
	return s, nil
}

// SummarizeAll aggregates every asset known to the ledger, sorted by name.
func (a *Archive) SummarizeAll() ([]*AssetSummary, error) {
	names, err := a.ledger.Assets()
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	summaries := make([]*AssetSummary, 0, len(names))
	for _, name := range names {
		s, err := a.Summarize(name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}
