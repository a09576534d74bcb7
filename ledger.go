package pitarchive

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/etnz/pitarchive/date"
)

// Status is the terminal state of one ingestion attempt.
type Status int

const (
	// StatusSuccess records that a new version artifact was published.
	StatusSuccess Status = iota
	// StatusNoChange records that the fetched content matched the latest
	// published version, so no artifact was written.
	StatusNoChange
	// StatusFailed records that the attempt did not produce an artifact.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNoChange:
		return "no-change"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ParseStatus parses a string into a Status.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "success":
		return StatusSuccess, nil
	case "no-change":
		return StatusNoChange, nil
	case "failed":
		return StatusFailed, nil
	default:
		return 0, fmt.Errorf("unknown ledger status: %q", s)
	}
}

// Entry is one line of the append-only ingestion ledger. The ledger is the
// source of truth for what has been archived: an artifact without a success
// entry does not exist as far as readers are concerned.
type Entry struct {
	Asset       string
	Key         string
	IngestDate  date.Date
	RecordedAt  time.Time
	RunID       string
	Params      map[string]string
	RowCount    int
	Fingerprint string
	Ordinal     int
	Status      Status
	// Reason classifies a failure (timeout, fetch, normalization, staging,
	// ledger). Empty unless Status is StatusFailed.
	Reason string
}

// Ledger is an append-only record of ingestion attempts, one JSONL file per
// asset under <dir>. Appends are durable: each entry is flushed and fsynced
// before Append returns. Reads always scan the file, so they observe every
// entry appended before the call, including by other Ledger instances on the
// same directory.
type Ledger struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per-asset append locks
}

// OpenLedger opens (creating if needed) the ledger directory.
func OpenLedger(dir string) (*Ledger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating ledger dir: %v", ErrLedgerAppend, err)
	}
	return &Ledger{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (l *Ledger) file(asset string) string {
	return filepath.Join(l.dir, asset+".jsonl")
}

func (l *Ledger) lock(asset string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[asset]
	if !ok {
		m = &sync.Mutex{}
		l.locks[asset] = m
	}
	return m
}

// Append durably appends one entry to the asset's ledger file. The entry is
// on disk when Append returns nil; a crash afterwards cannot lose it.
func (l *Ledger) Append(e Entry) error {
	if e.Asset == "" || e.Key == "" {
		return fmt.Errorf("%w: entry needs asset and key", ErrLedgerAppend)
	}
	mu := l.lock(e.Asset)
	mu.Lock()
	defer mu.Unlock()

	f, err := os.OpenFile(l.file(e.Asset), os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}
	// A crash mid-append can leave a torn line with no trailing newline.
	// Close it off before writing, so the new entry starts on its own line
	// instead of gluing onto the torn one.
	if st, err := f.Stat(); err == nil && st.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, st.Size()-1); err == nil && last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				f.Close()
				return fmt.Errorf("%w: %v", ErrLedgerAppend, err)
			}
		}
	}
	if err := EncodeEntry(f, e); err != nil {
		f.Close()
		return fmt.Errorf("%w: %v", ErrLedgerAppend, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("%w: sync: %v", ErrLedgerAppend, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrLedgerAppend, err)
	}
	return nil
}

// Entries returns every entry of one asset in append order. A missing ledger
// file is an empty history, not an error.
func (l *Ledger) Entries(asset string) ([]Entry, error) {
	f, err := os.Open(l.file(asset))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeEntries(f)
}

// History returns every entry of one partition in append order.
func (l *Ledger) History(asset, key string) ([]Entry, error) {
	all, err := l.Entries(asset)
	if err != nil {
		return nil, err
	}
	var hist []Entry
	for _, e := range all {
		if e.Key == key {
			hist = append(hist, e)
		}
	}
	return hist, nil
}

// LatestFingerprint returns the fingerprint of the most recent successful
// ingestion of a partition. Failed and no-change entries are skipped: a
// no-change entry only confirms an earlier fingerprint, and a failed entry
// proves nothing about content.
func (l *Ledger) LatestFingerprint(asset, key string) (fp string, ok bool, err error) {
	hist, err := l.History(asset, key)
	if err != nil {
		return "", false, err
	}
	for i := len(hist) - 1; i >= 0; i-- {
		if hist[i].Status == StatusSuccess {
			return hist[i].Fingerprint, true, nil
		}
	}
	return "", false, nil
}

// NextOrdinal returns the ordinal a new version of the partition should use.
// Ordinals count versions across the whole partition life: the first version
// is 1 and numbering never restarts or reuses a value, whatever the ingest
// date.
func (l *Ledger) NextOrdinal(asset, key string) (int, error) {
	hist, err := l.History(asset, key)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, e := range hist {
		if e.Status == StatusSuccess && e.Ordinal > max {
			max = e.Ordinal
		}
	}
	return max + 1, nil
}

// VersionAsOf returns the version of a partition that was current as of the
// given date: the successful entry with the greatest (ingest date, ordinal)
// not after asOf. ok is false when nothing had been published yet.
func (l *Ledger) VersionAsOf(asset, key string, asOf date.Date) (Entry, bool, error) {
	hist, err := l.History(asset, key)
	if err != nil {
		return Entry{}, false, err
	}
	var best Entry
	found := false
	for _, e := range hist {
		if e.Status != StatusSuccess || e.IngestDate.After(asOf) {
			continue
		}
		if !found || e.IngestDate.After(best.IngestDate) ||
			(e.IngestDate == best.IngestDate && e.Ordinal > best.Ordinal) {
			best, found = e, true
		}
	}
	return best, found, nil
}

// ProcessedKeys returns the set of partition keys that have at least one
// success or no-change entry. Backfills use it to skip work already done.
func (l *Ledger) ProcessedKeys(asset string) (map[string]bool, error) {
	all, err := l.Entries(asset)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool)
	for _, e := range all {
		if e.Status == StatusSuccess || e.Status == StatusNoChange {
			keys[e.Key] = true
		}
	}
	return keys, nil
}

// Assets lists every asset that has a ledger file.
func (l *Ledger) Assets() ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(de.Name(), ".jsonl"); ok && name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
