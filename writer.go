package pitarchive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/etnz/pitarchive/date"
)

// Version identifies one published artifact of one partition.
type Version struct {
	Asset      string
	Key        string
	IngestDate date.Date
	Ordinal    int
	// DataFile and MetaFile are absolute paths under the archive root.
	DataFile string
	MetaFile string
}

// versionMeta is the JSON sidecar published next to every data file. It
// carries enough context to rebuild the ledger entry during a recovery sweep.
type versionMeta struct {
	Asset       string            `json:"asset"`
	Key         string            `json:"key"`
	IngestDate  date.Date         `json:"ingestDate"`
	Ordinal     int               `json:"ordinal"`
	RunID       string            `json:"runId"`
	Params      map[string]string `json:"params,omitempty"`
	RowCount    int               `json:"rowCount"`
	Fingerprint string            `json:"fingerprint"`
	RecordedAt  time.Time         `json:"recordedAt"`
}

// Writer publishes version artifacts atomically. A version becomes visible
// in a single rename of its data file; everything before that point lives in
// a staging area that a sweep can discard at any time.
type Writer struct {
	root   string
	ledger *Ledger
}

// NewWriter returns a writer publishing under root and recording into ledger.
func NewWriter(root string, ledger *Ledger) *Writer {
	return &Writer{root: root, ledger: ledger}
}

func (w *Writer) stagingDir(asset string) string {
	return filepath.Join(w.root, "staging", asset)
}

func (w *Writer) stagingFile(asset, key string, ingest date.Date, runID string) string {
	return filepath.Join(w.stagingDir(asset), fmt.Sprintf("%s.%s.%s.jsonl.tmp", key, ingest.Key(), runID))
}

// Publish writes the normalized records as a new version of the partition
// and appends the matching success entry to the ledger.
//
// Ordering is what makes a crash at any point recoverable:
//  1. records are staged and fsynced outside the final directory,
//  2. the metadata sidecar is published (temp file plus rename),
//  3. the data file is renamed into place and the directory fsynced,
//  4. the ledger entry is appended.
//
// A crash before step 3 leaves only staging garbage. A crash between 3 and 4
// leaves a published artifact without a ledger entry, which the sweep
// reconciles from the sidecar.
func (w *Writer) Publish(asset *Asset, key string, req Request, rs *RecordSet, fingerprint, runID string, ingest date.Date) (Version, error) {
	ordinal, err := w.ledger.NextOrdinal(asset.Name, key)
	if err != nil {
		return Version{}, fmt.Errorf("%w: ordinal for %s/%s: %v", ErrStaging, asset.Name, key, err)
	}
	v := Version{
		Asset:      asset.Name,
		Key:        key,
		IngestDate: ingest,
		Ordinal:    ordinal,
		DataFile:   VersionDataFile(w.root, asset.Name, key, ingest, ordinal),
		MetaFile:   VersionMetaFile(w.root, asset.Name, key, ingest, ordinal),
	}

	staged, err := w.stage(asset.Name, key, ingest, runID, rs)
	if err != nil {
		return Version{}, err
	}

	dir := VersionDir(w.root, asset.Name, key, ingest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Version{}, fmt.Errorf("%w: %v", ErrStaging, err)
	}
	meta := versionMeta{
		Asset:       asset.Name,
		Key:         key,
		IngestDate:  ingest,
		Ordinal:     ordinal,
		RunID:       runID,
		Params:      req.Params(),
		RowCount:    rs.Len(),
		Fingerprint: fingerprint,
		RecordedAt:  time.Now().UTC().Truncate(time.Second),
	}
	if err := writeFileAtomic(v.MetaFile, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	}); err != nil {
		os.Remove(staged)
		return Version{}, fmt.Errorf("%w: sidecar: %v", ErrStaging, err)
	}
	if err := os.Rename(staged, v.DataFile); err != nil {
		os.Remove(staged)
		return Version{}, fmt.Errorf("%w: publish rename: %v", ErrStaging, err)
	}
	if err := syncDir(dir); err != nil {
		return Version{}, fmt.Errorf("%w: %v", ErrStaging, err)
	}

	entry := Entry{
		Asset:       asset.Name,
		Key:         key,
		IngestDate:  ingest,
		RecordedAt:  meta.RecordedAt,
		RunID:       runID,
		Params:      req.Params(),
		RowCount:    rs.Len(),
		Fingerprint: fingerprint,
		Ordinal:     ordinal,
		Status:      StatusSuccess,
	}
	if err := w.ledger.Append(entry); err != nil {
		// The artifact is already live. Leave it for the sweep to reconcile
		// rather than trying to unpublish.
		return v, err
	}
	return v, nil
}

// stage writes the records to a temp file in the staging area, fsynced.
func (w *Writer) stage(asset, key string, ingest date.Date, runID string, rs *RecordSet) (string, error) {
	if err := os.MkdirAll(w.stagingDir(asset), 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStaging, err)
	}
	path := w.stagingFile(asset, key, ingest, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStaging, err)
	}
	if err := EncodeRecords(f, rs); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: %v", ErrStaging, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("%w: sync: %v", ErrStaging, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("%w: close: %v", ErrStaging, err)
	}
	return path, nil
}

// writeFileAtomic writes path through a sibling temp file and a rename.
func writeFileAtomic(path string, fill func(*os.File) error) error {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := fill(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// syncDir fsyncs a directory so a just-renamed entry survives a crash.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
