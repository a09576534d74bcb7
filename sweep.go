package pitarchive

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/karrick/godirwalk"

	"github.com/etnz/pitarchive/date"
)

// SweepReport summarizes one recovery sweep.
type SweepReport struct {
	// StagingRemoved lists discarded staging temp files.
	StagingRemoved []string
	// Reconciled lists ledger entries rebuilt for published artifacts that a
	// crash left without one.
	Reconciled []Entry
	// Orphans lists artifact paths that could not be reconciled and were
	// left in place for manual inspection.
	Orphans []string
}

// Sweep makes the archive consistent again after a crash. It removes every
// staging temp file (they were never visible) and walks the published tree
// looking for data files the ledger does not know about. Such files are
// reconciled by appending the success entry the crash swallowed, rebuilt
// from the metadata sidecar, or from the artifact itself when the sidecar is
// missing too.
//
// Sweep must not run concurrently with an ingestion run on the same root.
func Sweep(root string, ledger *Ledger) (*SweepReport, error) {
	report := &SweepReport{}

	if err := sweepStaging(root, report); err != nil {
		return nil, err
	}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || !strings.HasSuffix(path, ".jsonl") {
				return nil
			}
			asset, key, ingest, ordinal, ok := parseArtifactPath(root, path)
			if !ok {
				return nil
			}
			known, err := ledgerHas(ledger, asset, key, ingest, ordinal)
			if err != nil {
				return err
			}
			if known {
				return nil
			}
			entry, err := rebuildEntry(root, asset, key, ingest, ordinal, path)
			if err != nil {
				log.Printf("sweep: cannot reconcile %s: %v", path, err)
				report.Orphans = append(report.Orphans, path)
				return nil
			}
			if err := ledger.Append(entry); err != nil {
				return err
			}
			log.Printf("sweep: reconciled %s/%s ingest %s ordinal %d", asset, key, ingest, ordinal)
			report.Reconciled = append(report.Reconciled, entry)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sweeping %s: %w", root, err)
	}
	return report, nil
}

func sweepStaging(root string, report *SweepReport) error {
	staging := filepath.Join(root, "staging")
	err := godirwalk.Walk(staging, &godirwalk.Options{
		Unsorted: true,
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() || !strings.HasSuffix(path, ".tmp") {
				return nil
			}
			if err := os.Remove(path); err != nil {
				return err
			}
			report.StagingRemoved = append(report.StagingRemoved, path)
			return nil
		},
	})
	if err != nil && !os.IsNotExist(err) {
		// A root that never staged anything has no staging directory.
		if _, statErr := os.Stat(staging); os.IsNotExist(statErr) {
			return nil
		}
		return fmt.Errorf("sweeping staging: %w", err)
	}
	return nil
}

// parseArtifactPath recognizes <asset>/period=<key>/ingest_date=<d>/<n>.jsonl
// relative to root. Anything else (ledger files included) is skipped.
func parseArtifactPath(root, path string) (asset, key string, ingest date.Date, ordinal int, ok bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", "", date.Date{}, 0, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) != 4 {
		return "", "", date.Date{}, 0, false
	}
	asset = parts[0]
	key, okKey := strings.CutPrefix(parts[1], "period=")
	ingestStr, okIngest := strings.CutPrefix(parts[2], "ingest_date=")
	if !okKey || !okIngest {
		return "", "", date.Date{}, 0, false
	}
	ingest, err = date.Parse(ingestStr)
	if err != nil {
		return "", "", date.Date{}, 0, false
	}
	ordStr, okOrd := strings.CutSuffix(parts[3], ".jsonl")
	if !okOrd {
		return "", "", date.Date{}, 0, false
	}
	ordinal, err = strconv.Atoi(ordStr)
	if err != nil || ordinal < 1 {
		return "", "", date.Date{}, 0, false
	}
	return asset, key, ingest, ordinal, true
}

func ledgerHas(l *Ledger, asset, key string, ingest date.Date, ordinal int) (bool, error) {
	hist, err := l.History(asset, key)
	if err != nil {
		return false, err
	}
	for _, e := range hist {
		if e.Status == StatusSuccess && e.IngestDate == ingest && e.Ordinal == ordinal {
			return true, nil
		}
	}
	return false, nil
}

// rebuildEntry reconstructs the missing success entry, preferring the
// metadata sidecar and falling back to rehashing the artifact.
func rebuildEntry(root, asset, key string, ingest date.Date, ordinal int, dataFile string) (Entry, error) {
	metaFile := VersionMetaFile(root, asset, key, ingest, ordinal)
	if data, err := os.ReadFile(metaFile); err == nil {
		var meta versionMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			return Entry{}, fmt.Errorf("corrupt sidecar %s: %w", metaFile, err)
		}
		return Entry{
			Asset:       asset,
			Key:         key,
			IngestDate:  ingest,
			RecordedAt:  meta.RecordedAt,
			RunID:       meta.RunID,
			Params:      meta.Params,
			RowCount:    meta.RowCount,
			Fingerprint: meta.Fingerprint,
			Ordinal:     ordinal,
			Status:      StatusSuccess,
		}, nil
	}

	f, err := os.Open(dataFile)
	if err != nil {
		return Entry{}, err
	}
	defer f.Close()
	rs, err := DecodeRecords(f)
	if err != nil {
		return Entry{}, err
	}
	// Artifacts store already-normalized rows, so rehashing them directly
	// reproduces the original fingerprint.
	fp, err := fingerprintNormalized(rs)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Asset:       asset,
		Key:         key,
		IngestDate:  ingest,
		RecordedAt:  time.Now().UTC().Truncate(time.Second),
		RowCount:    rs.Len(),
		Fingerprint: fp,
		Ordinal:     ordinal,
		Status:      StatusSuccess,
	}, nil
}
