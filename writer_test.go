package pitarchive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/pitarchive/date"
)

func incomeRecords(revenue int) *RecordSet {
	rs := NewRecordSet("ts_code", "end_date", "revenue")
	rs.MustAppend("000001.SZ", "20200331", revenue)
	return rs
}

func TestPublish(t *testing.T) {
	root := t.TempDir()
	ledger := newTestLedger(t)
	w := NewWriter(root, ledger)
	asset := testAsset()
	ingest := date.New(2024, time.January, 10)

	rs, err := incomeRecords(100).Normalize(asset)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := fingerprintNormalized(rs)
	if err != nil {
		t.Fatal(err)
	}

	v, err := w.Publish(asset, "20200331", Request{Period: date.New(2020, time.March, 31)}, rs, fp, "run-1", ingest)
	if err != nil {
		t.Fatal(err)
	}
	if v.Ordinal != 1 {
		t.Errorf("ordinal = %d, want 1", v.Ordinal)
	}

	// Artifact and sidecar are on disk.
	f, err := os.Open(v.DataFile)
	if err != nil {
		t.Fatalf("data file: %v", err)
	}
	defer f.Close()
	back, err := DecodeRecords(f)
	if err != nil {
		t.Fatal(err)
	}
	if back.Len() != 1 || back.Rows[0][2] != "100" {
		t.Errorf("round-tripped records differ: %v", back.Rows)
	}
	if _, err := os.Stat(v.MetaFile); err != nil {
		t.Errorf("meta sidecar: %v", err)
	}

	// Ledger knows about the version.
	got, ok, err := ledger.LatestFingerprint(asset.Name, "20200331")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != fp {
		t.Errorf("ledger fingerprint = (%q, %v), want (%q, true)", got, ok, fp)
	}

	// No staging leftovers.
	leftovers, _ := filepath.Glob(filepath.Join(root, "staging", asset.Name, "*"))
	if len(leftovers) != 0 {
		t.Errorf("staging not empty: %v", leftovers)
	}
}

func TestPublishOrdinalsIncrease(t *testing.T) {
	root := t.TempDir()
	ledger := newTestLedger(t)
	w := NewWriter(root, ledger)
	asset := testAsset()
	ingest := date.New(2024, time.January, 10)

	for i, revenue := range []int{100, 150, 200} {
		rs, err := incomeRecords(revenue).Normalize(asset)
		if err != nil {
			t.Fatal(err)
		}
		fp, err := fingerprintNormalized(rs)
		if err != nil {
			t.Fatal(err)
		}
		v, err := w.Publish(asset, "20200331", Request{}, rs, fp, "run-1", ingest)
		if err != nil {
			t.Fatal(err)
		}
		if v.Ordinal != i+1 {
			t.Errorf("publish %d: ordinal = %d, want %d", i, v.Ordinal, i+1)
		}
	}
}

func TestSweepRemovesStaging(t *testing.T) {
	root := t.TempDir()
	ledger := newTestLedger(t)

	dir := filepath.Join(root, "staging", "income")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	stale := filepath.Join(dir, "20200331.20240110.run-1.jsonl.tmp")
	if err := os.WriteFile(stale, []byte("half written"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := Sweep(root, ledger)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.StagingRemoved) != 1 {
		t.Fatalf("removed %d staging files, want 1", len(report.StagingRemoved))
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("stale staging file still present")
	}
}

// A crash between the publish rename and the ledger append leaves a live
// artifact the ledger does not know. The sweep must rebuild the entry.
func TestSweepReconcilesUnledgeredArtifact(t *testing.T) {
	root := t.TempDir()
	asset := testAsset()
	ingest := date.New(2024, time.January, 10)

	// Publish normally, then drop the ledger to simulate the crash.
	ledgerDir := t.TempDir()
	ledger, err := OpenLedger(ledgerDir)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(root, ledger)
	rs, err := incomeRecords(100).Normalize(asset)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := fingerprintNormalized(rs)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Publish(asset, "20200331", Request{}, rs, fp, "run-1", ingest); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(ledgerDir, "income.jsonl")); err != nil {
		t.Fatal(err)
	}

	report, err := Sweep(root, ledger)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Reconciled) != 1 {
		t.Fatalf("reconciled %d entries, want 1: %+v", len(report.Reconciled), report)
	}
	got, ok, err := ledger.LatestFingerprint("income", "20200331")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || got != fp {
		t.Errorf("reconciled fingerprint = (%q, %v), want (%q, true)", got, ok, fp)
	}

	// A second sweep finds nothing to do.
	report, err = Sweep(root, ledger)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Reconciled) != 0 || len(report.Orphans) != 0 {
		t.Errorf("second sweep not idempotent: %+v", report)
	}
}

// Without the sidecar the sweep falls back to rehashing the artifact.
func TestSweepReconcilesFromArtifactAlone(t *testing.T) {
	root := t.TempDir()
	asset := testAsset()
	ingest := date.New(2024, time.January, 10)

	ledgerDir := t.TempDir()
	ledger, err := OpenLedger(ledgerDir)
	if err != nil {
		t.Fatal(err)
	}
	w := NewWriter(root, ledger)
	rs, err := incomeRecords(100).Normalize(asset)
	if err != nil {
		t.Fatal(err)
	}
	fp, err := fingerprintNormalized(rs)
	if err != nil {
		t.Fatal(err)
	}
	v, err := w.Publish(asset, "20200331", Request{}, rs, fp, "run-1", ingest)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(ledgerDir, "income.jsonl")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(v.MetaFile); err != nil {
		t.Fatal(err)
	}

	report, err := Sweep(root, ledger)
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Reconciled) != 1 {
		t.Fatalf("reconciled %d entries, want 1: %+v", len(report.Reconciled), report)
	}
	if got := report.Reconciled[0].Fingerprint; got != fp {
		t.Errorf("rehashed fingerprint = %q, want %q", got, fp)
	}
}
