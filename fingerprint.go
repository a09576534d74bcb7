package pitarchive

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
)

// EmptyFingerprint is the fingerprint of a record set with no rows. Keeping a
// fixed sentinel lets empty partitions participate in change detection like
// any other content.
const EmptyFingerprint = "empty"

// Fingerprint computes the stable content digest of a record set for the
// given asset. The set is normalized first (rows sorted by primary key,
// duplicates resolved), so the digest does not depend on the order in which
// the source returned the rows.
func Fingerprint(asset *Asset, rs *RecordSet) (string, error) {
	normalized, err := rs.Normalize(asset)
	if err != nil {
		return "", err
	}
	return fingerprintNormalized(normalized)
}

// fingerprintNormalized hashes an already-normalized record set. The digest
// covers the column header too: renaming a column is a content change.
func fingerprintNormalized(rs *RecordSet) (string, error) {
	if rs.Len() == 0 {
		return EmptyFingerprint, nil
	}
	h := sha256.New()
	w := csv.NewWriter(h)
	if err := w.Write(rs.Columns); err != nil {
		return "", fmt.Errorf("cannot hash header: %w", err)
	}
	for _, row := range rs.Rows {
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("cannot hash row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("cannot hash record set: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
