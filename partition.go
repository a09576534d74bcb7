package pitarchive

import (
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/etnz/pitarchive/date"
)

// SnapshotKey is the single partition key of snapshot assets.
const SnapshotKey = "ALL"

// entityKeyRE restricts entity partition keys to filesystem-safe characters.
// This keeps key derivation injective: no two distinct entity codes can
// collapse onto the same directory name.
var entityKeyRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Request is the logical fetch request for one partition of one asset. Only
// the field matching the asset's scheme is meaningful.
type Request struct {
	// Period is the reporting-period end date, for ByPeriod assets.
	Period date.Date `json:"period,omitzero"`
	// Date is the calendar or trade date, for ByDate and ByTradeDate assets.
	Date date.Date `json:"date,omitzero"`
	// Entity is the entity code, for ByEntity assets.
	Entity string `json:"entity,omitempty"`
}

// Params echoes the request parameters for the audit ledger.
func (r Request) Params() map[string]string {
	p := make(map[string]string, 1)
	if !r.Period.IsZero() {
		p["period"] = r.Period.Key()
	}
	if !r.Date.IsZero() {
		p["date"] = r.Date.Key()
	}
	if r.Entity != "" {
		p["entity"] = r.Entity
	}
	return p
}

// ResolveKey maps a logical request to the canonical, filesystem-safe
// partition key for the asset's scheme. It is a pure function: the same
// request always yields the same key, and distinct requests never collide.
func ResolveKey(asset *Asset, req Request) (string, error) {
	switch asset.Scheme {
	case ByPeriod:
		if req.Period.IsZero() {
			return "", fmt.Errorf("asset %q: period request has no period", asset.Name)
		}
		// Canonicalize to the period end, whatever day was requested.
		return req.Period.EndOf(date.Quarterly).Key(), nil
	case ByDate, ByTradeDate:
		if req.Date.IsZero() {
			return "", fmt.Errorf("asset %q: date request has no date", asset.Name)
		}
		return req.Date.Key(), nil
	case Snapshot:
		return SnapshotKey, nil
	case ByEntity:
		if !entityKeyRE.MatchString(req.Entity) {
			return "", fmt.Errorf("asset %q: entity key %q is not filesystem-safe", asset.Name, req.Entity)
		}
		return req.Entity, nil
	default:
		return "", fmt.Errorf("asset %q: unknown scheme %v", asset.Name, asset.Scheme)
	}
}

// PartitionDir returns the directory holding all versions of one partition:
// <root>/<asset>/period=<key>.
func PartitionDir(root string, asset string, key string) string {
	return filepath.Join(root, asset, "period="+key)
}

// VersionDir returns the directory of one ingestion of a partition:
// <root>/<asset>/period=<key>/ingest_date=<date>.
func VersionDir(root string, asset string, key string, ingest date.Date) string {
	return filepath.Join(PartitionDir(root, asset, key), "ingest_date="+ingest.String())
}

// VersionDataFile returns the artifact path of one version ordinal.
func VersionDataFile(root string, asset string, key string, ingest date.Date, ordinal int) string {
	return filepath.Join(VersionDir(root, asset, key, ingest), fmt.Sprintf("%d.jsonl", ordinal))
}

// VersionMetaFile returns the metadata sidecar path of one version ordinal.
func VersionMetaFile(root string, asset string, key string, ingest date.Date, ordinal int) string {
	return filepath.Join(VersionDir(root, asset, key, ingest), fmt.Sprintf("%d.meta.json", ordinal))
}
