package pitarchive

import (
	"fmt"
	"os"

	"github.com/etnz/pitarchive/date"
)

// VersionAt returns the version of a partition that was current as of the
// given date: the latest successfully archived version whose ingest date is
// not after asOf. ok is false when the partition had no successful
// ingestion yet as of that date.
//
// Reads go through the ledger, never the directory tree: an artifact
// without a ledger entry does not exist.
func (a *Archive) VersionAt(asset, key string, asOf date.Date) (Version, bool, error) {
	e, ok, err := a.ledger.VersionAsOf(asset, key, asOf)
	if err != nil || !ok {
		return Version{}, false, err
	}
	v := Version{
		Asset:      e.Asset,
		Key:        e.Key,
		IngestDate: e.IngestDate,
		Ordinal:    e.Ordinal,
	}
	if e.Ordinal > 0 {
		v.DataFile = VersionDataFile(a.root, e.Asset, e.Key, e.IngestDate, e.Ordinal)
		v.MetaFile = VersionMetaFile(a.root, e.Asset, e.Key, e.IngestDate, e.Ordinal)
	}
	return v, true, nil
}

// ReadVersion loads the records of one version. A version with no artifact
// (an archived empty partition) reads as an empty record set.
func (a *Archive) ReadVersion(v Version) (*RecordSet, error) {
	if v.DataFile == "" {
		return NewRecordSet(), nil
	}
	f, err := os.Open(v.DataFile)
	if err != nil {
		return nil, fmt.Errorf("reading version %s/%s ingest %s ordinal %d: %w",
			v.Asset, v.Key, v.IngestDate, v.Ordinal, err)
	}
	defer f.Close()
	return DecodeRecords(f)
}

// Latest returns the current version of a partition, as of today.
func (a *Archive) Latest(asset, key string) (Version, bool, error) {
	return a.VersionAt(asset, key, a.today())
}
