package pitarchive

// Decision is the outcome of comparing a fresh fetch against the last
// published version of the same partition.
type Decision int

const (
	// FirstSeen means the partition has never been successfully archived.
	FirstSeen Decision = iota
	// Changed means the content differs from the latest published version.
	Changed
	// Unchanged means the content is byte-identical in canonical form.
	Unchanged
)

func (d Decision) String() string {
	switch d {
	case FirstSeen:
		return "first-seen"
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Decide compares the fresh fingerprint against the ledger's latest
// successful fingerprint for the partition. FirstSeen and Changed both lead
// to a new version; Unchanged leads to a no-change ledger entry only.
func (l *Ledger) Decide(asset, key, fingerprint string) (Decision, error) {
	prev, ok, err := l.LatestFingerprint(asset, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return FirstSeen, nil
	}
	if prev == fingerprint {
		return Unchanged, nil
	}
	return Changed, nil
}
