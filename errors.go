package pitarchive

import (
	"context"
	"errors"
)

// Sentinel errors classifying every failure the archive core can produce.
// Callers match them with errors.Is; the runner keys its retry policy and the
// ledger its failure reason off this taxonomy.
var (
	// ErrFetch reports that the external data source failed (network, auth,
	// rate limit). Retryable.
	ErrFetch = errors.New("fetch failed")

	// ErrNormalization reports malformed or non-deduplicable records. Not
	// retryable: the data itself is defective.
	ErrNormalization = errors.New("normalization failed")

	// ErrStaging reports a disk write or move failure while publishing a
	// version. Not retryable: the environment is defective.
	ErrStaging = errors.New("staging io failed")

	// ErrLedgerAppend reports an audit durability failure. Always fatal for
	// the enclosing batch, never swallowed.
	ErrLedgerAppend = errors.New("ledger append failed")

	// ErrTimeout reports that an operation exceeded its bound. Retryable.
	ErrTimeout = errors.New("timeout")
)

// Retryable reports whether the error warrants a retry with backoff.
// Only external-source failures and timeouts qualify. A source may surface a
// deadline as a raw context.DeadlineExceeded instead of wrapping ErrTimeout;
// both count as timeouts, here and in FailureReason.
func Retryable(err error) bool {
	return errors.Is(err, ErrFetch) || errors.Is(err, ErrTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// FailureReason maps an error to the short reason recorded in a failed
// ledger entry.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, ErrNormalization):
		return "normalization"
	case errors.Is(err, ErrStaging):
		return "staging"
	case errors.Is(err, ErrLedgerAppend):
		return "ledger"
	default:
		return "error"
	}
}
