// Package pitarchive implements an append-only, versioned, point-in-time
// correct archive for time-partitioned datasets fetched from an external
// financial data source.
//
// Fetched record sets are normalized, fingerprinted and compared against the
// last known state of their partition; a new immutable version is published
// only when the content genuinely changed. Every fetch attempt, successful or
// not, is recorded in an append-only request ledger which is the single
// source of truth for change detection, auditing and point-in-time queries.
package pitarchive
