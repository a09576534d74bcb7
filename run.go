package pitarchive

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/etnz/pitarchive/date"
)

// RunSummary is the per-run outcome report. Attempted counts every work
// item dispatched; the other counters partition it.
type RunSummary struct {
	Attempted int
	Committed int
	Unchanged int
	Failed    int
	// FailedKeys lists the partition keys that failed, sorted, for replay.
	FailedKeys []string
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("attempted %d, committed %d, unchanged %d, failed %d",
		s.Attempted, s.Committed, s.Unchanged, s.Failed)
}

const (
	// maxFetchAttempts bounds the retry loop for retryable fetch errors.
	maxFetchAttempts = 3
	// fetchBackoff is the initial retry delay, doubled per attempt.
	fetchBackoff = 500 * time.Millisecond

	// DefaultWorkers is the worker pool size when not configured.
	DefaultWorkers = 4
	// DefaultFetchTimeout bounds one fetch attempt.
	DefaultFetchTimeout = 60 * time.Second
	// DefaultCommitTimeout bounds one staging-and-publish cycle.
	DefaultCommitTimeout = 30 * time.Second
)

// keyedMutex hands out one mutex per partition key, the lease serializing
// fetch through commit for that partition. It must be shared by every run on
// the same archive, or two concurrent runs could both observe an absent or
// unchanged partition and both publish.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

type runner struct {
	source        Source
	ledger        *Ledger
	writer        *Writer
	workers       int
	fetchTimeout  time.Duration
	commitTimeout time.Duration
	leases        *keyedMutex
	ingest        date.Date
}

type outcome int

const (
	outcomeCommitted outcome = iota
	outcomeUnchanged
	outcomeFailed
)

// run drains a work set through the bounded worker pool. Cancelling ctx
// stops dispatch of new items; items already handed to a worker run to a
// committed or cleanly-failed state.
func (r *runner) run(ctx context.Context, items []WorkItem) *RunSummary {
	runID := uuid.NewString()
	summary := &RunSummary{}
	if len(items) == 0 {
		return summary
	}

	workers := r.workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > len(items) {
		workers = len(items)
	}

	type result struct {
		key string
		out outcome
	}
	jobs := make(chan WorkItem)
	results := make(chan result)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				results <- result{key: item.Key, out: r.process(ctx, runID, item)}
			}
		}()
	}
	go func() {
	dispatch:
		for _, item := range items {
			select {
			case <-ctx.Done():
				break dispatch
			default:
			}
			select {
			case jobs <- item:
			case <-ctx.Done():
				break dispatch
			}
		}
		close(jobs)
		wg.Wait()
		close(results)
	}()

	for res := range results {
		summary.Attempted++
		switch res.out {
		case outcomeCommitted:
			summary.Committed++
		case outcomeUnchanged:
			summary.Unchanged++
		case outcomeFailed:
			summary.Failed++
			summary.FailedKeys = append(summary.FailedKeys, res.key)
		}
	}
	sort.Strings(summary.FailedKeys)
	return summary
}

// process runs one partition end to end under its lease:
// fetch, normalize, fingerprint, decide, commit, record.
func (r *runner) process(ctx context.Context, runID string, item WorkItem) outcome {
	lease := r.leases.get(item.Asset.Name + "/" + item.Key)
	lease.Lock()
	defer lease.Unlock()

	rs, err := r.fetch(ctx, item)
	if err != nil {
		return r.fail(runID, item, err)
	}

	var fp string
	var norm *RecordSet
	if rs.Len() == 0 {
		// An empty fetch is real information: the partition has no data.
		// It gets a success entry with the sentinel fingerprint and no
		// artifact, so reruns detect it as unchanged.
		fp = EmptyFingerprint
	} else {
		norm, err = rs.Normalize(item.Asset)
		if err != nil {
			return r.fail(runID, item, err)
		}
		fp, err = fingerprintNormalized(norm)
		if err != nil {
			return r.fail(runID, item, fmt.Errorf("%w: %v", ErrNormalization, err))
		}
	}

	decision, err := r.ledger.Decide(item.Asset.Name, item.Key, fp)
	if err != nil {
		return r.fail(runID, item, fmt.Errorf("%w: %v", ErrLedgerAppend, err))
	}
	// The row count on record is the normalized one, matching what a
	// published artifact of this content holds.
	rows := 0
	if norm != nil {
		rows = norm.Len()
	}
	entry := Entry{
		Asset:       item.Asset.Name,
		Key:         item.Key,
		IngestDate:  r.ingest,
		RecordedAt:  time.Now().UTC().Truncate(time.Second),
		RunID:       runID,
		Params:      item.Req.Params(),
		RowCount:    rows,
		Fingerprint: fp,
		Status:      StatusNoChange,
	}

	if decision == Unchanged {
		if err := r.ledger.Append(entry); err != nil {
			return r.fail(runID, item, err)
		}
		return outcomeUnchanged
	}

	if norm == nil {
		// First sighting of an empty partition.
		entry.Status = StatusSuccess
		if err := r.ledger.Append(entry); err != nil {
			return r.fail(runID, item, err)
		}
		log.Printf("%s/%s: %s, no data", item.Asset.Name, item.Key, decision)
		return outcomeCommitted
	}

	if err := r.commit(item, norm, fp, runID); err != nil {
		return r.fail(runID, item, err)
	}
	log.Printf("%s/%s: %s, %d rows committed", item.Asset.Name, item.Key, decision, norm.Len())
	return outcomeCommitted
}

// fetch calls the source with a per-attempt timeout, retrying with
// exponential backoff for errors the taxonomy marks retryable.
func (r *runner) fetch(ctx context.Context, item WorkItem) (*RecordSet, error) {
	var lastErr error
	backoff := fetchBackoff
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrTimeout, context.Cause(ctx))
			}
			backoff *= 2
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.fetchTimeout)
		rs, err := r.source.Fetch(attemptCtx, item.Asset, item.Req)
		if err == nil && attemptCtx.Err() != nil {
			err = fmt.Errorf("%w: %v", ErrTimeout, attemptCtx.Err())
		}
		cancel()
		if err == nil {
			return rs, nil
		}
		lastErr = err
		if !Retryable(err) {
			break
		}
		log.Printf("%s/%s: fetch attempt %d failed: %v", item.Asset.Name, item.Key, attempt, err)
	}
	return nil, lastErr
}

// commit publishes under the commit timeout. A publish that outlives the
// timeout is recorded as failed; if it completes later anyway, its success
// entry simply supersedes the failure in the append-only ledger, and the
// sweep covers the artifact either way.
func (r *runner) commit(item WorkItem, norm *RecordSet, fp, runID string) error {
	done := make(chan error, 1)
	go func() {
		_, err := r.writer.Publish(item.Asset, item.Key, item.Req, norm, fp, runID, r.ingest)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(r.commitTimeout):
		return fmt.Errorf("%w: commit exceeded %s", ErrTimeout, r.commitTimeout)
	}
}

// fail records the failure in the ledger and logs it. The partition's
// siblings are unaffected.
func (r *runner) fail(runID string, item WorkItem, cause error) outcome {
	log.Printf("%s/%s: %v", item.Asset.Name, item.Key, cause)
	entry := Entry{
		Asset:      item.Asset.Name,
		Key:        item.Key,
		IngestDate: r.ingest,
		RecordedAt: time.Now().UTC().Truncate(time.Second),
		RunID:      runID,
		Params:     item.Req.Params(),
		Status:     StatusFailed,
		Reason:     FailureReason(cause),
	}
	if err := r.ledger.Append(entry); err != nil {
		// Nothing left to record into. The failure stays in the log output.
		log.Printf("%s/%s: recording failure: %v", item.Asset.Name, item.Key, err)
	}
	return outcomeFailed
}
