package pitarchive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/etnz/pitarchive/date"
)

// entryCmd is a specialized struct for the JSONL wire form of an Entry.
// Status travels as its string name so the files stay greppable.
type entryCmd struct {
	Asset       string            `json:"asset"`
	Key         string            `json:"key"`
	IngestDate  date.Date         `json:"ingestDate"`
	RecordedAt  time.Time         `json:"recordedAt"`
	RunID       string            `json:"runId"`
	Params      map[string]string `json:"params,omitempty"`
	RowCount    int               `json:"rowCount"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Ordinal     int               `json:"ordinal,omitempty"`
	Status      string            `json:"status"`
	Reason      string            `json:"reason,omitempty"`
}

// EncodeEntry writes one entry as a single JSONL line.
func EncodeEntry(w io.Writer, e Entry) error {
	cmd := entryCmd{
		Asset:       e.Asset,
		Key:         e.Key,
		IngestDate:  e.IngestDate,
		RecordedAt:  e.RecordedAt.UTC().Truncate(time.Second),
		RunID:       e.RunID,
		Params:      e.Params,
		RowCount:    e.RowCount,
		Fingerprint: e.Fingerprint,
		Ordinal:     e.Ordinal,
		Status:      e.Status.String(),
		Reason:      e.Reason,
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// DecodeEntries decodes a stream of JSONL ledger lines, in file order.
//
// A crash between write and fsync can tear the last line. The file is append
// only, so every intact line still decodes: undecodable lines are logged and
// skipped rather than failing the whole read, which would make one torn byte
// hide every entry written before it.
func DecodeEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue // Skip empty lines
		}
		var cmd entryCmd
		if err := json.Unmarshal(line, &cmd); err != nil {
			log.Printf("ledger: skipping torn line %q: %v", string(line), err)
			continue
		}
		status, err := ParseStatus(cmd.Status)
		if err != nil {
			return nil, fmt.Errorf("ledger line for %s/%s: %w", cmd.Asset, cmd.Key, err)
		}
		entries = append(entries, Entry{
			Asset:       cmd.Asset,
			Key:         cmd.Key,
			IngestDate:  cmd.IngestDate,
			RecordedAt:  cmd.RecordedAt,
			RunID:       cmd.RunID,
			Params:      cmd.Params,
			RowCount:    cmd.RowCount,
			Fingerprint: cmd.Fingerprint,
			Ordinal:     cmd.Ordinal,
			Status:      status,
			Reason:      cmd.Reason,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	return entries, nil
}
