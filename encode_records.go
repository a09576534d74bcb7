package pitarchive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// EncodeRecords writes a record set as JSONL: the first line is the column
// name array, every following line is one row's cell array. Arrays rather
// than objects keep column order and make the files diffable line by line.
func EncodeRecords(w io.Writer, rs *RecordSet) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	if err := enc.Encode(rs.Columns); err != nil {
		return err
	}
	for _, row := range rs.Rows {
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// DecodeRecords reads back a record set written by EncodeRecords.
func DecodeRecords(r io.Reader) (*RecordSet, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading records: %w", err)
		}
		return nil, fmt.Errorf("record file has no header line")
	}
	var columns []string
	if err := json.Unmarshal(scanner.Bytes(), &columns); err != nil {
		return nil, fmt.Errorf("could not decode column header: %w", err)
	}
	rs := NewRecordSet(columns...)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var row []string
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("could not decode record line %q: %w", string(line), err)
		}
		if len(row) != len(columns) {
			return nil, fmt.Errorf("record line has %d cells, want %d", len(row), len(columns))
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading records: %w", err)
	}
	return rs, nil
}
