package pitarchive

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// ExtractRules maps a raw JSON payload onto tabular records. Rows selects
// the array of row objects; Fields gives, per column, the path of its value
// inside one row. Columns fixes the column order of the resulting set.
type ExtractRules struct {
	Rows    string            `json:"rows"`
	Columns []string          `json:"columns"`
	Fields  map[string]string `json:"fields"`
}

func (r *ExtractRules) validate() error {
	if r.Rows == "" {
		return fmt.Errorf("extract rules need a rows path")
	}
	if len(r.Columns) == 0 {
		return fmt.Errorf("extract rules need at least one column")
	}
	for _, c := range r.Columns {
		if _, ok := r.Fields[c]; !ok {
			return fmt.Errorf("extract rules: column %q has no field path", c)
		}
	}
	return nil
}

// Extract applies the rules to a raw payload and returns the record set.
// Numbers are decoded as json.Number so canonicalization sees the exact
// upstream digits, not a float round trip. A field path that matches nothing
// in a row yields an empty cell.
func Extract(raw []byte, rules *ExtractRules) (*RecordSet, error) {
	if err := rules.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNormalization, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %v", ErrNormalization, err)
	}

	rowsVal, err := jsonpath.Get(rules.Rows, doc)
	if err != nil {
		return nil, fmt.Errorf("%w: rows path %q: %v", ErrNormalization, rules.Rows, err)
	}
	rows, ok := rowsVal.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: rows path %q selects %T, want an array", ErrNormalization, rules.Rows, rowsVal)
	}

	rs := NewRecordSet(rules.Columns...)
	for i, row := range rows {
		cells := make([]any, len(rules.Columns))
		for j, col := range rules.Columns {
			v, err := jsonpath.Get(rules.Fields[col], row)
			if err != nil {
				// Absent field, empty cell.
				v = nil
			}
			cells[j] = v
		}
		if err := rs.Append(cells...); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrNormalization, i, err)
		}
	}
	return rs, nil
}
