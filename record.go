package pitarchive

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/etnz/pitarchive/date"
	"github.com/shopspring/decimal"
)

// RecordSet is a rectangular set of records: a fixed column order and rows of
// canonical cell text. All values are canonicalized on append so that two
// semantically identical record sets are textually identical, whatever the
// source formatting was.
type RecordSet struct {
	Columns []string
	Rows    [][]string
}

// NewRecordSet creates an empty record set with the given column order.
func NewRecordSet(columns ...string) *RecordSet {
	return &RecordSet{Columns: slices.Clone(columns)}
}

// Len returns the number of rows.
func (rs *RecordSet) Len() int { return len(rs.Rows) }

// Append adds one row. The number of cells must match the column count.
func (rs *RecordSet) Append(cells ...any) error {
	if len(cells) != len(rs.Columns) {
		return fmt.Errorf("%w: row has %d cells, want %d", ErrNormalization, len(cells), len(rs.Columns))
	}
	row := make([]string, len(cells))
	for i, c := range cells {
		s, err := canonical(c)
		if err != nil {
			return fmt.Errorf("%w: column %q: %v", ErrNormalization, rs.Columns[i], err)
		}
		row[i] = s
	}
	rs.Rows = append(rs.Rows, row)
	return nil
}

// MustAppend is like Append but panics on error. Test helper.
func (rs *RecordSet) MustAppend(cells ...any) {
	if err := rs.Append(cells...); err != nil {
		panic(err.Error())
	}
}

// column returns the index of the named column, or -1.
func (rs *RecordSet) column(name string) int {
	return slices.Index(rs.Columns, name)
}

// canonical renders a cell value in its unique textual form. Numbers go
// through decimal so that 0.10, 0.1 and 1e-1 hash identically on every
// platform.
func canonical(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return decimal.NewFromFloat(x).String(), nil
	case float32:
		return decimal.NewFromFloat32(x).String(), nil
	case json.Number:
		d, err := decimal.NewFromString(x.String())
		if err != nil {
			return "", fmt.Errorf("invalid number %q", x.String())
		}
		return d.String(), nil
	case decimal.Decimal:
		return x.String(), nil
	case date.Date:
		return x.String(), nil
	default:
		return "", fmt.Errorf("unsupported cell type %T", v)
	}
}

// Normalize returns a copy of the record set ready for fingerprinting: rows
// deduplicated by the asset's primary key according to its declared strategy,
// then sorted by the primary-key tuple. It fails with ErrNormalization when a
// primary-key column is missing or duplicates cannot be resolved.
func (rs *RecordSet) Normalize(asset *Asset) (*RecordSet, error) {
	if len(asset.PrimaryKey) == 0 {
		return nil, fmt.Errorf("%w: asset %q declares no primary key", ErrNormalization, asset.Name)
	}
	pk := make([]int, len(asset.PrimaryKey))
	for i, name := range asset.PrimaryKey {
		col := rs.column(name)
		if col < 0 {
			return nil, fmt.Errorf("%w: asset %q: primary-key column %q not in record set", ErrNormalization, asset.Name, name)
		}
		pk[i] = col
	}

	// Deduplicate in input order so keep_first/keep_last are well defined.
	index := make(map[string]int, len(rs.Rows))
	kept := make([][]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		key := keyTuple(row, pk)
		at, seen := index[key]
		if !seen {
			index[key] = len(kept)
			kept = append(kept, row)
			continue
		}
		if slices.Equal(kept[at], row) {
			continue // exact duplicate, always resolvable
		}
		switch asset.Dedup {
		case DedupKeepFirst:
			// keep the existing row
		case DedupKeepLast:
			kept[at] = row
		default:
			return nil, fmt.Errorf("%w: asset %q: conflicting duplicate for key %s", ErrNormalization, asset.Name, key)
		}
	}

	slices.SortFunc(kept, func(a, b []string) int {
		if c := strings.Compare(keyTuple(a, pk), keyTuple(b, pk)); c != 0 {
			return c
		}
		return slices.Compare(a, b)
	})

	return &RecordSet{Columns: slices.Clone(rs.Columns), Rows: kept}, nil
}

// keyTuple joins the primary-key cells of a row with a separator that cannot
// appear in canonical cell text boundaries ambiguously.
func keyTuple(row []string, pk []int) string {
	parts := make([]string, len(pk))
	for i, col := range pk {
		parts[i] = row[col]
	}
	return strings.Join(parts, "\x1f")
}
