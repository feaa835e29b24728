package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Row is one record, aligned with Dataset.Columns.
type Row []Value

// Dataset is an ordered table of rows sharing one column set. Resolvers treat
// a Dataset as immutable and return a new one.
type Dataset struct {
	Columns []string
	Rows    []Row

	index map[string]int
}

// NewDataset builds a dataset and validates column names and row widths.
func NewDataset(columns []string, rows []Row) (*Dataset, error) {
	ds := &Dataset{Columns: columns, Rows: rows}
	if err := ds.buildIndex(); err != nil {
		return nil, err
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, eris.Errorf("dataset: row %d has %d values, want %d", i, len(r), len(columns))
		}
	}
	return ds, nil
}

func (d *Dataset) buildIndex() error {
	d.index = make(map[string]int, len(d.Columns))
	for i, c := range d.Columns {
		if c == "" {
			return eris.Errorf("dataset: column %d has an empty name", i)
		}
		if _, dup := d.index[c]; dup {
			return eris.Errorf("dataset: duplicate column %q", c)
		}
		d.index[c] = i
	}
	return nil
}

// ColumnIndex returns the position of a column. Datasets not built by
// NewDataset or WithRows have no index and report no columns.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	if d.index == nil {
		return 0, false
	}
	i, ok := d.index[name]
	return i, ok
}

// HasColumn reports whether the column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.ColumnIndex(name)
	return ok
}

// NumRows returns the row count.
func (d *Dataset) NumRows() int { return len(d.Rows) }

// NumColumns returns the column count.
func (d *Dataset) NumColumns() int { return len(d.Columns) }

// Column returns the values of one column in row order.
func (d *Dataset) Column(name string) ([]Value, bool) {
	idx, ok := d.ColumnIndex(name)
	if !ok {
		return nil, false
	}
	out := make([]Value, len(d.Rows))
	for i, r := range d.Rows {
		out[i] = r[idx]
	}
	return out, true
}

// Clone returns a deep copy; rows are copied so callers may mutate cells.
func (d *Dataset) Clone() *Dataset {
	rows := make([]Row, len(d.Rows))
	for i, r := range d.Rows {
		rows[i] = append(Row(nil), r...)
	}
	return d.WithRows(rows)
}

// WithRows returns a dataset with d's column set and the given rows. Rows
// must already be the right width.
func (d *Dataset) WithRows(rows []Row) *Dataset {
	cols := append([]string(nil), d.Columns...)
	out := &Dataset{Columns: cols, Rows: rows}
	_ = out.buildIndex()
	return out
}

// Filter returns a new dataset with the rows for which keep returns true.
// Kept rows are shared with d; callers must not mutate them.
func (d *Dataset) Filter(keep func(i int, r Row) bool) *Dataset {
	rows := make([]Row, 0, len(d.Rows))
	for i, r := range d.Rows {
		if keep(i, r) {
			rows = append(rows, r)
		}
	}
	return d.WithRows(rows)
}

// MissingCounts returns the null count for every column.
func (d *Dataset) MissingCounts() map[string]int {
	out := make(map[string]int, len(d.Columns))
	for _, c := range d.Columns {
		out[c] = 0
	}
	for _, r := range d.Rows {
		for j, v := range r {
			if v.IsNull() {
				out[d.Columns[j]]++
			}
		}
	}
	return out
}

// RowKey returns a byte key identifying the full row tuple.
func RowKey(r Row) string {
	buf := make([]byte, 0, len(r)*8)
	for _, v := range r {
		buf = v.key(buf)
	}
	return string(buf)
}

// Records converts the first limit rows into column-keyed maps (limit <= 0 = all).
func (d *Dataset) Records(limit int) []map[string]Value {
	n := len(d.Rows)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]map[string]Value, n)
	for i := 0; i < n; i++ {
		rec := make(map[string]Value, len(d.Columns))
		for j, c := range d.Columns {
			rec[c] = d.Rows[i][j]
		}
		out[i] = rec
	}
	return out
}

// MarshalJSON encodes the dataset as {"columns": [...], "rows": [[...]]}.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Columns []string `json:"columns"`
		Rows    []Row    `json:"rows"`
	}{d.Columns, d.Rows})
}

// UnmarshalJSON decodes the shape produced by MarshalJSON.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Columns []string `json:"columns"`
		Rows    []Row    `json:"rows"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "dataset: decode")
	}
	ds, err := NewDataset(raw.Columns, raw.Rows)
	if err != nil {
		return err
	}
	*d = *ds
	return nil
}
