package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := NewDataset([]string{"id", "score"}, []Row{
		{Number(1), Number(10)},
		{Number(2), Null()},
		{Number(3), Number(30)},
	})
	require.NoError(t, err)
	return ds
}

func TestNewDataset_Validation(t *testing.T) {
	tests := []struct {
		name string
		cols []string
		rows []Row
	}{
		{"empty column name", []string{"a", ""}, nil},
		{"duplicate column", []string{"a", "a"}, nil},
		{"ragged row", []string{"a", "b"}, []Row{{Number(1)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset(tt.cols, tt.rows)
			assert.Error(t, err)
		})
	}
}

func TestDataset_Columns(t *testing.T) {
	ds := sampleDataset(t)
	assert.Equal(t, 3, ds.NumRows())
	assert.Equal(t, 2, ds.NumColumns())
	assert.True(t, ds.HasColumn("score"))
	assert.False(t, ds.HasColumn("missing"))

	col, ok := ds.Column("score")
	require.True(t, ok)
	assert.Len(t, col, 3)
	assert.True(t, col[1].IsNull())

	_, ok = ds.Column("missing")
	assert.False(t, ok)
}

func TestDataset_UnindexedLiteral(t *testing.T) {
	ds := &Dataset{Columns: []string{"a"}, Rows: []Row{{Number(1)}}}
	_, ok := ds.ColumnIndex("a")
	assert.False(t, ok)
	assert.Nil(t, ds.index, "reads never build the index")

	indexed := ds.WithRows(ds.Rows)
	i, ok := indexed.ColumnIndex("a")
	require.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestDataset_CloneIsDeep(t *testing.T) {
	ds := sampleDataset(t)
	cp := ds.Clone()
	cp.Rows[0][1] = Number(99)
	cp.Columns[0] = "changed"

	assert.True(t, ds.Rows[0][1].Equal(Number(10)))
	assert.Equal(t, "id", ds.Columns[0])
}

func TestDataset_Filter(t *testing.T) {
	ds := sampleDataset(t)
	out := ds.Filter(func(_ int, r Row) bool { return !r[1].IsNull() })
	assert.Equal(t, 2, out.NumRows())
	assert.Equal(t, 3, ds.NumRows(), "input untouched")
	assert.True(t, out.HasColumn("score"))
}

func TestDataset_MissingCounts(t *testing.T) {
	assert.Equal(t, map[string]int{"id": 0, "score": 1}, sampleDataset(t).MissingCounts())
}

func TestDataset_Records(t *testing.T) {
	ds := sampleDataset(t)
	recs := ds.Records(2)
	require.Len(t, recs, 2)
	assert.True(t, recs[1]["id"].Equal(Number(2)))
	assert.True(t, recs[1]["score"].IsNull())

	assert.Len(t, ds.Records(0), 3)
	assert.Len(t, ds.Records(100), 3)
}

func TestDataset_JSON(t *testing.T) {
	ds := sampleDataset(t)
	data, err := json.Marshal(ds)
	require.NoError(t, err)
	assert.JSONEq(t, `{"columns":["id","score"],"rows":[[1,10],[2,null],[3,30]]}`, string(data))

	var back Dataset
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ds.Columns, back.Columns)
	assert.True(t, back.HasColumn("score"))

	assert.Error(t, json.Unmarshal([]byte(`{"columns":["a"],"rows":[[1,2]]}`), &back))
}
