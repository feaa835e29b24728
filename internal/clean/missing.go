package clean

import (
	"math"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

// DropMissing removes, in one pass, every row with a missing value in any of
// the given columns. Each removed row is attributed to the first listed
// column that is missing in it, so the per-column counts sum to the number of
// rows removed. One entry is returned per column, in the order given.
func DropMissing(ds *model.Dataset, columns []string) (*model.Dataset, []model.AuditEntry, error) {
	idx := make([]int, len(columns))
	for i, c := range columns {
		j, ok := ds.ColumnIndex(c)
		if !ok {
			return nil, nil, model.ConfigError(c, string(model.MissingDrop), "column not present in dataset")
		}
		idx[i] = j
	}

	attributed := make([]int, len(columns))
	missingCells := make([]int, len(columns))
	out := ds.Filter(func(_ int, r model.Row) bool {
		keep := true
		for i, j := range idx {
			if !r[j].IsNull() {
				continue
			}
			missingCells[i]++
			if keep {
				attributed[i]++
				keep = false
			}
		}
		return keep
	})

	entries := make([]model.AuditEntry, len(columns))
	for i, c := range columns {
		entries[i] = entry(OpMissingDrop, c, attributed[i], map[string]any{
			"strategy":      string(model.MissingDrop),
			"missing_cells": missingCells[i],
		})
	}
	return out, entries, nil
}

// ResolveMissing applies one missing-value strategy to one column. prof must
// describe column in ds. Fills never change the row count; drop delegates to
// DropMissing.
func ResolveMissing(ds *model.Dataset, column string, strategy model.MissingStrategy, prof profile.Column) (*model.Dataset, model.AuditEntry, error) {
	j, ok := ds.ColumnIndex(column)
	if !ok {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(strategy), "column not present in dataset")
	}
	if !strategy.Valid() {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(strategy), "unknown missing value strategy")
	}

	switch strategy {
	case model.MissingNone:
		return ds, entry(OpMissingNone, column, 0, map[string]any{"strategy": string(strategy)}), nil
	case model.MissingDrop:
		out, entries, err := DropMissing(ds, []string{column})
		if err != nil {
			return nil, model.AuditEntry{}, err
		}
		return out, entries[0], nil
	}

	if ds.NumRows() == 0 {
		return ds, entry(OpMissingFill, column, 0, map[string]any{"strategy": string(strategy)}), nil
	}
	fill, err := fillValue(column, strategy, prof)
	if err != nil {
		return nil, model.AuditEntry{}, err
	}

	details := map[string]any{"strategy": string(strategy), "fill_value": fill.Any()}
	if prof.Missing == 0 {
		return ds, entry(OpMissingFill, column, 0, details), nil
	}

	rows := make([]model.Row, len(ds.Rows))
	filled := 0
	for i, r := range ds.Rows {
		if !r[j].IsNull() {
			rows[i] = r
			continue
		}
		cp := append(model.Row(nil), r...)
		cp[j] = fill
		rows[i] = cp
		filled++
	}
	return ds.WithRows(rows), entry(OpMissingFill, column, filled, details), nil
}

func fillValue(column string, strategy model.MissingStrategy, prof profile.Column) (model.Value, error) {
	if prof.Empty() {
		return model.Value{}, model.InsufficientDataError(column, string(strategy), "column has no non-null values")
	}
	switch strategy {
	case model.MissingMean, model.MissingMedian:
		if !prof.IsNumeric() {
			return model.Value{}, model.UnsupportedTypeError(column, string(strategy), "column is %s, not numeric", prof.Type)
		}
		if strategy == model.MissingMean {
			return model.Number(prof.Numeric.Mean), nil
		}
		return model.Number(prof.Numeric.Median), nil
	case model.MissingMode:
		if !prof.HasMode {
			return model.Value{}, model.InsufficientDataError(column, string(strategy), "mode is undefined")
		}
		return prof.Mode, nil
	}
	return model.Value{}, model.ConfigError(column, string(strategy), "strategy does not fill")
}

// CoerceInteger rounds every numeric value in column to the nearest integer,
// half away from zero. Null cells are left alone.
func CoerceInteger(ds *model.Dataset, column string, prof profile.Column) (*model.Dataset, model.AuditEntry, error) {
	j, ok := ds.ColumnIndex(column)
	if !ok {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(model.CoerceInteger), "column not present in dataset")
	}
	if !prof.Empty() && !prof.IsNumeric() {
		return nil, model.AuditEntry{}, model.UnsupportedTypeError(column, string(model.CoerceInteger), "column is %s, not numeric", prof.Type)
	}

	rows := make([]model.Row, len(ds.Rows))
	changed := 0
	for i, r := range ds.Rows {
		f, isNum := r[j].Float()
		if !isNum || math.Trunc(f) == f {
			rows[i] = r
			continue
		}
		cp := append(model.Row(nil), r...)
		cp[j] = model.Number(math.Round(f))
		rows[i] = cp
		changed++
	}
	return ds.WithRows(rows), entry(OpCoerceInteger, column, changed, nil), nil
}
