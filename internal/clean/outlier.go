package clean

import (
	"math"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

// Bounds are the inclusive limits outside which a value is an outlier.
type Bounds struct {
	Lower float64
	Upper float64
}

// Contains reports whether f lies within the bounds.
func (b Bounds) Contains(f float64) bool {
	return f >= b.Lower && f <= b.Upper
}

// OutlierBounds computes the detection bounds for spec from pre-remediation
// statistics. ok is false when nothing can be flagged (zero spread under
// z-score).
func OutlierBounds(spec model.OutlierSpec, stats profile.NumericStats) (b Bounds, ok bool) {
	switch spec.Method {
	case model.OutlierZScore:
		if stats.Std == 0 {
			return Bounds{Lower: stats.Mean, Upper: stats.Mean}, false
		}
		return Bounds{
			Lower: stats.Mean - spec.Threshold*stats.Std,
			Upper: stats.Mean + spec.Threshold*stats.Std,
		}, true
	case model.OutlierIQR:
		iqr := stats.IQR()
		return Bounds{
			Lower: stats.Q1 - spec.Threshold*iqr,
			Upper: stats.Q3 + spec.Threshold*iqr,
		}, true
	}
	return Bounds{}, false
}

// isOutlier applies the method's own rule. For z-score that is
// |v-mean| > t*std, the same product the bounds are built from.
func isOutlier(f float64, spec model.OutlierSpec, stats profile.NumericStats, b Bounds) bool {
	if spec.Method == model.OutlierZScore {
		return math.Abs(f-stats.Mean) > spec.Threshold*stats.Std
	}
	return !b.Contains(f)
}

// capValue moves an outlier to the bound on its side. Z-score compares with
// the mean; IQR with the fences.
func capValue(f float64, spec model.OutlierSpec, stats profile.NumericStats, b Bounds) float64 {
	if spec.Method == model.OutlierZScore {
		if f > stats.Mean {
			return b.Upper
		}
		return b.Lower
	}
	if f < b.Lower {
		return b.Lower
	}
	return b.Upper
}

// ResolveOutliers detects outliers in column using statistics from prof,
// which must be computed on ds, then removes or caps them. Missing cells are
// never flagged.
func ResolveOutliers(ds *model.Dataset, column string, spec model.OutlierSpec, prof profile.Column) (*model.Dataset, model.AuditEntry, error) {
	j, ok := ds.ColumnIndex(column)
	if !ok {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(spec.Method), "column not present in dataset")
	}
	if !spec.Enabled {
		return ds, entry(OpOutlierSkip, column, 0, nil), nil
	}
	if !spec.Method.Valid() {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(spec.Method), "unknown outlier method")
	}
	if !spec.Action.Valid() {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(spec.Action), "unknown outlier action")
	}
	if !(spec.Threshold > 0) {
		return nil, model.AuditEntry{}, model.ConfigError(column, string(spec.Method), "outlier threshold must be > 0, got %v", spec.Threshold)
	}

	op := OpOutlierCap
	if spec.Action == model.OutlierRemove {
		op = OpOutlierRemove
	}
	details := map[string]any{
		"method":    string(spec.Method),
		"threshold": spec.Threshold,
		"action":    string(spec.Action),
	}
	if ds.NumRows() == 0 {
		return ds, entry(op, column, 0, details), nil
	}
	if prof.Empty() {
		return nil, model.AuditEntry{}, model.InsufficientDataError(column, string(spec.Method), "column has no non-null values")
	}
	if !prof.IsNumeric() {
		return nil, model.AuditEntry{}, model.UnsupportedTypeError(column, string(spec.Method), "column is %s, not numeric", prof.Type)
	}

	stats := *prof.Numeric
	b, detectable := OutlierBounds(spec, stats)
	details["lower_bound"] = b.Lower
	details["upper_bound"] = b.Upper
	if spec.Method == model.OutlierZScore {
		details["mean"] = stats.Mean
		details["std"] = stats.Std
	} else {
		details["q1"] = stats.Q1
		details["q3"] = stats.Q3
	}
	if !detectable {
		return ds, entry(op, column, 0, details), nil
	}

	flagged := func(r model.Row) (float64, bool) {
		f, isNum := r[j].Float()
		if !isNum {
			return 0, false
		}
		return f, isOutlier(f, spec, stats, b)
	}

	count := 0
	if spec.Action == model.OutlierRemove {
		out := ds.Filter(func(_ int, r model.Row) bool {
			if _, hit := flagged(r); hit {
				count++
				return false
			}
			return true
		})
		return out, entry(op, column, count, details), nil
	}

	rows := make([]model.Row, len(ds.Rows))
	for i, r := range ds.Rows {
		f, hit := flagged(r)
		if !hit {
			rows[i] = r
			continue
		}
		cp := append(model.Row(nil), r...)
		cp[j] = model.Number(capValue(f, spec, stats, b))
		rows[i] = cp
		count++
	}
	return ds.WithRows(rows), entry(op, column, count, details), nil
}
