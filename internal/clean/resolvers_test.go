package clean

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

func mustDataset(t *testing.T, cols []string, rows ...model.Row) *model.Dataset {
	t.Helper()
	ds, err := model.NewDataset(cols, rows)
	require.NoError(t, err)
	return ds
}

func num(f float64) model.Value { return model.Number(f) }
func str(s string) model.Value  { return model.String(s) }

var null = model.Null()

func column(t *testing.T, ds *model.Dataset, name string) []model.Value {
	t.Helper()
	vals, ok := ds.Column(name)
	require.True(t, ok)
	return vals
}

func TestDropMissing_AttributesToFirstColumn(t *testing.T) {
	ds := mustDataset(t, []string{"a", "b"},
		model.Row{null, null},
		model.Row{num(1), null},
		model.Row{num(2), num(2)},
		model.Row{null, num(3)},
	)

	out, entries, err := DropMissing(ds, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
	require.Len(t, entries, 2)

	assert.Equal(t, "a", entries[0].Column)
	assert.Equal(t, 2, entries[0].Affected())
	assert.Equal(t, 2, entries[0].Details["missing_cells"])
	assert.Equal(t, "b", entries[1].Column)
	assert.Equal(t, 1, entries[1].Affected())
	assert.Equal(t, 2, entries[1].Details["missing_cells"])

	// Input untouched.
	assert.Equal(t, 4, ds.NumRows())
}

func TestDropMissing_CanEmptyDataset(t *testing.T) {
	ds := mustDataset(t, []string{"a"}, model.Row{null}, model.Row{null})

	out, entries, err := DropMissing(ds, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, []string{"a"}, out.Columns)
	assert.Equal(t, 2, entries[0].Affected())
}

func TestDropMissing_UnknownColumn(t *testing.T) {
	ds := mustDataset(t, []string{"a"}, model.Row{num(1)})

	_, _, err := DropMissing(ds, []string{"zzz"})
	assert.True(t, model.IsKind(err, model.ErrConfiguration))
}

func TestResolveMissing_Fills(t *testing.T) {
	ds := mustDataset(t, []string{"x"},
		model.Row{num(1)}, model.Row{null}, model.Row{num(3)}, model.Row{num(3)}, model.Row{null},
	)
	tests := []struct {
		strategy model.MissingStrategy
		want     float64
	}{
		{model.MissingMean, 7.0 / 3.0},
		{model.MissingMedian, 3},
		{model.MissingMode, 3},
	}
	for _, tt := range tests {
		t.Run(string(tt.strategy), func(t *testing.T) {
			out, e, err := ResolveMissing(ds, "x", tt.strategy, profile.ColumnOf(ds, "x"))
			require.NoError(t, err)
			assert.Equal(t, OpMissingFill, e.Operation)
			assert.Equal(t, 2, e.Affected())
			assert.Equal(t, 0, out.MissingCounts()["x"])

			vals := column(t, out, "x")
			got, ok := vals[1].Float()
			require.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-12)

			// Original snapshot keeps its nulls.
			assert.Equal(t, 2, ds.MissingCounts()["x"])
		})
	}
}

func TestResolveMissing_ModeOnStrings(t *testing.T) {
	ds := mustDataset(t, []string{"city"},
		model.Row{str("Austin")}, model.Row{null}, model.Row{str("Dallas")}, model.Row{str("Austin")},
	)

	out, e, err := ResolveMissing(ds, "city", model.MissingMode, profile.ColumnOf(ds, "city"))
	require.NoError(t, err)
	assert.Equal(t, 1, e.Affected())
	assert.Equal(t, str("Austin"), column(t, out, "city")[1])
}

func TestResolveMissing_None(t *testing.T) {
	ds := mustDataset(t, []string{"x"}, model.Row{null})

	out, e, err := ResolveMissing(ds, "x", model.MissingNone, profile.ColumnOf(ds, "x"))
	require.NoError(t, err)
	assert.Same(t, ds, out)
	assert.Equal(t, OpMissingNone, e.Operation)
	require.NotNil(t, e.RowsAffected)
	assert.Equal(t, 0, *e.RowsAffected)
}

func TestResolveMissing_Errors(t *testing.T) {
	strs := mustDataset(t, []string{"c"}, model.Row{str("a")}, model.Row{null})
	nulls := mustDataset(t, []string{"c"}, model.Row{null}, model.Row{null})
	full := mustDataset(t, []string{"c"}, model.Row{str("a")}, model.Row{str("b")})

	tests := []struct {
		name     string
		ds       *model.Dataset
		column   string
		strategy model.MissingStrategy
		kind     model.ErrorKind
	}{
		{"mean on strings", strs, "c", model.MissingMean, model.ErrUnsupportedType},
		{"median on strings", strs, "c", model.MissingMedian, model.ErrUnsupportedType},
		{"mean on strings without missing cells", full, "c", model.MissingMean, model.ErrUnsupportedType},
		{"mean on all-null", nulls, "c", model.MissingMean, model.ErrInsufficientData},
		{"mode on all-null", nulls, "c", model.MissingMode, model.ErrInsufficientData},
		{"unknown column", strs, "nope", model.MissingMode, model.ErrConfiguration},
		{"unknown strategy", strs, "c", model.MissingStrategy("interpolate"), model.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ResolveMissing(tt.ds, tt.column, tt.strategy, profile.ColumnOf(tt.ds, tt.column))
			require.Error(t, err)
			assert.True(t, model.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestResolveMissing_ZeroRowsPassThrough(t *testing.T) {
	ds := mustDataset(t, []string{"c"})

	out, e, err := ResolveMissing(ds, "c", model.MissingMean, profile.ColumnOf(ds, "c"))
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, 0, e.Affected())
}

func TestCoerceInteger(t *testing.T) {
	ds := mustDataset(t, []string{"qty"}, model.Row{num(2.5)}, model.Row{num(3)}, model.Row{null}, model.Row{num(-1.5)})

	out, e, err := CoerceInteger(ds, "qty", profile.ColumnOf(ds, "qty"))
	require.NoError(t, err)
	assert.Equal(t, 2, e.Affected())
	assert.Equal(t, []model.Value{num(3), num(3), null, num(-2)}, column(t, out, "qty"))

	strs := mustDataset(t, []string{"c"}, model.Row{str("x")})
	_, _, err = CoerceInteger(strs, "c", profile.ColumnOf(strs, "c"))
	assert.True(t, model.IsKind(err, model.ErrUnsupportedType))
}

func TestResolveOutliers_ZScoreCap(t *testing.T) {
	ds := mustDataset(t, []string{"price"}, model.Row{num(10)}, model.Row{num(10)}, model.Row{num(1000)})
	prof := profile.ColumnOf(ds, "price")
	spec := model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: 1, Action: model.OutlierCap}

	out, e, err := ResolveOutliers(ds, "price", spec, prof)
	require.NoError(t, err)
	assert.Equal(t, OpOutlierCap, e.Operation)
	assert.Equal(t, 1, e.Affected())
	assert.Equal(t, 3, out.NumRows())

	mean, std := prof.Numeric.Mean, prof.Numeric.Std
	for _, v := range column(t, out, "price") {
		f, _ := v.Float()
		assert.LessOrEqual(t, abs(f-mean), 1*std+1e-9)
	}
	capped, _ := column(t, out, "price")[2].Float()
	assert.InDelta(t, mean+std, capped, 1e-9)
	assert.InDelta(t, 911.5768, capped, 1e-3)
}

func TestIsOutlier_ZScoreAgreesWithBounds(t *testing.T) {
	stats := profile.NumericStats{Mean: 0, Std: 0.1}
	spec := model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: 3, Action: model.OutlierCap}
	b, ok := OutlierBounds(spec, stats)
	require.True(t, ok)

	tests := []struct {
		name string
		v    float64
		want bool
	}{
		{"upper bound", b.Upper, false},
		{"lower bound", b.Lower, false},
		{"just above", math.Nextafter(b.Upper, math.Inf(1)), true},
		{"just below", math.Nextafter(b.Lower, math.Inf(-1)), true},
		{"mean", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isOutlier(tt.v, spec, stats, b)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, !b.Contains(tt.v), got)
		})
	}
}

func TestResolveOutliers_ZScoreConstantColumnFlagsNothing(t *testing.T) {
	ds := mustDataset(t, []string{"x"}, model.Row{num(5)}, model.Row{num(5)}, model.Row{num(5)})
	spec := model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: 0.1, Action: model.OutlierRemove}

	out, e, err := ResolveOutliers(ds, "x", spec, profile.ColumnOf(ds, "x"))
	require.NoError(t, err)
	assert.Equal(t, 0, e.Affected())
	assert.Equal(t, 3, out.NumRows())
}

func TestResolveOutliers_IQR(t *testing.T) {
	rows := []model.Row{}
	for _, f := range []float64{1, 2, 3, 4, 5, 6, 7, 8, 100, -50} {
		rows = append(rows, model.Row{num(f)})
	}
	rows = append(rows, model.Row{null})
	ds := mustDataset(t, []string{"x"}, rows...)
	prof := profile.ColumnOf(ds, "x")
	b, ok := OutlierBounds(model.OutlierSpec{Method: model.OutlierIQR, Threshold: 1.5}, *prof.Numeric)
	require.True(t, ok)

	t.Run("remove", func(t *testing.T) {
		spec := model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: 1.5, Action: model.OutlierRemove}
		out, e, err := ResolveOutliers(ds, "x", spec, prof)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Affected())
		assert.Equal(t, 9, out.NumRows(), "null row is never flagged")
	})

	t.Run("cap to nearer fence", func(t *testing.T) {
		spec := model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: 1.5, Action: model.OutlierCap}
		out, e, err := ResolveOutliers(ds, "x", spec, prof)
		require.NoError(t, err)
		assert.Equal(t, 2, e.Affected())
		vals := column(t, out, "x")
		hi, _ := vals[8].Float()
		lo, _ := vals[9].Float()
		assert.Equal(t, b.Upper, hi)
		assert.Equal(t, b.Lower, lo)
		assert.Equal(t, b.Upper, e.Details["upper_bound"])
	})
}

func TestResolveOutliers_DisabledIsNoop(t *testing.T) {
	ds := mustDataset(t, []string{"c"}, model.Row{str("x")})

	out, e, err := ResolveOutliers(ds, "c", model.OutlierSpec{Enabled: false, Method: model.OutlierZScore}, profile.ColumnOf(ds, "c"))
	require.NoError(t, err)
	assert.Same(t, ds, out)
	assert.Equal(t, OpOutlierSkip, e.Operation)
	assert.Equal(t, 0, e.Affected())
}

func TestResolveOutliers_Errors(t *testing.T) {
	strs := mustDataset(t, []string{"c"}, model.Row{str("x")})
	nulls := mustDataset(t, []string{"c"}, model.Row{null})
	nums := mustDataset(t, []string{"c"}, model.Row{num(1)})
	on := model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: 3, Action: model.OutlierCap}

	tests := []struct {
		name string
		ds   *model.Dataset
		spec model.OutlierSpec
		kind model.ErrorKind
	}{
		{"non-numeric", strs, on, model.ErrUnsupportedType},
		{"all null", nulls, on, model.ErrInsufficientData},
		{"zero threshold", nums, model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Action: model.OutlierCap}, model.ErrConfiguration},
		{"bad method", nums, model.OutlierSpec{Enabled: true, Method: "mad", Threshold: 1, Action: model.OutlierCap}, model.ErrConfiguration},
		{"bad action", nums, model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: 1, Action: "flag"}, model.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ResolveOutliers(tt.ds, "c", tt.spec, profile.ColumnOf(tt.ds, "c"))
			assert.True(t, model.IsKind(err, tt.kind), "got %v", err)
		})
	}
}

func TestRemoveDuplicates(t *testing.T) {
	ds := mustDataset(t, []string{"a", "b"},
		model.Row{num(1), null},
		model.Row{num(1), null},
		model.Row{num(1), str("")},
		model.Row{num(2), null},
		model.Row{num(1), null},
	)

	out, e := RemoveDuplicates(ds)
	assert.Equal(t, 2, e.Affected())
	assert.Equal(t, 3, out.NumRows())
	assert.Equal(t, ds.Rows[0], out.Rows[0])
	assert.Equal(t, ds.Rows[2], out.Rows[1])

	again, e2 := RemoveDuplicates(out)
	assert.Equal(t, 0, e2.Affected())
	assert.Equal(t, 3, again.NumRows())
	assert.Equal(t, 2, CountDuplicates(ds))
}

func TestAuditLog_OrderAndImmutability(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	ticks := []time.Time{base.Add(time.Second), base}
	i := 0
	log := NewAuditLog(func() time.Time { t := ticks[i]; i++; return t })

	log.Append(entry(OpMissingFill, "a", 1, map[string]any{"strategy": "mean"}))
	log.Append(entry(OpDuplicates, "", 0, nil))

	got := log.Entries()
	require.Len(t, got, 2)
	assert.False(t, got[1].Timestamp.Before(got[0].Timestamp))

	got[0].Details["strategy"] = "changed"
	*got[0].RowsAffected = 99
	again := log.Entries()
	assert.Equal(t, "mean", again[0].Details["strategy"])
	assert.Equal(t, 1, again[0].Affected())
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
