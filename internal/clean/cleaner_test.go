package clean

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/datacleaner/internal/model"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return t0.Add(time.Duration(n) * time.Millisecond)
	}
}

func newCleaner() *Cleaner {
	return New(WithClock(fixedClock()))
}

func TestRun_AgePriceScenario(t *testing.T) {
	ds := mustDataset(t, []string{"age", "price"},
		model.Row{num(25), num(10)},
		model.Row{null, num(10)},
		model.Row{num(30), num(1000)},
	)
	cfg := model.CleaningConfig{Columns: map[string]model.ColumnConfig{
		"age":   {Missing: model.MissingMean},
		"price": {Outlier: model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: 1, Action: model.OutlierCap}},
	}}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, num(27.5), column(t, out, "age")[1])
	capped, _ := column(t, out, "price")[2].Float()
	assert.InDelta(t, 340+571.5767, capped, 1e-3)
	assert.Equal(t, num(10), column(t, out, "price")[0])

	assert.Equal(t, 3, rep.OriginalRows)
	assert.Equal(t, 3, rep.FinalRows)
	assert.Equal(t, 2, rep.FinalColumns)
	assert.Equal(t, 1, rep.MissingValuesBefore["age"])
	assert.Equal(t, 0, rep.MissingValuesAfter["age"])
	assert.Equal(t, model.MissingHandled{Method: model.MissingMean, Count: 1}, rep.MissingValuesHandled["age"])
	require.Contains(t, rep.OutliersHandled, "price")
	assert.Equal(t, 1, rep.OutliersHandled["price"].Count)
	assert.Equal(t, model.OutlierCap, rep.OutliersHandled["price"].Action)
	assert.False(t, rep.IsDomainDetected)
	assert.Contains(t, rep.Summary, "price: 1 outliers capped using zscore method")

	// Input snapshot untouched.
	assert.Equal(t, null, ds.Rows[1][0])
	assert.Equal(t, num(1000), ds.Rows[2][1])
}

func TestRun_IdempotentNoop(t *testing.T) {
	ds := mustDataset(t, []string{"a", "b"},
		model.Row{num(1), null},
		model.Row{num(1), null},
		model.Row{num(900), str("x")},
	)
	cfg := model.CleaningConfig{Columns: map[string]model.ColumnConfig{
		"a": {Missing: model.MissingNone, Outlier: model.OutlierSpec{Enabled: false, Method: model.OutlierZScore, Action: model.OutlierCap}},
		"b": {Missing: model.MissingNone},
	}}

	c := newCleaner()
	out1, rep1, err := c.Run(ds, cfg, RunOptions{})
	require.NoError(t, err)
	out2, rep2, err := c.Run(out1, cfg, RunOptions{})
	require.NoError(t, err)

	assert.Equal(t, ds.Rows, out1.Rows)
	assert.Equal(t, out1.Rows, out2.Rows)
	for _, rep := range []*model.CleaningReport{rep1, rep2} {
		assert.Equal(t, 0, rep.DuplicatesRemoved)
		assert.Empty(t, rep.OutliersHandled)
		for _, e := range rep.AuditLog {
			assert.Equal(t, 0, e.Affected(), e.Operation)
		}
		assert.Equal(t, rep.MissingValuesBefore, rep.MissingValuesAfter)
	}
}

func TestRun_AllDuplicates(t *testing.T) {
	rows := make([]model.Row, 5)
	for i := range rows {
		rows[i] = model.Row{num(1), str("same"), null}
	}
	ds := mustDataset(t, []string{"a", "b", "c"}, rows...)

	out, rep, err := newCleaner().Run(ds, model.CleaningConfig{RemoveDuplicates: true}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, 1, rep.FinalRows)
	assert.Equal(t, 4, rep.DuplicatesRemoved)
	assert.Zero(t, CountDuplicates(out))

	_, again, err := newCleaner().Run(out, model.CleaningConfig{RemoveDuplicates: true}, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.DuplicatesRemoved)
}

func TestRun_EmptyDataset(t *testing.T) {
	ds := mustDataset(t, []string{"age", "price"})
	cfg := model.CleaningConfig{
		Columns: map[string]model.ColumnConfig{
			"age":   {Missing: model.MissingMean},
			"price": {Missing: model.MissingDrop, Outlier: model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: 1.5, Action: model.OutlierRemove}},
		},
		RemoveDuplicates: true,
	}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.NumRows())
	assert.Equal(t, 0, rep.FinalRows)
	assert.Equal(t, 0, rep.DuplicatesRemoved)
	assert.Equal(t, 0, rep.TotalOutliers())
	for _, e := range rep.AuditLog {
		assert.Equal(t, 0, e.Affected(), e.Operation)
	}
}

func TestRun_DropBeforeFill(t *testing.T) {
	ds := mustDataset(t, []string{"a", "b"},
		model.Row{null, num(100)},
		model.Row{num(1), null},
		model.Row{num(2), num(2)},
		model.Row{num(3), num(4)},
	)
	cfg := model.CleaningConfig{Columns: map[string]model.ColumnConfig{
		"a": {Missing: model.MissingDrop},
		"b": {Missing: model.MissingMean},
	}}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.NoError(t, err)
	require.Equal(t, 3, out.NumRows())
	// Mean over surviving rows (2, 4), not (100, 2, 4).
	assert.Equal(t, num(3), column(t, out, "b")[0])
	assert.Equal(t, model.MissingHandled{Method: model.MissingDrop, Count: 1}, rep.MissingValuesHandled["a"])

	ops := make([]string, len(rep.AuditLog))
	for i, e := range rep.AuditLog {
		ops[i] = e.Operation
	}
	assert.Equal(t, []string{OpMissingDrop, OpMissingFill}, ops)
}

func TestRun_RemoveOutliersThenFillSeesFinalOrder(t *testing.T) {
	ds := mustDataset(t, []string{"x", "y"},
		model.Row{num(1), num(1)},
		model.Row{num(1), num(1)},
		model.Row{num(1), num(1)},
		model.Row{num(1), num(1)},
		model.Row{num(50), num(1)},
	)
	cfg := model.CleaningConfig{
		Columns: map[string]model.ColumnConfig{
			"x": {Outlier: model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: 1.5, Action: model.OutlierRemove}},
		},
		RemoveDuplicates: true,
	}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.NumRows())
	assert.Equal(t, 1, rep.OutliersHandled["x"].Count)
	assert.Equal(t, 3, rep.DuplicatesRemoved)
	assert.LessOrEqual(t, rep.FinalRows, rep.OriginalRows)
}

func TestRun_CoercesAfterFill(t *testing.T) {
	ds := mustDataset(t, []string{"quantity"}, model.Row{num(1)}, model.Row{num(2)}, model.Row{null})
	cfg := model.CleaningConfig{Columns: map[string]model.ColumnConfig{
		"quantity": {Missing: model.MissingMean, Coerce: model.CoerceInteger},
	}}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{DomainName: "e-commerce"})
	require.NoError(t, err)
	assert.Equal(t, num(2), column(t, out, "quantity")[2])
	assert.True(t, rep.IsDomainDetected)
	assert.Equal(t, "e-commerce", rep.DomainName)
	assert.Equal(t, OpCoerceInteger, rep.AuditLog[len(rep.AuditLog)-1].Operation)
}

func TestRun_FailureCarriesStateAndAudit(t *testing.T) {
	ds := mustDataset(t, []string{"age", "city"},
		model.Row{num(1), str("a")},
		model.Row{null, null},
	)
	cfg := model.CleaningConfig{Columns: map[string]model.ColumnConfig{
		"age":  {Missing: model.MissingMean},
		"city": {Missing: model.MissingMedian},
	}}

	out, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.Error(t, err)
	assert.Nil(t, out)
	assert.Nil(t, rep)

	var f *RunFailure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, model.StateMissingValues, f.State)
	assert.True(t, model.IsKind(err, model.ErrUnsupportedType))
	require.Len(t, f.AuditLog, 1)
	assert.Equal(t, "age", f.AuditLog[0].Column)

	rec := f.Record()
	assert.Equal(t, model.ErrUnsupportedType, rec.Kind)
	assert.Equal(t, "city", rec.Column)
}

func TestRun_ConfigurationErrors(t *testing.T) {
	ds := mustDataset(t, []string{"a"}, model.Row{num(1)})
	tests := []struct {
		name string
		cfg  model.CleaningConfig
	}{
		{"unknown column", model.CleaningConfig{Columns: map[string]model.ColumnConfig{"b": {Missing: model.MissingMean}}}},
		{"unknown strategy", model.CleaningConfig{Columns: map[string]model.ColumnConfig{"a": {Missing: "interpolate"}}}},
		{"negative threshold", model.CleaningConfig{Columns: map[string]model.ColumnConfig{
			"a": {Outlier: model.OutlierSpec{Enabled: true, Method: model.OutlierZScore, Threshold: -1, Action: model.OutlierCap}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := newCleaner().Run(ds, tt.cfg, RunOptions{})
			var f *RunFailure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, model.StateProfiling, f.State)
			assert.True(t, model.IsKind(err, model.ErrConfiguration))
			assert.Empty(t, f.AuditLog)
		})
	}
}

func TestRun_ReportRoundTripsThroughJSON(t *testing.T) {
	ds := mustDataset(t, []string{"a"}, model.Row{num(1)}, model.Row{null}, model.Row{num(1)})
	cfg := model.CleaningConfig{
		Columns:          map[string]model.ColumnConfig{"a": {Missing: model.MissingMode}},
		RemoveDuplicates: true,
	}
	_, rep, err := newCleaner().Run(ds, cfg, RunOptions{})
	require.NoError(t, err)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	var back model.CleaningReport
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rep.FinalRows, back.FinalRows)
	assert.Equal(t, rep.DuplicatesRemoved, back.DuplicatesRemoved)
	assert.Equal(t, rep.MissingValuesHandled, back.MissingValuesHandled)
	assert.Len(t, back.AuditLog, len(rep.AuditLog))
	assert.Equal(t, rep.Summary, back.Summary)
}
