// Package clean implements the cleaning engine: the missing-value, outlier
// and duplicate resolvers and the orchestrator that sequences them into one
// audited run.
package clean

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

// RunOptions carries caller context that ends up in the report.
type RunOptions struct {
	// DomainName is the domain the classifier detected while the configuration
	// was being built; empty when none was detected.
	DomainName string
}

// RunFailure is returned when a run aborts. It names the state the pipeline
// was in and carries the audit entries accumulated up to the failure. No
// cleaned dataset accompanies it.
type RunFailure struct {
	State    model.RunState
	Err      error
	AuditLog []model.AuditEntry
}

func (f *RunFailure) Error() string {
	return fmt.Sprintf("clean: run failed during %s: %v", f.State, f.Err)
}

func (f *RunFailure) Unwrap() error { return f.Err }

// Record converts the failure into its persisted form.
func (f *RunFailure) Record() *model.FailureRecord {
	rec := &model.FailureRecord{
		State:    f.State,
		Message:  f.Err.Error(),
		AuditLog: f.AuditLog,
	}
	if kind, ok := model.KindOf(f.Err); ok {
		rec.Kind = kind
	}
	var ce *model.CleaningError
	if errors.As(f.Err, &ce) {
		rec.Column = ce.Column
	}
	return rec
}

// Cleaner runs the fixed cleaning pipeline. It holds no per-run state and is
// safe for concurrent use by independent runs.
type Cleaner struct {
	now func() time.Time
	log *zap.Logger
}

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithClock sets the clock used to stamp audit entries.
func WithClock(now func() time.Time) Option {
	return func(c *Cleaner) { c.now = now }
}

// WithLogger sets the logger; the global zap logger is used otherwise.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cleaner) { c.log = l }
}

// New creates a Cleaner.
func New(opts ...Option) *Cleaner {
	c := &Cleaner{now: time.Now}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Cleaner) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return zap.L()
}

// run is the per-invocation state owned by one Run call.
type run struct {
	state  model.RunState
	ds     *model.Dataset
	cfg    model.CleaningConfig
	audit  *AuditLog
	report *model.CleaningReport
	log    *zap.Logger
}

func (r *run) enter(s model.RunState) {
	r.state = s
	r.log.Debug("clean: state", zap.String("state", string(s)), zap.Int("rows", r.ds.NumRows()))
}

// Run cleans ds according to cfg. ds is never modified. On success it returns
// the cleaned dataset and the report; on failure it returns a *RunFailure.
//
// Order: profile, batched drop, re-profile, fills and coercions, outliers per
// column (each re-profiled on the current snapshot), duplicates, report.
// Columns are processed in dataset order.
func (c *Cleaner) Run(ds *model.Dataset, cfg model.CleaningConfig, opts RunOptions) (*model.Dataset, *model.CleaningReport, error) {
	r := &run{
		state: model.StateIdle,
		ds:    ds,
		cfg:   cfg,
		audit: NewAuditLog(c.now),
		log:   c.logger(),
	}

	steps := []struct {
		state model.RunState
		fn    func(*run) error
	}{
		{model.StateProfiling, (*run).profiling},
		{model.StateMissingValues, (*run).missingValues},
		{model.StateOutliers, (*run).outliers},
		{model.StateDuplicates, (*run).duplicates},
		{model.StateReporting, func(r *run) error { return r.reporting(opts) }},
	}
	for _, s := range steps {
		r.enter(s.state)
		if err := s.fn(r); err != nil {
			return nil, nil, c.fail(r, err)
		}
	}
	r.enter(model.StateDone)

	r.log.Info("clean: run complete",
		zap.Int("original_rows", r.report.OriginalRows),
		zap.Int("final_rows", r.report.FinalRows),
		zap.Int("duplicates_removed", r.report.DuplicatesRemoved),
		zap.Int("outliers", r.report.TotalOutliers()),
		zap.Int("audit_entries", len(r.report.AuditLog)),
	)
	return r.ds, r.report, nil
}

func (c *Cleaner) fail(r *run, err error) error {
	failed := r.state
	r.enter(model.StateFailed)
	f := &RunFailure{State: failed, Err: err, AuditLog: r.audit.Entries()}

	fields := []zap.Field{zap.String("state", string(failed)), zap.Error(err)}
	if model.IsKind(err, model.ErrInternalInvariant) {
		r.log.Error("clean: internal invariant violated", fields...)
	} else {
		r.log.Warn("clean: run failed", fields...)
	}
	return f
}

func (r *run) profiling() error {
	if err := r.cfg.ValidateFor(r.ds); err != nil {
		return err
	}
	profiles := profile.Dataset(r.ds)
	before := make(map[string]int, len(profiles))
	for name, p := range profiles {
		before[name] = p.Missing
	}
	r.report = &model.CleaningReport{
		OriginalRows:         r.ds.NumRows(),
		OriginalColumns:      r.ds.NumColumns(),
		MissingValuesBefore:  before,
		MissingValuesHandled: make(map[string]model.MissingHandled),
		OutliersHandled:      make(map[string]model.OutlierHandled),
	}
	return nil
}

// configured returns the configured columns in dataset order.
func (r *run) configured(pred func(model.ColumnConfig) bool) []string {
	var out []string
	for _, name := range r.ds.Columns {
		if _, ok := r.cfg.Columns[name]; ok && pred(r.cfg.Column(name)) {
			out = append(out, name)
		}
	}
	return out
}

func (r *run) missingValues() error {
	drops := r.configured(func(cc model.ColumnConfig) bool { return cc.Missing == model.MissingDrop })
	if len(drops) > 0 {
		before := r.ds.NumRows()
		out, entries, err := DropMissing(r.ds, drops)
		if err != nil {
			return err
		}
		removed := 0
		for i, e := range entries {
			removed += e.Affected()
			r.record(e)
			r.report.MissingValuesHandled[drops[i]] = model.MissingHandled{
				Method: model.MissingDrop,
				Count:  intDetail(e.Details, "missing_cells"),
			}
		}
		if err := checkRows(before, out, removed, OpMissingDrop); err != nil {
			return err
		}
		if err := checkColumns(r.ds, out); err != nil {
			return err
		}
		r.ds = out
	}

	// Fills all see the post-drop snapshot; filling one column never changes
	// another column's statistics.
	profiles := profile.Dataset(r.ds)
	for _, name := range r.configured(func(cc model.ColumnConfig) bool { return cc.Missing != model.MissingDrop }) {
		cc := r.cfg.Column(name)
		out, e, err := ResolveMissing(r.ds, name, cc.Missing, profiles[name])
		if err != nil {
			return err
		}
		if err := checkRows(r.ds.NumRows(), out, 0, e.Operation); err != nil {
			return err
		}
		r.record(e)
		r.report.MissingValuesHandled[name] = model.MissingHandled{Method: cc.Missing, Count: e.Affected()}
		r.ds = out
	}

	for _, name := range r.configured(func(cc model.ColumnConfig) bool { return cc.Coerce == model.CoerceInteger }) {
		out, e, err := CoerceInteger(r.ds, name, profile.ColumnOf(r.ds, name))
		if err != nil {
			return err
		}
		if err := checkRows(r.ds.NumRows(), out, 0, e.Operation); err != nil {
			return err
		}
		r.record(e)
		r.ds = out
	}
	return nil
}

func (r *run) outliers() error {
	for _, name := range r.configured(func(cc model.ColumnConfig) bool { return !cc.Outlier.IsZero() }) {
		spec := r.cfg.Column(name).Outlier
		before := r.ds.NumRows()
		out, e, err := ResolveOutliers(r.ds, name, spec, profile.ColumnOf(r.ds, name))
		if err != nil {
			return err
		}
		removed := 0
		if spec.Enabled && spec.Action == model.OutlierRemove {
			removed = e.Affected()
		}
		if err := checkRows(before, out, removed, e.Operation); err != nil {
			return err
		}
		r.record(e)
		r.ds = out
		if !spec.Enabled {
			continue
		}
		h := model.OutlierHandled{
			Method:    spec.Method,
			Threshold: spec.Threshold,
			Count:     e.Affected(),
			Action:    spec.Action,
		}
		if lo, ok := floatDetail(e.Details, "lower_bound"); ok {
			h.Lower = &lo
		}
		if hi, ok := floatDetail(e.Details, "upper_bound"); ok {
			h.Upper = &hi
		}
		r.report.OutliersHandled[name] = h
	}
	return nil
}

func (r *run) duplicates() error {
	if !r.cfg.RemoveDuplicates {
		return nil
	}
	before := r.ds.NumRows()
	out, e := RemoveDuplicates(r.ds)
	if err := checkRows(before, out, e.Affected(), e.Operation); err != nil {
		return err
	}
	r.record(e)
	r.report.DuplicatesRemoved = e.Affected()
	r.ds = out
	return nil
}

func (r *run) reporting(opts RunOptions) error {
	rep := r.report
	rep.FinalRows = r.ds.NumRows()
	rep.FinalColumns = r.ds.NumColumns()
	if rep.FinalRows > rep.OriginalRows {
		return model.InvariantError("final rows %d exceed original rows %d", rep.FinalRows, rep.OriginalRows)
	}
	if rep.FinalColumns != rep.OriginalColumns {
		return model.InvariantError("column count changed from %d to %d", rep.OriginalColumns, rep.FinalColumns)
	}
	rep.MissingValuesAfter = r.ds.MissingCounts()
	for name, h := range rep.MissingValuesHandled {
		if h.Method.Fills() && rep.MissingValuesAfter[name] != 0 {
			return model.InvariantError("column %q still has %d missing values after %s", name, rep.MissingValuesAfter[name], h.Method)
		}
	}
	rep.IsDomainDetected = opts.DomainName != ""
	rep.DomainName = opts.DomainName
	rep.AuditLog = r.audit.Entries()
	rep.Summary = Summarize(rep, r.ds.Columns)
	return nil
}

func (r *run) record(e model.AuditEntry) {
	e = r.audit.Append(e)
	r.log.Debug("clean: applied",
		zap.String("operation", e.Operation),
		zap.String("column", e.Column),
		zap.Int("rows_affected", e.Affected()),
	)
}

// checkRows verifies that a resolver removed exactly the rows it reported.
func checkRows(before int, out *model.Dataset, removed int, op string) error {
	if out.NumRows() != before-removed {
		return model.InvariantError("%s: expected %d rows, got %d", op, before-removed, out.NumRows())
	}
	return nil
}

func checkColumns(before, after *model.Dataset) error {
	if before.NumColumns() != after.NumColumns() {
		return model.InvariantError("column count changed from %d to %d", before.NumColumns(), after.NumColumns())
	}
	return nil
}

func intDetail(d map[string]any, key string) int {
	n, _ := d[key].(int)
	return n
}

func floatDetail(d map[string]any, key string) (float64, bool) {
	f, ok := d[key].(float64)
	return f, ok
}
