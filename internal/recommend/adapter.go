package recommend

import (
	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

// ToPartial converts an AI payload into a partial configuration for ds.
// Suggestions the cleaner could not apply are dropped with a warning: unknown
// columns, strategies outside the vocabulary, and statistics that do not fit
// the column's profiled type. A fallback payload converts to an empty
// configuration.
func (p Payload) ToPartial(ds *model.Dataset) model.PartialConfig {
	if p.Fallback {
		return model.PartialConfig{}
	}
	dedupe := p.ShouldRemoveDuplicates
	out := model.PartialConfig{
		Columns:          make(map[string]model.ColumnOverride, len(p.ColumnRecommendations)),
		RemoveDuplicates: &dedupe,
	}
	profiles := profile.Dataset(ds)
	for col, rec := range p.ColumnRecommendations {
		prof, ok := profiles[col]
		if !ok {
			zap.L().Warn("recommend: dropping suggestion for unknown column", zap.String("column", col))
			continue
		}
		var o model.ColumnOverride
		if rec.MissingValueStrategy != "" {
			s, reason := missingStrategy(rec.MissingValueStrategy, prof)
			if reason != "" {
				dropped(col, rec.MissingValueStrategy, reason)
			} else {
				o.Missing = s
			}
		}
		if rec.OutlierStrategy != nil {
			spec, reason := rec.OutlierStrategy.spec(prof)
			if reason != "" {
				dropped(col, rec.OutlierStrategy.Method, reason)
			} else {
				o.Outlier = &spec
			}
		}
		if o.Missing == "" && o.Outlier == nil {
			continue
		}
		out.Columns[col] = o
	}
	return out
}

func dropped(column, strategy, reason string) {
	zap.L().Warn("recommend: dropping suggestion",
		zap.String("column", column),
		zap.String("strategy", strategy),
		zap.String("reason", reason),
	)
}

func missingStrategy(raw string, prof profile.Column) (model.MissingStrategy, string) {
	s := model.MissingStrategy(raw)
	switch {
	case !s.Valid():
		return "", "unknown missing value strategy"
	case (s == model.MissingMean || s == model.MissingMedian) && !prof.IsNumeric():
		return "", "column is " + string(prof.Type) + ", not numeric"
	case s == model.MissingMode && prof.Empty():
		return "", "column has no non-null values"
	}
	return s, ""
}

func (s OutlierStrategy) spec(prof profile.Column) (model.OutlierSpec, string) {
	if s.Method == "" || s.Method == "none" {
		return model.OutlierSpec{}, ""
	}
	method := model.OutlierMethod(s.Method)
	if !method.Valid() {
		return model.OutlierSpec{}, "unknown outlier method"
	}
	action := model.OutlierAction(s.Action)
	if s.Action == "" {
		action = model.OutlierCap
	}
	if !action.Valid() {
		return model.OutlierSpec{}, "unknown outlier action"
	}
	threshold := method.DefaultThreshold()
	if s.Threshold != nil {
		threshold = *s.Threshold
	}
	if !(threshold > 0) {
		return model.OutlierSpec{}, "outlier threshold must be > 0"
	}
	if !prof.IsNumeric() {
		return model.OutlierSpec{}, "column is " + string(prof.Type) + ", not numeric"
	}
	return model.OutlierSpec{Enabled: true, Method: method, Threshold: threshold, Action: action}, ""
}

// Merge layers the configuration sources for ds: explicit user settings win
// over AI suggestions, which win over domain defaults, per column and per
// field. ai may be nil and never causes an error. The result is validated
// against ds.
func Merge(ds *model.Dataset, user model.PartialConfig, ai *Payload, domain model.PartialConfig) (model.CleaningConfig, error) {
	merged := domain
	if ai != nil {
		merged = merged.Overlay(ai.ToPartial(ds))
	}
	merged = merged.Overlay(user)

	cfg := merged.Resolve()
	if err := cfg.ValidateFor(ds); err != nil {
		return model.CleaningConfig{}, err
	}
	return cfg, nil
}
