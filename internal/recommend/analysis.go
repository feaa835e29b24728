package recommend

import (
	"math"

	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

const (
	sampleSize        = 5
	minOutlierSample  = 10
	maxCategories     = 10
	categoricalShare  = 0.05
	analysisIQRFactor = 1.5
)

// Analysis is a compact description of a dataset, used as the advisor's
// prompt payload and printed by the profile command.
type Analysis struct {
	Rows                int                       `json:"rows"`
	Columns             int                       `json:"columns"`
	ColumnNames         []string                  `json:"column_names"`
	MissingValues       map[string]int            `json:"missing_values"`
	PotentialDuplicates int                       `json:"potential_duplicates"`
	ColumnAnalysis      map[string]ColumnAnalysis `json:"column_analysis"`
}

// ColumnAnalysis describes one column.
type ColumnAnalysis struct {
	DType             string             `json:"dtype"`
	InferredType      profile.ColumnType `json:"inferred_type"`
	Missing           int                `json:"missing"`
	MissingPercent    float64            `json:"missing_percent"`
	Unique            int                `json:"unique"`
	Min               *float64           `json:"min,omitempty"`
	Max               *float64           `json:"max,omitempty"`
	Mean              *float64           `json:"mean,omitempty"`
	Median            *float64           `json:"median,omitempty"`
	Std               *float64           `json:"std,omitempty"`
	PotentialOutliers *int               `json:"potential_outliers,omitempty"`
	IsCategorical     bool               `json:"is_categorical"`
	Categories        map[string]int     `json:"categories,omitempty"`
	SampleValues      []any              `json:"sample_values"`
}

// Analyze describes ds using precomputed profiles. It never modifies ds.
func Analyze(ds *model.Dataset, profiles profile.Profiles) Analysis {
	a := Analysis{
		Rows:                ds.NumRows(),
		Columns:             ds.NumColumns(),
		ColumnNames:         append([]string(nil), ds.Columns...),
		MissingValues:       ds.MissingCounts(),
		PotentialDuplicates: clean.CountDuplicates(ds),
		ColumnAnalysis:      make(map[string]ColumnAnalysis, ds.NumColumns()),
	}
	for _, name := range ds.Columns {
		values, _ := ds.Column(name)
		a.ColumnAnalysis[name] = analyzeColumn(profiles[name], values, ds.NumRows())
	}
	return a
}

func analyzeColumn(p profile.Column, values []model.Value, rows int) ColumnAnalysis {
	ca := ColumnAnalysis{
		DType:        dtype(values),
		InferredType: p.Type,
		Missing:      p.Missing,
		Unique:       p.Unique,
		SampleValues: []any{},
	}
	if rows > 0 {
		ca.MissingPercent = math.Round(float64(p.Missing)/float64(rows)*10000) / 100
	}

	if p.IsNumeric() {
		s := *p.Numeric
		ca.Min, ca.Max, ca.Mean, ca.Median, ca.Std = &s.Min, &s.Max, &s.Mean, &s.Median, &s.Std
		if p.NonNull > minOutlierSample {
			n := potentialOutliers(values, s)
			ca.PotentialOutliers = &n
		}
	}

	limit := math.Min(maxCategories, float64(rows)*categoricalShare)
	if p.NonNull > 0 && float64(p.Unique) <= limit {
		ca.IsCategorical = true
		ca.Categories = make(map[string]int, len(p.Distinct))
		for _, vc := range p.Distinct {
			ca.Categories[vc.Value.String()] = vc.Count
		}
	}

	for i := 0; i < len(p.Distinct) && i < sampleSize; i++ {
		ca.SampleValues = append(ca.SampleValues, p.Distinct[i].Value.Any())
	}
	return ca
}

func potentialOutliers(values []model.Value, s profile.NumericStats) int {
	spec := model.OutlierSpec{Enabled: true, Method: model.OutlierIQR, Threshold: analysisIQRFactor, Action: model.OutlierCap}
	b, _ := clean.OutlierBounds(spec, s)
	n := 0
	for _, v := range values {
		if f, ok := v.Float(); ok && !b.Contains(f) {
			n++
		}
	}
	return n
}

// dtype names the storage type of a column's non-null cells.
func dtype(values []model.Value) string {
	kind := model.KindNull
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if kind == model.KindNull {
			kind = v.Kind()
		} else if kind != v.Kind() {
			return "mixed"
		}
	}
	if kind == model.KindNull {
		return "empty"
	}
	return kind.String()
}
