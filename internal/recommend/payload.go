// Package recommend connects the cleaning engine to an AI collaborator. The
// advisor asks Claude for per-column suggestions; the adapter turns those
// suggestions into an ordinary cleaning configuration. Nothing here cleans
// data.
package recommend

import (
	"github.com/sells-group/datacleaner/internal/clean"
	"github.com/sells-group/datacleaner/internal/model"
)

// OutlierStrategy is the AI's outlier suggestion for one column. Method
// "none" (or an empty method) disables outlier handling.
type OutlierStrategy struct {
	Method    string   `json:"method"`
	Action    string   `json:"action,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// ColumnRecommendation is the AI's suggestion for one column.
type ColumnRecommendation struct {
	MissingValueStrategy string           `json:"missing_value_strategy,omitempty"`
	OutlierStrategy      *OutlierStrategy `json:"outlier_strategy,omitempty"`
	Rationale            string           `json:"free_text_rationale,omitempty"`
}

// Payload is the recommendation payload returned by the advisor.
type Payload struct {
	ShouldRemoveDuplicates bool                            `json:"should_remove_duplicates"`
	ColumnRecommendations  map[string]ColumnRecommendation `json:"column_recommendations"`
	OverallAdvice          string                          `json:"overall_advice,omitempty"`

	// Fallback is set when the collaborator could not be reached and the
	// payload holds defaults. A fallback payload contributes nothing to a
	// merged configuration.
	Fallback       bool   `json:"fallback,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// DefaultPayload recommends nothing for every column and duplicate removal
// only when the dataset has duplicates.
func DefaultPayload(ds *model.Dataset) Payload {
	p := Payload{
		ShouldRemoveDuplicates: clean.CountDuplicates(ds) > 0,
		ColumnRecommendations:  make(map[string]ColumnRecommendation, len(ds.Columns)),
		OverallAdvice:          "No AI recommendation available; review the columns manually.",
	}
	for _, col := range ds.Columns {
		p.ColumnRecommendations[col] = ColumnRecommendation{
			MissingValueStrategy: string(model.MissingNone),
			OutlierStrategy:      &OutlierStrategy{Method: "none"},
		}
	}
	return p
}

func fallback(ds *model.Dataset, reason string) Payload {
	p := DefaultPayload(ds)
	p.Fallback = true
	p.FallbackReason = reason
	return p
}
