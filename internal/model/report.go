package model

import "time"

// AuditEntry records one mutation (or deliberate no-op) applied during a run.
type AuditEntry struct {
	Timestamp    time.Time      `json:"timestamp"`
	Operation    string         `json:"operation"`
	Column       string         `json:"column,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
	RowsAffected *int           `json:"rows_affected,omitempty"`
}

// Affected returns RowsAffected or 0.
func (e AuditEntry) Affected() int {
	if e.RowsAffected == nil {
		return 0
	}
	return *e.RowsAffected
}

// MissingHandled summarises the missing-value remedy for one column.
type MissingHandled struct {
	Method MissingStrategy `json:"method"`
	Count  int             `json:"count"`
}

// OutlierHandled summarises outlier handling for one column.
type OutlierHandled struct {
	Method    OutlierMethod `json:"method"`
	Threshold float64       `json:"threshold"`
	Count     int           `json:"count"`
	Action    OutlierAction `json:"action"`
	Lower     *float64      `json:"lower_bound,omitempty"`
	Upper     *float64      `json:"upper_bound,omitempty"`
}

// CleaningReport is the auditable result of a cleaning run. It contains only
// plain values and round-trips through JSON.
type CleaningReport struct {
	OriginalRows         int                       `json:"original_rows"`
	OriginalColumns      int                       `json:"original_columns"`
	FinalRows            int                       `json:"final_rows"`
	FinalColumns         int                       `json:"final_columns"`
	DuplicatesRemoved    int                       `json:"duplicates_removed"`
	MissingValuesBefore  map[string]int            `json:"missing_values_before"`
	MissingValuesAfter   map[string]int            `json:"missing_values_after"`
	MissingValuesHandled map[string]MissingHandled `json:"missing_values_handled"`
	OutliersHandled      map[string]OutlierHandled `json:"outliers_handled"`
	AuditLog             []AuditEntry              `json:"audit_log"`
	IsDomainDetected     bool                      `json:"is_domain_detected"`
	DomainName           string                    `json:"domain_name,omitempty"`
	Summary              string                    `json:"human_readable_summary"`
}

// TotalMissingBefore sums MissingValuesBefore.
func (r *CleaningReport) TotalMissingBefore() int {
	return sumCounts(r.MissingValuesBefore)
}

// TotalMissingAfter sums MissingValuesAfter.
func (r *CleaningReport) TotalMissingAfter() int {
	return sumCounts(r.MissingValuesAfter)
}

// TotalOutliers sums the outlier counts over all columns.
func (r *CleaningReport) TotalOutliers() int {
	n := 0
	for _, o := range r.OutliersHandled {
		n += o.Count
	}
	return n
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}
