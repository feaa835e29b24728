package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/datacleaner/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:          "abc12345-6789-0000-0000-000000000000",
			Source:      model.RunSource{FileName: "sales.csv", Rows: 120},
			Status:      model.RunStatusComplete,
			Report:      &model.CleaningReport{OriginalRows: 120, FinalRows: 118},
			CleanedFile: "cleaned_sales.csv",
			CreatedAt:   now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Source:    model.RunSource{FileName: "hr.xlsx", Rows: 40},
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "sales.csv")
	assert.Contains(t, out, "120 -> 118")
	assert.Contains(t, out, "cleaned_sales.csv")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestFormatRunsList_FailedRun(t *testing.T) {
	runs := []model.Run{{
		ID:     "abc12345-6789-0000-0000-000000000000",
		Source: model.RunSource{FileName: "bad.csv", Rows: 3},
		Status: model.RunStatusFailed,
		Failure: &model.FailureRecord{
			State:   model.StateOutliers,
			Message: strings.Repeat("x", 100),
		},
	}}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "failed in outliers")
	assert.Contains(t, out, "...")
	assert.NotContains(t, out, strings.Repeat("x", 61))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}

func TestComputeRunStats(t *testing.T) {
	runs := []model.Run{
		{Status: model.RunStatusComplete, Report: &model.CleaningReport{OriginalRows: 10, FinalRows: 8, DuplicatesRemoved: 1}},
		{Status: model.RunStatusComplete, Report: &model.CleaningReport{OriginalRows: 5, FinalRows: 5}},
		{Status: model.RunStatusFailed, Failure: &model.FailureRecord{State: model.StateOutliers, Kind: model.ErrUnsupportedType}},
		{Status: model.RunStatusFailed, Failure: &model.FailureRecord{State: model.StateProfiling, Kind: model.ErrConfiguration}},
		{Status: model.RunStatusFailed, Failure: &model.FailureRecord{State: model.StateProfiling}},
		{Status: model.RunStatusRunning},
	}

	s := computeRunStats(runs)
	assert.Equal(t, 6, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 3, s.Failed)
	assert.Equal(t, 1, s.Running)
	assert.Equal(t, 15, s.RowsIn)
	assert.Equal(t, 13, s.RowsOut)
	assert.Equal(t, 1, s.Duplicates)
	assert.Equal(t, 2, s.FailedState[model.StateProfiling])
	assert.Equal(t, 1, s.FailedKind["unclassified"])

	var buf bytes.Buffer
	formatRunStats(&buf, s)
	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "during outliers:")
	assert.Contains(t, out, "unsupported_type:")
	assert.Contains(t, out, "15 -> 13")
}
