package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/datacleaner/internal/model"
)

func sampleReport() *model.CleaningReport {
	one, two := 1, 2
	lo, hi := -4.5, 13.5
	return &model.CleaningReport{
		OriginalRows:         10,
		OriginalColumns:      2,
		FinalRows:            8,
		FinalColumns:         2,
		DuplicatesRemoved:    1,
		MissingValuesBefore:  map[string]int{"age": 1, "price": 0},
		MissingValuesAfter:   map[string]int{"age": 0, "price": 0},
		MissingValuesHandled: map[string]model.MissingHandled{"age": {Method: model.MissingMean, Count: 1}},
		OutliersHandled: map[string]model.OutlierHandled{
			"price": {Method: model.OutlierIQR, Threshold: 1.5, Count: 2, Action: model.OutlierRemove, Lower: &lo, Upper: &hi},
		},
		AuditLog: []model.AuditEntry{
			{
				Timestamp:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
				Operation:    "missing_values.fill",
				Column:       "age",
				Details:      map[string]any{"strategy": "mean", "fill_value": 27.5},
				RowsAffected: &one,
			},
			{
				Timestamp:    time.Date(2026, 3, 1, 12, 0, 1, 0, time.UTC),
				Operation:    "outliers.remove",
				Column:       "price",
				RowsAffected: &two,
			},
		},
		IsDomainDetected: true,
		DomainName:       "e-commerce",
		Summary:          "Dataset cleaning summary:\n- Original size: 10 rows, 2 columns",
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "Markdown": FormatMarkdown, "md": FormatMarkdown, "text": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("html")
	assert.Error(t, err)
}

func TestWriteJSON_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleReport()))

	var got model.CleaningReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 8, got.FinalRows)
	assert.Equal(t, "e-commerce", got.DomainName)
	assert.Equal(t, 2, got.OutliersHandled["price"].Count)
	assert.Len(t, got.AuditLog, 2)
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatMarkdown, sampleReport()))
	out := buf.String()

	assert.Contains(t, out, "# Cleaning Report")
	assert.Contains(t, out, "## Missing Values")
	assert.Contains(t, out, "## Outliers")
	assert.Contains(t, out, "## Audit Log")
	assert.Contains(t, out, "e-commerce")
	assert.Contains(t, out, "fill_value=27.5, strategy=mean")
	assert.Contains(t, out, "-4.5")
	assert.Contains(t, out, "outliers.remove")
	assert.Less(t, strings.Index(out, "`age`"), strings.Index(out, "`price`"))
}

func TestWriteMarkdown_Empty(t *testing.T) {
	r := &model.CleaningReport{Summary: "nothing"}
	var buf bytes.Buffer
	require.NoError(t, WriteMarkdown(&buf, r))
	assert.Contains(t, buf.String(), "No outlier handling was configured.")
	assert.Contains(t, buf.String(), "No entries.")
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sampleReport()))
	assert.True(t, strings.HasPrefix(buf.String(), "Dataset cleaning summary:"))
}

func TestWriteFailure(t *testing.T) {
	one := 1
	rec := &model.FailureRecord{
		State:   model.StateOutliers,
		Kind:    model.ErrUnsupportedType,
		Column:  "name",
		Message: "unsupported_type (column \"name\")",
		AuditLog: []model.AuditEntry{
			{Operation: "missing_values.none", Column: "name", RowsAffected: &one},
		},
	}

	var text bytes.Buffer
	require.NoError(t, WriteFailure(&text, FormatText, rec))
	assert.Contains(t, text.String(), "Cleaning failed during outliers (column \"name\")")
	assert.Contains(t, text.String(), "1. missing_values.none name (1 rows)")

	var js bytes.Buffer
	require.NoError(t, WriteFailure(&js, FormatJSON, rec))
	var got model.FailureRecord
	require.NoError(t, json.Unmarshal(js.Bytes(), &got))
	assert.Equal(t, model.StateOutliers, got.State)
}
