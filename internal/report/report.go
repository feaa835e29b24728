// Package report renders cleaning reports for people and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner/internal/model"
)

// Format selects a rendering.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatMarkdown, FormatText:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	}
	return "", eris.Errorf("report: unknown format %q (want json, markdown or text)", s)
}

// Write renders r in the given format.
func Write(w io.Writer, f Format, r *model.CleaningReport) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, r)
	case FormatMarkdown:
		return WriteMarkdown(w, r)
	case FormatText:
		_, err := io.WriteString(w, r.Summary+"\n")
		return eris.Wrap(err, "report: write text")
	}
	return eris.Errorf("report: unknown format %q", f)
}

// WriteJSON writes v as indented JSON. It accepts reports, failure records
// and runs alike.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(v), "report: encode json")
}

// WriteFailure renders a failed run.
func WriteFailure(w io.Writer, f Format, rec *model.FailureRecord) error {
	if f == FormatJSON {
		return WriteJSON(w, rec)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Cleaning failed during %s", rec.State)
	if rec.Column != "" {
		fmt.Fprintf(&b, " (column %q)", rec.Column)
	}
	fmt.Fprintf(&b, ": %s\n", rec.Message)
	fmt.Fprintf(&b, "%d audit entries were recorded before the failure.\n", len(rec.AuditLog))
	for i, e := range rec.AuditLog {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, describeEntry(e))
	}
	_, err := io.WriteString(w, b.String())
	return eris.Wrap(err, "report: write failure")
}

func describeEntry(e model.AuditEntry) string {
	s := e.Operation
	if e.Column != "" {
		s += " " + e.Column
	}
	if e.RowsAffected != nil {
		s += fmt.Sprintf(" (%d rows)", *e.RowsAffected)
	}
	return s
}

func formatDetails(d map[string]any) string {
	if len(d) == 0 {
		return ""
	}
	parts := make([]string, 0, len(d))
	for _, k := range slices.Sorted(maps.Keys(d)) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatAny(d[k])))
	}
	return strings.Join(parts, ", ")
}

func formatAny(v any) string {
	switch t := v.(type) {
	case float64:
		return formatFloat(t)
	case string:
		return t
	case nil:
		return "null"
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
