package report

import (
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/rotisserie/eris"

	"github.com/sells-group/datacleaner/internal/model"
)

// WriteMarkdown renders r as a Markdown document with tables for missing
// values, outliers and the audit log.
func WriteMarkdown(w io.Writer, r *model.CleaningReport) error {
	md := markdown.NewMarkdown(w)

	writeOverview(md, r)
	writeMissing(md, r)
	writeOutliers(md, r)
	writeAudit(md, r)

	md.H2("Summary")
	md.PlainText("")
	md.PlainText(r.Summary)

	return eris.Wrap(md.Build(), "report: write markdown")
}

func writeOverview(md *markdown.Markdown, r *model.CleaningReport) {
	md.H1("Cleaning Report")
	md.PlainText("")

	domain := "none"
	if r.IsDomainDetected {
		domain = r.DomainName
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Original size", strconv.Itoa(r.OriginalRows) + " rows × " + strconv.Itoa(r.OriginalColumns) + " columns"},
			{"Final size", strconv.Itoa(r.FinalRows) + " rows × " + strconv.Itoa(r.FinalColumns) + " columns"},
			{"Duplicates removed", strconv.Itoa(r.DuplicatesRemoved)},
			{"Missing values", strconv.Itoa(r.TotalMissingBefore()) + " → " + strconv.Itoa(r.TotalMissingAfter())},
			{"Outliers handled", strconv.Itoa(r.TotalOutliers())},
			{"Detected domain", domain},
		},
	})
	md.PlainText("")

	if r.FinalRows == 0 && r.OriginalRows > 0 {
		md.Warning("Every row was removed. Check the drop and remove strategies.")
		md.PlainText("")
	}
}

func writeMissing(md *markdown.Markdown, r *model.CleaningReport) {
	md.H2("Missing Values")
	md.PlainText("")

	cols := slices.Sorted(maps.Keys(r.MissingValuesBefore))
	if len(cols) == 0 {
		md.PlainText("No columns.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		method, count := "-", "-"
		if h, ok := r.MissingValuesHandled[c]; ok {
			method, count = string(h.Method), strconv.Itoa(h.Count)
		}
		after := "-"
		if n, ok := r.MissingValuesAfter[c]; ok {
			after = strconv.Itoa(n)
		}
		rows = append(rows, []string{"`" + c + "`", strconv.Itoa(r.MissingValuesBefore[c]), after, method, count})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Before", "After", "Method", "Handled"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeOutliers(md *markdown.Markdown, r *model.CleaningReport) {
	md.H2("Outliers")
	md.PlainText("")

	if len(r.OutliersHandled) == 0 {
		md.PlainText("No outlier handling was configured.")
		md.PlainText("")
		return
	}
	var rows [][]string
	for _, c := range slices.Sorted(maps.Keys(r.OutliersHandled)) {
		o := r.OutliersHandled[c]
		rows = append(rows, []string{
			"`" + c + "`",
			string(o.Method),
			formatFloat(o.Threshold),
			string(o.Action),
			strconv.Itoa(o.Count),
			boundString(o.Lower),
			boundString(o.Upper),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Column", "Method", "Threshold", "Action", "Count", "Lower", "Upper"},
		Rows:   rows,
	})
	md.PlainText("")
}

func boundString(b *float64) string {
	if b == nil {
		return "-"
	}
	return formatFloat(*b)
}

func writeAudit(md *markdown.Markdown, r *model.CleaningReport) {
	md.H2("Audit Log")
	md.PlainText("")

	if len(r.AuditLog) == 0 {
		md.PlainText("No entries.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(r.AuditLog))
	for i, e := range r.AuditLog {
		affected := "-"
		if e.RowsAffected != nil {
			affected = strconv.Itoa(*e.RowsAffected)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			e.Timestamp.UTC().Format("2006-01-02 15:04:05.000"),
			e.Operation,
			e.Column,
			affected,
			formatDetails(e.Details),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Time (UTC)", "Operation", "Column", "Rows", "Details"},
		Rows:   rows,
	})
	md.PlainText("")
}
