package clean

import (
	"fmt"
	"strings"

	"github.com/sells-group/datacleaner/internal/model"
)

// Summarize renders the human-readable summary of a report. Columns are
// listed in the order they appear in columns.
func Summarize(r *model.CleaningReport, columns []string) string {
	var b strings.Builder
	b.WriteString("Dataset cleaning summary:\n")
	fmt.Fprintf(&b, "- Original size: %d rows, %d columns\n", r.OriginalRows, r.OriginalColumns)
	fmt.Fprintf(&b, "- Final size: %d rows, %d columns\n", r.FinalRows, r.FinalColumns)
	if r.IsDomainDetected {
		fmt.Fprintf(&b, "- Detected domain: %s\n", r.DomainName)
	}

	if r.DuplicatesRemoved > 0 {
		fmt.Fprintf(&b, "- Removed %d duplicate rows\n", r.DuplicatesRemoved)
	}

	if before := r.TotalMissingBefore(); before > 0 {
		fmt.Fprintf(&b, "- Handled %d missing values\n", before-r.TotalMissingAfter())
		for _, c := range columns {
			h, ok := r.MissingValuesHandled[c]
			if !ok || h.Method == model.MissingNone {
				continue
			}
			fmt.Fprintf(&b, "  * %s: %s (%d)\n", c, h.Method, h.Count)
		}
	}

	if len(r.OutliersHandled) > 0 {
		b.WriteString("- Outlier handling:\n")
		for _, c := range columns {
			o, ok := r.OutliersHandled[c]
			if !ok {
				continue
			}
			verb := "capped"
			if o.Action == model.OutlierRemove {
				verb = "removed"
			}
			fmt.Fprintf(&b, "  * %s: %d outliers %s using %s method (threshold %g)\n", c, o.Count, verb, o.Method, o.Threshold)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
