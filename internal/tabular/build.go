package tabular

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sells-group/datacleaner/internal/model"
)

// nullMarkers are the cell contents read as missing.
var nullMarkers = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {},
	"null": {}, "NULL": {}, "None": {}, "#N/A": {}, "<NA>": {},
}

// IsNullMarker reports whether a raw cell reads as missing.
func IsNullMarker(s string) bool {
	_, ok := nullMarkers[strings.TrimSpace(s)]
	return ok
}

// Build turns a header and raw string records into a typed dataset. Short
// records are padded with nulls and long ones truncated; blank records are
// skipped. Each column is typed as a whole: numeric if every non-null cell
// parses as a finite number, boolean if every non-null cell is true/false,
// otherwise string.
func Build(header []string, records [][]string) (*model.Dataset, error) {
	columns := uniqueNames(header)
	width := len(columns)

	raw := make([][]string, 0, len(records))
	for _, rec := range records {
		if blank(rec) {
			continue
		}
		r := make([]string, width)
		copy(r, rec)
		raw = append(raw, r)
	}

	rows := make([]model.Row, len(raw))
	for i := range rows {
		rows[i] = make(model.Row, width)
	}
	for j := 0; j < width; j++ {
		conv := columnConverter(raw, j)
		for i, r := range raw {
			rows[i][j] = conv(r[j])
		}
	}
	return model.NewDataset(columns, rows)
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// uniqueNames fills empty header cells with "Unnamed: i" and suffixes
// repeated names with .1, .2, ...
func uniqueNames(header []string) []string {
	out := make([]string, len(header))
	seen := make(map[string]int, len(header))
	taken := make(map[string]bool, len(header))
	for _, h := range header {
		taken[strings.TrimSpace(h)] = true
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		if n, dup := seen[name]; dup {
			base := name
			for {
				n++
				name = fmt.Sprintf("%s.%d", base, n)
				if !taken[name] {
					break
				}
			}
			seen[base] = n
		} else {
			seen[name] = 0
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func columnConverter(raw [][]string, j int) func(string) model.Value {
	numeric, boolean := true, true
	for _, r := range raw {
		s := r[j]
		if IsNullMarker(s) {
			continue
		}
		if _, ok := parseNumber(s); !ok {
			numeric = false
		}
		if _, ok := parseBool(s); !ok {
			boolean = false
		}
		if !numeric && !boolean {
			break
		}
	}

	switch {
	case numeric:
		return func(s string) model.Value {
			if IsNullMarker(s) {
				return model.Null()
			}
			f, _ := parseNumber(s)
			return model.Number(f)
		}
	case boolean:
		return func(s string) model.Value {
			if IsNullMarker(s) {
				return model.Null()
			}
			b, _ := parseBool(s)
			return model.Bool(b)
		}
	default:
		return func(s string) model.Value {
			if IsNullMarker(s) {
				return model.Null()
			}
			return model.String(s)
		}
	}
}
