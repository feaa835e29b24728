// Package profile computes per-column descriptive statistics used by every
// cleaning strategy.
package profile

import (
	"regexp"
	"strings"
	"time"

	"github.com/sells-group/datacleaner/internal/model"
)

// ColumnType is the inferred semantic type of a column.
type ColumnType string

const (
	TypeNumeric     ColumnType = "numeric"
	TypeCategorical ColumnType = "categorical"
	TypeDatetime    ColumnType = "datetime"
	TypeIdentifier  ColumnType = "identifier"
	// TypeUnknown is used for columns with no non-null values.
	TypeUnknown ColumnType = "unknown"
)

// NumericStats holds statistics defined only for numeric columns. Std is the
// sample standard deviation (Bessel's correction); it is 0 when fewer than two
// values are present.
type NumericStats struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// IQR returns Q3 - Q1.
func (s NumericStats) IQR() float64 { return s.Q3 - s.Q1 }

// Column is a snapshot of one column's statistics.
type Column struct {
	Name     string        `json:"name"`
	NonNull  int           `json:"non_null"`
	Missing  int           `json:"missing"`
	Unique   int           `json:"unique"`
	Type     ColumnType    `json:"type"`
	Mode     model.Value   `json:"mode"`
	HasMode  bool          `json:"has_mode"`
	Numeric  *NumericStats `json:"numeric,omitempty"`
	Distinct []ValueCount  `json:"-"`
}

// ValueCount is a distinct value and its frequency, in first-seen order.
type ValueCount struct {
	Value model.Value `json:"value"`
	Count int         `json:"count"`
}

// IsNumeric reports whether numeric statistics are available.
func (c Column) IsNumeric() bool { return c.Type == TypeNumeric && c.Numeric != nil }

// Empty reports whether the column has no non-null values.
func (c Column) Empty() bool { return c.NonNull == 0 }

// Profiles maps column name to profile.
type Profiles map[string]Column

// Dataset profiles every column of ds.
func Dataset(ds *model.Dataset) Profiles {
	out := make(Profiles, len(ds.Columns))
	for _, name := range ds.Columns {
		out[name] = ColumnOf(ds, name)
	}
	return out
}

// ColumnOf profiles a single column. Unknown columns yield an empty profile
// of TypeUnknown.
func ColumnOf(ds *model.Dataset, name string) Column {
	values, ok := ds.Column(name)
	if !ok {
		return Column{Name: name, Type: TypeUnknown}
	}
	return profileValues(name, values)
}

func profileValues(name string, values []model.Value) Column {
	col := Column{Name: name}

	counts := make(map[string]int)
	var distinct []ValueCount
	var nums []float64
	allNumbers := true
	for _, v := range values {
		if v.IsNull() {
			col.Missing++
			continue
		}
		col.NonNull++
		k := model.RowKey(model.Row{v})
		if i, seen := counts[k]; seen {
			distinct[i].Count++
		} else {
			counts[k] = len(distinct)
			distinct = append(distinct, ValueCount{Value: v, Count: 1})
		}
		if f, isNum := v.Float(); isNum {
			nums = append(nums, f)
		} else {
			allNumbers = false
		}
	}
	col.Unique = len(distinct)
	col.Distinct = distinct

	if col.NonNull == 0 {
		col.Type = TypeUnknown
		return col
	}

	col.Mode, col.HasMode = mode(distinct), true
	col.Type = inferType(name, distinct, col.NonNull, allNumbers)
	if col.Type == TypeNumeric {
		stats := describe(nums)
		col.Numeric = &stats
	}
	return col
}

// mode returns the most frequent value; ties go to the value seen first.
func mode(distinct []ValueCount) model.Value {
	best := 0
	for i := 1; i < len(distinct); i++ {
		if distinct[i].Count > distinct[best].Count {
			best = i
		}
	}
	return distinct[best].Value
}

var identifierName = regexp.MustCompile(`(?i)(^|[_\s.-])(id|uuid|guid|key)$|^id[_\s.-]`)

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02.01.2006",
	"2006/01/02",
}

func inferType(name string, distinct []ValueCount, nonNull int, allNumbers bool) ColumnType {
	if identifierName.MatchString(strings.TrimSpace(name)) && len(distinct) == nonNull {
		return TypeIdentifier
	}
	if allNumbers {
		return TypeNumeric
	}
	if looksLikeDatetime(distinct) {
		return TypeDatetime
	}
	return TypeCategorical
}

func looksLikeDatetime(distinct []ValueCount) bool {
	for _, vc := range distinct {
		s, ok := vc.Value.Str()
		if !ok || !parsesAsTime(strings.TrimSpace(s)) {
			return false
		}
	}
	return true
}

func parsesAsTime(s string) bool {
	if s == "" {
		return false
	}
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
