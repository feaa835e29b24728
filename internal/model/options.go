package model

import (
	"bytes"
	"encoding/json"
	"io"
	"sort"
)

// ColumnOverride is a partially specified column configuration. Zero fields
// are unset and fall through to lower-precedence sources.
type ColumnOverride struct {
	Missing MissingStrategy `json:"missing_value_strategy,omitempty"`
	Outlier *OutlierSpec    `json:"outlier_spec,omitempty"`
	Coerce  Coercion        `json:"coerce,omitempty"`
}

// PartialConfig is a partially specified CleaningConfig, as produced by the
// UI, the domain classifier, or the AI adapter.
type PartialConfig struct {
	Columns          map[string]ColumnOverride `json:"columns,omitempty"`
	RemoveDuplicates *bool                     `json:"remove_duplicates,omitempty"`
}

// IsEmpty reports whether nothing is set.
func (p PartialConfig) IsEmpty() bool {
	return len(p.Columns) == 0 && p.RemoveDuplicates == nil
}

// ColumnNames returns the overridden column names, sorted.
func (p PartialConfig) ColumnNames() []string {
	names := make([]string, 0, len(p.Columns))
	for n := range p.Columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Resolve turns the partial configuration into a full one; unset fields take
// their defaults (no missing-value handling, outliers disabled, no dedupe).
func (p PartialConfig) Resolve() CleaningConfig {
	cfg := CleaningConfig{Columns: make(map[string]ColumnConfig, len(p.Columns))}
	for name, o := range p.Columns {
		cc := ColumnConfig{Missing: o.Missing, Coerce: o.Coerce}
		if cc.Missing == "" {
			cc.Missing = MissingNone
		}
		if cc.Coerce == CoerceDisabled {
			cc.Coerce = CoerceNone
		}
		if o.Outlier != nil {
			cc.Outlier = *o.Outlier
		}
		cfg.Columns[name] = cc
	}
	if p.RemoveDuplicates != nil {
		cfg.RemoveDuplicates = *p.RemoveDuplicates
	}
	return cfg
}

// wireOptions is the loosely-typed shape sent by the UI:
//
//	{"missing_values": {"age": "mean"},
//	 "outliers": {"price": {"method": "zscore", "action": "cap", "threshold": 3}},
//	 "coerce": {"quantity": "integer", "sku": "none"},
//	 "remove_duplicates": true}
type wireOptions struct {
	MissingValues    map[string]string      `json:"missing_values"`
	Outliers         map[string]wireOutlier `json:"outliers"`
	Coerce           map[string]string      `json:"coerce"`
	RemoveDuplicates *bool                  `json:"remove_duplicates"`
}

type wireOutlier struct {
	Enabled   *bool    `json:"enabled"`
	Method    string   `json:"method"`
	Action    string   `json:"action"`
	Threshold *float64 `json:"threshold"`
}

// ParseOptions strictly decodes UI cleaning options. Unknown fields, unknown
// strategies, and invalid thresholds are configuration errors.
func ParseOptions(data []byte) (PartialConfig, error) {
	var w wireOptions
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return PartialConfig{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&w); err != nil {
		return PartialConfig{}, ConfigError("", "", "decode cleaning options: %v", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return PartialConfig{}, ConfigError("", "", "trailing data after cleaning options")
	}

	p := PartialConfig{
		Columns:          make(map[string]ColumnOverride),
		RemoveDuplicates: w.RemoveDuplicates,
	}
	for col, raw := range w.MissingValues {
		s := MissingStrategy(raw)
		if !s.Valid() {
			return PartialConfig{}, ConfigError(col, raw, "unknown missing value strategy")
		}
		o := p.Columns[col]
		o.Missing = s
		p.Columns[col] = o
	}
	for col, wo := range w.Outliers {
		spec, err := wo.spec(col)
		if err != nil {
			return PartialConfig{}, err
		}
		o := p.Columns[col]
		o.Outlier = &spec
		p.Columns[col] = o
	}
	for col, raw := range w.Coerce {
		c := Coercion(raw)
		if c == CoerceNone {
			c = CoerceDisabled
		}
		if !c.Valid() {
			return PartialConfig{}, ConfigError(col, raw, "unknown coercion")
		}
		o := p.Columns[col]
		o.Coerce = c
		p.Columns[col] = o
	}
	if err := p.Resolve().Validate(); err != nil {
		return PartialConfig{}, err
	}
	return p, nil
}

func (w wireOutlier) spec(column string) (OutlierSpec, error) {
	if w.Method == "none" || w.Action == "none" || (w.Enabled != nil && !*w.Enabled) {
		return OutlierSpec{Enabled: false}, nil
	}
	method := OutlierMethod(w.Method)
	if !method.Valid() {
		return OutlierSpec{}, ConfigError(column, w.Method, "unknown outlier method")
	}
	action := OutlierAction(w.Action)
	if !action.Valid() {
		return OutlierSpec{}, ConfigError(column, w.Action, "unknown outlier action")
	}
	threshold := method.DefaultThreshold()
	if w.Threshold != nil {
		threshold = *w.Threshold
	}
	if !(threshold > 0) {
		return OutlierSpec{}, ConfigError(column, w.Method, "outlier threshold must be > 0, got %v", threshold)
	}
	return OutlierSpec{Enabled: true, Method: method, Threshold: threshold, Action: action}, nil
}

// Overlay returns p with every field set in top replacing p's, column by
// column and field by field. Neither input is modified.
func (p PartialConfig) Overlay(top PartialConfig) PartialConfig {
	out := PartialConfig{
		Columns:          make(map[string]ColumnOverride, len(p.Columns)+len(top.Columns)),
		RemoveDuplicates: p.RemoveDuplicates,
	}
	for name, o := range p.Columns {
		out.Columns[name] = o.clone()
	}
	for name, o := range top.Columns {
		cur := out.Columns[name]
		if o.Missing != "" {
			cur.Missing = o.Missing
		}
		if o.Outlier != nil {
			spec := *o.Outlier
			cur.Outlier = &spec
		}
		if o.Coerce != CoerceNone {
			cur.Coerce = o.Coerce
		}
		out.Columns[name] = cur
	}
	if top.RemoveDuplicates != nil {
		v := *top.RemoveDuplicates
		out.RemoveDuplicates = &v
	}
	if len(out.Columns) == 0 {
		out.Columns = nil
	}
	return out
}

func (o ColumnOverride) clone() ColumnOverride {
	if o.Outlier != nil {
		spec := *o.Outlier
		o.Outlier = &spec
	}
	return o
}
