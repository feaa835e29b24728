package model

import "sort"

// MissingStrategy selects how missing cells in a column are remedied.
type MissingStrategy string

const (
	MissingNone   MissingStrategy = "none"
	MissingMean   MissingStrategy = "mean"
	MissingMedian MissingStrategy = "median"
	MissingMode   MissingStrategy = "mode"
	MissingDrop   MissingStrategy = "drop"
)

// Valid reports whether s is a known strategy.
func (s MissingStrategy) Valid() bool {
	switch s {
	case MissingNone, MissingMean, MissingMedian, MissingMode, MissingDrop:
		return true
	}
	return false
}

// Fills reports whether the strategy imputes a statistic.
func (s MissingStrategy) Fills() bool {
	return s == MissingMean || s == MissingMedian || s == MissingMode
}

// OutlierMethod selects the outlier detection rule.
type OutlierMethod string

const (
	OutlierZScore OutlierMethod = "zscore"
	OutlierIQR    OutlierMethod = "iqr"
)

// Valid reports whether m is a known method.
func (m OutlierMethod) Valid() bool {
	return m == OutlierZScore || m == OutlierIQR
}

// DefaultThreshold is the conventional threshold for the method.
func (m OutlierMethod) DefaultThreshold() float64 {
	if m == OutlierIQR {
		return 1.5
	}
	return 3
}

// OutlierAction selects what happens to a flagged value.
type OutlierAction string

const (
	OutlierRemove OutlierAction = "remove"
	OutlierCap    OutlierAction = "cap"
)

// Valid reports whether a is a known action.
func (a OutlierAction) Valid() bool {
	return a == OutlierRemove || a == OutlierCap
}

// Coercion converts column values after imputation.
type Coercion string

// CoerceDisabled is an explicit "no coercion" in a partial configuration;
// unlike CoerceNone it overrides a coercion set by a lower layer.
const (
	CoerceNone     Coercion = ""
	CoerceInteger  Coercion = "integer"
	CoerceDisabled Coercion = "none"
)

// Valid reports whether c is a known coercion.
func (c Coercion) Valid() bool {
	return c == CoerceNone || c == CoerceInteger || c == CoerceDisabled
}

// OutlierSpec configures outlier handling for one column.
type OutlierSpec struct {
	Enabled   bool          `json:"enabled"`
	Method    OutlierMethod `json:"method,omitempty"`
	Threshold float64       `json:"threshold,omitempty"`
	Action    OutlierAction `json:"action,omitempty"`
}

// ColumnConfig is the resolved cleaning configuration for one column.
type ColumnConfig struct {
	Missing MissingStrategy `json:"missing_value_strategy"`
	Outlier OutlierSpec     `json:"outlier_spec"`
	Coerce  Coercion        `json:"coerce,omitempty"`
}

// CleaningConfig is the fully resolved, strongly-typed configuration consumed
// by the cleaner.
type CleaningConfig struct {
	Columns          map[string]ColumnConfig `json:"columns"`
	RemoveDuplicates bool                    `json:"remove_duplicates"`
}

// Column returns the configuration for a column; unconfigured columns get
// MissingNone with outliers disabled.
func (c CleaningConfig) Column(name string) ColumnConfig {
	cc, ok := c.Columns[name]
	if !ok {
		return ColumnConfig{Missing: MissingNone}
	}
	if cc.Missing == "" {
		cc.Missing = MissingNone
	}
	return cc
}

// ColumnNames returns the configured column names, sorted.
func (c CleaningConfig) ColumnNames() []string {
	names := make([]string, 0, len(c.Columns))
	for n := range c.Columns {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsZero reports whether no outlier handling was configured at all.
func (o OutlierSpec) IsZero() bool {
	return o == OutlierSpec{}
}

// Validate checks strategies and thresholds without reference to a dataset.
func (c CleaningConfig) Validate() error {
	for _, name := range c.ColumnNames() {
		cc := c.Columns[name]
		if cc.Missing != "" && !cc.Missing.Valid() {
			return ConfigError(name, string(cc.Missing), "unknown missing value strategy")
		}
		if !cc.Coerce.Valid() {
			return ConfigError(name, string(cc.Coerce), "unknown coercion")
		}
		if err := cc.Outlier.validate(name); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFor checks the configuration against the dataset's column set.
func (c CleaningConfig) ValidateFor(ds *Dataset) error {
	if err := c.Validate(); err != nil {
		return err
	}
	for _, name := range c.ColumnNames() {
		if !ds.HasColumn(name) {
			return ConfigError(name, "", "column not present in dataset")
		}
	}
	return nil
}

func (o OutlierSpec) validate(column string) error {
	if !o.Enabled && o.Method == "" && o.Action == "" {
		return nil
	}
	if !o.Method.Valid() {
		return ConfigError(column, string(o.Method), "unknown outlier method")
	}
	if !o.Action.Valid() {
		return ConfigError(column, string(o.Action), "unknown outlier action")
	}
	if o.Enabled && !(o.Threshold > 0) {
		return ConfigError(column, string(o.Method), "outlier threshold must be > 0, got %v", o.Threshold)
	}
	return nil
}
