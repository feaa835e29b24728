package domain

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Rules is the rule table loaded from YAML.
type Rules struct {
	Defaults RuleDefaults `yaml:"defaults"`
	Domains  []Domain     `yaml:"domains"`
}

// RuleDefaults holds table-wide settings.
type RuleDefaults struct {
	MinMatches int `yaml:"min_matches"`
}

// Domain is a named group of column rules.
type Domain struct {
	Name       string `yaml:"name"`
	MinMatches int    `yaml:"min_matches,omitempty"` // 0 = table default
	Rules      []Rule `yaml:"rules"`
}

// Rule matches columns by name pattern and, optionally, inferred type.
type Rule struct {
	Name     string               `yaml:"name"`
	Patterns []string             `yaml:"patterns"`
	Types    []profile.ColumnType `yaml:"types,omitempty"`
	Suggest  *Suggestion          `yaml:"suggest,omitempty"`
}

// Suggestion is the column configuration a rule proposes.
type Suggestion struct {
	Missing model.MissingStrategy `yaml:"missing,omitempty"`
	Outlier *OutlierSuggestion    `yaml:"outlier,omitempty"`
	Coerce  model.Coercion        `yaml:"coerce,omitempty"`
}

// OutlierSuggestion proposes enabled outlier handling.
type OutlierSuggestion struct {
	Method    model.OutlierMethod `yaml:"method"`
	Threshold float64             `yaml:"threshold,omitempty"`
	Action    model.OutlierAction `yaml:"action"`
}

// DefaultRules returns the embedded rule table.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads a rule table from path. An empty path loads the embedded
// defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "domain: read rules %s", path)
	}
	return ParseRules(data)
}

// ParseRules decodes and validates a YAML rule table.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "domain: parse rules")
	}
	if r.Defaults.MinMatches <= 0 {
		r.Defaults.MinMatches = 2
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) validate() error {
	if len(r.Domains) == 0 {
		return eris.New("domain: rule table defines no domains")
	}
	for _, d := range r.Domains {
		if d.Name == "" {
			return eris.New("domain: domain without a name")
		}
		for _, rule := range d.Rules {
			if len(rule.Patterns) == 0 {
				return eris.Errorf("domain: %s/%s has no patterns", d.Name, rule.Name)
			}
			s := rule.Suggest
			if s == nil {
				continue
			}
			if s.Missing != "" && !s.Missing.Valid() {
				return eris.Errorf("domain: %s/%s: unknown missing strategy %q", d.Name, rule.Name, s.Missing)
			}
			if !s.Coerce.Valid() {
				return eris.Errorf("domain: %s/%s: unknown coercion %q", d.Name, rule.Name, s.Coerce)
			}
			if o := s.Outlier; o != nil && (!o.Method.Valid() || !o.Action.Valid() || o.Threshold < 0) {
				return eris.Errorf("domain: %s/%s: invalid outlier suggestion", d.Name, rule.Name)
			}
		}
	}
	return nil
}

func (d Domain) minMatches(def int) int {
	if d.MinMatches > 0 {
		return d.MinMatches
	}
	return def
}

func (s *Suggestion) override() model.ColumnOverride {
	o := model.ColumnOverride{Missing: s.Missing, Coerce: s.Coerce}
	if s.Outlier != nil {
		threshold := s.Outlier.Threshold
		if threshold == 0 {
			threshold = s.Outlier.Method.DefaultThreshold()
		}
		o.Outlier = &model.OutlierSpec{
			Enabled:   true,
			Method:    s.Outlier.Method,
			Threshold: threshold,
			Action:    s.Outlier.Action,
		}
	}
	return o
}
