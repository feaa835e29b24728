// Package domain proposes default cleaning strategies from column-name
// heuristics. It never touches data; its output is a partial configuration
// that every explicit setting overrides.
package domain

import (
	"slices"

	"go.uber.org/zap"

	"github.com/sells-group/datacleaner/internal/model"
	"github.com/sells-group/datacleaner/internal/profile"
)

// Match records one column matched by one rule.
type Match struct {
	Column string `json:"column"`
	Rule   string `json:"rule"`
}

// Result is the classifier output. Domain is empty when no domain crossed its
// minimum-match threshold, in which case Suggested is empty too.
type Result struct {
	Domain    string              `json:"domain,omitempty"`
	Score     int                 `json:"score"`
	Matches   []Match             `json:"matches,omitempty"`
	Suggested model.PartialConfig `json:"suggested_overrides"`
}

// Detected reports whether a domain was found.
func (r Result) Detected() bool { return r.Domain != "" }

// Classifier matches datasets against a rule table.
type Classifier struct {
	rules      *Rules
	minMatches int
}

// NewClassifier creates a classifier. minMatches > 0 overrides the table's
// default threshold for every domain.
func NewClassifier(rules *Rules, minMatches int) *Classifier {
	return &Classifier{rules: rules, minMatches: minMatches}
}

type candidate struct {
	domain  Domain
	rules   map[string]bool
	matches []Match
	suggest map[string]model.ColumnOverride
}

// Classify scores every domain by the number of distinct rules its columns
// match. The best domain at or above its threshold wins; ties go to the
// domain listed first.
func (c *Classifier) Classify(ds *model.Dataset) Result {
	profiles := profile.Dataset(ds)
	normalized := make([]string, len(ds.Columns))
	for i, col := range ds.Columns {
		normalized[i] = NormalizeName(col)
	}

	var best *candidate
	for _, d := range c.rules.Domains {
		cand := &candidate{domain: d, rules: make(map[string]bool), suggest: make(map[string]model.ColumnOverride)}
		for i, col := range ds.Columns {
			rule, ok := matchRule(d.Rules, normalized[i], profiles[col])
			if !ok {
				continue
			}
			cand.rules[rule.Name] = true
			cand.matches = append(cand.matches, Match{Column: col, Rule: rule.Name})
			if rule.Suggest != nil {
				cand.suggest[col] = rule.Suggest.override()
			}
		}

		threshold := d.minMatches(c.rules.Defaults.MinMatches)
		if c.minMatches > 0 {
			threshold = c.minMatches
		}
		zap.L().Debug("domain: scored",
			zap.String("domain", d.Name),
			zap.Int("score", len(cand.rules)),
			zap.Int("threshold", threshold),
		)
		if len(cand.rules) < threshold {
			continue
		}
		if best == nil || len(cand.rules) > len(best.rules) {
			best = cand
		}
	}

	if best == nil {
		return Result{}
	}
	res := Result{
		Domain:  best.domain.Name,
		Score:   len(best.rules),
		Matches: best.matches,
	}
	if len(best.suggest) > 0 {
		res.Suggested = model.PartialConfig{Columns: best.suggest}
	}
	return res
}

// matchRule returns the first rule whose pattern and type constraints accept
// the column.
func matchRule(rules []Rule, normalized string, p profile.Column) (Rule, bool) {
	for _, r := range rules {
		if len(r.Types) > 0 && !slices.Contains(r.Types, p.Type) {
			continue
		}
		for _, pat := range r.Patterns {
			if matchesPattern(normalized, pat) {
				return r, true
			}
		}
	}
	return Rule{}, false
}
