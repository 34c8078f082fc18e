// Package rules implements the ordered rule table used as the second tier
// of categorization. Rules are configuration, not logic: they are loaded
// from YAML (or the embedded default set), and their order in the file is
// their evaluation order. First match wins.
package rules

import (
	"fmt"
	"regexp"
	"strings"
)

// Rule is one (pattern, category, deductible) record. Pattern is a regular
// expression compiled case-insensitively.
type Rule struct {
	Pattern    string `yaml:"pattern"`
	Category   string `yaml:"category"`
	Deductible bool   `yaml:"deductible"`
}

// Match is a rule table hit. The category is a name, not an id; resolving
// it against the registry (and failing soft when absent) is the caller's job.
type Match struct {
	Category   string
	Deductible bool
}

type compiledRule struct {
	re         *regexp.Regexp
	category   string
	deductible bool
}

// Table is an ordered, compiled rule sequence. Reordering rules changes
// behavior, so a Table is built from a slice, never a map.
type Table struct {
	rules []compiledRule
}

// NewTable compiles the given rules in order. An invalid pattern or an
// empty category is a configuration error, reported with its index.
func NewTable(rs []Rule) (*Table, error) {
	compiled := make([]compiledRule, 0, len(rs))
	for i, r := range rs {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rule %d: empty pattern", i)
		}
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %d: empty category", i)
		}
		re, err := regexp.Compile("(?i)" + r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %d: compile pattern %q: %w", i, r.Pattern, err)
		}
		compiled = append(compiled, compiledRule{
			re:         re,
			category:   r.Category,
			deductible: r.Deductible,
		})
	}
	return &Table{rules: compiled}, nil
}

// Classify tests the rules in table order against the given text and
// returns the first match. The text is whatever the caller assembled;
// the matcher does not care where it came from.
func (t *Table) Classify(text string) (Match, bool) {
	for _, r := range t.rules {
		if r.re.MatchString(text) {
			return Match{Category: r.category, Deductible: r.deductible}, true
		}
	}
	return Match{}, false
}

// Len returns the number of rules in the table.
func (t *Table) Len() int {
	return len(t.rules)
}

// SearchText builds the single string a transaction is matched against:
// counterparty and description concatenated, either may be empty.
func SearchText(counterparty, description string) string {
	return strings.TrimSpace(counterparty + " " + description)
}
