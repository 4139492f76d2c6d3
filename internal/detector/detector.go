package detector

import (
	"fmt"
	"regexp"
	"strings"
)

// Match records one firing of a rule: which rule fired, the exact
// substring it matched and the byte span of that substring in the
// original text. Spans are kept so the mitigation layer can neutralize
// the offending text without re-running detection.
type Match struct {
	Rule  string `json:"rule"`
	Text  string `json:"text"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Result is the outcome of one detection pass. It is immutable once
// returned: callers must treat it as a value object.
type Result struct {
	// Matches maps each category with at least one firing rule to its
	// matches, ordered by rule order and match position. Categories
	// with no matches are absent from the map.
	Matches map[Category][]Match
}

// Has reports whether the category fired at least once.
func (r *Result) Has(c Category) bool {
	return len(r.Matches[c]) > 0
}

// Count returns the number of matches recorded for the category.
func (r *Result) Count(c Category) int {
	return len(r.Matches[c])
}

// Detected returns the categories that fired, in canonical order.
func (r *Result) Detected() []Category {
	out := make([]Category, 0, len(r.Matches))
	for _, c := range categoryOrder {
		if r.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

type rule struct {
	name string
	re   *regexp.Regexp
}

// Detector scans text against per-category pattern tables. The tables
// are compiled once at construction and never mutated afterwards, so a
// single Detector is safe for unsynchronized concurrent use.
type Detector struct {
	rules map[Category][]rule
}

// New builds a detector with the built-in rule table.
func New() *Detector {
	rules := make(map[Category][]rule, len(defaultRuleSpecs))
	for cat, specs := range defaultRuleSpecs {
		for _, spec := range specs {
			r, err := compileRule(spec)
			if err != nil {
				// Built-in rules are covered by tests; a compile
				// failure here is a programming error.
				panic(err)
			}
			rules[cat] = append(rules[cat], r)
		}
	}
	return &Detector{rules: rules}
}

// NewWithExtra builds a detector with the built-in table plus extra
// rules, typically loaded from config. Extra rules are appended after
// the built-in rules of their category.
func NewWithExtra(extra map[Category][]RuleSpec) (*Detector, error) {
	d := New()
	for cat, specs := range extra {
		if _, ok := displayNames[cat]; !ok {
			return nil, fmt.Errorf("unknown attack category %q", cat)
		}
		for _, spec := range specs {
			r, err := compileRule(spec)
			if err != nil {
				return nil, fmt.Errorf("category %s: %w", cat, err)
			}
			d.rules[cat] = append(d.rules[cat], r)
		}
	}
	return d, nil
}

// Detect runs every rule of every category against the full text.
// Categories are independent: the same text may fire several of them.
// Detection is deterministic and has no side effects; the empty string
// matches nothing.
func (d *Detector) Detect(text string) *Result {
	res := &Result{Matches: make(map[Category][]Match)}
	if text == "" {
		return res
	}
	for _, cat := range categoryOrder {
		for _, rl := range d.rules[cat] {
			for _, loc := range rl.re.FindAllStringIndex(text, -1) {
				res.Matches[cat] = append(res.Matches[cat], Match{
					Rule:  rl.name,
					Text:  text[loc[0]:loc[1]],
					Start: loc[0],
					End:   loc[1],
				})
			}
		}
	}
	return res
}

// RuleCount returns the number of compiled rules for a category.
func (d *Detector) RuleCount(c Category) int {
	return len(d.rules[c])
}

func compileRule(spec RuleSpec) (rule, error) {
	if strings.TrimSpace(spec.Pattern) == "" {
		return rule{}, fmt.Errorf("rule %q has empty pattern", spec.Name)
	}
	var expr string
	switch spec.Kind {
	case RuleKeyword:
		expr = `(?i)` + regexp.QuoteMeta(spec.Pattern)
	case RuleRegex, "":
		expr = `(?i)` + spec.Pattern
	default:
		return rule{}, fmt.Errorf("rule %q has unknown kind %q", spec.Name, spec.Kind)
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return rule{}, fmt.Errorf("rule %q: %w", spec.Name, err)
	}
	name := spec.Name
	if name == "" {
		name = spec.Pattern
	}
	return rule{name: name, re: re}, nil
}

func normalizeCategoryName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ToUpper(s)
}
