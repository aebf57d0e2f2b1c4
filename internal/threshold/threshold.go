// Package threshold parses and evaluates pass/fail rules over the final
// metrics snapshot.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dsr-ph/dsr-loadtest/internal/loadmetrics"
	"github.com/dsr-ph/dsr-loadtest/pkg/errors"
)

// Comparator is a threshold comparison operator
type Comparator string

const (
	ComparatorLT  Comparator = "<"
	ComparatorLTE Comparator = "<="
	ComparatorGT  Comparator = ">"
	ComparatorGTE Comparator = ">="
)

// Rule is one parsed threshold expression, e.g. "response_time.p95<2000".
// Field is empty when the rule targets the metric's default field.
type Rule struct {
	Metric     string     `json:"metric"`
	Field      string     `json:"field,omitempty"`
	Comparator Comparator `json:"comparator"`
	Limit      float64    `json:"limit"`
}

// String serializes the rule back to its expression form
func (r Rule) String() string {
	return fmt.Sprintf("%s%s%v", r.selector(), r.Comparator, r.Limit)
}

// Result is the evaluation of one rule against a snapshot. A rule whose
// metric never recorded a sample fails with Err set; silence is not a pass.
type Result struct {
	Rule   Rule    `json:"rule"`
	Passed bool    `json:"passed"`
	Actual float64 `json:"actual"`
	Err    string  `json:"error,omitempty"`
}

// comparators is ordered so two-character operators match before their
// one-character prefixes.
var comparators = []Comparator{ComparatorLTE, ComparatorGTE, ComparatorLT, ComparatorGT}

// Parse parses a single threshold expression of the form
// <metric>[.<field>]<comparator><number>.
func Parse(expr string) (Rule, error) {
	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return Rule{}, errors.NewConfigurationError("threshold expression is empty")
	}

	for _, cmp := range comparators {
		idx := strings.Index(trimmed, string(cmp))
		if idx < 0 {
			continue
		}

		name := strings.TrimSpace(trimmed[:idx])
		rawLimit := strings.TrimSpace(trimmed[idx+len(cmp):])

		if name == "" {
			return Rule{}, errors.NewConfigurationError(fmt.Sprintf("threshold %q has no metric name", expr))
		}

		limit, err := strconv.ParseFloat(rawLimit, 64)
		if err != nil {
			return Rule{}, errors.NewConfigurationError(fmt.Sprintf("threshold %q has invalid limit %q", expr, rawLimit)).WithCause(err)
		}

		rule := Rule{Comparator: cmp, Limit: limit}
		if dot := strings.Index(name, "."); dot >= 0 {
			rule.Metric = name[:dot]
			rule.Field = name[dot+1:]
			if rule.Metric == "" || rule.Field == "" {
				return Rule{}, errors.NewConfigurationError(fmt.Sprintf("threshold %q has malformed metric selector %q", expr, name))
			}
		} else {
			rule.Metric = name
		}

		return rule, nil
	}

	return Rule{}, errors.NewConfigurationError(fmt.Sprintf("threshold %q has no comparator", expr))
}

// ParseAll parses every expression, failing on the first malformed one
func ParseAll(exprs []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(exprs))
	for _, expr := range exprs {
		rule, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Evaluate checks every rule against the snapshot. Comparisons are strict
// per the comparator; a p95 exactly at a "<" limit fails.
func Evaluate(rules []Rule, snap loadmetrics.Snapshot) []Result {
	results := make([]Result, 0, len(rules))

	for _, rule := range rules {
		actual, ok := snap.Value(rule.Metric, rule.Field)
		if !ok {
			results = append(results, Result{
				Rule:   rule,
				Passed: false,
				Err:    errors.NewMetricNotFoundError(rule.selector()).Message,
			})
			continue
		}

		results = append(results, Result{
			Rule:   rule,
			Passed: compare(actual, rule.Comparator, rule.Limit),
			Actual: actual,
		})
	}

	return results
}

// AllPassed reports whether every result passed
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func (r Rule) selector() string {
	if r.Field == "" {
		return r.Metric
	}
	return r.Metric + "." + r.Field
}

func compare(actual float64, cmp Comparator, limit float64) bool {
	switch cmp {
	case ComparatorLT:
		return actual < limit
	case ComparatorLTE:
		return actual <= limit
	case ComparatorGT:
		return actual > limit
	case ComparatorGTE:
		return actual >= limit
	default:
		return false
	}
}
