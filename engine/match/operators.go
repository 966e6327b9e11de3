package match

import (
	"fmt"
	"reflect"
	"regexp"
)

// Operator is one of the binary predicates evaluated over (actual, expected).
type Operator string

const (
	OpEquals         Operator = "equals"
	OpNotEquals      Operator = "not_equals"
	OpContains       Operator = "contains"
	OpNotContains    Operator = "not_contains"
	OpGreaterThan    Operator = "greater_than"
	OpLessThan       Operator = "less_than"
	OpGreaterOrEqual Operator = "greater_or_equal"
	OpLessOrEqual    Operator = "less_or_equal"
	OpIn             Operator = "in"
	OpNotIn          Operator = "not_in"
	OpMatchesRegex   Operator = "matches_regex"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "not_exists"
)

// EvalOperator applies op to (actual, expected). exists reports whether actual
// was present at all (used by exists/not_exists, which ignore expected).
func EvalOperator(op Operator, actual any, actualExists bool, expected any) (bool, error) {
	switch op {
	case OpExists:
		return actualExists, nil
	case OpNotExists:
		return !actualExists, nil
	case OpEquals:
		return looseEqual(actual, expected), nil
	case OpNotEquals:
		return !looseEqual(actual, expected), nil
	case OpContains:
		return contains(actual, expected), nil
	case OpNotContains:
		return !contains(actual, expected), nil
	case OpIn:
		return contains(expected, actual), nil
	case OpNotIn:
		return !contains(expected, actual), nil
	case OpGreaterThan, OpLessThan, OpGreaterOrEqual, OpLessOrEqual:
		return compareOrdered(op, actual, expected)
	case OpMatchesRegex:
		return matchesRegex(actual, expected)
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

func looseEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// compareOrdered implements the spec's "type-strict for ordering" rule:
// a comparison on mismatched types fails closed to false rather than
// erroring, so a malformed `when` clause degrades to a skip, not a crash.
func compareOrdered(op Operator, a, b any) (bool, error) {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case OpGreaterThan:
			return af > bf, nil
		case OpLessThan:
			return af < bf, nil
		case OpGreaterOrEqual:
			return af >= bf, nil
		case OpLessOrEqual:
			return af <= bf, nil
		}
	}
	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch op {
		case OpGreaterThan:
			return as > bs, nil
		case OpLessThan:
			return as < bs, nil
		case OpGreaterOrEqual:
			return as >= bs, nil
		case OpLessOrEqual:
			return as <= bs, nil
		}
	}
	return false, nil
}

func contains(haystack, needle any) bool {
	switch h := haystack.(type) {
	case string:
		s, ok := needle.(string)
		if !ok {
			return false
		}
		return regexp.MustCompile(regexp.QuoteMeta(s)).MatchString(h)
	case []any:
		for _, item := range h {
			if looseEqual(item, needle) {
				return true
			}
		}
		return false
	default:
		rv := reflect.ValueOf(haystack)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		for i := 0; i < rv.Len(); i++ {
			if looseEqual(rv.Index(i).Interface(), needle) {
				return true
			}
		}
		return false
	}
}

func matchesRegex(actual, expected any) (bool, error) {
	s, ok := actual.(string)
	if !ok {
		return false, nil
	}
	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches_regex expected a string pattern, got %T", expected)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex %q: %w", pattern, err)
	}
	return re.MatchString(s), nil
}
