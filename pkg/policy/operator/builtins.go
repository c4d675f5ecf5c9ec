package operator

import (
	"fmt"
	"reflect"
	"regexp"

	"mercator-hq/callisto/pkg/policy/residual"
)

func init() {
	for _, spec := range builtinSpecs() {
		if err := defaultRegistry.Register(spec); err != nil {
			panic(err)
		}
	}
}

// builtinSpecs returns the comparison operators every registry host is
// expected to have.
func builtinSpecs() []Spec {
	return []Spec{
		{
			Key:       "=",
			Eval:      evalEqual,
			NegateKey: "!=",
			Simplify:  simplifyEqual,
			Subsumes:  subsumesEqual,
		},
		{
			Key:       "!=",
			Eval:      evalNotEqual,
			NegateKey: "=",
			Simplify:  simplifyDistinct,
		},
		{
			Key:       "<",
			Eval:      numericEval(func(a, b float64) bool { return a < b }),
			NegateKey: ">=",
			Simplify:  simplifyBound("<", false),
			Subsumes:  subsumesBound(false),
		},
		{
			Key:       ">",
			Eval:      numericEval(func(a, b float64) bool { return a > b }),
			NegateKey: "<=",
			Simplify:  simplifyBound(">", true),
			Subsumes:  subsumesBound(true),
		},
		{
			Key:       "<=",
			Eval:      numericEval(func(a, b float64) bool { return a <= b }),
			NegateKey: ">",
			Simplify:  simplifyBound("<=", false),
			Subsumes:  subsumesBound(false),
		},
		{
			Key:       ">=",
			Eval:      numericEval(func(a, b float64) bool { return a >= b }),
			NegateKey: "<",
			Simplify:  simplifyBound(">=", true),
			Subsumes:  subsumesBound(true),
		},
		{
			Key:       "in",
			Eval:      evalIn,
			NegateKey: "not-in",
			Simplify:  simplifyIn,
		},
		{
			Key:       "not-in",
			Eval:      evalNotIn,
			NegateKey: "in",
			Simplify:  simplifyNotIn,
		},
		{
			Key:       "matches",
			Eval:      evalMatches,
			NegateKey: "not-matches",
		},
		{
			Key:       "not-matches",
			Eval:      evalNotMatches,
			NegateKey: "matches",
		},
	}
}

// evalEqual compares two values, trying numeric comparison first so int
// and float64 document values compare equal, falling back to deep
// equality.
func evalEqual(actual, expected any) (bool, error) {
	if actual == nil && expected == nil {
		return true, nil
	}
	if actual == nil || expected == nil {
		return false, nil
	}

	actualNum, aerr := toFloat64(actual)
	expectedNum, eerr := toFloat64(expected)
	if aerr == nil && eerr == nil {
		return actualNum == expectedNum, nil
	}

	return reflect.DeepEqual(actual, expected), nil
}

func evalNotEqual(actual, expected any) (bool, error) {
	equal, err := evalEqual(actual, expected)
	return !equal, err
}

// numericEval builds an EvalFunc from a float64 comparison.
func numericEval(cmp func(a, b float64) bool) EvalFunc {
	return func(actual, expected any) (bool, error) {
		a, b, err := toNumericPair(actual, expected)
		if err != nil {
			return false, err
		}
		return cmp(a, b), nil
	}
}

// evalIn checks membership of actual in the expected slice.
func evalIn(actual, expected any) (bool, error) {
	members, err := toSlice(expected)
	if err != nil {
		return false, fmt.Errorf("in operator: %w", err)
	}
	for _, m := range members {
		if equal, _ := evalEqual(actual, m); equal {
			return true, nil
		}
	}
	return false, nil
}

func evalNotIn(actual, expected any) (bool, error) {
	in, err := evalIn(actual, expected)
	return !in, err
}

// evalMatches checks actual (stringified) against the expected regex.
func evalMatches(actual, expected any) (bool, error) {
	pattern, ok := expected.(string)
	if !ok {
		return false, fmt.Errorf("matches operator requires a string pattern, got %T", expected)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
	}
	return re.MatchString(stringify(actual)), nil
}

func evalNotMatches(actual, expected any) (bool, error) {
	matched, err := evalMatches(actual, expected)
	return !matched, err
}

// simplifyEqual keeps a single equality constraint when all expected
// values agree and contradicts otherwise.
func simplifyEqual(constraints []residual.Constraint) SimplifyResult {
	if len(constraints) == 0 {
		return SimplifyResult{}
	}
	first := constraints[0]
	for _, c := range constraints[1:] {
		if equal, _ := evalEqual(first.Value, c.Value); !equal {
			return SimplifyResult{Contradicted: true}
		}
	}
	return SimplifyResult{Simplified: []residual.Constraint{first}}
}

func subsumesEqual(a, b residual.Constraint) bool {
	equal, _ := evalEqual(a.Value, b.Value)
	return equal
}

// simplifyDistinct deduplicates != constraints; they never contradict
// each other.
func simplifyDistinct(constraints []residual.Constraint) SimplifyResult {
	var out []residual.Constraint
	for _, c := range constraints {
		dup := false
		for _, kept := range out {
			if equal, _ := evalEqual(kept.Value, c.Value); equal {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return SimplifyResult{Simplified: out}
}

// simplifyBound keeps the tightest bound: the maximum of lower bounds,
// the minimum of upper bounds. Non-numeric expected values leave the
// constraint set untouched.
func simplifyBound(op string, lower bool) SimplifyFunc {
	return func(constraints []residual.Constraint) SimplifyResult {
		if len(constraints) <= 1 {
			return SimplifyResult{Simplified: constraints}
		}
		best := constraints[0]
		bestNum, err := toFloat64(best.Value)
		if err != nil {
			return SimplifyResult{Simplified: constraints}
		}
		for _, c := range constraints[1:] {
			num, err := toFloat64(c.Value)
			if err != nil {
				return SimplifyResult{Simplified: constraints}
			}
			if (lower && num > bestNum) || (!lower && num < bestNum) {
				best, bestNum = c, num
			}
		}
		return SimplifyResult{Simplified: []residual.Constraint{best}}
	}
}

// subsumesBound reports redundancy between two bounds of the same
// direction: the tighter bound subsumes the looser.
func subsumesBound(lower bool) SubsumesFunc {
	return func(a, b residual.Constraint) bool {
		an, aerr := toFloat64(a.Value)
		bn, berr := toFloat64(b.Value)
		if aerr != nil || berr != nil {
			return false
		}
		if lower {
			return an >= bn
		}
		return an <= bn
	}
}

// simplifyIn intersects membership sets; an empty intersection is a
// contradiction.
func simplifyIn(constraints []residual.Constraint) SimplifyResult {
	if len(constraints) == 0 {
		return SimplifyResult{}
	}
	current, err := toSlice(constraints[0].Value)
	if err != nil {
		return SimplifyResult{Simplified: constraints}
	}
	for _, c := range constraints[1:] {
		next, err := toSlice(c.Value)
		if err != nil {
			return SimplifyResult{Simplified: constraints}
		}
		current = intersect(current, next)
	}
	if len(current) == 0 {
		return SimplifyResult{Contradicted: true}
	}
	return SimplifyResult{Simplified: []residual.Constraint{{
		Op:    constraints[0].Op,
		Value: current,
	}}}
}

// simplifyNotIn unions exclusion sets.
func simplifyNotIn(constraints []residual.Constraint) SimplifyResult {
	if len(constraints) == 0 {
		return SimplifyResult{}
	}
	var union []any
	for _, c := range constraints {
		members, err := toSlice(c.Value)
		if err != nil {
			return SimplifyResult{Simplified: constraints}
		}
		for _, m := range members {
			if !containsValue(union, m) {
				union = append(union, m)
			}
		}
	}
	return SimplifyResult{Simplified: []residual.Constraint{{
		Op:    constraints[0].Op,
		Value: union,
	}}}
}

func intersect(a, b []any) []any {
	var out []any
	for _, v := range a {
		if containsValue(b, v) && !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func containsValue(values []any, v any) bool {
	for _, m := range values {
		if equal, _ := evalEqual(m, v); equal {
			return true
		}
	}
	return false
}

// toNumericPair converts both operands to float64 for comparison.
func toNumericPair(actual, expected any) (float64, float64, error) {
	a, err := toFloat64(actual)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert actual value to number: %w", err)
	}
	b, err := toFloat64(expected)
	if err != nil {
		return 0, 0, fmt.Errorf("cannot convert expected value to number: %w", err)
	}
	return a, b, nil
}

// toFloat64 converts numeric values of any Go width to float64.
func toFloat64(v any) (float64, error) {
	switch val := v.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

// toSlice normalizes slice/array values to []any.
func toSlice(v any) ([]any, error) {
	if vs, ok := v.([]any); ok {
		return vs, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected a slice or array, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}
