// Package condition evaluates spec.md's ExecutionCondition list to decide,
// per (route, user), whether a request should be issued at all. Grounded on
// the original crate's conditions/evaluator.rs: numeric comparisons parse
// both sides as floats, exists/not_exists only check presence, and a
// missing variable fails every operator except not_equals/not_contains.
package condition

import (
	"os"
	"strconv"
	"strings"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/userdata"
)

// Resolver looks a condition variable up by name, trying user data first,
// then the extracted-value context, then (for "env."-prefixed names) the
// process environment — spec.md §3's ExecutionCondition resolution order.
type Resolver struct {
	UserData userdata.Resolver
	Context  userdata.Resolver // typically execctx's per-user lookup
}

func (r Resolver) resolve(variable string) (string, bool) {
	if r.UserData != nil {
		if v, ok := r.UserData.Resolve(variable); ok {
			return v, true
		}
	}
	if r.Context != nil {
		if v, ok := r.Context.Resolve(variable); ok {
			return v, true
		}
	}
	if after, ok := strings.CutPrefix(variable, "env."); ok {
		v, ok := os.LookupEnv(after)
		return v, ok
	}
	return "", false
}

// Evaluate returns true iff every condition passes. An empty condition list
// means unconditional execution.
func Evaluate(conditions []config.ExecutionCondition, r Resolver) bool {
	for _, c := range conditions {
		if !evaluateOne(c, r) {
			return false
		}
	}
	return true
}

func evaluateOne(c config.ExecutionCondition, r Resolver) bool {
	value, present := r.resolve(c.Variable)

	switch c.Operator {
	case config.OpExists:
		return present
	case config.OpNotExists:
		return !present
	case config.OpNotEquals:
		if !present {
			return true
		}
		return value != deref(c.Value)
	case config.OpNotContains:
		if !present {
			return true
		}
		return !strings.Contains(value, deref(c.Value))
	}

	// Every remaining operator fails on an absent variable.
	if !present {
		return false
	}

	switch c.Operator {
	case config.OpEquals:
		return value == deref(c.Value)
	case config.OpContains:
		return strings.Contains(value, deref(c.Value))
	case config.OpGreaterThan, config.OpLessThan:
		a, aOK := parseFloat(value)
		b, bOK := parseFloat(deref(c.Value))
		if !aOK || !bOK {
			return false
		}
		if c.Operator == config.OpGreaterThan {
			return a > b
		}
		return a < b
	default:
		return false
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
