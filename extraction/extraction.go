// Package extraction pulls named values out of an HttpResponse per
// spec.md §4.7: StatusCode, Header, JsonPath, and Regex rule types, each
// producing a typed ExtractedValue that the context manager then publishes.
package extraction

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/errclass"
	"github.com/BDNK1/httpdiff/execctx"
	"github.com/BDNK1/httpdiff/httpclient"
)

// one evaluates a single rule against resp, returning (value, found, err).
func one(rule config.ExtractionRule, resp httpclient.HttpResponse) (string, bool, error) {
	switch rule.Type {
	case config.ExtractionStatusCode:
		return strconv.Itoa(resp.Status), true, nil

	case config.ExtractionHeader:
		v, ok := resp.Headers.Get(rule.Pattern)
		return v, ok, nil

	case config.ExtractionJSONPath:
		return EvalJSONPath([]byte(resp.Body), rule.Pattern)

	case config.ExtractionRegex:
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return "", false, fmt.Errorf("invalid regex %q: %w", rule.Pattern, err)
		}
		m := re.FindStringSubmatch(resp.Body)
		if m == nil {
			return "", false, nil
		}
		if len(m) > 1 {
			return m[1], true, nil
		}
		return m[0], true, nil

	default:
		return "", false, fmt.Errorf("unknown extraction type %q", rule.Type)
	}
}

// Outcome carries either a published value or a hard extraction failure for
// one rule.
type Outcome struct {
	Value *execctx.ExtractedValue
	Err   *errclass.EngineError
}

// ExtractAll runs every rule in rules against resp, applying spec.md §4.7's
// failure policy: a required rule with no value is an ExtractionError; a
// non-required rule with no value falls back to its default if set, else is
// skipped silently (no Outcome emitted for it).
func ExtractAll(route string, env string, rules []config.ExtractionRule, resp httpclient.HttpResponse) []Outcome {
	var out []Outcome
	for _, rule := range rules {
		value, found, err := one(rule, resp)

		if err != nil {
			out = append(out, Outcome{Err: errclass.ExtractionFailed(route, rule.Key, err.Error())})
			continue
		}

		if !found {
			if rule.Required {
				out = append(out, Outcome{Err: errclass.ExtractionFailed(route, rule.Key, "no value matched and rule is required")})
				continue
			}
			if rule.Default != nil {
				value = *rule.Default
				found = true
			}
		}

		if !found {
			continue // not required, no default: skip silently
		}

		out = append(out, Outcome{Value: &execctx.ExtractedValue{
			Key:           rule.Key,
			Value:         value,
			SourcePattern: rule.Pattern,
			Type:          string(rule.Type),
			Environment:   env,
			Route:         route,
		}})
	}
	return out
}
