package diffengine

import (
	"fmt"
	"sort"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/BDNK1/httpdiff/normalize"
)

// Compare pairs baseEnv's response against every other environment present
// in responses, unions the resulting Differences, and computes the
// invariant-bearing summary fields (spec.md §4.10, §8).
//
// envOrder is the declared environment order (config.Config.
// OrderedEnvironmentNames); it only controls iteration order for
// determinism, it does not filter which environments participate —
// responses is the source of truth for which environments ran.
func Compare(routeName, userContext, baseEnv string, envOrder []string, responses map[string]httpclient.HttpResponse, global config.GlobalConfig) ComparisonResult {
	headerNorm := normalize.NewHeaderNormalizer(global.IgnoredHeaders)

	result := ComparisonResult{
		RouteName:       routeName,
		UserContext:     userContext,
		Responses:       responses,
		StatusCodes:     make(map[string]int, len(responses)),
		ErrorBodies:     map[string]string{},
		BaseEnvironment: baseEnv,
	}

	for env, resp := range responses {
		result.StatusCodes[env] = resp.Status
		if resp.Status < 200 || resp.Status >= 300 {
			result.HasErrors = true
			result.ErrorBodies[env] = resp.Body
		}
	}

	base, haveBase := responses[baseEnv]
	if !haveBase {
		result.IsIdentical = len(result.Differences) == 0
		return result
	}

	for _, env := range orderedOtherEnvs(envOrder, responses, baseEnv) {
		other := responses[env]
		result.Differences = append(result.Differences, compareOne(baseEnv, env, base, other, headerNorm, global.CompareHeaders, global.LargeResponseThresholdBytes)...)
	}

	result.IsIdentical = len(result.Differences) == 0
	return result
}

// orderedOtherEnvs returns every environment present in responses except
// baseEnv, in envOrder's order first, then any remaining environments not
// named in envOrder sorted lexicographically (keeps the result deterministic
// even if responses names an environment envOrder doesn't know about).
func orderedOtherEnvs(envOrder []string, responses map[string]httpclient.HttpResponse, baseEnv string) []string {
	seen := make(map[string]bool, len(responses))
	var out []string
	for _, env := range envOrder {
		if env == baseEnv {
			continue
		}
		if _, ok := responses[env]; ok && !seen[env] {
			out = append(out, env)
			seen[env] = true
		}
	}
	var rest []string
	for env := range responses {
		if env == baseEnv || seen[env] {
			continue
		}
		rest = append(rest, env)
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func compareOne(baseEnv, otherEnv string, base, other httpclient.HttpResponse, headerNorm normalize.HeaderNormalizer, compareHeaders bool, largeThreshold int) []Difference {
	var diffs []Difference

	if base.Status != other.Status {
		diffs = append(diffs, Difference{
			Category:    CategoryStatus,
			Description: fmt.Sprintf("%s returned %d, %s returned %d", baseEnv, base.Status, otherEnv, other.Status),
		})
	}

	if compareHeaders {
		if hd := diffHeaders(base.Headers, other.Headers, headerNorm); len(hd) > 0 {
			names := make([]string, len(hd))
			for i, h := range hd {
				names[i] = h.Name
			}
			diffs = append(diffs, Difference{
				Category:    CategoryHeaders,
				Description: fmt.Sprintf("%s and %s differ in headers: %v", baseEnv, otherEnv, names),
				Payload:     hd,
			})
		}
	}

	baseCT, _ := base.Headers.Get("Content-Type")
	otherCT, _ := other.Headers.Get("Content-Type")
	normBase := normalize.Normalize(baseCT, base.Body)
	normOther := normalize.Normalize(otherCT, other.Body)
	if normBase != normOther {
		totalSize := len(base.Body) + len(other.Body)
		diffs = append(diffs, Difference{
			Category:    CategoryBody,
			Description: fmt.Sprintf("%s and %s bodies differ", baseEnv, otherEnv),
			Payload: BodyDiff{
				NormalizedBase:  normBase,
				NormalizedOther: normOther,
				TotalSize:       totalSize,
				IsLargeResponse: totalSize > largeThreshold,
			},
		})
	}

	return diffs
}

// diffHeaders compares two header sets after filtering the ignore set,
// reporting a HeaderDiff for every name present on either side with
// differing (or one-sided) values. Output is sorted by name for determinism.
func diffHeaders(base, other httpclient.Headers, norm normalize.HeaderNormalizer) []HeaderDiff {
	names := map[string]bool{}
	for k := range base {
		if !norm.Ignored(k) {
			names[k] = true
		}
	}
	for k := range other {
		if !norm.Ignored(k) {
			names[k] = true
		}
	}

	var out []HeaderDiff
	for name := range names {
		bv, bok := base.Get(name)
		ov, ook := other.Get(name)
		if bok && ook && bv == ov {
			continue
		}
		out = append(out, HeaderDiff{Name: name, ValueBase: bv, ValueOther: ov})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
