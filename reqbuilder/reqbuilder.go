// Package reqbuilder assembles a fully-formed HTTP request for one
// (route, environment, user) triple, applying spec.md §4.4's layered
// overrides and substitution, and independently renders a shell-safe
// curl-equivalent string for the same request (ported from the original
// crate's curl.rs).
package reqbuilder

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/userdata"
)

// Request is a fully-formed, ready-to-send HTTP request.
type Request struct {
	Method         string
	URL            string
	Headers        map[string]string
	Body           string
	CurlEquivalent string

	// Route and Environment identify which (route, env) this request was
	// built for — not part of the wire request, but carried through for
	// logging and for stub/fake lookups in tests.
	Route       string
	Environment string
}

// Build assembles a Request for route against environment env, given the
// global config and a value resolver (user data, falling back to the
// extracted-value context) for substitution.
//
// URL assembly follows spec.md §4.4 exactly: route.base_urls[env] overrides
// env.base_url, trailing slash trimmed, substituted path appended, then
// query pairs appended in order (global params overlaid by route params).
// Header precedence is global < environment < route, each value
// substituted. Body is substituted in non-strict mode (a body referencing
// an optional field shouldn't abort the whole request).
func Build(route config.Route, env config.Environment, global config.GlobalConfig, resolver userdata.Resolver, knownNames []string) (Request, error) {
	base := route.BaseURLs[env.Name]
	if base == "" {
		base = env.BaseURL
	}
	base = strings.TrimRight(base, "/")

	path, err := userdata.Substitute(route.Path, resolver, userdata.ModeURLEncode, true, knownNames)
	if err != nil {
		return Request{}, err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	fullURL := base + path

	parsed, err := url.Parse(fullURL)
	if err != nil {
		return Request{}, fmt.Errorf("building URL for route %q: %w", route.Name, err)
	}

	query := parsed.Query()
	for _, pair := range orderedPairs(global.Params) {
		v, err := userdata.Substitute(pair.value, resolver, userdata.ModeRaw, false, knownNames)
		if err != nil {
			return Request{}, err
		}
		query.Set(pair.key, v)
	}
	for _, pair := range orderedPairs(route.Params) {
		v, err := userdata.Substitute(pair.value, resolver, userdata.ModeRaw, false, knownNames)
		if err != nil {
			return Request{}, err
		}
		query.Set(pair.key, v)
	}
	parsed.RawQuery = query.Encode()

	headers := make(map[string]string)
	for _, layer := range []map[string]string{global.Headers, env.Headers, route.Headers} {
		for _, pair := range orderedPairs(layer) {
			v, err := userdata.Substitute(pair.value, resolver, userdata.ModeRaw, false, knownNames)
			if err != nil {
				return Request{}, err
			}
			headers[pair.key] = v
		}
	}

	body, err := userdata.Substitute(route.Body, resolver, userdata.ModeRaw, false, knownNames)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Method:      route.Method,
		URL:         parsed.String(),
		Headers:     headers,
		Body:        body,
		Route:       route.Name,
		Environment: env.Name,
	}
	req.CurlEquivalent = CurlEquivalent(req)
	return req, nil
}

type kv struct{ key, value string }

// orderedPairs returns map entries sorted by key, so query/header assembly
// is deterministic across runs (spec.md §8's determinism property).
func orderedPairs(m map[string]string) []kv {
	out := make([]kv, 0, len(m))
	for k, v := range m {
		out = append(out, kv{k, v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// CurlEquivalent renders req as a reproducible shell command, single-quote
// escaping every argument the way the original crate's curl.rs does:
// wrap the whole value in single quotes, and turn each literal "'" into
// "'\''" (close the quote, emit an escaped quote, reopen the quote).
func CurlEquivalent(req Request) string {
	var b strings.Builder
	b.WriteString("curl")

	if req.Method != "" && req.Method != "GET" {
		b.WriteString(" -X ")
		b.WriteString(shellQuote(req.Method))
	}

	for _, pair := range orderedPairs(req.Headers) {
		b.WriteString(" -H ")
		b.WriteString(shellQuote(pair.key + ": " + pair.value))
	}

	if req.Body != "" {
		b.WriteString(" --data ")
		b.WriteString(shellQuote(req.Body))
	}

	b.WriteString(" ")
	b.WriteString(shellQuote(req.URL))

	return b.String()
}

// shellQuote wraps s in single quotes, escaping embedded single quotes the
// POSIX-shell-safe way.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
