package normalize

import "strings"

// HeaderNormalizer lower-cases header names for comparison while
// preserving the original case for display, and filters a default ignore
// set extendable per configuration (spec.md §4.9's companion normalizer).
type HeaderNormalizer struct {
	ignored map[string]bool
}

// NewHeaderNormalizer builds a normalizer with the given ignore list
// (case-insensitive).
func NewHeaderNormalizer(ignored []string) HeaderNormalizer {
	m := make(map[string]bool, len(ignored))
	for _, h := range ignored {
		m[strings.ToLower(h)] = true
	}
	return HeaderNormalizer{ignored: m}
}

// Ignored reports whether name should be excluded from header diffing.
func (n HeaderNormalizer) Ignored(name string) bool {
	return n.ignored[strings.ToLower(name)]
}

// Filter returns headers with every ignored name removed, keyed by their
// original-case name for display.
func (n HeaderNormalizer) Filter(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if !n.Ignored(k) {
			out[k] = v
		}
	}
	return out
}
