// Package normalize canonicalizes response bodies before comparison
// (spec.md §4.9) and normalizes headers for diffing. Content type is
// detected heuristically: an explicit header wins, otherwise body content
// sniffing (leading '{'/'[' parsed as JSON => json, leading '<' => xml/html,
// else text) the way the original crate's comparison/content.rs does it.
package normalize

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ContentType is the detected/declared kind of a response body.
type ContentType string

const (
	ContentJSON ContentType = "json"
	ContentXML  ContentType = "xml"
	ContentText ContentType = "text"
)

// DetectContentType inspects an explicit Content-Type header value (may be
// empty) and the body to classify it.
func DetectContentType(headerValue, body string) ContentType {
	lower := strings.ToLower(headerValue)
	switch {
	case strings.Contains(lower, "json"):
		return ContentJSON
	case strings.Contains(lower, "xml"), strings.Contains(lower, "html"):
		return ContentXML
	case lower != "":
		return ContentText
	}

	trimmed := strings.TrimSpace(body)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if json.Valid([]byte(trimmed)) {
			return ContentJSON
		}
	}
	if strings.HasPrefix(trimmed, "<") {
		return ContentXML
	}
	return ContentText
}

// Normalize canonicalizes body per its detected content type. Idempotent:
// Normalize(Normalize(x)) == Normalize(x) for any x, and equal for any two
// JSON encodings (pretty vs compact) of the same value — spec.md §8's
// round-trip properties.
func Normalize(headerValue, body string) string {
	switch DetectContentType(headerValue, body) {
	case ContentJSON:
		if normalized, ok := normalizeJSON(body); ok {
			return normalized
		}
		return normalizeText(body) // parse failure falls back to plain text
	case ContentXML:
		return normalizeMarkup(body)
	default:
		return normalizeText(body)
	}
}

// normalizeJSON re-marshals body with sorted object keys (via a
// map[string]any/[]any round trip, which encoding/json already keys in
// sorted order) and a single canonical separator style.
func normalizeJSON(body string) (string, bool) {
	var v any
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", false
	}
	return strings.TrimRight(buf.String(), "\n"), true
}

// normalizeMarkup trims each line and drops empty lines — XML/HTML bodies
// often differ only in indentation between environments.
func normalizeMarkup(body string) string {
	return normalizeLines(body)
}

// normalizeText trims each line, preserving blank lines (unlike markup,
// plain-text bodies may be meaningfully multi-paragraph).
func normalizeText(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(strings.TrimLeft(l, " \t"), " \t\r")
	}
	return strings.Join(lines, "\n")
}

func normalizeLines(body string) string {
	lines := strings.Split(body, "\n")
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return strings.Join(out, "\n")
}
