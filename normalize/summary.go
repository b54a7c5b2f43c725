package normalize

import "strings"

// ResponseSummary is a renderer-facing digest of a large response body,
// ported from the original crate's utils/response_summary.rs: spec.md
// §4.10 names is_large_response but not what a summary should contain, so
// this supplements it with enough structure for an external renderer to
// show something useful without re-parsing the full body.
type ResponseSummary struct {
	ContentType ContentType
	SizeBytes   int
	LineCount   int
	Head        string
	Tail        string
}

const summaryExcerptLines = 5

// Summarize builds a ResponseSummary for body, given its declared
// content-type header value (may be empty).
func Summarize(headerValue, body string) ResponseSummary {
	lines := strings.Split(body, "\n")
	head := lines
	if len(head) > summaryExcerptLines {
		head = head[:summaryExcerptLines]
	}
	tail := lines
	if len(tail) > summaryExcerptLines {
		tail = tail[len(tail)-summaryExcerptLines:]
	}

	return ResponseSummary{
		ContentType: DetectContentType(headerValue, body),
		SizeBytes:   len(body),
		LineCount:   len(lines),
		Head:        strings.Join(head, "\n"),
		Tail:        strings.Join(tail, "\n"),
	}
}
