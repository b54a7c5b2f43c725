// Package analysis groups comparison results with errors by extracted error
// type and assigns severity, producing the structured ErrorAnalysis a
// renderer surfaces to the operator. Kept separate from errclass (which
// httpclient imports for RequestFailed) so this package's dependency on
// diffengine, and diffengine's on httpclient, never cycles back here.
package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/BDNK1/httpdiff/diffengine"
	"github.com/BDNK1/httpdiff/errclass"
)

// Severity is the closed set of error-group severities (spec.md §4.12).
type Severity string

const (
	SeverityCritical   Severity = "Critical"
	SeverityDependency Severity = "Dependency"
	SeverityClient     Severity = "Client"
)

var severityRank = map[Severity]int{
	SeverityCritical:   1,
	SeverityDependency: 2,
	SeverityClient:     3,
}

// RouteError summarizes one failed (route, user) comparison for grouping.
type RouteError struct {
	RouteName           string
	UserContext         string
	StatusCodes         []int
	HasConsistentStatus bool
}

// ErrorGroup is every failed comparison sharing one extracted error type.
type ErrorGroup struct {
	ErrorType            string
	Severity             Severity
	AffectedRoutes        []RouteError
	UniqueErrorMessages   []string
	DebuggingSuggestion   string
}

// ErrorAnalysis is the aggregate error-classification report over one run's
// comparison results.
type ErrorAnalysis struct {
	CriticalIssues     int
	ConsistentFailures int
	TotalFailed        int
	TotalRequests      int
	FailurePercentage  float32
	ErrorGroups        []ErrorGroup
}

// Analyze groups results with HasErrors set by extracted error type and
// assigns severity, ported from the original crate's analysis/error_classifier.rs.
func Analyze(results []diffengine.ComparisonResult) ErrorAnalysis {
	totalRequests := len(results)

	var failed []diffengine.ComparisonResult
	for _, r := range results {
		if r.HasErrors {
			failed = append(failed, r)
		}
	}
	totalFailed := len(failed)

	critical, consistent := 0, 0
	for _, r := range results {
		if !r.HasErrors {
			continue
		}
		if hasConsistentStatus(r) {
			consistent++
		} else {
			critical++
		}
	}

	var failurePct float32
	if totalRequests > 0 {
		failurePct = float32(totalFailed) / float32(totalRequests) * 100.0
	}

	return ErrorAnalysis{
		CriticalIssues:     critical,
		ConsistentFailures: consistent,
		TotalFailed:        totalFailed,
		TotalRequests:      totalRequests,
		FailurePercentage:  failurePct,
		ErrorGroups:        groupErrorsByType(failed),
	}
}

// hasConsistentStatus reports whether every environment in r produced the
// same status code.
func hasConsistentStatus(r diffengine.ComparisonResult) bool {
	first, set := 0, false
	for _, status := range r.StatusCodes {
		if !set {
			first, set = status, true
			continue
		}
		if status != first {
			return false
		}
	}
	return true
}

func groupErrorsByType(failed []diffengine.ComparisonResult) []ErrorGroup {
	byType := map[string][]diffengine.ComparisonResult{}
	for _, r := range failed {
		byType[errorTypeOf(r)] = append(byType[errorTypeOf(r)], r)
	}

	groups := make([]ErrorGroup, 0, len(byType))
	for errType, resultsForType := range byType {
		var statuses []int
		for _, r := range resultsForType {
			for _, status := range r.StatusCodes {
				statuses = append(statuses, status)
			}
		}
		severity := DetermineSeverity(errType, statuses)

		affected := make([]RouteError, 0, len(resultsForType))
		for _, r := range resultsForType {
			codes := make([]int, 0, len(r.StatusCodes))
			for _, status := range r.StatusCodes {
				codes = append(codes, status)
			}
			sort.Ints(codes)
			affected = append(affected, RouteError{
				RouteName:           r.RouteName,
				UserContext:         r.UserContext,
				StatusCodes:         codes,
				HasConsistentStatus: hasConsistentStatus(r),
			})
		}

		uniqueMsgs := map[string]bool{}
		for _, r := range resultsForType {
			for env, body := range r.ErrorBodies {
				status := r.StatusCodes[env]
				uniqueMsgs[FormatErrorMessage(body, &status)] = true
			}
		}
		msgs := make([]string, 0, len(uniqueMsgs))
		for m := range uniqueMsgs {
			msgs = append(msgs, m)
		}
		sort.Strings(msgs)

		suggestion := ""
		if len(resultsForType) > 0 {
			for _, status := range resultsForType[0].StatusCodes {
				suggestion = errclass.Suggestion(errType, status)
				break
			}
		}

		groups = append(groups, ErrorGroup{
			ErrorType:           errType,
			Severity:            severity,
			AffectedRoutes:      affected,
			UniqueErrorMessages: msgs,
			DebuggingSuggestion: suggestion,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := severityRank[groups[i].Severity], severityRank[groups[j].Severity]
		if ri != rj {
			return ri < rj
		}
		return groups[i].ErrorType < groups[j].ErrorType
	})
	return groups
}

// errorTypeOf extracts the error type from the first (in map iteration,
// arbitrary-but-single) error body, falling back to "Unknown".
func errorTypeOf(r diffengine.ComparisonResult) string {
	for _, body := range r.ErrorBodies {
		return ExtractErrorType(body)
	}
	return "Unknown"
}

// ExtractErrorType reads a JSON error body's top-level "error" string field;
// failing that, it falls back to keyword matching on common error-type
// substrings, else "Unknown".
func ExtractErrorType(body string) string {
	var v map[string]any
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		if e, ok := v["error"].(string); ok && e != "" {
			return e
		}
	}

	switch {
	case strings.Contains(body, "DependencyError") || strings.Contains(body, "dependency"):
		return "DependencyError"
	case strings.Contains(body, "UnhandledError") || strings.Contains(body, "unhandled"):
		return "UnhandledError"
	case strings.Contains(body, "ValidationError") || strings.Contains(body, "validation"):
		return "ValidationError"
	default:
		return "Unknown"
	}
}

// DetermineSeverity assigns a Severity from an error type and the set of
// status codes observed for it (spec.md §4.12).
func DetermineSeverity(errorType string, statusCodes []int) Severity {
	maxStatus := 0
	for _, s := range statusCodes {
		if s > maxStatus {
			maxStatus = s
		}
	}

	switch {
	case maxStatus >= 500:
		return SeverityCritical
	case errorType == "DependencyError" || maxStatus == 424 || maxStatus == 502 || maxStatus == 503:
		return SeverityDependency
	default:
		return SeverityClient
	}
}

// FormatErrorMessage renders a response body into a single-line summary:
// structured fields from a JSON object when present, else a truncated body,
// else a friendly message derived from the status code.
func FormatErrorMessage(body string, statusCode *int) string {
	var v map[string]any
	if err := json.Unmarshal([]byte(body), &v); err == nil {
		var parts []string
		if e, ok := v["error"].(string); ok {
			parts = append(parts, fmt.Sprintf("Type: %s", e))
		}
		if m, ok := v["message"].(string); ok {
			if len(m) > 100 {
				m = m[:100] + "..."
			}
			parts = append(parts, fmt.Sprintf("Message: %s", m))
		}
		if c, ok := v["statusCode"].(float64); ok {
			parts = append(parts, fmt.Sprintf("Code: %d", int(c)))
		}
		if len(parts) > 0 {
			return strings.Join(parts, " | ")
		}
	}

	truncated := truncateResponseBody(body, 150)
	if strings.TrimSpace(truncated) == "" {
		if statusCode != nil {
			return friendlyErrorMessage(*statusCode)
		}
		return "No error details provided in response body"
	}
	return truncated
}

func truncateResponseBody(body string, maxLen int) string {
	if len(body) <= maxLen {
		return body
	}
	return body[:maxLen] + "... (truncated)"
}

func friendlyErrorMessage(status int) string {
	switch status {
	case 400:
		return "Request contains invalid data or missing required fields"
	case 401:
		return "Authentication failed - check credentials or authorization headers"
	case 403:
		return "Access denied - insufficient permissions for this resource"
	case 404:
		return "Requested resource or endpoint not found"
	case 424:
		return "Dependent service is unavailable or failing"
	case 500:
		return "Internal server error occurred - check application logs"
	case 502:
		return "Gateway error - upstream service not responding correctly"
	case 503:
		return "Service temporarily unavailable - likely overloaded or under maintenance"
	case 504:
		return "Request timed out - service taking too long to respond"
	default:
		return fmt.Sprintf("Service returned error status %d with no additional details", status)
	}
}
