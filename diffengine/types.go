// Package diffengine analyzes differences between environment responses
// for one (route, user) and produces the engine's canonical result type,
// ComparisonResult (spec.md §4.10, §3).
package diffengine

import "github.com/BDNK1/httpdiff/httpclient"

// Category is the closed set of difference kinds a comparison can surface.
type Category string

const (
	CategoryStatus  Category = "Status"
	CategoryHeaders Category = "Headers"
	CategoryBody    Category = "Body"
)

// HeaderDiff is one header that differs (or is present on only one side)
// between the base environment and another.
type HeaderDiff struct {
	Name       string
	ValueBase  string
	ValueOther string
}

// BodyDiff carries both normalized bodies plus enough metadata for a
// renderer to decide whether to show a full diff or a summary.
type BodyDiff struct {
	NormalizedBase  string
	NormalizedOther string
	TotalSize       int
	IsLargeResponse bool
}

// Difference is one surfaced disagreement between the base environment and
// another environment, for one category.
type Difference struct {
	Category    Category
	Description string
	// Payload is nil for Status, []HeaderDiff for Headers, BodyDiff for Body.
	Payload any
}

// ComparisonResult is the structured outcome of comparing one route x one
// user across every selected environment.
//
// Invariant: IsIdentical == (len(Differences) == 0).
// Invariant: HasErrors == (some StatusCodes[env] is outside [200,300)), and
// ErrorBodies contains exactly those environments' bodies.
type ComparisonResult struct {
	RouteName       string
	UserContext     string
	Responses       map[string]httpclient.HttpResponse
	Differences     []Difference
	IsIdentical     bool
	StatusCodes     map[string]int
	HasErrors       bool
	ErrorBodies     map[string]string
	BaseEnvironment string
}
