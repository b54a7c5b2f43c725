// Package config holds the declarative configuration model for the HTTP
// comparison engine: environments, global defaults, routes and their
// extraction/condition/dependency metadata. Loading follows the teacher's
// cli/internal/config.Load shape (read file, yaml.Unmarshal, then
// defaults+validate); the referential-integrity and cycle checks spec.md
// §4.1 requires live in validate.go since a generic struct validator tag
// cannot express them.
package config

// Environment is a named deployment target under comparison.
type Environment struct {
	Name      string            `yaml:"name"`
	BaseURL   string            `yaml:"base_url"`
	Headers   map[string]string `yaml:"headers,omitempty"`
	IsBase    bool              `yaml:"is_base,omitempty"`
}

// ExtractionType is the closed sum type of supported extraction rule kinds.
type ExtractionType string

const (
	ExtractionJSONPath   ExtractionType = "JsonPath"
	ExtractionRegex      ExtractionType = "Regex"
	ExtractionHeader     ExtractionType = "Header"
	ExtractionStatusCode ExtractionType = "StatusCode"
)

// ExtractionRule directs the extraction engine to pull one named value out
// of a response.
type ExtractionRule struct {
	Key      string         `yaml:"key"`
	Type     ExtractionType `yaml:"type"`
	Pattern  string         `yaml:"pattern,omitempty"`
	Required bool           `yaml:"required,omitempty"`
	Default  *string        `yaml:"default,omitempty"`
}

// ConditionOperator is the closed set of comparison operators a condition
// may use.
type ConditionOperator string

const (
	OpEquals      ConditionOperator = "equals"
	OpNotEquals   ConditionOperator = "not_equals"
	OpContains    ConditionOperator = "contains"
	OpNotContains ConditionOperator = "not_contains"
	OpGreaterThan ConditionOperator = "greater_than"
	OpLessThan    ConditionOperator = "less_than"
	OpExists      ConditionOperator = "exists"
	OpNotExists   ConditionOperator = "not_exists"
)

// ExecutionCondition gates whether a route runs for a given user.
type ExecutionCondition struct {
	Variable string            `yaml:"variable"`
	Operator ConditionOperator `yaml:"operator"`
	Value    *string           `yaml:"value,omitempty"`
}

// Route is a named logical request the engine issues against each selected
// environment.
type Route struct {
	Name               string                `yaml:"name"`
	Method             string                `yaml:"method"`
	Path               string                `yaml:"path"`
	Headers            map[string]string     `yaml:"headers,omitempty"`
	Params             map[string]string     `yaml:"params,omitempty"`
	Body               string                `yaml:"body,omitempty"`
	BaseURLs           map[string]string     `yaml:"base_urls,omitempty"`
	Conditions         []ExecutionCondition  `yaml:"conditions,omitempty"`
	Extract            []ExtractionRule      `yaml:"extract,omitempty"`
	DependsOn          []string              `yaml:"depends_on,omitempty"`
	WaitForExtraction  bool                  `yaml:"wait_for_extraction,omitempty"`
}

// GlobalConfig carries the bounded scalars and overlay headers/params that
// apply to every request unless overridden at the environment or route
// level.
//
// LargeResponseThresholdBytes and IgnoredHeaders resolve the two Open
// Questions spec.md §9 flags (large-response threshold and header-diff
// normalization): both are exposed here as configurable, each defaulting to
// the value the spec names as the source's bit-exact default.
type GlobalConfig struct {
	TimeoutSeconds               int               `yaml:"timeout_seconds" default:"30"`
	FollowRedirects              bool              `yaml:"follow_redirects" default:"true"`
	MaxConcurrentRequests        int               `yaml:"max_concurrent_requests" default:"10"`
	Headers                      map[string]string `yaml:"headers,omitempty"`
	Params                       map[string]string `yaml:"params,omitempty"`
	BaseEnvironment              string            `yaml:"base_environment,omitempty"`
	LargeResponseThresholdBytes  int               `yaml:"large_response_threshold_bytes" default:"51200"`
	IgnoredHeaders               []string          `yaml:"ignored_headers,omitempty"`
	// CompareHeaders gates header-diff production (spec.md §4.10): off by
	// default, matching the original comparator's compare_headers field,
	// which is only turned on via .with_headers_comparison().
	CompareHeaders               bool              `yaml:"compare_headers,omitempty"`
}

// DefaultIgnoredHeaders is the bit-exact default ignore set from spec.md §6.
var DefaultIgnoredHeaders = []string{"date", "server", "x-request-id", "x-correlation-id"}

// Config is the root, read-only-after-validation configuration document.
type Config struct {
	Global       GlobalConfig  `yaml:"global"`
	Environments []Environment `yaml:"environments"`
	Routes       []Route       `yaml:"routes"`
}

// AllowedMethods is the closed set of HTTP methods a route may use.
var AllowedMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "DELETE": true,
	"PATCH": true, "HEAD": true, "OPTIONS": true,
}

// Environment looks a named environment up by name.
func (c *Config) Environment(name string) (Environment, bool) {
	for _, e := range c.Environments {
		if e.Name == name {
			return e, true
		}
	}
	return Environment{}, false
}

// Route looks a named route up by name.
func (c *Config) Route(name string) (Route, bool) {
	for _, r := range c.Routes {
		if r.Name == name {
			return r, true
		}
	}
	return Route{}, false
}

// OrderedEnvironmentNames returns environment names in declaration order —
// the "configured environment order" the comparator falls back to when no
// base_environment is set (spec.md §4.10).
func (c *Config) OrderedEnvironmentNames() []string {
	names := make([]string, len(c.Environments))
	for i, e := range c.Environments {
		names[i] = e.Name
	}
	return names
}

// BaseEnvironmentName resolves the deterministic base environment: the
// configured base_environment, else the environment marked is_base, else
// the first declared environment, else "" when none is declared.
func (c *Config) BaseEnvironmentName() string {
	if c.Global.BaseEnvironment != "" {
		return c.Global.BaseEnvironment
	}
	for _, e := range c.Environments {
		if e.IsBase {
			return e.Name
		}
	}
	if len(c.Environments) > 0 {
		return c.Environments[0].Name
	}
	return ""
}
