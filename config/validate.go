package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/BDNK1/httpdiff/depgraph"
	"github.com/BDNK1/httpdiff/errclass"
	"github.com/go-playground/validator/v10"
)

// validate is a package-level validator instance, following the teacher's
// runtime.validate singleton (runtime/config.go): one *validator.Validate,
// initialized once, reused for every struct-tag check.
var validate = validator.New()

// Validate enforces spec.md §4.1's checks: environments, then global
// bounds, then routes, then the dependency graph. validate.Struct is run over
// GlobalConfig, which declares no `validate` tags, so the timeout and
// concurrency ranges are enforced by the explicit checks in validateGlobal;
// everything that needs cross-field or cross-route knowledge (referential
// integrity, cycles, unique keys, regex compilation) is likewise checked by
// hand, the way the teacher's cli/internal/config and cli/internal/graph
// packages do it.
func (c *Config) Validate() error {
	if len(c.Environments) == 0 {
		return errclass.InvalidConfig("at least one environment is required")
	}
	if len(c.Routes) == 0 {
		return errclass.InvalidConfig("at least one route is required")
	}

	if err := c.validateEnvironments(); err != nil {
		return err
	}
	if err := c.validateGlobal(); err != nil {
		return err
	}
	if err := c.validateRoutes(); err != nil {
		return err
	}
	if err := c.validateDependencyGraph(); err != nil {
		return err
	}

	return nil
}

func (c *Config) validateEnvironments() error {
	baseCount := 0
	seen := make(map[string]bool, len(c.Environments))
	for _, e := range c.Environments {
		if seen[e.Name] {
			return errclass.InvalidConfig(fmt.Sprintf("duplicate environment name %q", e.Name))
		}
		seen[e.Name] = true

		if e.IsBase {
			baseCount++
		}
		u, err := url.Parse(e.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return errclass.InvalidConfig(fmt.Sprintf("environment %q has an invalid base_url %q", e.Name, e.BaseURL))
		}
	}
	if baseCount > 1 {
		return errclass.InvalidConfig("at most one environment may have is_base=true")
	}
	return nil
}

func (c *Config) validateGlobal() error {
	if err := validate.Struct(c.Global); err != nil {
		return errclass.InvalidConfig(fmt.Sprintf("invalid global config: %v", err))
	}
	if c.Global.TimeoutSeconds < 1 || c.Global.TimeoutSeconds > 300 {
		return errclass.InvalidConfig(fmt.Sprintf("timeout_seconds must be in [1,300], got %d", c.Global.TimeoutSeconds))
	}
	if c.Global.MaxConcurrentRequests < 1 || c.Global.MaxConcurrentRequests > 100 {
		return errclass.InvalidConfig(fmt.Sprintf("max_concurrent_requests must be in [1,100], got %d", c.Global.MaxConcurrentRequests))
	}
	if c.Global.BaseEnvironment != "" {
		if _, ok := c.Environment(c.Global.BaseEnvironment); !ok {
			return errclass.InvalidConfig(fmt.Sprintf("base_environment %q is not a defined environment", c.Global.BaseEnvironment))
		}
	}
	return nil
}

var placeholderRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func (c *Config) validateRoutes() error {
	seenRoutes := make(map[string]bool, len(c.Routes))

	for _, r := range c.Routes {
		if r.Name == "" {
			return errclass.InvalidConfig("route name must not be empty")
		}
		if seenRoutes[r.Name] {
			return errclass.InvalidConfig(fmt.Sprintf("duplicate route name %q", r.Name))
		}
		seenRoutes[r.Name] = true

		if !AllowedMethods[r.Method] {
			return errclass.InvalidConfig(fmt.Sprintf("route %q has invalid method %q", r.Name, r.Method))
		}

		for env := range r.BaseURLs {
			if _, ok := c.Environment(env); !ok {
				return errclass.InvalidConfig(fmt.Sprintf("route %q base_urls references undefined environment %q", r.Name, env))
			}
		}

		for _, name := range extractPlaceholders(r.Path) {
			if !placeholderRe.MatchString(name) {
				return errclass.InvalidConfig(fmt.Sprintf("route %q has malformed path placeholder %q", r.Name, name))
			}
		}

		if err := validateExtractionRules(r); err != nil {
			return err
		}

		for _, cond := range r.Conditions {
			if err := validateCondition(r.Name, cond); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateExtractionRules(r Route) error {
	seenKeys := make(map[string]bool, len(r.Extract))
	for _, rule := range r.Extract {
		if seenKeys[rule.Key] {
			return errclass.InvalidConfig(fmt.Sprintf("route %q: duplicate extraction key %q", r.Name, rule.Key))
		}
		seenKeys[rule.Key] = true

		switch rule.Type {
		case ExtractionJSONPath, ExtractionRegex, ExtractionHeader:
			if rule.Pattern == "" {
				return errclass.InvalidConfig(fmt.Sprintf("route %q: extraction %q requires a non-empty pattern", r.Name, rule.Key))
			}
		case ExtractionStatusCode:
			if rule.Pattern != "" {
				return errclass.InvalidConfig(fmt.Sprintf("route %q: extraction %q of type StatusCode must have an empty pattern", r.Name, rule.Key))
			}
		default:
			return errclass.InvalidConfig(fmt.Sprintf("route %q: extraction %q has unknown type %q", r.Name, rule.Key, rule.Type))
		}

		if rule.Type == ExtractionRegex {
			if _, err := regexp.Compile(rule.Pattern); err != nil {
				return errclass.InvalidConfig(fmt.Sprintf("route %q: extraction %q has invalid regex pattern: %v", r.Name, rule.Key, err))
			}
		}
	}
	return nil
}

func validateCondition(routeName string, cond ExecutionCondition) error {
	switch cond.Operator {
	case OpEquals, OpNotEquals, OpContains, OpNotContains, OpGreaterThan, OpLessThan:
		if cond.Value == nil {
			return errclass.InvalidConfig(fmt.Sprintf("route %q: condition on %q with operator %q requires a value", routeName, cond.Variable, cond.Operator))
		}
	case OpExists, OpNotExists:
		// value intentionally absent
	default:
		return errclass.InvalidConfig(fmt.Sprintf("route %q: condition on %q has unknown operator %q", routeName, cond.Variable, cond.Operator))
	}
	return nil
}

// validateDependencyGraph checks that every depends_on target exists and
// that the full route graph is acyclic, delegating the graph algorithm to
// depgraph (the same Kahn/DFS implementation the runner uses to batch a
// selected subgraph at execution time).
func (c *Config) validateDependencyGraph() error {
	names := make([]string, len(c.Routes))
	deps := make(map[string][]string, len(c.Routes))
	for i, r := range c.Routes {
		names[i] = r.Name
		deps[r.Name] = r.DependsOn
	}

	_, err := depgraph.New(names, deps)
	if err == nil {
		return nil
	}

	var missing *depgraph.MissingDependencyError
	if errors.As(err, &missing) {
		return errclass.InvalidConfig(fmt.Sprintf("route %q depends_on undefined route %q", missing.Node, missing.Dependency))
	}
	return errclass.InvalidConfig(err.Error())
}

// extractPlaceholders returns the identifiers inside every {name} token.
func extractPlaceholders(s string) []string {
	re := regexp.MustCompile(`\{([A-Za-z0-9_]*)\}`)
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}
