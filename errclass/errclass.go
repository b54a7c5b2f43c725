// Package errclass defines the engine's error taxonomy and the stock
// debugging suggestions keyed on (error type, status). Grouping failed
// comparisons by error type and severity lives in package analysis.
package errclass

import "fmt"

// Kind identifies one entry of the engine's error taxonomy (spec §7).
type Kind string

const (
	KindInvalidConfig       Kind = "InvalidConfig"
	KindConfigNotFound      Kind = "ConfigNotFound"
	KindNoEnvironments      Kind = "NoEnvironments"
	KindInvalidEnvironment  Kind = "InvalidEnvironment"
	KindMissingPathParam    Kind = "MissingPathParameter"
	KindRequestFailed       Kind = "RequestFailed"
	KindRequestTimeout      Kind = "RequestTimeout"
	KindInvalidHTTPMethod   Kind = "InvalidHttpMethod"
	KindInvalidURL          Kind = "InvalidUrl"
	KindExtractionFailed    Kind = "ExtractionFailed"
	KindUnresolvedDependency Kind = "UnresolvedDependency"
	KindComparisonFailed    Kind = "ComparisonFailed"
	KindEnvironmentMismatch Kind = "EnvironmentMismatch"
	KindIO                  Kind = "IoError"
)

// EngineError is the canonical error type propagated out of the engine.
// It carries the structured fields spec.md requires (route, env, param,
// available params) as typed fields rather than only interpolating them
// into the message, so callers can act on them programmatically.
type EngineError struct {
	Kind    Kind
	Message string

	Route            string
	Env              string
	Param            string
	AvailableParams  []string
	Key              string
	MissingKey       string

	cause error
}

func (e *EngineError) Error() string {
	if e.Route != "" || e.Env != "" {
		return fmt.Sprintf("[%s] %s (route=%q env=%q)", e.Kind, e.Message, e.Route, e.Env)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *EngineError) Unwrap() error { return e.cause }

func newErr(kind Kind, msg string) *EngineError {
	return &EngineError{Kind: kind, Message: msg}
}

// InvalidConfig reports a configuration validation failure, carrying the
// offending name so the message stays actionable.
func InvalidConfig(message string) *EngineError {
	return newErr(KindInvalidConfig, message)
}

// MissingPathParameter reports a strict-mode substitution miss.
func MissingPathParameter(param string, available []string) *EngineError {
	e := newErr(KindMissingPathParam, fmt.Sprintf("missing path parameter %q", param))
	e.Param = param
	e.AvailableParams = available
	return e
}

// RequestFailed wraps a transport-level failure for a given route/env.
func RequestFailed(route, env string, cause error) *EngineError {
	e := newErr(KindRequestFailed, cause.Error())
	e.Route = route
	e.Env = env
	e.cause = cause
	return e
}

// UnresolvedDependency reports that a dependent route could not find a value
// published by one of its providers.
func UnresolvedDependency(route, missingKey string) *EngineError {
	e := newErr(KindUnresolvedDependency, fmt.Sprintf("route %q: no published value for %q", route, missingKey))
	e.Route = route
	e.MissingKey = missingKey
	return e
}

// ExtractionFailed reports a required extraction rule that produced no value.
func ExtractionFailed(route, key, reason string) *EngineError {
	e := newErr(KindExtractionFailed, reason)
	e.Route = route
	e.Key = key
	return e
}

// IOError wraps a failure reading a config or user-data input file.
func IOError(cause error) *EngineError {
	e := newErr(KindIO, cause.Error())
	e.cause = cause
	return e
}

// Suggestion keys a stock debugging hint off (errorType, status), ported
// from the original Rust crate's error_analysis table.
func Suggestion(errorType string, status int) string {
	switch {
	case status == 0:
		return "request never completed; check network reachability and DNS resolution for this environment"
	case status >= 500 && status < 600:
		if errorType == "DependencyError" || status == 502 || status == 503 || status == 504 {
			return "upstream dependency appears unhealthy; check that environment's downstream service status"
		}
		return "server error; check the service logs for this environment around the request time"
	case status == 424:
		return "a required dependency failed; check the dependency's health before re-running"
	case status == 429:
		return "rate limited; consider lowering max_concurrent_requests or adding backoff"
	case status >= 400 && status < 500:
		return "client error; check the request payload, headers, and authentication for this route"
	default:
		return "inspect the response body for details"
	}
}
