// Package runner is the test-runner orchestrator (spec.md §4.11): it resolves
// the selected environments/routes/users, computes dependency batches,
// executes each batch with bounded concurrency behind a barrier, and, after
// the barrier, invokes the comparator for every (route, user) for which at
// least two environments responded.
// Grounded on the teacher's runtime.Executor (runtime/executor.go) for the
// overall "resolve -> iterate -> recover-locally -> continue" shape, adapted
// from a single-flow step loop into a batched, fan-out/fan-in task runner.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/depgraph"
	"github.com/BDNK1/httpdiff/diffengine"
	"github.com/BDNK1/httpdiff/errclass"
	"github.com/BDNK1/httpdiff/execctx"
	"github.com/BDNK1/httpdiff/extraction"
	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/BDNK1/httpdiff/reqbuilder"
	"github.com/BDNK1/httpdiff/userdata"
	"github.com/google/uuid"

	"github.com/BDNK1/httpdiff/condition"
)

// ExecutionError is one recovered task-level failure — spec.md §3/§4.11:
// per-task errors are recorded and the run continues.
type ExecutionError struct {
	Route   string
	Env     string
	Message string
}

func (e ExecutionError) Error() string {
	if e.Env != "" {
		return fmt.Sprintf("route %q env %q: %s", e.Route, e.Env, e.Message)
	}
	return fmt.Sprintf("route %q: %s", e.Route, e.Message)
}

// ExecutionResult is the full output of one run.
type ExecutionResult struct {
	// RunID identifies this run for log correlation across the (possibly
	// many) goroutines that execute it.
	RunID       string
	Comparisons []diffengine.ComparisonResult
	Progress    ProgressSnapshot
	Errors      []ExecutionError
}

// Options narrows a run to a subset of the validated config and wires in the
// caller's progress callback.
type Options struct {
	// Environments, if non-empty, restricts the run to these environment
	// names (must all exist in cfg). Empty means every configured
	// environment.
	Environments []string
	// Routes, if non-empty, restricts the run to these route names (must
	// all exist in cfg). Empty means every configured route.
	Routes []string
	// Users is the (possibly filtered) set of simulated actors to run
	// every selected route against.
	Users []userdata.UserData

	ProgressCallback func(ProgressSnapshot)
	// ProgressInterval is the minimum gap between ProgressCallback
	// invocations. Defaults to 50ms, matching spec.md §4.11.
	ProgressInterval time.Duration

	Logger *slog.Logger
}

// Run executes cfg's selected routes against its selected environments for
// every user in opts.Users, via client, and returns the accumulated
// comparisons, final progress snapshot, and recovered per-task errors.
//
// Run itself only fails when the orchestrator cannot proceed at all:
// an unknown environment/route filter, or a route dependency graph
// (explicit depends_on plus extraction-induced edges) that has a cycle or
// an unresolvable reference. Everything past that point is recovered into
// ExecutionResult.Errors.
func Run(ctx context.Context, cfg *config.Config, client httpclient.Client, opts Options) (*ExecutionResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	envs, err := resolveEnvironments(cfg, opts.Environments)
	if err != nil {
		return nil, err
	}
	routes, err := resolveRoutes(cfg, opts.Routes)
	if err != nil {
		return nil, err
	}

	batches, providerOf, err := computeBatches(routes)
	if err != nil {
		return nil, err
	}

	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	emitter := newRateLimitedEmitter(opts.ProgressCallback, interval)

	tracker := NewProgressTracker(0)

	maxInFlight := cfg.Global.MaxConcurrentRequests
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	sem := make(chan struct{}, maxInFlight)

	store := execctx.New()
	routeByName := make(map[string]config.Route, len(routes))
	for _, r := range routes {
		routeByName[r.Name] = r
	}

	var (
		mu          sync.Mutex
		comparisons []diffengine.ComparisonResult
		execErrors  []ExecutionError
	)

	baseEnv := cfg.BaseEnvironmentName()
	envOrder := cfg.OrderedEnvironmentNames()

	for _, batch := range batches {
		// responses[routeName][userKey][envName] = response
		responses := map[string]map[string]map[string]httpclient.HttpResponse{}
		var responsesMu sync.Mutex

		var wg sync.WaitGroup
		for _, routeName := range batch {
			route := routeByName[routeName]
			for _, user := range opts.Users {
				resolver := condition.Resolver{
					UserData: userdata.ResolverFunc(user.Get),
					Context:  userdata.ResolverFunc(func(name string) (string, bool) { return store.ResolveAny(user.Key(), name) }),
				}
				if !condition.Evaluate(route.Conditions, resolver) {
					continue
				}

				tracker.AddTotal(len(envs))
				placeholders := referencedPlaceholders(route)

				for _, env := range envs {
					wg.Add(1)
					go func(route config.Route, user userdata.UserData, env config.Environment) {
						defer wg.Done()

						sem <- struct{}{}
						defer func() { <-sem }()

						if missing, ok := unmetDependency(placeholders, providerOf, route.Name, user, env.Name, store); ok {
							tracker.Fail()
							mu.Lock()
							execErrors = append(execErrors, ExecutionError{
								Route: route.Name, Env: env.Name,
								Message: errclass.UnresolvedDependency(route.Name, missing).Error(),
							})
							mu.Unlock()
							emitter.emit(tracker.Snapshot(), false)
							return
						}

						knownNames := append(user.Names(), store.Keys(user.Key(), env.Name)...)
						valueResolver := userdata.ResolverFunc(func(name string) (string, bool) {
							if v, ok := user.Get(name); ok {
								return v, true
							}
							return store.Resolve(user.Key(), env.Name, name)
						})

						req, err := reqbuilder.Build(route, env, cfg.Global, valueResolver, knownNames)
						if err != nil {
							tracker.Fail()
							mu.Lock()
							execErrors = append(execErrors, ExecutionError{Route: route.Name, Env: env.Name, Message: err.Error()})
							mu.Unlock()
							emitter.emit(tracker.Snapshot(), false)
							return
						}

						resp, err := client.Do(ctx, req)
						if err != nil {
							tracker.Fail()
							mu.Lock()
							execErrors = append(execErrors, ExecutionError{Route: route.Name, Env: env.Name, Message: err.Error()})
							mu.Unlock()
							logger.ErrorContext(ctx, "request failed", "route", route.Name, "env", env.Name, "error", err)
							emitter.emit(tracker.Snapshot(), false)
							return
						}

						tracker.Succeed()

						for _, outcome := range extraction.ExtractAll(route.Name, env.Name, route.Extract, resp) {
							if outcome.Err != nil {
								mu.Lock()
								execErrors = append(execErrors, ExecutionError{Route: route.Name, Env: env.Name, Message: outcome.Err.Error()})
								mu.Unlock()
								continue
							}
							store.Publish(user.Key(), env.Name, *outcome.Value)
						}

						responsesMu.Lock()
						if responses[route.Name] == nil {
							responses[route.Name] = map[string]map[string]httpclient.HttpResponse{}
						}
						if responses[route.Name][user.Key()] == nil {
							responses[route.Name][user.Key()] = map[string]httpclient.HttpResponse{}
						}
						responses[route.Name][user.Key()][env.Name] = resp
						responsesMu.Unlock()

						emitter.emit(tracker.Snapshot(), false)
					}(route, user, env)
				}
			}
		}

		wg.Wait() // batch barrier: no task in the next batch may start before this one drains.

		for _, routeName := range sortedKeys(responses) {
			for _, userKey := range sortedKeys(responses[routeName]) {
				byEnv := responses[routeName][userKey]
				if len(byEnv) < 2 {
					continue // comparator needs at least two environments to have responded
				}
				comparisons = append(comparisons, diffengine.Compare(routeName, userKey, baseEnv, envOrder, byEnv, cfg.Global))
			}
		}
	}

	final := tracker.Snapshot()
	emitter.emit(final, true)

	return &ExecutionResult{RunID: runID, Comparisons: comparisons, Progress: final, Errors: execErrors}, nil
}

func resolveEnvironments(cfg *config.Config, names []string) ([]config.Environment, error) {
	if len(names) == 0 {
		return append([]config.Environment(nil), cfg.Environments...), nil
	}
	out := make([]config.Environment, 0, len(names))
	for _, name := range names {
		env, ok := cfg.Environment(name)
		if !ok {
			return nil, errclass.InvalidConfig(fmt.Sprintf("unknown environment filter %q", name))
		}
		out = append(out, env)
	}
	return out, nil
}

func resolveRoutes(cfg *config.Config, names []string) ([]config.Route, error) {
	if len(names) == 0 {
		return append([]config.Route(nil), cfg.Routes...), nil
	}
	out := make([]config.Route, 0, len(names))
	for _, name := range names {
		route, ok := cfg.Route(name)
		if !ok {
			return nil, errclass.InvalidConfig(fmt.Sprintf("unknown route filter %q", name))
		}
		out = append(out, route)
	}
	return out, nil
}

// computeBatches builds the dependency graph over routes — explicit
// depends_on plus extraction-induced edges (spec.md §4.6) — and returns its
// topological batches plus a map from extraction key to the route that
// produces it (used by the runner to recognize an unmet dependency).
func computeBatches(routes []config.Route) ([][]string, map[string]string, error) {
	names := make([]string, len(routes))
	providerOf := map[string]string{} // extraction key -> owning route name
	for i, r := range routes {
		names[i] = r.Name
		for _, rule := range r.Extract {
			providerOf[rule.Key] = r.Name
		}
	}

	deps := make(map[string][]string, len(routes))
	for _, r := range routes {
		edgeSet := map[string]bool{}
		for _, dep := range r.DependsOn {
			edgeSet[dep] = true
		}
		for _, name := range referencedPlaceholders(r) {
			if owner, ok := providerOf[name]; ok && owner != r.Name {
				edgeSet[owner] = true
			}
		}
		var edges []string
		for dep := range edgeSet {
			edges = append(edges, dep)
		}
		sort.Strings(edges)
		deps[r.Name] = edges
	}

	graph, err := depgraph.New(names, deps)
	if err != nil {
		return nil, nil, errclass.InvalidConfig(err.Error())
	}
	return graph.Batches(), providerOf, nil
}

// unmetDependency reports whether route, for (user, env), references a
// placeholder that only a provider route's extraction can satisfy, and that
// provider has not published a value for this exact (user, env) pair —
// spec.md §8: "If login fails on some env, me on that env yields
// UnresolvedDependency." User-data bindings always take precedence (spec.md
// §4.2), so a placeholder present in user data is never unmet here even if
// it also happens to be some route's extraction key.
func unmetDependency(placeholders []string, providerOf map[string]string, routeName string, user userdata.UserData, env string, store *execctx.Store) (string, bool) {
	for _, name := range placeholders {
		owner, isExtracted := providerOf[name]
		if !isExtracted || owner == routeName {
			continue
		}
		if _, ok := user.Get(name); ok {
			continue
		}
		if _, ok := store.Resolve(user.Key(), env, name); !ok {
			return name, true
		}
	}
	return "", false
}

// referencedPlaceholders collects every {name} token referenced anywhere in
// a route's substitutable text.
func referencedPlaceholders(r config.Route) []string {
	var names []string
	names = append(names, userdata.Placeholders(r.Path)...)
	names = append(names, userdata.Placeholders(r.Body)...)
	for _, v := range r.Headers {
		names = append(names, userdata.Placeholders(v)...)
	}
	for _, v := range r.Params {
		names = append(names, userdata.Placeholders(v)...)
	}
	return names
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
