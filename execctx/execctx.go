// Package execctx is the per-user, per-environment extracted-value context:
// the store that lets a later route's substitution see values an earlier
// route extracted from its response for that same environment (spec.md
// §4.8, "Context Manager"). Keying includes the environment because a
// provider route can succeed on one environment and fail on another —
// spec.md §8's chained-extraction example requires a dependent route to
// fail with UnresolvedDependency specifically on the environment where its
// provider had no value, not on every environment.
//
// Each task publishes its values as it completes, inside its own batch, one
// route-write per (user, env, key); a dependent route runs in a later batch,
// so it reads them only after the batch barrier. Store takes a mutex around
// every access because multiple goroutines within the SAME batch publish
// (and the runner's condition lookups read) concurrently — batch members are
// independent of each other, but all share the same Store instance.
package execctx

import "sync"

// ExtractedValue is one value pulled out of a response and published into
// a user's context.
type ExtractedValue struct {
	Key           string
	Value         string
	SourcePattern string
	Type          string
	Environment   string
	Route         string
}

// Store is the orchestrator-owned table of every user's extracted values,
// partitioned by environment.
type Store struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]ExtractedValue // userKey -> env -> key -> value
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string]map[string]map[string]ExtractedValue)}
}

// Publish records a value extracted for (userKey, env, route) under key.
// Called exactly once per (user, env, route, key) as the owning route
// completes for that environment.
func (s *Store) Publish(userKey, env string, ev ExtractedValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byEnv, ok := s.data[userKey]
	if !ok {
		byEnv = make(map[string]map[string]ExtractedValue)
		s.data[userKey] = byEnv
	}
	bucket, ok := byEnv[env]
	if !ok {
		bucket = make(map[string]ExtractedValue)
		byEnv[env] = bucket
	}
	bucket[ev.Key] = ev
}

// Get returns the full ExtractedValue for (userKey, env, key).
func (s *Store) Get(userKey, env, key string) (ExtractedValue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket, ok := s.data[userKey][env]
	if !ok {
		return ExtractedValue{}, false
	}
	ev, ok := bucket[key]
	return ev, ok
}

// Resolve returns just the string value for (userKey, env, key), satisfying
// userdata.Resolver once bound to a specific (user, env) via ForUserEnv.
func (s *Store) Resolve(userKey, env, key string) (string, bool) {
	ev, ok := s.Get(userKey, env, key)
	return ev.Value, ok
}

// ForUserEnv returns a resolver function closed over one (user, env) pair,
// suitable for userdata.Substitute during request building.
func (s *Store) ForUserEnv(userKey, env string) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		return s.Resolve(userKey, env, name)
	}
}

// ResolveAny returns a value for (userKey, key) from any environment that
// has published it — used by the condition evaluator, which runs once per
// (route, user) before the per-environment fan-out and so cannot know yet
// which environment a request will target.
func (s *Store) ResolveAny(userKey, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bucket := range s.data[userKey] {
		if ev, ok := bucket[key]; ok {
			return ev.Value, true
		}
	}
	return "", false
}

// ForUser returns a resolver closed over ResolveAny for one user, suitable
// for condition.Resolver.Context.
func (s *Store) ForUser(userKey string) func(name string) (string, bool) {
	return func(name string) (string, bool) {
		return s.ResolveAny(userKey, name)
	}
}

// Keys returns the set of keys published so far for (userKey, env), used to
// build the known-names list handed to request building (the
// "available_params" of a MissingPathParameter error).
func (s *Store) Keys(userKey, env string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.data[userKey][env]
	out := make([]string, 0, len(bucket))
	for k := range bucket {
		out = append(out, k)
	}
	return out
}
