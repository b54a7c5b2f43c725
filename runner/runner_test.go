package runner

import (
	"context"
	"testing"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/BDNK1/httpdiff/httpclienttest"
	"github.com/BDNK1/httpdiff/userdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() *config.Config {
	return &config.Config{
		Global: config.GlobalConfig{
			TimeoutSeconds:        30,
			MaxConcurrentRequests: 2,
		},
		Environments: []config.Environment{
			{Name: "staging", BaseURL: "https://staging.example.com"},
			{Name: "production", BaseURL: "https://production.example.com"},
		},
		Routes: []config.Route{
			{Name: "health", Method: "GET", Path: "/health"},
		},
	}
}

func ok(body string) httpclienttest.Response {
	return httpclienttest.Response{HTTP: httpclient.HttpResponse{Status: 200, Body: body}}
}

func TestRun_IdenticalResponsesYieldNoDifferences(t *testing.T) {
	cfg := baseConfig()
	fake := httpclienttest.New()
	fake.Stage("health", "staging", ok(`{"status":"ok"}`))
	fake.Stage("health", "production", ok(`{"status":"ok"}`))

	result, err := Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})

	require.NoError(t, err)
	require.Len(t, result.Comparisons, 1)
	assert.True(t, result.Comparisons[0].IsIdentical)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 2, result.Progress.Successful)
}

func TestRun_RequestFailureIsRecoveredAsExecutionError(t *testing.T) {
	cfg := baseConfig()
	fake := httpclienttest.New()
	fake.Stage("health", "staging", ok(`{}`))
	// production left unstaged -> Do returns an error

	result, err := Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})

	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "health", result.Errors[0].Route)
	assert.Equal(t, "production", result.Errors[0].Env)
	// only one environment succeeded, so no comparison is produced
	assert.Empty(t, result.Comparisons)
}

func TestRun_ConcurrencyBoundedBySemaphore(t *testing.T) {
	cfg := baseConfig()
	cfg.Routes = []config.Route{
		{Name: "a", Method: "GET", Path: "/a"},
		{Name: "b", Method: "GET", Path: "/b"},
		{Name: "c", Method: "GET", Path: "/c"},
	}
	cfg.Global.MaxConcurrentRequests = 2

	fake := httpclienttest.New()
	for _, route := range []string{"a", "b", "c"} {
		for _, env := range []string{"staging", "production"} {
			fake.Stage(route, env, ok(`{}`))
		}
	}
	release := make(chan struct{})
	fake.Delay = func() { <-release }

	done := make(chan struct{})
	go func() {
		_, _ = Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})
		close(done)
	}()

	close(release)
	<-done

	assert.LessOrEqual(t, fake.MaxInFlight(), int64(2))
}

func TestRun_UnknownEnvironmentFilterFails(t *testing.T) {
	cfg := baseConfig()
	fake := httpclienttest.New()

	_, err := Run(context.Background(), cfg, fake, Options{
		Environments: []string{"nonexistent"},
		Users:        []userdata.UserData{userdata.New(nil, nil)},
	})

	assert.Error(t, err)
}

func TestRun_SkippedConditionExcludedFromTotal(t *testing.T) {
	cfg := baseConfig()
	no := "no"
	cfg.Routes[0].Conditions = []config.ExecutionCondition{
		{Variable: "enabled", Operator: config.OpEquals, Value: &no},
	}

	fake := httpclienttest.New()
	// no stages needed, condition will always fail for a user with no "enabled" binding

	result, err := Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})

	require.NoError(t, err)
	assert.Equal(t, 0, result.Progress.Total) // route skipped for this user on both envs -> excluded
	assert.Equal(t, 0, result.Progress.Completed)
}

func TestRun_ProviderFailureOnOneEnvYieldsUnresolvedDependencyOnlyThere(t *testing.T) {
	cfg := baseConfig()
	cfg.Routes = []config.Route{
		{
			Name: "login", Method: "GET", Path: "/login",
			Extract: []config.ExtractionRule{{Key: "token", Type: config.ExtractionJSONPath, Pattern: "$.token"}},
		},
		{
			Name: "me", Method: "GET", Path: "/me",
			Headers: map[string]string{"Authorization": "Bearer {token}"},
		},
	}

	fake := httpclienttest.New()
	fake.Stage("login", "staging", ok(`{"token":"abc"}`))
	// login unstaged on production -> fails there
	fake.Stage("me", "staging", ok(`{}`))
	fake.Stage("me", "production", ok(`{}`))

	result, err := Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})
	require.NoError(t, err)

	var foundUnresolved bool
	for _, execErr := range result.Errors {
		if execErr.Route == "me" && execErr.Env == "production" {
			foundUnresolved = true
		}
	}
	assert.True(t, foundUnresolved, "expected me/production to fail with an unresolved dependency, got errors: %v", result.Errors)

	for _, call := range fake.Calls() {
		if call.Route == "me" {
			assert.Equal(t, "staging", call.Environment, "me should only have been called for staging")
		}
	}
}

func TestRun_ChainedExtractionPublishesIntoLaterBatch(t *testing.T) {
	cfg := baseConfig()
	cfg.Routes = []config.Route{
		{
			Name: "login", Method: "GET", Path: "/login",
			Extract: []config.ExtractionRule{{Key: "token", Type: config.ExtractionJSONPath, Pattern: "$.token"}},
		},
		{
			Name: "me", Method: "GET", Path: "/me",
			Headers: map[string]string{"Authorization": "Bearer {token}"},
		},
	}

	fake := httpclienttest.New()
	for _, env := range []string{"staging", "production"} {
		fake.Stage("login", env, ok(`{"token":"abc"}`))
		fake.Stage("me", env, ok(`{}`))
	}

	result, err := Run(context.Background(), cfg, fake, Options{Users: []userdata.UserData{userdata.New(nil, nil)}})
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	var meCall bool
	for _, call := range fake.Calls() {
		if call.Route == "me" {
			meCall = true
			assert.Equal(t, "Bearer abc", call.Headers["Authorization"])
		}
	}
	assert.True(t, meCall)
}
