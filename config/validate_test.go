package config

import (
	"testing"

	"github.com/BDNK1/httpdiff/errclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseValidConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			TimeoutSeconds:        30,
			MaxConcurrentRequests: 10,
		},
		Environments: []Environment{
			{Name: "test", BaseURL: "https://test.example.com", IsBase: true},
			{Name: "prod", BaseURL: "https://prod.example.com"},
		},
		Routes: []Route{
			{Name: "health", Method: "GET", Path: "/health"},
		},
	}
}

func TestValidate_HappyPath(t *testing.T) {
	require.NoError(t, baseValidConfig().Validate())
}

func TestValidate_TimeoutBounds(t *testing.T) {
	for _, v := range []int{0, 301} {
		cfg := baseValidConfig()
		cfg.Global.TimeoutSeconds = v
		err := cfg.Validate()
		require.Error(t, err)
		var ee *errclass.EngineError
		require.ErrorAs(t, err, &ee)
		assert.Equal(t, errclass.KindInvalidConfig, ee.Kind)
	}
}

func TestValidate_ConcurrencyBounds(t *testing.T) {
	for _, v := range []int{0, 101} {
		cfg := baseValidConfig()
		cfg.Global.MaxConcurrentRequests = v
		require.Error(t, cfg.Validate())
	}
}

func TestValidate_TwoBaseEnvironments(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Environments[1].IsBase = true
	require.Error(t, cfg.Validate())
}

func TestValidate_DependencyCycle(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes = []Route{
		{Name: "a", Method: "GET", Path: "/a", DependsOn: []string{"b"}},
		{Name: "b", Method: "GET", Path: "/b", DependsOn: []string{"a"}},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_UnknownDependency(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes = []Route{
		{Name: "a", Method: "GET", Path: "/a", DependsOn: []string{"ghost"}},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_InvalidMethod(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Method = "TRACE"
	require.Error(t, cfg.Validate())
}

func TestValidate_BaseURLsReferenceUnknownEnv(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].BaseURLs = map[string]string{"ghost": "https://ghost.example.com"}
	require.Error(t, cfg.Validate())
}

func TestValidate_InvalidBaseURL(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Environments[0].BaseURL = "not-a-url"
	require.Error(t, cfg.Validate())
}

func TestValidate_DuplicateExtractionKey(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Extract = []ExtractionRule{
		{Key: "token", Type: ExtractionJSONPath, Pattern: "$.token"},
		{Key: "token", Type: ExtractionHeader, Pattern: "X-Token"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_InvalidRegexPattern(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Extract = []ExtractionRule{
		{Key: "k", Type: ExtractionRegex, Pattern: "("},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_StatusCodeRuleMustHaveEmptyPattern(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Extract = []ExtractionRule{
		{Key: "sc", Type: ExtractionStatusCode, Pattern: "nonempty"},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_ConditionMissingValue(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Conditions = []ExecutionCondition{
		{Variable: "user_type", Operator: OpEquals},
	}
	require.Error(t, cfg.Validate())
}

func TestValidate_ConditionExistsNeedsNoValue(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Routes[0].Conditions = []ExecutionCondition{
		{Variable: "user_type", Operator: OpExists},
	}
	require.NoError(t, cfg.Validate())
}

func TestBaseEnvironmentName_FallsBackInOrder(t *testing.T) {
	cfg := baseValidConfig()
	cfg.Global.BaseEnvironment = ""
	cfg.Environments[0].IsBase = false
	assert.Equal(t, "test", cfg.BaseEnvironmentName())

	cfg.Environments[0].IsBase = true
	assert.Equal(t, "test", cfg.BaseEnvironmentName())

	cfg.Global.BaseEnvironment = "prod"
	assert.Equal(t, "prod", cfg.BaseEnvironmentName())
}
