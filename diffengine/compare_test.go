package diffengine

import (
	"testing"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resp(status int, headers map[string]string, body string) httpclient.HttpResponse {
	h := make(httpclient.Headers, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	return httpclient.HttpResponse{Status: status, Headers: h, Body: body}
}

func TestCompare_IdenticalHealthChecks(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"staging":    resp(200, map[string]string{"Content-Type": "application/json"}, `{"status":"ok"}`),
		"production": resp(200, map[string]string{"Content-Type": "application/json"}, `{"status": "ok"}`),
	}

	result := Compare("health", "user-1", "staging", []string{"staging", "production"}, responses, config.GlobalConfig{})

	require.True(t, result.IsIdentical)
	assert.Empty(t, result.Differences)
	assert.False(t, result.HasErrors)
}

func TestCompare_BodyDiffDetected(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"staging":    resp(200, nil, `{"version":"1.0"}`),
		"production": resp(200, nil, `{"version":"2.0"}`),
	}

	result := Compare("version", "user-1", "staging", []string{"staging", "production"}, responses, config.GlobalConfig{})

	require.False(t, result.IsIdentical)
	require.Len(t, result.Differences, 1)
	assert.Equal(t, CategoryBody, result.Differences[0].Category)
	bd, ok := result.Differences[0].Payload.(BodyDiff)
	require.True(t, ok)
	assert.NotEqual(t, bd.NormalizedBase, bd.NormalizedOther)
}

func TestCompare_StatusSplitMarksHasErrors(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"staging":    resp(200, nil, `{}`),
		"production": resp(500, nil, `{"error":"boom"}`),
	}

	result := Compare("widgets", "user-1", "staging", []string{"staging", "production"}, responses, config.GlobalConfig{})

	require.False(t, result.IsIdentical)
	assert.True(t, result.HasErrors)
	assert.Equal(t, `{"error":"boom"}`, result.ErrorBodies["production"])
	found := false
	for _, d := range result.Differences {
		if d.Category == CategoryStatus {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCompare_IsIdenticalIffDifferencesEmpty(t *testing.T) {
	cases := []map[string]httpclient.HttpResponse{
		{"a": resp(200, nil, "x"), "b": resp(200, nil, "x")},
		{"a": resp(200, nil, "x"), "b": resp(200, nil, "y")},
		{"a": resp(200, nil, "x"), "b": resp(404, nil, "x")},
	}
	for _, responses := range cases {
		result := Compare("r", "u", "a", []string{"a", "b"}, responses, config.GlobalConfig{})
		assert.Equal(t, len(result.Differences) == 0, result.IsIdentical)
	}
}

func TestCompare_HasErrorsIffSomeStatusOutsideSuccessRange(t *testing.T) {
	cases := []map[string]httpclient.HttpResponse{
		{"a": resp(200, nil, "x"), "b": resp(201, nil, "x")},
		{"a": resp(200, nil, "x"), "b": resp(404, nil, "x")},
		{"a": resp(500, nil, "x"), "b": resp(200, nil, "x")},
	}
	for _, responses := range cases {
		result := Compare("r", "u", "a", []string{"a", "b"}, responses, config.GlobalConfig{})
		wantErrors := false
		for _, r := range responses {
			if r.Status < 200 || r.Status >= 300 {
				wantErrors = true
			}
		}
		assert.Equal(t, wantErrors, result.HasErrors)
	}
}

func TestCompare_HeaderDiffIgnoresConfiguredHeaders(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"a": resp(200, map[string]string{"Date": "mon", "X-Trace": "111"}, "x"),
		"b": resp(200, map[string]string{"Date": "tue", "X-Trace": "222"}, "x"),
	}
	global := config.GlobalConfig{CompareHeaders: true, IgnoredHeaders: []string{"date"}}

	result := Compare("r", "u", "a", []string{"a", "b"}, responses, global)

	require.Len(t, result.Differences, 1)
	assert.Equal(t, CategoryHeaders, result.Differences[0].Category)
	hd := result.Differences[0].Payload.([]HeaderDiff)
	require.Len(t, hd, 1)
	assert.Equal(t, "X-Trace", hd[0].Name)
}

func TestCompare_HeaderDiffDisabledByDefault(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"a": resp(200, map[string]string{"X-Trace": "111"}, "x"),
		"b": resp(200, map[string]string{"X-Trace": "222"}, "x"),
	}

	result := Compare("r", "u", "a", []string{"a", "b"}, responses, config.GlobalConfig{})

	assert.True(t, result.IsIdentical)
	assert.Empty(t, result.Differences)
}

func TestCompare_LargeResponseFlaggedAgainstThreshold(t *testing.T) {
	big := make([]byte, 100)
	for i := range big {
		big[i] = 'a'
	}
	responses := map[string]httpclient.HttpResponse{
		"a": resp(200, nil, string(big)),
		"b": resp(200, nil, string(big)+"x"),
	}
	global := config.GlobalConfig{LargeResponseThresholdBytes: 50}

	result := Compare("r", "u", "a", []string{"a", "b"}, responses, global)

	require.Len(t, result.Differences, 1)
	bd := result.Differences[0].Payload.(BodyDiff)
	assert.True(t, bd.IsLargeResponse)
}

func TestCompare_MissingBaseResponseYieldsNoDifferences(t *testing.T) {
	responses := map[string]httpclient.HttpResponse{
		"production": resp(200, nil, "x"),
	}
	result := Compare("r", "u", "staging", []string{"staging", "production"}, responses, config.GlobalConfig{})
	assert.True(t, result.IsIdentical)
	assert.Empty(t, result.Differences)
}
