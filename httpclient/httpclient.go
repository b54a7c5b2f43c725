// Package httpclient is the thin contract over an HTTP implementation that
// spec.md §4.5 describes: given a built request, return an HttpResponse or
// a RequestFailed error, honoring the global timeout and redirect policy.
// Grounded on the teacher's plugins/http/plugin.go, which wraps
// go-resty/resty/v2 the same way — a client built once in Initialize,
// reused across requests.
package httpclient

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BDNK1/httpdiff/config"
	"github.com/BDNK1/httpdiff/errclass"
	"github.com/BDNK1/httpdiff/reqbuilder"
	"github.com/go-resty/resty/v2"
)

// Headers is a name-preserving, case-insensitive-on-read header map —
// spec.md §3's HttpResponse.headers.
type Headers map[string]string

// Get performs a case-insensitive lookup, returning the value and whether
// any header matched.
func (h Headers) Get(name string) (string, bool) {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// HttpResponse is the immutable result of executing one request.
type HttpResponse struct {
	Status         int
	Headers        Headers
	Body           string
	URL            string
	CurlEquivalent string
}

// Client executes a built request. The production implementation wraps
// resty; tests use httpclienttest.Fake.
type Client interface {
	Do(ctx context.Context, req reqbuilder.Request) (HttpResponse, error)
}

// RestyClient is the production Client, configured once from GlobalConfig
// the way HTTPPlugin.Initialize configures a single resty.Client from
// env-derived Config in the teacher's plugins/http/plugin.go.
type RestyClient struct {
	client *resty.Client
}

// New builds a RestyClient honoring global.timeout_seconds and
// global.follow_redirects.
func New(global config.GlobalConfig) *RestyClient {
	c := resty.New().
		SetTimeout(time.Duration(global.TimeoutSeconds) * time.Second)

	if !global.FollowRedirects {
		c.SetRedirectPolicy(resty.NoRedirectPolicy())
	}

	return &RestyClient{client: c}
}

// Do executes req and reads the full body into memory — spec.md §4.5 notes
// the engine is tuned for API responses, not downloads, so there is no
// streaming path.
func (c *RestyClient) Do(ctx context.Context, req reqbuilder.Request) (HttpResponse, error) {
	r := c.client.R().SetContext(ctx)
	for k, v := range req.Headers {
		r.SetHeader(k, v)
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		return HttpResponse{}, errclass.RequestFailed(req.Route, req.Environment, err)
	}

	headers := make(Headers, len(resp.Header()))
	for k, vs := range resp.Header() {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}

	out := HttpResponse{
		Status:         resp.StatusCode(),
		Headers:        headers,
		Body:           string(resp.Body()),
		URL:            req.URL,
		CurlEquivalent: req.CurlEquivalent,
	}

	// Ported from the original crate's validation/response_validator.rs: a
	// response with a non-positive status is not a response worth
	// comparing, it's a failed request the transport didn't itself error on.
	if out.Status <= 0 {
		return HttpResponse{}, errclass.RequestFailed(req.Route, req.Environment, fmt.Errorf("invalid response status %d", out.Status))
	}

	return out, nil
}
