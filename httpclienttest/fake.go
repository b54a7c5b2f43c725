// Package httpclienttest provides an in-module fake HTTP client, ported
// from the original crate's testing/mocks.rs: a recording stub that lets
// runner/comparator tests exercise concurrency, batching, and diffing
// without a live server.
package httpclienttest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BDNK1/httpdiff/httpclient"
	"github.com/BDNK1/httpdiff/reqbuilder"
)

// Response stages a canned HttpResponse or error for a given
// (route,env) key.
type Response struct {
	HTTP httpclient.HttpResponse
	Err  error
}

// Fake is a recording httpclient.Client. Stub responses are looked up by
// "route|env" (set via Stage); an unstaged call returns an error naming the
// route/env/URL it was asked for, so a missing Stage call in a test fails
// loudly instead of comparing against zero-value responses.
type Fake struct {
	mu    sync.Mutex
	stubs map[string]Response
	calls []reqbuilder.Request

	inFlight  int64
	maxInFlight int64

	// Delay, if set, is invoked before each call returns — tests can use it
	// to hold a call open and observe concurrency.
	Delay func()
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{stubs: make(map[string]Response)}
}

// Stage registers the response to return for the given route/env pair.
func (f *Fake) Stage(route, env string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stubs[stubKey(route, env)] = resp
}

func stubKey(route, env string) string { return route + "|" + env }

// Do implements httpclient.Client.
func (f *Fake) Do(ctx context.Context, req reqbuilder.Request) (httpclient.HttpResponse, error) {
	cur := atomic.AddInt64(&f.inFlight, 1)
	defer atomic.AddInt64(&f.inFlight, -1)
	for {
		prevMax := atomic.LoadInt64(&f.maxInFlight)
		if cur <= prevMax || atomic.CompareAndSwapInt64(&f.maxInFlight, prevMax, cur) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()

	if f.Delay != nil {
		f.Delay()
	}

	f.mu.Lock()
	resp, ok := f.stubs[stubKey(req.Route, req.Environment)]
	f.mu.Unlock()
	if !ok {
		return httpclient.HttpResponse{}, fmt.Errorf("unstaged call: route=%s env=%s url=%s", req.Route, req.Environment, req.URL)
	}
	if resp.Err != nil {
		return httpclient.HttpResponse{}, resp.Err
	}
	out := resp.HTTP
	out.URL = req.URL
	out.CurlEquivalent = req.CurlEquivalent
	return out, nil
}

// MaxInFlight returns the highest number of concurrent Do calls observed.
func (f *Fake) MaxInFlight() int64 {
	return atomic.LoadInt64(&f.maxInFlight)
}

// Calls returns every request Do received, in call order.
func (f *Fake) Calls() []reqbuilder.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reqbuilder.Request(nil), f.calls...)
}
