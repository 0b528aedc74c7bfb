// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"net/url"
	"sync"

	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/retry"
	"github.com/gogama/httpipe/timeout"
	"github.com/gogama/httpipe/transport"
)

// A Client sends requests through a pipeline assembled from its
// fields. Its zero value is a valid configuration.
//
// The zero value client uses a transport.HTTP backed by
// http.DefaultClient (from net/http) as the transport,
// retry.DefaultPolicy as the retry policy, timeout.DefaultPolicy as
// the timeout policy, and no extra policies or event handlers.
//
// The pipeline is assembled in this order:
//
//	PerCall policies -> RetryPolicy -> PerRetry policies -> Transport
//
// PerCall policies run once for each call to Send. PerRetry policies
// run once for every attempt, so they see the retry-scoped request
// state and can set headers which must be fresh on each attempt, such
// as a date or an authorization token.
//
// The pipeline is assembled on first use and the Client's fields must
// not be changed afterward. Client is safe for concurrent use by
// multiple goroutines, and should be reused rather than created as
// needed.
type Client struct {
	// Transport performs the network exchange.
	//
	// If Transport is nil, a transport.HTTP using http.DefaultClient
	// is used.
	Transport Transport
	// RetryPolicy decides when to retry failed attempts and how long
	// to sleep after a failed attempt before retrying.
	//
	// If RetryPolicy is nil, retry.DefaultPolicy is used.
	RetryPolicy retry.Policy
	// TimeoutPolicy specifies how to set timeouts on individual
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during the retry loop.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// PerCall lists policies which run once per call, ahead of the
	// retry policy.
	PerCall []Policy
	// PerRetry lists policies which run once per attempt, after the
	// retry policy.
	PerRetry []Policy

	once     sync.Once
	pipeline *Pipeline
}

// Pipeline returns the client's pipeline, assembling it on first use.
func (c *Client) Pipeline() *Pipeline {
	c.once.Do(func() {
		policies := make([]Policy, 0, len(c.PerCall)+1+len(c.PerRetry))
		policies = append(policies, c.PerCall...)
		policies = append(policies, &RetryPolicy{
			Retry:    c.RetryPolicy,
			Timeout:  c.TimeoutPolicy,
			Handlers: c.Handlers,
		})
		policies = append(policies, c.PerRetry...)
		c.pipeline = NewPipeline(c.transport(), policies...)
	})

	return c.pipeline
}

// Send sends req through the client's pipeline and returns the final
// response.
//
// An error is returned if, after doing any retries mandated by the
// retry policy, the final attempt resulted in an error. A non-2XX
// status code in the final attempt does not result in an error.
//
// Any returned error from the built-in policies and transports is of
// type *failure.Error. Its Timeout method returns true if the final
// attempt timed out, or if ctx's deadline was exceeded.
//
// If the request asked for a streamed download, the caller must Close
// the returned response. Closing a buffered response is harmless.
func (c *Client) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	return c.Pipeline().Send(ctx, req)
}

// Get issues a GET to the specified URL, using the same policies
// followed by Send.
//
// To send a request with custom headers, use request.New and
// Client.Send.
func (c *Client) Get(ctx context.Context, url string) (*request.Response, error) {
	return Get(ctx, c, url)
}

// Head issues a HEAD to the specified URL, using the same policies
// followed by Send.
func (c *Client) Head(ctx context.Context, url string) (*request.Response, error) {
	return Head(ctx, c, url)
}

// Post issues a POST to the specified URL, using the same policies
// followed by Send.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes, namely: string; []byte; url.Values;
// io.Reader; and io.ReadCloser.
func (c *Client) Post(ctx context.Context, url, contentType string, body interface{}) (*request.Response, error) {
	return Post(ctx, c, url, contentType, body)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
func (c *Client) PostForm(ctx context.Context, url string, data url.Values) (*request.Response, error) {
	return PostForm(ctx, c, url, data)
}

// CloseIdleConnections invokes the same method on the client's
// transport. If the transport has no CloseIdleConnections method, this
// method does nothing.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.transport().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

var defaultTransport = &transport.HTTP{}

func (c *Client) transport() Transport {
	if c.Transport == nil {
		return defaultTransport
	}

	return c.Transport
}
