// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"errors"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
)

// ErrNoNextPolicy is returned when a policy delegates past the end of
// the pipeline. The terminal TransportPolicy never delegates, so this
// only happens if a NextPolicy is used outside a pipeline.
var ErrNoNextPolicy = errors.New("httpipe: no next policy")

// A Policy is one stage of a pipeline.
//
// Send receives the request on its way down the pipeline and returns
// the response on its way back up. It may mutate the request before
// delegating to next, inspect or annotate the response after next
// returns, or fail fast without delegating at all. Apart from the
// retry policy, a policy calls next.Send at most once.
//
// A Policy is shared by every request sent through the pipeline, so
// implementations must be safe for concurrent use by multiple
// goroutines and must keep no per-request state.
type Policy interface {
	Send(ctx context.Context, req *request.Request, next NextPolicy) (*request.Response, error)
}

// The PolicyFunc type is an adapter to allow the use of ordinary
// functions as policies.
type PolicyFunc func(ctx context.Context, req *request.Request, next NextPolicy) (*request.Response, error)

// Send calls f(ctx, req, next).
func (f PolicyFunc) Send(ctx context.Context, req *request.Request, next NextPolicy) (*request.Response, error) {
	return f(ctx, req, next)
}

// A NextPolicy is an opaque handle to the remainder of the pipeline
// after the current policy.
type NextPolicy struct {
	policies []Policy
	index    int
}

// Send passes the request to the next policy in the pipeline and
// returns its response.
func (n NextPolicy) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	if n.index >= len(n.policies) {
		return nil, ErrNoNextPolicy
	}

	return n.policies[n.index].Send(ctx, req, NextPolicy{n.policies, n.index + 1})
}

// A Transport performs the network exchange for a request.
//
// A Transport must honor the request's body mode: if
// req.DownloadViaStream() is true the response body is returned as a
// stream, otherwise it is fully buffered. Failures are reported as
// *failure.Error values, and a done context is reported as a
// failure.Cancelled error.
//
// Implementations must be safe for concurrent use by multiple
// goroutines.
type Transport interface {
	Send(ctx context.Context, req *request.Request) (*request.Response, error)
}

// The TransportFunc type is an adapter to allow the use of ordinary
// functions as transports.
type TransportFunc func(ctx context.Context, req *request.Request) (*request.Response, error)

// Send calls f(ctx, req).
func (f TransportFunc) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	return f(ctx, req)
}

// A TransportPolicy is the terminal policy of every pipeline. It hands
// the request to a Transport and never delegates further.
type TransportPolicy struct {
	Transport Transport
}

// Send checks for cancellation and then sends req through the
// transport.
func (p TransportPolicy) Send(ctx context.Context, req *request.Request, _ NextPolicy) (*request.Response, error) {
	if err := failure.Cancellation(ctx, failure.Op(req.Method), req.EncodedURL()); err != nil {
		return nil, err
	}

	return p.Transport.Send(ctx, req)
}
