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

// A Pipeline is an ordered, immutable chain of policies terminating in
// a transport.
//
// A request sent through a Pipeline visits the policies in the order
// they were given to NewPipeline on the way down, reaches the
// transport, and visits them in reverse order on the way back up.
// Pipelines are built once per client and are safe for concurrent use
// by multiple goroutines.
type Pipeline struct {
	policies []Policy
}

// NewPipeline constructs a Pipeline from the given policies, appending
// a TransportPolicy for t as the terminal policy. The policies slice is
// copied.
func NewPipeline(t Transport, policies ...Policy) *Pipeline {
	if t == nil {
		panic("httpipe: nil transport")
	}

	p := make([]Policy, 0, len(policies)+1)
	for _, policy := range policies {
		if policy == nil {
			panic("httpipe: nil policy")
		}
		p = append(p, policy)
	}
	p = append(p, TransportPolicy{Transport: t})

	return &Pipeline{policies: p}
}

// Policies returns a copy of the pipeline's policies, including the
// terminal TransportPolicy.
func (p *Pipeline) Policies() []Policy {
	return append([]Policy(nil), p.policies...)
}

// Send sends req through the pipeline and returns the final response.
//
// If ctx is already done, Send returns a failure.Cancelled error
// without running any policy. A non-retryable HTTP status is not an
// error: the response is returned with a nil error, and the caller
// decides what to do with it.
func (p *Pipeline) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	if ctx == nil {
		panic("httpipe: nil context")
	}
	if req == nil {
		return nil, errors.New("httpipe: nil request")
	}
	if err := failure.Cancellation(ctx, failure.Op(req.Method), req.EncodedURL()); err != nil {
		return nil, err
	}

	return NextPolicy{p.policies, 0}.Send(ctx, req)
}
