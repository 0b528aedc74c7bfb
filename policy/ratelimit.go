// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"
	"fmt"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
	"golang.org/x/time/rate"
)

// A RateLimit policy delays requests so that they leave the pipeline
// no faster than its limiter allows. Placed after the retry policy it
// limits attempts, and placed ahead of it, calls.
type RateLimit struct {
	Limiter *rate.Limiter
}

// NewRateLimit returns a RateLimit policy allowing r requests per
// second with bursts of up to burst requests.
func NewRateLimit(r rate.Limit, burst int) *RateLimit {
	return &RateLimit{Limiter: rate.NewLimiter(r, burst)}
}

// Send waits for the limiter and delegates to next. If ctx is done
// while waiting, or its deadline would pass before the limiter allows
// the request, a failure.Cancelled error is returned. The latter counts
// as a timeout.
func (p *RateLimit) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	op, rawURL := failure.Op(req.Method), req.EncodedURL()
	if err := p.Limiter.Wait(ctx); err != nil {
		if cerr := failure.Cancellation(ctx, op, rawURL); cerr != nil {
			return nil, cerr
		}
		// The limiter fails fast when the wait would outlast the
		// context deadline.
		err = fmt.Errorf("httpipe/policy: rate limit: %w: %w", err, context.DeadlineExceeded)
		return nil, failure.New(failure.Cancelled, op, rawURL, err)
	}

	return next.Send(ctx, req)
}
