// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/internal/logger"
	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/retry"
	"github.com/gogama/httpipe/timeout"
	"go.uber.org/zap"
)

// A RetryPolicy is the pipeline stage that re-sends a request through
// the rest of the pipeline when an attempt fails with a retryable
// error or status. Its zero value is a valid configuration.
//
// Before every attempt, RetryPolicy clears the request's retry-scoped
// headers and query parameters, rewinds the request body, and derives
// an attempt context from the caller's context using the timeout
// policy. Policies placed after the RetryPolicy therefore run once per
// attempt, and can use RetryNumber to find out which attempt it is.
//
// Between attempts RetryPolicy sleeps for the duration chosen by the
// retry policy's Waiter, waking early if the caller's context is done.
// A response from a discarded attempt is closed before the next
// attempt starts.
//
// When no further retry is warranted, the outcome of the last attempt
// is returned unchanged: a non-retryable status, or a retryable status
// after the retry budget is exhausted, is returned with a nil error.
type RetryPolicy struct {
	// Retry decides when to retry failed attempts and how long to
	// sleep after a failed attempt before retrying.
	//
	// If Retry is nil, retry.DefaultPolicy is used.
	Retry retry.Policy
	// Timeout specifies how to set timeouts on individual attempts.
	//
	// If Timeout is nil, timeout.DefaultPolicy is used.
	Timeout timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during the retry loop.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Logger receives retry diagnostics.
	//
	// If Logger is nil, the logger carried by the context is used, or
	// the process-wide logger if the context carries none.
	Logger *zap.Logger
}

// Send executes req through the rest of the pipeline, retrying as the
// retry policy dictates.
func (p *RetryPolicy) Send(ctx context.Context, req *request.Request, next NextPolicy) (*request.Response, error) {
	e := request.Execution{
		Request: req,
	}

	retryPolicy := p.Retry
	if retryPolicy == nil {
		retryPolicy = retry.DefaultPolicy
	}

	timeoutPolicy := p.Timeout
	if timeoutPolicy == nil {
		timeoutPolicy = timeout.DefaultPolicy
	}

	handlers := p.Handlers
	log := p.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	op := failure.Op(req.Method)

	handlers.run(BeforeExecutionStart, &e)
	e.Start = time.Now()

RetryLoop:
	for {
		if err := failure.Cancellation(ctx, op, req.EncodedURL()); err != nil {
			e.Err = err
			break
		}
		if err := req.RewindBody(); err != nil {
			e.Err = failure.New(failure.TransportFailure, op, req.EncodedURL(), err)
			break
		}
		req.StartRetry()
		attempt(ctx, next, &e, handlers, timeoutPolicy)
		if e.Timeout() {
			e.AttemptTimeouts++
			handlers.run(AfterAttemptTimeout, &e)
		}
		handlers.run(AfterAttempt, &e)
		if ctx.Err() != nil {
			discard(&e)
			e.Err = failure.Cancellation(ctx, op, req.EncodedURL())
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				handlers.run(AfterExecutionTimeout, &e)
			}
			break
		}
		if !retryPolicy.Decide(&e) {
			break
		}
		if !req.Rewindable() {
			log.Debug("request body can't be rewound, not retrying",
				zap.Int("attempt", e.RetryNumber()))
			break
		}
		wait := retryPolicy.Wait(&e)
		log.Info("retry scheduled",
			zap.Int("nextAttempt", e.RetryNumber()+1),
			zap.Int64("delayMs", wait.Milliseconds()),
			zap.Int("status", e.StatusCode()),
			zap.Error(e.Err))
		handlers.run(BeforeRetryWait, &e)
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			discard(&e)
			e.Err = failure.Cancellation(ctx, op, req.EncodedURL())
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				handlers.run(AfterExecutionTimeout, &e)
			}
			break RetryLoop
		}
		discard(&e)
		e.PrevTimeout = e.Timeout()
		e.Err = nil
		e.Attempt++
	}

	e.End = time.Now()
	handlers.run(AfterExecutionEnd, &e)
	return e.Response, e.Err
}

func attempt(ctx context.Context, next NextPolicy, e *request.Execution, handlers *HandlerGroup, timeoutPolicy timeout.Policy) {
	attemptCtx, cancel := attemptContext(ctx, timeoutPolicy.Timeout(e))
	attemptCtx = withRetryNumber(attemptCtx, e.RetryNumber())
	handlers.run(BeforeAttempt, e)
	resp, err := next.Send(attemptCtx, e.Request)
	if err != nil {
		if resp != nil {
			_ = resp.Close()
		}
		resp = nil
	}
	e.Response, e.Err = resp, err
	if resp != nil && resp.IsStreaming() {
		// The attempt context governs the stream, so it stays alive
		// until the caller closes the response.
		resp.OnClose(cancel)
		return
	}
	cancel()
}

func attemptContext(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 || d == time.Duration(math.MaxInt64) {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, d)
}

func discard(e *request.Execution) {
	if e.Response != nil {
		_ = e.Response.Close()
		e.Response = nil
	}
}
