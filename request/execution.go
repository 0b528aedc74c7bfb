// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/transient"
)

// An Execution is the retry loop's record of one call: the request,
// the attempts made so far, and the outcome of the latest one.
//
// The retry policy owns the exported fields and updates them as the
// loop advances. Deciders, waiters, timeout policies and event
// handlers read them, and may keep their own state with SetValue and
// Value. Headers added to Request from a BeforeAttempt handler land in
// the retry-scoped store and apply to that attempt only.
type Execution struct {
	// Request is the request being sent. Never nil.
	Request *Request

	// Start is set when the loop starts. End is set when it ends and
	// is zero until then.
	Start time.Time
	End   time.Time

	// Attempt is the zero-based index of the current, or last,
	// attempt: 0 for the first send, 1 for the first retry.
	Attempt int

	// AttemptTimeouts counts attempts that ended because their own
	// timeout expired. Expiry of the caller's deadline is not counted.
	AttemptTimeouts int

	// PrevTimeout reports whether the attempt before the current one
	// timed out. The retry policy sets it before clearing Err.
	PrevTimeout bool

	// Response and Err are the outcome of the latest attempt. Both are
	// nil while an attempt is in flight. After End is set, Err is the
	// error the retry policy returns.
	Response *Response
	Err      error

	values map[interface{}]interface{}
}

// RetryNumber returns the one-based number of the current attempt.
func (e *Execution) RetryNumber() int {
	return e.Attempt + 1
}

// StatusCode returns the status code of the latest response, or 0 if
// there is none.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the headers of the latest response, or nil if there
// is none. A nil http.Header is safe to read.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		return nil
	}

	return e.Response.Header
}

// Kind returns the failure kind of Err, or failure.None.
func (e *Execution) Kind() failure.Kind {
	return failure.KindOf(e.Err)
}

// Duration returns the time elapsed since Start, frozen once End is
// set. It is zero before the loop starts.
func (e *Execution) Duration() time.Duration {
	switch {
	case !e.Started():
		return 0
	case e.Ended():
		return e.End.Sub(e.Start)
	default:
		return time.Since(e.Start)
	}
}

// Started reports whether Start is set.
func (e *Execution) Started() bool {
	return !e.Start.IsZero()
}

// Ended reports whether End is set. No field changes after that.
func (e *Execution) Ended() bool {
	return !e.End.IsZero()
}

// Timeout reports whether Err is a timeout, either of the attempt or
// of the caller's deadline.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// SetValue stores value under key. Keys follow the rules of
// context.WithValue: comparable, and of an unexported type to avoid
// collisions.
func (e *Execution) SetValue(key, value interface{}) {
	if e.values == nil {
		e.values = make(map[interface{}]interface{})
	}

	e.values[key] = value
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key interface{}) interface{} {
	return e.values[key]
}
