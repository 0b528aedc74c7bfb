// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"time"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/transient"
)

// A Decider looks at the outcome of the latest attempt and reports
// whether the request should be sent again. Deciders are shared by
// every call a client makes, so they must be safe for concurrent use.
type Decider interface {
	Decide(e *request.Execution) bool
}

// DeciderFunc adapts a plain function to Decider. Its And and Or
// methods build compound rules out of simple ones, which is usually
// easier than writing a Decider by hand.
type DeciderFunc func(e *request.Execution) bool

// DefaultTimes is the retry count of DefaultDecider.
const DefaultTimes = 3

// DefaultStatusCodes are the status codes a storage service uses to
// signal a condition that may clear on its own.
var DefaultStatusCodes = []int{408, 429, 500, 502, 503, 504}

// DefaultDecider retries up to DefaultTimes times, on a transient
// error or on one of DefaultStatusCodes.
var DefaultDecider = Times(DefaultTimes).And(StatusCode(DefaultStatusCodes...).Or(TransientErr))

// TransientErr retries when transient.Categorize reports the error of
// the latest attempt as transient. It ignores the response, so a 503
// with a nil error is not retried by TransientErr alone.
var TransientErr DeciderFunc = func(e *request.Execution) bool {
	return transient.Categorize(e.Err) != transient.Not
}

// Decide calls f(e).
func (f DeciderFunc) Decide(e *request.Execution) bool {
	return f(e)
}

// And returns a decider that is true when both f and g are. g is not
// consulted once f says no.
func (f DeciderFunc) And(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) && g(e)
	}
}

// Or returns a decider that is true when either f or g is. g is not
// consulted once f says yes.
func (f DeciderFunc) Or(g DeciderFunc) DeciderFunc {
	return func(e *request.Execution) bool {
		return f(e) || g(e)
	}
}

// Times allows n retries, which is n+1 attempts in all.
func Times(n int) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Attempt < n
	}
}

// Before allows retries while less than d has passed since the first
// attempt started.
func Before(d time.Duration) DeciderFunc {
	return func(e *request.Execution) bool {
		return e.Duration() < d
	}
}

// StatusCode retries when the latest attempt got a response whose
// status is one of codes. The codes are copied.
func StatusCode(codes ...int) DeciderFunc {
	set := make(map[int]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}

	return func(e *request.Execution) bool {
		if e.Response == nil {
			return false
		}
		_, ok := set[e.StatusCode()]
		return ok
	}
}

// Kind retries when the latest attempt failed with one of kinds.
func Kind(kinds ...failure.Kind) DeciderFunc {
	list := append([]failure.Kind(nil), kinds...)

	return func(e *request.Execution) bool {
		k := e.Kind()
		if k == failure.None {
			return false
		}
		for _, want := range list {
			if k == want {
				return true
			}
		}
		return false
	}
}
