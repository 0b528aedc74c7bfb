// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"time"

	"github.com/gogama/httpipe/request"
)

// A Policy chooses the timeout of each attempt a retry policy makes.
// The timeout narrows the caller's context for that attempt only. A
// streamed response body belongs to its attempt, so the timeout also
// bounds reading the stream.
//
// A Policy is shared by every call a client makes and must be safe for
// concurrent use.
type Policy interface {
	// Timeout returns the timeout of the next attempt of e.
	Timeout(e *request.Execution) time.Duration
}

// never is the timeout used to mean none.
const never = time.Duration(math.MaxInt64)

// Infinite never times an attempt out. Only the caller's context
// bounds it.
var Infinite Policy = Fixed(never)

// DefaultPolicy is Infinite, so that large streamed downloads are not
// cut short.
var DefaultPolicy = Infinite

// Fixed gives every attempt the timeout d. A d of zero or less means
// no timeout.
func Fixed(d time.Duration) Policy {
	if d <= 0 {
		d = never
	}

	return ladder{d}
}

// Adaptive gives attempts the timeout usual, except right after an
// attempt that timed out. The retry after the first timeout of an
// execution gets after[0], after the second gets after[1], and so on,
// staying on the last element once they run out.
//
// The effect is a short timeout that trims one-off slow responses,
// which backs off when the service is slow across the board:
//
//	Adaptive(500*time.Millisecond, 2*time.Second, 30*time.Second)
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	return append(ladder{usual}, after...)
}

// ladder holds the usual timeout followed by the escalation steps.
type ladder []time.Duration

func (l ladder) Timeout(e *request.Execution) time.Duration {
	if !(e.PrevTimeout || e.Timeout()) || e.AttemptTimeouts <= 0 {
		return l[0]
	}

	if e.AttemptTimeouts >= len(l) {
		return l[len(l)-1]
	}

	return l[e.AttemptTimeouts]
}
