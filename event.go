// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import "strconv"

// An Event is a point in the retry loop where a RetryPolicy runs the
// handlers installed in its HandlerGroup.
type Event int

// Events, in the order they occur within one execution.
const (
	// BeforeExecutionStart fires once, before the first attempt. Only
	// the Request field of the execution is set.
	BeforeExecutionStart Event = iota
	// BeforeAttempt fires before each attempt enters the rest of the
	// pipeline. The retry-scoped headers and query parameters are
	// empty at this point, so anything a handler adds lasts for this
	// attempt only.
	BeforeAttempt
	// AfterAttemptTimeout fires when an attempt ran out of its own
	// timeout. Err holds the timeout and AttemptTimeouts already
	// counts it.
	AfterAttemptTimeout
	// AfterAttempt fires after every attempt, before the decider runs.
	// Exactly one of Response and Err is set.
	AfterAttempt
	// BeforeRetryWait fires once a retry is decided, before the
	// backoff sleep.
	BeforeRetryWait
	// AfterExecutionTimeout fires when the caller's deadline passes,
	// whether at the end of an attempt or during a backoff sleep.
	// Response is nil.
	AfterExecutionTimeout
	// AfterExecutionEnd fires last, with End set and the outcome the
	// retry policy is about to return.
	AfterExecutionEnd

	numEvents = int(iota)
)

var eventNames = [numEvents]string{
	"BeforeExecutionStart",
	"BeforeAttempt",
	"AfterAttemptTimeout",
	"AfterAttempt",
	"BeforeRetryWait",
	"AfterExecutionTimeout",
	"AfterExecutionEnd",
}

// Events returns every Event in firing order.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}

	return evts
}

// Name returns the identifier of evt, such as "BeforeAttempt".
func (evt Event) Name() string {
	if evt < 0 || int(evt) >= numEvents {
		return "Event(" + strconv.Itoa(int(evt)) + ")"
	}

	return eventNames[evt]
}

// String is the same as Name.
func (evt Event) String() string {
	return evt.Name()
}
