// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

// A Policy pairs a Decider with a Waiter. After each attempt the retry
// loop asks Decide whether to go again and, if so, Wait how long to
// sleep first. A Policy must be safe for concurrent use.
type Policy interface {
	Decider
	Waiter
}

// DefaultPolicy combines DefaultDecider and DefaultWaiter.
var DefaultPolicy = NewPolicy(DefaultDecider, DefaultWaiter)

// Never makes exactly one attempt. Attempt timeouts and event handlers
// still apply.
var Never = NewPolicy(Times(0), DefaultWaiter)

type combined struct {
	Decider
	Waiter
}

// NewPolicy returns a Policy that decides with d and waits with w.
// Neither may be nil.
func NewPolicy(d Decider, w Waiter) Policy {
	switch {
	case d == nil:
		panic("httpipe/retry: nil decider")
	case w == nil:
		panic("httpipe/retry: nil waiter")
	}

	return combined{Decider: d, Waiter: w}
}
