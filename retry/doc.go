// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry decides when a failed attempt is sent again and how
// long to wait first.
//
// A Policy is a Decider plus a Waiter. Deciders compose with And and
// Or; waiters wrap one another. A policy for a storage service that
// publishes retry-after hints might look like this:
//
//	decider := retry.Times(5).
//		And(retry.Before(30 * time.Second)).
//		And(retry.StatusCode(retry.DefaultStatusCodes...).Or(retry.TransientErr))
//	waiter := retry.NewHeaderWaiter(
//		retry.NewJitterWaiter(200*time.Millisecond, 10*time.Second, time.Now()))
//	policy := retry.NewPolicy(decider, waiter)
//
// Protocol and Unsupported failures are never transient, so the
// built-in deciders do not retry them.
package retry
