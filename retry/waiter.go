// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gogama/httpipe/request"
)

// A Waiter says how long to sleep before the next retry. It is only
// consulted after the Decider has agreed to retry, and must be safe for
// concurrent use.
type Waiter interface {
	Wait(e *request.Execution) time.Duration
}

const (
	// DefaultDelay is the base delay of DefaultWaiter.
	DefaultDelay = 800 * time.Millisecond
	// DefaultMaxDelay caps the computed delay of DefaultWaiter.
	DefaultMaxDelay = 60 * time.Second
)

// DefaultWaiter obeys the server's retry-after hint when there is one,
// and otherwise backs off with NewJitterWaiter(DefaultDelay,
// DefaultMaxDelay, time.Now()).
var DefaultWaiter = NewHeaderWaiter(NewJitterWaiter(DefaultDelay, DefaultMaxDelay, time.Now()))

// NewFixedWaiter returns a Waiter that always waits d.
func NewFixedWaiter(d time.Duration) Waiter {
	return fixedWaiter(d)
}

type fixedWaiter time.Duration

func (w fixedWaiter) Wait(*request.Execution) time.Duration {
	return time.Duration(w)
}

// NewExpWaiter returns a "full jitter" exponential backoff: a uniformly
// random wait in [0, ceil), where
//
//	ceil = min(base * 2^attempt, max)
//
// base must be positive and max at least base.
//
// jitter seeds the randomness. It may be a time.Time, an int or int64
// seed, a rand.Source or a *rand.Rand. With a nil jitter the waiter
// always waits ceil.
func NewExpWaiter(base, max time.Duration, jitter interface{}) Waiter {
	return newBackoff(base, max, jitter, fullJitter)
}

// NewJitterWaiter returns an exponential backoff that scales its ceiling
// by a random factor in [0.8, 1.3):
//
//	wait = min(base * 2^attempt * factor, max)
//
// Unlike NewExpWaiter the wait never collapses towards zero, which
// suits services that expect a minimum back-off. The arguments are as
// for NewExpWaiter; a nil jitter fixes the factor at 1.
func NewJitterWaiter(base, max time.Duration, jitter interface{}) Waiter {
	return newBackoff(base, max, jitter, scaledJitter)
}

type jitterMode int

const (
	fullJitter jitterMode = iota
	scaledJitter
)

const (
	minScale   = 0.8
	scaleRange = 0.5
)

type backoff struct {
	base, max time.Duration
	mode      jitterMode

	mu  sync.Mutex
	rnd *rand.Rand
}

func newBackoff(base, max time.Duration, jitter interface{}, mode jitterMode) *backoff {
	if base <= 0 {
		panic("httpipe/retry: base must be positive")
	}
	if max < base {
		panic("httpipe/retry: max must be at least base")
	}

	return &backoff{base: base, max: max, mode: mode, rnd: newRand(jitter)}
}

func (b *backoff) Wait(e *request.Execution) time.Duration {
	ceil := b.ceil(e.Attempt)
	if b.rnd == nil {
		return ceil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.mode == fullJitter {
		if ceil <= 0 {
			return 0
		}
		return time.Duration(b.rnd.Int63n(int64(ceil)))
	}

	n := e.Attempt
	if n < 0 {
		n = 0
	}
	scaled := float64(b.base) * math.Pow(2, float64(n)) * (minScale + b.rnd.Float64()*scaleRange)
	if scaled >= float64(b.max) {
		return b.max
	}
	return time.Duration(scaled)
}

// ceil returns min(base * 2^attempt, max), saturating on overflow.
func (b *backoff) ceil(attempt int) time.Duration {
	switch {
	case attempt <= 0:
		return b.base
	case attempt >= 63:
		return b.max
	}

	if b.base > b.max>>uint(attempt) {
		return b.max
	}
	return b.base << uint(attempt)
}

func newRand(jitter interface{}) *rand.Rand {
	switch j := jitter.(type) {
	case nil:
		return nil
	case time.Time:
		return rand.New(rand.NewSource(j.UnixNano()))
	case int:
		return rand.New(rand.NewSource(int64(j)))
	case int64:
		return rand.New(rand.NewSource(j))
	case *rand.Rand:
		if j == nil {
			panic("httpipe/retry: jitter may not be a typed nil")
		}
		return j
	case rand.Source:
		return rand.New(j)
	default:
		panic("httpipe/retry: invalid jitter type")
	}
}
