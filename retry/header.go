// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gogama/httpipe/request"
)

// Retry-after hint headers, in order of precedence.
const (
	HeaderRetryAfterMS    = "Retry-After-Ms"
	HeaderXMSRetryAfterMS = "X-Ms-Retry-After-Ms"
	HeaderRetryAfter      = "Retry-After"
)

// RetryAfter extracts the server's retry-after hint from h.
//
// The headers retry-after-ms and x-ms-retry-after-ms are read as a
// number of milliseconds. The header retry-after is read either as a
// number of seconds or as an HTTP date, in which case the hint is the
// time remaining between now and that date. The boolean result is
// false if no header is present, the present header can't be parsed,
// or its value overflows a time.Duration.
func RetryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	for _, name := range []string{HeaderRetryAfterMS, HeaderXMSRetryAfterMS} {
		if v := strings.TrimSpace(h.Get(name)); v != "" {
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil || ms < 0 || ms > math.MaxInt64/int64(time.Millisecond) {
				return 0, false
			}
			return time.Duration(ms) * time.Millisecond, true
		}
	}

	v := strings.TrimSpace(h.Get(HeaderRetryAfter))
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 || secs > math.MaxInt64/int64(time.Second) {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}

	return 0, false
}

// NewHeaderWaiter constructs a Waiter that honors the retry-after hint
// in the most recent response (see RetryAfter), and otherwise defers
// to fallback.
func NewHeaderWaiter(fallback Waiter) Waiter {
	if fallback == nil {
		panic("httpipe/retry: nil fallback waiter")
	}

	return headerWaiter{fallback}
}

type headerWaiter struct {
	fallback Waiter
}

func (w headerWaiter) Wait(e *request.Execution) time.Duration {
	if d, ok := RetryAfter(e.Header(), time.Now()); ok {
		return d
	}

	return w.fallback.Wait(e)
}
