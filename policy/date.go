// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"
	"net/http"
	"time"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/request"
)

// DateHeader is the header PerRetryDate sets.
const DateHeader = "x-ms-date"

// PerRetryDate stamps each attempt with the current time in the
// x-ms-date header, in RFC 1123 format, unless the request carries a
// Date header. It belongs after the retry policy so that a retried
// request is not rejected for carrying a stale date.
type PerRetryDate struct {
	// Now returns the current time. If nil, time.Now is used.
	Now func() time.Time
}

// Send sets the date header and delegates to next.
func (p PerRetryDate) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	if req.Header("Date") == "" {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		if err := req.AddHeader(DateHeader, now().UTC().Format(http.TimeFormat)); err != nil {
			return nil, err
		}
	}

	return next.Send(ctx, req)
}
