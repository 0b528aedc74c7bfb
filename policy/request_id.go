// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/request"
	"github.com/google/uuid"
)

// RequestIDHeader is the header carrying the client request ID.
const RequestIDHeader = "x-ms-client-request-id"

// RequestID sets the client request ID header to a random UUID unless
// the request already carries one. Placed ahead of the retry policy,
// every attempt of a call shares the same ID.
type RequestID struct{}

// Send sets the request ID header if absent and delegates to next.
func (RequestID) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	if req.Header(RequestIDHeader) == "" {
		if err := req.AddHeader(RequestIDHeader, uuid.NewString()); err != nil {
			return nil, err
		}
	}

	return next.Send(ctx, req)
}
