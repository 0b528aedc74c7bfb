// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net"

	"github.com/gogama/httpipe/failure"
)

var (
	// ErrMalformedResponse is the cause of Protocol failures raised
	// when the server's response can't be parsed.
	ErrMalformedResponse = errors.New("httpipe/transport: malformed response")

	// ErrBodyTooLarge is the cause of ErrorWritingResponse failures
	// raised when a buffered body exceeds the transport's
	// MaxBufferedBody.
	ErrBodyTooLarge = errors.New("httpipe/transport: response body exceeds buffer limit")

	// ErrUnsupportedScheme is the cause of Unsupported failures raised
	// for URLs whose scheme is neither http nor https.
	ErrUnsupportedScheme = errors.New("httpipe/transport: unsupported URL scheme")

	errStreamClosed = errors.New("httpipe/transport: read on closed body")
)

// DefaultChunkSize is the default upper bound on the number of body
// bytes read from the network in one pull.
const DefaultChunkSize = 16 << 10

func chunkSize(n int) int {
	if n <= 0 {
		return DefaultChunkSize
	}

	return n
}

// classify converts err into a *failure.Error. Errors which are
// already classified are returned unchanged.
func classify(ctx context.Context, op, url string, err error) error {
	if err == nil {
		return nil
	}

	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}

	if ctx.Err() != nil {
		return failure.New(failure.Cancelled, op, url, ctx.Err())
	}

	var dnsErr *net.DNSError
	switch {
	case errors.As(err, &dnsErr):
		return failure.New(failure.CouldNotResolveHost, op, url, err)
	case errors.Is(err, ErrMalformedResponse):
		return failure.New(failure.Protocol, op, url, err)
	case errors.Is(err, ErrBodyTooLarge):
		return failure.New(failure.ErrorWritingResponse, op, url, err)
	case errors.Is(err, ErrUnsupportedScheme):
		return failure.New(failure.Unsupported, op, url, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return failure.New(failure.Cancelled, op, url, err)
	default:
		return failure.New(failure.TransportFailure, op, url, err)
	}
}
