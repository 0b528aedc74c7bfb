// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"context"
	"errors"
	"syscall"

	"github.com/gogama/httpipe/failure"
)

// A Category says whether an error is worth retrying, and if so, why.
// Every category except Not is transient.
type Category int

const (
	// Not is the category of nil, of errors a retry cannot fix, and of
	// errors this package does not recognise. Protocol and Unsupported
	// failures are Not, as is cancellation by the caller.
	Not Category = iota
	// Timeout is a client-side timeout: an error in the chain whose
	// Timeout method reports true, or a Cancelled failure caused by an
	// exceeded deadline. Attempt timeouts surface as the latter.
	Timeout
	// ConnRefused is syscall.ECONNREFUSED anywhere in the chain. A
	// service that is restarting refuses connections for a while.
	ConnRefused
	// ConnReset is syscall.ECONNRESET anywhere in the chain, typically
	// a load balancer or a server dropping an in-flight connection.
	ConnReset
	// Transport is any other transport failure kind: TransportFailure,
	// CouldNotResolveHost or ErrorWritingResponse.
	Transport
)

var categoryNames = [...]string{"Not", "Timeout", "ConnRefused", "ConnReset", "Transport"}

// String returns the name of c.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "Category(?)"
	}

	return categoryNames[c]
}

type timeouter interface {
	Timeout() bool
}

// Categorize returns the category of err, looking through wrapped
// causes. The failure kind of err takes precedence, so a Protocol
// failure wrapping ECONNRESET is still Not. Temporary methods are
// ignored.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	switch failure.KindOf(err) {
	case failure.Protocol, failure.Unsupported:
		return Not
	case failure.Cancelled:
		if errors.Is(err, context.DeadlineExceeded) {
			return Timeout
		}
		return Not
	}

	var t timeouter
	if errors.As(err, &t) && t.Timeout() {
		return Timeout
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET):
		return ConnReset
	case errors.Is(err, syscall.ECONNREFUSED):
		return ConnRefused
	case failure.IsTransport(err):
		return Transport
	default:
		return Not
	}
}
