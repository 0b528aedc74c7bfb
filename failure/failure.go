// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package failure

import (
	"context"
	"errors"
	"strings"
)

// A Kind classifies a pipeline failure.
type Kind int

const (
	// None is the kind reported for a nil error, or for an error which
	// does not carry a *Error anywhere in its chain.
	None Kind = iota
	// TransportFailure indicates a generic network I/O failure while
	// sending the request or receiving the response. Transport
	// failures are fatal to the current attempt but eligible for retry.
	TransportFailure
	// CouldNotResolveHost indicates the host name in the request URL
	// could not be resolved to a network address. It is a transport
	// failure.
	CouldNotResolveHost
	// ErrorWritingResponse indicates the transport could not deliver
	// received response bytes to their destination, for example
	// because a buffered body exceeded its size limit. It is a
	// transport failure.
	ErrorWritingResponse
	// Protocol indicates the peer sent data that could not be parsed:
	// a malformed status line, corrupt framing, or an unrecognized
	// wire node. Protocol failures are never retried.
	Protocol
	// Cancelled indicates the caller's context was cancelled or its
	// deadline exceeded before the operation completed.
	Cancelled
	// Unsupported indicates a policy rejected an operation it cannot
	// perform, such as recording a streaming request. Unsupported
	// failures happen before any network activity.
	Unsupported
	kindSentinel
)

var kindNames = []string{
	"None",
	"TransportFailure",
	"CouldNotResolveHost",
	"ErrorWritingResponse",
	"Protocol",
	"Cancelled",
	"Unsupported",
}

// String returns the name of the kind.
func (k Kind) String() string {
	if k < 0 || k >= kindSentinel {
		return "Kind(?)"
	}

	return kindNames[k]
}

// IsTransport reports whether k is one of the transport failure kinds.
func (k Kind) IsTransport() bool {
	return k == TransportFailure || k == CouldNotResolveHost || k == ErrorWritingResponse
}

// An Error is a classified pipeline failure.
//
// Op is the HTTP method of the request being processed (in the same
// mixed-case form used by net/url's Error, e.g. "Get") and URL is its
// URL. Err is the underlying cause and may be nil.
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

// New returns a new *Error with the given kind, operation, URL and
// cause.
func New(kind Kind, op, url string, err error) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		URL:  url,
		Err:  err,
	}
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteByte(' ')
	}
	if e.URL != "" {
		b.WriteByte('"')
		b.WriteString(e.URL)
		b.WriteString(`": `)
	}
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was caused by a timeout: either
// the cause reports Timeout() true, or the failure is a cancellation
// due to an exceeded deadline.
func (e *Error) Timeout() bool {
	if e.Err == nil {
		return false
	}

	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}

	var t interface{ Timeout() bool }
	return errors.As(e.Err, &t) && t.Timeout()
}

// KindOf returns the kind of the first *Error found in err's chain, or
// None if there is no such error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return None
}

// Is reports whether err's chain contains a *Error of kind k.
func Is(err error, k Kind) bool {
	return err != nil && KindOf(err) == k
}

// IsTransport reports whether err's chain contains a *Error with a
// transport failure kind.
func IsTransport(err error) bool {
	return KindOf(err).IsTransport()
}

// Cancellation returns a Cancelled *Error wrapping ctx.Err(), or nil
// if ctx is not done.
func Cancellation(ctx context.Context, op, url string) error {
	err := ctx.Err()
	if err == nil {
		return nil
	}

	return New(Cancelled, op, url, err)
}

// Op converts an HTTP method into the mixed-case operation name used
// in error messages, following net/http.
func Op(method string) string {
	if method == "" {
		return "Get"
	}

	return method[:1] + strings.ToLower(method[1:])
}
