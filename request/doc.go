// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Request, Response, and
Execution, which travel through every pipeline.

A Request describes a logical HTTP request. It may be sent several
times if a retry policy decides a failed attempt should be retried, so
it separates the headers and query parameters it was built with (the
base values) from those injected by policies during the current attempt
(the retry-scoped values):

	r, err := request.New("GET", "https://vault.example.com/secrets/s?api-version=7.2", nil)
	...
	r.AddHeader("x-ms-version", "2021-01-01") // base
	r.StartRetry()
	r.AddHeader("Authorization", "Bearer A") // retry-scoped
	r.StartRetry()                           // clears "Bearer A" only

The request body is either an in-memory buffer (New) or a stream pulled
as the request is written (NewWithStream). A stream that cannot seek
makes the request non-retryable once it has been read from.

A Response is produced by a transport. Its body is either fully
buffered or a BodyStream pulled by the caller; the two modes are
mutually exclusive, and once the caller starts reading the stream, the
buffered accessor Body returns ErrStreamConsumed.

An Execution represents the state of a request's journey through a
retry policy. It is the input type for retry deciders and waiters,
timeout policies, and event handlers. You will typically not allocate
Execution instances yourself.
*/
package request
