// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package failure defines the error taxonomy shared by the pipeline,
// its policies, and its transports.
//
// Every error produced inside the pipeline is, or wraps, a *Error
// whose Kind tells the caller what went wrong: the network broke
// (TransportFailure, CouldNotResolveHost, ErrorWritingResponse), the
// peer spoke a corrupt protocol (Protocol), the caller gave up
// (Cancelled), or a policy refused an operation it cannot support
// (Unsupported). Non-retryable HTTP status codes are never errors;
// they are returned to the caller as ordinary responses.
//
// Because the kind travels inside the error value, retry
// classification is a pure function of the error:
//
//	if failure.Is(err, failure.Cancelled) {
//		// The caller's context ended; don't retry at a higher level.
//	}
package failure
