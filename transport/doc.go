// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package transport provides the transports that sit at the end of an
httpipe pipeline.

Raw is a small HTTP/1.1 client engine. It dials one connection per
request, writes the request itself, and parses the response with an
explicit state machine:

	Idle -> HeaderReceiving -> BodyStreaming | BodyBuffering -> Complete

HTTP adapts any HTTPDoer, typically an *http.Client from net/http, to
the same contract.

Both transports honor the request's download mode. A buffered
response carries its whole body. A streamed response carries a
request.BodyStream which pulls at most ChunkSize bytes from the
network per Read; bytes that don't fit in the caller's buffer are held
until the next Read, and the network is not read again until they have
been handed over.

Both transports report failures as *failure.Error values: an unknown
host is CouldNotResolveHost, a body which can't be delivered to the
response is ErrorWritingResponse, a malformed response is Protocol, a
done context is Cancelled, and any other I/O error is
TransportFailure.
*/
package transport
