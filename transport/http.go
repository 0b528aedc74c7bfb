// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
)

// An HTTPDoer implements a Do method in the same manner as the GoLang
// standard library http.Client from the net/http package.
type HTTPDoer interface {
	// Do sends an HTTP request and returns an HTTP response following
	// policy (such as redirects, cookies, auth) configured on the
	// HTTPDoer.
	//
	// The Do method must follow the contract documented on the GoLang
	// standard library http.Client from the net/http package.
	Do(r *http.Request) (*http.Response, error)
}

// An HTTP transport adapts an HTTPDoer to the pipeline. Its zero value
// uses http.DefaultClient.
//
// The HTTPDoer is responsible for connection management, redirects,
// and protocol negotiation (including HTTP/2), so consult its
// documentation for those details.
type HTTP struct {
	// Doer sends the request. If nil, http.DefaultClient is used.
	Doer HTTPDoer
	// ChunkSize bounds the number of body bytes read from the network
	// in one pull. If zero, DefaultChunkSize is used.
	ChunkSize int
	// MaxBufferedBody bounds the size of a buffered response body. If
	// zero, buffered bodies are unbounded.
	MaxBufferedBody int64
}

// Send performs the exchange for req through the HTTPDoer.
func (t *HTTP) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	op := failure.Op(req.Method)
	rawURL := req.EncodedURL()
	if err := failure.Cancellation(ctx, op, rawURL); err != nil {
		return nil, err
	}

	hreq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return nil, classify(ctx, op, rawURL, err)
	}

	hresp, err := t.doer().Do(hreq)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, classify(ctx, op, rawURL, err)
	}

	resp := request.NewResponse(hresp.ProtoMajor, hresp.ProtoMinor, hresp.StatusCode, reasonPhrase(hresp))
	for name, values := range hresp.Header {
		for _, value := range values {
			resp.AddHeader(name, value)
		}
	}

	if req.DownloadViaStream() {
		wrap := func(err error) error { return classify(ctx, op, rawURL, err) }
		done := func() { _ = hresp.Body.Close() }
		resp.SetBodyStream(newBodyStream(hresp.Body, hresp.ContentLength, t.ChunkSize, wrap, done, hresp.Body.Close))
		return resp, nil
	}

	err = bufferBody(resp, hresp.Body, t.ChunkSize, t.MaxBufferedBody)
	_ = hresp.Body.Close()
	if err != nil {
		return nil, classify(ctx, op, rawURL, err)
	}

	return resp, nil
}

// CloseIdleConnections invokes the same method on the HTTPDoer, if it
// has one.
func (t *HTTP) CloseIdleConnections() {
	type idleCloser interface {
		CloseIdleConnections()
	}
	if ic, ok := t.doer().(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (t *HTTP) doer() HTTPDoer {
	if t.Doer == nil {
		return http.DefaultClient
	}

	return t.Doer
}

func toHTTPRequest(ctx context.Context, req *request.Request) (*http.Request, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.Method, req.EncodedURL(), req.BodyReader())
	if err != nil {
		return nil, err
	}

	hreq.Header = req.Headers()
	if host := hreq.Header.Get("Host"); host != "" {
		hreq.Host = host
		hreq.Header.Del("Host")
	}

	if req.HasBodyStream() {
		hreq.ContentLength = req.ContentLength()
		if hreq.ContentLength == 0 {
			// Zero means unknown to net/http when Body is non-nil.
			hreq.Body = http.NoBody
		}
	}

	return hreq, nil
}

func reasonPhrase(hresp *http.Response) string {
	return strings.TrimPrefix(hresp.Status, strconv.Itoa(hresp.StatusCode)+" ")
}
