// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync"
)

// ErrStreamConsumed is returned by Response.Body when the response is
// in streaming mode and the caller has already started reading the
// body stream.
var ErrStreamConsumed = errors.New("httpipe/request: body stream already read from")

// A BodyStream is a pull-based response body. Length returns the
// advertised total length in bytes, or -1 if it is unknown.
type BodyStream interface {
	io.ReadCloser
	Length() int64
}

// A Response is the raw HTTP response produced by a transport and
// returned up through the pipeline.
//
// The body of a Response is either fully buffered or a BodyStream,
// never both. Policies may inspect and annotate a Response on its way
// back up the pipeline, but must not discard data already present.
type Response struct {
	MajorVersion int
	MinorVersion int
	StatusCode   int
	ReasonPhrase string
	Header       http.Header

	body    []byte
	stream  *trackedStream
	onClose []func()
	closed  sync.Once
}

// NewResponse returns a new Response with the given protocol version
// and status, an empty header, and an empty buffered body.
func NewResponse(major, minor, statusCode int, reasonPhrase string) *Response {
	return &Response{
		MajorVersion: major,
		MinorVersion: minor,
		StatusCode:   statusCode,
		ReasonPhrase: reasonPhrase,
		Header:       make(http.Header),
	}
}

// Proto returns the protocol version string, for example "HTTP/1.1".
func (r *Response) Proto() string {
	return "HTTP/" + strconv.Itoa(r.MajorVersion) + "." + strconv.Itoa(r.MinorVersion)
}

// Status returns the status code and reason phrase, for example
// "404 Not Found".
func (r *Response) Status() string {
	reason := r.ReasonPhrase
	if reason == "" {
		reason = http.StatusText(r.StatusCode)
	}

	return strconv.Itoa(r.StatusCode) + " " + reason
}

// AddHeader appends value to the header name.
func (r *Response) AddHeader(name, value string) {
	r.Header.Add(name, value)
}

// AppendBody appends p to the buffered body.
func (r *Response) AppendBody(p []byte) {
	r.body = append(r.body, p...)
}

// SetBody replaces the buffered body, leaving streaming mode if the
// response was in it.
func (r *Response) SetBody(b []byte) {
	r.stream = nil
	r.body = b
}

// SetBodyStream puts the response into streaming mode with s as the
// body source.
func (r *Response) SetBodyStream(s BodyStream) {
	r.body = nil
	r.stream = &trackedStream{BodyStream: s, resp: r}
}

// IsStreaming reports whether the response body is a stream.
func (r *Response) IsStreaming() bool {
	return r.stream != nil
}

// BodyStream returns the response body stream, or nil if the body is
// buffered. Once the caller has read from the returned stream, Body
// returns ErrStreamConsumed.
func (r *Response) BodyStream() BodyStream {
	if r.stream == nil {
		return nil
	}

	return r.stream
}

// Body returns the buffered response body.
//
// If the response is in streaming mode and nothing has been read from
// the stream yet, Body drains the stream into a buffer, closes it, and
// switches the response to buffered mode. If the stream has already
// been read from, Body returns ErrStreamConsumed.
func (r *Response) Body() ([]byte, error) {
	if r.stream == nil {
		return r.body, nil
	}
	if r.stream.started {
		return nil, ErrStreamConsumed
	}

	b, err := io.ReadAll(r.stream.BodyStream)
	closeErr := r.stream.Close()
	if err != nil {
		return nil, err
	}
	if closeErr != nil {
		return nil, closeErr
	}

	r.SetBody(b)
	return b, nil
}

// OnClose registers f to run when the response is closed. Hooks run
// exactly once, in registration order.
func (r *Response) OnClose(f func()) {
	r.onClose = append(r.onClose, f)
}

// Close releases the body stream, if any, and runs the close hooks.
// Closing the stream returned by BodyStream has the same effect.
func (r *Response) Close() error {
	if r.stream != nil {
		return r.stream.Close()
	}

	r.runHooks()
	return nil
}

func (r *Response) runHooks() {
	r.closed.Do(func() {
		for _, f := range r.onClose {
			f()
		}
	})
}

type trackedStream struct {
	BodyStream
	resp    *Response
	started bool
}

func (s *trackedStream) Close() error {
	err := s.BodyStream.Close()
	s.resp.runHooks()
	return err
}

func (s *trackedStream) Read(p []byte) (int, error) {
	s.started = true
	return s.BodyStream.Read(p)
}
