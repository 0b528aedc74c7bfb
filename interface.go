// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"net/url"

	"github.com/gogama/httpipe/request"
)

// Sender is the interface that wraps the basic Send method.
//
// Send sends a request through a pipeline and returns the final
// response (and error, if any). Pipeline and Client implement the
// Sender interface, and any other Sender implementation must behave
// substantially the same as Pipeline.Send.
//
// Any Sender can be converted into an Executor via the Inflate
// function.
type Sender interface {
	Send(ctx context.Context, req *request.Request) (*request.Response, error)
}

// Getter is the interface that wraps the basic Get method.
//
// Get creates a request to issue a GET to the specified URL, sends it,
// and returns the final response (and error, if any).
//
// Any Sender can be used to emulate a Getter via the Get function.
type Getter interface {
	Get(ctx context.Context, url string) (*request.Response, error)
}

// Header is the interface that wraps the basic Head method.
//
// Head creates a request to issue a HEAD to the specified URL, sends
// it, and returns the final response (and error, if any).
//
// Any Sender can be used to emulate a Header via the Head function.
type Header interface {
	Head(ctx context.Context, url string) (*request.Response, error)
}

// Poster is the interface that wraps the basic Post method.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes, namely: string; []byte; url.Values;
// io.Reader; and io.ReadCloser.
//
// Any Sender can be used to emulate a Poster via the Post function.
type Poster interface {
	Post(ctx context.Context, url, contentType string, body interface{}) (*request.Response, error)
}

// FormPoster is the interface that wraps the basic PostForm method.
//
// The request body is set to the URL-encoded keys and values from
// data, and the content type is set to
// application/x-www-form-urlencoded.
//
// Any Sender can be used to emulate a FormPoster via the PostForm
// function.
type FormPoster interface {
	PostForm(ctx context.Context, url string, data url.Values) (*request.Response, error)
}

// IdleCloser is the interface that wraps the basic CloseIdleConnections
// method.
//
// If the underlying transport supports it, CloseIdleConnections closes
// any connections which are sitting idle in a "keep-alive" state. It
// does not interrupt any connections currently in use. Otherwise it
// does nothing.
type IdleCloser interface {
	CloseIdleConnections()
}

// Executor is the interface that groups the basic Send, Get, Head,
// Post, PostForm, and CloseIdleConnections methods.
//
// Any Sender can be converted into an Executor via the Inflate function.
type Executor interface {
	Sender
	Getter
	Header
	Poster
	FormPoster
	IdleCloser
}

// Get uses the specified Sender to issue a GET to the specified URL.
//
// To send a request with custom headers, use request.New and s.Send.
func Get(ctx context.Context, s Sender, url string) (*request.Response, error) {
	req, err := request.New("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, req)
}

// Head uses the specified Sender to issue a HEAD to the specified URL.
//
// To send a request with custom headers, use request.New and s.Send.
func Head(ctx context.Context, s Sender, url string) (*request.Response, error) {
	req, err := request.New("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return s.Send(ctx, req)
}

// Post uses the specified Sender to issue a POST to the specified URL.
//
// The body parameter may be nil for an empty body, or may be any of the
// types supported by request.BodyBytes, namely: string; []byte; url.Values;
// io.Reader; and io.ReadCloser.
//
// To send a request with custom headers, use request.New and s.Send.
func Post(ctx context.Context, s Sender, url, contentType string, body interface{}) (*request.Response, error) {
	req, err := request.New("POST", url, body)
	if err != nil {
		return nil, err
	}
	if err = req.AddHeader("Content-Type", contentType); err != nil {
		return nil, err
	}
	return s.Send(ctx, req)
}

// PostForm uses the specified Sender to issue a POST to the specified
// URL, with data's keys and values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
// To set other headers, use request.New and s.Send.
func PostForm(ctx context.Context, s Sender, url string, data url.Values) (*request.Response, error) {
	return Post(ctx, s, url, formContentType, data)
}

const formContentType = "application/x-www-form-urlencoded"

// Inflate converts any non-nil Sender into an Executor. This may be
// helpful for interop across library boundaries, i.e. if code that only
// has access to a Sender needs to call a function that requires an
// Executor.
func Inflate(s Sender) Executor {
	if s == nil {
		panic("httpipe: nil sender")
	}

	if e, ok := s.(Executor); ok {
		return e
	}

	return inflated{s}
}

type inflated struct {
	sender Sender
}

func (i inflated) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	return i.sender.Send(ctx, req)
}

func (i inflated) Get(ctx context.Context, url string) (*request.Response, error) {
	return Get(ctx, i.sender, url)
}

func (i inflated) Head(ctx context.Context, url string) (*request.Response, error) {
	return Head(ctx, i.sender, url)
}

func (i inflated) Post(ctx context.Context, url, contentType string, body interface{}) (*request.Response, error) {
	return Post(ctx, i.sender, url, contentType, body)
}

func (i inflated) PostForm(ctx context.Context, url string, data url.Values) (*request.Response, error) {
	return PostForm(ctx, i.sender, url, data)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.sender.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
