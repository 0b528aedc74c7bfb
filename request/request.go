// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	// ErrNotRewindable is returned by RewindBody when the request body
	// is a stream which has already been read from and which cannot
	// seek back to its start.
	ErrNotRewindable = errors.New("httpipe/request: body stream cannot be rewound")
)

// A Request is a logical HTTP request travelling down a pipeline.
//
// A Request keeps two stores for headers and for query parameters: the
// base store, holding the values set when the request was built, and
// the retry-scoped store, holding values injected by policies during
// the current attempt. Once StartRetry has been called, AddHeader and
// AddQueryParameter write to the retry-scoped store, and each further
// call to StartRetry clears it. Headers and EncodedURL merge the two
// stores, with retry-scoped values taking precedence. This allows a
// policy such as an authentication policy to inject a fresh value on
// every attempt without duplicating the value it injected on a previous
// attempt, and without ever losing the base values.
//
// A Request is owned by the goroutine executing the pipeline and must
// not be shared between concurrent pipeline calls.
type Request struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.). It is
	// never empty.
	Method string

	// URL specifies the URL to access, without its query string. The
	// query parameters are kept in the request's query stores and are
	// merged back by EncodedURL.
	URL *urlpkg.URL

	header      http.Header
	retryHeader http.Header
	query       urlpkg.Values
	retryQuery  urlpkg.Values
	retryMode   bool

	body              []byte
	stream            *bodyStream
	downloadViaStream bool
}

// New returns a new Request given a method, URL, and optional body.
//
// An empty method means GET. Any query parameters present in url are
// moved into the request's base query store.
//
// Parameter body may be nil (empty body), or it may be a string,
// []byte, io.Reader, or io.ReadCloser. If body is an io.Reader, it is
// read to the end and buffered into a []byte. If body is an
// io.ReadCloser, it is closed after buffering. Use NewWithStream to
// send a request body without buffering it.
func New(method, url string, body interface{}) (*Request, error) {
	b, err := BodyBytes(body)
	if err != nil {
		return nil, err
	}

	r, err := newRequest(method, url)
	if err != nil {
		return nil, err
	}

	r.body = b
	return r, nil
}

// NewWithStream returns a new Request whose body is pulled from body
// as the request is written to the network.
//
// Parameter length is the number of bytes body will produce, or -1 if
// it is unknown. If body implements io.Seeker, the request body can be
// rewound so that the request can be retried; otherwise the request
// becomes non-retryable once the first attempt has read from body.
func NewWithStream(method, url string, body io.Reader, length int64) (*Request, error) {
	if body == nil {
		return nil, errors.New("httpipe/request: nil body stream")
	}

	r, err := newRequest(method, url)
	if err != nil {
		return nil, err
	}

	r.stream, err = newBodyStream(body, length)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func newRequest(method, url string) (*Request, error) {
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("httpipe/request: invalid method %q", method)
	}

	u, err := urlpkg.Parse(url)
	if err != nil {
		return nil, err
	}
	q, err := urlpkg.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("httpipe/request: invalid query: %w", err)
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Host = removeEmptyPort(u.Host)

	r := &Request{
		Method:      method,
		URL:         u,
		header:      make(http.Header),
		retryHeader: make(http.Header),
		query:       make(urlpkg.Values, len(q)),
		retryQuery:  make(urlpkg.Values),
	}
	for k, v := range q {
		r.query.Set(k, v[len(v)-1])
	}

	return r, nil
}

// AddHeader sets the header name to value. Header names are
// case-insensitive and the last value written for a name wins.
//
// Before the first call to StartRetry, the header goes to the base
// store. Afterward, it goes to the retry-scoped store and lives only
// until the next call to StartRetry.
func (r *Request) AddHeader(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return fmt.Errorf("httpipe/request: invalid header name %q", name)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return fmt.Errorf("httpipe/request: invalid value for header %q", name)
	}

	if r.retryMode {
		r.retryHeader.Set(name, value)
	} else {
		r.header.Set(name, value)
	}
	return nil
}

// RemoveHeader deletes the header name from both stores.
func (r *Request) RemoveHeader(name string) {
	r.header.Del(name)
	r.retryHeader.Del(name)
}

// AddQueryParameter sets the query parameter name to value, following
// the same routing rules as AddHeader. Unlike header names, query
// parameter names are case-sensitive.
func (r *Request) AddQueryParameter(name, value string) {
	if r.retryMode {
		r.retryQuery.Set(name, value)
	} else {
		r.query.Set(name, value)
	}
}

// StartRetry enables retry mode and clears the retry-scoped header and
// query parameter stores. The base stores are untouched. StartRetry
// is idempotent, and is called by the retry policy before every
// attempt.
func (r *Request) StartRetry() {
	r.retryMode = true
	for k := range r.retryHeader {
		delete(r.retryHeader, k)
	}
	for k := range r.retryQuery {
		delete(r.retryQuery, k)
	}
}

// RetryMode reports whether StartRetry has been called.
func (r *Request) RetryMode() bool {
	return r.retryMode
}

// Header returns the effective value of the header name, giving
// precedence to the retry-scoped store.
func (r *Request) Header(name string) string {
	if v := r.retryHeader.Get(name); v != "" {
		return v
	}

	return r.header.Get(name)
}

// Headers returns a new header map merging the retry-scoped store over
// the base store. Mutating the returned map does not affect r.
func (r *Request) Headers() http.Header {
	h := make(http.Header, len(r.header)+len(r.retryHeader))
	for k, v := range r.header {
		h[k] = append([]string(nil), v...)
	}
	for k, v := range r.retryHeader {
		h[k] = append([]string(nil), v...)
	}
	return h
}

// Query returns a new query map merging the retry-scoped store over the
// base store.
func (r *Request) Query() urlpkg.Values {
	q := make(urlpkg.Values, len(r.query)+len(r.retryQuery))
	for k, v := range r.query {
		q[k] = append([]string(nil), v...)
	}
	for k, v := range r.retryQuery {
		q[k] = append([]string(nil), v...)
	}
	return q
}

// EncodedURL returns the request URL with the merged query parameters
// encoded into it, sorted by name.
func (r *Request) EncodedURL() string {
	u := *r.URL
	u.RawQuery = r.Query().Encode()
	return u.String()
}

// SetDownloadViaStream sets whether the transport should hand the
// response body back as a stream rather than buffering it.
func (r *Request) SetDownloadViaStream(stream bool) {
	r.downloadViaStream = stream
}

// DownloadViaStream reports whether the caller asked for the response
// body to be streamed.
func (r *Request) DownloadViaStream() bool {
	return r.downloadViaStream
}

// HasBodyStream reports whether the request body is a stream rather
// than an in-memory buffer.
func (r *Request) HasBodyStream() bool {
	return r.stream != nil
}

// BodyBuffer returns the in-memory request body, or nil if the body is
// empty or is a stream.
func (r *Request) BodyBuffer() []byte {
	return r.body
}

// ContentLength returns the length of the request body, or -1 if the
// body is a stream of unknown length.
func (r *Request) ContentLength() int64 {
	if r.stream != nil {
		return r.stream.length
	}

	return int64(len(r.body))
}

// BodyReader returns a reader over the request body for the current
// attempt, or nil if there is no body.
func (r *Request) BodyReader() io.Reader {
	if r.stream != nil {
		return r.stream
	}
	if len(r.body) == 0 {
		return nil
	}

	return bytes.NewReader(r.body)
}

// Rewindable reports whether the request body can be replayed from its
// start on a further attempt.
func (r *Request) Rewindable() bool {
	return r.stream == nil || r.stream.rewindable()
}

// RewindBody prepares the request body to be sent again from its
// start. It returns ErrNotRewindable if the body is a stream that has
// been read from and cannot seek.
func (r *Request) RewindBody() error {
	if r.stream == nil {
		return nil
	}

	return r.stream.rewind()
}

// Clone returns a deep copy of r's header and query stores sharing the
// same body. It is intended for policies which need to record or log a
// snapshot of the request.
func (r *Request) Clone() *Request {
	u := *r.URL
	r2 := *r
	r2.URL = &u
	r2.header = r.header.Clone()
	r2.retryHeader = r.retryHeader.Clone()
	r2.query = cloneValues(r.query)
	r2.retryQuery = cloneValues(r.retryQuery)
	return &r2
}

func cloneValues(v urlpkg.Values) urlpkg.Values {
	v2 := make(urlpkg.Values, len(v))
	for k, vs := range v {
		v2[k] = append([]string(nil), vs...)
	}
	return v2
}

func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

// Given a string of the form "host", "host:port", or "[ipv6::address]:port",
// return true if the string includes a port.
func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in ":port" to "" as mandated by
// RFC 3986 Section 6.2.3.
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
