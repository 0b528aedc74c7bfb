// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
	"golang.org/x/net/http/httpguts"
)

// DefaultDialTimeout is the connect timeout used by a Raw transport
// with no DialContext.
const DefaultDialTimeout = 30 * time.Second

// A Raw transport speaks HTTP/1.1 directly over a new connection for
// each request. Its zero value is a valid configuration.
//
// The connection is closed when the response has been fully buffered,
// when a streamed body has been read to its end, or when a streamed
// response is closed. If the request context is
// done while the exchange is in progress, the connection's deadline is
// forced into the past so that blocked reads and writes return
// promptly, and the failure is reported as failure.Cancelled.
type Raw struct {
	// DialContext opens the TCP connection. If nil, a net.Dialer with
	// DefaultDialTimeout is used.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
	// TLSClientConfig configures TLS for https URLs. If nil, the zero
	// configuration is used. ServerName is filled in from the URL if
	// empty.
	TLSClientConfig *tls.Config
	// ChunkSize bounds the number of body bytes read from the network
	// in one pull. If zero, DefaultChunkSize is used.
	ChunkSize int
	// MaxBufferedBody bounds the size of a buffered response body. If
	// zero, buffered bodies are unbounded.
	MaxBufferedBody int64
}

var defaultDialer = &net.Dialer{Timeout: DefaultDialTimeout}

// aLongTimeAgo is a deadline in the past, used to unblock I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Send performs the exchange for req.
func (t *Raw) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	op := failure.Op(req.Method)
	rawURL := req.EncodedURL()
	if err := failure.Cancellation(ctx, op, rawURL); err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, failure.New(failure.TransportFailure, op, rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, failure.New(failure.Unsupported, op, rawURL, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme))
	}

	conn, err := t.dial(ctx, u)
	if err != nil {
		return nil, classify(ctx, op, rawURL, err)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(aLongTimeAgo)
	})
	var (
		releaseOnce sync.Once
		releaseErr  error
	)
	release := func() error {
		releaseOnce.Do(func() {
			stop()
			releaseErr = conn.Close()
		})
		return releaseErr
	}

	if err = writeRequest(conn, req, u); err != nil {
		_ = release()
		return nil, classify(ctx, op, rawURL, err)
	}

	p := newParser(bufio.NewReaderSize(conn, chunkSize(t.ChunkSize)), req.DownloadViaStream())
	resp, err := p.readHead(req.Method == http.MethodHead)
	if err != nil {
		_ = release()
		return nil, classify(ctx, op, rawURL, err)
	}

	if p.stream {
		wrap := func(err error) error { return classify(ctx, op, rawURL, err) }
		done := func() { _ = release() }
		resp.SetBodyStream(newBodyStream(p, p.length(), t.ChunkSize, wrap, done, release))
		return resp, nil
	}

	err = bufferBody(resp, p, t.ChunkSize, t.MaxBufferedBody)
	_ = release()
	if err != nil {
		return nil, classify(ctx, op, rawURL, err)
	}

	return resp, nil
}

func (t *Raw) dial(ctx context.Context, u *url.URL) (net.Conn, error) {
	addr := canonicalAddr(u)
	dial := t.DialContext
	if dial == nil {
		dial = defaultDialer.DialContext
	}

	conn, err := dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "https" {
		return conn, nil
	}

	var cfg *tls.Config
	if t.TLSClientConfig != nil {
		cfg = t.TLSClientConfig.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = u.Hostname()
	}
	tlsConn := tls.Client(conn, cfg)
	if err = tlsConn.HandshakeContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return tlsConn, nil
}

func canonicalAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}

	return net.JoinHostPort(u.Hostname(), port)
}

// hopHeaders are written by the transport itself.
var hopHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
	"Connection":        true,
}

func writeRequest(w io.Writer, req *request.Request, u *url.URL) error {
	bw := bufio.NewWriter(w)
	header := req.Headers()

	host := header.Get("Host")
	if host == "" {
		host = u.Host
	}
	if !httpguts.ValidHostHeader(host) {
		return fmt.Errorf("httpipe/transport: invalid Host header %q", host)
	}

	fmt.Fprintf(bw, "%s %s HTTP/1.1\r\n", req.Method, u.RequestURI())
	fmt.Fprintf(bw, "Host: %s\r\n", host)

	names := make([]string, 0, len(header))
	for name := range header {
		if !hopHeaders[http.CanonicalHeaderKey(name)] {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range header[name] {
			fmt.Fprintf(bw, "%s: %s\r\n", name, value)
		}
	}

	length := req.ContentLength()
	body := req.BodyReader()
	chunked := body != nil && length < 0
	switch {
	case chunked:
		_, _ = bw.WriteString("Transfer-Encoding: chunked\r\n")
	case length > 0 || outgoingLength(req.Method):
		fmt.Fprintf(bw, "Content-Length: %s\r\n", strconv.FormatInt(length, 10))
	}
	_, _ = bw.WriteString("Connection: close\r\n\r\n")

	if body != nil {
		if chunked {
			cw := httputil.NewChunkedWriter(bw)
			if _, err := io.Copy(cw, body); err != nil {
				return err
			}
			if err := cw.Close(); err != nil {
				return err
			}
			_, _ = bw.WriteString("\r\n")
		} else if _, err := io.CopyN(bw, body, length); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// outgoingLength reports whether a zero Content-Length should be sent
// for an empty body.
func outgoingLength(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

func bufferBody(resp *request.Response, r io.Reader, size int, max int64) error {
	buf := make([]byte, chunkSize(size))
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			total += int64(n)
			if max > 0 && total > max {
				return ErrBodyTooLarge
			}
			resp.AppendBody(buf[:n])
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
