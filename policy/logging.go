// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/internal/logger"
	"github.com/gogama/httpipe/request"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Redacted replaces secret values in logs and recordings.
const Redacted = "REDACTED"

// DefaultAllowedHeaders lists the headers whose values Logging writes
// out verbatim.
var DefaultAllowedHeaders = []string{
	"Accept",
	"Cache-Control",
	"Connection",
	"Content-Length",
	"Content-Type",
	"Date",
	"ETag",
	"Expires",
	"If-Match",
	"If-Modified-Since",
	"If-None-Match",
	"If-Unmodified-Since",
	"Last-Modified",
	"Pragma",
	"Retry-After",
	"Server",
	"Transfer-Encoding",
	"User-Agent",
	"x-ms-client-request-id",
	"x-ms-date",
	"x-ms-request-id",
	"x-ms-return-client-request-id",
	"x-ms-version",
}

// secretHeaders are redacted even when allowed.
var secretHeaders = map[string]bool{
	"Authorization":              true,
	"X-Ms-Encryption-Key-Sha256": true,
}

// secretQuery are query parameters redacted by RedactURL.
var secretQuery = []string{"sig"}

// A Logging policy logs each request it sees and the response or error
// that comes back.
//
// The request is logged at debug level and the outcome at info level,
// or warn level if it is an error. Header values are logged only for
// allowed headers, and never for Authorization or
// x-ms-encryption-key-sha256. The sig query parameter is redacted from
// URLs.
type Logging struct {
	// Logger receives the entries. If nil, the logger carried by the
	// context is used, or the process-wide logger if the context
	// carries none.
	Logger *zap.Logger
	// AllowedHeaders lists headers, in addition to
	// DefaultAllowedHeaders, whose values may be logged.
	AllowedHeaders []string
}

// Send logs req, delegates to next, and logs the outcome.
func (p *Logging) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	log := p.Logger
	if log == nil {
		log = logger.FromContext(ctx)
	}
	log = log.With(
		zap.String("method", req.Method),
		zap.String("url", RedactURL(req.EncodedURL())),
		zap.Int("try", httpipe.RetryNumber(ctx)))

	if ce := log.Check(zapcore.DebugLevel, "sending request"); ce != nil {
		ce.Write(zap.Object("headers", p.headers(req.Headers())))
	}

	start := time.Now()
	resp, err := next.Send(ctx, req)
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("request failed",
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, err
	}

	log.Info("received response",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed),
		zap.String("size", bodySize(resp)),
		zap.Object("headers", p.headers(resp.Header)))
	return resp, nil
}

func (p *Logging) headers(h http.Header) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		names := make([]string, 0, len(h))
		for name := range h {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			value := Redacted
			if p.allowed(name) {
				value = strings.Join(h[name], ",")
			}
			enc.AddString(name, value)
		}
		return nil
	})
}

func (p *Logging) allowed(name string) bool {
	name = http.CanonicalHeaderKey(name)
	if secretHeaders[name] {
		return false
	}
	for _, a := range DefaultAllowedHeaders {
		if http.CanonicalHeaderKey(a) == name {
			return true
		}
	}
	for _, a := range p.AllowedHeaders {
		if http.CanonicalHeaderKey(a) == name {
			return true
		}
	}

	return false
}

func bodySize(resp *request.Response) string {
	if resp.IsStreaming() {
		n := resp.BodyStream().Length()
		if n < 0 {
			return "streamed"
		}
		return humanize.Bytes(uint64(n)) + " streamed"
	}

	b, _ := resp.Body()
	return humanize.Bytes(uint64(len(b)))
}

// RedactURL returns rawURL with the values of secret query parameters
// replaced by REDACTED. A URL which cannot be parsed is returned with
// its query string removed.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		if i := strings.IndexByte(rawURL, '?'); i >= 0 {
			return rawURL[:i]
		}
		return rawURL
	}

	q := u.Query()
	changed := false
	for _, name := range secretQuery {
		if _, ok := q[name]; ok {
			q.Set(name, Redacted)
			changed = true
		}
	}
	if changed {
		u.RawQuery = q.Encode()
	}
	if u.User != nil {
		u.User = url.User(Redacted)
	}

	return u.String()
}
