// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recording

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
)

// Redacted replaces secret values in recordings.
const Redacted = "REDACTED"

var (
	// ErrStreamingNotSupported is the cause of the failure returned
	// when a streamed download is sent through a RecordPolicy.
	ErrStreamingNotSupported = errors.New("httpipe/recording: record policy does not support streaming requests")
	// ErrNoAccountLabel is returned when the request host has no
	// account label to strip.
	ErrNoAccountLabel = errors.New("httpipe/recording: host has no account label")
)

// recordedRequestHeaders lists the request headers kept in a record.
var recordedRequestHeaders = []string{
	"x-ms-client-request-id",
	"Content-Type",
	"x-ms-version",
	"User-Agent",
}

// A RecordPolicy records each call it delegates into Data.
//
// Streamed downloads cannot be recorded and fail with a
// failure.Unsupported error before any network activity. Calls which
// fail are not recorded.
type RecordPolicy struct {
	Data *RecordedData
}

// Send delegates to next and records the exchange.
func (p *RecordPolicy) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	op := failure.Op(req.Method)
	if req.DownloadViaStream() {
		return nil, failure.New(failure.Unsupported, op, req.EncodedURL(), ErrStreamingNotSupported)
	}

	uri, err := recordedURI(req.EncodedURL())
	if err != nil {
		return nil, err
	}
	record := NetworkCallRecord{
		Method:  req.Method,
		URI:     uri,
		Headers: make(map[string]string),
	}
	for _, name := range recordedRequestHeaders {
		if v := req.Header(name); v != "" {
			record.Headers[name] = v
		}
	}

	resp, err := next.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	record.Response, err = recordedResponse(resp)
	if err != nil {
		_ = resp.Close()
		return nil, err
	}
	p.Data.AddNetworkCall(record)

	return resp, nil
}

// recordedURI strips the account label from the host and redacts the
// sig query parameter.
func recordedURI(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	host := u.Hostname()
	i := strings.IndexByte(host, '.')
	if i < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoAccountLabel, host)
	}
	host = host[i+1:]
	if port := u.Port(); port != "" {
		host += ":" + port
	}
	u.Host = host

	q := u.Query()
	if _, ok := q["sig"]; ok {
		q.Set("sig", Redacted)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

func recordedResponse(resp *request.Response) (map[string]string, error) {
	m := map[string]string{
		StatusCodeKey: strconv.Itoa(resp.StatusCode),
		"retry-after": "0",
	}
	for name, values := range resp.Header {
		switch {
		case strings.EqualFold(name, "retry-after"):
			// Forced to zero so that playback never sleeps.
		case strings.EqualFold(name, "x-ms-encryption-key-sha256"):
			m[name] = Redacted
		default:
			m[name] = strings.Join(values, ",")
		}
	}

	body, err := resp.Body()
	if err != nil {
		return nil, err
	}
	m[BodyKey] = string(body)

	return m, nil
}
