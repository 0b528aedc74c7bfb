// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package recording

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
)

var (
	// ErrNoMoreRecords is the cause of the failure returned when a
	// Playback transport has replayed every record.
	ErrNoMoreRecords = errors.New("httpipe/recording: no more network call records")
	// ErrRecordMismatch is the cause of the failure returned when a
	// request does not match the next record.
	ErrRecordMismatch = errors.New("httpipe/recording: request does not match record")
)

// A Playback transport answers requests with recorded responses, in
// the order they were recorded.
//
// Only the method of each request is checked against its record, and
// a mismatched request does not consume the record. A
// request asking for a streamed download receives the recorded body
// as a stream.
type Playback struct {
	Data *RecordedData

	mu   sync.Mutex
	next int
}

// Send replays the next recorded response.
func (t *Playback) Send(ctx context.Context, req *request.Request) (*request.Response, error) {
	op := failure.Op(req.Method)
	if err := failure.Cancellation(ctx, op, req.EncodedURL()); err != nil {
		return nil, err
	}

	t.mu.Lock()
	record, ok := t.Data.at(t.next)
	if ok && record.Method == req.Method {
		t.next++
	}
	t.mu.Unlock()
	if !ok {
		return nil, failure.New(failure.TransportFailure, op, req.EncodedURL(), ErrNoMoreRecords)
	}
	if record.Method != req.Method {
		return nil, failure.New(failure.TransportFailure, op, req.EncodedURL(),
			fmt.Errorf("%w: recorded %s %s", ErrRecordMismatch, record.Method, record.URI))
	}

	status, err := strconv.Atoi(record.Response[StatusCodeKey])
	if err != nil {
		return nil, failure.New(failure.Protocol, op, req.EncodedURL(),
			fmt.Errorf("httpipe/recording: bad recorded status code: %w", err))
	}

	resp := request.NewResponse(1, 1, status, "")
	for key, value := range record.Response {
		if key == StatusCodeKey || key == BodyKey {
			continue
		}
		resp.AddHeader(http.CanonicalHeaderKey(key), value)
	}

	body := []byte(record.Response[BodyKey])
	if req.DownloadViaStream() {
		resp.SetBodyStream(&replayStream{Reader: bytes.NewReader(body), n: int64(len(body))})
	} else {
		resp.SetBody(body)
	}

	return resp, nil
}

// Remaining returns the number of records not yet replayed.
func (t *Playback) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Data.Len() - t.next
}

type replayStream struct {
	*bytes.Reader
	n int64
}

func (s *replayStream) Close() error { return nil }

func (s *replayStream) Length() int64 { return s.n }
