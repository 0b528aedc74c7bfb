// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"io"
	"sync"
)

// bodyStream is the pull side of a streamed response body.
//
// Each Read that finds nothing pending pulls at most len(buf) bytes
// from src. Whatever doesn't fit in the caller's buffer stays in
// pending, and src is not read again until pending is empty, so the
// memory held per stream never exceeds one chunk. done runs once src
// reports EOF, letting the transport release its connection before the
// caller gets around to Close.
type bodyStream struct {
	src     io.Reader
	length  int64
	buf     []byte
	pending []byte
	err     error
	wrap    func(error) error
	done    func()
	close   func() error
	once    sync.Once
}

func newBodyStream(src io.Reader, length int64, size int, wrap func(error) error, done func(), close func() error) *bodyStream {
	if length < 0 {
		length = -1
	}

	return &bodyStream{
		src:    src,
		length: length,
		buf:    make([]byte, chunkSize(size)),
		wrap:   wrap,
		done:   done,
		close:  close,
	}
}

func (s *bodyStream) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}
	if s.err != nil {
		return 0, s.err
	}

	var n int
	var err error
	for n == 0 && err == nil {
		n, err = s.src.Read(s.buf)
	}
	c := copy(p, s.buf[:n])
	s.pending = s.buf[c:n]
	if err != nil {
		if err == io.EOF {
			s.err = io.EOF
			if s.done != nil {
				s.done()
			}
		} else {
			s.err = s.wrap(err)
		}
	}
	if c > 0 {
		return c, nil
	}

	return 0, s.err
}

// Length returns the advertised body length, or -1 if unknown.
func (s *bodyStream) Length() int64 {
	return s.length
}

func (s *bodyStream) Close() error {
	var err error
	s.once.Do(func() {
		s.pending = nil
		if s.err == nil {
			s.err = errStreamClosed
		}
		if s.close != nil {
			err = s.close()
		}
	})
	return err
}
