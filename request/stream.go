// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"io"
)

// bodyStream wraps a request body stream, remembering whether it has
// been read from and where it started so that it can be rewound.
type bodyStream struct {
	r      io.Reader
	length int64
	seeker io.Seeker
	start  int64
	read   bool
}

func newBodyStream(r io.Reader, length int64) (*bodyStream, error) {
	if length < 0 {
		length = -1
	}

	s := &bodyStream{r: r, length: length}
	if seeker, ok := r.(io.Seeker); ok {
		start, err := seeker.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, err
		}
		s.seeker = seeker
		s.start = start
	}

	return s, nil
}

func (s *bodyStream) Read(p []byte) (int, error) {
	s.read = true
	return s.r.Read(p)
}

func (s *bodyStream) rewindable() bool {
	return !s.read || s.seeker != nil
}

func (s *bodyStream) rewind() error {
	if !s.read {
		return nil
	}
	if s.seeker == nil {
		return ErrNotRewindable
	}

	if _, err := s.seeker.Seek(s.start, io.SeekStart); err != nil {
		return err
	}
	s.read = false
	return nil
}
