// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"io"
	"net/url"
)

// ErrBodyType is returned when a body value has none of the types
// accepted by BodyBytes.
var ErrBodyType = errors.New("httpipe/request: body must be nil, string, []byte, url.Values, io.Reader or io.ReadCloser")

// BodyBytes buffers a body value for use as an in-memory request body.
//
// A nil body yields a nil slice. A []byte is returned as is, a string
// is converted, and url.Values are form-encoded. A reader is drained,
// and closed if it is an io.ReadCloser, even if reading fails. Any
// other type yields ErrBodyType.
func BodyBytes(body interface{}) ([]byte, error) {
	switch x := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case url.Values:
		return []byte(x.Encode()), nil
	case io.Reader:
		return drain(x)
	}

	return nil, fmt.Errorf("%w, not %T", ErrBodyType, body)
}

func drain(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if c, ok := r.(io.Closer); ok {
		if closeErr := c.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		return nil, err
	}

	return b, nil
}
