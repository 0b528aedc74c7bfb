// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	for _, testCase := range newRequestTestCases {
		t.Run(testCase.name, func(t *testing.T) {
			r, err := New(testCase.method, testCase.url, resolveBody(t, testCase.body))
			testCase.asserts(t, r, err)
		})
	}
}

var newRequestTestCases = []struct {
	name    string
	method  string
	url     string
	body    interface{}
	asserts func(*testing.T, *Request, error)
}{
	{
		name:   "empty method means GET",
		method: "",
		url:    "https://foo.com",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, "https://foo.com", r.EncodedURL())
			assert.Nil(t, r.BodyBuffer())
			assert.Nil(t, r.BodyReader())
			assert.Equal(t, int64(0), r.ContentLength())
		},
	},
	{
		name:   "fake valid extension method",
		method: "Fake",
		url:    "http://baz.com",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, "Fake", r.Method)
		},
	},
	{
		name:   "remove empty port",
		method: "GET",
		url:    "http://ham:",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, "ham", r.URL.Host)
		},
	},
	{
		name:   "query moved to base store",
		method: "GET",
		url:    "https://acct.blob.example.com/c/b?sig=abc&sv=2021-01-01&comp=list",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Empty(t, r.URL.RawQuery)
			assert.Equal(t, url.Values{"sig": {"abc"}, "sv": {"2021-01-01"}, "comp": {"list"}}, r.Query())
			assert.Equal(t, "https://acct.blob.example.com/c/b?comp=list&sig=abc&sv=2021-01-01", r.EncodedURL())
		},
	},
	{
		name:   "duplicate query keys keep last",
		method: "GET",
		url:    "http://x/?a=1&a=2",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, "http://x/?a=2", r.EncodedURL())
		},
	},
	{
		name: "body type string",
		body: "str",
		url:  "str",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, []byte("str"), r.BodyBuffer())
			assert.Equal(t, int64(3), r.ContentLength())
		},
	},
	{
		name: "body type io.ReadCloser",
		body: func(_ *testing.T) interface{} {
			return io.NopCloser(strings.NewReader("io.ReadCloser"))
		},
		url: "io.ReadCloser",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.NoError(t, err)
			require.NotNil(t, r)
			assert.Equal(t, []byte("io.ReadCloser"), r.BodyBuffer())
			assert.False(t, r.HasBodyStream())
		},
	},
	{
		name:   "error invalid method",
		method: "\tGET",
		url:    "eggs",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.Nil(t, r)
			assert.EqualError(t, err, `httpipe/request: invalid method "\tGET"`)
		},
	},
	{
		name:   "error invalid URL",
		method: "GET",
		url:    ":::",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.Nil(t, r)
			assert.Error(t, err)
		},
	},
	{
		name:   "error invalid query",
		method: "GET",
		url:    "http://x/?a=%zz",
		asserts: func(t *testing.T, r *Request, err error) {
			assert.Nil(t, r)
			assert.Error(t, err)
		},
	},
	{
		name:   "error invalid body type",
		method: "POST",
		url:    "spam",
		body:   map[string]int{},
		asserts: func(t *testing.T, r *Request, err error) {
			assert.Nil(t, r)
			assert.ErrorIs(t, err, ErrBodyType)
		},
	},
	{
		name:   "error body read",
		method: "PUT",
		url:    "hello",
		body: func(t *testing.T) interface{} {
			m := &mockReadCloser{}
			m.Test(t)
			m.On("Read", mock.AnythingOfType("[]uint8")).
				Return(5, errors.New("problematic")).
				Once()
			m.On("Close").Return(nil).Once()
			return m
		},
		asserts: func(t *testing.T, r *Request, err error) {
			assert.Nil(t, r)
			assert.EqualError(t, err, "problematic")
		},
	},
}

func resolveBody(t *testing.T, body interface{}) interface{} {
	if f, ok := body.(func(*testing.T) interface{}); ok {
		body = f(t)
	}
	return body
}

func TestRequest_AddHeader(t *testing.T) {
	r, err := New("GET", "http://x", nil)
	require.NoError(t, err)
	t.Run("case-insensitive last write wins", func(t *testing.T) {
		require.NoError(t, r.AddHeader("content-type", "text/plain"))
		require.NoError(t, r.AddHeader("Content-Type", "application/json"))
		assert.Equal(t, http.Header{"Content-Type": {"application/json"}}, r.Headers())
		assert.Equal(t, "application/json", r.Header("CONTENT-TYPE"))
	})
	t.Run("invalid name", func(t *testing.T) {
		assert.Error(t, r.AddHeader("bad name", "x"))
		assert.Error(t, r.AddHeader("", "x"))
	})
	t.Run("invalid value", func(t *testing.T) {
		assert.Error(t, r.AddHeader("X-Foo", "a\r\nb"))
	})
	t.Run("remove", func(t *testing.T) {
		r.RemoveHeader("content-type")
		assert.Empty(t, r.Headers())
	})
}

func TestRequest_RetryScope(t *testing.T) {
	t.Run("bearer token replaced across attempts", func(t *testing.T) {
		r, err := New("GET", "https://vault.example.com/secrets/s", nil)
		require.NoError(t, err)
		require.NoError(t, r.AddHeader("x-ms-version", "2021-01-01"))

		r.StartRetry()
		require.NoError(t, r.AddHeader("Authorization", "Bearer A"))
		assert.Equal(t, http.Header{
			"X-Ms-Version":  {"2021-01-01"},
			"Authorization": {"Bearer A"},
		}, r.Headers())

		r.StartRetry()
		require.NoError(t, r.AddHeader("Authorization", "Bearer B"))
		assert.Equal(t, http.Header{
			"X-Ms-Version":  {"2021-01-01"},
			"Authorization": {"Bearer B"},
		}, r.Headers())
	})
	t.Run("retry value overrides base", func(t *testing.T) {
		r, err := New("GET", "http://x/?a=base", nil)
		require.NoError(t, err)
		require.NoError(t, r.AddHeader("X-Foo", "base"))
		r.StartRetry()
		assert.True(t, r.RetryMode())
		require.NoError(t, r.AddHeader("x-foo", "retry"))
		r.AddQueryParameter("a", "retry")
		r.AddQueryParameter("b", "retry")
		assert.Equal(t, "retry", r.Header("X-Foo"))
		assert.Equal(t, "http://x/?a=retry&b=retry", r.EncodedURL())
		r.StartRetry()
		assert.Equal(t, "base", r.Header("X-Foo"))
		assert.Equal(t, "http://x/?a=base", r.EncodedURL())
	})
	t.Run("StartRetry idempotent", func(t *testing.T) {
		r, err := New("GET", "http://x", nil)
		require.NoError(t, err)
		require.NoError(t, r.AddHeader("X-Base", "1"))
		r.StartRetry()
		r.StartRetry()
		r.StartRetry()
		assert.Equal(t, http.Header{"X-Base": {"1"}}, r.Headers())
	})
	t.Run("Headers is a copy", func(t *testing.T) {
		r, err := New("GET", "http://x", nil)
		require.NoError(t, err)
		require.NoError(t, r.AddHeader("X-Base", "1"))
		h := r.Headers()
		h.Set("X-Base", "2")
		assert.Equal(t, "1", r.Header("X-Base"))
	})
}

func TestRequest_Clone(t *testing.T) {
	r, err := New("GET", "http://x/?a=1", "body")
	require.NoError(t, err)
	require.NoError(t, r.AddHeader("X-Foo", "1"))
	c := r.Clone()
	require.NoError(t, c.AddHeader("X-Foo", "2"))
	c.AddQueryParameter("a", "2")
	c.URL.Path = "/other"
	assert.Equal(t, "1", r.Header("X-Foo"))
	assert.Equal(t, "http://x/?a=1", r.EncodedURL())
	assert.Equal(t, r.BodyBuffer(), c.BodyBuffer())
}

func TestNewWithStream(t *testing.T) {
	t.Run("nil stream", func(t *testing.T) {
		r, err := NewWithStream("PUT", "http://x", nil, 0)
		assert.Nil(t, r)
		assert.Error(t, err)
	})
	t.Run("seekable stream rewinds", func(t *testing.T) {
		src := bytes.NewReader([]byte("0123456789"))
		_, err := src.Seek(2, io.SeekStart)
		require.NoError(t, err)
		r, err := NewWithStream("PUT", "http://x", src, 8)
		require.NoError(t, err)
		assert.True(t, r.HasBodyStream())
		assert.Equal(t, int64(8), r.ContentLength())

		b, err := io.ReadAll(r.BodyReader())
		require.NoError(t, err)
		assert.Equal(t, "23456789", string(b))
		assert.True(t, r.Rewindable())
		require.NoError(t, r.RewindBody())
		b, err = io.ReadAll(r.BodyReader())
		require.NoError(t, err)
		assert.Equal(t, "23456789", string(b))
	})
	t.Run("non-seekable stream", func(t *testing.T) {
		r, err := NewWithStream("PUT", "http://x", io.MultiReader(strings.NewReader("abc")), -5)
		require.NoError(t, err)
		assert.Equal(t, int64(-1), r.ContentLength())
		assert.True(t, r.Rewindable())
		assert.NoError(t, r.RewindBody())
		_, err = io.ReadAll(r.BodyReader())
		require.NoError(t, err)
		assert.False(t, r.Rewindable())
		assert.ErrorIs(t, r.RewindBody(), ErrNotRewindable)
	})
}

func TestRequest_DownloadViaStream(t *testing.T) {
	r, err := New("GET", "http://x", nil)
	require.NoError(t, err)
	assert.False(t, r.DownloadViaStream())
	r.SetDownloadViaStream(true)
	assert.True(t, r.DownloadViaStream())
}
