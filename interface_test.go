// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"net/url"
	"testing"

	"github.com/gogama/httpipe/request"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const containerURL = "https://acct.blob.example.net/photos"

type mockSender struct {
	mock.Mock
}

func newMockSender(t *testing.T) *mockSender {
	m := &mockSender{}
	m.Test(t)
	return m
}

func (m *mockSender) Send(ctx context.Context, r *request.Request) (*request.Response, error) {
	args := m.Called(ctx, r)
	resp, _ := args.Get(0).(*request.Response)
	return resp, args.Error(1)
}

type mockIdleSender struct {
	mockSender
}

func (m *mockIdleSender) CloseIdleConnections() {
	m.Called()
}

// sent matches a request by method, URL, content type and body.
func sent(method, rawURL, contentType, body string) interface{} {
	return mock.MatchedBy(func(r *request.Request) bool {
		return r.Method == method &&
			r.EncodedURL() == rawURL &&
			r.Header("Content-Type") == contentType &&
			string(r.BodyBuffer()) == body
	})
}

func TestHelpers(t *testing.T) {
	ctx := context.Background()
	form := url.Values{"comp": {"list"}, "restype": {"container"}}

	tests := []struct {
		name  string
		call  func(s Sender) (*request.Response, error)
		match interface{}
	}{
		{
			name:  "Get",
			call:  func(s Sender) (*request.Response, error) { return Get(ctx, s, containerURL+"?comp=list") },
			match: sent("GET", containerURL+"?comp=list", "", ""),
		},
		{
			name:  "Head",
			call:  func(s Sender) (*request.Response, error) { return Head(ctx, s, containerURL+"/cat.jpg") },
			match: sent("HEAD", containerURL+"/cat.jpg", "", ""),
		},
		{
			name: "Post",
			call: func(s Sender) (*request.Response, error) {
				return Post(ctx, s, containerURL, "application/xml", "<BlockList/>")
			},
			match: sent("POST", containerURL, "application/xml", "<BlockList/>"),
		},
		{
			name:  "PostForm",
			call:  func(s Sender) (*request.Response, error) { return PostForm(ctx, s, containerURL, form) },
			match: sent("POST", containerURL, formContentType, "comp=list&restype=container"),
		},
		{
			name:  "PostForm empty",
			call:  func(s Sender) (*request.Response, error) { return PostForm(ctx, s, "a b", url.Values{}) },
			match: sent("POST", "a%20b", formContentType, ""),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := request.NewResponse(1, 1, 200, "OK")
			m := newMockSender(t)
			m.On("Send", ctx, tt.match).Return(want, nil).Once()

			resp, err := tt.call(m)

			require.NoError(t, err)
			assert.Same(t, want, resp)
			m.AssertExpectations(t)
		})
	}
}

func TestHelpers_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(s Sender) (*request.Response, error)
		is   error
	}{
		{"Get bad URL", func(s Sender) (*request.Response, error) { return Get(ctx, s, ":::") }, nil},
		{"Head bad URL", func(s Sender) (*request.Response, error) { return Head(ctx, s, ":::") }, nil},
		{"Post bad URL", func(s Sender) (*request.Response, error) { return Post(ctx, s, ":::", "text/plain", "x") }, nil},
		{"Post bad body", func(s Sender) (*request.Response, error) { return Post(ctx, s, containerURL, "text/plain", 123) }, request.ErrBodyType},
		{"Post bad content type", func(s Sender) (*request.Response, error) { return Post(ctx, s, containerURL, "a\nb", nil) }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockSender(t)

			resp, err := tt.call(m)

			assert.Nil(t, resp)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
			m.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
		})
	}
}

func TestInflate(t *testing.T) {
	ctx := context.Background()
	want := request.NewResponse(1, 1, 201, "Created")

	assert.PanicsWithValue(t, "httpipe: nil sender", func() { Inflate(nil) })

	cl := &Client{}
	assert.Same(t, cl, Inflate(cl))

	m := newMockSender(t)
	x := Inflate(m)
	require.NotSame(t, m, x)

	req, err := request.New("PUT", containerURL+"/dog.jpg", "woof")
	require.NoError(t, err)
	m.On("Send", ctx, req).Return(want, nil).Once()
	m.On("Send", ctx, sent("GET", containerURL, "", "")).Return(want, nil).Once()
	m.On("Send", ctx, sent("HEAD", containerURL, "", "")).Return(want, nil).Once()
	m.On("Send", ctx, sent("POST", containerURL, "text/plain", "")).Return(want, nil).Once()
	m.On("Send", ctx, sent("POST", containerURL+"/form", formContentType, "x=y")).Return(want, nil).Once()

	for _, call := range []func() (*request.Response, error){
		func() (*request.Response, error) { return x.Send(ctx, req) },
		func() (*request.Response, error) { return x.Get(ctx, containerURL) },
		func() (*request.Response, error) { return x.Head(ctx, containerURL) },
		func() (*request.Response, error) { return x.Post(ctx, containerURL, "text/plain", nil) },
		func() (*request.Response, error) { return x.PostForm(ctx, containerURL+"/form", url.Values{"x": {"y"}}) },
	} {
		resp, err := call()
		require.NoError(t, err)
		assert.Same(t, want, resp)
	}
	m.AssertExpectations(t)

	t.Run("CloseIdleConnections", func(t *testing.T) {
		plain := newMockSender(t)
		assert.NotPanics(t, Inflate(plain).CloseIdleConnections)

		idle := &mockIdleSender{}
		idle.Test(t)
		idle.On("CloseIdleConnections").Once()
		Inflate(idle).CloseIdleConnections()
		idle.AssertExpectations(t)
	})
}
