// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"
	"io"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
	"github.com/gogama/httpipe/retry"
	"github.com/gogama/httpipe/timeout"
	"github.com/gogama/httpipe/transient"
	"github.com/gogama/httpipe/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClient(t *testing.T) {
	t.Run("happy path", testClientHappyPath)
	t.Run("zero value", testClientZeroValue)
	t.Run("pipeline", testClientPipeline)
	t.Run("attempt timeout", testClientAttemptTimeout)
	t.Run("execution timeout", testClientExecutionTimeout)
	t.Run("retry", testClientRetry)
	t.Run("stream", testClientStream)
	t.Run("close idle connections", testClientCloseIdleConnections)
}

func testClientHappyPath(t *testing.T) {
	t.Parallel()
	// Each test case invokes one of the convenience methods on Client:
	// Get, Head, Post, and PostForm.
	testCases := []struct {
		name        string
		action      func(c *Client) (*request.Response, error)
		extraChecks func(*testing.T, *request.Request)
	}{
		{
			name: "Get",
			action: func(c *Client) (*request.Response, error) {
				return c.Get(context.Background(), "http://example.com/test")
			},
			extraChecks: func(t *testing.T, req *request.Request) {
				assert.Equal(t, "GET", req.Method)
			},
		},
		{
			name: "Head",
			action: func(c *Client) (*request.Response, error) {
				return c.Head(context.Background(), "http://example.com/test")
			},
			extraChecks: func(t *testing.T, req *request.Request) {
				assert.Equal(t, "HEAD", req.Method)
			},
		},
		{
			name: "Post",
			action: func(c *Client) (*request.Response, error) {
				return c.Post(context.Background(), "http://example.com/test", "text/plain", "foo")
			},
			extraChecks: func(t *testing.T, req *request.Request) {
				assert.Equal(t, "POST", req.Method)
				assert.Equal(t, "text/plain", req.Header("Content-Type"))
				assert.Equal(t, []byte("foo"), req.BodyBuffer())
			},
		},
		{
			name: "PostForm",
			action: func(c *Client) (*request.Response, error) {
				return c.PostForm(context.Background(), "http://example.com/test", url.Values{"ham": {"eggs", "spam"}})
			},
			extraChecks: func(t *testing.T, req *request.Request) {
				assert.Equal(t, "POST", req.Method)
				assert.Equal(t, "application/x-www-form-urlencoded", req.Header("Content-Type"))
				assert.Equal(t, []byte("ham=eggs&ham=spam"), req.BodyBuffer())
			},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			mockTransport := newMockTransport(t)
			mockTimeoutPolicy := newMockTimeoutPolicy(t)
			mockRetryPolicy := newMockRetryPolicy(t)
			cl := &Client{
				Transport:     mockTransport,
				TimeoutPolicy: mockTimeoutPolicy,
				RetryPolicy:   mockRetryPolicy,
				Handlers:      &HandlerGroup{},
			}
			expected := request.NewResponse(1, 1, 200, "OK")
			expected.SetBody([]byte("foo"))

			var sent *request.Request
			mockTransport.On("Send", mock.Anything, mock.AnythingOfType("*request.Request")).
				Run(func(args mock.Arguments) {
					sent = args.Get(1).(*request.Request)
				}).
				Return(expected, nil).
				Once()
			mockTimeoutPolicy.On("Timeout", mock.Anything).Return(time.Hour).Once()
			mockRetryPolicy.On("Decide", mock.MatchedBy(func(e *request.Execution) bool {
				return e.StatusCode() == 200
			})).Return(false).Once()
			cl.Handlers.mock(BeforeExecutionStart).On("Handle", BeforeExecutionStart, mock.Anything).Once()
			cl.Handlers.mock(BeforeAttempt).On("Handle", BeforeAttempt, mock.Anything).Once()
			cl.Handlers.mock(AfterAttempt).On("Handle", AfterAttempt, mock.Anything).Once()
			cl.Handlers.mock(AfterExecutionEnd).On("Handle", AfterExecutionEnd, mock.MatchedBy(func(e *request.Execution) bool {
				return e.Response == expected && e.Err == nil && e.Attempt == 0 && e.Ended()
			})).Once()

			resp, err := testCase.action(cl)

			mockTransport.AssertExpectations(t)
			mockTimeoutPolicy.AssertExpectations(t)
			mockRetryPolicy.AssertExpectations(t)
			cl.Handlers.assertExpectations(t)
			assert.NoError(t, err)
			assert.Same(t, expected, resp)
			require.NotNil(t, sent)
			assert.Equal(t, "http://example.com/test", sent.URL.String())
			testCase.extraChecks(t, sent)
		})
	}
}

func testClientZeroValue(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		inst        serverInstruction
		extraChecks func(*testing.T, *request.Response, error)
	}{
		{
			name: "expect status 200",
			inst: serverInstruction{
				StatusCode: 200,
			},
			extraChecks: func(t *testing.T, resp *request.Response, err error) {
				assert.NoError(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, 200, resp.StatusCode)
				b, err := resp.Body()
				assert.NoError(t, err)
				assert.Empty(t, b)
			},
		},
		{
			name: "expect status 404",
			inst: serverInstruction{
				StatusCode: 404,
				Body: []bodyChunk{
					{
						Data: []byte("the thingy was not in the place"),
					},
				},
			},
			extraChecks: func(t *testing.T, resp *request.Response, err error) {
				assert.NoError(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, 404, resp.StatusCode)
				assert.Equal(t, "404 Not Found", resp.Status())
				b, err := resp.Body()
				assert.NoError(t, err)
				assert.Equal(t, []byte("the thingy was not in the place"), b)
			},
		},
		{
			name: "expect status 503",
			inst: serverInstruction{
				StatusCode: 503,
				Body: []bodyChunk{
					{
						Data: []byte("ain't not service in these parts"),
					},
				},
			},
			extraChecks: func(t *testing.T, resp *request.Response, err error) {
				assert.NoError(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, 503, resp.StatusCode)
				b, err := resp.Body()
				assert.NoError(t, err)
				assert.Equal(t, []byte("ain't not service in these parts"), b)
			},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cl := &Client{} // Must use zero value!
			req := testCase.inst.toRequest("POST", httpServer)

			resp, err := cl.Send(context.Background(), req)

			testCase.extraChecks(t, resp, err)
		})
	}
}

func testClientPipeline(t *testing.T) {
	t.Parallel()

	t.Run("order", func(t *testing.T) {
		var trace []string
		calls := 0
		cl := &Client{
			Transport: TransportFunc(func(context.Context, *request.Request) (*request.Response, error) {
				trace = append(trace, "transport")
				calls++
				if calls == 1 {
					return request.NewResponse(1, 1, 503, ""), nil
				}
				return request.NewResponse(1, 1, 200, ""), nil
			}),
			RetryPolicy: retry.NewPolicy(retry.Times(1).And(retry.StatusCode(503)), retry.NewFixedWaiter(0)),
			PerCall:     []Policy{&tracePolicy{name: "call", trace: &trace}},
			PerRetry:    []Policy{&tracePolicy{name: "retry", trace: &trace}},
		}

		resp, err := cl.Get(context.Background(), "http://example.com")

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, []string{
			"call↓",
			"retry↓", "transport", "retry↑",
			"retry↓", "transport", "retry↑",
			"call↑",
		}, trace)
	})
	t.Run("assembled once", func(t *testing.T) {
		cl := &Client{
			Transport: newMockTransport(t),
			PerCall:   []Policy{&tracePolicy{name: "a"}, &tracePolicy{name: "b"}},
			PerRetry:  []Policy{&tracePolicy{name: "c"}},
		}

		p := cl.Pipeline()

		assert.Same(t, p, cl.Pipeline())
		policies := p.Policies()
		require.Len(t, policies, 5)
		assert.IsType(t, &RetryPolicy{}, policies[2])
		assert.Equal(t, TransportPolicy{Transport: cl.Transport}, policies[4])
	})
	t.Run("retry-scoped authorization", func(t *testing.T) {
		for _, server := range servers {
			t.Run(serverName(server), func(t *testing.T) {
				cl := &Client{
					Transport:   serverTransport(server),
					RetryPolicy: retry.NewPolicy(retry.Times(2).And(retry.StatusCode(503)), retry.NewFixedWaiter(time.Millisecond)),
					PerRetry: []Policy{
						PolicyFunc(func(ctx context.Context, req *request.Request, next NextPolicy) (*request.Response, error) {
							if err := req.AddHeader("Authorization", "Bearer "+strconv.Itoa(RetryNumber(ctx))); err != nil {
								return nil, err
							}
							return next.Send(ctx, req)
						}),
					},
				}
				req := (&serverInstruction{StatusCode: 503}).toRequest("POST", server)

				resp, err := cl.Send(context.Background(), req)

				require.NoError(t, err)
				assert.Equal(t, 503, resp.StatusCode)
				assert.Equal(t, "Bearer 3", resp.Header.Get("X-Authorization-Echo"))
			})
		}
	})
}

func testClientAttemptTimeout(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{
				Transport:     serverTransport(server),
				TimeoutPolicy: timeout.Fixed(250 * time.Microsecond),
				RetryPolicy:   retry.Never,
				Handlers:      &HandlerGroup{},
			}
			cl.Handlers.mock(BeforeExecutionStart).On("Handle", BeforeExecutionStart, mock.Anything).Once()
			cl.Handlers.mock(BeforeAttempt).On("Handle", BeforeAttempt, mock.Anything).Once()
			cl.Handlers.mock(AfterAttemptTimeout).On("Handle", AfterAttemptTimeout, mock.Anything).Once()
			cl.Handlers.mock(AfterAttempt).On("Handle", AfterAttempt, mock.Anything).Once()
			cl.Handlers.mock(AfterExecutionTimeout)
			cl.Handlers.mock(AfterExecutionEnd).On("Handle", AfterExecutionEnd, mock.MatchedBy(func(e *request.Execution) bool {
				return e.AttemptTimeouts == 1 && e.Attempt == 0 && e.Response == nil
			})).Once()
			req := (&serverInstruction{
				StatusCode:  201,
				HeaderPause: 25 * time.Millisecond,
				Body: []bodyChunk{
					{Pause: 50 * time.Millisecond, Data: []byte("Here is your first chunk.")},
					{Pause: 100 * time.Millisecond, Data: []byte("And here is your second and longer chunk.")},
				},
			}).toRequest("POST", server)

			resp, err := cl.Send(context.Background(), req)

			cl.Handlers.assertExpectations(t)
			cl.Handlers.mock(AfterExecutionTimeout).AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
			assert.Nil(t, resp)
			require.Error(t, err)
			assert.Equal(t, transient.Timeout, transient.Categorize(err))
			assert.IsType(t, &failure.Error{}, err)
		})
	}
}

func testClientExecutionTimeout(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{
				Transport:   serverTransport(server),
				RetryPolicy: retry.NewPolicy(retry.DefaultDecider, retry.NewFixedWaiter(time.Hour)),
			}
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			req := (&serverInstruction{StatusCode: 503}).toRequest("POST", server)

			resp, err := cl.Send(ctx, req)

			assert.Nil(t, resp)
			require.Error(t, err)
			assert.True(t, failure.Is(err, failure.Cancelled))
			var fe *failure.Error
			require.ErrorAs(t, err, &fe)
			assert.True(t, fe.Timeout())
		})
	}
}

func testClientRetry(t *testing.T) {
	t.Parallel()

	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{
				Transport:   serverTransport(server),
				RetryPolicy: retry.NewPolicy(retry.Times(2).And(retry.StatusCode(502)), retry.NewFixedWaiter(time.Millisecond)),
				Handlers:    &HandlerGroup{},
			}
			tc := addTraceHandlers(cl.Handlers)
			var last *request.Execution
			cl.Handlers.PushBack(AfterExecutionEnd, HandlerFunc(func(_ Event, e *request.Execution) {
				last = e
			}))
			req := (&serverInstruction{
				StatusCode: 502,
				Body:       []bodyChunk{{Data: []byte("bad gateway")}},
			}).toRequest("POST", server)

			resp, err := cl.Send(context.Background(), req)

			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, 502, resp.StatusCode)
			b, err := resp.Body()
			require.NoError(t, err)
			assert.Equal(t, []byte("bad gateway"), b)
			require.NotNil(t, last)
			assert.Equal(t, 2, last.Attempt)
			assert.Equal(t, 0, last.AttemptTimeouts)
			assert.GreaterOrEqual(t, last.Duration(), 2*time.Millisecond)
			assert.Equal(t, []string{
				"BeforeExecutionStart",
				"BeforeAttempt", "AfterAttempt", "BeforeRetryWait",
				"BeforeAttempt", "AfterAttempt", "BeforeRetryWait",
				"BeforeAttempt", "AfterAttempt",
				"AfterExecutionEnd",
			}, tc.calls)
		})
	}
}

func testClientStream(t *testing.T) {
	t.Parallel()

	data := []byte("The quick brown fox jumps over the lazy dog.")
	for _, server := range servers {
		server := server
		t.Run(serverName(server), func(t *testing.T) {
			t.Parallel()

			cl := &Client{
				Transport: &transport.HTTP{
					Doer:      server.Client(),
					ChunkSize: 8,
				},
				TimeoutPolicy: timeout.Fixed(10 * time.Second),
			}
			req := (&serverInstruction{
				StatusCode: 200,
				Body: []bodyChunk{
					{Pause: 10 * time.Millisecond, Data: data[:20]},
					{Pause: 10 * time.Millisecond, Data: data[20:]},
				},
			}).toRequest("POST", server)
			req.SetDownloadViaStream(true)

			resp, err := cl.Send(context.Background(), req)

			require.NoError(t, err)
			require.True(t, resp.IsStreaming())
			s := resp.BodyStream()
			assert.Equal(t, int64(len(data)), s.Length())
			b, err := io.ReadAll(s)
			require.NoError(t, err)
			assert.Equal(t, data, b)
			assert.NoError(t, resp.Close())
			_, err = resp.Body()
			assert.ErrorIs(t, err, request.ErrStreamConsumed)
		})
	}
}

func testClientCloseIdleConnections(t *testing.T) {
	t.Run("transport without method", func(t *testing.T) {
		mockTransport := newMockTransport(t)
		cl := &Client{Transport: mockTransport}
		assert.NotPanics(t, cl.CloseIdleConnections)
	})
	t.Run("transport with method", func(t *testing.T) {
		mockTransport := newMockTransportWithCloseIdleConnections(t)
		mockTransport.On("CloseIdleConnections").Once()
		cl := &Client{Transport: mockTransport}

		cl.CloseIdleConnections()

		mockTransport.AssertExpectations(t)
	})
	t.Run("zero value", func(t *testing.T) {
		cl := &Client{}
		assert.NotPanics(t, cl.CloseIdleConnections)
	})
}

type mockTransportWithCloseIdleConnections struct {
	mockTransport
}

func newMockTransportWithCloseIdleConnections(t *testing.T) *mockTransportWithCloseIdleConnections {
	m := &mockTransportWithCloseIdleConnections{}
	m.Test(t)
	return m
}

func (m *mockTransportWithCloseIdleConnections) CloseIdleConnections() {
	m.Called()
}
