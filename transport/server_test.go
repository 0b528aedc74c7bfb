// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// echo is what echoHandler reports about the request it received.
type echo struct {
	Method           string
	RequestURI       string
	Host             string
	Header           http.Header
	Body             string
	ContentLength    int64
	TransferEncoding []string
}

// echoHandler replies with a JSON echo of the request, unless the
// query asks for something else:
//
//	status=N   respond with status N
//	size=N     respond with N bytes of generated body instead
//	sleep=D    sleep for duration D before responding
func echoHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if d, err := time.ParseDuration(q.Get("sleep")); err == nil {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	status := http.StatusOK
	if s, err := strconv.Atoi(q.Get("status")); err == nil {
		status = s
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil {
		w.Header().Set("Content-Length", strconv.Itoa(n))
		w.WriteHeader(status)
		_, _ = w.Write(generate(n))
		return
	}

	b, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(echo{
		Method:           r.Method,
		RequestURI:       r.RequestURI,
		Host:             r.Host,
		Header:           r.Header,
		Body:             string(b),
		ContentLength:    r.ContentLength,
		TransferEncoding: r.TransferEncoding,
	})
}

func generate(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a' + byte(i%26)
	}
	return b
}

// cannedServer serves response, verbatim, to every connection and
// then closes it.
func cannedServer(t *testing.T, response string) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer func() { _ = c.Close() }()
				br := bufio.NewReader(c)
				for {
					line, err := br.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				_, _ = io.WriteString(c, response)
			}(conn)
		}
	}()

	return "http://" + ln.Addr().String()
}

func newEchoServer(t *testing.T) *httptest.Server {
	s := httptest.NewServer(http.HandlerFunc(echoHandler))
	t.Cleanup(s.Close)
	return s
}

func decodeEcho(t *testing.T, b []byte) echo {
	var e echo
	require.NoError(t, json.Unmarshal(b, &e))
	return e
}
