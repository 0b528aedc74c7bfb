// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gogama/httpipe/request"
	"golang.org/x/net/http/httpguts"
)

type state int

const (
	stateIdle state = iota
	stateHeaderReceiving
	stateBodyStreaming
	stateBodyBuffering
	stateComplete
)

var stateNames = []string{
	"Idle",
	"HeaderReceiving",
	"BodyStreaming",
	"BodyBuffering",
	"Complete",
}

func (s state) String() string {
	return stateNames[s]
}

type framing int

const (
	framingNone framing = iota
	framingLength
	framingChunked
	framingClose
)

// parser reads one HTTP/1.x response from r.
//
// readHead consumes the status line and headers, moving from Idle
// through HeaderReceiving into one of the body states. The body is then
// consumed through Read, which moves the parser to Complete once the
// framing says the body has ended.
type parser struct {
	r      *bufio.Reader
	state  state
	stream bool
	resp   *request.Response

	framing   framing
	remaining int64 // bytes left in the body (framingLength) or current chunk (framingChunked)
	chunked   bool  // true once the first chunk header has been read
}

func newParser(r *bufio.Reader, stream bool) *parser {
	return &parser{r: r, stream: stream}
}

// readHead parses the response head. Interim 1xx responses are
// skipped. If noBody is true, the response is known to have no body
// (the request was HEAD).
func (p *parser) readHead(noBody bool) (*request.Response, error) {
	p.state = stateHeaderReceiving
	for {
		line, err := p.readLine()
		if err != nil {
			return nil, err
		}
		if p.resp == nil {
			if p.resp, err = parseStatusLine(line); err != nil {
				return nil, err
			}
			continue
		}
		if line != "" {
			name, value, err := parseHeaderLine(line)
			if err != nil {
				return nil, err
			}
			p.resp.AddHeader(name, value)
			continue
		}
		if p.resp.StatusCode < 200 {
			p.resp = nil
			continue
		}
		break
	}

	if err := p.frame(noBody); err != nil {
		return nil, err
	}
	if p.stream {
		p.state = stateBodyStreaming
	} else {
		p.state = stateBodyBuffering
	}
	if p.framing == framingNone {
		p.state = stateComplete
	}

	return p.resp, nil
}

func (p *parser) frame(noBody bool) error {
	h := p.resp.Header
	code := p.resp.StatusCode
	if noBody || code == http.StatusNoContent || code == http.StatusNotModified {
		p.framing = framingNone
		return nil
	}

	if httpguts.HeaderValuesContainsToken(h["Transfer-Encoding"], "chunked") {
		p.framing = framingChunked
		return nil
	}

	if values := h["Content-Length"]; len(values) > 0 {
		first := strings.TrimSpace(values[0])
		for _, v := range values[1:] {
			if strings.TrimSpace(v) != first {
				return fmt.Errorf("%w: conflicting Content-Length values", ErrMalformedResponse)
			}
		}
		n, err := strconv.ParseInt(first, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: bad Content-Length %q", ErrMalformedResponse, first)
		}
		p.remaining = n
		p.framing = framingLength
		if n == 0 {
			p.framing = framingNone
		}
		return nil
	}

	p.framing = framingClose
	return nil
}

// length returns the advertised body length, or -1 if it is unknown.
func (p *parser) length() int64 {
	switch p.framing {
	case framingNone:
		return 0
	case framingLength:
		return p.remaining
	default:
		return -1
	}
}

// Read reads body bytes. It returns io.EOF, and moves the parser to
// Complete, at the end of the body.
func (p *parser) Read(b []byte) (int, error) {
	switch p.framing {
	case framingLength:
		if p.remaining == 0 {
			return p.complete()
		}
		if int64(len(b)) > p.remaining {
			b = b[:p.remaining]
		}
		n, err := p.r.Read(b)
		p.remaining -= int64(n)
		if err == io.EOF {
			if p.remaining > 0 {
				return n, io.ErrUnexpectedEOF
			}
			err = nil
		}
		return n, err
	case framingChunked:
		if p.remaining == 0 {
			if err := p.nextChunk(); err != nil {
				return 0, err
			}
			if p.framing == framingNone {
				return p.complete()
			}
		}
		if int64(len(b)) > p.remaining {
			b = b[:p.remaining]
		}
		n, err := p.r.Read(b)
		p.remaining -= int64(n)
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return n, err
	case framingClose:
		n, err := p.r.Read(b)
		if err == io.EOF {
			p.state = stateComplete
		}
		return n, err
	default:
		return p.complete()
	}
}

func (p *parser) complete() (int, error) {
	p.framing = framingNone
	p.state = stateComplete
	return 0, io.EOF
}

func (p *parser) nextChunk() error {
	if p.chunked {
		line, err := p.readLine()
		if err != nil {
			return err
		}
		if line != "" {
			return fmt.Errorf("%w: missing CRLF after chunk", ErrMalformedResponse)
		}
	}
	p.chunked = true

	line, err := p.readLine()
	if err != nil {
		return err
	}
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	size, err := strconv.ParseInt(strings.TrimSpace(line), 16, 64)
	if err != nil || size < 0 {
		return fmt.Errorf("%w: bad chunk size %q", ErrMalformedResponse, line)
	}
	if size > 0 {
		p.remaining = size
		return nil
	}

	// Last chunk. Discard the trailer section.
	for {
		line, err = p.readLine()
		if err != nil {
			return err
		}
		if line == "" {
			p.framing = framingNone
			return nil
		}
	}
}

// maxLineBytes bounds a status, header or chunk-size line. It is
// independent of the reader's buffer size, which only bounds body pulls.
const maxLineBytes = 64 << 10

func (p *parser) readLine() (string, error) {
	line, err := p.r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		long := append([]byte(nil), line...)
		for err == bufio.ErrBufferFull {
			if len(long) > maxLineBytes {
				return "", fmt.Errorf("%w: line too long", ErrMalformedResponse)
			}
			line, err = p.r.ReadSlice('\n')
			long = append(long, line...)
		}
		if len(long) > maxLineBytes {
			return "", fmt.Errorf("%w: line too long", ErrMalformedResponse)
		}
		line = long
	}
	if err == io.EOF && p.state == stateHeaderReceiving {
		if len(line) == 0 && p.resp == nil {
			return "", io.ErrUnexpectedEOF
		}
		return "", fmt.Errorf("%w: unexpected end of header", ErrMalformedResponse)
	}
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return "", err
	}

	return strings.TrimRight(string(line), "\r\n"), nil
}

// parseStatusLine parses a status line such as "HTTP/1.1 404 Not
// Found" into a new response.
func parseStatusLine(line string) (*request.Response, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return nil, fmt.Errorf("%w: bad status line %q", ErrMalformedResponse, line)
	}
	major, minor, ok := http.ParseHTTPVersion(proto)
	if !ok {
		return nil, fmt.Errorf("%w: bad protocol version %q", ErrMalformedResponse, proto)
	}
	code, reason, _ := strings.Cut(rest, " ")
	if len(code) != 3 {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformedResponse, code)
	}
	statusCode, err := strconv.Atoi(code)
	if err != nil || statusCode < 100 {
		return nil, fmt.Errorf("%w: bad status code %q", ErrMalformedResponse, code)
	}

	return request.NewResponse(major, minor, statusCode, reason), nil
}

func parseHeaderLine(line string) (string, string, error) {
	name, value, ok := strings.Cut(line, ":")
	if !ok || !httpguts.ValidHeaderFieldName(name) {
		return "", "", fmt.Errorf("%w: bad header line %q", ErrMalformedResponse, line)
	}
	value = strings.TrimSpace(value)
	if !httpguts.ValidHeaderFieldValue(value) {
		return "", "", fmt.Errorf("%w: bad value for header %q", ErrMalformedResponse, name)
	}

	return name, value, nil
}
