// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xmlwire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/gogama/httpipe/failure"
)

const op = "Xml"

var (
	// ErrUnsupportedToken is the cause of the failure returned when a
	// document contains a directive or a processing instruction other
	// than the XML declaration.
	ErrUnsupportedToken = errors.New("httpipe/xmlwire: unsupported xml token")
	// ErrUnbalanced is the cause of the failure returned when end tags
	// do not match start tags.
	ErrUnbalanced = errors.New("httpipe/xmlwire: unbalanced element")
)

// A Reader produces the node events of one XML document.
type Reader struct {
	dec     *xml.Decoder
	pending []Node
	peeked  xml.Token
	stack   []string
	done    bool
}

// NewReader returns a Reader over the document in r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: xml.NewDecoder(r)}
}

// Read returns the next node. After the document is exhausted, Read
// returns a node of type End, every time it is called. A malformed
// document produces a failure.Protocol error.
func (r *Reader) Read() (Node, error) {
	if len(r.pending) > 0 {
		n := r.pending[0]
		r.pending = r.pending[1:]
		return n, nil
	}
	if r.done {
		return Node{Type: End}, nil
	}

	for {
		tok, err := r.next()
		if err == io.EOF {
			if len(r.stack) > 0 {
				return Node{}, protocolError(fmt.Errorf("%w: <%s> not closed", ErrUnbalanced, r.stack[len(r.stack)-1]))
			}
			r.done = true
			return Node{Type: End}, nil
		} else if err != nil {
			return Node{}, protocolError(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			return r.start(t)
		case xml.EndElement:
			name := qualified(t.Name)
			if err = r.pop(name); err != nil {
				return Node{}, err
			}
			return Node{Type: EndTag, Name: name}, nil
		case xml.CharData:
			text, err := r.text(t)
			if err != nil {
				return Node{}, err
			}
			if len(bytes.TrimSpace(text)) > 0 {
				return Node{Type: Text, Value: string(text)}, nil
			}
		case xml.Comment:
		case xml.ProcInst:
			if t.Target != "xml" {
				return Node{}, protocolError(fmt.Errorf("%w: processing instruction %q", ErrUnsupportedToken, t.Target))
			}
		case xml.Directive:
			return Node{}, protocolError(fmt.Errorf("%w: directive", ErrUnsupportedToken))
		}
	}
}

func (r *Reader) start(t xml.StartElement) (Node, error) {
	name := qualified(t.Name)
	n := Node{Type: StartTag, Name: name}

	tok, err := r.next()
	if err != nil && err != io.EOF {
		return Node{}, protocolError(err)
	}
	if end, ok := tok.(xml.EndElement); ok && qualified(end.Name) == name {
		n.Type = SelfClosingTag
	} else {
		r.peeked = tok
		r.stack = append(r.stack, name)
	}

	for _, a := range t.Attr {
		r.pending = append(r.pending, Node{Type: Attribute, Name: qualified(a.Name), Value: a.Value})
	}

	return n, nil
}

// text merges adjacent character data, such as text split by a CDATA
// section.
func (r *Reader) text(first xml.CharData) ([]byte, error) {
	text := append([]byte(nil), first...)
	for {
		tok, err := r.next()
		if err != nil && err != io.EOF {
			return nil, protocolError(err)
		}
		more, ok := tok.(xml.CharData)
		if !ok {
			r.peeked = tok
			return text, nil
		}
		text = append(text, more...)
	}
}

func (r *Reader) pop(name string) error {
	if len(r.stack) == 0 {
		return protocolError(fmt.Errorf("%w: unexpected </%s>", ErrUnbalanced, name))
	}
	top := r.stack[len(r.stack)-1]
	if top != name {
		return protocolError(fmt.Errorf("%w: </%s> closes <%s>", ErrUnbalanced, name, top))
	}
	r.stack = r.stack[:len(r.stack)-1]
	return nil
}

// next returns the peeked token if there is one. RawToken keeps name
// prefixes as written instead of resolving them to namespace URLs.
func (r *Reader) next() (xml.Token, error) {
	if r.peeked != nil {
		tok := r.peeked
		r.peeked = nil
		return tok, nil
	}

	tok, err := r.dec.RawToken()
	if err != nil {
		return nil, err
	}

	return xml.CopyToken(tok), nil
}

func qualified(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}

	return n.Space + ":" + n.Local
}

func protocolError(err error) error {
	return failure.New(failure.Protocol, op, "", err)
}
