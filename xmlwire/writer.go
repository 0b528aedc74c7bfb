// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xmlwire

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
)

var (
	// ErrNoOpenTag is returned when an Attribute is written without a
	// tag to attach it to.
	ErrNoOpenTag = errors.New("httpipe/xmlwire: attribute without open tag")
	// ErrDocumentEnded is returned when a node is written after End.
	ErrDocumentEnded = errors.New("httpipe/xmlwire: document already ended")
)

// A Writer builds an XML document from node events. The zero value is
// ready to use.
type Writer struct {
	buf     bytes.Buffer
	stack   []string
	open    *Node // tag still accepting attributes
	started bool
	ended   bool
}

// Write appends n to the document.
func (w *Writer) Write(n Node) error {
	if w.ended {
		return ErrDocumentEnded
	}
	if !w.started {
		w.buf.WriteString(xml.Header)
		w.started = true
	}

	if n.Type == Attribute {
		if w.open == nil {
			return fmt.Errorf("%w: %s", ErrNoOpenTag, n.Name)
		}
		w.buf.WriteByte(' ')
		w.buf.WriteString(n.Name)
		w.buf.WriteString(`="`)
		escape(&w.buf, n.Value)
		w.buf.WriteByte('"')
		return nil
	}

	w.closeOpen()

	switch n.Type {
	case StartTag, SelfClosingTag:
		w.buf.WriteByte('<')
		w.buf.WriteString(n.Name)
		open := n
		w.open = &open
	case EndTag:
		if len(w.stack) == 0 {
			return fmt.Errorf("%w: unexpected end tag", ErrUnbalanced)
		}
		w.endElement()
	case Text:
		escape(&w.buf, n.Value)
	case End:
		for len(w.stack) > 0 {
			w.endElement()
		}
		w.buf.WriteByte('\n')
		w.ended = true
	default:
		return fmt.Errorf("httpipe/xmlwire: unsupported node type %s", n.Type)
	}

	return nil
}

// Document returns the document written so far. Once End has been
// written the document is complete.
func (w *Writer) Document() string {
	return w.buf.String()
}

// closeOpen finishes the pending tag once no more attributes can
// follow it.
func (w *Writer) closeOpen() {
	n := w.open
	if n == nil {
		return
	}
	w.open = nil

	switch {
	case n.Type == SelfClosingTag:
		w.buf.WriteString("/>")
	case n.Value != "":
		w.buf.WriteByte('>')
		escape(&w.buf, n.Value)
		w.buf.WriteString("</")
		w.buf.WriteString(n.Name)
		w.buf.WriteByte('>')
	default:
		w.buf.WriteByte('>')
		w.stack = append(w.stack, n.Name)
	}
}

func (w *Writer) endElement() {
	name := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	w.buf.WriteString("</")
	w.buf.WriteString(name)
	w.buf.WriteByte('>')
}

func escape(buf *bytes.Buffer, s string) {
	// EscapeText only fails when the writer does.
	_ = xml.EscapeText(buf, []byte(s))
}
