// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package xmlwire reads and writes XML documents as flat sequences of
node events.

A Reader turns a document into nodes: each element is reported as a
StartTag (or SelfClosingTag when it has no content), followed by one
Attribute node per attribute, then its content, then an EndTag.
Whitespace-only text is ignored. The last node of every document is
End.

A Writer accepts the same sequence and produces a document, so a
Reader's output fed to a Writer reproduces the element nesting of the
input:

	r := xmlwire.NewReader(body)
	var w xmlwire.Writer
	for {
		n, err := r.Read()
		if err != nil {
			return err
		}
		if err = w.Write(n); err != nil {
			return err
		}
		if n.Type == xmlwire.End {
			break
		}
	}
	doc := w.Document()

Parse errors are reported as *failure.Error values of kind
failure.Protocol.
*/
package xmlwire
