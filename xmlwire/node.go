// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package xmlwire

import "strconv"

// A NodeType identifies the kind of a Node.
type NodeType int

const (
	// End marks the end of the document.
	End NodeType = iota
	// StartTag opens an element. When written with a non-empty
	// Value, it produces the whole element with Value as its text
	// and needs no matching EndTag.
	StartTag
	// EndTag closes the most recently opened element.
	EndTag
	// SelfClosingTag is an element with no content.
	SelfClosingTag
	// Text is character data. Only Value is used.
	Text
	// Attribute belongs to the element opened just before it.
	Attribute
)

var nodeTypeNames = [...]string{
	End:            "End",
	StartTag:       "StartTag",
	EndTag:         "EndTag",
	SelfClosingTag: "SelfClosingTag",
	Text:           "Text",
	Attribute:      "Attribute",
}

func (t NodeType) String() string {
	if t < 0 || int(t) >= len(nodeTypeNames) {
		return "NodeType(" + strconv.Itoa(int(t)) + ")"
	}

	return nodeTypeNames[t]
}

// A Node is one XML node event.
type Node struct {
	Type  NodeType
	Name  string
	Value string
}
