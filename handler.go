// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"github.com/gogama/httpipe/request"
)

// A Handler observes, and may adjust, an execution when an Event
// fires.
type Handler interface {
	Handle(Event, *request.Execution)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(Event, *request.Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *request.Execution) {
	f(evt, e)
}

// A HandlerGroup holds one ordered chain of handlers per Event. The
// zero value is empty and ready to use, and a nil *HandlerGroup runs
// nothing.
//
// Install handlers before the first Send. A group must not change while
// a pipeline is using it.
type HandlerGroup struct {
	chains [numEvents][]Handler
}

// PushBack appends h to the chain for evt. It panics if h is nil or evt
// is not a known Event.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("httpipe: nil handler")
	}
	if evt < 0 || int(evt) >= numEvents {
		panic("httpipe: unknown event " + evt.Name())
	}

	g.chains[evt] = append(g.chains[evt], h)
}

// Handlers returns the chain for evt in the order it runs. The slice
// must not be modified.
func (g *HandlerGroup) Handlers(evt Event) []Handler {
	if g == nil || evt < 0 || int(evt) >= numEvents {
		return nil
	}

	return g.chains[evt]
}

// Len returns the length of the chain for evt.
func (g *HandlerGroup) Len(evt Event) int {
	return len(g.Handlers(evt))
}

func (g *HandlerGroup) run(evt Event, e *request.Execution) {
	for _, h := range g.Handlers(evt) {
		h.Handle(evt, e)
	}
}
