// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"
	"runtime"
	"strings"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/internal/version"
	"github.com/gogama/httpipe/request"
)

const userAgentHeader = "User-Agent"

// maxApplicationIDLength bounds the application ID prefix.
const maxApplicationIDLength = 24

// A Telemetry policy sets the User-Agent header to a value identifying
// the calling application, the component, and the platform.
type Telemetry struct {
	userAgent string
}

// NewTelemetry returns a Telemetry policy for the named component.
//
// The User-Agent has the form
//
//	[<applicationID> ]httpipe-<component>/<version> (<go version>; <GOOS>)
//
// An empty componentVersion means the module version. An applicationID
// longer than 24 characters is truncated, and whitespace in it is
// replaced with '-'.
func NewTelemetry(component, componentVersion, applicationID string) *Telemetry {
	if componentVersion == "" {
		componentVersion = version.String()
	}

	var b strings.Builder
	if applicationID != "" {
		if len(applicationID) > maxApplicationIDLength {
			applicationID = applicationID[:maxApplicationIDLength]
		}
		b.WriteString(strings.Join(strings.Fields(applicationID), "-"))
		b.WriteByte(' ')
	}
	b.WriteString("httpipe-")
	b.WriteString(component)
	b.WriteByte('/')
	b.WriteString(componentVersion)
	b.WriteString(" (")
	b.WriteString(runtime.Version())
	b.WriteString("; ")
	b.WriteString(runtime.GOOS)
	b.WriteByte(')')

	return &Telemetry{userAgent: b.String()}
}

// UserAgent returns the User-Agent value the policy sets.
func (p *Telemetry) UserAgent() string {
	return p.userAgent
}

// Send sets the User-Agent header and delegates to next.
func (p *Telemetry) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	if err := req.AddHeader(userAgentHeader, p.userAgent); err != nil {
		return nil, err
	}

	return next.Send(ctx, req)
}
