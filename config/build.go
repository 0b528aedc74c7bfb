// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/policy"
	"github.com/gogama/httpipe/recording"
	"github.com/gogama/httpipe/retry"
	"github.com/gogama/httpipe/timeout"
	"github.com/gogama/httpipe/transport"
)

// A Stack is a client assembled from Options.
type Stack struct {
	Client *httpipe.Client
	// Recording receives every exchange when Options.RecordFile is
	// set, and is nil otherwise.
	Recording *recording.RecordedData

	recordFile string
}

// Build validates o and assembles a client from it.
//
// The per-call policies are Telemetry, RequestID and, if enabled,
// RateLimit. The per-retry policies are PerRetryDate followed by the
// optional Tracing, Logging and RecordPolicy, in that order.
func (o *Options) Build() (*Stack, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	s := &Stack{recordFile: o.RecordFile}
	c := &httpipe.Client{
		RetryPolicy: retry.NewPolicy(
			retry.Times(o.MaxRetries).And(retry.StatusCode(retry.DefaultStatusCodes...).Or(retry.TransientErr)),
			retry.NewHeaderWaiter(retry.NewJitterWaiter(o.ParsedRetryDelay, o.ParsedMaxRetryDelay, time.Now())),
		),
		TimeoutPolicy: timeout.Infinite,
	}
	if o.ParsedAttemptTimeout > 0 {
		c.TimeoutPolicy = timeout.Fixed(o.ParsedAttemptTimeout)
	}

	if o.PlaybackFile != "" {
		data, err := recording.LoadFile(o.PlaybackFile)
		if err != nil {
			return nil, err
		}
		c.Transport = &recording.Playback{Data: data}
	} else {
		c.Transport = o.transport()
	}

	c.PerCall = []httpipe.Policy{
		policy.NewTelemetry(o.Component, "", o.ApplicationID),
		policy.RequestID{},
	}
	if o.RateLimit > 0 {
		c.PerCall = append(c.PerCall, policy.NewRateLimit(rate.Limit(o.RateLimit), o.RateBurst))
	}

	c.PerRetry = []httpipe.Policy{policy.PerRetryDate{}}
	if o.Tracing {
		c.PerRetry = append(c.PerRetry, &policy.Tracing{})
	}
	if o.LogRequests {
		c.PerRetry = append(c.PerRetry, &policy.Logging{AllowedHeaders: o.AllowedHeaders})
	}
	if o.RecordFile != "" {
		s.Recording = &recording.RecordedData{}
		c.PerRetry = append(c.PerRetry, &recording.RecordPolicy{Data: s.Recording})
	}

	s.Client = c
	return s, nil
}

// Flush saves the recording, if there is one, to the record file.
func (s *Stack) Flush() error {
	if s.Recording == nil {
		return nil
	}

	return s.Recording.SaveFile(s.recordFile)
}

func (o *Options) transport() httpipe.Transport {
	var tlsConfig *tls.Config
	if o.InsecureSkipVerify {
		tlsConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // Opt-in.
	}
	dialer := &net.Dialer{Timeout: o.ParsedDialTimeout}

	if o.Transport == TransportRaw {
		return &transport.Raw{
			DialContext:     dialer.DialContext,
			TLSClientConfig: tlsConfig,
			ChunkSize:       o.ParsedChunkSize,
			MaxBufferedBody: o.ParsedMaxBufferedBody,
		}
	}

	return &transport.HTTP{
		Doer: &http.Client{
			Transport: &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				DialContext:       dialer.DialContext,
				TLSClientConfig:   tlsConfig,
				ForceAttemptHTTP2: true,
			},
		},
		ChunkSize:       o.ParsedChunkSize,
		MaxBufferedBody: o.ParsedMaxBufferedBody,
	}
}
