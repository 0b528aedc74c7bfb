// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

import (
	"context"
	"net/http"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/gogama/httpipe/policy"

// Span attribute keys.
const (
	AttrMethod      = "http.request.method"
	AttrURL         = "url.full"
	AttrStatusCode  = "http.response.status_code"
	AttrResendCount = "http.request.resend_count"
	AttrRequestID   = "az.client_request_id"
)

// A Tracing policy wraps each request in an OpenTelemetry client span
// and propagates the span context in the request headers.
//
// Placed after the retry policy, each attempt gets its own span.
type Tracing struct {
	// Tracer starts the spans. If nil, the tracer of the global
	// tracer provider is used.
	Tracer trace.Tracer
	// Propagator injects the span context into the request. If nil,
	// the global text map propagator is used.
	Propagator propagation.TextMapPropagator
}

// Send starts a span, delegates to next, and ends the span with the
// outcome.
func (p *Tracing) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	tracer := p.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrMethod, req.Method),
		attribute.String(AttrURL, RedactURL(req.EncodedURL())),
	}
	if n := httpipe.RetryNumber(ctx); n > 1 {
		attrs = append(attrs, attribute.Int(AttrResendCount, n-1))
	}
	if id := req.Header(RequestIDHeader); id != "" {
		attrs = append(attrs, attribute.String(AttrRequestID, id))
	}
	ctx, span := tracer.Start(ctx, "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...))
	defer span.End()

	if err := p.inject(ctx, req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	resp, err := next.Send(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int(AttrStatusCode, resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status())
	}

	return resp, nil
}

func (p *Tracing) inject(ctx context.Context, req *request.Request) error {
	propagator := p.Propagator
	if propagator == nil {
		propagator = otel.GetTextMapPropagator()
	}

	carrier := propagation.HeaderCarrier(http.Header{})
	propagator.Inject(ctx, carrier)
	for _, name := range carrier.Keys() {
		if err := req.AddHeader(name, carrier.Get(name)); err != nil {
			return err
		}
	}

	return nil
}
