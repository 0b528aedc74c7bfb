// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpipe

import (
	"context"

	"github.com/gogama/httpipe/internal/logger"
	"go.uber.org/zap"
)

type retryNumberKey struct{}

// RetryNumber returns the one-based number of the attempt being made
// by the innermost retry policy on the path of ctx, or 0 if ctx did
// not come from a retry policy.
//
// Per-retry policies placed after the retry policy use RetryNumber to
// tell the initial attempt (1) from retries (2 and above).
func RetryNumber(ctx context.Context) int {
	n, _ := ctx.Value(retryNumberKey{}).(int)
	return n
}

func withRetryNumber(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, retryNumberKey{}, n)
}

// WithLogger returns a child of ctx carrying l. Policies in the
// pipeline log to the logger carried by the context they receive,
// falling back to the process-wide logger.
func WithLogger(ctx context.Context, l *zap.Logger) context.Context {
	return logger.ToContext(ctx, l)
}
