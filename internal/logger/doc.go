// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package logger holds the process-wide zap logger used by the
// pipeline, its policies and the pipectl command, plus helpers for
// carrying a logger in a context.
//
// The global logger is built lazily on first use and writes JSON to
// standard error at the info level. Call SetLogger or SetLevel to
// change it.
package logger
