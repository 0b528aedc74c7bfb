// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient sorts pipeline errors into those a retry might
// fix and those it cannot.
//
// Categorize looks only at the error value: the failure.Kind in its
// chain first, then well-known causes such as timeouts and connection
// resets.
package transient
