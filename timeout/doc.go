// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package timeout sets the per-attempt timeouts of a retry policy.
//
// Fixed and Infinite cover the usual cases. Adaptive lengthens the
// timeout after attempts that timed out.
package timeout
