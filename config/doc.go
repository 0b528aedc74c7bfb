// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package config loads client settings from a YAML file and HTTPIPE_*
// environment variables, and builds an httpipe.Client from them.
package config
