// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package policy provides ready-made pipeline policies.

Policies which must see a fresh value on every attempt, such as
PerRetryDate and BearerToken, belong after the retry policy, in a
client's PerRetry list. Policies which should run once for each call,
such as Telemetry and RequestID, belong in the PerCall list:

	client := &httpipe.Client{
		PerCall: []httpipe.Policy{
			policy.NewTelemetry("blob", "", ""),
			policy.RequestID{},
		},
		PerRetry: []httpipe.Policy{
			policy.PerRetryDate{},
			policy.NewBearerToken(cred, "https://storage.example.com/.default"),
			&policy.Logging{},
		},
	}
*/
package policy
