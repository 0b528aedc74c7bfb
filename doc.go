// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package httpipe provides an HTTP client built as a pipeline of composable
policies ending in a pluggable transport.

Create a Client to begin making requests.

	client := &httpipe.Client{}
	resp, err := client.Get(ctx, "https://www.example.com")
	...
	resp, err := client.Post(ctx, "https://www.example.com/upload",
		"application/json", &buf)
	...
	resp, err := client.PostForm(ctx, "http://example.com/form",
		url.Values{"key": {"Value"}, "id": {"123"}})

Every request travels down the pipeline one policy at a time. Each
policy may inspect or modify the request, short-circuit with its own
response, or hand the request to the next policy and inspect what comes
back. A Client assembles its pipeline in this order:

	PerCall policies -> RetryPolicy -> PerRetry policies -> Transport

Policies after the RetryPolicy run once per attempt. Headers and query
parameters they add are retry-scoped, so a fresh value replaces the
previous attempt's value instead of accumulating:

	auth := httpipe.PolicyFunc(func(ctx context.Context, req *request.Request,
		next httpipe.NextPolicy) (*request.Response, error) {
		if err := req.AddHeader("Authorization", "Bearer "+token()); err != nil {
			return nil, err
		}
		return next.Send(ctx, req)
	})
	client := &httpipe.Client{
		PerRetry: []httpipe.Policy{auth},
	}

Package policy contains ready-made policies for logging, telemetry,
request IDs, authentication, rate limiting, and tracing.

For control over how requests reach the network, set a Transport. The
transport.HTTP adapter sends through a GoLang standard HTTP client, and
transport.Raw speaks HTTP/1.1 directly over a connection:

	client := &httpipe.Client{
		Transport: &transport.HTTP{Doer: &http.Client{...}},
	}

For control over the client's retry decisions and timing, create a
custom retry policy using components from package retry:

	retryWaiter := retry.NewExpWaiter(250*time.Millisecond, 5*time.Second, time.Now())
	retryPolicy := retry.NewPolicy(retry.DefaultDecider, retryWaiter)
	client := &httpipe.Client{
		RetryPolicy: retryPolicy,
	}

For control over the client's individual attempt timeouts, set a custom
timeout policy using package timeout:

	client := &httpipe.Client{
		TimeoutPolicy: timeout.Fixed(10*time.Second),
	}

To hook into the fine-grained details of the retry loop, install a
handler into the appropriate handler chain:

	handlers := &httpipe.HandlerGroup{}
	handlers.PushBack(httpipe.BeforeAttempt, httpipe.HandlerFunc(
		func(_ httpipe.Event, e *request.Execution) {
			log.Printf("Attempt %d to %s", e.Attempt, e.Request.EncodedURL())
		}),
	)
	client := &httpipe.Client{
		Handlers: handlers,
	}

To receive a large response body incrementally, ask for a streamed
download and close the response when done:

	req, _ := request.New("GET", "https://www.example.com/big", nil)
	req.SetDownloadViaStream(true)
	resp, err := client.Send(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Close()
	_, err = io.Copy(dst, resp.BodyStream())

Errors returned by the built-in policies and transports are of type
*failure.Error, whose Kind tells transport failures, protocol errors,
and cancellations apart.

Package httpipe provides basic interfaces for each method of the client
(Sender, Getter, Header, Poster, FormPoster, and IdleCloser); a combined
interface that composes all the basic methods (Executor); and utility
functions for working with a Sender (Inflate, Get, Head, Post, and
PostForm).
*/
package httpipe
