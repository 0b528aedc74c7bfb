// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy

//go:generate mockgen -source=bearer.go -destination=mocks/token_credential_mock.go -package=mocks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/request"
	lru "github.com/hashicorp/golang-lru/v2"
)

// TokenRefreshOffset is how long before its expiry a cached token is
// replaced.
const TokenRefreshOffset = 2 * time.Minute

// tokenCacheSize bounds the number of scope sets cached per policy.
const tokenCacheSize = 32

// ErrNoScopes is returned by BearerToken when neither the policy nor
// the context names any scope.
var ErrNoScopes = errors.New("httpipe/policy: no token scopes")

// An AccessToken is a bearer token and its expiry.
type AccessToken struct {
	Token     string
	ExpiresOn time.Time
}

// TokenRequestOptions describes the token being requested.
type TokenRequestOptions struct {
	Scopes []string
}

// A TokenCredential obtains access tokens. How it does so is up to the
// implementation.
type TokenCredential interface {
	GetToken(ctx context.Context, opts TokenRequestOptions) (AccessToken, error)
}

type scopesKey struct{}

// WithScopes returns a child of ctx asking BearerToken policies to use
// scopes for the requests sent with it, in place of their own scopes.
func WithScopes(ctx context.Context, scopes ...string) context.Context {
	return context.WithValue(ctx, scopesKey{}, scopes)
}

// A BearerToken policy authorizes each attempt with a bearer token from
// a TokenCredential.
//
// Tokens are cached per scope set and reused until they are within
// TokenRefreshOffset of expiry. The Authorization header is written on
// every attempt; placed after the retry policy, the header lands in
// the request's retry-scoped store, so a retry carries the token
// current at the time of the retry.
type BearerToken struct {
	cred   TokenCredential
	scopes []string
	cache  *lru.Cache[string, AccessToken]
	mu     sync.Mutex
}

// NewBearerToken returns a BearerToken policy requesting tokens for
// scopes from cred.
func NewBearerToken(cred TokenCredential, scopes ...string) *BearerToken {
	if cred == nil {
		panic("httpipe/policy: nil credential")
	}

	cache, err := lru.New[string, AccessToken](tokenCacheSize)
	if err != nil {
		panic(err)
	}

	return &BearerToken{
		cred:   cred,
		scopes: append([]string(nil), scopes...),
		cache:  cache,
	}
}

// Send sets the Authorization header and delegates to next.
//
// Missing scopes and unusable tokens fail with failure.Unsupported. A
// credential error is returned as is if it is already a *failure.Error,
// as failure.Cancelled if ctx is done, and otherwise as
// failure.TransportFailure so that a retry policy may try again.
func (p *BearerToken) Send(ctx context.Context, req *request.Request, next httpipe.NextPolicy) (*request.Response, error) {
	op, rawURL := failure.Op(req.Method), req.EncodedURL()
	scopes := p.scopes
	if s, ok := ctx.Value(scopesKey{}).([]string); ok && len(s) > 0 {
		scopes = s
	}
	if len(scopes) == 0 {
		return nil, failure.New(failure.Unsupported, op, rawURL, ErrNoScopes)
	}

	token, err := p.token(ctx, scopes)
	if err != nil {
		if failure.KindOf(err) != failure.None {
			return nil, err
		}
		if cerr := failure.Cancellation(ctx, op, rawURL); cerr != nil {
			return nil, cerr
		}
		return nil, failure.New(failure.TransportFailure, op, rawURL, err)
	}
	if err = req.AddHeader("Authorization", "Bearer "+token); err != nil {
		return nil, failure.New(failure.Unsupported, op, rawURL, err)
	}

	return next.Send(ctx, req)
}

func (p *BearerToken) token(ctx context.Context, scopes []string) (string, error) {
	key := scopeKey(scopes)
	if t, ok := p.cache.Get(key); ok && p.fresh(t) {
		return t.Token, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Another goroutine may have refreshed while this one waited.
	if t, ok := p.cache.Get(key); ok && p.fresh(t) {
		return t.Token, nil
	}

	t, err := p.cred.GetToken(ctx, TokenRequestOptions{Scopes: append([]string(nil), scopes...)})
	if err != nil {
		return "", fmt.Errorf("httpipe/policy: get token: %w", err)
	}
	p.cache.Add(key, t)

	return t.Token, nil
}

func (p *BearerToken) fresh(t AccessToken) bool {
	return time.Now().Add(TokenRefreshOffset).Before(t.ExpiresOn)
}

func scopeKey(scopes []string) string {
	s := append([]string(nil), scopes...)
	sort.Strings(s)
	return strings.Join(s, " ")
}
