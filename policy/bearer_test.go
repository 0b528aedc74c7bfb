// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package policy_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gogama/httpipe"
	"github.com/gogama/httpipe/failure"
	"github.com/gogama/httpipe/policy"
	"github.com/gogama/httpipe/policy/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestBearerToken(t *testing.T) {
	t.Run("fresh token per retry", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		// Both tokens expire inside the refresh window, so every
		// attempt fetches a new one.
		soon := time.Now().Add(time.Minute)
		gomock.InOrder(
			cred.EXPECT().
				GetToken(gomock.Any(), policy.TokenRequestOptions{Scopes: []string{"scope/.default"}}).
				Return(policy.AccessToken{Token: "A", ExpiresOn: soon}, nil),
			cred.EXPECT().
				GetToken(gomock.Any(), gomock.Any()).
				Return(policy.AccessToken{Token: "B", ExpiresOn: soon}, nil),
		)
		tr := &capture{statuses: []int{503, 200}}
		req := newRequest(t)
		require.NoError(t, req.AddHeader("x-ms-version", "2020-10-02"))

		resp, err := httpipe.NewPipeline(tr, retryOn503(1), policy.NewBearerToken(cred, "scope/.default")).
			Send(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		require.Len(t, tr.headers, 2)
		assert.Equal(t, []string{"Bearer A"}, tr.headers[0].Values("Authorization"))
		assert.Equal(t, []string{"Bearer B"}, tr.headers[1].Values("Authorization"))
		assert.Equal(t, "2020-10-02", tr.headers[0].Get("x-ms-version"))
		assert.Equal(t, "2020-10-02", tr.headers[1].Get("x-ms-version"))
	})
	t.Run("cached token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		cred.EXPECT().
			GetToken(gomock.Any(), gomock.Any()).
			Return(policy.AccessToken{Token: "A", ExpiresOn: time.Now().Add(time.Hour)}, nil).
			Times(1)
		p := httpipe.NewPipeline(&capture{}, policy.NewBearerToken(cred, "b", "a"))

		for i := 0; i < 3; i++ {
			_, err := p.Send(context.Background(), newRequest(t))
			require.NoError(t, err)
		}
	})
	t.Run("scopes from context", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		later := time.Now().Add(time.Hour)
		cred.EXPECT().
			GetToken(gomock.Any(), policy.TokenRequestOptions{Scopes: []string{"default"}}).
			Return(policy.AccessToken{Token: "D", ExpiresOn: later}, nil)
		cred.EXPECT().
			GetToken(gomock.Any(), policy.TokenRequestOptions{Scopes: []string{"other"}}).
			Return(policy.AccessToken{Token: "O", ExpiresOn: later}, nil)
		tr := &capture{}
		p := httpipe.NewPipeline(tr, policy.NewBearerToken(cred, "default"))

		_, err := p.Send(context.Background(), newRequest(t))
		require.NoError(t, err)
		_, err = p.Send(policy.WithScopes(context.Background(), "other"), newRequest(t))
		require.NoError(t, err)
		_, err = p.Send(context.Background(), newRequest(t))
		require.NoError(t, err)

		require.Len(t, tr.headers, 3)
		assert.Equal(t, "Bearer D", tr.headers[0].Get("Authorization"))
		assert.Equal(t, "Bearer O", tr.headers[1].Get("Authorization"))
		assert.Equal(t, "Bearer D", tr.headers[2].Get("Authorization"))
	})
	t.Run("credential error", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		cause := errors.New("no token for you")
		cred.EXPECT().GetToken(gomock.Any(), gomock.Any()).Return(policy.AccessToken{}, cause)
		tr := &capture{}

		resp, err := httpipe.NewPipeline(tr, policy.NewBearerToken(cred, "s")).Send(context.Background(), newRequest(t))

		assert.Nil(t, resp)
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, failure.TransportFailure, failure.KindOf(err))
		assert.Empty(t, tr.headers)
	})
	t.Run("credential failure kept", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		cause := failure.New(failure.Protocol, "Post", "https://login.example.com/token", errors.New("bad token response"))
		cred.EXPECT().GetToken(gomock.Any(), gomock.Any()).Return(policy.AccessToken{}, cause)

		_, err := httpipe.NewPipeline(&capture{}, policy.NewBearerToken(cred, "s")).Send(context.Background(), newRequest(t))

		assert.ErrorIs(t, err, cause)
		assert.Equal(t, failure.Protocol, failure.KindOf(err))
	})
	t.Run("unusable token", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)
		cred.EXPECT().GetToken(gomock.Any(), gomock.Any()).
			Return(policy.AccessToken{Token: "line\nbreak", ExpiresOn: time.Now().Add(time.Hour)}, nil)
		tr := &capture{}

		_, err := httpipe.NewPipeline(tr, policy.NewBearerToken(cred, "s")).Send(context.Background(), newRequest(t))

		assert.Equal(t, failure.Unsupported, failure.KindOf(err))
		assert.Empty(t, tr.headers)
	})
	t.Run("no scopes", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		cred := mocks.NewMockTokenCredential(ctrl)

		_, err := httpipe.NewPipeline(&capture{}, policy.NewBearerToken(cred)).Send(context.Background(), newRequest(t))

		assert.ErrorIs(t, err, policy.ErrNoScopes)
		assert.Equal(t, failure.Unsupported, failure.KindOf(err))
	})
	t.Run("nil credential", func(t *testing.T) {
		assert.PanicsWithValue(t, "httpipe/policy: nil credential", func() {
			policy.NewBearerToken(nil, "s")
		})
	})
}
