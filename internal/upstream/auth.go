// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package upstream

import (
	"context"
	"net/http"

	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/token"
)

// Provider ids used with the token manager.
const (
	ProviderCopernicus = "copernicus"
	ProviderGFW        = "gfw"
)

// TokenSource issues bearer tokens. *token.Manager implements it.
type TokenSource interface {
	GetToken(ctx context.Context, providerID string) (token.Token, error)
	Invalidate(providerID string)
	Configured(providerID string) bool
}

// authorizedDo attaches a bearer token for provider and performs r. A 401
// or 403 drops the cached token and surfaces as *token.AuthFailure so the
// ladder records an auth failure rather than an outage. The failure is also
// recorded in the request scope, so later tiers of the same request skip
// the provider.
func authorizedDo(ctx context.Context, c *Client, tokens TokenSource, provider string, r Request) (*Response, error) {
	tok, err := tokens.GetToken(ctx, provider)
	if err != nil {
		return nil, err
	}
	r.Bearer = tok.AccessToken

	resp, err := c.Do(ctx, r)
	if err != nil {
		if status := tier.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			tokens.Invalidate(provider)
			af := &token.AuthFailure{
				ProviderID: provider,
				Status:     status,
				Reason:     "data endpoint rejected token",
				Err:        err,
			}
			token.MarkFailed(ctx, provider, af)
			return nil, af
		}
		return nil, err
	}
	if !r.AnyStatus {
		return resp, nil
	}
	if resp.Status == http.StatusUnauthorized || resp.Status == http.StatusForbidden {
		tokens.Invalidate(provider)
	}
	return resp, nil
}
