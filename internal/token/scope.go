// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package token

import (
	"context"
	"errors"
	"sync"
)

type scopeKey struct{}

// requestScope remembers the first auth failure per provider for one
// inbound request. Tiers of the same ladder share it, including race mode.
type requestScope struct {
	mu       sync.Mutex
	failures map[string]*AuthFailure
}

// WithRequestScope marks ctx as one inbound request. Once authentication
// for a provider has failed under the returned context, GetToken answers
// with that failure for the rest of the request instead of running another
// exchange. An existing scope is reused.
func WithRequestScope(ctx context.Context) context.Context {
	if _, ok := ctx.Value(scopeKey{}).(*requestScope); ok {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, &requestScope{failures: make(map[string]*AuthFailure)})
}

// MarkFailed records err for providerID in the request scope of ctx. Only
// *AuthFailure values are kept; the first one wins. Without a scope it is
// a no-op.
func MarkFailed(ctx context.Context, providerID string, err error) {
	scope, ok := ctx.Value(scopeKey{}).(*requestScope)
	if !ok {
		return
	}
	var af *AuthFailure
	if !errors.As(err, &af) {
		return
	}
	scope.mu.Lock()
	if _, seen := scope.failures[providerID]; !seen {
		scope.failures[providerID] = af
	}
	scope.mu.Unlock()
}

// scopedFailure returns the failure recorded for providerID, if any.
func scopedFailure(ctx context.Context, providerID string) (*AuthFailure, bool) {
	scope, ok := ctx.Value(scopeKey{}).(*requestScope)
	if !ok {
		return nil, false
	}
	scope.mu.Lock()
	defer scope.mu.Unlock()
	af, seen := scope.failures[providerID]
	return af, seen
}
