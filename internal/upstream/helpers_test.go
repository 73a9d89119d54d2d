// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package upstream

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/token"
)

// fakeTokens hands out a fixed token and records invalidations.
type fakeTokens struct {
	mu          sync.Mutex
	token       string
	err         error
	invalidated int
}

func (f *fakeTokens) GetToken(_ context.Context, providerID string) (token.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return token.Token{}, f.err
	}
	return token.Token{ProviderID: providerID, AccessToken: f.token, TokenType: "Bearer"}, nil
}

func (f *fakeTokens) Invalidate(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated++
}

func (f *fakeTokens) Configured(string) bool { return f.err == nil }

func (f *fakeTokens) invalidations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.invalidated
}

var angola = models.BoundingBox{MinLon: 11.5, MinLat: -18.0, MaxLon: 17.5, MaxLat: -4.2}

func testWindow() models.TimeWindow {
	end := time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	return models.TimeWindow{Start: end.AddDate(0, 0, -7), End: end}
}
