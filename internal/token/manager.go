// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package token

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/zitadel/oidc/v3/pkg/oidc"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/metrics"
	"github.com/tomtom215/tidegate/internal/tier"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultRefreshSkew = 30 * time.Second
	DefaultLifetime    = 5 * time.Minute
	DefaultTimeout     = 10 * time.Second

	maxTokenBodySize = 64 * 1024
)

// Options configures a Manager.
type Options struct {
	HTTPClient  *http.Client
	Timeout     time.Duration
	RefreshSkew time.Duration
	DefaultTTL  time.Duration
	Now         func() time.Time
}

// Status is a redacted view of a provider's token state for operators.
type Status struct {
	ProviderID     string    `json:"provider"`
	Configured     bool      `json:"configured"`
	Static         bool      `json:"static"`
	Cached         bool      `json:"cached"`
	ExpiresAt      time.Time `json:"expires_at,omitempty"`
	Preview        string    `json:"token_preview,omitempty"`
	LastError      string    `json:"last_error,omitempty"`
	LastExchangeAt time.Time `json:"last_exchange_at,omitempty"`
}

// Manager issues and caches tokens per provider. Concurrent callers for
// the same provider share one in-flight exchange.
type Manager struct {
	client     *http.Client
	timeout    time.Duration
	skew       time.Duration
	defaultTTL time.Duration
	now        func() time.Time

	creds map[string]Credential
	group singleflight.Group

	mu        sync.RWMutex
	tokens    map[string]Token
	lastErr   map[string]error
	lastTried map[string]time.Time
}

// NewManager creates a manager for the given credentials.
func NewManager(opts Options, creds ...Credential) *Manager {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RefreshSkew <= 0 {
		opts.RefreshSkew = DefaultRefreshSkew
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultLifetime
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Manager{
		client:     opts.HTTPClient,
		timeout:    opts.Timeout,
		skew:       opts.RefreshSkew,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
		creds:      make(map[string]Credential, len(creds)),
		tokens:     make(map[string]Token),
		lastErr:    make(map[string]error),
		lastTried:  make(map[string]time.Time),
	}
	for _, c := range creds {
		m.creds[c.ProviderID] = c
	}
	return m
}

// GetToken returns a usable token for providerID. A cached token still
// valid after the refresh skew is returned without a network call.
// Otherwise one exchange runs; failures return *AuthFailure and cache
// nothing. There is no retry. Under a request scope (WithRequestScope) the
// first failure for a provider is returned again without a new exchange.
func (m *Manager) GetToken(ctx context.Context, providerID string) (Token, error) {
	if af, failed := scopedFailure(ctx, providerID); failed {
		return Token{}, af
	}
	if tok, ok := m.cached(providerID); ok {
		metrics.TokenCacheHits.WithLabelValues(providerID).Inc()
		return tok, nil
	}

	cred, ok := m.creds[providerID]
	if !ok {
		af := &AuthFailure{ProviderID: providerID, Reason: "unknown provider"}
		MarkFailed(ctx, providerID, af)
		return Token{}, af
	}
	if cred.StaticToken != "" {
		tok := Token{
			ProviderID:  providerID,
			AccessToken: cred.StaticToken,
			TokenType:   "Bearer",
			IssuedAt:    m.now(),
			Static:      true,
		}
		m.store(tok)
		return tok, nil
	}

	// The exchange outlives any single caller so a cancelled request does
	// not fail the others waiting on it.
	ch := m.group.DoChan(providerID, func() (interface{}, error) {
		exCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
		defer cancel()
		return m.exchange(exCtx, cred)
	})

	select {
	case <-ctx.Done():
		return Token{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			MarkFailed(ctx, providerID, res.Err)
			return Token{}, res.Err
		}
		tok, _ := res.Val.(Token)
		return tok, nil
	}
}

// Invalidate discards the cached token for providerID. Data clients call
// it after a 401 or 403.
func (m *Manager) Invalidate(providerID string) {
	m.mu.Lock()
	tok, ok := m.tokens[providerID]
	if ok && !tok.Static {
		delete(m.tokens, providerID)
	}
	m.mu.Unlock()
	if ok && !tok.Static {
		logging.Debug().Str("provider", providerID).Msg("Token invalidated")
	}
}

// Configured reports whether credentials exist for providerID.
func (m *Manager) Configured(providerID string) bool {
	c, ok := m.creds[providerID]
	return ok && (c.StaticToken != "" || c.HasPassword())
}

// Status returns a redacted snapshot for providerID.
func (m *Manager) Status(providerID string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cred := m.creds[providerID]
	st := Status{
		ProviderID:     providerID,
		Configured:     cred.StaticToken != "" || cred.HasPassword(),
		Static:         cred.StaticToken != "",
		LastExchangeAt: m.lastTried[providerID],
	}
	if tok, ok := m.tokens[providerID]; ok && tok.ValidAt(m.now(), m.skew) {
		st.Cached = true
		st.ExpiresAt = tok.ExpiresAt
		st.Preview = logging.MaskSecret(tok.AccessToken, 12)
	}
	if err := m.lastErr[providerID]; err != nil {
		st.LastError = err.Error()
	}
	return st
}

func (m *Manager) cached(providerID string) (Token, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tok, ok := m.tokens[providerID]
	if !ok || !tok.ValidAt(m.now(), m.skew) {
		return Token{}, false
	}
	return tok, true
}

func (m *Manager) store(tok Token) {
	m.mu.Lock()
	m.tokens[tok.ProviderID] = tok
	m.mu.Unlock()
}

// exchange performs the password grant and caches the result on success.
func (m *Manager) exchange(ctx context.Context, cred Credential) (Token, error) {
	// A waiter may have been released by a concurrent exchange that just
	// finished; reuse its token.
	if tok, ok := m.cached(cred.ProviderID); ok {
		return tok, nil
	}

	tok, err := m.passwordGrant(ctx, cred)
	metrics.RecordTokenExchange(cred.ProviderID, err)

	m.mu.Lock()
	m.lastTried[cred.ProviderID] = m.now()
	if err != nil {
		m.lastErr[cred.ProviderID] = err
		delete(m.tokens, cred.ProviderID)
	} else {
		delete(m.lastErr, cred.ProviderID)
		m.tokens[cred.ProviderID] = tok
	}
	m.mu.Unlock()

	if err != nil {
		var af *AuthFailure
		status := 0
		if errors.As(err, &af) {
			status = af.Status
		}
		logging.Warn().Str("provider", cred.ProviderID).Int("status", status).Err(err).Msg("Token exchange failed")
		return Token{}, err
	}

	logging.Debug().
		Str("provider", cred.ProviderID).
		Time("expires_at", tok.ExpiresAt).
		Str("token_preview", logging.MaskSecret(tok.AccessToken, 12)).
		Msg("Token issued")
	return tok, nil
}

func (m *Manager) passwordGrant(ctx context.Context, cred Credential) (Token, error) {
	fail := func(status int, reason string, err error) (Token, error) {
		return Token{}, &AuthFailure{ProviderID: cred.ProviderID, Status: status, Reason: reason, Err: err}
	}

	if !cred.HasPassword() {
		return fail(0, "missing credentials", nil)
	}
	if cred.TokenURL == "" {
		return fail(0, "missing token endpoint", nil)
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", cred.ClientID)
	form.Set("username", cred.Username)
	form.Set("password", cred.Password)
	if cred.Scope != "" {
		form.Set("scope", cred.Scope)
	}
	switch {
	case cred.TOTPSecret != "":
		code, err := TOTP(cred.TOTPSecret, m.now())
		if err != nil {
			return fail(0, "invalid totp secret", err)
		}
		form.Set("totp", code)
	case cred.TOTPCode != "":
		form.Set("totp", cred.TOTPCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cred.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fail(0, "build request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	issuedAt := m.now()
	resp, err := m.client.Do(req)
	if err != nil {
		return fail(0, "identity endpoint unreachable", tier.NewUpstreamError(0, err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodySize))
	if err != nil {
		return fail(resp.StatusCode, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, "identity endpoint rejected credentials", errors.New(oauthError(body)))
	}

	var payload oidc.AccessTokenResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return fail(resp.StatusCode, "malformed token response", err)
	}
	if payload.AccessToken == "" {
		return fail(resp.StatusCode, "token response has no access_token", nil)
	}

	return Token{
		ProviderID:   cred.ProviderID,
		AccessToken:  payload.AccessToken,
		TokenType:    payload.TokenType,
		RefreshToken: payload.RefreshToken,
		IssuedAt:     issuedAt,
		ExpiresAt:    m.expiry(issuedAt, payload.ExpiresIn, payload.AccessToken),
	}, nil
}

// expiry prefers expires_in, then the JWT exp claim, then the default
// lifetime.
func (m *Manager) expiry(issuedAt time.Time, expiresIn uint64, accessToken string) time.Time {
	if expiresIn > 0 {
		return issuedAt.Add(time.Duration(expiresIn) * time.Second)
	}
	if exp, ok := jwtExpiry(accessToken); ok {
		return exp
	}
	return issuedAt.Add(m.defaultTTL)
}

// jwtExpiry reads the exp claim without verifying the signature; the token
// is only forwarded, never trusted locally.
func jwtExpiry(raw string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// oauthError extracts the OAuth2 error fields from a failure body without
// echoing anything else.
func oauthError(body []byte) string {
	var e struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &e); err != nil || e.Error == "" {
		return "no error detail"
	}
	if e.Description != "" {
		return fmt.Sprintf("%s: %s", e.Error, e.Description)
	}
	return e.Error
}
