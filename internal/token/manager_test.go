// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/tidegate/internal/tier"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type identityServer struct {
	*httptest.Server
	calls atomic.Int32
	forms chan map[string]string
}

func newIdentityServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *identityServer {
	t.Helper()
	s := &identityServer{forms: make(chan map[string]string, 16)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		if err := r.ParseForm(); err == nil {
			form := map[string]string{}
			for k := range r.PostForm {
				form[k] = r.PostForm.Get(k)
			}
			select {
			case s.forms <- form:
			default:
			}
		}
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func tokenJSON(w http.ResponseWriter, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func passwordCred(url string) Credential {
	return Credential{
		ProviderID: "copernicus",
		TokenURL:   url,
		ClientID:   "cdse-public",
		Scope:      "openid",
		Username:   "analyst@example.org",
		Password:   "s3cret",
	}
}

func TestGetToken_CachedUntilExpiry(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		tokenJSON(w, map[string]interface{}{"access_token": "tok-1", "token_type": "Bearer", "expires_in": 600})
	})
	clk := &clock{now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	m := NewManager(Options{Now: clk.Now}, passwordCred(srv.URL))

	first, err := m.GetToken(context.Background(), "copernicus")
	if err != nil {
		t.Fatalf("GetToken() = %v", err)
	}
	if first.AccessToken != "tok-1" {
		t.Errorf("AccessToken = %q", first.AccessToken)
	}
	if want := clk.Now().Add(600 * time.Second); !first.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", first.ExpiresAt, want)
	}

	clk.Advance(9 * time.Minute)
	second, err := m.GetToken(context.Background(), "copernicus")
	if err != nil {
		t.Fatalf("GetToken() = %v", err)
	}
	if second != first || srv.calls.Load() != 1 {
		t.Errorf("expected cached token without a second exchange, calls=%d", srv.calls.Load())
	}

	// Inside the 30s refresh skew the token counts as expired.
	clk.Advance(31 * time.Second)
	if _, err := m.GetToken(context.Background(), "copernicus"); err != nil {
		t.Fatalf("GetToken() = %v", err)
	}
	if srv.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 after expiry", srv.calls.Load())
	}
}

func TestGetToken_SendsPasswordGrant(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		tokenJSON(w, map[string]interface{}{"access_token": "tok", "expires_in": 300})
	})
	cred := passwordCred(srv.URL)
	cred.TOTPCode = "123456"
	m := NewManager(Options{}, cred)

	if _, err := m.GetToken(context.Background(), "copernicus"); err != nil {
		t.Fatalf("GetToken() = %v", err)
	}
	form := <-srv.forms
	want := map[string]string{
		"grant_type": "password",
		"client_id":  "cdse-public",
		"username":   "analyst@example.org",
		"password":   "s3cret",
		"scope":      "openid",
		"totp":       "123456",
	}
	for k, v := range want {
		if form[k] != v {
			t.Errorf("form[%s] = %q, want %q", k, form[k], v)
		}
	}
}

func TestGetToken_Unauthorized(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid user credentials"}`))
	})
	m := NewManager(Options{}, passwordCred(srv.URL))

	for i := 1; i <= 2; i++ {
		_, err := m.GetToken(context.Background(), "copernicus")
		var af *AuthFailure
		if !errors.As(err, &af) {
			t.Fatalf("err = %v, want *AuthFailure", err)
		}
		if af.Status != http.StatusUnauthorized {
			t.Errorf("Status = %d", af.Status)
		}
		if !errors.Is(err, tier.ErrAuthFailure) {
			t.Error("AuthFailure should match tier.ErrAuthFailure")
		}
		if tier.Classify(err) != tier.OutcomeAuthFailure {
			t.Errorf("Classify() = %q", tier.Classify(err))
		}
		if strings.Contains(err.Error(), "s3cret") {
			t.Error("error must not leak the password")
		}
		// Nothing cached: every call reaches the identity provider.
		if got := srv.calls.Load(); got != int32(i) {
			t.Errorf("calls = %d, want %d", got, i)
		}
	}

	if st := m.Status("copernicus"); st.Cached || st.LastError == "" {
		t.Errorf("Status() = %+v", st)
	}
}

func TestGetToken_FailureModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
		reason  string
	}{
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("<html>")) },
			reason:  "malformed token response",
		},
		{
			name: "empty access token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				tokenJSON(w, map[string]interface{}{"token_type": "Bearer"})
			},
			reason: "token response has no access_token",
		},
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			reason:  "identity endpoint rejected credentials",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := newIdentityServer(t, tt.handler)
			m := NewManager(Options{}, passwordCred(srv.URL))
			_, err := m.GetToken(context.Background(), "copernicus")
			var af *AuthFailure
			if !errors.As(err, &af) {
				t.Fatalf("err = %v, want *AuthFailure", err)
			}
			if af.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", af.Reason, tt.reason)
			}
		})
	}
}

func TestGetToken_MissingCredentials(t *testing.T) {
	t.Parallel()

	m := NewManager(Options{}, Credential{ProviderID: "copernicus", TokenURL: "http://127.0.0.1:1"})
	_, err := m.GetToken(context.Background(), "copernicus")
	if !errors.Is(err, tier.ErrAuthFailure) {
		t.Fatalf("err = %v", err)
	}
	if m.Configured("copernicus") {
		t.Error("Configured() should be false without credentials")
	}

	if _, err := m.GetToken(context.Background(), "unknown"); !errors.Is(err, tier.ErrAuthFailure) {
		t.Errorf("unknown provider err = %v", err)
	}
}

func TestGetToken_StaticTokenSkipsExchange(t *testing.T) {
	t.Parallel()

	m := NewManager(Options{}, Credential{ProviderID: "gfw", StaticToken: "static-key"})
	tok, err := m.GetToken(context.Background(), "gfw")
	if err != nil {
		t.Fatalf("GetToken() = %v", err)
	}
	if !tok.Static || tok.AuthorizationHeader() != "Bearer static-key" {
		t.Errorf("token = %+v", tok)
	}
	m.Invalidate("gfw")
	if _, err := m.GetToken(context.Background(), "gfw"); err != nil {
		t.Errorf("static token should survive Invalidate: %v", err)
	}
}

func TestGetToken_ConcurrentCallersShareExchange(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		tokenJSON(w, map[string]interface{}{"access_token": "shared", "expires_in": 300})
	})
	m := NewManager(Options{}, passwordCred(srv.URL))

	const callers = 20
	var wg sync.WaitGroup
	results := make(chan string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := m.GetToken(context.Background(), "copernicus")
			if err == nil {
				results <- tok.AccessToken
			}
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	n := 0
	for tok := range results {
		n++
		if tok != "shared" {
			t.Errorf("token = %q", tok)
		}
	}
	if n != callers {
		t.Errorf("%d callers got a token, want %d", n, callers)
	}
	if srv.calls.Load() != 1 {
		t.Errorf("identity calls = %d, want 1", srv.calls.Load())
	}
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		tokenJSON(w, map[string]interface{}{"access_token": "tok", "expires_in": 300})
	})
	m := NewManager(Options{}, passwordCred(srv.URL))

	_, _ = m.GetToken(context.Background(), "copernicus")
	m.Invalidate("copernicus")
	_, _ = m.GetToken(context.Background(), "copernicus")
	if srv.calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 after Invalidate", srv.calls.Load())
	}
}

func TestExpiryFallbacks(t *testing.T) {
	t.Parallel()

	issued := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	exp := issued.Add(17 * time.Minute)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "analyst",
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	m := NewManager(Options{DefaultTTL: 5 * time.Minute})

	tests := []struct {
		name      string
		expiresIn uint64
		token     string
		want      time.Time
	}{
		{"expires_in wins", 120, signed, issued.Add(2 * time.Minute)},
		{"jwt exp claim", 0, signed, exp},
		{"opaque token default", 0, "opaque-token", issued.Add(5 * time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := m.expiry(issued, tt.expiresIn, tt.token); !got.Equal(tt.want) {
				t.Errorf("expiry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusRedactsToken(t *testing.T) {
	t.Parallel()

	long := "eyJhbGciOiJSUzI1NiJ9.payload-section-long-enough.signature-part-xyz"
	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		tokenJSON(w, map[string]interface{}{"access_token": long, "expires_in": 300})
	})
	m := NewManager(Options{}, passwordCred(srv.URL))
	if _, err := m.GetToken(context.Background(), "copernicus"); err != nil {
		t.Fatal(err)
	}

	st := m.Status("copernicus")
	if !st.Cached || !st.Configured {
		t.Errorf("Status() = %+v", st)
	}
	if st.Preview == long || !strings.HasPrefix(st.Preview, long[:12]) || !strings.HasSuffix(st.Preview, long[len(long)-12:]) {
		t.Errorf("Preview = %q", st.Preview)
	}
}

func TestCredentialStringRedacts(t *testing.T) {
	t.Parallel()

	c := passwordCred("http://idp")
	if s := c.String(); strings.Contains(s, "s3cret") {
		t.Errorf("String() leaks password: %s", s)
	}
}

func TestGetToken_RequestScopeRemembersFailure(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	m := NewManager(Options{}, passwordCred(srv.URL))

	ctx := WithRequestScope(context.Background())
	if WithRequestScope(ctx) != ctx {
		t.Error("WithRequestScope should reuse an existing scope")
	}

	first, err1 := m.GetToken(ctx, "copernicus")
	_, err2 := m.GetToken(ctx, "copernicus")
	if err1 == nil || err2 == nil {
		t.Fatalf("errors = %v, %v; want both to fail (token %+v)", err1, err2, first)
	}
	if !errors.Is(err2, tier.ErrAuthFailure) {
		t.Errorf("scoped error = %v, want auth failure", err2)
	}
	if got := srv.calls.Load(); got != 1 {
		t.Errorf("identity calls within one scope = %d, want 1", got)
	}

	// A new request starts clean.
	_, _ = m.GetToken(WithRequestScope(context.Background()), "copernicus")
	if got := srv.calls.Load(); got != 2 {
		t.Errorf("identity calls after new scope = %d, want 2", got)
	}
}

func TestMarkFailed(t *testing.T) {
	t.Parallel()

	srv := newIdentityServer(t, func(w http.ResponseWriter, _ *http.Request) {
		tokenJSON(w, map[string]interface{}{"access_token": "tok", "expires_in": 300})
	})
	m := NewManager(Options{}, passwordCred(srv.URL))

	tests := []struct {
		name     string
		scoped   bool
		err      error
		wantFail bool
	}{
		{name: "auth failure in scope", scoped: true, err: &AuthFailure{ProviderID: "copernicus", Status: 403}, wantFail: true},
		{name: "other error in scope", scoped: true, err: errors.New("timeout"), wantFail: false},
		{name: "auth failure without scope", scoped: false, err: &AuthFailure{ProviderID: "copernicus", Status: 401}, wantFail: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			if tt.scoped {
				ctx = WithRequestScope(ctx)
			}
			MarkFailed(ctx, "copernicus", tt.err)
			_, err := m.GetToken(ctx, "copernicus")
			if (err != nil) != tt.wantFail {
				t.Errorf("GetToken() err = %v, wantFail %v", err, tt.wantFail)
			}
		})
	}
}
