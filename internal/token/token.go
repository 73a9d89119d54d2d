// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package token exchanges provider credentials for short-lived bearer tokens
// and caches them in memory until shortly before expiry.
//
// Tokens never leave the process. A restart forces re-authentication.
package token

import (
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/tier"
)

// Credential holds what a provider needs to issue a token. Either
// StaticToken or Username/Password must be set.
type Credential struct {
	ProviderID string
	TokenURL   string
	ClientID   string
	Scope      string

	Username    string
	Password    string
	StaticToken string

	// TOTPSecret is a base32 RFC 6238 secret. When empty, TOTPCode (a
	// one-time code supplied out of band) is sent as-is.
	TOTPSecret string
	TOTPCode   string
}

// HasPassword reports whether a password grant can be attempted.
func (c Credential) HasPassword() bool {
	return c.Username != "" && c.Password != ""
}

// String redacts secrets so a Credential is safe in log fields.
func (c Credential) String() string {
	return fmt.Sprintf("Credential{provider=%s user=%s password=%s static=%s}",
		c.ProviderID, c.Username, redact(c.Password), logging.MaskSecret(c.StaticToken, 4))
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

// Token is a bearer token issued for one provider.
type Token struct {
	ProviderID   string
	AccessToken  string
	TokenType    string
	RefreshToken string
	IssuedAt     time.Time
	ExpiresAt    time.Time

	// Static tokens come from configuration and never expire in-process.
	Static bool
}

// ValidAt reports whether the token can still be used at now, treating it
// as expired skew before its real expiry.
func (t Token) ValidAt(now time.Time, skew time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.Static {
		return true
	}
	return now.Add(skew).Before(t.ExpiresAt)
}

// AuthorizationHeader returns the value for the Authorization header.
func (t Token) AuthorizationHeader() string {
	typ := t.TokenType
	if typ == "" || strings.EqualFold(typ, "bearer") {
		typ = "Bearer"
	}
	return typ + " " + t.AccessToken
}

// AuthFailure is returned when no token could be obtained. It matches
// tier.ErrAuthFailure with errors.Is.
type AuthFailure struct {
	ProviderID string
	Status     int
	Reason     string
	Err        error
}

func (e *AuthFailure) Error() string {
	msg := fmt.Sprintf("auth failure for %s: %s", e.ProviderID, e.Reason)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes the underlying cause, if any.
func (e *AuthFailure) Unwrap() error { return e.Err }

// Is matches tier.ErrAuthFailure.
func (e *AuthFailure) Is(target error) bool { return target == tier.ErrAuthFailure }

// StatusCode returns the identity endpoint's HTTP status, or 0.
func (e *AuthFailure) StatusCode() int { return e.Status }
