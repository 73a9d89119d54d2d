// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateRegion(); err != nil {
		return err
	}
	if err := c.validateTiers(); err != nil {
		return err
	}
	if err := c.validateCopernicus(); err != nil {
		return err
	}
	if err := c.validateGFW(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateSupervisor()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive, got %v", c.Server.ShutdownTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitRequests)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %v", c.Security.RateLimitWindow)
	}
	if c.Security.AdminKeyHash != "" && !strings.HasPrefix(c.Security.AdminKeyHash, "$2") {
		return fmt.Errorf("ADMIN_KEY_HASH must be a bcrypt hash")
	}
	return nil
}

func (c *Config) validateRegion() error {
	r := c.Region
	if r.MinLat < -90 || r.MaxLat > 90 || r.MinLat > r.MaxLat {
		return fmt.Errorf("region latitude bounds invalid: min=%v max=%v", r.MinLat, r.MaxLat)
	}
	if r.MinLon < -180 || r.MaxLon > 180 || r.MinLon > r.MaxLon {
		return fmt.Errorf("region longitude bounds invalid: min=%v max=%v", r.MinLon, r.MaxLon)
	}
	if r.AreaKm2 <= 0 {
		return fmt.Errorf("REGION_AREA_KM2 must be positive, got %v", r.AreaKm2)
	}
	return nil
}

func (c *Config) validateTiers() error {
	t := c.Tiers
	if t.Mode != TierModeSequential && t.Mode != TierModeRace {
		return fmt.Errorf("TIER_MODE must be %q or %q, got %q", TierModeSequential, TierModeRace, t.Mode)
	}
	for name, d := range map[string]time.Duration{
		"TIER_TIMEOUT":  t.Timeout,
		"TOKEN_TIMEOUT": t.TokenTimeout,
		"TILE_TIMEOUT":  t.TileTimeout,
	} {
		if d <= 0 || d > 2*time.Minute {
			return fmt.Errorf("%s must be between 0 and 2m, got %v", name, d)
		}
	}
	if t.BreakerEnabled && (t.BreakerFailureRatio <= 0 || t.BreakerFailureRatio > 1) {
		return fmt.Errorf("breaker failure ratio must be in (0,1], got %v", t.BreakerFailureRatio)
	}
	if t.RequestsPerSecond < 0 {
		return fmt.Errorf("UPSTREAM_RPS must not be negative, got %v", t.RequestsPerSecond)
	}
	return nil
}

func (c *Config) validateCopernicus() error {
	cp := c.Copernicus
	for field, raw := range map[string]string{
		"COPERNICUS_TOKEN_URL":    cp.TokenURL,
		"COPERNICUS_USERINFO_URL": cp.UserinfoURL,
		"COPERNICUS_STAC_URL":     cp.STACURL,
		"COPERNICUS_ODATA_URL":    cp.ODataURL,
	} {
		if err := validateEndpointURL(raw, field); err != nil {
			return err
		}
	}
	if (cp.Username == "") != (cp.Password == "") {
		return fmt.Errorf("COPERNICUS_USERNAME and COPERNICUS_PASSWORD must be set together")
	}
	if cp.LookbackDays < 1 {
		return fmt.Errorf("COPERNICUS_LOOKBACK_DAYS must be at least 1, got %d", cp.LookbackDays)
	}
	if cp.DefaultTokenTTL <= cp.RefreshSkew {
		return fmt.Errorf("default token TTL (%v) must exceed refresh skew (%v)", cp.DefaultTokenTTL, cp.RefreshSkew)
	}
	return nil
}

func (c *Config) validateGFW() error {
	if err := validateEndpointURL(c.GFW.APIURL, "GFW_API_URL"); err != nil {
		return err
	}
	if c.GFW.ProxyURL != "" {
		if err := validateHTTPURL(c.GFW.ProxyURL, "GFW_PROXY_URL"); err != nil {
			return err
		}
	}
	if c.GFW.WindowHours < 1 {
		return fmt.Errorf("gfw window hours must be at least 1, got %d", c.GFW.WindowHours)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.BaseURL == "" {
		return nil
	}
	return validateHTTPURL(c.Snapshot.BaseURL, "FRONTEND_BASE")
}

func (c *Config) validateCache() error {
	if c.Cache.StyleTTL <= 0 || c.Cache.TileTTL <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}
	if c.Cache.TileTTL > time.Hour {
		return fmt.Errorf("TILE_CACHE_TTL must not exceed 1h, got %v", c.Cache.TileTTL)
	}
	if c.Cache.JanitorInterval <= 0 {
		return fmt.Errorf("CACHE_JANITOR_INTERVAL must be positive, got %v", c.Cache.JanitorInterval)
	}
	return nil
}

func (c *Config) validateSupervisor() error {
	s := c.Supervisor
	if s.FailureThreshold < 1 {
		return fmt.Errorf("SUPERVISOR_FAILURE_THRESHOLD must be at least 1, got %v", s.FailureThreshold)
	}
	if s.FailureDecay <= 0 || s.FailureBackoff <= 0 {
		return fmt.Errorf("supervisor failure decay and backoff must be positive")
	}
	return nil
}
