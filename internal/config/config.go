// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package config loads Tidegate configuration from defaults, an optional YAML
// file and environment variables (in that order of precedence, lowest first).
//
// The provider credentials held here form the credential store: they are read
// once at startup, handed to the token manager and upstream clients, and never
// logged.
package config

import (
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Security   SecurityConfig   `koanf:"security"`
	Region     RegionConfig     `koanf:"region"`
	Tiers      TiersConfig      `koanf:"tiers"`
	Copernicus CopernicusConfig `koanf:"copernicus"`
	GFW        GFWConfig        `koanf:"gfw"`
	Snapshot   SnapshotConfig   `koanf:"snapshot"`
	Cache      CacheConfig      `koanf:"cache"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP server settings.
//
// Environment variables: HTTP_HOST, HTTP_PORT, SERVER_TIMEOUT, SHUTDOWN_TIMEOUT
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logging settings.
//
// Environment variables: LOG_LEVEL, LOG_FORMAT, LOG_CALLER
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SecurityConfig holds settings for the inbound HTTP surface.
//
// Environment variables:
//   - CORS_ORIGINS: comma-separated list of allowed dashboard origins
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//   - ADMIN_KEY_HASH: bcrypt hash guarding debug endpoints (empty = open)
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	AdminKeyHash      string        `koanf:"admin_key_hash"`
}

// RegionConfig is the default area of interest used when a request carries
// no bounding box. Defaults cover the Angolan exclusive economic zone.
//
// Environment variables: REGION_NAME, REGION_MIN_LON, REGION_MIN_LAT,
// REGION_MAX_LON, REGION_MAX_LAT, REGION_AREA_KM2
type RegionConfig struct {
	Name    string  `koanf:"name"`
	MinLon  float64 `koanf:"min_lon"`
	MinLat  float64 `koanf:"min_lat"`
	MaxLon  float64 `koanf:"max_lon"`
	MaxLat  float64 `koanf:"max_lat"`
	AreaKm2 float64 `koanf:"area_km2"`
}

// TiersConfig controls the fallback ladder.
//
// Mode is "sequential" (default) or "race". Sequential walks tiers one at a
// time and never spends quota on a lower tier once a higher one succeeds.
// Race starts all live tiers at once and cancels the losers.
//
// Environment variables: TIER_MODE, TIER_TIMEOUT, TOKEN_TIMEOUT, TILE_TIMEOUT,
// BREAKER_ENABLED, UPSTREAM_RPS, UPSTREAM_BURST
type TiersConfig struct {
	Mode         string        `koanf:"mode"`
	Timeout      time.Duration `koanf:"timeout"`
	TokenTimeout time.Duration `koanf:"token_timeout"`
	TileTimeout  time.Duration `koanf:"tile_timeout"`

	BreakerEnabled      bool          `koanf:"breaker_enabled"`
	BreakerMaxRequests  uint32        `koanf:"breaker_max_requests"`
	BreakerInterval     time.Duration `koanf:"breaker_interval"`
	BreakerTimeout      time.Duration `koanf:"breaker_timeout"`
	BreakerMinRequests  uint32        `koanf:"breaker_min_requests"`
	BreakerFailureRatio float64       `koanf:"breaker_failure_ratio"`

	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// CopernicusConfig holds Copernicus Data Space settings and credentials.
//
// Environment variables:
//   - COPERNICUS_USERNAME, COPERNICUS_PASSWORD: password-grant credentials
//   - COPERNICUS_TOKEN: static bearer token, skips the password grant
//   - COPERNICUS_TOTP_SECRET: base32 secret, one-time codes generated per grant
//   - COPERNICUS_TOTP: explicit one-time code, used when no secret is set
//   - COPERNICUS_TOKEN_URL, COPERNICUS_USERINFO_URL, COPERNICUS_STAC_URL,
//     COPERNICUS_ODATA_URL, COPERNICUS_CLIENT_ID
type CopernicusConfig struct {
	TokenURL    string `koanf:"token_url"`
	UserinfoURL string `koanf:"userinfo_url"`
	STACURL     string `koanf:"stac_url"`
	ODataURL    string `koanf:"odata_url"`
	ClientID    string `koanf:"client_id"`
	Scope       string `koanf:"scope"`

	Username    string `koanf:"username"`
	Password    string `koanf:"password"`
	StaticToken string `koanf:"static_token"`
	TOTPSecret  string `koanf:"totp_secret"`
	TOTPCode    string `koanf:"totp_code"`

	Collections     []string      `koanf:"collections"`
	LookbackDays    int           `koanf:"lookback_days"`
	SearchLimit     int           `koanf:"search_limit"`
	DefaultTokenTTL time.Duration `koanf:"default_token_ttl"`
	RefreshSkew     time.Duration `koanf:"refresh_skew"`
}

// GFWConfig holds Global Fishing Watch 4Wings settings.
//
// Environment variables: GFW_API_TOKEN, GFW_API_URL, GFW_PROXY_URL,
// GFW_PRESENCE_DATASET, GFW_REPORT_DATASET, GFW_TILE_DATASETS
type GFWConfig struct {
	APIURL          string   `koanf:"api_url"`
	ProxyURL        string   `koanf:"proxy_url"`
	APIToken        string   `koanf:"api_token"`
	PresenceDataset string   `koanf:"presence_dataset"`
	ReportDataset   string   `koanf:"report_dataset"`
	TileDatasets    []string `koanf:"tile_datasets"`
	WindowHours     int      `koanf:"window_hours"`
}

// SnapshotConfig points at the static content host serving last-known-good
// snapshots.
//
// Environment variables: FRONTEND_BASE, SNAPSHOT_OCEAN_PATH, SNAPSHOT_VESSEL_PATH
type SnapshotConfig struct {
	BaseURL    string `koanf:"base_url"`
	OceanPath  string `koanf:"ocean_path"`
	VesselPath string `koanf:"vessel_path"`
}

// CacheConfig holds TTLs for the component-owned caches.
//
// Environment variables: STYLE_CACHE_TTL, TILE_CACHE_TTL, CACHE_JANITOR_INTERVAL
type CacheConfig struct {
	StyleTTL        time.Duration `koanf:"style_ttl"`
	TileTTL         time.Duration `koanf:"tile_ttl"`
	JanitorInterval time.Duration `koanf:"janitor_interval"`
}

// SupervisorConfig tunes restart behaviour of supervised services.
//
// Environment variables: SUPERVISOR_FAILURE_THRESHOLD, SUPERVISOR_FAILURE_BACKOFF
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
}

// Load loads configuration from all sources.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
