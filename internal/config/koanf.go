// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tidegate/config.yaml",
	"/etc/tidegate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPathEnvVar overrides the .env file path.
const DotEnvPathEnvVar = "DOTENV_PATH"

// Tier modes.
const (
	TierModeSequential = "sequential"
	TierModeRace       = "race"
)

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8787,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 120,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Region: RegionConfig{
			Name:    "angola",
			MinLon:  11.5,
			MinLat:  -18.0,
			MaxLon:  17.5,
			MaxLat:  -4.2,
			AreaKm2: 120000,
		},
		Tiers: TiersConfig{
			Mode:                TierModeSequential,
			Timeout:             8 * time.Second,
			TokenTimeout:        10 * time.Second,
			TileTimeout:         10 * time.Second,
			BreakerEnabled:      true,
			BreakerMaxRequests:  3,
			BreakerInterval:     time.Minute,
			BreakerTimeout:      2 * time.Minute,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			RequestsPerSecond:   5,
			Burst:               10,
		},
		Copernicus: CopernicusConfig{
			TokenURL:        "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token",
			UserinfoURL:     "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/userinfo",
			STACURL:         "https://catalogue.dataspace.copernicus.eu/stac/search",
			ODataURL:        "https://catalogue.dataspace.copernicus.eu/odata/v1/Products",
			ClientID:        "cdse-public",
			Scope:           "openid",
			Collections:     []string{"SENTINEL-3", "SENTINEL-2"},
			LookbackDays:    7,
			SearchLimit:     20,
			DefaultTokenTTL: 5 * time.Minute,
			RefreshSkew:     30 * time.Second,
		},
		GFW: GFWConfig{
			APIURL:          "https://gateway.api.globalfishingwatch.org/v3",
			PresenceDataset: "public-global-fishing-activity:v20231026",
			ReportDataset:   "public-global-ais-vessel-presence:v3.0",
			TileDatasets: []string{
				"public-global-ais-vessel-presence:v3.0",
				"public-global-fishing-activity:v20231026",
			},
			WindowHours: 24,
		},
		Snapshot: SnapshotConfig{
			OceanPath:  "/copernicus_authenticated_angola.json",
			VesselPath: "/data/gfw-angola-vessels-cache.json",
		},
		Cache: CacheConfig{
			StyleTTL:        time.Hour,
			TileTTL:         5 * time.Minute,
			JanitorInterval: time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Optional YAML config file
//  3. Environment variables (a .env file is merged into the process
//     environment first, without overriding variables already set)
func LoadWithKoanf() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadDotEnv merges a .env file into the environment when one exists.
func loadDotEnv() error {
	path := os.Getenv(DotEnvPathEnvVar)
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"copernicus.collections",
	"gfw.tile_datasets",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Names follow the variables the dashboard deployment already exports.
var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"server_timeout":   "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"admin_key_hash":      "security.admin_key_hash",

	"region_name":     "region.name",
	"region_min_lon":  "region.min_lon",
	"region_min_lat":  "region.min_lat",
	"region_max_lon":  "region.max_lon",
	"region_max_lat":  "region.max_lat",
	"region_area_km2": "region.area_km2",

	"tier_mode":       "tiers.mode",
	"tier_timeout":    "tiers.timeout",
	"token_timeout":   "tiers.token_timeout",
	"tile_timeout":    "tiers.tile_timeout",
	"breaker_enabled": "tiers.breaker_enabled",
	"upstream_rps":    "tiers.requests_per_second",
	"upstream_burst":  "tiers.burst",

	"copernicus_token_url":     "copernicus.token_url",
	"copernicus_userinfo_url":  "copernicus.userinfo_url",
	"copernicus_stac_url":      "copernicus.stac_url",
	"copernicus_odata_url":     "copernicus.odata_url",
	"copernicus_client_id":     "copernicus.client_id",
	"copernicus_username":      "copernicus.username",
	"copernicus_password":      "copernicus.password",
	"copernicus_token":         "copernicus.static_token",
	"copernicus_totp_secret":   "copernicus.totp_secret",
	"copernicus_totp":          "copernicus.totp_code",
	"copernicus_collections":   "copernicus.collections",
	"copernicus_lookback_days": "copernicus.lookback_days",

	"gfw_api_token":        "gfw.api_token",
	"gfw_api_url":          "gfw.api_url",
	"gfw_proxy_url":        "gfw.proxy_url",
	"gfw_presence_dataset": "gfw.presence_dataset",
	"gfw_report_dataset":   "gfw.report_dataset",
	"gfw_tile_datasets":    "gfw.tile_datasets",

	"frontend_base":        "snapshot.base_url",
	"snapshot_ocean_path":  "snapshot.ocean_path",
	"snapshot_vessel_path": "snapshot.vessel_path",

	"style_cache_ttl":        "cache.style_ttl",
	"tile_cache_ttl":         "cache.tile_ttl",
	"cache_janitor_interval": "cache.janitor_interval",

	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
}

// envTransformFunc transforms environment variable names to koanf paths.
// Unmapped variables return "" so they are skipped.
//
//	COPERNICUS_USERNAME -> copernicus.username
//	GFW_API_TOKEN       -> gfw.api_token
//	FRONTEND_BASE       -> snapshot.base_url
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
