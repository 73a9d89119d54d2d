// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package metrics defines the Prometheus instruments exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Tier ladder metrics
	TierAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_tier_attempts_total",
			Help: "Total number of tier attempts by outcome",
		},
		[]string{"domain", "tier", "outcome"},
	)

	TierDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tidegate_tier_duration_seconds",
			Help:    "Duration of tier attempts in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 8, 10},
		},
		[]string{"domain", "tier"},
	)

	TierWins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_tier_wins_total",
			Help: "Total number of requests answered by each tier",
		},
		[]string{"domain", "tier"},
	)

	// Token manager metrics
	TokenExchanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_token_exchanges_total",
			Help: "Total number of credential exchanges with identity providers",
		},
		[]string{"provider", "result"}, // result: "success", "failure"
	)

	TokenCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_token_cache_hits_total",
			Help: "Total number of token requests served from cache",
		},
		[]string{"provider"},
	)

	// Tile gateway metrics
	TileCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidegate_tile_cache_hits_total",
			Help: "Total number of tile cache hits",
		},
	)

	TileCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidegate_tile_cache_misses_total",
			Help: "Total number of tile cache misses",
		},
	)

	TileResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_tile_responses_total",
			Help: "Total number of tiles served by source",
		},
		[]string{"source"}, // "upstream", "cache", "fallback"
	)

	StyleGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_style_generations_total",
			Help: "Total number of style handle generation calls",
		},
		[]string{"result"},
	)

	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tidegate_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tidegate_api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tidegate_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breakers",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tidegate_circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Attempt stream metrics
	AttemptEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tidegate_attempt_events_dropped_total",
			Help: "Total number of attempt events that could not be published",
		},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tidegate_websocket_connections",
			Help: "Current number of attempt stream subscribers",
		},
	)
)

// RecordTierAttempt records one tier attempt.
func RecordTierAttempt(domain, tier, outcome string, duration time.Duration) {
	TierAttempts.WithLabelValues(domain, tier, outcome).Inc()
	TierDuration.WithLabelValues(domain, tier).Observe(duration.Seconds())
}

// RecordTierWin records the tier that answered a request.
func RecordTierWin(domain, tier string) {
	TierWins.WithLabelValues(domain, tier).Inc()
}

// RecordTokenExchange records a credential exchange result.
func RecordTokenExchange(provider string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	TokenExchanges.WithLabelValues(provider, result).Inc()
}

// RecordTileServed records which source produced a tile.
func RecordTileServed(source string) {
	TileResponses.WithLabelValues(source).Inc()
}

// RecordAPIRequest records API request metrics.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements active request counter.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
