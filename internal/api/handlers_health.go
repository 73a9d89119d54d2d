// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tidegate/internal/upstream"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// HealthStatus is the body of /health.
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Uptime    float64           `json:"uptime"`
	Providers map[string]bool   `json:"providers"`
	Breakers  map[string]string `json:"breakers,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// Health reports gateway status. The gateway always answers data requests,
// so an open breaker only marks it degraded.
//
// @Summary Get gateway health
// @Tags Core
// @Produce json
// @Success 200 {object} HealthStatus
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "healthy",
		Version:   Version,
		Uptime:    time.Since(h.startTime).Seconds(),
		Providers: map[string]bool{},
		Timestamp: h.now().UTC(),
	}
	if h.deps.Tokens != nil {
		for _, p := range []string{upstream.ProviderCopernicus, upstream.ProviderGFW} {
			health.Providers[p] = h.deps.Tokens.Configured(p)
		}
	}
	if h.deps.Breakers != nil {
		health.Breakers = h.deps.Breakers.BreakerStates()
		for _, state := range health.Breakers {
			if state == "open" {
				health.Status = "degraded"
				break
			}
		}
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, health)
}

// HealthLive answers liveness probes.
//
// @Router /health/live [get]
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}
