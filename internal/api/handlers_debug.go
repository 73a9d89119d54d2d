// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"net/http"
	"strconv"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
	ws "github.com/tomtom215/tidegate/internal/websocket"
)

const (
	probeDays           = 2
	defaultAttemptLimit = 100
	maxAttemptLimit     = 1000
)

// TokenStatusResponse is the body of /api/copernicus/token-status.
type TokenStatusResponse struct {
	Grant     string                   `json:"grant"`
	GrantErr  string                   `json:"grant_error,omitempty"`
	Token     token.Status             `json:"token"`
	UserInfo  *upstream.UserInfoStatus `json:"userinfo,omitempty"`
	UserError string                   `json:"userinfo_error,omitempty"`
}

// TokenStatus exercises the Copernicus grant and reports the redacted
// token state plus what the identity provider says about it.
//
// @Router /api/copernicus/token-status [get]
func (h *Handler) TokenStatus(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Tokens == nil || h.deps.Copernicus == nil {
		rw.ServiceUnavailable("copernicus diagnostics not configured")
		return
	}

	resp := TokenStatusResponse{Grant: "ok"}
	if _, err := h.deps.Tokens.GetToken(r.Context(), upstream.ProviderCopernicus); err != nil {
		resp.Grant = "failed"
		resp.GrantErr = err.Error()
	} else if info, err := h.deps.Copernicus.UserInfo(r.Context()); err != nil {
		resp.UserError = err.Error()
	} else {
		resp.UserInfo = &info
	}
	resp.Token = h.deps.Tokens.Status(upstream.ProviderCopernicus)
	rw.Success(resp)
}

// Ping asks the Copernicus catalog for one product.
//
// @Router /api/copernicus/ping [get]
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Copernicus == nil {
		rw.ServiceUnavailable("copernicus diagnostics not configured")
		return
	}
	h.writeProbe(rw, r, "ping")(h.deps.Copernicus.Ping(r.Context()))
}

// Probe runs the catalog query over the last two days.
//
// @Router /api/copernicus/probe [get]
func (h *Handler) Probe(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Copernicus == nil {
		rw.ServiceUnavailable("copernicus diagnostics not configured")
		return
	}
	bbox, err := h.parseBBox(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	h.writeProbe(rw, r, "probe")(h.deps.Copernicus.ProbeCatalog(r.Context(), bbox, probeDays))
}

// STACProbe runs a one-item STAC search over the last two days.
//
// @Router /api/copernicus/stac-probe [get]
func (h *Handler) STACProbe(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Copernicus == nil {
		rw.ServiceUnavailable("copernicus diagnostics not configured")
		return
	}
	bbox, err := h.parseBBox(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	h.writeProbe(rw, r, "stac-probe")(h.deps.Copernicus.ProbeSTAC(r.Context(), bbox, probeDays))
}

// writeProbe returns a sink for a probe result. Transport and token
// failures are reported as 502 with the error text.
func (h *Handler) writeProbe(rw *ResponseWriter, r *http.Request, name string) func(upstream.Probe, error) {
	return func(p upstream.Probe, err error) {
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Str("probe", name).Msg("copernicus probe failed")
			rw.Error(http.StatusBadGateway, ErrCodeUpstreamFailed, err.Error())
			return
		}
		rw.Success(p)
	}
}

// GFWStatusResponse is the body of /api/gfw/status.
type GFWStatusResponse struct {
	TokenConfigured bool              `json:"token_configured"`
	ProxyConfigured bool              `json:"proxy_configured"`
	APIURL          string            `json:"api_url"`
	PresenceDataset string            `json:"presence_dataset"`
	ReportDataset   string            `json:"report_dataset"`
	TileDatasets    []string          `json:"tile_datasets"`
	Breakers        map[string]string `json:"breakers,omitempty"`
}

// GFWStatus reports GFW configuration without touching the network.
//
// @Router /api/gfw/status [get]
func (h *Handler) GFWStatus(w http.ResponseWriter, r *http.Request) {
	g := h.config.GFW
	resp := GFWStatusResponse{
		ProxyConfigured: g.ProxyURL != "",
		APIURL:          g.APIURL,
		PresenceDataset: g.PresenceDataset,
		ReportDataset:   g.ReportDataset,
		TileDatasets:    g.TileDatasets,
	}
	if h.deps.Tokens != nil {
		resp.TokenConfigured = h.deps.Tokens.Configured(upstream.ProviderGFW)
	}
	if h.deps.Breakers != nil {
		resp.Breakers = h.deps.Breakers.BreakerStates()
	}
	NewResponseWriter(w, r).Success(resp)
}

// AttemptsResponse is the body of /debug/attempts.
type AttemptsResponse struct {
	Total    uint64      `json:"total"`
	Attempts interface{} `json:"attempts"`
}

// Attempts returns recent tier attempts, newest first.
//
// @Router /debug/attempts [get]
func (h *Handler) Attempts(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.deps.Attempts == nil {
		rw.ServiceUnavailable("attempt log not configured")
		return
	}
	limit := defaultAttemptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAttemptLimit {
			rw.BadRequest("limit must be between 1 and " + strconv.Itoa(maxAttemptLimit))
			return
		}
		limit = n
	}
	rw.Success(AttemptsResponse{
		Total:    h.deps.Attempts.Total(),
		Attempts: h.deps.Attempts.Recent(limit),
	})
}

// AttemptStream upgrades to a websocket that receives every tier attempt
// as it is recorded.
//
// @Router /debug/attempts/stream [get]
func (h *Handler) AttemptStream(w http.ResponseWriter, r *http.Request) {
	if h.deps.Hub == nil {
		NewResponseWriter(w, r).ServiceUnavailable("attempt stream not configured")
		return
	}
	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logging.Ctx(r.Context()).Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := ws.NewClient(h.deps.Hub, conn)
	h.deps.Hub.Register <- client
	client.Start()
}
