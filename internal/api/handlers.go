// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/tidegate/internal/config"
	"github.com/tomtom215/tidegate/internal/events"
	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/tiles"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
	ws "github.com/tomtom215/tidegate/internal/websocket"
)

// OceanService resolves the ocean-data ladder.
type OceanService interface {
	Realtime(ctx context.Context, req models.DataRequest) models.AggregateResult
}

// ReportService resolves vessel presence and KPI ladders.
type ReportService interface {
	GetPresence(ctx context.Context, req models.DataRequest) models.Report
	GetReport(ctx context.Context, req models.KPIRequest) models.KPIReport
}

// TileService serves raster tiles and style handles.
type TileService interface {
	GetTile(ctx context.Context, req models.TileRequest) (models.TileRaster, error)
	Style(ctx context.Context, req models.TileRequest) tiles.StyleHandle
}

// CopernicusProbe runs the operator diagnostics against Copernicus.
type CopernicusProbe interface {
	Ping(ctx context.Context) (upstream.Probe, error)
	ProbeCatalog(ctx context.Context, bbox models.BoundingBox, days int) (upstream.Probe, error)
	ProbeSTAC(ctx context.Context, bbox models.BoundingBox, days int) (upstream.Probe, error)
	UserInfo(ctx context.Context) (upstream.UserInfoStatus, error)
}

// TokenStatus reports and exercises provider tokens.
type TokenStatus interface {
	GetToken(ctx context.Context, providerID string) (token.Token, error)
	Status(providerID string) token.Status
	Configured(providerID string) bool
}

// BreakerReporter reports circuit breaker states.
type BreakerReporter interface {
	BreakerStates() map[string]string
}

// Deps are the services behind the handlers. Nil operator dependencies
// make their endpoints answer 503.
type Deps struct {
	Ocean   OceanService
	Reports ReportService
	Tiles   TileService

	Copernicus CopernicusProbe
	Tokens     TokenStatus
	Breakers   BreakerReporter
	Attempts   *events.AttemptLog
	Hub        *ws.Hub
}

// Handler serves every route.
type Handler struct {
	deps      Deps
	config    *config.Config
	startTime time.Time
	now       func() time.Time
}

// NewHandler creates a handler.
func NewHandler(cfg *config.Config, deps Deps) *Handler {
	return &Handler{
		deps:      deps,
		config:    cfg,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// getUpgrader creates the websocket upgrader for the attempt stream.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin admits configured CORS origins. Non-browser
// clients without an Origin header are admitted; the route is already
// behind the admin key.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected: origin not allowed")
	return false
}

// defaultBBox returns the configured region as a bounding box.
func (h *Handler) defaultBBox() models.BoundingBox {
	r := h.config.Region
	return models.BoundingBox{MinLon: r.MinLon, MinLat: r.MinLat, MaxLon: r.MaxLon, MaxLat: r.MaxLat}
}
