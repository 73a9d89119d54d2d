// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/tidegate/internal/config"
	"github.com/tomtom215/tidegate/internal/middleware"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	config        *config.Config
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	return &Router{
		handler:       handler,
		config:        cfg,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFrom(cfg.Security)),
	}
}

// SetupChi configures all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered

	// ========================
	// Health and Metrics
	// ========================
	r.Get("/health", router.handler.Health)
	r.Get("/health/live", router.handler.HealthLive)
	r.Handle("/metrics", promhttp.Handler())

	// ========================
	// Data Endpoints
	// ========================
	// Legacy paths served to the dashboard; responses are flat JSON.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())

		r.Get("/realtime/data", router.handler.RealtimeData)
		r.Get("/api/realtime/data", router.handler.RealtimeData)
		r.Get("/api/gfw/vessel-presence", router.handler.VesselPresence)

		r.Get("/gfw/4wings/report/{dataset}", router.handler.Report)
		r.Get("/api/gfw/4wings/report", router.handler.Report)

		r.Get("/gfw/4wings/tile/generate-png", router.handler.GeneratePNG)
		r.Get("/gfw/4wings/tile/heatmap/{dataset}/{z}/{x}/{y}.png", router.handler.Tile)
		r.Get("/gfw/4wings/tile/heatmap/{z}/{x}/{y}", router.handler.TileDefault)
	})

	// ========================
	// Operator Diagnostics
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.AdminKey(router.config.Security.AdminKeyHash))

		r.Get("/api/copernicus/token-status", router.handler.TokenStatus)
		r.Get("/api/copernicus/ping", router.handler.Ping)
		r.Get("/api/copernicus/probe", router.handler.Probe)
		r.Get("/api/copernicus/stac-probe", router.handler.STACProbe)
		r.Get("/api/gfw/status", router.handler.GFWStatus)

		r.Get("/debug/attempts", router.handler.Attempts)
		r.Get("/debug/attempts/stream", router.handler.AttemptStream)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("route not found")
	})

	return r
}
