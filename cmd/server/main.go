// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tidegate/internal/api"
	"github.com/tomtom215/tidegate/internal/config"
	"github.com/tomtom215/tidegate/internal/events"
	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/ocean"
	"github.com/tomtom215/tidegate/internal/report"
	"github.com/tomtom215/tidegate/internal/supervisor"
	"github.com/tomtom215/tidegate/internal/supervisor/services"
	"github.com/tomtom215/tidegate/internal/synthetic"
	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/tiles"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
	ws "github.com/tomtom215/tidegate/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", api.Version).
		Str("region", cfg.Region.Name).
		Str("tier_mode", cfg.Tiers.Mode).
		Msg("Starting Tidegate")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	httpClient := &http.Client{}

	tokens := token.NewManager(token.Options{
		HTTPClient:  httpClient,
		Timeout:     cfg.Tiers.TokenTimeout,
		RefreshSkew: cfg.Copernicus.RefreshSkew,
		DefaultTTL:  cfg.Copernicus.DefaultTokenTTL,
	},
		token.Credential{
			ProviderID:  upstream.ProviderCopernicus,
			TokenURL:    cfg.Copernicus.TokenURL,
			ClientID:    cfg.Copernicus.ClientID,
			Scope:       cfg.Copernicus.Scope,
			Username:    cfg.Copernicus.Username,
			Password:    cfg.Copernicus.Password,
			StaticToken: cfg.Copernicus.StaticToken,
			TOTPSecret:  cfg.Copernicus.TOTPSecret,
			TOTPCode:    cfg.Copernicus.TOTPCode,
		},
		token.Credential{
			ProviderID:  upstream.ProviderGFW,
			StaticToken: cfg.GFW.APIToken,
		},
	)

	newClient := func(name string) *upstream.Client {
		return upstream.NewClient(name, upstream.ClientOptions{
			HTTPClient:        httpClient,
			RequestsPerSecond: cfg.Tiers.RequestsPerSecond,
			Burst:             cfg.Tiers.Burst,
		})
	}

	copernicus := upstream.NewCopernicus(newClient(upstream.ProviderCopernicus), tokens, upstream.CopernicusOptions{
		STACURL:     cfg.Copernicus.STACURL,
		ODataURL:    cfg.Copernicus.ODataURL,
		UserinfoURL: cfg.Copernicus.UserinfoURL,
		Collections: cfg.Copernicus.Collections,
		SearchLimit: cfg.Copernicus.SearchLimit,
	})
	gfw := upstream.NewGFW(newClient(upstream.ProviderGFW), tokens, upstream.GFWOptions{
		APIURL:          cfg.GFW.APIURL,
		PresenceDataset: cfg.GFW.PresenceDataset,
		ReportDataset:   cfg.GFW.ReportDataset,
		TileDatasets:    cfg.GFW.TileDatasets,
	})
	snapshot := upstream.NewSnapshot(newClient("snapshot"), cfg.Snapshot.BaseURL)

	logging.Info().
		Bool("copernicus", copernicus.Configured()).
		Bool("gfw", gfw.Configured()).
		Bool("gfw_proxy", cfg.GFW.ProxyURL != "").
		Bool("snapshots", snapshot.Configured()).
		Msg("Upstream providers configured")

	// === EVENTS ===

	bus := events.NewBus(events.DefaultBuffer, logging.NewWatermillLogger(logging.Logger()))
	attempts := events.NewAttemptLog(events.DefaultLogSize)
	hub := ws.NewHub()
	recorder := events.NewRecorder(bus, attempts, hub)

	// === TIER LADDERS ===

	orch := tier.New(tier.Config{
		Mode:    tier.Mode(cfg.Tiers.Mode),
		Timeout: cfg.Tiers.Timeout,
		Breaker: tier.BreakerSettings{
			Enabled:      cfg.Tiers.BreakerEnabled,
			MaxRequests:  cfg.Tiers.BreakerMaxRequests,
			Interval:     cfg.Tiers.BreakerInterval,
			Timeout:      cfg.Tiers.BreakerTimeout,
			MinRequests:  cfg.Tiers.BreakerMinRequests,
			FailureRatio: cfg.Tiers.BreakerFailureRatio,
		},
	}, bus)

	gen := synthetic.New(synthetic.WithArea(cfg.Region.AreaKm2))

	regionBox := models.BoundingBox{
		MinLon: cfg.Region.MinLon,
		MinLat: cfg.Region.MinLat,
		MaxLon: cfg.Region.MaxLon,
		MaxLat: cfg.Region.MaxLat,
	}
	regions := map[string]models.BoundingBox{cfg.Region.Name: regionBox}

	oceanSvc := ocean.NewService(orch, copernicus, snapshot, gen, ocean.Options{
		SnapshotPath: cfg.Snapshot.OceanPath,
	})

	sources := report.Sources{Snapshot: snapshot}
	if gfw.Configured() {
		sources.Direct = gfw
		sources.Reports = gfw
	}
	if cfg.GFW.ProxyURL != "" {
		sources.Proxy = upstream.NewProxy(newClient("gfw-proxy"), cfg.GFW.ProxyURL, cfg.GFW.PresenceDataset)
	}
	reportSvc := report.NewService(orch, sources, gen, report.Options{
		WindowHours:  cfg.GFW.WindowHours,
		SnapshotPath: cfg.Snapshot.VesselPath,
		AreaKm2:      cfg.Region.AreaKm2,
		Regions:      regions,
	})

	gateway, err := tiles.NewGateway(gfw, tiles.Options{
		StyleTTL:        cfg.Cache.StyleTTL,
		TileTTL:         cfg.Cache.TileTTL,
		Timeout:         cfg.Tiers.TileTimeout,
		JanitorInterval: cfg.Cache.JanitorInterval,
		Regions:         regions,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize tile gateway")
	}

	// === HTTP ===

	handler := api.NewHandler(cfg, api.Deps{
		Ocean:      oceanSvc,
		Reports:    reportSvc,
		Tiles:      gateway,
		Copernicus: copernicus,
		Tokens:     tokens,
		Breakers:   orch,
		Attempts:   attempts,
		Hub:        hub,
	})
	router := api.NewRouter(handler, cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	// === SUPERVISOR TREE ===

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})

	tree.AddBackgroundService(gateway.StyleCache())
	tree.AddBackgroundService(recorder)
	tree.AddBackgroundService(hub)
	logging.Info().Msg("Style cache janitor, attempt recorder and websocket hub added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, addr, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if err := gateway.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close tile gateway")
	}
	if err := bus.Close(); err != nil {
		logging.Error().Err(err).Msg("Failed to close event bus")
	}

	logging.Info().Msg("Application stopped gracefully")
}
