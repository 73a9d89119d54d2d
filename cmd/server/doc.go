// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package main is the entry point for the Tidegate server.

Tidegate sits between the marine dashboard and its data providers
(Copernicus Data Space for ocean observations, Global Fishing Watch 4Wings
for vessel presence, KPI reports and heatmap tiles). Every read walks a
ranked ladder of sources and always ends with an answer: live upstream,
secondary catalog, proxy, last-known-good snapshot and finally synthetic
data marked as such.

# Application Architecture

	RootSupervisor ("tidegate")
	├── BackgroundSupervisor ("background-layer")
	│   ├── Style cache janitor
	│   ├── Attempt recorder (event bus -> attempt log + websocket)
	│   └── WebSocket Hub (/debug/attempts/stream)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Component initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, .env, environment)
 2. Logging: zerolog with JSON/console output modes
 3. Token manager: Copernicus password grant and GFW bearer token
 4. Upstream clients: rate-limited HTTP clients per provider
 5. Event bus: Watermill in-process pub/sub for tier attempts
 6. Orchestrator: tier ladders with per-tier circuit breakers
 7. Domain services: ocean, vessel presence, KPI reports, tiles
 8. Supervisor Tree: Suture v4 process supervision
 9. HTTP Server: Chi router with middleware stack

# Configuration

Settings come from built-in defaults, an optional config.yaml and the
environment (highest priority). Commonly set variables:

	COPERNICUS_USERNAME, COPERNICUS_PASSWORD   password grant credentials
	COPERNICUS_TOKEN                           static bearer token
	GFW_API_TOKEN                              4Wings bearer token
	GFW_PROXY_URL                              optional aggregate proxy
	FRONTEND_BASE                              snapshot host
	ADMIN_KEY_HASH                             bcrypt hash guarding /debug routes

Without credentials the gateway still serves every route; the ladders fall
through to snapshots and synthetic data.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The supervisor stops the HTTP
server gracefully (SHUTDOWN_TIMEOUT) and the background services, then the
tile store and event bus are closed.
*/
package main
