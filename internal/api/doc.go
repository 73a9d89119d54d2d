// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package api is the HTTP boundary of the gateway.

Data endpoints keep the flat JSON shapes the dashboard already reads:

	GET /realtime/data, /api/realtime/data           ocean aggregate
	GET /api/gfw/vessel-presence                     vessel presence report
	GET /gfw/4wings/report/{dataset}                 KPI report
	GET /api/gfw/4wings/report                       KPI report, ?dataset=
	GET /gfw/4wings/tile/heatmap/{dataset}/{z}/{x}/{y}.png
	GET /gfw/4wings/tile/heatmap/{z}/{x}/{y}         default dataset
	GET /gfw/4wings/tile/generate-png                style handle + template

Degradation is never an HTTP error on these routes: it shows up in
source/status/api_status, and tiles fall back to a transparent PNG.
Only malformed input is rejected, with the APIResponse error envelope.

Operator endpoints sit behind the admin key when one is configured:

	GET /api/copernicus/token-status
	GET /api/copernicus/ping
	GET /api/copernicus/probe
	GET /api/copernicus/stac-probe
	GET /api/gfw/status
	GET /debug/attempts
	GET /debug/attempts/stream   (websocket)

Plus GET /health and GET /metrics.
*/
package api
