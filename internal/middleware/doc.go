// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

/*
Package middleware provides the chi middleware stack of the HTTP boundary.

  - RequestID: accepts or generates X-Request-ID and threads it into the
    logging context, so tier attempts and logs of one request correlate
  - AccessLog: one structured zerolog line per request
  - PrometheusMetrics: request counters and latency keyed by route pattern
  - AdminKey: bcrypt check of the x-admin-key header for debug endpoints

Typical order:

	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(middleware.PrometheusMetrics)
	r.With(middleware.AdminKey(hash)).Get("/debug/token", h.DebugToken)
*/
package middleware
