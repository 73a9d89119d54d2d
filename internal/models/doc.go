// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package models defines the canonical values that flow through the gateway:
// inbound requests (DataRequest, TileRequest, KPIRequest), normalized
// Observations and the response shapes (AggregateResult, Report, KPIReport,
// TileRaster).
//
// Optional metrics are pointers. A nil pointer means "not measured" and is
// encoded as JSON null; it is never replaced by zero.
package models
