// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package models

import "time"

// Status describes how an aggregate was obtained.
type Status string

const (
	StatusOnline    Status = "online"
	StatusCache     Status = "cache"
	StatusSimulated Status = "simulated"
	StatusError     Status = "error"
)

// AggregateResult is the summary served by /realtime/data.
// When DataPoints is 0 every mean is nil.
type AggregateResult struct {
	Temperature  *float64  `json:"temperature"`
	Salinity     *float64  `json:"salinity"`
	Chlorophyll  *float64  `json:"chlorophyll"`
	CurrentSpeed *float64  `json:"current_speed"`
	Timestamp    time.Time `json:"timestamp"`
	DataPoints   int       `json:"data_points"`
	DataSource   string    `json:"source"`
	Status       Status    `json:"status"`

	// CopernicusStatus mirrors Status under the field name dashboards read.
	CopernicusStatus string `json:"copernicus_status"`
}
