// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package models

import "time"

// Data source tags for vessel reports.
const (
	SourceGFWAPI    = "gfw_api"
	SourceGFWProxy  = "gfw_proxy"
	SourceGFWCache  = "gfw_cache"
	SourceSimulated = "simulated"
)

// API status tags for vessel reports.
const (
	APIStatusConnected        = "connected"
	APIStatusProxied          = "proxied"
	APIStatusUsingCache       = "using_cache"
	APIStatusConnectionFailed = "connection_failed"
)

// Report is the vessel-presence summary served by /api/gfw/vessel-presence.
type Report struct {
	VesselCount   int       `json:"vessel_count"`
	TotalHours    float64   `json:"total_hours"`
	WindowHours   int       `json:"window_hours"`
	DensityPerKm2 float64   `json:"density_per_km2"`
	UpdatedAt     time.Time `json:"updated_at"`
	DataSource    string    `json:"data_source"`
	APIStatus     string    `json:"api_status"`
	CacheAgeHours *int      `json:"cache_age_hours,omitempty"`
	Note          string    `json:"note,omitempty"`
}

// KPIRequest selects a windowed KPI report.
type KPIRequest struct {
	Dataset   string    `json:"dataset" validate:"required,max=128"`
	Region    string    `json:"region" validate:"required,max=64"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
}

// KPIPeriod is the reporting window of a KPIReport.
type KPIPeriod struct {
	Start         string `json:"start"`
	End           string `json:"end"`
	DurationHours int    `json:"duration_hours"`
}

// KPISummary holds the headline counts of a KPIReport.
type KPISummary struct {
	VesselCount   int       `json:"vessel_count"`
	PresenceHours float64   `json:"presence_hours"`
	UniqueVessels int       `json:"unique_vessels"`
	Region        string    `json:"region"`
	Period        KPIPeriod `json:"period"`
}

// KPIMetrics holds derived density and activity figures.
type KPIMetrics struct {
	AvgPresencePerVessel float64 `json:"avg_presence_per_vessel"`
	DensityPerKm2        float64 `json:"density_per_km2"`
	FishingActivityScore int     `json:"fishing_activity_score"`
}

// KPIRawData records which dataset and source produced the report.
type KPIRawData struct {
	Dataset    string `json:"dataset"`
	APIVersion string `json:"api_version"`
	DataSource string `json:"data_source"`
}

// KPIReport is the windowed report served by /gfw/4wings/report/{dataset}.
type KPIReport struct {
	Summary   KPISummary `json:"summary"`
	Metrics   KPIMetrics `json:"metrics"`
	RawData   KPIRawData `json:"raw_data"`
	APIStatus string     `json:"api_status"`
	UpdatedAt time.Time  `json:"updated_at"`
}
