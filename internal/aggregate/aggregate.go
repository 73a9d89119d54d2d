// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package aggregate reduces observations to the summary served to
// dashboards.
package aggregate

import (
	"math"
	"time"

	"github.com/tomtom215/tidegate/internal/models"
)

// Provenance says where the observations came from.
type Provenance struct {
	DataSource string
	Status     models.Status
	Timestamp  time.Time
}

// Aggregate computes the per-metric means. A metric no observation carries
// is nil, never zero, so an empty input yields an all-null result with
// DataPoints 0.
func Aggregate(observations []models.Observation, p Provenance) models.AggregateResult {
	return models.AggregateResult{
		Temperature:      mean(observations, models.MetricTemperature),
		Salinity:         mean(observations, models.MetricSalinity),
		Chlorophyll:      mean(observations, models.MetricChlorophyll),
		CurrentSpeed:     mean(observations, models.MetricCurrentSpeed),
		Timestamp:        p.Timestamp,
		DataPoints:       len(observations),
		DataSource:       p.DataSource,
		Status:           p.Status,
		CopernicusStatus: LegacyStatus(p.Status),
	}
}

// LegacyStatus maps a Status to the copernicus_status vocabulary older
// dashboards read.
func LegacyStatus(s models.Status) string {
	switch s {
	case models.StatusOnline:
		return "online"
	case models.StatusCache:
		return "cache"
	case models.StatusSimulated:
		return "simulated"
	default:
		return "offline"
	}
}

// mean is an incremental average, so values near the float64 limit never
// overflow a running sum. NaN and infinities are skipped.
func mean(observations []models.Observation, m models.Metric) *float64 {
	var avg float64
	n := 0
	for i := range observations {
		v, ok := observations[i].Value(m)
		if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		n++
		avg += v/float64(n) - avg/float64(n)
	}
	if n == 0 {
		return nil
	}
	return models.Float(avg)
}
