// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package models

import (
	"math"
	"time"
)

// Quality is the confidence tag carried by an Observation.
type Quality string

const (
	QualityHigh   Quality = "high"
	QualityMedium Quality = "medium"
	QualityLow    Quality = "low"
)

// ParseQuality accepts only the three known tags.
func ParseQuality(s string) (Quality, bool) {
	switch q := Quality(s); q {
	case QualityHigh, QualityMedium, QualityLow:
		return q, true
	default:
		return "", false
	}
}

// Observation is the canonical normalized record.
type Observation struct {
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Temperature  *float64  `json:"temperature"`
	Salinity     *float64  `json:"salinity"`
	Chlorophyll  *float64  `json:"chlorophyll"`
	CurrentSpeed *float64  `json:"current_speed"`
	Timestamp    time.Time `json:"timestamp"`
	Quality      Quality   `json:"quality"`
	Source       string    `json:"source"`
}

// Value returns the metric value and whether it is present.
func (o *Observation) Value(m Metric) (float64, bool) {
	var p *float64
	switch m {
	case MetricTemperature:
		p = o.Temperature
	case MetricSalinity:
		p = o.Salinity
	case MetricChlorophyll:
		p = o.Chlorophyll
	case MetricCurrentSpeed:
		p = o.CurrentSpeed
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// ValidCoordinates reports whether lat/lon are finite and within WGS84 range.
func ValidCoordinates(lat, lon float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// HasMetrics reports whether at least one metric is present.
func (o *Observation) HasMetrics() bool {
	return o.Temperature != nil || o.Salinity != nil || o.Chlorophyll != nil || o.CurrentSpeed != nil
}
