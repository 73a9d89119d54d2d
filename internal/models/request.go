// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Metric names a quantity a DataRequest asks for.
type Metric string

const (
	MetricTemperature    Metric = "temperature"
	MetricSalinity       Metric = "salinity"
	MetricChlorophyll    Metric = "chlorophyll"
	MetricCurrentSpeed   Metric = "current_speed"
	MetricVesselPresence Metric = "vessel_presence"
)

// OceanMetrics is the metric set of an ocean-data request.
var OceanMetrics = []Metric{MetricTemperature, MetricSalinity, MetricChlorophyll, MetricCurrentSpeed}

// BoundingBox is an area of interest in WGS84 degrees.
type BoundingBox struct {
	MinLon float64 `json:"min_lon" validate:"gte=-180,lte=180"`
	MinLat float64 `json:"min_lat" validate:"gte=-90,lte=90"`
	MaxLon float64 `json:"max_lon" validate:"gte=-180,lte=180,gtefield=MinLon"`
	MaxLat float64 `json:"max_lat" validate:"gte=-90,lte=90,gtefield=MinLat"`
}

// ParseBoundingBox parses "minLon,minLat,maxLon,maxLat".
func ParseBoundingBox(s string) (BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}
	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		vals[i] = v
	}
	return BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

// String formats the box as "minLon,minLat,maxLon,maxLat".
func (b BoundingBox) String() string {
	return strings.Join([]string{
		strconv.FormatFloat(b.MinLon, 'f', -1, 64),
		strconv.FormatFloat(b.MinLat, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLon, 'f', -1, 64),
		strconv.FormatFloat(b.MaxLat, 'f', -1, 64),
	}, ",")
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Array returns the box as [minLon, minLat, maxLon, maxLat].
func (b BoundingBox) Array() [4]float64 {
	return [4]float64{b.MinLon, b.MinLat, b.MaxLon, b.MaxLat}
}

// WKTPolygon returns the box as an SRID-tagged WKT polygon.
func (b BoundingBox) WKTPolygon() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return fmt.Sprintf("SRID=4326;POLYGON((%s %s, %s %s, %s %s, %s %s, %s %s))",
		f(b.MinLon), f(b.MinLat),
		f(b.MaxLon), f(b.MinLat),
		f(b.MaxLon), f(b.MaxLat),
		f(b.MinLon), f(b.MaxLat),
		f(b.MinLon), f(b.MinLat))
}

// TimeWindow is a closed time interval.
type TimeWindow struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required,gtefield=Start"`
}

// Duration returns End - Start.
func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// DataRequest describes what an inbound request wants. It is created once
// per request and never mutated.
type DataRequest struct {
	Metrics []Metric    `json:"metrics" validate:"required,min=1,dive,oneof=temperature salinity chlorophyll current_speed vessel_presence"`
	BBox    BoundingBox `json:"bbox"`
	Window  TimeWindow  `json:"window"`
	Limit   int         `json:"limit" validate:"gte=1,lte=500"`
}

// Wants reports whether the request includes metric m.
func (r DataRequest) Wants(m Metric) bool {
	for _, have := range r.Metrics {
		if have == m {
			return true
		}
	}
	return false
}

// NewOceanRequest builds a request for all ocean metrics over the lookback
// window ending at now.
func NewOceanRequest(bbox BoundingBox, now time.Time, lookback time.Duration, limit int) DataRequest {
	return DataRequest{
		Metrics: append([]Metric(nil), OceanMetrics...),
		BBox:    bbox,
		Window:  TimeWindow{Start: now.Add(-lookback), End: now},
		Limit:   limit,
	}
}

// NewPresenceRequest builds a vessel-presence request over the window ending
// at now.
func NewPresenceRequest(bbox BoundingBox, now time.Time, window time.Duration) DataRequest {
	return DataRequest{
		Metrics: []Metric{MetricVesselPresence},
		BBox:    bbox,
		Window:  TimeWindow{Start: now.Add(-window), End: now},
		Limit:   1,
	}
}
