// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/models"
)

// rootKeys are the document keys that may hold the record array, tried in
// order.
var rootKeys = []string{"real_time_data", "locations", "data", "features"}

// Field accessors. Each lists the upstream names for one canonical field in
// priority order; the first key holding a usable value wins.
var (
	temperatureField  = accessor{"sst", "sea_surface_temperature", "temperature"}
	salinityField     = accessor{"salinity", "so"}
	chlorophyllField  = accessor{"chlorophyll", "chlorophyll_a", "chl"}
	currentSpeedField = accessor{"current_speed"}
	currentUField     = accessor{"current_u"}
	currentVField     = accessor{"current_v"}
	latitudeField     = accessor{"latitude", "lat"}
	longitudeField    = accessor{"longitude", "lon", "lng"}
	qualityField      = accessor{"data_quality", "quality"}
	sourceField       = accessor{"source"}
	timestampField    = accessor{"timestamp", "datetime", "time", "date"}
)

// record is one decoded upstream object.
type record map[string]interface{}

// accessor reads a canonical field from a record.
type accessor []string

// float returns the first value among the accessor's keys that coerces to a
// finite number.
func (a accessor) float(r record) (float64, bool) {
	for _, key := range a {
		v, ok := r[key]
		if !ok {
			continue
		}
		if f, ok := toFloat(v); ok {
			return f, true
		}
	}
	return 0, false
}

// optional wraps float as a *float64.
func (a accessor) optional(r record) *float64 {
	if f, ok := a.float(r); ok {
		return models.Float(f)
	}
	return nil
}

// str returns the first non-empty string value.
func (a accessor) str(r record) (string, bool) {
	for _, key := range a {
		if s, ok := r[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

// time returns the first value parseable as a timestamp.
func (a accessor) time(r record) (time.Time, bool) {
	for _, key := range a {
		s, ok := r[key].(string)
		if !ok {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, strings.TrimSpace(s)); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// toFloat accepts JSON numbers and numeric strings. NaN and infinities are
// rejected.
func toFloat(v interface{}) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case float64:
		f = x
	case int64:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
