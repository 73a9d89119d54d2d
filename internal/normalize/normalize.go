// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package normalize converts upstream JSON documents of varying shape into
// canonical observations.
//
// Field names are resolved through static, ordered accessor tables rather
// than ad hoc lookups, so adding a provider spelling is a one-line change.
// Records without a valid position are dropped, never defaulted: the output
// is never longer than the input.
package normalize

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/tier"
)

// Hint supplies defaults for fields a record does not carry.
type Hint struct {
	Source    string
	Quality   models.Quality
	Timestamp time.Time
}

// Normalize decodes raw and returns one observation per usable record.
//
// The record array is the first non-empty array under real_time_data,
// locations, data or features, or the document itself when it is a bare
// array. A document that is not JSON, or is an object with none of those
// keys, returns tier.ErrSchemaMismatch. Present but empty arrays yield an
// empty, non-nil slice.
func Normalize(raw []byte, hint Hint) ([]models.Observation, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tier.ErrSchemaMismatch, err)
	}

	var items []interface{}
	switch root := doc.(type) {
	case []interface{}:
		items = root
	case map[string]interface{}:
		found := false
		for _, key := range rootKeys {
			v, ok := root[key]
			if !ok {
				continue
			}
			arr, isArray := v.([]interface{})
			if !isArray {
				continue
			}
			found = true
			if len(arr) > 0 {
				items = arr
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: no record array under %v", tier.ErrSchemaMismatch, rootKeys)
		}
	default:
		return nil, fmt.Errorf("%w: document is not an object or array", tier.ErrSchemaMismatch)
	}

	out := make([]models.Observation, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if obs, ok := Record(m, hint); ok {
			out = append(out, obs)
		}
	}
	return out, nil
}

// Record converts one decoded object. GeoJSON features take their position
// from geometry and their fields from properties. The bool is false when
// the record has no valid position.
func Record(m map[string]interface{}, hint Hint) (models.Observation, bool) {
	fields := record(m)
	lat, lon, ok := position(fields)
	if props, isFeature := m["properties"].(map[string]interface{}); isFeature {
		fields = record(props)
		if !ok {
			lat, lon, ok = position(fields)
		}
	}
	if geomLat, geomLon, geomOK := geometryPosition(m["geometry"]); geomOK {
		lat, lon, ok = geomLat, geomLon, true
	}
	if !ok || !models.ValidCoordinates(lat, lon) {
		return models.Observation{}, false
	}

	obs := models.Observation{
		Latitude:     lat,
		Longitude:    lon,
		Temperature:  temperatureField.optional(fields),
		Salinity:     salinityField.optional(fields),
		Chlorophyll:  chlorophyllField.optional(fields),
		CurrentSpeed: currentSpeedField.optional(fields),
		Timestamp:    hint.Timestamp,
		Quality:      hint.Quality,
		Source:       hint.Source,
	}

	if obs.CurrentSpeed == nil {
		u, uOK := currentUField.float(fields)
		v, vOK := currentVField.float(fields)
		if uOK && vOK {
			obs.CurrentSpeed = models.Float(math.Hypot(u, v))
		}
	}
	if q, ok := qualityField.str(fields); ok {
		if parsed, valid := models.ParseQuality(q); valid {
			obs.Quality = parsed
		}
	}
	if s, ok := sourceField.str(fields); ok {
		obs.Source = s
	}
	if ts, ok := timestampField.time(fields); ok {
		obs.Timestamp = ts
	}
	return obs, true
}

func position(r record) (lat, lon float64, ok bool) {
	lat, latOK := latitudeField.float(r)
	lon, lonOK := longitudeField.float(r)
	return lat, lon, latOK && lonOK
}

// geometryPosition returns the point of a Point geometry or the vertex mean
// of a Polygon's outer ring. GeoJSON orders coordinates [lon, lat].
func geometryPosition(g interface{}) (lat, lon float64, ok bool) {
	geom, isMap := g.(map[string]interface{})
	if !isMap {
		return 0, 0, false
	}
	coords, _ := geom["coordinates"].([]interface{})
	switch geom["type"] {
	case "Point":
		return pair(coords)
	case "Polygon":
		if len(coords) == 0 {
			return 0, 0, false
		}
		ring, _ := coords[0].([]interface{})
		return ringCentre(ring)
	case "MultiPolygon":
		if len(coords) == 0 {
			return 0, 0, false
		}
		poly, _ := coords[0].([]interface{})
		if len(poly) == 0 {
			return 0, 0, false
		}
		ring, _ := poly[0].([]interface{})
		return ringCentre(ring)
	}
	return 0, 0, false
}

func pair(coords []interface{}) (lat, lon float64, ok bool) {
	if len(coords) < 2 {
		return 0, 0, false
	}
	lon, lonOK := toFloat(coords[0])
	lat, latOK := toFloat(coords[1])
	return lat, lon, lonOK && latOK
}

func ringCentre(ring []interface{}) (lat, lon float64, ok bool) {
	// A closed ring repeats its first vertex; skip it.
	if len(ring) > 1 {
		if first, last := fmt.Sprint(ring[0]), fmt.Sprint(ring[len(ring)-1]); first == last {
			ring = ring[:len(ring)-1]
		}
	}
	n := 0
	for _, v := range ring {
		p, _ := v.([]interface{})
		pLat, pLon, pOK := pair(p)
		if !pOK {
			continue
		}
		lat += pLat
		lon += pLon
		n++
	}
	if n == 0 {
		return 0, 0, false
	}
	return lat / float64(n), lon / float64(n), true
}

func decode(raw []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
