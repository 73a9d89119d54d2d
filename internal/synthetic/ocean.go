// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package synthetic

import (
	"math"

	"github.com/tomtom215/tidegate/internal/models"
)

// Source tags for generated observations.
const (
	SourceSynthetic = "synthetic"
	SourceProcessed = "copernicus_processed"
	SourceSTAC      = "copernicus_stac"
)

// Zone is a coastal reference point with baseline conditions.
type Zone struct {
	Name        string
	Latitude    float64
	Longitude   float64
	Temperature float64
	Chlorophyll float64
	Salinity    float64
}

// Zones are the Angolan coastal reference zones, north to south. The
// Benguela upwelling shows as falling temperature and rising chlorophyll.
var Zones = []Zone{
	{Name: "Cabinda", Latitude: -5.0, Longitude: 12.0, Temperature: 28.1, Chlorophyll: 0.96, Salinity: 35.1},
	{Name: "Luanda", Latitude: -8.8, Longitude: 13.2, Temperature: 24.5, Chlorophyll: 2.34, Salinity: 35.3},
	{Name: "Benguela", Latitude: -12.6, Longitude: 13.4, Temperature: 19.8, Chlorophyll: 7.98, Salinity: 35.0},
	{Name: "Namibe", Latitude: -15.2, Longitude: 12.1, Temperature: 17.6, Chlorophyll: 12.45, Salinity: 34.9},
	{Name: "Tombwa", Latitude: -16.8, Longitude: 11.8, Temperature: 16.2, Chlorophyll: 15.67, Salinity: 34.8},
}

// Ocean returns one medium-quality observation per reference zone inside
// the request box. When the box excludes every zone, all zones are emitted
// so the result is never empty.
func (g *Generator) Ocean(req models.DataRequest) []models.Observation {
	zones := zonesIn(req.BBox)
	return g.zoneObservations(zones, 0, models.QualityMedium, SourceSynthetic)
}

// ProcessedZones turns catalog hits into zone estimates, one per product
// and at most one per zone, ordered north to south. Product count nudges
// temperature so consecutive catalog states stay distinguishable. The
// values are estimates, so quality is medium.
func (g *Generator) ProcessedZones(bbox models.BoundingBox, products int) []models.Observation {
	if products <= 0 {
		return nil
	}
	zones := zonesIn(bbox)
	if products < len(zones) {
		zones = zones[:products]
	}
	offset := float64(products%5) * 0.05
	return g.zoneObservations(zones, offset, models.QualityMedium, SourceProcessed)
}

// CatalogEstimate fills metrics for a catalog item that carries none,
// using the sensor family's typical range. Sentinel-3 ocean colour scenes
// run cooler and greener than Sentinel-2 coastal tiles.
func (g *Generator) CatalogEstimate(obs *models.Observation, sentinel3 bool) {
	if sentinel3 {
		obs.Temperature = models.Float(18 + g.float()*8)
		obs.Chlorophyll = models.Float(2 + g.float()*10)
	} else {
		obs.Temperature = models.Float(22 + g.float()*6)
		obs.Chlorophyll = models.Float(1 + g.float()*4)
	}
	obs.Salinity = models.Float(34.7 + g.float()*0.7)
	obs.CurrentSpeed = models.Float(g.float() * 0.8)
}

func zonesIn(bbox models.BoundingBox) []Zone {
	var in []Zone
	for _, z := range Zones {
		if bbox.Contains(z.Latitude, z.Longitude) {
			in = append(in, z)
		}
	}
	if len(in) == 0 {
		return Zones
	}
	return in
}

func (g *Generator) zoneObservations(zones []Zone, tempOffset float64, quality models.Quality, source string) []models.Observation {
	now := g.now().UTC()
	oscillation := math.Sin(float64(now.Unix())/1e3) * 0.1

	out := make([]models.Observation, 0, len(zones))
	for _, z := range zones {
		out = append(out, models.Observation{
			Latitude:     z.Latitude + g.jitter(0.05),
			Longitude:    z.Longitude + g.jitter(0.05),
			Temperature:  models.Float(z.Temperature + oscillation + tempOffset),
			Chlorophyll:  models.Float(z.Chlorophyll + g.jitter(z.Chlorophyll*0.1)),
			Salinity:     models.Float(z.Salinity + g.jitter(0.05)),
			CurrentSpeed: models.Float(0.1 + g.float()*0.5),
			Timestamp:    now,
			Quality:      quality,
			Source:       source,
		})
	}
	return out
}
