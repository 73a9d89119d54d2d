// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package synthetic

import (
	"math"
	"testing"
	"time"

	"github.com/tomtom215/tidegate/internal/models"
)

var angola = models.BoundingBox{MinLon: 11.5, MinLat: -18.0, MaxLon: 17.5, MaxLat: -4.2}

func fixed(v float64) func() float64 { return func() float64 { return v } }

func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

// 2026-03-11 is a Wednesday.
var (
	weekdayDawn  = time.Date(2026, 3, 11, 6, 0, 0, 0, time.UTC)
	weekdayNoon  = time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC)
	sundayNight  = time.Date(2026, 3, 15, 23, 0, 0, 0, time.UTC)
	saturdayDusk = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
)

func TestOcean_AllZonesInsideRegion(t *testing.T) {
	t.Parallel()

	g := New(WithClock(clockAt(weekdayNoon)), WithRand(fixed(0.5)))
	obs := g.Ocean(models.DataRequest{BBox: angola})

	if len(obs) != len(Zones) {
		t.Fatalf("got %d observations, want %d", len(obs), len(Zones))
	}
	for i, o := range obs {
		z := Zones[i]
		if o.Latitude != z.Latitude || o.Longitude != z.Longitude {
			t.Errorf("%s: position (%v,%v), want zone centre with zero jitter", z.Name, o.Latitude, o.Longitude)
		}
		if o.Quality != models.QualityMedium {
			t.Errorf("%s: quality = %q, want medium", z.Name, o.Quality)
		}
		if o.Source != SourceSynthetic {
			t.Errorf("%s: source = %q", z.Name, o.Source)
		}
		if !o.HasMetrics() || o.Temperature == nil || o.Salinity == nil || o.Chlorophyll == nil || o.CurrentSpeed == nil {
			t.Fatalf("%s: missing metrics", z.Name)
		}
		if math.Abs(*o.Temperature-z.Temperature) > 0.1+1e-9 {
			t.Errorf("%s: temperature %v drifts more than 0.1 from %v", z.Name, *o.Temperature, z.Temperature)
		}
		if *o.Chlorophyll != z.Chlorophyll {
			t.Errorf("%s: chlorophyll = %v, want %v", z.Name, *o.Chlorophyll, z.Chlorophyll)
		}
	}
}

func TestOcean_JitterBounds(t *testing.T) {
	t.Parallel()

	for _, r := range []float64{0, 0.999999} {
		g := New(WithClock(clockAt(weekdayNoon)), WithRand(fixed(r)))
		for i, o := range g.Ocean(models.DataRequest{BBox: angola}) {
			z := Zones[i]
			if math.Abs(o.Latitude-z.Latitude) > 0.05+1e-9 || math.Abs(o.Longitude-z.Longitude) > 0.05+1e-9 {
				t.Errorf("r=%v %s: position jitter out of bounds", r, z.Name)
			}
			if math.Abs(*o.Chlorophyll-z.Chlorophyll) > z.Chlorophyll*0.1+1e-9 {
				t.Errorf("r=%v %s: chlorophyll jitter out of bounds", r, z.Name)
			}
			if math.Abs(*o.Salinity-z.Salinity) > 0.05+1e-9 {
				t.Errorf("r=%v %s: salinity jitter out of bounds", r, z.Name)
			}
			if *o.CurrentSpeed < 0.1 || *o.CurrentSpeed > 0.6 {
				t.Errorf("r=%v %s: current speed %v out of [0.1,0.6]", r, z.Name, *o.CurrentSpeed)
			}
		}
	}
}

func TestOcean_BBoxFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		bbox models.BoundingBox
		want []string
	}{
		{
			name: "northern box",
			bbox: models.BoundingBox{MinLon: 11, MinLat: -10, MaxLon: 14, MaxLat: -4},
			want: []string{"Cabinda", "Luanda"},
		},
		{
			name: "southern box",
			bbox: models.BoundingBox{MinLon: 11, MinLat: -17, MaxLon: 13, MaxLat: -15},
			want: []string{"Namibe", "Tombwa"},
		},
		{
			name: "box excluding every zone",
			bbox: models.BoundingBox{MinLon: -10, MinLat: 40, MaxLon: 0, MaxLat: 50},
			want: []string{"Cabinda", "Luanda", "Benguela", "Namibe", "Tombwa"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := zonesIn(tt.bbox)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d zones, want %d", len(got), len(tt.want))
			}
			for i, z := range got {
				if z.Name != tt.want[i] {
					t.Errorf("zone %d = %s, want %s", i, z.Name, tt.want[i])
				}
			}
			g := New(WithRand(fixed(0.3)))
			if n := len(g.Ocean(models.DataRequest{BBox: tt.bbox})); n != len(tt.want) {
				t.Errorf("Ocean returned %d observations, want %d", n, len(tt.want))
			}
		})
	}
}

func TestProcessedZones(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		products int
		want     int
	}{
		{name: "no products", products: 0, want: 0},
		{name: "one product", products: 1, want: 1},
		{name: "two products", products: 2, want: 2},
		{name: "more products than zones", products: 10, want: len(Zones)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(WithClock(clockAt(weekdayNoon)), WithRand(fixed(0.5)))
			got := g.ProcessedZones(angola, tt.products)
			if len(got) != tt.want {
				t.Fatalf("len = %d, want %d", len(got), tt.want)
			}
			for i, o := range got {
				if o.Quality != models.QualityMedium || o.Source != SourceProcessed {
					t.Errorf("zone %d tagged %q/%q", i, o.Quality, o.Source)
				}
			}
			if len(got) > 0 && math.Abs(got[0].Latitude-Zones[0].Latitude) > 0.05 {
				t.Errorf("first estimate at lat %v, want northernmost zone", got[0].Latitude)
			}
		})
	}

	// 6 products shift temperature by (6%5)*0.05 relative to 5 products.
	g := New(WithClock(clockAt(weekdayNoon)), WithRand(fixed(0.5)))
	base := g.ProcessedZones(angola, 5)
	bumped := g.ProcessedZones(angola, 6)
	for i := range base {
		diff := *bumped[i].Temperature - *base[i].Temperature
		if math.Abs(diff-0.05) > 1e-9 {
			t.Errorf("zone %d: product offset = %v, want 0.05", i, diff)
		}
	}
}

func TestCatalogEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sentinel3 bool
		r         float64
		temp      float64
		chl       float64
	}{
		{name: "sentinel-3 low", sentinel3: true, r: 0, temp: 18, chl: 2},
		{name: "sentinel-3 mid", sentinel3: true, r: 0.5, temp: 22, chl: 7},
		{name: "sentinel-2 low", sentinel3: false, r: 0, temp: 22, chl: 1},
		{name: "sentinel-2 mid", sentinel3: false, r: 0.5, temp: 25, chl: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(WithRand(fixed(tt.r)))
			var obs models.Observation
			g.CatalogEstimate(&obs, tt.sentinel3)

			if *obs.Temperature != tt.temp {
				t.Errorf("temperature = %v, want %v", *obs.Temperature, tt.temp)
			}
			if *obs.Chlorophyll != tt.chl {
				t.Errorf("chlorophyll = %v, want %v", *obs.Chlorophyll, tt.chl)
			}
			if obs.Salinity == nil || obs.CurrentSpeed == nil {
				t.Error("salinity and current speed should be estimated")
			}
		})
	}
}

func TestVessels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		now       time.Time
		r         float64
		wantCount int
	}{
		{name: "weekday dawn peak", now: weekdayDawn, r: 0.5, wantCount: 25 + 10 + 15},
		{name: "weekday midday", now: weekdayNoon, r: 0.5, wantCount: 35},
		{name: "weekend dusk peak", now: saturdayDusk, r: 0.5, wantCount: 40},
		{name: "weekend night low jitter", now: sundayNight, r: 0, wantCount: 20},
		{name: "weekend night high jitter", now: sundayNight, r: 0.99, wantCount: 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(WithClock(clockAt(tt.now)), WithRand(fixed(tt.r)))
			rep := g.Vessels(24)

			if rep.VesselCount != tt.wantCount {
				t.Errorf("VesselCount = %d, want %d", rep.VesselCount, tt.wantCount)
			}
			if rep.VesselCount < 10 {
				t.Errorf("VesselCount %d below floor", rep.VesselCount)
			}
			if rep.DataSource != models.SourceSimulated {
				t.Errorf("DataSource = %q", rep.DataSource)
			}
			if rep.WindowHours != 24 {
				t.Errorf("WindowHours = %d", rep.WindowHours)
			}
			perVessel := rep.TotalHours / float64(rep.VesselCount)
			if perVessel < 8-0.01 || perVessel > 12+0.01 {
				t.Errorf("hours per vessel = %v, want 8..12", perVessel)
			}
			if rep.Note == "" {
				t.Error("simulated report should carry a note")
			}
		})
	}
}

func TestVessels_LocationShiftsPattern(t *testing.T) {
	t.Parallel()

	// 03:00 UTC is 04:00 in West Africa Time, inside the dawn peak.
	luanda := time.FixedZone("WAT", 3600)
	at := time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC)

	utc := New(WithClock(clockAt(at)), WithRand(fixed(0.5))).Vessels(24)
	local := New(WithClock(clockAt(at)), WithRand(fixed(0.5)), WithLocation(luanda)).Vessels(24)

	if local.VesselCount-utc.VesselCount != 15 {
		t.Errorf("local count %d, utc count %d: want dawn bonus of 15", local.VesselCount, utc.VesselCount)
	}
}

func TestKPI(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		now        time.Time
		r          float64
		wantCount  int
		wantUnique int
	}{
		{name: "weekday dawn", now: weekdayDawn, r: 0.5, wantCount: 50, wantUnique: 47},
		{name: "weekday noon", now: weekdayNoon, r: 0.5, wantCount: 42, wantUnique: 39},
		{name: "weekend night floor", now: sundayNight, r: 0, wantCount: 25, wantUnique: 22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := New(WithClock(clockAt(tt.now)), WithRand(fixed(tt.r)))
			est := g.KPI()

			if est.VesselCount != tt.wantCount {
				t.Errorf("VesselCount = %d, want %d", est.VesselCount, tt.wantCount)
			}
			if est.UniqueVessels != tt.wantUnique {
				t.Errorf("UniqueVessels = %d, want %d", est.UniqueVessels, tt.wantUnique)
			}
			if est.ActivityScore < 30 || est.ActivityScore > 100 {
				t.Errorf("ActivityScore = %d out of [30,100]", est.ActivityScore)
			}
			wantDensity := round(float64(tt.wantCount)/DefaultAreaKm2, 3)
			if est.DensityPerKm2 != wantDensity {
				t.Errorf("DensityPerKm2 = %v, want %v", est.DensityPerKm2, wantDensity)
			}
		})
	}
}

func TestKPI_ScoreClamped(t *testing.T) {
	t.Parallel()

	g := New(WithClock(clockAt(weekdayDawn)), WithRand(fixed(0.99)))
	if s := g.KPI().ActivityScore; s != 100 {
		t.Errorf("ActivityScore = %d, want clamp at 100", s)
	}
}

func TestKPIReport(t *testing.T) {
	t.Parallel()

	g := New(WithClock(clockAt(weekdayNoon)), WithRand(fixed(0.5)))
	req := models.KPIRequest{
		Dataset:   "public-global-ais-vessel-presence:v3.0",
		Region:    "angola",
		StartDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC),
	}
	rep := g.KPIReport(req)

	if rep.Summary.Region != "angola" {
		t.Errorf("Region = %q", rep.Summary.Region)
	}
	if rep.Summary.Period.Start != "2026-03-10" || rep.Summary.Period.End != "2026-03-11" {
		t.Errorf("Period = %+v", rep.Summary.Period)
	}
	if rep.Summary.Period.DurationHours != 24 {
		t.Errorf("DurationHours = %d", rep.Summary.Period.DurationHours)
	}
	if rep.RawData.DataSource != models.SourceSimulated || rep.RawData.APIVersion != "v3_compatible" {
		t.Errorf("RawData = %+v", rep.RawData)
	}
	if rep.RawData.Dataset != req.Dataset {
		t.Errorf("Dataset = %q", rep.RawData.Dataset)
	}
	if !rep.UpdatedAt.Equal(weekdayNoon) {
		t.Errorf("UpdatedAt = %v", rep.UpdatedAt)
	}
}

func TestPeriod_DefaultsToOneDay(t *testing.T) {
	t.Parallel()

	d := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	p := Period(models.KPIRequest{StartDate: d, EndDate: d})
	if p.DurationHours != 24 {
		t.Errorf("DurationHours = %d, want 24", p.DurationHours)
	}
}

func TestGenerator_ConcurrentUse(t *testing.T) {
	t.Parallel()

	g := New()
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 50; j++ {
				_ = g.Ocean(models.DataRequest{BBox: angola})
				_ = g.Vessels(24)
				_ = g.KPI()
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
