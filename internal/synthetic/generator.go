// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package synthetic manufactures plausible placeholder data for the last
// rung of every ladder. Its output is always tagged so clients can tell it
// from measurements. Nothing here can fail.
package synthetic

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Generator produces synthetic observations and reports. The clock and the
// random source are injectable so tests can pin the output.
type Generator struct {
	now      func() time.Time
	location *time.Location
	areaKm2  float64

	mu  sync.Mutex
	rnd func() float64
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithRand replaces the uniform [0,1) source.
func WithRand(rnd func() float64) Option {
	return func(g *Generator) { g.rnd = rnd }
}

// WithLocation sets the time zone used for weekday and hour-of-day
// patterns. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(g *Generator) { g.location = loc }
}

// WithArea sets the region area used for density figures.
func WithArea(km2 float64) Option {
	return func(g *Generator) { g.areaKm2 = km2 }
}

// DefaultAreaKm2 is the approximate area of the Angolan EEZ.
const DefaultAreaKm2 = 120000

// New creates a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		now:      time.Now,
		location: time.UTC,
		areaKm2:  DefaultAreaKm2,
		rnd:      rand.Float64,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.areaKm2 <= 0 {
		g.areaKm2 = DefaultAreaKm2
	}
	return g
}

// Now returns the generator's current time.
func (g *Generator) Now() time.Time {
	return g.now()
}

func (g *Generator) float() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd()
}

// jitter returns a value uniformly in [-half, +half).
func (g *Generator) jitter(half float64) float64 {
	return (g.float() - 0.5) * 2 * half
}

func (g *Generator) local() time.Time {
	return g.now().In(g.location)
}

func isWeekday(t time.Time) bool {
	d := t.Weekday()
	return d >= time.Monday && d <= time.Friday
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
