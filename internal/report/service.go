// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package report builds vessel presence summaries and windowed KPI reports
// from Global Fishing Watch, degrading through the proxy and the cached
// snapshot to simulated figures. Callers always get a report; how it was
// obtained is carried in data_source and api_status.
package report

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/synthetic"
	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
)

// Domains label attempts in metrics and events.
const (
	DomainPresence = "vessels"
	DomainKPI      = "kpi"
)

// Tier names.
const (
	TierDirect    = "gfw-direct"
	TierProxy     = "gfw-proxy"
	TierSnapshot  = "gfw-cache"
	TierReport    = "gfw-report"
	TierSynthetic = "synthetic"
)

// Aggregator returns presence totals for a request.
type Aggregator interface {
	Aggregate(ctx context.Context, req models.DataRequest) (upstream.PresenceTotals, error)
}

// Reporter returns windowed report figures.
type Reporter interface {
	Report(ctx context.Context, dataset string, start, end time.Time, bbox *models.BoundingBox) (upstream.ReportTotals, error)
}

// VesselSnapshots serves the cached presence aggregate.
type VesselSnapshots interface {
	FetchVessels(ctx context.Context, path string) (upstream.VesselSnapshot, error)
	Configured() bool
}

// Sources are the upstreams available to the ladders. Nil entries drop
// their tier.
type Sources struct {
	Direct   Aggregator
	Proxy    Aggregator
	Reports  Reporter
	Snapshot VesselSnapshots
}

// Options configures a Service.
type Options struct {
	WindowHours  int
	SnapshotPath string
	AreaKm2      float64

	// Regions maps region names to the box sent with their reports.
	Regions map[string]models.BoundingBox

	Now func() time.Time
}

// Service resolves presence and KPI reports.
type Service struct {
	orch    *tier.Orchestrator
	sources Sources
	gen     *synthetic.Generator
	opts    Options
}

// NewService creates a report service.
func NewService(orch *tier.Orchestrator, sources Sources, gen *synthetic.Generator, opts Options) *Service {
	if opts.WindowHours <= 0 {
		opts.WindowHours = 24
	}
	if opts.AreaKm2 <= 0 {
		opts.AreaKm2 = synthetic.DefaultAreaKm2
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{orch: orch, sources: sources, gen: gen, opts: opts}
}

// PresenceTiers returns the presence ladder in rank order.
func (s *Service) PresenceTiers() []tier.SourceTier[models.DataRequest, models.Report] {
	var tiers []tier.SourceTier[models.DataRequest, models.Report]
	if s.sources.Direct != nil {
		tiers = append(tiers, tier.SourceTier[models.DataRequest, models.Report]{
			Rank: 1, Kind: tier.KindLivePrimary, Name: TierDirect,
			Fetch: s.liveFetch(s.sources.Direct, models.SourceGFWAPI, models.APIStatusConnected),
		})
	}
	if s.sources.Proxy != nil {
		tiers = append(tiers, tier.SourceTier[models.DataRequest, models.Report]{
			Rank: 2, Kind: tier.KindLiveSecondary, Name: TierProxy,
			Fetch: s.liveFetch(s.sources.Proxy, models.SourceGFWProxy, models.APIStatusProxied),
		})
	}
	if s.sources.Snapshot != nil && s.sources.Snapshot.Configured() {
		tiers = append(tiers, tier.SourceTier[models.DataRequest, models.Report]{
			Rank: 3, Kind: tier.KindCached, Name: TierSnapshot, Fetch: s.fetchSnapshot,
		})
	}
	return append(tiers, tier.SourceTier[models.DataRequest, models.Report]{
		Rank: 4, Kind: tier.KindSynthetic, Name: TierSynthetic, Fetch: s.fetchSimulated,
	})
}

// GetPresence returns the vessel presence report for req.
func (s *Service) GetPresence(ctx context.Context, req models.DataRequest) models.Report {
	ctx = token.WithRequestScope(ctx)
	res := tier.Resolve(ctx, s.orch, DomainPresence, req, s.PresenceTiers())
	logDiagnostics(ctx, DomainPresence, res.Diagnostics)

	rep := res.Payload
	if res.Err != nil {
		logging.Ctx(ctx).Warn().Err(res.Err).Msg("presence ladder produced no payload, simulating")
		rep = s.gen.Vessels(s.opts.WindowHours)
	}
	if res.Err != nil || res.TierKind == tier.KindSynthetic {
		rep.APIStatus = FailureStatus(&res)
	}
	return rep
}

// FailureStatus renders api_status for a ladder that ended in simulation:
// error_<status> from the last live tier that saw an HTTP response, else
// connection_failed.
func FailureStatus[T any](res *tier.Result[T]) string {
	if d, ok := res.LastLiveDiagnostic(); ok && d.Status > 0 {
		return fmt.Sprintf("error_%d", d.Status)
	}
	return models.APIStatusConnectionFailed
}

func (s *Service) liveFetch(src Aggregator, dataSource, apiStatus string) func(context.Context, models.DataRequest) (models.Report, error) {
	return func(ctx context.Context, req models.DataRequest) (models.Report, error) {
		totals, err := src.Aggregate(ctx, req)
		if err != nil {
			return models.Report{}, err
		}
		return models.Report{
			VesselCount:   totals.VesselCount,
			TotalHours:    totals.TotalHours,
			WindowHours:   s.windowHours(req),
			DensityPerKm2: round(float64(totals.VesselCount)/s.opts.AreaKm2, 5),
			UpdatedAt:     s.opts.Now().UTC(),
			DataSource:    dataSource,
			APIStatus:     apiStatus,
		}, nil
	}
}

func (s *Service) fetchSnapshot(ctx context.Context, req models.DataRequest) (models.Report, error) {
	snap, err := s.sources.Snapshot.FetchVessels(ctx, s.opts.SnapshotPath)
	if err != nil {
		return models.Report{}, err
	}
	age := int(math.Round(snap.Age(s.opts.Now()).Hours()))
	if age < 0 {
		age = 0
	}
	return models.Report{
		VesselCount:   snap.Totals.VesselCount,
		TotalHours:    snap.Totals.TotalHours,
		WindowHours:   s.windowHours(req),
		DensityPerKm2: round(float64(snap.Totals.VesselCount)/s.opts.AreaKm2, 5),
		UpdatedAt:     snap.LastUpdated.UTC(),
		DataSource:    models.SourceGFWCache,
		APIStatus:     models.APIStatusUsingCache,
		CacheAgeHours: &age,
	}, nil
}

func (s *Service) fetchSimulated(_ context.Context, _ models.DataRequest) (models.Report, error) {
	return s.gen.Vessels(s.opts.WindowHours), nil
}

func (s *Service) windowHours(req models.DataRequest) int {
	if h := int(req.Window.Duration() / time.Hour); h > 0 {
		return h
	}
	return s.opts.WindowHours
}

// KPITiers returns the KPI ladder. The proxy and snapshot carry no report
// figures, so the ladder is the direct report then simulation.
func (s *Service) KPITiers() []tier.SourceTier[models.KPIRequest, models.KPIReport] {
	var tiers []tier.SourceTier[models.KPIRequest, models.KPIReport]
	if s.sources.Reports != nil {
		tiers = append(tiers, tier.SourceTier[models.KPIRequest, models.KPIReport]{
			Rank: 1, Kind: tier.KindLivePrimary, Name: TierReport, Fetch: s.fetchKPI,
		})
	}
	return append(tiers, tier.SourceTier[models.KPIRequest, models.KPIReport]{
		Rank: 2, Kind: tier.KindSynthetic, Name: TierSynthetic,
		Fetch: func(_ context.Context, req models.KPIRequest) (models.KPIReport, error) {
			return s.gen.KPIReport(req), nil
		},
	})
}

// GetReport returns the KPI report for req.
func (s *Service) GetReport(ctx context.Context, req models.KPIRequest) models.KPIReport {
	ctx = token.WithRequestScope(ctx)
	res := tier.Resolve(ctx, s.orch, DomainKPI, req, s.KPITiers())
	logDiagnostics(ctx, DomainKPI, res.Diagnostics)

	rep := res.Payload
	if res.Err != nil {
		rep = s.gen.KPIReport(req)
	}
	if res.Err != nil || res.TierKind == tier.KindSynthetic {
		rep.APIStatus = FailureStatus(&res)
	}
	return rep
}

func (s *Service) fetchKPI(ctx context.Context, req models.KPIRequest) (models.KPIReport, error) {
	var bbox *models.BoundingBox
	if b, ok := s.opts.Regions[strings.ToLower(req.Region)]; ok {
		bbox = &b
	}
	totals, err := s.sources.Reports.Report(ctx, req.Dataset, req.StartDate, req.EndDate, bbox)
	if err != nil {
		return models.KPIReport{}, err
	}
	return s.mergeKPI(req, totals), nil
}

// mergeKPI fills figures the report omitted from the estimate. The
// activity score is always estimated; the API has no equivalent.
func (s *Service) mergeKPI(req models.KPIRequest, t upstream.ReportTotals) models.KPIReport {
	est := s.gen.KPI()

	summary := models.KPISummary{
		VesselCount:   est.VesselCount,
		PresenceHours: est.PresenceHours,
		UniqueVessels: est.UniqueVessels,
		Region:        req.Region,
		Period:        synthetic.Period(req),
	}
	metrics := models.KPIMetrics{
		AvgPresencePerVessel: est.AvgPresence,
		DensityPerKm2:        est.DensityPerKm2,
		FishingActivityScore: est.ActivityScore,
	}

	if t.PresenceHours != nil && *t.PresenceHours > 0 {
		summary.VesselCount = int(math.Round(*t.PresenceHours / 24))
		summary.PresenceHours = *t.PresenceHours
	}
	if t.UniqueVessels != nil && *t.UniqueVessels > 0 {
		summary.UniqueVessels = int(math.Round(*t.UniqueVessels))
		if t.PresenceHours != nil && *t.PresenceHours > 0 {
			metrics.AvgPresencePerVessel = round(*t.PresenceHours / *t.UniqueVessels, 1)
		}
	}
	if t.DensityPerKm2 != nil {
		metrics.DensityPerKm2 = *t.DensityPerKm2
	}

	return models.KPIReport{
		Summary: summary,
		Metrics: metrics,
		RawData: models.KPIRawData{
			Dataset:    req.Dataset,
			APIVersion: "v3",
			DataSource: models.SourceGFWAPI,
		},
		APIStatus: models.APIStatusConnected,
		UpdatedAt: s.opts.Now().UTC(),
	}
}

func logDiagnostics(ctx context.Context, domain string, diags []tier.Diagnostic) {
	log := logging.Ctx(ctx)
	for _, d := range diags {
		log.Debug().
			Str("domain", domain).
			Str("tier", d.Tier).
			Str("outcome", string(d.Kind)).
			Int("status", d.Status).
			Dur("duration", d.Duration).
			Str("detail", d.Detail).
			Msg("report tier did not answer")
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
