// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package ocean resolves oceanographic observations through the Copernicus
// ladder: STAC search, OData catalog, last-known-good snapshot, synthetic
// zones. The winner's observations are aggregated into the flat realtime
// summary dashboards poll.
package ocean

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tidegate/internal/aggregate"
	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/normalize"
	"github.com/tomtom215/tidegate/internal/synthetic"
	"github.com/tomtom215/tidegate/internal/tier"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
)

// Domain labels ocean attempts in metrics and events.
const Domain = "ocean"

// Tier names.
const (
	TierSTAC      = "copernicus-stac"
	TierCatalog   = "copernicus-odata"
	TierSnapshot  = "snapshot"
	TierSynthetic = "synthetic"
)

// Source tags reported as data_source for each tier.
const (
	SourceSTAC     = synthetic.SourceSTAC
	SourceCatalog  = synthetic.SourceProcessed
	SourceSnapshot = "copernicus_snapshot"
)

var tierSources = map[string]string{
	TierSTAC:      SourceSTAC,
	TierCatalog:   SourceCatalog,
	TierSnapshot:  SourceSnapshot,
	TierSynthetic: synthetic.SourceSynthetic,
}

// maxSTACItems bounds how many search hits become observations.
const maxSTACItems = 8

// Catalog is the Copernicus search surface the ladder needs.
type Catalog interface {
	SearchSTAC(ctx context.Context, req models.DataRequest) ([]upstream.STACItem, error)
	QueryCatalog(ctx context.Context, bbox models.BoundingBox, since time.Time, top int) ([]upstream.CatalogProduct, error)
}

// SnapshotSource serves last-known-good documents.
type SnapshotSource interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
	Configured() bool
}

// Options configures a Service.
type Options struct {
	SnapshotPath string
	CatalogTop   int
	Now          func() time.Time
}

// Service resolves ocean observations.
type Service struct {
	orch     *tier.Orchestrator
	catalog  Catalog
	snapshot SnapshotSource
	gen      *synthetic.Generator
	opts     Options
}

// NewService creates an ocean service. snapshot may be nil.
func NewService(orch *tier.Orchestrator, catalog Catalog, snapshot SnapshotSource, gen *synthetic.Generator, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CatalogTop <= 0 {
		opts.CatalogTop = 10
	}
	return &Service{orch: orch, catalog: catalog, snapshot: snapshot, gen: gen, opts: opts}
}

// Tiers returns the ladder in rank order. The snapshot tier is present only
// when a snapshot host is configured.
func (s *Service) Tiers() []tier.SourceTier[models.DataRequest, []models.Observation] {
	tiers := []tier.SourceTier[models.DataRequest, []models.Observation]{
		{Rank: 1, Kind: tier.KindLivePrimary, Name: TierSTAC, Fetch: s.fetchSTAC},
		{Rank: 2, Kind: tier.KindLiveSecondary, Name: TierCatalog, Fetch: s.fetchCatalog},
	}
	if s.snapshot != nil && s.snapshot.Configured() {
		tiers = append(tiers, tier.SourceTier[models.DataRequest, []models.Observation]{
			Rank: 3, Kind: tier.KindCached, Name: TierSnapshot, Fetch: s.fetchSnapshot,
		})
	}
	return append(tiers, tier.SourceTier[models.DataRequest, []models.Observation]{
		Rank: 4, Kind: tier.KindSynthetic, Name: TierSynthetic, Fetch: s.fetchSynthetic,
	})
}

// Resolve walks the ladder for req. An auth failure on one Copernicus tier
// is final for the remaining tiers of the same call.
func (s *Service) Resolve(ctx context.Context, req models.DataRequest) tier.Result[[]models.Observation] {
	return tier.Resolve(token.WithRequestScope(ctx), s.orch, Domain, req, s.Tiers())
}

// Realtime resolves req and aggregates the winning observations.
func (s *Service) Realtime(ctx context.Context, req models.DataRequest) models.AggregateResult {
	res := s.Resolve(ctx, req)
	log := logging.Ctx(ctx)

	for _, d := range res.Diagnostics {
		log.Debug().
			Str("domain", Domain).
			Str("tier", d.Tier).
			Str("outcome", string(d.Kind)).
			Int("status", d.Status).
			Dur("duration", d.Duration).
			Str("detail", d.Detail).
			Msg("ocean tier did not answer")
	}

	now := s.opts.Now().UTC()
	if res.Err != nil {
		log.Warn().Err(res.Err).Int("diagnostics", len(res.Diagnostics)).Msg("ocean ladder produced no payload")
		return aggregate.Aggregate(nil, aggregate.Provenance{
			DataSource: "none",
			Status:     models.StatusError,
			Timestamp:  now,
		})
	}

	log.Info().
		Str("tier", res.Tier).
		Int("observations", len(res.Payload)).
		Int("failed_tiers", len(res.Diagnostics)).
		Msg("ocean data resolved")

	return aggregate.Aggregate(res.Payload, aggregate.Provenance{
		DataSource: tierSources[res.Tier],
		Status:     statusFor(res.TierKind),
		Timestamp:  now,
	})
}

func statusFor(k tier.Kind) models.Status {
	switch k {
	case tier.KindLivePrimary, tier.KindLiveSecondary:
		return models.StatusOnline
	case tier.KindCached:
		return models.StatusCache
	case tier.KindSynthetic:
		return models.StatusSimulated
	default:
		return models.StatusError
	}
}

func (s *Service) fetchSTAC(ctx context.Context, req models.DataRequest) ([]models.Observation, error) {
	items, err := s.catalog.SearchSTAC(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(items) > maxSTACItems {
		items = items[:maxSTACItems]
	}

	hint := normalize.Hint{Source: SourceSTAC, Quality: models.QualityMedium, Timestamp: s.opts.Now().UTC()}
	out := make([]models.Observation, 0, len(items))
	for _, item := range items {
		obs, ok := normalize.Record(item.Raw, hint)
		if !ok {
			continue
		}
		if !obs.HasMetrics() {
			s.gen.CatalogEstimate(&obs, isSentinel3(item))
		}
		out = append(out, obs)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %d stac items, none with a position", tier.ErrEmptyResult, len(items))
	}
	return out, nil
}

func isSentinel3(item upstream.STACItem) bool {
	return strings.Contains(strings.ToUpper(item.Collection), "SENTINEL-3") ||
		strings.Contains(strings.ToUpper(item.Title), "SENTINEL-3") ||
		strings.HasPrefix(strings.ToUpper(item.Title), "S3")
}

func (s *Service) fetchCatalog(ctx context.Context, req models.DataRequest) ([]models.Observation, error) {
	products, err := s.catalog.QueryCatalog(ctx, req.BBox, req.Window.Start, s.opts.CatalogTop)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no catalog products in window", tier.ErrEmptyResult)
	}
	return s.gen.ProcessedZones(req.BBox, len(products)), nil
}

func (s *Service) fetchSnapshot(ctx context.Context, req models.DataRequest) ([]models.Observation, error) {
	raw, err := s.snapshot.Fetch(ctx, s.opts.SnapshotPath)
	if err != nil {
		return nil, err
	}
	obs, err := normalize.Normalize(raw, normalize.Hint{
		Source:    SourceSnapshot,
		Quality:   models.QualityMedium,
		Timestamp: s.opts.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	usable := obs[:0]
	for _, o := range obs {
		if o.HasMetrics() {
			usable = append(usable, o)
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: snapshot has no usable records", tier.ErrEmptyResult)
	}
	if req.Limit > 0 && len(usable) > req.Limit {
		usable = usable[:req.Limit]
	}
	return usable, nil
}

func (s *Service) fetchSynthetic(_ context.Context, req models.DataRequest) ([]models.Observation, error) {
	return s.gen.Ocean(req), nil
}
