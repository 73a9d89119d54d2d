// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

// Package tiles serves heatmap raster tiles. Every call that gets past
// construction yields a decodable PNG: upstream failures of any kind
// degrade to a transparent 1x1 image.
package tiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tidegate/internal/cache"
	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/metrics"
	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/token"
	"github.com/tomtom215/tidegate/internal/upstream"
)

// Defaults applied when Options leaves a field zero.
const (
	DefaultStyleTTL = time.Hour
	DefaultTileTTL  = 5 * time.Minute
	DefaultTimeout  = 10 * time.Second
)

// Cache-Control values by tile source.
const (
	CacheControlSuccess  = "public, max-age=300"
	CacheControlFallback = "public, max-age=60"
)

// ContentTypePNG is the only content type the gateway serves.
const ContentTypePNG = "image/png"

// Upstream is the 4Wings surface the gateway needs. *upstream.GFW
// implements it.
type Upstream interface {
	KnownDataset(dataset string) bool
	GenerateStyle(ctx context.Context, sr upstream.StyleRequest) (string, error)
	Tile(ctx context.Context, tr models.TileRequest, styleID string, bbox *models.BoundingBox) ([]byte, error)
}

// Options configures a Gateway.
type Options struct {
	StyleTTL        time.Duration
	TileTTL         time.Duration
	Timeout         time.Duration
	JanitorInterval time.Duration

	// Regions maps region names to the box sent with their tile requests.
	Regions map[string]models.BoundingBox

	Now func() time.Time
}

// Gateway resolves tiles against the upstream with style and raster
// caches in front.
type Gateway struct {
	upstream Upstream
	styles   *cache.TTL[string]
	tiles    *cache.ByteStore
	fallback []byte
	inflight singleflight.Group
	timeout  time.Duration
	regions  map[string]models.BoundingBox
	now      func() time.Time
}

// NewGateway builds the gateway and its caches. It fails only when the
// fallback image cannot be produced or the tile store cannot open.
func NewGateway(up Upstream, opts Options) (*Gateway, error) {
	if opts.StyleTTL <= 0 {
		opts.StyleTTL = DefaultStyleTTL
	}
	if opts.TileTTL <= 0 {
		opts.TileTTL = DefaultTileTTL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	fallback, err := transparentPNG()
	if err != nil {
		return nil, err
	}
	store, err := cache.NewByteStore(opts.TileTTL)
	if err != nil {
		return nil, fmt.Errorf("tile cache: %w", err)
	}

	var cacheOpts []cache.Option
	if opts.JanitorInterval > 0 {
		cacheOpts = append(cacheOpts, cache.WithJanitorInterval(opts.JanitorInterval))
	}

	return &Gateway{
		upstream: up,
		styles:   cache.NewTTL[string]("styles", opts.StyleTTL, cacheOpts...),
		tiles:    store,
		fallback: fallback,
		timeout:  opts.Timeout,
		regions:  opts.Regions,
		now:      opts.Now,
	}, nil
}

// StyleCache exposes the style cache so its janitor can be supervised.
func (g *Gateway) StyleCache() *cache.TTL[string] {
	return g.styles
}

// Fallback returns a copy of the transparent tile.
func (g *Gateway) Fallback() models.TileRaster {
	data := make([]byte, len(g.fallback))
	copy(data, g.fallback)
	return models.TileRaster{Data: data, ContentType: ContentTypePNG, Source: models.TileSourceFallback}
}

// GetTile returns the tile for req. The error is always nil once the
// gateway is constructed; it is kept so callers treat tile production like
// any other fallible call.
func (g *Gateway) GetTile(ctx context.Context, req models.TileRequest) (models.TileRaster, error) {
	raster := g.resolve(token.WithRequestScope(ctx), req)
	metrics.RecordTileServed(string(raster.Source))
	return raster, nil
}

func (g *Gateway) resolve(ctx context.Context, req models.TileRequest) models.TileRaster {
	log := logging.Ctx(ctx).With().
		Str("dataset", req.Dataset).
		Int("z", req.Z).Int("x", req.X).Int("y", req.Y).
		Logger()

	if !req.InRange() {
		log.Debug().Msg("tile coordinates out of range, serving fallback")
		return g.Fallback()
	}
	if !g.upstream.KnownDataset(req.Dataset) {
		log.Debug().Msg("unknown tile dataset, serving fallback")
		return g.Fallback()
	}

	styleID := g.styleFor(ctx, req)

	key := req.TileKey(styleID)
	if data, ok, err := g.tiles.Get(key); err != nil {
		log.Warn().Err(err).Msg("tile cache read failed")
	} else if ok {
		metrics.TileCacheHits.Inc()
		return models.TileRaster{Data: data, ContentType: ContentTypePNG, Source: models.TileSourceCache, StyleID: styleID}
	}
	metrics.TileCacheMisses.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, err := g.upstream.Tile(fetchCtx, req, styleID, g.regionBox(req.Region))
	if err == nil {
		_, err = decodePNG(data)
	}
	if err != nil {
		log.Warn().Err(err).Msg("tile fetch failed, serving fallback")
		return g.Fallback()
	}

	if err := g.tiles.Set(key, data); err != nil {
		log.Warn().Err(err).Msg("tile cache write failed")
	}
	return models.TileRaster{Data: data, ContentType: ContentTypePNG, Source: models.TileSourceUpstream, StyleID: styleID}
}

// styleFor returns the supplied style, a cached one, or a freshly
// generated one. An empty string means the tile is fetched unstyled.
func (g *Gateway) styleFor(ctx context.Context, req models.TileRequest) string {
	if req.StyleID != "" {
		return req.StyleID
	}
	if id, ok := g.styles.Get(req.StyleKey()); ok {
		return id
	}
	id, err := g.generate(ctx, req)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("dataset", req.Dataset).Msg("style generation failed, fetching unstyled tile")
		return ""
	}
	return id
}

// generate asks the upstream for a style. Concurrent misses for the same
// style key share one generation; it runs detached from the first caller
// so a cancelled request does not fail the others.
func (g *Gateway) generate(ctx context.Context, req models.TileRequest) (string, error) {
	key := req.StyleKey()
	ch := g.inflight.DoChan(key, func() (interface{}, error) {
		if id, ok := g.styles.Get(key); ok {
			return id, nil
		}

		genCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()

		id, err := g.upstream.GenerateStyle(genCtx, upstream.StyleRequest{
			Dataset:   req.Dataset,
			StartDate: req.StartDate,
			EndDate:   req.EndDate,
			Region:    req.Region,
		})
		if err != nil {
			metrics.StyleGenerations.WithLabelValues("error").Inc()
			return "", err
		}
		metrics.StyleGenerations.WithLabelValues("success").Inc()
		g.styles.Set(key, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		id, _ := res.Val.(string)
		return id, nil
	}
}

func (g *Gateway) regionBox(region string) *models.BoundingBox {
	if b, ok := g.regions[strings.ToLower(region)]; ok {
		return &b
	}
	return nil
}

// StyleHandle describes a generated style and how to request tiles with it.
type StyleHandle struct {
	StyleID      string            `json:"styleId"`
	Status       string            `json:"status"`
	Dataset      string            `json:"dataset"`
	Period       map[string]string `json:"period"`
	Region       string            `json:"region"`
	TileTemplate string            `json:"tile_template"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Error        string            `json:"error,omitempty"`
}

// ErrUnknownDataset is reported in a StyleHandle for datasets the gateway
// does not serve.
var ErrUnknownDataset = errors.New("unknown dataset")

// Style generates (or reuses) a style handle for req and returns a tile
// URL template. Failures yield status "fallback" and an unstyled template.
func (g *Gateway) Style(ctx context.Context, req models.TileRequest) StyleHandle {
	ctx = token.WithRequestScope(ctx)
	h := StyleHandle{
		Dataset:     req.Dataset,
		Period:      map[string]string{"start": req.StartDate, "end": req.EndDate},
		Region:      req.Region,
		GeneratedAt: g.now().UTC(),
	}

	var err error
	switch {
	case !g.upstream.KnownDataset(req.Dataset):
		err = fmt.Errorf("%w: %s", ErrUnknownDataset, req.Dataset)
	default:
		if id, ok := g.styles.Get(req.StyleKey()); ok {
			h.StyleID, h.Status = id, "cached"
		} else if h.StyleID, err = g.generate(ctx, req); err == nil {
			h.Status = "generated"
		}
	}
	if err != nil {
		h.Status = "fallback"
		h.Error = err.Error()
	}
	h.TileTemplate = tileTemplate(req, h.StyleID)
	return h
}

func tileTemplate(req models.TileRequest, styleID string) string {
	q := url.Values{}
	if styleID != "" {
		q.Set("styleId", styleID)
	}
	if req.StartDate != "" {
		q.Set("start-date", req.StartDate)
	}
	if req.EndDate != "" {
		q.Set("end-date", req.EndDate)
	}
	if req.Region != "" {
		q.Set("region", req.Region)
	}
	tmpl := "/gfw/4wings/tile/heatmap/" + url.PathEscape(req.Dataset) + "/{z}/{x}/{y}.png"
	if enc := q.Encode(); enc != "" {
		tmpl += "?" + enc
	}
	return tmpl
}

// CacheControl returns the Cache-Control header for a tile source.
func CacheControl(source models.TileSource) string {
	if source == models.TileSourceFallback {
		return CacheControlFallback
	}
	return CacheControlSuccess
}

// Close releases both caches.
func (g *Gateway) Close() error {
	styleErr := g.styles.Close()
	tileErr := g.tiles.Close()
	return errors.Join(styleErr, tileErr)
}
