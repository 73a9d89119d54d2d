// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package upstream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/tier"
)

// GFWOptions configures the Global Fishing Watch client.
type GFWOptions struct {
	APIURL          string
	PresenceDataset string
	ReportDataset   string
	TileDatasets    []string
}

// GFW talks to the 4Wings API directly with a bearer token.
type GFW struct {
	client *Client
	tokens TokenSource
	opts   GFWOptions
}

// NewGFW creates a Global Fishing Watch client.
func NewGFW(client *Client, tokens TokenSource, opts GFWOptions) *GFW {
	opts.APIURL = strings.TrimRight(opts.APIURL, "/")
	return &GFW{client: client, tokens: tokens, opts: opts}
}

// Configured reports whether an API token is available.
func (g *GFW) Configured() bool {
	return g.tokens.Configured(ProviderGFW)
}

// Options returns the client's configuration.
func (g *GFW) Options() GFWOptions {
	return g.opts
}

// KnownDataset reports whether tiles may be requested for dataset.
func (g *GFW) KnownDataset(dataset string) bool {
	for _, d := range g.opts.TileDatasets {
		if d == dataset {
			return true
		}
	}
	return false
}

// PresenceTotals sums an aggregate response.
type PresenceTotals struct {
	VesselCount int
	TotalHours  float64
	Features    int
}

func aggregateQuery(dataset string, bbox models.BoundingBox, window models.TimeWindow) url.Values {
	start, end := dateRange(window.Start, window.End)
	return url.Values{
		"dataset":             {dataset},
		"start-date":          {start},
		"end-date":            {end},
		"bbox":                {bbox.String()},
		"format":              {"json"},
		"spatial-aggregation": {"true"},
	}
}

// Aggregate fetches vessel presence totals for the request box and window.
func (g *GFW) Aggregate(ctx context.Context, req models.DataRequest) (PresenceTotals, error) {
	resp, err := authorizedDo(ctx, g.client, g.tokens, ProviderGFW, Request{
		URL:    g.opts.APIURL + "/4wings/aggregate",
		Query:  aggregateQuery(g.opts.PresenceDataset, req.BBox, req.Window),
		Accept: "application/json",
	})
	if err != nil {
		return PresenceTotals{}, err
	}
	return ParseAggregate(resp.Body)
}

type aggregateFeature struct {
	Properties struct {
		VesselCount *float64 `json:"vessel_count"`
		Hours       *float64 `json:"hours"`
	} `json:"properties"`
}

// ParseAggregate sums vessel_count and hours over a feature collection.
// A recognized response with no vessels is ErrEmptyResult.
func ParseAggregate(raw []byte) (PresenceTotals, error) {
	var doc struct {
		Features *[]aggregateFeature `json:"features"`
		Error    interface{}         `json:"error"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return PresenceTotals{}, fmt.Errorf("%w: aggregate response: %v", tier.ErrSchemaMismatch, err)
	}
	if doc.Features == nil {
		if doc.Error != nil {
			return PresenceTotals{}, tier.NewUpstreamError(0, fmt.Errorf("aggregate reported error: %v", doc.Error))
		}
		return PresenceTotals{}, fmt.Errorf("%w: aggregate response has no features", tier.ErrSchemaMismatch)
	}
	return sumFeatures(*doc.Features)
}

func sumFeatures(features []aggregateFeature) (PresenceTotals, error) {
	var vessels, hours float64
	for _, f := range features {
		if v := f.Properties.VesselCount; v != nil && !math.IsNaN(*v) {
			vessels += *v
		}
		if h := f.Properties.Hours; h != nil && !math.IsNaN(*h) {
			hours += *h
		}
	}
	totals := PresenceTotals{
		VesselCount: int(math.Round(vessels)),
		TotalHours:  math.Round(hours*10) / 10,
		Features:    len(features),
	}
	if totals.VesselCount <= 0 {
		return totals, fmt.Errorf("%w: aggregate reported no vessels", tier.ErrEmptyResult)
	}
	return totals, nil
}

// ReportTotals holds the figures a 4Wings report may carry. Absent figures
// stay nil so callers can fill them from estimates.
type ReportTotals struct {
	PresenceHours *float64 `json:"total_vessel_presence_hours"`
	UniqueVessels *float64 `json:"unique_vessels"`
	DensityPerKm2 *float64 `json:"vessel_presence_density_per_km2"`
}

// Report fetches a windowed KPI report. bbox may be nil for global
// reports.
func (g *GFW) Report(ctx context.Context, dataset string, start, end time.Time, bbox *models.BoundingBox) (ReportTotals, error) {
	s, e := dateRange(start, end)
	q := url.Values{
		"dataset":             {dataset},
		"start-date":          {s},
		"end-date":            {e},
		"format":              {"json"},
		"spatial-aggregation": {"true"},
	}
	if bbox != nil {
		q.Set("bbox", bbox.String())
	}

	resp, err := authorizedDo(ctx, g.client, g.tokens, ProviderGFW, Request{
		URL:    g.opts.APIURL + "/4wings/report",
		Query:  q,
		Accept: "application/json",
	})
	if err != nil {
		return ReportTotals{}, err
	}

	var totals ReportTotals
	if err := json.Unmarshal(resp.Body, &totals); err != nil {
		return ReportTotals{}, fmt.Errorf("%w: report response: %v", tier.ErrSchemaMismatch, err)
	}
	if totals.PresenceHours == nil && totals.UniqueVessels == nil && totals.DensityPerKm2 == nil {
		return ReportTotals{}, fmt.Errorf("%w: report carries no figures", tier.ErrEmptyResult)
	}
	return totals, nil
}

// StyleRequest asks 4Wings for a heatmap style.
type StyleRequest struct {
	Dataset   string
	StartDate string
	EndDate   string
	Region    string
}

type stylePayload struct {
	Datasets           []string `json:"datasets"`
	StartDate          string   `json:"start-date,omitempty"`
	EndDate            string   `json:"end-date,omitempty"`
	SpatialAggregation bool     `json:"spatial-aggregation"`
	TimeAggregation    bool     `json:"time-aggregation"`
	Region             string   `json:"region,omitempty"`
	ColorRamp          string   `json:"color-ramp"`
	ZoomLevel          int      `json:"zoom-level"`
}

// regionCodes maps dashboard region names to 4Wings region ids.
var regionCodes = map[string]string{
	"angola": "eez:AGO",
}

// GenerateStyle requests a style handle for dataset and period.
func (g *GFW) GenerateStyle(ctx context.Context, sr StyleRequest) (string, error) {
	body, err := json.Marshal(stylePayload{
		Datasets:           []string{sr.Dataset},
		StartDate:          sr.StartDate,
		EndDate:            sr.EndDate,
		SpatialAggregation: true,
		TimeAggregation:    true,
		Region:             regionCodes[sr.Region],
		ColorRamp:          "presence",
		ZoomLevel:          5,
	})
	if err != nil {
		return "", fmt.Errorf("encode style request: %w", err)
	}

	resp, err := authorizedDo(ctx, g.client, g.tokens, ProviderGFW, Request{
		Method:      http.MethodPost,
		URL:         g.opts.APIURL + "/4wings/styles",
		Body:        body,
		ContentType: "application/json",
		Accept:      "application/json",
	})
	if err != nil {
		return "", err
	}

	var doc struct {
		ID interface{} `json:"id"`
	}
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return "", fmt.Errorf("%w: style response: %v", tier.ErrSchemaMismatch, err)
	}
	switch id := doc.ID.(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("%w: style response has no id", tier.ErrSchemaMismatch)
}

// ErrUnknownDataset is returned for tiles of datasets outside the
// configured list.
var ErrUnknownDataset = errors.New("unknown dataset")

// Tile fetches one heatmap tile. The body is returned undecoded.
func (g *GFW) Tile(ctx context.Context, tr models.TileRequest, styleID string, bbox *models.BoundingBox) ([]byte, error) {
	if !g.KnownDataset(tr.Dataset) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, tr.Dataset)
	}
	q := url.Values{
		"datasets": {tr.Dataset},
		"format":   {"png"},
	}
	if tr.StartDate != "" {
		q.Set("start-date", tr.StartDate)
	}
	if tr.EndDate != "" {
		q.Set("end-date", tr.EndDate)
	}
	if styleID != "" {
		q.Set("styleId", styleID)
	}
	if bbox != nil {
		q.Set("spatial-aggregation", "true")
		q.Set("bbox", bbox.String())
	}

	resp, err := authorizedDo(ctx, g.client, g.tokens, ProviderGFW, Request{
		URL:    fmt.Sprintf("%s/4wings/tile/heatmap/%d/%d/%d", g.opts.APIURL, tr.Z, tr.X, tr.Y),
		Query:  q,
		Accept: "image/png",
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Proxy reaches the 4Wings aggregate through the unauthenticated proxy
// deployment.
type Proxy struct {
	client  *Client
	baseURL string
	dataset string
}

// NewProxy creates a proxy client. baseURL is the proxy origin.
func NewProxy(client *Client, baseURL, dataset string) *Proxy {
	return &Proxy{client: client, baseURL: strings.TrimRight(baseURL, "/"), dataset: dataset}
}

// Aggregate fetches presence totals through the proxy.
func (p *Proxy) Aggregate(ctx context.Context, req models.DataRequest) (PresenceTotals, error) {
	resp, err := p.client.Do(ctx, Request{
		URL:    p.baseURL + "/gfw/4wings/aggregate",
		Query:  aggregateQuery(p.dataset, req.BBox, req.Window),
		Accept: "application/json",
	})
	if err != nil {
		return PresenceTotals{}, err
	}
	return ParseAggregate(resp.Body)
}
