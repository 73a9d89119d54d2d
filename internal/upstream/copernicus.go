// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package upstream

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/tier"
)

const (
	// previewLen bounds body previews returned by diagnostics.
	previewLen = 400

	defaultSearchLimit = 20
	defaultCatalogTop  = 10
	odataTime          = "2006-01-02T15:04:05.000Z"
)

// CopernicusOptions configures the Copernicus Data Space client.
type CopernicusOptions struct {
	STACURL     string
	ODataURL    string
	UserinfoURL string
	Collections []string
	SearchLimit int
	Now         func() time.Time
}

// Copernicus talks to the Copernicus Data Space STAC and OData catalogs.
type Copernicus struct {
	client *Client
	tokens TokenSource
	opts   CopernicusOptions
}

// NewCopernicus creates a Copernicus client.
func NewCopernicus(client *Client, tokens TokenSource, opts CopernicusOptions) *Copernicus {
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Copernicus{client: client, tokens: tokens, opts: opts}
}

// Configured reports whether any Copernicus credential is available.
func (c *Copernicus) Configured() bool {
	return c.tokens.Configured(ProviderCopernicus)
}

type stacSort struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

type stacSearch struct {
	BBox        [4]float64 `json:"bbox"`
	Datetime    string     `json:"datetime"`
	Limit       int        `json:"limit"`
	Collections []string   `json:"collections,omitempty"`
	SortBy      []stacSort `json:"sortby"`
}

// STACItem is one search hit. Raw keeps the GeoJSON feature for the
// normalizer; Collection and Title identify the sensor.
type STACItem struct {
	Collection string
	Title      string
	Raw        map[string]interface{}
}

func (c *Copernicus) stacBody(bbox models.BoundingBox, window models.TimeWindow, limit int) ([]byte, error) {
	if limit <= 0 || limit > c.opts.SearchLimit {
		limit = c.opts.SearchLimit
	}
	return json.Marshal(stacSearch{
		BBox:        bbox.Array(),
		Datetime:    window.Start.UTC().Format(time.RFC3339) + "/" + window.End.UTC().Format(time.RFC3339),
		Limit:       limit,
		Collections: c.opts.Collections,
		SortBy:      []stacSort{{Field: "datetime", Direction: "desc"}},
	})
}

// SearchSTAC runs a STAC item search for the request box and window.
func (c *Copernicus) SearchSTAC(ctx context.Context, req models.DataRequest) ([]STACItem, error) {
	body, err := c.stacBody(req.BBox, req.Window, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("encode stac search: %w", err)
	}

	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		Method:      http.MethodPost,
		URL:         c.opts.STACURL,
		Body:        body,
		ContentType: "application/json",
		Accept:      "application/geo+json, application/json",
	})
	if err != nil {
		return nil, err
	}
	return parseSTAC(resp.Body)
}

func parseSTAC(raw []byte) ([]STACItem, error) {
	var doc struct {
		Features *[]map[string]interface{} `json:"features"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: stac response: %v", tier.ErrSchemaMismatch, err)
	}
	if doc.Features == nil {
		return nil, fmt.Errorf("%w: stac response has no features", tier.ErrSchemaMismatch)
	}

	items := make([]STACItem, 0, len(*doc.Features))
	for _, f := range *doc.Features {
		item := STACItem{Raw: f}
		item.Collection, _ = f["collection"].(string)
		if props, ok := f["properties"].(map[string]interface{}); ok {
			item.Title, _ = props["title"].(string)
		}
		items = append(items, item)
	}
	return items, nil
}

// CatalogProduct is one OData catalog entry.
type CatalogProduct struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	Online      bool   `json:"Online"`
	ContentDate struct {
		Start string `json:"Start"`
		End   string `json:"End"`
	} `json:"ContentDate"`
}

func (c *Copernicus) catalogQuery(bbox models.BoundingBox, since time.Time, top int) url.Values {
	if top <= 0 {
		top = defaultCatalogTop
	}
	filter := fmt.Sprintf("contains(Name,'S3') and ContentDate/Start gt %s and OData.CSC.Intersects(area=geography'%s')",
		since.UTC().Format(odataTime), bbox.WKTPolygon())
	return url.Values{
		"$filter":  {filter},
		"$orderby": {"ContentDate/Start desc"},
		"$top":     {strconv.Itoa(top)},
	}
}

// QueryCatalog lists Sentinel-3 products intersecting bbox since the given
// time, newest first.
func (c *Copernicus) QueryCatalog(ctx context.Context, bbox models.BoundingBox, since time.Time, top int) ([]CatalogProduct, error) {
	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		URL:    c.opts.ODataURL,
		Query:  c.catalogQuery(bbox, since, top),
		Accept: "application/json",
	})
	if err != nil {
		return nil, err
	}

	var doc struct {
		Value *[]CatalogProduct `json:"value"`
	}
	if err := json.Unmarshal(resp.Body, &doc); err != nil {
		return nil, fmt.Errorf("%w: catalog response: %v", tier.ErrSchemaMismatch, err)
	}
	if doc.Value == nil {
		return nil, fmt.Errorf("%w: catalog response has no value array", tier.ErrSchemaMismatch)
	}
	return *doc.Value, nil
}

// Probe is the result of a diagnostic call.
type Probe struct {
	Status   int           `json:"status"`
	OK       bool          `json:"ok"`
	Count    int           `json:"count"`
	Preview  string        `json:"preview,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

func newProbe(resp *Response, started time.Time) Probe {
	p := Probe{
		Status:   resp.Status,
		OK:       resp.Status >= 200 && resp.Status <= 299,
		Preview:  preview(resp.Body),
		Duration: time.Since(started),
	}
	return p
}

func preview(b []byte) string {
	if len(b) > previewLen {
		b = b[:previewLen]
	}
	return string(b)
}

// Ping asks the catalog for a single product.
func (c *Copernicus) Ping(ctx context.Context) (Probe, error) {
	started := time.Now()
	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		URL:       c.opts.ODataURL,
		Query:     url.Values{"$top": {"1"}},
		Accept:    "application/json",
		AnyStatus: true,
	})
	if err != nil {
		return Probe{}, err
	}
	return newProbe(resp, started), nil
}

// ProbeCatalog runs the catalog query over the last days and reports the
// hit count without failing on non-2xx.
func (c *Copernicus) ProbeCatalog(ctx context.Context, bbox models.BoundingBox, days int) (Probe, error) {
	started := time.Now()
	since := c.opts.Now().AddDate(0, 0, -days)
	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		URL:       c.opts.ODataURL,
		Query:     c.catalogQuery(bbox, since, defaultCatalogTop),
		Accept:    "application/json",
		AnyStatus: true,
	})
	if err != nil {
		return Probe{}, err
	}
	p := newProbe(resp, started)
	if p.OK {
		var doc struct {
			Value []json.RawMessage `json:"value"`
		}
		if json.Unmarshal(resp.Body, &doc) == nil {
			p.Count = len(doc.Value)
		}
	}
	return p, nil
}

// ProbeSTAC runs a one-item STAC search over the last days.
func (c *Copernicus) ProbeSTAC(ctx context.Context, bbox models.BoundingBox, days int) (Probe, error) {
	started := time.Now()
	now := c.opts.Now()
	body, err := c.stacBody(bbox, models.TimeWindow{Start: now.AddDate(0, 0, -days), End: now}, 1)
	if err != nil {
		return Probe{}, fmt.Errorf("encode stac search: %w", err)
	}
	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		Method:      http.MethodPost,
		URL:         c.opts.STACURL,
		Body:        body,
		ContentType: "application/json",
		Accept:      "application/geo+json, application/json",
		AnyStatus:   true,
	})
	if err != nil {
		return Probe{}, err
	}
	p := newProbe(resp, started)
	if p.OK {
		if items, err := parseSTAC(resp.Body); err == nil {
			p.Count = len(items)
		}
	}
	return p, nil
}

// UserInfoStatus summarizes the identity provider's view of the token.
// Claim values are never returned, only their names.
type UserInfoStatus struct {
	Status    int      `json:"status"`
	Subject   string   `json:"subject,omitempty"`
	ClaimKeys []string `json:"claim_keys,omitempty"`
}

// UserInfo calls the OIDC userinfo endpoint with the current token.
func (c *Copernicus) UserInfo(ctx context.Context) (UserInfoStatus, error) {
	resp, err := authorizedDo(ctx, c.client, c.tokens, ProviderCopernicus, Request{
		URL:       c.opts.UserinfoURL,
		Accept:    "application/json",
		AnyStatus: true,
	})
	if err != nil {
		return UserInfoStatus{}, err
	}
	status := UserInfoStatus{Status: resp.Status}
	if resp.Status < 200 || resp.Status > 299 {
		return status, nil
	}

	var info oidc.UserInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return status, fmt.Errorf("%w: userinfo: %v", tier.ErrSchemaMismatch, err)
	}
	status.Subject = info.Subject

	var claims map[string]json.RawMessage
	if err := json.Unmarshal(resp.Body, &claims); err == nil {
		for k := range claims {
			status.ClaimKeys = append(status.ClaimKeys, k)
		}
		sort.Strings(status.ClaimKeys)
	}
	return status, nil
}
