// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/tidegate/internal/models"
	"github.com/tomtom215/tidegate/internal/validation"
)

const (
	dateLayout        = "2006-01-02"
	defaultOceanLimit = 20
)

// parseBBox reads ?bbox=minLon,minLat,maxLon,maxLat, defaulting to the
// configured region.
func (h *Handler) parseBBox(r *http.Request) (models.BoundingBox, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("bbox"))
	if raw == "" {
		return h.defaultBBox(), nil
	}
	bbox, err := models.ParseBoundingBox(raw)
	if err != nil {
		return bbox, fmt.Errorf("invalid bbox: %w", err)
	}
	if verr := validation.ValidateStruct(bbox); verr != nil {
		return bbox, verr
	}
	return bbox, nil
}

func parseTime(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return t, fmt.Errorf("invalid %s: must be RFC3339", key)
	}
	return t.UTC(), nil
}

// parseOceanRequest reads bbox, start, end and limit.
func (h *Handler) parseOceanRequest(r *http.Request) (models.DataRequest, error) {
	bbox, err := h.parseBBox(r)
	if err != nil {
		return models.DataRequest{}, err
	}

	now := h.now().UTC()
	lookback := time.Duration(h.config.Copernicus.LookbackDays) * 24 * time.Hour
	req := models.NewOceanRequest(bbox, now, lookback, defaultOceanLimit)

	if req.Window.Start, err = parseTime(r, "start", req.Window.Start); err != nil {
		return req, err
	}
	if req.Window.End, err = parseTime(r, "end", req.Window.End); err != nil {
		return req, err
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if req.Limit, err = strconv.Atoi(raw); err != nil {
			return req, fmt.Errorf("invalid limit: %w", err)
		}
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return req, verr
	}
	return req, nil
}

// parsePresenceRequest reads bbox; the window is the configured one.
func (h *Handler) parsePresenceRequest(r *http.Request) (models.DataRequest, error) {
	bbox, err := h.parseBBox(r)
	if err != nil {
		return models.DataRequest{}, err
	}
	window := time.Duration(h.config.GFW.WindowHours) * time.Hour
	return models.NewPresenceRequest(bbox, h.now().UTC(), window), nil
}

func parseDate(r *http.Request, key string, def time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return t, fmt.Errorf("invalid %s: must be YYYY-MM-DD", key)
	}
	return t, nil
}

// parseKPIRequest reads region, start-date and end-date. Defaults are the
// configured region and yesterday through today.
func (h *Handler) parseKPIRequest(r *http.Request, dataset string) (models.KPIRequest, error) {
	if dataset == "" {
		dataset = h.config.GFW.ReportDataset
	}
	today := h.now().UTC().Truncate(24 * time.Hour)
	req := models.KPIRequest{
		Dataset: dataset,
		Region:  r.URL.Query().Get("region"),
	}
	if req.Region == "" {
		req.Region = h.config.Region.Name
	}

	var err error
	if req.StartDate, err = parseDate(r, "start-date", today.AddDate(0, 0, -1)); err != nil {
		return req, err
	}
	if req.EndDate, err = parseDate(r, "end-date", today); err != nil {
		return req, err
	}
	if verr := validation.ValidateStruct(req); verr != nil {
		return req, verr
	}
	return req, nil
}

// parseTileRequest reads tile coordinates and style parameters. Only
// malformed input is an error: coordinates outside the zoom level are
// left for the gateway to answer with the fallback tile.
func (h *Handler) parseTileRequest(r *http.Request, dataset, z, x, y string) (models.TileRequest, error) {
	req := models.TileRequest{
		Dataset:   dataset,
		StartDate: r.URL.Query().Get("start-date"),
		EndDate:   r.URL.Query().Get("end-date"),
		StyleID:   r.URL.Query().Get("styleId"),
		Region:    r.URL.Query().Get("region"),
	}
	var err error
	for _, c := range []struct {
		name string
		raw  string
		dst  *int
	}{{"z", z, &req.Z}, {"x", x, &req.X}, {"y", y, &req.Y}} {
		if *c.dst, err = strconv.Atoi(c.raw); err != nil {
			return req, fmt.Errorf("invalid tile coordinate %s: %q", c.name, c.raw)
		}
	}

	if verr := validation.ValidateStruct(req); verr != nil && !onlyTileRange(verr) {
		return req, verr
	}
	return req, nil
}

func onlyTileRange(verr *validation.RequestValidationError) bool {
	for _, e := range verr.Errors() {
		if e.Tag() != "tilerange" {
			return false
		}
	}
	return true
}

// writeRequestError answers a parse failure with a 400 envelope.
func writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)
	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		rw.ValidationError(verr)
		return
	}
	rw.BadRequest(err.Error())
}
