// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tidegate/internal/logging"
	"github.com/tomtom215/tidegate/internal/tiles"
)

// HeaderTileSource tells clients whether a tile is real or the fallback.
const HeaderTileSource = "X-Tile-Source"

// Tile serves a heatmap tile. Upstream trouble yields the transparent
// fallback with 200; only malformed coordinates are rejected.
//
// @Router /gfw/4wings/tile/heatmap/{dataset}/{z}/{x}/{y}.png [get]
func (h *Handler) Tile(w http.ResponseWriter, r *http.Request) {
	h.serveTile(w, r, chi.URLParam(r, "dataset"))
}

// TileDefault serves a tile of the default dataset.
//
// @Router /gfw/4wings/tile/heatmap/{z}/{x}/{y} [get]
func (h *Handler) TileDefault(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		dataset = h.defaultTileDataset()
	}
	h.serveTile(w, r, dataset)
}

func (h *Handler) serveTile(w http.ResponseWriter, r *http.Request, dataset string) {
	req, err := h.parseTileRequest(r, dataset, chi.URLParam(r, "z"), chi.URLParam(r, "x"), chi.URLParam(r, "y"))
	if err != nil {
		writeRequestError(w, r, err)
		return
	}

	raster, err := h.deps.Tiles.GetTile(r.Context(), req)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("tile fallback unavailable")
		NewResponseWriter(w, r).InternalError("tile fallback unavailable")
		return
	}

	w.Header().Set("Content-Type", raster.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(raster.Data)))
	w.Header().Set("Cache-Control", tiles.CacheControl(raster.Source))
	w.Header().Set(HeaderTileSource, string(raster.Source))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raster.Data)
}

// GeneratePNG returns a style handle and the tile URL template for the
// requested dataset and period.
//
// @Router /gfw/4wings/tile/generate-png [get]
func (h *Handler) GeneratePNG(w http.ResponseWriter, r *http.Request) {
	dataset := r.URL.Query().Get("dataset")
	if dataset == "" {
		dataset = h.defaultTileDataset()
	}
	req, err := h.parseTileRequest(r, dataset, "0", "0", "0")
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, h.deps.Tiles.Style(r.Context(), req))
}

func (h *Handler) defaultTileDataset() string {
	if ds := h.config.GFW.TileDatasets; len(ds) > 0 {
		return ds[0]
	}
	return h.config.GFW.ReportDataset
}
