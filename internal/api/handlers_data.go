// Tidegate - Marine Data Acquisition Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tidegate

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RealtimeData serves the ocean aggregate.
//
// @Router /realtime/data [get]
func (h *Handler) RealtimeData(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseOceanRequest(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, h.deps.Ocean.Realtime(r.Context(), req))
}

// VesselPresence serves the vessel presence report.
//
// @Router /api/gfw/vessel-presence [get]
func (h *Handler) VesselPresence(w http.ResponseWriter, r *http.Request) {
	req, err := h.parsePresenceRequest(r)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, h.deps.Reports.GetPresence(r.Context(), req))
}

// Report serves the KPI report. The dataset comes from the path or, on
// the /api alias, from ?dataset=.
//
// @Router /gfw/4wings/report/{dataset} [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	dataset := chi.URLParam(r, "dataset")
	if dataset == "" {
		dataset = r.URL.Query().Get("dataset")
	}
	req, err := h.parseKPIRequest(r, dataset)
	if err != nil {
		writeRequestError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, h.deps.Reports.GetReport(r.Context(), req))
}
