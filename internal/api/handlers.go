// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package api

import (
	"net/http"
	"strconv"

	"github.com/sigphi/territorium/internal/engine"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/models"
)

// Handler holds the engine the routes call into.
type Handler struct {
	engine   Engine
	ingestor Ingestor
}

// Health reports liveness. Readiness is the store's problem; a broken store
// surfaces as StoreUnavailable on the data routes.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   map[string]string{"status": "ok"},
	})
}

// Aggregate serves the per-unit aggregate frame for one level and filter.
func (h *Handler) Aggregate(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	includeEmpty := r.URL.Query().Get("include_empty") == "true"

	result, err := h.engine.Aggregate(r.Context(), level, filter, includeEmpty)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     result,
		Metadata: models.Metadata{Count: len(result.Rows)},
	})
}

// Compare serves one unit's standing among its peers.
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	unitID, err := parseUnitID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	m, err := h.engine.Compare(r.Context(), level, unitID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{Status: "success", Data: m})
}

// Prioritize serves the scored, budgeted pair frame.
func (h *Handler) Prioritize(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	opts := engine.PrioritizeOptions{
		ActivityType: q.Get("activity_type"),
		Municipality: q.Get("municipality"),
	}
	if v := q.Get("budget"); v != "" {
		budget, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, errkind.Newf(errkind.KindInvalidArgument, "bad budget %q", v))
			return
		}
		opts.Budget = &budget
	}

	result, err := h.engine.Prioritize(r.Context(), filter, opts)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     result,
		Metadata: models.Metadata{Count: len(result.Rows)},
	})
}

// Recommend serves the rule output for one unit.
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	unitID, err := parseUnitID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	recs, err := h.engine.Recommend(r.Context(), level, unitID, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     recs,
		Metadata: models.Metadata{Count: len(recs)},
	})
}

// GeoJSON serves the aggregate frame as a FeatureCollection. The body is the
// bare collection, not the envelope, so map clients can consume it directly.
func (h *Handler) GeoJSON(w http.ResponseWriter, r *http.Request) {
	level, err := parseLevel(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	fc, err := h.engine.ExportGeoJSON(r.Context(), level, filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	writeRaw(w, fc)
}

// Ingest loads a CSV export from the request body.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	stats, err := h.ingestor.Ingest(r.Context(), r.Body)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, &models.APIResponse{
		Status:   "success",
		Data:     stats,
		Metadata: models.Metadata{Count: stats.Written},
	})
}
