// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/logging"
	"github.com/sigphi/territorium/internal/models"
)

// respondJSON sends the response envelope with proper headers.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, response *models.APIResponse) {
	response.Metadata.Timestamp = time.Now()
	response.Metadata.CallID = logging.CallIDFromContext(r.Context())

	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

// writeRaw serializes v without the response envelope.
func writeRaw(w http.ResponseWriter, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write response")
	}
}

// respondError maps an engine error to a status code through its kind.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	kind := errkind.KindOf(err)
	respondJSON(w, r, statusForKind(kind), &models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: string(kind), Message: err.Error()},
	})
}

func statusForKind(kind errkind.Kind) int {
	switch kind {
	case errkind.KindInvalidArgument:
		return http.StatusBadRequest
	case errkind.KindUnknownUnit:
		return http.StatusNotFound
	case errkind.KindMissingCRS, errkind.KindInvalidGeometry:
		return http.StatusUnprocessableEntity
	case errkind.KindCancelled:
		return http.StatusRequestTimeout
	case errkind.KindStoreUnavailable, errkind.KindSchemaDrift:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// parseFilter reads the shared filter parameters from the query string.
func parseFilter(r *http.Request) (database.ActivityFilter, error) {
	q := r.URL.Query()
	filter := database.ActivityFilter{
		Department:   q.Get("department"),
		Municipality: q.Get("municipality"),
		Zone:         q.Get("zone"),
		Category:     q.Get("category"),
	}

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			return filter, errkind.Newf(errkind.KindInvalidArgument, "bad year %q", v)
		}
		filter.Year = &year
	}
	if v := q.Get("interest_group_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errkind.Newf(errkind.KindInvalidArgument, "bad interest_group_id %q", v)
		}
		filter.InterestGroupID = &id
	}
	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errkind.Newf(errkind.KindInvalidArgument, "bad date_from %q", v)
		}
		filter.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return filter, errkind.Newf(errkind.KindInvalidArgument, "bad date_to %q", v)
		}
		filter.DateTo = &t
	}
	return filter, nil
}

// parseLevel reads and validates the level parameter.
func parseLevel(r *http.Request) (models.Level, error) {
	level := models.Level(r.URL.Query().Get("level"))
	if !level.Valid() {
		return "", errkind.Newf(errkind.KindInvalidArgument, "unknown level %q", level)
	}
	return level, nil
}

// parseUnitID reads the unit_id parameter.
func parseUnitID(r *http.Request) (int64, error) {
	v := r.URL.Query().Get("unit_id")
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, errkind.Newf(errkind.KindInvalidArgument, "bad unit_id %q", v)
	}
	return id, nil
}
