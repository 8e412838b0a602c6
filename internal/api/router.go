// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package api is the geoportal HTTP surface: a thin chi router over the query
// façade. No domain logic lives here; handlers parse parameters, call the
// engine and shape the response envelope.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/engine"
	"github.com/sigphi/territorium/internal/ingest"
	"github.com/sigphi/territorium/internal/models"
)

// Engine is the façade slice the handlers call. *engine.Engine satisfies it.
type Engine interface {
	Aggregate(ctx context.Context, level models.Level, filter database.ActivityFilter, includeEmpty bool) (*models.AggregateResult, error)
	Compare(ctx context.Context, level models.Level, focalUnitID int64, filter database.ActivityFilter) (*models.ComparativeMetrics, error)
	Prioritize(ctx context.Context, filter database.ActivityFilter, opts engine.PrioritizeOptions) (*models.PrioritizationResult, error)
	Recommend(ctx context.Context, level models.Level, unitID int64, filter database.ActivityFilter) ([]models.Recommendation, error)
	ExportGeoJSON(ctx context.Context, level models.Level, filter database.ActivityFilter) (*models.FeatureCollection, error)
}

// Ingestor loads CSV exports; *ingest.Ingestor satisfies it.
type Ingestor interface {
	Ingest(ctx context.Context, r io.Reader) (*ingest.Stats, error)
}

// Router wires handlers onto a chi mux.
type Router struct {
	handler *Handler
}

// NewRouter builds the geoportal router over an engine and an optional
// ingestor. A nil ingestor disables the ingest endpoint.
func NewRouter(eng Engine, ing Ingestor) *Router {
	return &Router{handler: &Handler{engine: eng, ingestor: ing}}
}

// Setup returns the http.Handler with the full route table.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(prometheusMetrics)

	r.Get("/healthz", router.handler.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aggregate", router.handler.Aggregate)
		r.Get("/compare", router.handler.Compare)
		r.Get("/prioritize", router.handler.Prioritize)
		r.Get("/recommend", router.handler.Recommend)
		r.Get("/geojson", router.handler.GeoJSON)
		if router.handler.ingestor != nil {
			r.Post("/ingest", router.handler.Ingest)
		}
	})

	return r
}
