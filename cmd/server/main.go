// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package main is the entry point for the Territorium geoportal server.
//
// Territorium aggregates territorial PHI activities over the four Colombian
// administrative tiers (department, municipality, township, urban core),
// compares units against their peers, prioritizes (municipality, interest
// group) pairs under a suggestion budget and synthesizes per-unit
// recommendations.
//
// The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 load (defaults, config file, environment)
//  2. Database: DuckDB with the spatial extension, all geometries in the serving CRS
//  3. Engine: query façade with memoized aggregation frames
//  4. HTTP server: chi router exposing the façade plus /healthz and /metrics
//
// Configuration environment variables carry the TERRITORIUM_ prefix, e.g.
// TERRITORIUM_SERVER_PORT=8787 or TERRITORIUM_DATABASE_PATH=/data/phi.duckdb.
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops accepting
// connections, drains in-flight requests for up to 10 seconds and closes the
// database.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sigphi/territorium/internal/api"
	"github.com/sigphi/territorium/internal/config"
	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/engine"
	"github.com/sigphi/territorium/internal/ingest"
	"github.com/sigphi/territorium/internal/logging"
)

const (
	shutdownTimeout = 10 * time.Second
	ingestBatchSize = 500
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Int("serving_srid", cfg.Engine.ServingSRID).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database, cfg.Engine.ServingSRID)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	if !db.IsSpatialAvailable() {
		logging.Warn().Msg("Spatial extension unavailable; ingest and GeoJSON export disabled")
	}

	eng := engine.New(db, cfg.Engine)

	var ingestor api.Ingestor
	if db.IsSpatialAvailable() {
		ingestor = ingest.NewIngestor(db, ingestBatchSize)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(eng, ingestor).Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("Geoportal listening")
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("Server failed")
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("Graceful shutdown incomplete")
	}
}
