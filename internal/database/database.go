// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package database is the spatial store adapter. It owns the DuckDB
// connection, the four canonical tables and the auxiliary feature layers, and
// is the only package that renders SQL. All filter values travel as query
// parameters; user values are never interpolated into SQL text.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/sigphi/territorium/internal/config"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/logging"
	"github.com/sigphi/territorium/internal/metrics"
)

// DB wraps the DuckDB connection and provides data access methods.
type DB struct {
	conn             *sql.DB
	cfg              *config.DatabaseConfig
	servingSRID      int
	spatialAvailable bool // spatial extension loaded; reprojection needs it

	// snapshotVersion increments on every write, invalidating derived caches.
	snapshotVersion   int64
	snapshotVersionMu sync.RWMutex
}

// New opens the database, loads the spatial extension and initializes the
// schema. servingSRID is the CRS all geometries are stored in.
func New(cfg *config.DatabaseConfig, servingSRID int) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	// Ensure parent directory exists for file-backed databases.
	if cfg.Path != ":memory:" {
		if dbDir := filepath.Dir(cfg.Path); dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, errkind.Wrap(errkind.KindStoreUnavailable, err, "failed to open database")
	}

	db := &DB{
		conn:        conn,
		cfg:         cfg,
		servingSRID: servingSRID,
	}

	// DuckDB serializes writes internally; a small pool covers concurrent reads.
	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	if err := db.installExtensions(); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	if err := db.createTables(); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	if err := db.createIndexes(); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	if err := db.verifySchema(context.Background()); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	return db, nil
}

// IsSpatialAvailable reports whether the spatial extension loaded.
// Without it the store still serves aggregation; reprojection and GeoJSON
// export fail with StoreUnavailable.
func (db *DB) IsSpatialAvailable() bool {
	return db.spatialAvailable
}

// ServingSRID returns the CRS identifier all geometries are stored in.
func (db *DB) ServingSRID() int {
	return db.servingSRID
}

// SnapshotVersion returns the current store snapshot counter. Derived caches
// embed it in their keys, so every write is an implicit invalidation.
func (db *DB) SnapshotVersion() int64 {
	db.snapshotVersionMu.RLock()
	defer db.snapshotVersionMu.RUnlock()
	return db.snapshotVersion
}

// bumpSnapshotVersion advances the snapshot counter after a write.
func (db *DB) bumpSnapshotVersion() {
	db.snapshotVersionMu.Lock()
	db.snapshotVersion++
	v := db.snapshotVersion
	db.snapshotVersionMu.Unlock()

	metrics.MemoSnapshotVersion.Set(float64(v))
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close()
}

// installExtensions loads the spatial extension. Missing spatial support is
// tolerated when DUCKDB_SPATIAL_OPTIONAL=true (test environments without
// network access to the extension repository).
func (db *DB) installExtensions() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "INSTALL spatial"); err != nil {
		logging.Warn().Err(err).Msg("INSTALL spatial failed, trying LOAD")
	}
	if _, err := db.conn.ExecContext(ctx, "LOAD spatial"); err != nil {
		if os.Getenv("DUCKDB_SPATIAL_OPTIONAL") == "true" {
			logging.Warn().Err(err).Msg("Spatial extension unavailable, reprojection disabled")
			db.spatialAvailable = false
			return nil
		}
		return errkind.Wrap(errkind.KindStoreUnavailable, err, "failed to load spatial extension")
	}

	db.spatialAvailable = true
	return nil
}

// ensureContext adds a 30-second timeout when the caller's context has no
// deadline, so no query can hang indefinitely.
func (db *DB) ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), 30*time.Second)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, 30*time.Second)
	}
	return ctx, func() {}
}

// mapQueryError translates a driver failure into the engine taxonomy:
// cancellation wins, everything else from the driver is transient I/O.
func mapQueryError(err error, op string) error {
	if err == nil {
		return nil
	}
	if kind := errkind.KindOf(err); kind == errkind.KindCancelled {
		return errkind.Wrap(errkind.KindCancelled, err, op)
	}
	return errkind.Wrap(errkind.KindStoreUnavailable, err, op)
}

// closeQuietly closes a resource and explicitly ignores any error.
// Used in error paths where Close() failures are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}
