// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/metrics"
	"github.com/sigphi/territorium/internal/models"
	"github.com/sigphi/territorium/internal/normalize"
)

// WriteUnits loads territorial units at one level. Mode replace drops the
// level's existing rows first; append adds to them. Units are otherwise
// immutable between atlas releases.
func (db *DB) WriteUnits(ctx context.Context, level models.Level, units []models.TerritorialUnit, mode models.WriteMode) error {
	if !level.Valid() {
		return errkind.Newf(errkind.KindInvalidArgument, "unknown level %q", level)
	}
	if mode != models.WriteModeReplace && mode != models.WriteModeAppend {
		return errkind.Newf(errkind.KindInvalidArgument, "unknown write mode %q", mode)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return mapQueryError(err, "failed to begin unit write transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if mode == models.WriteModeReplace {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM territorial_units WHERE level = ?`, string(level)); err != nil {
			return mapQueryError(err, "failed to clear level before replace")
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO territorial_units (
			id, level, name, canonical_name, parent_name, canonical_parent,
			geometry, invalid
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return mapQueryError(err, "failed to prepare unit insert")
	}
	defer closeQuietly(stmt)

	for i := range units {
		u := &units[i]
		if _, err := stmt.ExecContext(ctx,
			u.ID, string(level), u.Name, normalize.Name(u.Name),
			u.ParentName, normalize.Name(u.ParentName),
			u.GeometryWKT, u.Invalid,
		); err != nil {
			metrics.ObserveStoreQuery("insert", "territorial_units", start, err)
			return mapQueryError(err, "failed to insert territorial unit")
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.ObserveStoreQuery("insert", "territorial_units", start, err)
		return mapQueryError(err, "failed to commit unit batch")
	}

	metrics.ObserveStoreQuery("insert", "territorial_units", start, nil)
	db.bumpSnapshotVersion()
	return nil
}

// ListUnits returns the canonical units at a level, name order. When
// withGeometry is false the geometry column is skipped, which matters for
// department-scale MultiPolygons.
func (db *DB) ListUnits(ctx context.Context, level models.Level, withGeometry bool) ([]models.TerritorialUnit, error) {
	if !level.Valid() {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "unknown level %q", level)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	geomCol := "''"
	if withGeometry {
		geomCol = "COALESCE(geometry, '')"
	}
	query := `
		SELECT id, name, COALESCE(parent_name, ''), ` + geomCol + `, invalid
		FROM territorial_units
		WHERE level = ?
		ORDER BY canonical_name`

	rows, err := db.conn.QueryContext(ctx, query, string(level))
	if err != nil {
		metrics.ObserveStoreQuery("select", "territorial_units", start, err)
		return nil, mapQueryError(err, "failed to query territorial units")
	}
	defer closeQuietly(rows)

	var out []models.TerritorialUnit
	for rows.Next() {
		u := models.TerritorialUnit{Level: level}
		if err := rows.Scan(&u.ID, &u.Name, &u.ParentName, &u.GeometryWKT, &u.Invalid); err != nil {
			return nil, errkind.SchemaDrift("territorial_units.*", err)
		}
		out = append(out, u)
	}

	metrics.ObserveStoreQuery("select", "territorial_units", start, rows.Err())
	if err := rows.Err(); err != nil {
		return nil, mapQueryError(err, "failed to iterate territorial units")
	}
	return out, nil
}

// FindUnit resolves a unit by canonical name at a level.
func (db *DB) FindUnit(ctx context.Context, level models.Level, name string) (*models.TerritorialUnit, error) {
	if !level.Valid() {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "unknown level %q", level)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	u := models.TerritorialUnit{Level: level}
	err := db.conn.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(parent_name, ''), invalid
		FROM territorial_units
		WHERE level = ? AND canonical_name = ?`,
		string(level), normalize.Name(name),
	).Scan(&u.ID, &u.Name, &u.ParentName, &u.Invalid)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errkind.Newf(errkind.KindUnknownUnit, "no %s named %q", level, name)
		}
		return nil, mapQueryError(err, "failed to resolve unit")
	}
	return &u, nil
}
