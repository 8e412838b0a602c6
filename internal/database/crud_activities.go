// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"time"

	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/metrics"
	"github.com/sigphi/territorium/internal/models"
	"github.com/sigphi/territorium/internal/normalize"
)

// WriteActivities inserts a batch of activities in one transaction.
// Existing rows with the same id are replaced (corrective re-ingest).
// Canonical name columns are derived here so every read joins on one spelling.
func (db *DB) WriteActivities(ctx context.Context, activities []models.Activity) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return mapQueryError(err, "failed to begin write transaction")
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO activities (
			id, date, year, department, municipality, location, zone, category,
			interest_group_id, interest_group_name, attendees, contract,
			geometry, geometry_kind,
			canonical_department, canonical_municipality, canonical_location
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return mapQueryError(err, "failed to prepare activity insert")
	}
	defer closeQuietly(stmt)

	for i := range activities {
		a := &activities[i]
		year := a.Year
		if year == 0 {
			year = a.Date.Year()
		}

		var geometry, kind interface{}
		if a.GeometryWKT != "" {
			geometry = a.GeometryWKT
			kind = string(a.GeometryKind)
		}

		if _, err := stmt.ExecContext(ctx,
			a.ID, a.Date, year, a.Department, a.Municipality, a.Location,
			a.Zone, a.Category, a.InterestGroupID, a.InterestGroupName,
			a.Attendees, a.Contract, geometry, kind,
			normalize.Name(a.Department), normalize.Name(a.Municipality),
			normalize.Name(a.Location),
		); err != nil {
			metrics.ObserveStoreQuery("insert", "activities", start, err)
			return mapQueryError(err, "failed to insert activity")
		}
	}

	if err := tx.Commit(); err != nil {
		metrics.ObserveStoreQuery("insert", "activities", start, err)
		return mapQueryError(err, "failed to commit activity batch")
	}

	metrics.ObserveStoreQuery("insert", "activities", start, nil)
	db.bumpSnapshotVersion()
	return nil
}

// ForEachActivity streams matching activities to fn in id order.
// Iteration stops on the first fn error or on context cancellation.
func (db *DB) ForEachActivity(ctx context.Context, filter ActivityFilter, fn func(models.Activity) error) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	whereClause, args := buildFilterWhereClause(filter, "")
	query := `
		SELECT id, date, year, department, municipality,
		       COALESCE(location, ''), COALESCE(zone, ''), category,
		       interest_group_id, interest_group_name,
		       COALESCE(attendees, 0), COALESCE(contract, ''),
		       COALESCE(geometry, ''), COALESCE(geometry_kind, '')
		FROM activities
		WHERE ` + whereClause + `
		ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.ObserveStoreQuery("select", "activities", start, err)
		return mapQueryError(err, "failed to query activities")
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var a models.Activity
		var kind string
		if err := rows.Scan(
			&a.ID, &a.Date, &a.Year, &a.Department, &a.Municipality,
			&a.Location, &a.Zone, &a.Category,
			&a.InterestGroupID, &a.InterestGroupName,
			&a.Attendees, &a.Contract, &a.GeometryWKT, &kind,
		); err != nil {
			return errkind.SchemaDrift("activities.*", err)
		}
		a.GeometryKind = models.Level(kind)
		if err := fn(a); err != nil {
			return err
		}
	}

	metrics.ObserveStoreQuery("select", "activities", start, rows.Err())
	return mapQueryError(rows.Err(), "failed to iterate activities")
}

// ListActivities collects matching activities into a slice.
func (db *DB) ListActivities(ctx context.Context, filter ActivityFilter) ([]models.Activity, error) {
	var out []models.Activity
	err := db.ForEachActivity(ctx, filter, func(a models.Activity) error {
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CountActivities returns the number of rows the filter matches.
func (db *DB) CountActivities(ctx context.Context, filter ActivityFilter) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	whereClause, args := buildFilterWhereClause(filter, "")
	var n int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE `+whereClause, args...).Scan(&n)
	metrics.ObserveStoreQuery("count", "activities", start, err)
	if err != nil {
		return 0, mapQueryError(err, "failed to count activities")
	}
	return n, nil
}

// CountTable returns the row count of one of the adapter's tables.
// The table name is checked against the known set, never interpolated raw.
func (db *DB) CountTable(ctx context.Context, table string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if _, ok := expectedColumns[table]; !ok && table != "rivers" && table != "roads" {
		return 0, errkind.Newf(errkind.KindInvalidArgument, "unknown table %q", table)
	}

	var n int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	if err != nil {
		return 0, mapQueryError(err, "failed to count "+table)
	}
	return n, nil
}
