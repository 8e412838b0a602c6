// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sigphi/territorium/internal/errkind"
)

// Schema is declared once here. Geometries are stored as WKT TEXT in the
// serving CRS; spatial functions parse them on demand. The canonical_* columns
// hold normalize.Name output and are the join keys for aggregation by name.

// createTables creates the canonical tables and auxiliary layers.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tables := []string{
		`CREATE TABLE IF NOT EXISTS activities (
			id BIGINT PRIMARY KEY,
			date DATE NOT NULL,
			year INTEGER NOT NULL,
			department VARCHAR NOT NULL,
			municipality VARCHAR NOT NULL,
			location VARCHAR,
			zone VARCHAR,
			category VARCHAR NOT NULL,
			interest_group_id BIGINT NOT NULL,
			interest_group_name VARCHAR NOT NULL,
			attendees INTEGER,
			contract VARCHAR,
			geometry VARCHAR,
			geometry_kind VARCHAR,
			canonical_department VARCHAR NOT NULL,
			canonical_municipality VARCHAR NOT NULL,
			canonical_location VARCHAR,
			ingested_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS activities_municipality (
			id BIGINT PRIMARY KEY,
			municipality VARCHAR NOT NULL,
			department VARCHAR NOT NULL,
			geometry VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS activities_department (
			id BIGINT PRIMARY KEY,
			department VARCHAR NOT NULL,
			geometry VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS territorial_units (
			id BIGINT PRIMARY KEY,
			level VARCHAR NOT NULL,
			name VARCHAR NOT NULL,
			canonical_name VARCHAR NOT NULL,
			parent_name VARCHAR,
			canonical_parent VARCHAR,
			geometry VARCHAR,
			invalid BOOLEAN DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS rivers (
			name VARCHAR,
			geometry VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS roads (
			kind VARCHAR,
			geometry VARCHAR
		)`,
	}

	for _, ddl := range tables {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return errkind.Wrap(errkind.KindStoreUnavailable, err, "failed to create table")
		}
	}
	return nil
}

// createIndexes creates the indexes the aggregation queries lean on.
func (db *DB) createIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_activities_date ON activities (date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_year ON activities (year)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_dept ON activities (canonical_department)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_muni ON activities (canonical_municipality)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_group ON activities (interest_group_id)`,
		`CREATE INDEX IF NOT EXISTS idx_units_level_name ON territorial_units (level, canonical_name)`,
	}

	for _, ddl := range indexes {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return errkind.Wrap(errkind.KindStoreUnavailable, err, "failed to create index")
		}
	}
	return nil
}

// expectedColumns is the contract the adapter verifies on startup. A stored
// table that drifts from it fails the whole connection with SchemaDrift
// naming the first offending column.
var expectedColumns = map[string][]string{
	"activities": {
		"id", "date", "year", "department", "municipality", "location", "zone",
		"category", "interest_group_id", "interest_group_name", "attendees",
		"contract", "geometry", "geometry_kind", "canonical_department",
		"canonical_municipality", "canonical_location", "ingested_at",
	},
	"activities_municipality": {"id", "municipality", "department", "geometry"},
	"activities_department":   {"id", "department", "geometry"},
	"territorial_units": {
		"id", "level", "name", "canonical_name", "parent_name",
		"canonical_parent", "geometry", "invalid",
	},
}

// verifySchema compares stored columns against expectedColumns.
func (db *DB) verifySchema(ctx context.Context) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	for table, want := range expectedColumns {
		got := make(map[string]bool, len(want))

		rows, err := db.conn.QueryContext(ctx,
			`SELECT column_name FROM information_schema.columns WHERE table_name = ?`, table)
		if err != nil {
			return mapQueryError(err, "failed to read schema for "+table)
		}
		for rows.Next() {
			var col string
			if err := rows.Scan(&col); err != nil {
				closeQuietly(rows)
				return mapQueryError(err, "failed to scan schema row")
			}
			got[col] = true
		}
		if err := rows.Err(); err != nil {
			closeQuietly(rows)
			return mapQueryError(err, "failed to iterate schema rows")
		}
		closeQuietly(rows)

		for _, col := range want {
			if !got[col] {
				return errkind.SchemaDrift(fmt.Sprintf("%s.%s", table, col), nil)
			}
		}

		// Unknown columns are drift too, never silently carried.
		wantSet := make(map[string]bool, len(want))
		for _, col := range want {
			wantSet[col] = true
		}
		for col := range got {
			if !wantSet[col] {
				return errkind.SchemaDrift(fmt.Sprintf("%s.%s", table, col), nil)
			}
		}
	}
	return nil
}
