// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/metrics"
	"github.com/sigphi/territorium/internal/models"
)

// ExportGeoJSON joins an aggregate frame back onto the unit geometries and
// returns a FeatureCollection for map rendering. Rows whose unit carries no
// geometry are emitted with a null geometry rather than dropped, so the
// attribute frame and the map frame stay the same length.
func (db *DB) ExportGeoJSON(ctx context.Context, result *models.AggregateResult) (*models.FeatureCollection, error) {
	if !db.spatialAvailable {
		return nil, errkind.New(errkind.KindStoreUnavailable, "spatial extension not loaded, GeoJSON export unavailable")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	stmt, err := db.conn.PrepareContext(ctx, `
		SELECT ST_AsGeoJSON(ST_GeomFromText(geometry))
		FROM territorial_units
		WHERE id = ? AND geometry IS NOT NULL AND geometry <> ''`)
	if err != nil {
		metrics.ObserveStoreQuery("export_geojson", "territorial_units", start, err)
		return nil, mapQueryError(err, "failed to prepare geometry export")
	}
	defer closeQuietly(stmt)

	fc := models.NewFeatureCollection()
	nullGeometry := json.RawMessage("null")
	for _, row := range result.Rows {
		var geom string
		geometry := nullGeometry
		err := stmt.QueryRowContext(ctx, row.UnitID).Scan(&geom)
		switch {
		case err == nil:
			geometry = json.RawMessage(geom)
		case err == sql.ErrNoRows:
			// unit exists without geometry, keep the attribute row
		default:
			metrics.ObserveStoreQuery("export_geojson", "territorial_units", start, err)
			return nil, mapQueryError(err, "failed to export geometry for unit "+row.UnitName)
		}

		fc.Append(geometry, map[string]interface{}{
			"unit_id":            row.UnitID,
			"unit_name":          row.UnitName,
			"level":              string(row.Level),
			"parent_name":        row.ParentName,
			"total_activities":   row.TotalActivities,
			"total_attendees":    row.TotalAttendees,
			"category_diversity": row.CategoryDiversity,
			"group_diversity":    row.GroupDiversity,
			"active_months":      row.ActiveMonths,
			"efficiency":         row.Efficiency,
			"monthly_intensity":  row.MonthlyIntensity,
		})
	}

	metrics.ObserveStoreQuery("export_geojson", "territorial_units", start, nil)
	return fc, nil
}
