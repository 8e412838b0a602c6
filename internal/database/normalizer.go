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
	"github.com/sigphi/territorium/internal/logging"
	"github.com/sigphi/territorium/internal/metrics"
)

// SourceGeometry is one ingest geometry with its declared CRS.
// SRID nil means the source did not declare one; the caller must set it
// explicitly before normalization.
type SourceGeometry struct {
	WKT  string
	SRID *int
}

// NormalizedGeometry is the serving-CRS output for one source geometry.
type NormalizedGeometry struct {
	WKT string

	// Invalid marks a geometry that survived one repair pass still invalid
	// under the OGC simple-features definition. The row is kept, flagged.
	Invalid bool

	// Antimeridian marks a polygon whose bbox spans more than 180 degrees of
	// longitude. No split is attempted.
	Antimeridian bool
}

// NormalizeSummary reports batch-level warnings.
type NormalizeSummary struct {
	Total        int
	StillInvalid int
	Antimeridian int
}

// normalizeSQL reprojects to the serving CRS, drops Z, applies one
// ST_MakeValid repair pass and collapses simple geometries into their Multi
// counterpart. DuckDB spatial performs the transform; no coordinate math
// happens in Go.
const normalizeSQL = `
	WITH g AS (
		SELECT ST_Multi(ST_MakeValid(ST_Force2D(
			ST_Transform(ST_GeomFromText(?), ?, ?, true)
		))) AS geom
	)
	SELECT ST_AsText(geom), ST_IsValid(geom),
	       ST_XMax(ST_Envelope(geom)) - ST_XMin(ST_Envelope(geom))
	FROM g`

// passthroughSQL validates a geometry already in the serving CRS without
// touching its coordinates, so normalization is idempotent bit for bit.
const passthroughSQL = `
	WITH g AS (SELECT ST_GeomFromText(?) AS geom)
	SELECT ST_IsValid(geom), GeometryType(geom) LIKE 'MULTI%',
	       ST_XMax(ST_Envelope(geom)) - ST_XMin(ST_Envelope(geom))
	FROM g`

// NormalizeGeometries reprojects a batch into the serving CRS.
//
// A geometry without a declared SRID fails the whole batch with MissingCRS
// naming the batch index; everything else is per-row: rows still invalid
// after one repair pass come back flagged, not dropped.
func (db *DB) NormalizeGeometries(ctx context.Context, batch []SourceGeometry) ([]NormalizedGeometry, NormalizeSummary, error) {
	summary := NormalizeSummary{Total: len(batch)}

	if !db.spatialAvailable {
		return nil, summary, errkind.New(errkind.KindStoreUnavailable, "spatial extension not available")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	for i := range batch {
		if batch[i].SRID == nil {
			return nil, summary, errkind.Newf(errkind.KindMissingCRS,
				"geometry %d has no declared CRS", i)
		}
	}

	out := make([]NormalizedGeometry, 0, len(batch))
	for i := range batch {
		ng, err := db.normalizeOne(ctx, batch[i])
		if err != nil {
			metrics.ObserveStoreQuery("normalize", "activities", start, err)
			return nil, summary, err
		}
		if ng.Invalid {
			summary.StillInvalid++
			metrics.GeometryRepairWarnings.Inc()
			logging.Ctx(ctx).Warn().Int("index", i).Msg("geometry invalid after repair pass")
		}
		if ng.Antimeridian {
			summary.Antimeridian++
			logging.Ctx(ctx).Warn().Int("index", i).Msg("antimeridian-crossing geometry flagged, not split")
		}
		out = append(out, ng)
	}

	metrics.StoreSpatialOperations.WithLabelValues("transform").Add(float64(len(batch)))
	metrics.ObserveStoreQuery("normalize", "activities", start, nil)
	return out, summary, nil
}

// normalizeOne handles a single geometry. Geometries already declared in the
// serving CRS pass through with coordinates untouched.
func (db *DB) normalizeOne(ctx context.Context, src SourceGeometry) (NormalizedGeometry, error) {
	srid := *src.SRID

	if srid == db.servingSRID {
		var valid, isMulti bool
		var lonSpan float64
		err := db.conn.QueryRowContext(ctx, passthroughSQL, src.WKT).Scan(&valid, &isMulti, &lonSpan)
		if err != nil {
			return NormalizedGeometry{}, mapQueryError(err, "failed to validate geometry")
		}
		if valid && isMulti {
			return NormalizedGeometry{WKT: src.WKT, Antimeridian: lonSpan > 180}, nil
		}
		// Simple or invalid: run the repair path with a no-op transform.
	}

	var wkt string
	var valid bool
	var lonSpan float64
	err := db.conn.QueryRowContext(ctx, normalizeSQL,
		src.WKT, sridAuthority(srid), sridAuthority(db.servingSRID),
	).Scan(&wkt, &valid, &lonSpan)
	if err != nil {
		return NormalizedGeometry{}, mapQueryError(err, "failed to reproject geometry")
	}

	return NormalizedGeometry{
		WKT:          wkt,
		Invalid:      !valid,
		Antimeridian: lonSpan > 180,
	}, nil
}

// sridAuthority renders an SRID as the authority code the transform expects.
func sridAuthority(srid int) string {
	return fmt.Sprintf("EPSG:%d", srid)
}

// CentroidWithinParent reports whether the centroid of a geometry falls inside
// the named parent unit. Used by ingest as a soft containment check; a miss is
// reported, never rejected.
func (db *DB) CentroidWithinParent(ctx context.Context, wkt string, parentLevel string, canonicalParent string) (bool, error) {
	if !db.spatialAvailable {
		return false, errkind.New(errkind.KindStoreUnavailable, "spatial extension not available")
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var contained bool
	err := db.conn.QueryRowContext(ctx, `
		SELECT COALESCE(BOOL_OR(
			ST_Contains(ST_GeomFromText(geometry), ST_Centroid(ST_GeomFromText(?)))
		), false)
		FROM territorial_units
		WHERE level = ? AND canonical_name = ? AND geometry IS NOT NULL AND geometry <> ''`,
		wkt, parentLevel, canonicalParent,
	).Scan(&contained)
	if err != nil {
		return false, mapQueryError(err, "failed containment check")
	}

	metrics.StoreSpatialOperations.WithLabelValues("centroid").Inc()
	return contained, nil
}
