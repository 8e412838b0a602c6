// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigphi/territorium/internal/errkind"
)

// requireSpatial skips when the spatial extension could not be installed,
// e.g. in offline CI; set DUCKDB_SPATIAL_OPTIONAL=false to fail instead.
func requireSpatial(t *testing.T, db *DB) {
	t.Helper()
	if !db.IsSpatialAvailable() {
		t.Skip("spatial extension not available")
	}
}

func intPtr(v int) *int { return &v }

func TestNormalizeMissingCRSFailsBatch(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)

	batch := []SourceGeometry{
		{WKT: "POINT(1 1)", SRID: intPtr(4326)},
		{WKT: "POINT(2 2)"},
	}
	_, _, err := db.NormalizeGeometries(context.Background(), batch)
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindMissingCRS))
	assert.Contains(t, err.Error(), "geometry 1", "error names the offending batch index")
}

func TestNormalizeServingCRSPassthrough(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)

	// A valid MultiPolygon already in the serving CRS must come back
	// bit-identical.
	wkt := "MULTIPOLYGON (((-77 1, -77 2, -76 2, -77 1)))"
	out, summary, err := db.NormalizeGeometries(context.Background(),
		[]SourceGeometry{{WKT: wkt, SRID: intPtr(4326)}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, wkt, out[0].WKT)
	assert.False(t, out[0].Invalid)
	assert.Zero(t, summary.StillInvalid)
}

func TestNormalizeIdempotent(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)
	ctx := context.Background()

	// Simple polygon in the serving CRS: first pass collapses it into a
	// MultiPolygon, the second leaves that output untouched.
	first, _, err := db.NormalizeGeometries(ctx,
		[]SourceGeometry{{WKT: "POLYGON((-77 1, -77 2, -76 2, -77 1))", SRID: intPtr(4326)}})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, strings.HasPrefix(first[0].WKT, "MULTIPOLYGON"))

	second, _, err := db.NormalizeGeometries(ctx,
		[]SourceGeometry{{WKT: first[0].WKT, SRID: intPtr(4326)}})
	require.NoError(t, err)
	assert.Equal(t, first[0].WKT, second[0].WKT)
}

func TestNormalizeReprojectsAndDropsZ(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)

	// MultiPolygon Z near the Colombian origin of EPSG:9377 lands in 4326 as
	// a plain MultiPolygon around (-73, 4) with Z gone.
	wkt := "MULTIPOLYGON Z (((4880000 2000000 10, 4880000 2001000 10, 4881000 2001000 10, 4880000 2000000 10)))"
	out, summary, err := db.NormalizeGeometries(context.Background(),
		[]SourceGeometry{{WKT: wkt, SRID: intPtr(9377)}})
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.True(t, strings.HasPrefix(out[0].WKT, "MULTIPOLYGON"))
	assert.NotContains(t, out[0].WKT, " Z ")
	assert.False(t, out[0].Invalid)
	assert.Zero(t, summary.StillInvalid)
}

func TestNormalizeRepairsBowtie(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)

	// Self-intersecting bowtie: one repair pass makes it valid.
	wkt := "POLYGON((0 0, 2 2, 2 0, 0 2, 0 0))"
	out, _, err := db.NormalizeGeometries(context.Background(),
		[]SourceGeometry{{WKT: wkt, SRID: intPtr(4326)}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.False(t, out[0].Invalid)
}

func TestCentroidWithinParentSoftCheck(t *testing.T) {
	db := setupTestDB(t)
	requireSpatial(t, db)
	ctx := context.Background()

	units := []struct {
		id   int64
		name string
		wkt  string
	}{
		{1, "Pasto", "MULTIPOLYGON (((-78 1, -78 2, -77 2, -77 1, -78 1)))"},
	}
	for _, u := range units {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO territorial_units (id, level, name, canonical_name, geometry)
			VALUES (?, 'municipality', ?, 'PASTO', ?)`, u.id, u.name, u.wkt)
		require.NoError(t, err)
	}

	inside, err := db.CentroidWithinParent(ctx,
		"MULTIPOLYGON (((-77.6 1.4, -77.6 1.6, -77.4 1.6, -77.6 1.4)))",
		"municipality", "PASTO")
	require.NoError(t, err)
	assert.True(t, inside)

	outside, err := db.CentroidWithinParent(ctx,
		"MULTIPOLYGON (((10 10, 10 11, 11 11, 10 10)))",
		"municipality", "PASTO")
	require.NoError(t, err)
	assert.False(t, outside)

	// Unknown parent: no geometry rows, treated as not contained.
	unknown, err := db.CentroidWithinParent(ctx, "POINT(-77.5 1.5)", "municipality", "NOWHERE")
	require.NoError(t, err)
	assert.False(t, unknown)
}
