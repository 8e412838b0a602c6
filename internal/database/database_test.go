// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigphi/territorium/internal/config"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/models"
)

// testDBSemaphore serializes DuckDB lifecycles: concurrent CGO connections
// under CI resource pressure can hang.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory store held exclusively for the test's
// lifetime.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	// Offline environments cannot install the spatial extension; tolerate
	// that here so non-spatial tests run and requireSpatial skips the rest.
	// An explicit DUCKDB_SPATIAL_OPTIONAL=false still forces a hard failure.
	if _, ok := os.LookupEnv("DUCKDB_SPATIAL_OPTIONAL"); !ok {
		t.Setenv("DUCKDB_SPATIAL_OPTIONAL", "true")
	}

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "1GB",
	}
	db, err := New(cfg, 4326)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close test database: %v", err)
		}
	})
	return db
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testActivity(id int64, dept, muni string) models.Activity {
	return models.Activity{
		ID:                id,
		Date:              date(2023, int(id%12)+1, 10),
		Department:        dept,
		Municipality:      muni,
		Zone:              "rural",
		Category:          "workshop",
		InterestGroupID:   id%4 + 1,
		InterestGroupName: fmt.Sprintf("Group %d", id%4+1),
		Attendees:         int(id%10) + 5,
	}
}

func TestNewVerifiesSchema(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, db.verifySchema(context.Background()))
	assert.Equal(t, 4326, db.ServingSRID())
}

func TestWriteAndCountActivities(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	acts := []models.Activity{
		testActivity(1, "Nariño", "Pasto"),
		testActivity(2, "Nariño", "Ipiales"),
		testActivity(3, "Chocó", "Quibdó"),
	}
	require.NoError(t, db.WriteActivities(ctx, acts))

	total, err := db.CountActivities(ctx, ActivityFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	// Canonical name matching: accents and case do not matter.
	narino, err := db.CountActivities(ctx, ActivityFilter{Department: "NARINO"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), narino)
}

func TestWriteActivitiesDerivesYear(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testActivity(1, "Nariño", "Pasto")
	a.Year = 0
	require.NoError(t, db.WriteActivities(ctx, []models.Activity{a}))

	got, err := db.ListActivities(ctx, ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2023, got[0].Year)
}

func TestWriteActivitiesIdempotentUpsert(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	a := testActivity(1, "Nariño", "Pasto")
	require.NoError(t, db.WriteActivities(ctx, []models.Activity{a}))
	a.Attendees = 99
	require.NoError(t, db.WriteActivities(ctx, []models.Activity{a}))

	got, err := db.ListActivities(ctx, ActivityFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 99, got[0].Attendees)
}

func TestForEachActivityStreams(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var acts []models.Activity
	for i := int64(1); i <= 25; i++ {
		acts = append(acts, testActivity(i, "Nariño", "Pasto"))
	}
	require.NoError(t, db.WriteActivities(ctx, acts))

	var seen int
	err := db.ForEachActivity(ctx, ActivityFilter{}, func(a models.Activity) error {
		seen++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 25, seen)
}

func TestWriteUnitsReplaceAndAppend(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	units := []models.TerritorialUnit{
		{ID: 1, Level: models.LevelDepartment, Name: "Nariño"},
		{ID: 2, Level: models.LevelDepartment, Name: "Chocó"},
	}
	require.NoError(t, db.WriteUnits(ctx, models.LevelDepartment, units, models.WriteModeReplace))

	more := []models.TerritorialUnit{{ID: 3, Level: models.LevelDepartment, Name: "Cauca"}}
	require.NoError(t, db.WriteUnits(ctx, models.LevelDepartment, more, models.WriteModeAppend))

	got, err := db.ListUnits(ctx, models.LevelDepartment, false)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	// Replace drops the level's prior rows.
	require.NoError(t, db.WriteUnits(ctx, models.LevelDepartment, units, models.WriteModeReplace))
	got, err = db.ListUnits(ctx, models.LevelDepartment, false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestFindUnitUnknown(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.FindUnit(context.Background(), models.LevelMunicipality, "Nowhere")
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindUnknownUnit))
}

func TestSnapshotVersionAdvancesOnWrite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	before := db.SnapshotVersion()
	require.NoError(t, db.WriteActivities(ctx, []models.Activity{testActivity(1, "Nariño", "Pasto")}))
	afterActivities := db.SnapshotVersion()
	assert.Greater(t, afterActivities, before)

	require.NoError(t, db.WriteUnits(ctx, models.LevelDepartment,
		[]models.TerritorialUnit{{ID: 1, Level: models.LevelDepartment, Name: "Nariño"}},
		models.WriteModeReplace))
	assert.Greater(t, db.SnapshotVersion(), afterActivities)
}

func TestCountTableRejectsUnknownTable(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.CountTable(context.Background(), "activities; DROP TABLE activities")
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindInvalidArgument))
}

func TestQueryCancellation(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.CountActivities(ctx, ActivityFilter{})
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindCancelled))
}
