// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package ingest

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/models"
)

const sampleCSV = `id,date,department,municipality,location,zone,category,interest_group_id,interest_group_name,attendees,contract,geometry,srid,geometry_kind
1,2023-04-12,Nariño,Pasto,,urban,workshop,7,Junta Central,35,C-102,"MULTIPOLYGON(((-77 1,-77 2,-76 2,-77 1)))",4326,municipality
2,2023-05-02,Nariño,Ipiales,La Victoria,rural,outreach,8,Cabildo Sur,12,C-102,,,
3,14/06/2023,Chocó,Quibdó,,urban,meeting,9,Consejo Río,0,,,,
`

type fakeStore struct {
	written     []models.Activity
	normalized  int
	containment bool
	writeErr    error
}

func (f *fakeStore) WriteActivities(ctx context.Context, activities []models.Activity) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.written = append(f.written, activities...)
	return nil
}

func (f *fakeStore) NormalizeGeometries(ctx context.Context, batch []database.SourceGeometry) ([]database.NormalizedGeometry, database.NormalizeSummary, error) {
	out := make([]database.NormalizedGeometry, 0, len(batch))
	for _, src := range batch {
		if src.SRID == nil {
			return nil, database.NormalizeSummary{}, errkind.New(errkind.KindMissingCRS, "geometry carries no CRS declaration")
		}
		f.normalized++
		out = append(out, database.NormalizedGeometry{WKT: src.WKT})
	}
	return out, database.NormalizeSummary{Total: len(batch)}, nil
}

func (f *fakeStore) CentroidWithinParent(ctx context.Context, wkt, parentLevel, canonicalParent string) (bool, error) {
	return f.containment, nil
}

func TestReaderParsesHeaderAddressedRows(t *testing.T) {
	r, err := NewReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	first, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, "Nariño", first.Department)
	assert.Equal(t, 35, first.Attendees)
	require.NotNil(t, first.SRID)
	assert.Equal(t, 4326, *first.SRID)
	assert.Equal(t, "municipality", first.GeometryKind)

	second, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, "La Victoria", second.Location)
	assert.Nil(t, second.SRID)
	assert.Empty(t, second.GeometryWKT)

	// Day-first dates from legacy exports parse too.
	third, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, 2023, third.Date.Year())
	assert.Equal(t, 6, int(third.Date.Month()))

	_, err = r.Read()
	assert.Equal(t, io.EOF, err)
}

func TestReaderRejectsMissingColumns(t *testing.T) {
	_, err := NewReader(strings.NewReader("id,date,department\n"))
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindInvalidArgument))
}

func TestReaderRejectsBadCell(t *testing.T) {
	csv := "id,date,department,municipality,category,interest_group_id,interest_group_name\n" +
		"x,2023-01-01,D,M,c,1,g\n"
	r, err := NewReader(strings.NewReader(csv))
	require.NoError(t, err)
	_, err = r.Read()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad id")
}

func TestIngestWritesTypedRows(t *testing.T) {
	store := &fakeStore{containment: true}
	ing := NewIngestor(store, 2)

	stats, err := ing.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Read)
	assert.Equal(t, 3, stats.Written)
	assert.Equal(t, 1, stats.WithGeometry)
	assert.Zero(t, stats.OutsideParent)
	require.Len(t, store.written, 3)

	first := store.written[0]
	assert.Equal(t, 2023, first.Year)
	assert.NotEmpty(t, first.GeometryWKT)
	assert.Equal(t, models.LevelMunicipality, first.GeometryKind)
	assert.Empty(t, store.written[1].GeometryWKT)
}

func TestIngestReportsOutsideParent(t *testing.T) {
	store := &fakeStore{containment: false}
	ing := NewIngestor(store, 10)

	stats, err := ing.Ingest(context.Background(), strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.OutsideParent, "only the georeferenced row is checked")
	assert.Equal(t, 3, stats.Written, "containment misses never reject rows")
}

func TestIngestMissingCRSFailsBatch(t *testing.T) {
	csv := "id,date,department,municipality,category,interest_group_id,interest_group_name,geometry,srid\n" +
		`5,2023-01-01,D,M,c,1,g,"POINT(1 1)",` + "\n"
	store := &fakeStore{}
	ing := NewIngestor(store, 10)

	_, err := ing.Ingest(context.Background(), strings.NewReader(csv))
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindMissingCRS))
	assert.Empty(t, store.written)
}

func TestIngestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewIngestor(&fakeStore{}, 10).Ingest(ctx, strings.NewReader(sampleCSV))
	require.Error(t, err)
	assert.True(t, errkind.IsKind(err, errkind.KindCancelled))
}
