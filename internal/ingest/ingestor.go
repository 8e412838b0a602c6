// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package ingest

import (
	"context"
	"io"

	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/logging"
	"github.com/sigphi/territorium/internal/models"
	"github.com/sigphi/territorium/internal/normalize"
)

// Store is the adapter slice the ingestor writes through.
type Store interface {
	WriteActivities(ctx context.Context, activities []models.Activity) error
	NormalizeGeometries(ctx context.Context, batch []database.SourceGeometry) ([]database.NormalizedGeometry, database.NormalizeSummary, error)
	CentroidWithinParent(ctx context.Context, wkt string, parentLevel string, canonicalParent string) (bool, error)
}

// Stats summarizes one ingest run.
type Stats struct {
	Read             int `json:"read"`
	Written          int `json:"written"`
	WithGeometry     int `json:"with_geometry"`
	StillInvalid     int `json:"still_invalid"`
	OutsideParent    int `json:"outside_parent"`
	ContainmentSkips int `json:"containment_skips"`
}

// Ingestor loads activity exports in batches. Geometries are normalized to
// the serving CRS before anything is written; a row whose geometry declares
// no CRS fails the whole batch rather than being guessed at.
type Ingestor struct {
	store     Store
	batchSize int
}

// NewIngestor creates an Ingestor writing through store. batchSize values
// below 1 fall back to 500.
func NewIngestor(store Store, batchSize int) *Ingestor {
	if batchSize < 1 {
		batchSize = 500
	}
	return &Ingestor{store: store, batchSize: batchSize}
}

// Ingest reads the whole CSV export from r and writes it through the store.
// The run stops at the first malformed row or rejected batch; previously
// committed batches stay written.
func (ing *Ingestor) Ingest(ctx context.Context, r io.Reader) (*Stats, error) {
	reader, err := NewReader(r)
	if err != nil {
		return nil, err
	}

	stats := &Stats{}
	batch := make([]*Record, 0, ing.batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return stats, errkind.Wrap(errkind.KindCancelled, err, "ingest cancelled")
		}

		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, err
		}
		stats.Read++
		batch = append(batch, rec)
		if len(batch) >= ing.batchSize {
			if err := ing.flush(ctx, batch, stats); err != nil {
				return stats, err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := ing.flush(ctx, batch, stats); err != nil {
			return stats, err
		}
	}

	logging.Ctx(ctx).Info().
		Int("read", stats.Read).
		Int("written", stats.Written).
		Int("still_invalid", stats.StillInvalid).
		Int("outside_parent", stats.OutsideParent).
		Msg("ingest completed")
	return stats, nil
}

// flush normalizes the batch geometries in one store round-trip and writes
// the typed rows.
func (ing *Ingestor) flush(ctx context.Context, batch []*Record, stats *Stats) error {
	// Collect the rows that carry geometry, preserving batch positions so
	// normalization errors can name the offending row.
	var sources []database.SourceGeometry
	var withGeometry []int
	for i, rec := range batch {
		if rec.GeometryWKT == "" {
			continue
		}
		sources = append(sources, database.SourceGeometry{WKT: rec.GeometryWKT, SRID: rec.SRID})
		withGeometry = append(withGeometry, i)
	}

	normalized := make([]database.NormalizedGeometry, 0)
	if len(sources) > 0 {
		var summary database.NormalizeSummary
		var err error
		normalized, summary, err = ing.store.NormalizeGeometries(ctx, sources)
		if err != nil {
			return err
		}
		stats.WithGeometry += summary.Total
		stats.StillInvalid += summary.StillInvalid
	}

	activities := make([]models.Activity, 0, len(batch))
	for _, rec := range batch {
		activities = append(activities, models.Activity{
			ID:                rec.ID,
			Date:              rec.Date,
			Year:              rec.Date.Year(),
			Department:        rec.Department,
			Municipality:      rec.Municipality,
			Location:          rec.Location,
			Zone:              rec.Zone,
			Category:          rec.Category,
			InterestGroupID:   rec.InterestGroupID,
			InterestGroupName: rec.InterestGroup,
			Attendees:         rec.Attendees,
			Contract:          rec.Contract,
			GeometryKind:      models.Level(rec.GeometryKind),
		})
	}
	for j, i := range withGeometry {
		activities[i].GeometryWKT = normalized[j].WKT
	}

	ing.softContainmentCheck(ctx, batch, activities, stats)

	if err := ing.store.WriteActivities(ctx, activities); err != nil {
		return err
	}
	stats.Written += len(activities)
	return nil
}

// softContainmentCheck verifies each geometry's centroid falls inside the
// municipality the row names. Violations are warnings, never rejections:
// boundary data and activity coordinates come from different sources and
// disagree near edges.
func (ing *Ingestor) softContainmentCheck(ctx context.Context, batch []*Record, activities []models.Activity, stats *Stats) {
	for i, a := range activities {
		if a.GeometryWKT == "" || a.Municipality == "" {
			continue
		}
		inside, err := ing.store.CentroidWithinParent(ctx, a.GeometryWKT,
			string(models.LevelMunicipality), normalize.Name(a.Municipality))
		if err != nil {
			stats.ContainmentSkips++
			logging.Ctx(ctx).Debug().Err(err).Int64("activity_id", a.ID).
				Msg("containment check skipped")
			continue
		}
		if !inside {
			stats.OutsideParent++
			logging.Ctx(ctx).Warn().
				Int64("activity_id", batch[i].ID).
				Str("municipality", a.Municipality).
				Msg("activity centroid outside its declared municipality")
		}
	}
}
