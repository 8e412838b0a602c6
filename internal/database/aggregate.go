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
)

// joinColumn maps a level to the activity column holding the canonical name
// for that tier. Aggregation joins activity to unit by name, not by geometry
// containment: source rows carry canonical administrative names, while
// geometry attachment is not guaranteed at the finer tiers.
func joinColumn(level models.Level) string {
	switch level {
	case models.LevelDepartment:
		return "canonical_department"
	case models.LevelMunicipality:
		return "canonical_municipality"
	default:
		return "canonical_location"
	}
}

// joinCondition builds the unit-to-activity join for a level. Finer tiers
// also match the parent name, since municipality and township names repeat
// across parents.
func joinCondition(level models.Level) string {
	cond := "u.canonical_name = a." + joinColumn(level)
	switch level {
	case models.LevelMunicipality:
		cond += " AND u.canonical_parent = a.canonical_department"
	case models.LevelTownship, models.LevelCabecera:
		cond += " AND u.canonical_parent = a.canonical_municipality"
	}
	return cond
}

// Aggregate produces one AggregateRow per territorial unit at a level for a
// filter. Output is dense (units with at least one matching activity) unless
// includeEmpty is set. Row order is canonical unit name, so repeated runs over
// one snapshot return identical frames.
func (db *DB) Aggregate(ctx context.Context, level models.Level, filter ActivityFilter, includeEmpty bool) (*models.AggregateResult, error) {
	if !level.Valid() {
		return nil, errkind.Newf(errkind.KindInvalidArgument, "unknown level %q", level)
	}

	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	filterClauses, args := buildFilterConditions(filter, "a")
	onClause := joinCondition(level)
	for _, c := range filterClauses {
		onClause += " AND " + c
	}

	joinKind := "JOIN"
	if includeEmpty {
		joinKind = "LEFT JOIN"
	}

	// Aggregates carry sums and distinct counts; the derived ratios are
	// computed in Go so the zero guards live in one place.
	query := `
		SELECT u.id, u.name, COALESCE(u.parent_name, ''),
		       COUNT(a.id) AS total_activities,
		       COALESCE(SUM(COALESCE(a.attendees, 0)), 0) AS total_attendees,
		       COUNT(DISTINCT a.category) AS category_diversity,
		       COUNT(DISTINCT a.interest_group_id) AS group_diversity,
		       COUNT(DISTINCT date_trunc('month', a.date)) AS active_months,
		       COUNT(DISTINCT a.year) AS active_years,
		       COALESCE(AVG(CAST(isodow(a.date) - 1 AS DOUBLE)), 0) AS mean_weekday
		FROM territorial_units u
		` + joinKind + ` activities a ON ` + onClause + `
		WHERE u.level = ?
		GROUP BY u.id, u.name, u.parent_name, u.canonical_name
		ORDER BY u.canonical_name`
	args = append(args, string(level))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.ObserveStoreQuery("aggregate", "activities", start, err)
		return nil, mapQueryError(err, "failed to aggregate level "+string(level))
	}
	defer closeQuietly(rows)

	result := &models.AggregateResult{Level: level}
	for rows.Next() {
		r := models.AggregateRow{Level: level}
		if err := rows.Scan(
			&r.UnitID, &r.UnitName, &r.ParentName,
			&r.TotalActivities, &r.TotalAttendees,
			&r.CategoryDiversity, &r.GroupDiversity,
			&r.ActiveMonths, &r.ActiveYears, &r.MeanWeekday,
		); err != nil {
			return nil, errkind.SchemaDrift("aggregate.*", err)
		}
		if r.TotalActivities > 0 {
			r.Efficiency = float64(r.TotalAttendees) / float64(r.TotalActivities)
		}
		months := r.ActiveMonths
		if months < 1 {
			months = 1
		}
		r.MonthlyIntensity = float64(r.TotalActivities) / float64(months)
		result.Rows = append(result.Rows, r)
	}
	if err := rows.Err(); err != nil {
		metrics.ObserveStoreQuery("aggregate", "activities", start, err)
		return nil, mapQueryError(err, "failed to iterate aggregate rows")
	}

	unmatched, err := db.unmatchedNames(ctx, level, filter)
	if err != nil {
		return nil, err
	}
	result.UnmatchedNames = unmatched

	metrics.ObserveStoreQuery("aggregate", "activities", start, nil)
	return result, nil
}

// unmatchedNames lists activity names at a level that match no canonical
// unit. Unknown spellings are surfaced here, never coerced into a near match.
// At the sub-municipal tiers only activities claiming that tier through their
// geometry kind are considered; a location label alone does not say whether
// it names a township or an urban core.
func (db *DB) unmatchedNames(ctx context.Context, level models.Level, filter ActivityFilter) ([]string, error) {
	nameCol := "a." + joinColumn(level)

	clauses, args := buildFilterConditions(filter, "a")
	where := nameCol + " IS NOT NULL AND " + nameCol + " <> ''"
	for _, c := range clauses {
		where += " AND " + c
	}
	if level == models.LevelTownship || level == models.LevelCabecera {
		where += " AND a.geometry_kind = ?"
		args = append(args, string(level))
	}

	query := `
		SELECT DISTINCT ` + nameCol + `
		FROM activities a
		WHERE ` + where + `
		  AND NOT EXISTS (
			SELECT 1 FROM territorial_units u
			WHERE u.level = ? AND ` + joinCondition(level) + `
		  )
		ORDER BY 1`
	args = append(args, string(level))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapQueryError(err, "failed to list unmatched names")
	}
	defer closeQuietly(rows)

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, errkind.SchemaDrift("activities."+joinColumn(level), err)
		}
		names = append(names, n)
	}
	return names, mapQueryError(rows.Err(), "failed to iterate unmatched names")
}

// PairFrame returns per-pair-per-year observations for a filter, ordered by
// (municipality, group, year) for deterministic downstream scoring.
func (db *DB) PairFrame(ctx context.Context, filter ActivityFilter) ([]models.PairObservation, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	start := time.Now()

	whereClause, args := buildFilterWhereClause(filter, "a")
	query := `
		SELECT any_value(a.municipality), a.interest_group_id,
		       any_value(a.interest_group_name), a.year,
		       COUNT(*) AS activities,
		       COALESCE(SUM(COALESCE(a.attendees, 0)), 0) AS attendees
		FROM activities a
		WHERE ` + whereClause + `
		GROUP BY a.canonical_municipality, a.interest_group_id, a.year
		ORDER BY a.canonical_municipality, a.interest_group_id, a.year`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.ObserveStoreQuery("pair_frame", "activities", start, err)
		return nil, mapQueryError(err, "failed to query pair frame")
	}
	defer closeQuietly(rows)

	var out []models.PairObservation
	for rows.Next() {
		var o models.PairObservation
		if err := rows.Scan(&o.Municipality, &o.InterestGroupID, &o.GroupName,
			&o.Year, &o.Activities, &o.Attendees); err != nil {
			return nil, errkind.SchemaDrift("pair_frame.*", err)
		}
		if o.Activities > 0 {
			o.Efficiency = float64(o.Attendees) / float64(o.Activities)
		}
		out = append(out, o)
	}

	metrics.ObserveStoreQuery("pair_frame", "activities", start, rows.Err())
	if err := rows.Err(); err != nil {
		return nil, mapQueryError(err, "failed to iterate pair frame")
	}
	return out, nil
}
