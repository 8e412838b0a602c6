// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/sigphi/territorium/internal/normalize"
)

// ActivityFilter is the structured predicate applied to activity queries.
// All fields are optional and combine with AND. Names are canonicalized
// before matching, so "Bogotá" and "BOGOTA" select the same rows.
//
// The filter renders to a parameterized WHERE clause via buildFilterConditions;
// no user value is ever concatenated into SQL text.
type ActivityFilter struct {
	DateFrom        *time.Time
	DateTo          *time.Time
	Year            *int
	Department      string
	Municipality    string
	Zone            string
	Category        string
	InterestGroupID *int64
}

// buildFilterConditions renders the filter to WHERE clauses and arguments.
// Column references carry the given table alias prefix ("" for none).
func buildFilterConditions(filter ActivityFilter, prefix string) ([]string, []interface{}) {
	col := func(name string) string {
		if prefix == "" {
			return name
		}
		return prefix + "." + name
	}

	whereClauses := []string{}
	args := []interface{}{}

	if filter.DateFrom != nil {
		whereClauses = append(whereClauses, col("date")+" >= ?")
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		whereClauses = append(whereClauses, col("date")+" <= ?")
		args = append(args, *filter.DateTo)
	}
	if filter.Year != nil {
		whereClauses = append(whereClauses, col("year")+" = ?")
		args = append(args, *filter.Year)
	}
	if filter.Department != "" {
		whereClauses = append(whereClauses, col("canonical_department")+" = ?")
		args = append(args, normalize.Name(filter.Department))
	}
	if filter.Municipality != "" {
		whereClauses = append(whereClauses, col("canonical_municipality")+" = ?")
		args = append(args, normalize.Name(filter.Municipality))
	}
	if filter.Zone != "" {
		whereClauses = append(whereClauses, col("zone")+" = ?")
		args = append(args, filter.Zone)
	}
	if filter.Category != "" {
		whereClauses = append(whereClauses, col("category")+" = ?")
		args = append(args, filter.Category)
	}
	if filter.InterestGroupID != nil {
		whereClauses = append(whereClauses, col("interest_group_id")+" = ?")
		args = append(args, *filter.InterestGroupID)
	}

	return whereClauses, args
}

// buildFilterWhereClause wraps buildFilterConditions with a "1=1" base so the
// result is always safe to AND-concatenate.
func buildFilterWhereClause(filter ActivityFilter, prefix string) (string, []interface{}) {
	clauses, args := buildFilterConditions(filter, prefix)
	if len(clauses) == 0 {
		return "1=1", args
	}
	return "1=1 AND " + strings.Join(clauses, " AND "), args
}

// Canonical returns a deterministic text form of the filter for cache keys
// and logs. Equal filters (after name canonicalization) share one form; the
// form never contains row data, only the predicate itself.
func (f ActivityFilter) Canonical() string {
	parts := make([]string, 0, 8)
	if f.DateFrom != nil {
		parts = append(parts, "date_from="+f.DateFrom.Format("2006-01-02"))
	}
	if f.DateTo != nil {
		parts = append(parts, "date_to="+f.DateTo.Format("2006-01-02"))
	}
	if f.Year != nil {
		parts = append(parts, fmt.Sprintf("year=%d", *f.Year))
	}
	if f.Department != "" {
		parts = append(parts, "department="+normalize.Name(f.Department))
	}
	if f.Municipality != "" {
		parts = append(parts, "municipality="+normalize.Name(f.Municipality))
	}
	if f.Zone != "" {
		parts = append(parts, "zone="+f.Zone)
	}
	if f.Category != "" {
		parts = append(parts, "category="+f.Category)
	}
	if f.InterestGroupID != nil {
		parts = append(parts, fmt.Sprintf("interest_group_id=%d", *f.InterestGroupID))
	}
	if len(parts) == 0 {
		return "all"
	}
	return strings.Join(parts, "&")
}
