// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package models defines the row types shared between the store adapter, the
// aggregation engine and the API surface. Schema is declared once here; the
// adapter is the only place that maps these types to SQL columns.
package models

import (
	"time"
)

// Level identifies one of the four Colombian administrative tiers,
// ordered coarse to fine.
type Level string

const (
	LevelDepartment   Level = "department"
	LevelMunicipality Level = "municipality"
	LevelTownship     Level = "township"
	LevelCabecera     Level = "cabecera"
)

// Valid reports whether l names a known administrative tier.
func (l Level) Valid() bool {
	switch l {
	case LevelDepartment, LevelMunicipality, LevelTownship, LevelCabecera:
		return true
	}
	return false
}

// Parent returns the tier one step coarser, or false for department.
func (l Level) Parent() (Level, bool) {
	switch l {
	case LevelMunicipality:
		return LevelDepartment, true
	case LevelTownship, LevelCabecera:
		return LevelMunicipality, true
	}
	return "", false
}

// Activity is one atomic territorial engagement event.
// Geometry is optional; when present, GeometryKind names the tier the
// geometry belongs to and must be consistent with the location fields.
type Activity struct {
	ID                int64      `json:"id"`
	Date              time.Time  `json:"date"`
	Year              int        `json:"year"`
	Department        string     `json:"department"`
	Municipality      string     `json:"municipality"`
	Location          string     `json:"location"` // township or urban-core label
	Zone              string     `json:"zone"`
	Category          string     `json:"category"`
	InterestGroupID   int64      `json:"interest_group_id"`
	InterestGroupName string     `json:"interest_group_name"`
	Attendees         int        `json:"attendees"`
	Contract          string     `json:"contract"`
	GeometryWKT       string     `json:"geometry,omitempty"` // serving CRS, WKT
	GeometryKind      Level      `json:"geometry_kind,omitempty"`
	IngestedAt        *time.Time `json:"ingested_at,omitempty"`
}

// TerritorialUnit is a canonical polygon at one administrative tier.
// Units are loaded once per atlas release and immutable thereafter.
type TerritorialUnit struct {
	ID          int64  `json:"id"`
	Level       Level  `json:"level"`
	Name        string `json:"name"`
	ParentName  string `json:"parent_name,omitempty"` // empty at department level
	GeometryWKT string `json:"geometry,omitempty"`    // valid MultiPolygon, serving CRS
	Invalid     bool   `json:"invalid,omitempty"`     // survived repair still invalid
}

// WriteMode selects replace-or-append semantics for unit loads.
type WriteMode string

const (
	WriteModeReplace WriteMode = "replace"
	WriteModeAppend  WriteMode = "append"
)
