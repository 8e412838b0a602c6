// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package models

// AggregateRow is the per-unit aggregate for one filter at one tier.
// It is a pure function of (filter, level, store snapshot): two runs over the
// same snapshot produce identical rows up to 1e-9 float rounding.
type AggregateRow struct {
	UnitID     int64  `json:"unit_id"`
	UnitName   string `json:"unit_name"`
	Level      Level  `json:"level"`
	ParentName string `json:"parent_name,omitempty"`

	TotalActivities   int     `json:"total_activities"`
	TotalAttendees    int     `json:"total_attendees"`
	CategoryDiversity int     `json:"category_diversity"`
	GroupDiversity    int     `json:"group_diversity"`
	ActiveMonths      int     `json:"active_months"`
	ActiveYears       int     `json:"active_years"`
	MeanWeekday       float64 `json:"mean_weekday"` // Mon=0 … Sun=6
	Efficiency        float64 `json:"efficiency"`   // attendees per activity, 0 when empty
	MonthlyIntensity  float64 `json:"monthly_intensity"`
}

// AggregateResult carries the dense per-unit rows plus the loud side-channel
// for activity names that matched no canonical unit at the requested tier.
type AggregateResult struct {
	Level          Level          `json:"level"`
	Rows           []AggregateRow `json:"rows"`
	UnmatchedNames []string       `json:"unmatched_names,omitempty"`
}

// ComparisonScope records whether a comparison ran against parent siblings or
// fell back to the whole tier.
type ComparisonScope string

const (
	ScopeParent ComparisonScope = "parent"
	ScopeGlobal ComparisonScope = "global"
)

// Position relates a focal unit to its peer mean.
type Position string

const (
	PositionAbove Position = "Above"
	PositionBelow Position = "Below"
	PositionAt    Position = "At"
)

// ComparativeMetrics decorates one focal AggregateRow with its standing among
// peers: dense rank on total activities, percentile (fraction of the other
// peers strictly below, ×100), peer mean and the relative position.
type ComparativeMetrics struct {
	Focal      AggregateRow    `json:"focal"`
	Scope      ComparisonScope `json:"comparison_scope"`
	Rank       int             `json:"rank"`
	Percentile float64         `json:"percentile"`
	PeerMean   float64         `json:"peer_mean"`
	GlobalMean float64         `json:"global_mean"`
	Position   Position        `json:"position"`
	PeerCount  int             `json:"peer_count"`
}
