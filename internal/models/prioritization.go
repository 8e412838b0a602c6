// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package models

// Tier is the priority band assigned by score quantile.
type Tier string

const (
	TierLow    Tier = "Low"
	TierMedium Tier = "Medium"
	TierHigh   Tier = "High"
)

// Action is the recommended direction for a (municipality, interest group) pair.
type Action string

const (
	ActionIncrease     Action = "Increase"
	ActionReduce       Action = "Reduce"
	ActionNoPrioritize Action = "Do not prioritize"
)

// PairObservation is one (municipality, interest group, year) slice of the
// activity frame, the raw input row for prioritization.
type PairObservation struct {
	Municipality    string  `json:"municipality"`
	InterestGroupID int64   `json:"interest_group_id"`
	GroupName       string  `json:"group_name"`
	Year            int     `json:"year"`
	Activities      int     `json:"activities"`
	Attendees       int     `json:"attendees"`
	Efficiency      float64 `json:"efficiency"`
}

// PairKey identifies one (municipality, interest group) pair.
type PairKey struct {
	Municipality    string `json:"municipality"`
	InterestGroupID int64  `json:"interest_group_id"`
	GroupName       string `json:"group_name"`
}

// PrioritizationRow is the scored, tiered and budgeted output for one pair.
// Every input pair appears in the output; pairs past the budget keep their
// score and tier but get SuggestedCount 0 and ActionNoPrioritize.
type PrioritizationRow struct {
	PairKey

	PairActivity   float64 `json:"pair_activity"`   // mean activities of the pair
	PairAttendees  int     `json:"pair_attendees"`  // summed attendees
	PairEfficiency float64 `json:"pair_efficiency"` // mean efficiency
	Score          float64 `json:"score"`
	Tier           Tier    `json:"priority"`
	TargetActivity float64 `json:"target_activity"` // 1.2 × municipal mean
	Gap            int     `json:"gap"`             // pair activity − target, rounded
	Action         Action  `json:"action"`
	SuggestedCount int     `json:"suggested_count"`
}

// PrioritizationResult is the full output frame plus the budget accounting.
type PrioritizationResult struct {
	Rows            []PrioritizationRow `json:"rows"`
	Budget          int                 `json:"budget"`
	SuggestedTotal  int                 `json:"suggested_total"`
	BudgetExhausted bool                `json:"budget_exhausted"` // informational, not an error
}
