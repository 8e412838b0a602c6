// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package models

// RecommendationKind names one of the closed set of rules.
type RecommendationKind string

const (
	RecommendIncreaseActivities RecommendationKind = "increase_activities"
	RecommendImproveOutreach    RecommendationKind = "improve_outreach"
	RecommendDiversify          RecommendationKind = "diversify"
	RecommendRegularity         RecommendationKind = "regularity"
)

// RecommendationPriority orders recommendations for display.
type RecommendationPriority string

const (
	RecommendationHigh   RecommendationPriority = "High"
	RecommendationMedium RecommendationPriority = "Medium"
	RecommendationLow    RecommendationPriority = "Low"
)

// Recommendation is one rule firing for a unit's metrics bundle.
type Recommendation struct {
	Kind     RecommendationKind     `json:"kind"`
	Text     string                 `json:"text"`
	Priority RecommendationPriority `json:"priority"`
}
