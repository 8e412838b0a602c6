// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package recommend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigphi/territorium/internal/models"
)

func testEngine() *Engine { return New(20, 3) }

func metricsBundle(activities int, peerMean float64, position models.Position,
	efficiency float64, categories, months, years int) *models.ComparativeMetrics {
	return &models.ComparativeMetrics{
		Focal: models.AggregateRow{
			UnitName:          "PASTO",
			TotalActivities:   activities,
			Efficiency:        efficiency,
			CategoryDiversity: categories,
			ActiveMonths:      months,
			ActiveYears:       years,
		},
		PeerMean: peerMean,
		Position: position,
	}
}

func TestRecommendAllRulesFire(t *testing.T) {
	// A unit far below its peers on every axis triggers the full rule set.
	m := metricsBundle(2, 10, models.PositionBelow, 15, 2, 3, 2)

	recs := testEngine().Recommend(m)
	require.Len(t, recs, 4)

	assert.Equal(t, models.RecommendIncreaseActivities, recs[0].Kind)
	assert.Equal(t, models.RecommendationHigh, recs[0].Priority) // gap 8 > 2 activities
	assert.Equal(t, models.RecommendImproveOutreach, recs[1].Kind)
	assert.Equal(t, models.RecommendationHigh, recs[1].Priority)
	assert.Equal(t, models.RecommendDiversify, recs[2].Kind)
	assert.Equal(t, models.RecommendationMedium, recs[2].Priority)
	assert.Equal(t, models.RecommendRegularity, recs[3].Kind)
	assert.Equal(t, models.RecommendationHigh, recs[3].Priority)
}

func TestRecommendHealthyUnit(t *testing.T) {
	m := metricsBundle(20, 10, models.PositionAbove, 35, 5, 11, 1)
	assert.Empty(t, testEngine().Recommend(m))
}

func TestIncreaseActivitiesPriority(t *testing.T) {
	// Gap smaller than current output stays Medium.
	m := metricsBundle(8, 10, models.PositionBelow, 30, 5, 12, 1)
	recs := testEngine().Recommend(m)
	require.Len(t, recs, 1)
	assert.Equal(t, models.RecommendIncreaseActivities, recs[0].Kind)
	assert.Equal(t, models.RecommendationMedium, recs[0].Priority)
}

func TestRegularityBoundary(t *testing.T) {
	// Exactly half the months does not fire; one month fewer does.
	at := metricsBundle(20, 10, models.PositionAbove, 35, 5, 12, 2)
	assert.Empty(t, testEngine().Recommend(at))

	below := metricsBundle(20, 10, models.PositionAbove, 35, 5, 11, 2)
	recs := testEngine().Recommend(below)
	require.Len(t, recs, 1)
	assert.Equal(t, models.RecommendRegularity, recs[0].Kind)
}

func TestRecommendationClosure(t *testing.T) {
	known := map[models.RecommendationKind]bool{
		models.RecommendIncreaseActivities: true,
		models.RecommendImproveOutreach:    true,
		models.RecommendDiversify:          true,
		models.RecommendRegularity:         true,
	}

	bundles := []*models.ComparativeMetrics{
		metricsBundle(0, 0, models.PositionAt, 0, 0, 0, 0),
		metricsBundle(2, 10, models.PositionBelow, 15, 2, 3, 2),
		metricsBundle(100, 5, models.PositionAbove, 50, 10, 24, 2),
		metricsBundle(1, 100, models.PositionBelow, 0, 1, 1, 5),
	}
	for _, m := range bundles {
		for _, rec := range testEngine().Recommend(m) {
			assert.True(t, known[rec.Kind], "unexpected kind %q", rec.Kind)
			assert.NotEmpty(t, rec.Text)
			assert.NotEmpty(t, rec.Priority)
		}
	}
}
