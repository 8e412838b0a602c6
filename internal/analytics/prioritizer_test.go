// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package analytics

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigphi/territorium/internal/models"
)

// tenPairs builds ten one-year pairs whose scores strictly descend: equal
// activity volume makes the score a pure function of efficiency.
func tenPairs() []models.PairObservation {
	obs := make([]models.PairObservation, 0, 10)
	for i := 0; i < 10; i++ {
		obs = append(obs, models.PairObservation{
			Municipality:    "PASTO",
			InterestGroupID: int64(i + 1),
			GroupName:       fmt.Sprintf("GROUP-%02d", i+1),
			Year:            2023,
			Activities:      1,
			Attendees:       (9 - i) * 10,
			Efficiency:      float64((9 - i) * 10),
		})
	}
	return obs
}

func TestPrioritizeBudgetWalk(t *testing.T) {
	result := Prioritize(tenPairs(), PrioritizeOptions{
		ActivityType: "workshop",
		Budget:       3,
	})
	require.Len(t, result.Rows, 10)
	assert.True(t, result.BudgetExhausted)
	assert.Equal(t, 3, result.SuggestedTotal)

	for i, r := range result.Rows {
		if i < 3 {
			assert.Equal(t, 1, r.SuggestedCount, "row %d", i)
			assert.NotEqual(t, models.ActionNoPrioritize, r.Action, "row %d", i)
		} else {
			assert.Equal(t, 0, r.SuggestedCount, "row %d", i)
			assert.Equal(t, models.ActionNoPrioritize, r.Action, "row %d", i)
		}
	}

	// Rows come back sorted by descending score.
	for i := 1; i < len(result.Rows); i++ {
		assert.LessOrEqual(t, result.Rows[i].Score, result.Rows[i-1].Score)
	}
}

func TestPrioritizeBudgetBound(t *testing.T) {
	for _, budget := range []int{0, 1, 5, 10, 200} {
		result := Prioritize(tenPairs(), PrioritizeOptions{
			ActivityType: "workshop",
			Budget:       budget,
		})
		assert.LessOrEqual(t, result.SuggestedTotal, budget, "budget %d", budget)
		for _, r := range result.Rows {
			assert.Contains(t, []int{0, 1}, r.SuggestedCount, "budget %d", budget)
		}
	}
}

func TestPrioritizeSingleTypeCapsPerPair(t *testing.T) {
	result := Prioritize(tenPairs(), PrioritizeOptions{
		ActivityType:  "workshop",
		Budget:        200,
		SuggestionCap: 3,
	})
	for _, r := range result.Rows {
		assert.LessOrEqual(t, r.SuggestedCount, 1, "%s/%s", r.Municipality, r.GroupName)
	}

	// Without a type the configured cap applies.
	result = Prioritize(tenPairs(), PrioritizeOptions{Budget: 200, SuggestionCap: 3})
	assert.Equal(t, 3, result.Rows[0].SuggestedCount)
}

func TestPrioritizeMonotonicity(t *testing.T) {
	counts := func(budget int) map[models.PairKey]int {
		result := Prioritize(tenPairs(), PrioritizeOptions{Budget: budget})
		out := make(map[models.PairKey]int, len(result.Rows))
		for _, r := range result.Rows {
			out[r.PairKey] = r.SuggestedCount
		}
		return out
	}

	prev := counts(0)
	for budget := 1; budget <= 12; budget++ {
		cur := counts(budget)
		for key, n := range cur {
			assert.GreaterOrEqual(t, n, prev[key], "budget %d pair %v", budget, key)
		}
		prev = cur
	}
}

func TestPrioritizeScoreTieBreak(t *testing.T) {
	obs := []models.PairObservation{
		{Municipality: "PASTO", InterestGroupID: 2, GroupName: "ZULU", Year: 2023, Activities: 4, Attendees: 40, Efficiency: 10},
		{Municipality: "PASTO", InterestGroupID: 1, GroupName: "ALPHA", Year: 2023, Activities: 4, Attendees: 40, Efficiency: 10},
		{Municipality: "IPIALES", InterestGroupID: 3, GroupName: "MIKE", Year: 2023, Activities: 4, Attendees: 40, Efficiency: 10},
	}

	result := Prioritize(obs, PrioritizeOptions{Budget: 2})
	require.Len(t, result.Rows, 3)
	assert.Equal(t, "IPIALES", result.Rows[0].Municipality)
	assert.Equal(t, "ALPHA", result.Rows[1].GroupName)
	assert.Equal(t, "ZULU", result.Rows[2].GroupName)
	assert.Equal(t, 0, result.Rows[2].SuggestedCount)
}

func TestPrioritizeMultiYearMeans(t *testing.T) {
	obs := []models.PairObservation{
		{Municipality: "PASTO", InterestGroupID: 1, GroupName: "ALPHA", Year: 2022, Activities: 4, Attendees: 100, Efficiency: 25},
		{Municipality: "PASTO", InterestGroupID: 1, GroupName: "ALPHA", Year: 2023, Activities: 8, Attendees: 120, Efficiency: 15},
	}

	result := Prioritize(obs, PrioritizeOptions{Budget: 10})
	require.Len(t, result.Rows, 1)
	r := result.Rows[0]
	assert.InDelta(t, 6, r.PairActivity, 1e-9)
	assert.Equal(t, 220, r.PairAttendees)
	assert.InDelta(t, 20, r.PairEfficiency, 1e-9)
}

func TestPrioritizeTargetAndAction(t *testing.T) {
	// Municipal mean activity is (10+2)/2 = 6, target 7.2: the busy pair
	// overshoots and is told to reduce, the quiet one to increase.
	obs := []models.PairObservation{
		{Municipality: "PASTO", InterestGroupID: 1, GroupName: "ALPHA", Year: 2023, Activities: 10, Attendees: 10, Efficiency: 1},
		{Municipality: "PASTO", InterestGroupID: 2, GroupName: "BRAVO", Year: 2023, Activities: 2, Attendees: 2, Efficiency: 1},
	}

	result := Prioritize(obs, PrioritizeOptions{Budget: 10})
	require.Len(t, result.Rows, 2)

	byGroup := make(map[string]models.PrioritizationRow)
	for _, r := range result.Rows {
		byGroup[r.GroupName] = r
	}
	assert.InDelta(t, 7.2, byGroup["ALPHA"].TargetActivity, 1e-9)
	assert.Equal(t, models.ActionReduce, byGroup["ALPHA"].Action)
	assert.Equal(t, 3, byGroup["ALPHA"].Gap)
	assert.Equal(t, models.ActionIncrease, byGroup["BRAVO"].Action)
	assert.Equal(t, -5, byGroup["BRAVO"].Gap)
}

func TestPrioritizeMunicipalityFilter(t *testing.T) {
	obs := []models.PairObservation{
		{Municipality: "Pasto", InterestGroupID: 1, GroupName: "ALPHA", Year: 2023, Activities: 3, Attendees: 30, Efficiency: 10},
		{Municipality: "Ipiales", InterestGroupID: 2, GroupName: "BRAVO", Year: 2023, Activities: 3, Attendees: 30, Efficiency: 10},
	}

	// Accent and case differences match through name normalization.
	result := Prioritize(obs, PrioritizeOptions{Municipality: "PASTO", Budget: 10})
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "Pasto", result.Rows[0].Municipality)
}

func TestPrioritizeZeroActivityFrame(t *testing.T) {
	obs := []models.PairObservation{
		{Municipality: "PASTO", InterestGroupID: 1, GroupName: "ALPHA", Year: 2023, Activities: 0, Attendees: 0, Efficiency: 0},
		{Municipality: "PASTO", InterestGroupID: 2, GroupName: "BRAVO", Year: 2023, Activities: 0, Attendees: 0, Efficiency: 0},
	}

	result := Prioritize(obs, PrioritizeOptions{Budget: 5})
	require.Len(t, result.Rows, 2)
	for _, r := range result.Rows {
		assert.False(t, r.Score != r.Score, "score must not be NaN")
		assert.InDelta(t, 0, r.Score, 1e-9)
	}
}

func TestPrioritizeEmptyInput(t *testing.T) {
	result := Prioritize(nil, PrioritizeOptions{Budget: 5})
	assert.Empty(t, result.Rows)
	assert.Zero(t, result.SuggestedTotal)
	assert.False(t, result.BudgetExhausted)
}

func TestTierBoundariesCoverFrame(t *testing.T) {
	result := Prioritize(tenPairs(), PrioritizeOptions{Budget: 200})
	seen := make(map[models.Tier]int)
	for _, r := range result.Rows {
		seen[r.Tier]++
	}
	assert.Contains(t, seen, models.TierHigh)
	assert.Contains(t, seen, models.TierLow)

	// Top score always lands in the highest surviving tier.
	assert.Equal(t, models.TierHigh, result.Rows[0].Tier)
}
