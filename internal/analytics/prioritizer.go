// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/sigphi/territorium/internal/models"
	"github.com/sigphi/territorium/internal/normalize"
)

// PrioritizeOptions narrows and bounds a prioritization run.
type PrioritizeOptions struct {
	// ActivityType caps each pair's suggestion at one activity of that type.
	ActivityType string
	// Municipality restricts the frame to one municipality before scoring.
	Municipality string
	// Budget is the total suggested-activity budget. A zero budget marks
	// every pair "Do not prioritize"; callers wanting the default pass the
	// configured value.
	Budget int
	// SuggestionCap bounds the per-pair suggestion. Values below 1 mean 1.
	SuggestionCap int
}

// pairAccum folds the per-year observations of one pair.
type pairAccum struct {
	key        models.PairKey
	years      int
	activities int
	attendees  int
	efficiency float64
}

// Prioritize scores (municipality, interest group) pairs and allocates a
// suggested-activity budget across them, highest score first. Every input
// pair appears in the output: pairs past the budget keep their score and tier
// but are marked "Do not prioritize" with a zero suggestion.
func Prioritize(observations []models.PairObservation, opts PrioritizeOptions) *models.PrioritizationResult {
	result := &models.PrioritizationResult{Budget: opts.Budget}

	wantMunicipality := normalize.Name(opts.Municipality)
	accums := make(map[models.PairKey]*pairAccum)
	var order []models.PairKey
	for _, o := range observations {
		if wantMunicipality != "" && normalize.Name(o.Municipality) != wantMunicipality {
			continue
		}
		key := models.PairKey{
			Municipality:    o.Municipality,
			InterestGroupID: o.InterestGroupID,
			GroupName:       o.GroupName,
		}
		acc, ok := accums[key]
		if !ok {
			acc = &pairAccum{key: key}
			accums[key] = acc
			order = append(order, key)
		}
		acc.years++
		acc.activities += o.Activities
		acc.attendees += o.Attendees
		acc.efficiency += o.Efficiency
	}
	if len(order) == 0 {
		return result
	}

	rows := make([]models.PrioritizationRow, 0, len(order))
	var maxPairActivity float64
	municipalSum := make(map[string]float64)
	municipalCount := make(map[string]int)
	for _, key := range order {
		acc := accums[key]
		row := models.PrioritizationRow{
			PairKey:        key,
			PairActivity:   float64(acc.activities) / float64(acc.years),
			PairAttendees:  acc.attendees,
			PairEfficiency: acc.efficiency / float64(acc.years),
		}
		if row.PairActivity > maxPairActivity {
			maxPairActivity = row.PairActivity
		}
		muni := normalize.Name(key.Municipality)
		municipalSum[muni] += row.PairActivity
		municipalCount[muni]++
		rows = append(rows, row)
	}

	// Score: efficiency dominates, activity volume enters normalized by the
	// frame maximum. A frame of all-zero activity keeps the second term 0.
	scores := make([]float64, len(rows))
	for i := range rows {
		activityTerm := 0.0
		if maxPairActivity > 0 {
			activityTerm = rows[i].PairActivity / maxPairActivity
		}
		rows[i].Score = 0.7*rows[i].PairEfficiency + 0.3*activityTerm
		scores[i] = rows[i].Score
	}

	low, high := tierBoundaries(scores)
	for i := range rows {
		rows[i].Tier = tierFor(rows[i].Score, low, high)
	}

	for i := range rows {
		muni := normalize.Name(rows[i].Municipality)
		target := 1.2 * municipalSum[muni] / float64(municipalCount[muni])
		rows[i].TargetActivity = target
		rows[i].Gap = int(math.Round(rows[i].PairActivity - target))
		if rows[i].Gap < 0 {
			rows[i].Action = models.ActionIncrease
		} else {
			rows[i].Action = models.ActionReduce
		}
	}

	perPair := opts.SuggestionCap
	if perPair < 1 {
		perPair = 1
	}
	// A single-type run plans one activity of that type per pair at most,
	// whatever the configured cap says.
	if opts.ActivityType != "" {
		perPair = 1
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Municipality != rows[j].Municipality {
			return rows[i].Municipality < rows[j].Municipality
		}
		return rows[i].GroupName < rows[j].GroupName
	})

	for i := range rows {
		suggested := perPair
		if result.SuggestedTotal+suggested > opts.Budget {
			rows[i].SuggestedCount = 0
			rows[i].Action = models.ActionNoPrioritize
			result.BudgetExhausted = true
			continue
		}
		rows[i].SuggestedCount = suggested
		result.SuggestedTotal += suggested
	}

	result.Rows = rows
	return result
}

// tierBoundaries returns the empirical 1/3 and 2/3 score quantiles. Equal
// boundaries collapse tiers on small or degenerate inputs, which is fine.
func tierBoundaries(scores []float64) (low, high float64) {
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	low = stat.Quantile(1.0/3.0, stat.Empirical, sorted, nil)
	high = stat.Quantile(2.0/3.0, stat.Empirical, sorted, nil)
	return low, high
}

func tierFor(score, low, high float64) models.Tier {
	switch {
	case score > high:
		return models.TierHigh
	case score > low:
		return models.TierMedium
	default:
		return models.TierLow
	}
}
