// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package recommend turns a unit's comparative metrics into a short list of
// actionable recommendations. The rule set is closed: four independent rules,
// evaluated in a fixed order, each free to fire on its own.
package recommend

import (
	"fmt"
	"math"

	"github.com/sigphi/territorium/internal/models"
)

// Engine holds the thresholds the rules compare against. Zero values are not
// usable; construct with New.
type Engine struct {
	efficiencyThreshold float64
	diversityThreshold  int
}

// New returns an Engine with the given thresholds. Typical values come from
// EngineConfig: efficiency 20 attendees per activity, diversity 3 categories.
func New(efficiencyThreshold float64, diversityThreshold int) *Engine {
	return &Engine{
		efficiencyThreshold: efficiencyThreshold,
		diversityThreshold:  diversityThreshold,
	}
}

type rule func(*Engine, *models.ComparativeMetrics) *models.Recommendation

// Rule order is part of the output contract, so callers can render the list
// without re-sorting.
var rules = []rule{
	(*Engine).increaseActivities,
	(*Engine).improveOutreach,
	(*Engine).diversify,
	(*Engine).regularity,
}

// Recommend evaluates every rule against one unit's metrics bundle. Multiple
// rules may fire; a unit in good standing gets an empty list.
func (e *Engine) Recommend(m *models.ComparativeMetrics) []models.Recommendation {
	out := make([]models.Recommendation, 0, len(rules))
	for _, r := range rules {
		if rec := r(e, m); rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// increaseActivities fires when the unit sits below its peer mean. The gap to
// the mean decides urgency: a unit that would have to more than double its
// output is High.
func (e *Engine) increaseActivities(m *models.ComparativeMetrics) *models.Recommendation {
	if m.Position != models.PositionBelow {
		return nil
	}
	gap := m.PeerMean - float64(m.Focal.TotalActivities)
	priority := models.RecommendationMedium
	if gap > float64(m.Focal.TotalActivities) {
		priority = models.RecommendationHigh
	}
	return &models.Recommendation{
		Kind: models.RecommendIncreaseActivities,
		Text: fmt.Sprintf("%s ran %d activities against a peer mean of %.1f; plan roughly %d more to close the gap",
			m.Focal.UnitName, m.Focal.TotalActivities, m.PeerMean, int(math.Ceil(gap))),
		Priority: priority,
	}
}

func (e *Engine) improveOutreach(m *models.ComparativeMetrics) *models.Recommendation {
	if m.Focal.Efficiency >= e.efficiencyThreshold {
		return nil
	}
	return &models.Recommendation{
		Kind: models.RecommendImproveOutreach,
		Text: fmt.Sprintf("attendance averages %.1f per activity in %s, below the %.0f target; review convocation channels",
			m.Focal.Efficiency, m.Focal.UnitName, e.efficiencyThreshold),
		Priority: models.RecommendationHigh,
	}
}

func (e *Engine) diversify(m *models.ComparativeMetrics) *models.Recommendation {
	if m.Focal.CategoryDiversity >= e.diversityThreshold {
		return nil
	}
	return &models.Recommendation{
		Kind: models.RecommendDiversify,
		Text: fmt.Sprintf("%s covers %d activity categories; broaden the mix to at least %d",
			m.Focal.UnitName, m.Focal.CategoryDiversity, e.diversityThreshold),
		Priority: models.RecommendationMedium,
	}
}

// regularity fires when the unit was active in fewer than half the months of
// its active years.
func (e *Engine) regularity(m *models.ComparativeMetrics) *models.Recommendation {
	expected := 0.5 * float64(m.Focal.ActiveYears*12)
	if float64(m.Focal.ActiveMonths) >= expected {
		return nil
	}
	return &models.Recommendation{
		Kind: models.RecommendRegularity,
		Text: fmt.Sprintf("%s was active in %d of %d months; spread activities across the year",
			m.Focal.UnitName, m.Focal.ActiveMonths, m.Focal.ActiveYears*12),
		Priority: models.RecommendationHigh,
	}
}
