// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package analytics holds the pure derivation layer: comparative standing and
// interest-group prioritization over aggregate frames. Nothing here touches
// the store or the cache, which keeps every function a deterministic table
// test away from its contract.
package analytics

import (
	"math"
	"sort"

	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/models"
)

// positionTolerance bounds float accumulation noise when a unit sits exactly
// on the peer mean.
const positionTolerance = 1e-9

// Compare computes the standing of one focal unit among its peers at a level.
// Peers are the rows sharing the focal row's parent; when the focal row has no
// parent recorded the whole frame is the peer set and the scope is global.
func Compare(rows []models.AggregateRow, focalUnitID int64) (*models.ComparativeMetrics, error) {
	var focal *models.AggregateRow
	for i := range rows {
		if rows[i].UnitID == focalUnitID {
			focal = &rows[i]
			break
		}
	}
	if focal == nil {
		return nil, errkind.Newf(errkind.KindUnknownUnit, "unit %d not present in aggregate frame", focalUnitID)
	}

	scope := models.ScopeParent
	var peers []models.AggregateRow
	if focal.ParentName == "" {
		scope = models.ScopeGlobal
		peers = rows
	} else {
		for _, r := range rows {
			if r.ParentName == focal.ParentName {
				peers = append(peers, r)
			}
		}
	}

	var globalSum float64
	for _, r := range rows {
		globalSum += float64(r.TotalActivities)
	}

	m := &models.ComparativeMetrics{
		Focal:      *focal,
		Scope:      scope,
		PeerCount:  len(peers),
		GlobalMean: globalSum / float64(len(rows)),
	}

	if len(peers) == 1 {
		m.Rank = 1
		m.Percentile = 100
		m.PeerMean = float64(focal.TotalActivities)
		m.Position = models.PositionAt
		return m, nil
	}

	ranked := make([]models.AggregateRow, len(peers))
	copy(ranked, peers)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].TotalActivities != ranked[j].TotalActivities {
			return ranked[i].TotalActivities > ranked[j].TotalActivities
		}
		if ranked[i].TotalAttendees != ranked[j].TotalAttendees {
			return ranked[i].TotalAttendees > ranked[j].TotalAttendees
		}
		return ranked[i].UnitName < ranked[j].UnitName
	})

	// Dense rank: equal (activities, attendees) share a rank, the next
	// distinct value takes rank+1.
	rank := 0
	prevActivities, prevAttendees := -1, -1
	var peerSum float64
	var strictlyLower int
	for _, r := range ranked {
		if r.TotalActivities != prevActivities || r.TotalAttendees != prevAttendees {
			rank++
			prevActivities, prevAttendees = r.TotalActivities, r.TotalAttendees
		}
		if r.UnitID == focalUnitID {
			m.Rank = rank
		}
		peerSum += float64(r.TotalActivities)
		if r.TotalActivities < focal.TotalActivities {
			strictlyLower++
		}
	}

	m.PeerMean = peerSum / float64(len(peers))
	m.Percentile = 100 * float64(strictlyLower) / float64(len(peers)-1)

	diff := float64(focal.TotalActivities) - m.PeerMean
	switch {
	case math.Abs(diff) <= positionTolerance:
		m.Position = models.PositionAt
	case diff > 0:
		m.Position = models.PositionAbove
	default:
		m.Position = models.PositionBelow
	}
	return m, nil
}
