// Territorium - Geospatial Analytics for Territorial PHI Activities
// Copyright 2026 SIG-PHI contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/sigphi/territorium

// Package engine is the query façade. It composes the spatial store, the
// memoization layer, the pure analytics functions and the recommendation
// rules behind four read-only calls. Every call is idempotent: reads plus
// cache population, nothing else.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sigphi/territorium/internal/analytics"
	"github.com/sigphi/territorium/internal/cache"
	"github.com/sigphi/territorium/internal/config"
	"github.com/sigphi/territorium/internal/database"
	"github.com/sigphi/territorium/internal/errkind"
	"github.com/sigphi/territorium/internal/logging"
	"github.com/sigphi/territorium/internal/metrics"
	"github.com/sigphi/territorium/internal/models"
	"github.com/sigphi/territorium/internal/recommend"
)

// Store is the slice of the database adapter the façade reads through.
// *database.DB satisfies it; tests substitute a spy.
type Store interface {
	Aggregate(ctx context.Context, level models.Level, filter database.ActivityFilter, includeEmpty bool) (*models.AggregateResult, error)
	PairFrame(ctx context.Context, filter database.ActivityFilter) ([]models.PairObservation, error)
	ExportGeoJSON(ctx context.Context, result *models.AggregateResult) (*models.FeatureCollection, error)
	SnapshotVersion() int64
}

// Engine is safe for concurrent use. Parallel calls may each hit the store;
// identical in-flight aggregations are coalesced by the memo layer.
type Engine struct {
	store       Store
	memo        *cache.Memo
	recommender *recommend.Engine
	cfg         config.EngineConfig
}

// New wires a façade over a store with the given engine configuration.
func New(store Store, cfg config.EngineConfig) *Engine {
	return &Engine{
		store:       store,
		memo:        cache.NewMemo(cfg.CacheCapacity, cfg.CacheTTL),
		recommender: recommend.New(cfg.EfficiencyThreshold, cfg.DiversityThreshold),
		cfg:         cfg,
	}
}

// PrioritizeOptions narrows one prioritization call. Nil Budget means the
// configured default.
type PrioritizeOptions struct {
	ActivityType string
	Municipality string
	Budget       *int
}

// Aggregate returns the per-unit aggregate frame for a level and filter.
// An empty store or a filter matching nothing yields an empty frame.
func (e *Engine) Aggregate(ctx context.Context, level models.Level, filter database.ActivityFilter, includeEmpty bool) (*models.AggregateResult, error) {
	ctx, done := e.begin(ctx, "aggregate", level, filter)

	key := e.key("aggregate", level, filter, fmt.Sprintf("empty=%t", includeEmpty))
	v, cached, err := e.memo.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return e.store.Aggregate(ctx, level, filter, includeEmpty)
	})
	if err != nil {
		return nil, done(err)
	}
	result := v.(*models.AggregateResult)
	logging.Ctx(ctx).Debug().Bool("cached", cached).Int("rows", len(result.Rows)).Msg("aggregate served")
	done(nil)
	return result, nil
}

// Compare decorates one focal unit of an aggregate frame with its standing
// among parent siblings, falling back to the whole tier when the unit carries
// no parent.
func (e *Engine) Compare(ctx context.Context, level models.Level, focalUnitID int64, filter database.ActivityFilter) (*models.ComparativeMetrics, error) {
	ctx, done := e.begin(ctx, "compare", level, filter)

	frame, err := e.aggregateCached(ctx, level, filter)
	if err != nil {
		return nil, done(err)
	}
	m, err := analytics.Compare(frame.Rows, focalUnitID)
	if err != nil {
		return nil, done(err)
	}
	done(nil)
	return m, nil
}

// Prioritize scores (municipality, interest group) pairs under the filter and
// allocates the suggestion budget across them.
func (e *Engine) Prioritize(ctx context.Context, filter database.ActivityFilter, opts PrioritizeOptions) (*models.PrioritizationResult, error) {
	if opts.ActivityType != "" {
		filter.Category = opts.ActivityType
	}
	ctx, done := e.begin(ctx, "prioritize", models.LevelMunicipality, filter)

	budget := e.cfg.PrioritizationBudget
	if opts.Budget != nil {
		if *opts.Budget < 0 {
			return nil, done(errkind.Newf(errkind.KindInvalidArgument, "negative budget %d", *opts.Budget))
		}
		budget = *opts.Budget
	}

	key := e.key("prioritize", models.LevelMunicipality, filter,
		fmt.Sprintf("type=%s|muni=%s|budget=%d", opts.ActivityType, opts.Municipality, budget))
	v, _, err := e.memo.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		observations, err := e.store.PairFrame(ctx, filter)
		if err != nil {
			return nil, err
		}
		return analytics.Prioritize(observations, analytics.PrioritizeOptions{
			ActivityType:  opts.ActivityType,
			Municipality:  opts.Municipality,
			Budget:        budget,
			SuggestionCap: e.cfg.SuggestionCap,
		}), nil
	})
	if err != nil {
		return nil, done(err)
	}
	done(nil)
	return v.(*models.PrioritizationResult), nil
}

// Recommend runs the rule set against one unit's comparative metrics.
func (e *Engine) Recommend(ctx context.Context, level models.Level, unitID int64, filter database.ActivityFilter) ([]models.Recommendation, error) {
	ctx, done := e.begin(ctx, "recommend", level, filter)

	frame, err := e.aggregateCached(ctx, level, filter)
	if err != nil {
		return nil, done(err)
	}
	m, err := analytics.Compare(frame.Rows, unitID)
	if err != nil {
		return nil, done(err)
	}
	done(nil)
	return e.recommender.Recommend(m), nil
}

// ExportGeoJSON renders an aggregate frame as a FeatureCollection for map
// callers.
func (e *Engine) ExportGeoJSON(ctx context.Context, level models.Level, filter database.ActivityFilter) (*models.FeatureCollection, error) {
	ctx, done := e.begin(ctx, "export_geojson", level, filter)

	frame, err := e.aggregateCached(ctx, level, filter)
	if err != nil {
		return nil, done(err)
	}
	fc, err := e.store.ExportGeoJSON(ctx, frame)
	if err != nil {
		return nil, done(err)
	}
	done(nil)
	return fc, nil
}

// InvalidateCache drops every memoized frame. The store bumps its snapshot
// version on writes, which already keys stale entries out; this is for
// operational use when memory pressure matters.
func (e *Engine) InvalidateCache() {
	e.memo.Clear()
}

// aggregateCached is the shared dense-frame read used by the derived calls,
// hitting the same memo entries as Aggregate itself.
func (e *Engine) aggregateCached(ctx context.Context, level models.Level, filter database.ActivityFilter) (*models.AggregateResult, error) {
	key := e.key("aggregate", level, filter, "empty=false")
	v, _, err := e.memo.Do(ctx, key, func(ctx context.Context) (interface{}, error) {
		return e.store.Aggregate(ctx, level, filter, false)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.AggregateResult), nil
}

// key derives the memo key for an operation. The snapshot version is baked
// in, so a store write naturally retires every prior entry.
func (e *Engine) key(operation string, level models.Level, filter database.ActivityFilter, extra string) string {
	canonical := filter.Canonical()
	if extra != "" {
		canonical += "|" + extra
	}
	return cache.Key(operation, string(level), canonical, e.store.SnapshotVersion())
}

// begin stamps the context with a call ID and returns a completion func that
// translates the outcome into the error taxonomy, logs it and records the
// call metric. Only the error kind, the operation and the canonical filter
// are logged; raw filter values stay out of the logs.
func (e *Engine) begin(ctx context.Context, operation string, level models.Level, filter database.ActivityFilter) (context.Context, func(error) error) {
	if logging.CallIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCallID(ctx)
	}
	start := time.Now()
	canonical := filter.Canonical()

	logging.Ctx(ctx).Debug().
		Str("operation", operation).
		Str("level", string(level)).
		Str("filter", canonical).
		Msg("engine call started")

	return ctx, func(err error) error {
		if err != nil {
			if ctx.Err() != nil {
				err = errkind.Wrap(errkind.KindCancelled, err, operation+" cancelled")
			}
			logging.Ctx(ctx).Warn().
				Str("operation", operation).
				Str("level", string(level)).
				Str("filter", canonical).
				Str("kind", string(errkind.KindOf(err))).
				Msg("engine call failed")
		}
		metrics.ObserveEngineCall(operation, start, err)
		return err
	}
}
