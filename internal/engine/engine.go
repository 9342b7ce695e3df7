// Package engine coordinates the retrain pipeline that turns raw sales
// history into demand forecasts and reorder recommendations.
package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/history"
	"github.com/stockwell/replenish/internal/modules/patterns"
	"github.com/stockwell/replenish/internal/modules/reorder"
)

// Engine runs the full retrain pipeline: aggregate history, extract
// patterns, refit forecasts, and recalculate reorder points. Only one
// retrain runs at a time; concurrent callers get ErrRetrainInProgress.
type Engine struct {
	aggregator *history.Aggregator
	extractor  *patterns.Extractor
	forecasts  *forecast.Service
	reorders   *reorder.Service
	log        zerolog.Logger

	busy atomic.Bool
}

// New creates a new engine.
func New(
	aggregator *history.Aggregator,
	extractor *patterns.Extractor,
	forecasts *forecast.Service,
	reorders *reorder.Service,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		aggregator: aggregator,
		extractor:  extractor,
		forecasts:  forecasts,
		reorders:   reorders,
		log:        log.With().Str("component", "engine").Logger(),
	}
}

// Retrain runs the pipeline end to end. On failure the previously fitted
// forecasts and reorder state are left untouched.
func (e *Engine) Retrain() error {
	if !e.busy.CompareAndSwap(false, true) {
		return domain.ErrRetrainInProgress
	}
	defer e.busy.Store(false)

	started := time.Now()
	e.log.Info().Msg("Retrain started")

	aggregated, err := e.aggregator.Aggregate()
	if err != nil {
		return fmt.Errorf("failed to aggregate sales history: %w", err)
	}

	profiles := e.extractor.BuildProfiles(aggregated)

	e.forecasts.Refit(profiles)
	e.reorders.Recalculate(e.forecasts.Snapshot())

	e.log.Info().
		Int("products", len(profiles)).
		Dur("elapsed", time.Since(started)).
		Msg("Retrain completed")

	return nil
}

// RetrainAsync kicks off a retrain in the background. It returns
// ErrRetrainInProgress immediately if one is already running.
func (e *Engine) RetrainAsync() error {
	if e.busy.Load() {
		return domain.ErrRetrainInProgress
	}
	go func() {
		if err := e.Retrain(); err != nil {
			e.log.Error().Err(err).Msg("Background retrain failed")
		}
	}()
	return nil
}

// Busy reports whether a retrain is currently running.
func (e *Engine) Busy() bool {
	return e.busy.Load()
}

// Run implements scheduler.Job.
func (e *Engine) Run() error { return e.Retrain() }

// Name implements scheduler.Job.
func (e *Engine) Name() string { return "retrain" }
