// Package monitor contains the scheduled jobs that watch stock levels and
// trigger automated ordering.
package monitor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/modules/alerts"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/reorder"
)

// forecastStaleAfter is how old the last refit may be before the stock
// monitor raises a staleness alert.
const forecastStaleAfter = 48 * time.Hour

// LowStockLister lists active products at or below a stock threshold.
type LowStockLister interface {
	ListLowStockProducts(threshold int) ([]domain.Product, error)
}

// StockMonitorJob scans the catalog for low-stock products and raises
// alerts for any that the reorder engine confirms need replenishment.
type StockMonitorJob struct {
	products  LowStockLister
	reorders  *reorder.Service
	forecasts *forecast.Service
	alerts    *alerts.Log
	threshold int
	startedAt time.Time
	log       zerolog.Logger
}

// NewStockMonitorJob creates the stock monitor.
func NewStockMonitorJob(
	products LowStockLister,
	reorders *reorder.Service,
	forecasts *forecast.Service,
	alertLog *alerts.Log,
	threshold int,
	log zerolog.Logger,
) *StockMonitorJob {
	return &StockMonitorJob{
		products:  products,
		reorders:  reorders,
		forecasts: forecasts,
		alerts:    alertLog,
		threshold: threshold,
		startedAt: time.Now().UTC(),
		log:       log.With().Str("job", "stock_monitor").Logger(),
	}
}

// Name implements scheduler.Job.
func (j *StockMonitorJob) Name() string { return "stock_monitor" }

// Run scans for low-stock products and logs an alert for each one that
// still needs a reorder. Also flags a stale forecast state. A process that
// has never completed a retrain counts as stale once it has been up longer
// than the staleness window.
func (j *StockMonitorJob) Run() error {
	if age := j.forecastAge(); age > forecastStaleAfter {
		j.alerts.ForecastStaleAlert(age)
	}

	low, err := j.products.ListLowStockProducts(j.threshold)
	if err != nil {
		return fmt.Errorf("failed to list low stock products: %w", err)
	}

	flagged := 0
	for _, product := range low {
		status, err := j.reorders.CheckReorderStatus(product.ID)
		if err != nil {
			j.log.Warn().Err(err).Str("product_id", product.ID).Msg("Reorder status check failed")
			continue
		}
		if !status.Calculated || !status.NeedsReorder {
			continue
		}
		j.alerts.LowStockAlert(product.ID, product.CountInStock, status.ReorderPoint, status.Urgency)
		flagged++
	}

	j.log.Debug().
		Int("low_stock", len(low)).
		Int("flagged", flagged).
		Msg("Stock scan completed")

	return nil
}

// forecastAge is the time since the last successful refit, or since process
// start when no retrain has ever completed.
func (j *StockMonitorJob) forecastAge() time.Duration {
	refit := j.forecasts.LastRefit()
	if refit.IsZero() {
		return time.Since(j.startedAt)
	}
	return time.Since(refit)
}
