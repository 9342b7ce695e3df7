// Package history aggregates raw fulfilled order lines into per-product
// daily sales records with calendar seasonality tags.
package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/cache"
	"github.com/stockwell/replenish/internal/domain"
)

// Aggregator pulls trailing-window order lines and groups them by
// product and day. Results are cached since the underlying data changes
// slowly relative to the forecast refresh cadence.
type Aggregator struct {
	source domain.SalesHistorySource
	cache  domain.Cache
	window time.Duration
	log    zerolog.Logger
}

// NewAggregator creates a new historical data aggregator.
// windowDays is the trailing history window (365 by default upstream).
func NewAggregator(source domain.SalesHistorySource, c domain.Cache, windowDays int, log zerolog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		cache:  c,
		window: time.Duration(windowDays) * 24 * time.Hour,
		log:    log.With().Str("component", "aggregator").Logger(),
	}
}

// Aggregate returns per-product daily sales records for the trailing window,
// each list sorted by date ascending. Products with zero history are simply
// absent from the map; downstream components degrade gracefully.
func (a *Aggregator) Aggregate() (map[string][]domain.HistoricalSalesRecord, error) {
	if a.cache != nil {
		var cached map[string][]domain.HistoricalSalesRecord
		hit, err := a.cache.Get(cache.KeyAggregatedHistory, &cached)
		if err != nil {
			// A broken cache read is never fatal; recompute.
			a.log.Warn().Err(err).Msg("Cache read failed, recomputing aggregation")
		} else if hit {
			a.log.Debug().Int("products", len(cached)).Msg("Aggregated history served from cache")
			return cached, nil
		}
	}

	since := time.Now().Add(-a.window)
	lines, err := a.source.FulfilledOrderLinesSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to load fulfilled order lines: %w", err)
	}

	result := a.aggregateLines(lines)

	if a.cache != nil {
		if err := a.cache.Set(cache.KeyAggregatedHistory, result, cache.TTLHistory); err != nil {
			a.log.Warn().Err(err).Msg("Failed to cache aggregated history")
		}
	}

	a.log.Info().
		Int("lines", len(lines)).
		Int("products", len(result)).
		Msg("Aggregated sales history")

	return result, nil
}

// aggregateLines groups order lines by product and sales day and derives
// the calendar seasonality tag for each record.
func (a *Aggregator) aggregateLines(lines []domain.OrderLine) map[string][]domain.HistoricalSalesRecord {
	type dayKey struct {
		productID string
		day       time.Time
	}

	buckets := make(map[dayKey]*domain.HistoricalSalesRecord)
	for _, line := range lines {
		day := domain.DayOf(line.OrderedAt)
		key := dayKey{productID: line.ProductID, day: day}

		rec, ok := buckets[key]
		if !ok {
			rec = &domain.HistoricalSalesRecord{
				ProductID: line.ProductID,
				Date:      day,
				Category:  line.Category,
				Seasonality: domain.SeasonalityTag{
					Month:     day.Month(),
					DayOfWeek: day.Weekday(),
					Quarter:   domain.QuarterOf(day),
				},
			}
			buckets[key] = rec
		}

		rec.QuantitySold += line.Quantity
		rec.Revenue += line.Revenue
		rec.OrderCount++
	}

	result := make(map[string][]domain.HistoricalSalesRecord)
	for _, rec := range buckets {
		// Revenue-weighted average unit price for the day
		if rec.QuantitySold > 0 {
			rec.UnitPrice = rec.Revenue / rec.QuantitySold
		}
		result[rec.ProductID] = append(result[rec.ProductID], *rec)
	}

	for productID := range result {
		records := result[productID]
		sort.Slice(records, func(i, j int) bool {
			return records[i].Date.Before(records[j].Date)
		})
		result[productID] = records
	}

	return result
}
