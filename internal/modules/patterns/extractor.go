// Package patterns builds per-product series profiles: normalized seasonal
// index vectors and trend statistics extracted from daily sales records.
package patterns

import (
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/stockwell/replenish/internal/domain"
)

// MinRecordsForTrends is the minimum series length for trend computation.
// Shorter series still get a profile with default trend fields.
const MinRecordsForTrends = 7

// Extractor builds ProductSeriesProfiles from aggregated sales records.
type Extractor struct {
	log zerolog.Logger
}

// NewExtractor creates a new pattern extractor.
func NewExtractor(log zerolog.Logger) *Extractor {
	return &Extractor{
		log: log.With().Str("component", "patterns").Logger(),
	}
}

// BuildProfiles builds a profile for every product in the aggregated history.
// Profiles are rebuilt wholesale; there is no incremental mutation.
func (e *Extractor) BuildProfiles(history map[string][]domain.HistoricalSalesRecord) map[string]*domain.ProductSeriesProfile {
	profiles := make(map[string]*domain.ProductSeriesProfile, len(history))
	for productID, records := range history {
		profiles[productID] = e.BuildProfile(productID, records)
	}
	return profiles
}

// BuildProfile builds the profile for a single product. Records must be
// sorted by date ascending (the aggregator guarantees this).
func (e *Extractor) BuildProfile(productID string, records []domain.HistoricalSalesRecord) *domain.ProductSeriesProfile {
	profile := &domain.ProductSeriesProfile{
		ProductID: productID,
		Records:   records,
		Seasonal:  extractSeasonalPatterns(records),
	}

	if len(records) >= MinRecordsForTrends {
		profile.Trends = extractTrends(records)
	}

	return profile
}

// extractSeasonalPatterns sums quantity into month/weekday/quarter buckets
// and rescales each vector so its arithmetic mean is 1.0. Empty or zero-sum
// inputs leave the vector at its all-ones default.
func extractSeasonalPatterns(records []domain.HistoricalSalesRecord) domain.SeasonalPatterns {
	patterns := domain.DefaultSeasonalPatterns()

	var monthly [12]float64
	var weekly [7]float64
	var quarterly [4]float64

	for _, rec := range records {
		monthly[int(rec.Seasonality.Month)-1] += rec.QuantitySold
		weekly[int(rec.Seasonality.DayOfWeek)] += rec.QuantitySold
		quarterly[rec.Seasonality.Quarter-1] += rec.QuantitySold
	}

	normalize(patterns.Monthly[:], monthly[:])
	normalize(patterns.Weekly[:], weekly[:])
	normalize(patterns.Quarterly[:], quarterly[:])

	return patterns
}

// normalize rescales src so its mean is 1.0 and writes the result into dst.
// A zero total leaves dst untouched (identity factors).
func normalize(dst, src []float64) {
	var total float64
	for _, v := range src {
		total += v
	}
	if total <= 0 {
		return
	}

	mean := total / float64(len(src))
	for i, v := range src {
		dst[i] = v / mean
	}
}

// extractTrends computes growth, volatility, and cyclicality for a series
// of at least MinRecordsForTrends records.
func extractTrends(records []domain.HistoricalSalesRecord) domain.TrendStats {
	quantities := make([]float64, len(records))
	xs := make([]float64, len(records))
	for i, rec := range records {
		quantities[i] = rec.QuantitySold
		xs[i] = float64(i)
	}

	// Growth: linear-regression slope of quantity over the full series
	_, growth := stat.LinearRegression(xs, quantities, nil, false)

	// Volatility: standard deviation of successive relative daily changes.
	// Days with zero quantity contribute no change sample (undefined ratio).
	var changes []float64
	for i := 1; i < len(quantities); i++ {
		if quantities[i-1] != 0 {
			changes = append(changes, (quantities[i]-quantities[i-1])/quantities[i-1])
		}
	}
	var volatility float64
	if len(changes) >= 2 {
		volatility = stat.StdDev(changes, nil)
	}

	// Cyclicality: variance-to-mean ratio of monthly aggregated quantity.
	// Higher values indicate a more seasonal product.
	monthTotals := make(map[int]float64)
	for _, rec := range records {
		key := rec.Date.Year()*12 + int(rec.Date.Month())
		monthTotals[key] += rec.QuantitySold
	}
	totals := make([]float64, 0, len(monthTotals))
	for _, v := range monthTotals {
		totals = append(totals, v)
	}
	var cyclicality float64
	if len(totals) >= 2 {
		mean, variance := stat.MeanVariance(totals, nil)
		if mean > 0 {
			cyclicality = variance / mean
		}
	}

	return domain.TrendStats{
		Growth:      growth,
		Volatility:  volatility,
		Cyclicality: cyclicality,
		Computed:    true,
	}
}
