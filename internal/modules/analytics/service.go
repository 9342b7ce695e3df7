// Package analytics produces dashboard reports: forecast accuracy,
// inventory performance, seasonal trends, and category performance.
package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/cache"
	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/modules/catalog"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/reorder"
)

// smoothingWindow for the seasonal trend moving average.
const smoothingWindow = 3

// PerformanceReport summarizes forecast accuracy and reorder posture.
type PerformanceReport struct {
	GeneratedAt       time.Time `json:"generated_at"`
	ProductsTracked   int       `json:"products_tracked"`
	ProductsForecast  int       `json:"products_forecast"`
	AverageConfidence float64   `json:"average_confidence"`
	ForecastAccuracy  float64   `json:"forecast_accuracy"` // 1 - mean absolute percentage error, clamped to [0,1]
	NeedingReorder    int       `json:"needing_reorder"`
	CriticalProducts  int       `json:"critical_products"`
}

// MonthTrend is one month of the seasonal trend report.
type MonthTrend struct {
	Month    time.Month `json:"month"`
	Index    float64    `json:"index"`    // Mean normalized index across products
	Smoothed float64    `json:"smoothed"` // 3-month moving average of the index
}

// SeasonalTrendReport aggregates seasonal indices across the catalog.
type SeasonalTrendReport struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Months      []MonthTrend `json:"months"`
	PeakMonth   time.Month   `json:"peak_month"`
	TroughMonth time.Month   `json:"trough_month"`
}

// Service computes analytics reports from the forecast and reorder state.
// Reports are cached with a short advisory TTL; stale reads are acceptable.
type Service struct {
	forecasts *forecast.Service
	reorders  *reorder.Service
	products  domain.ProductStore
	sales     *catalog.SalesRepository
	cache     domain.Cache
	log       zerolog.Logger
}

// NewService creates a new analytics service.
func NewService(
	forecasts *forecast.Service,
	reorders *reorder.Service,
	products domain.ProductStore,
	sales *catalog.SalesRepository,
	c domain.Cache,
	log zerolog.Logger,
) *Service {
	return &Service{
		forecasts: forecasts,
		reorders:  reorders,
		products:  products,
		sales:     sales,
		cache:     c,
		log:       log.With().Str("service", "analytics").Logger(),
	}
}

// AnalyzeInventoryPerformance reports forecast accuracy over fitted points
// and the current reorder posture of the active catalog.
func (s *Service) AnalyzeInventoryPerformance() (*PerformanceReport, error) {
	if s.cache != nil {
		var cached PerformanceReport
		if hit, err := s.cache.Get(cache.KeyPerformanceReport, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	products, err := s.products.ListActiveProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}

	report := &PerformanceReport{
		GeneratedAt:     time.Now().UTC(),
		ProductsTracked: len(products),
	}

	var confidenceSum float64
	var errorSum float64
	var errorSamples int

	snapshot := s.forecasts.Snapshot()
	for _, fc := range snapshot {
		report.ProductsForecast++
		confidenceSum += fc.Confidence

		for _, p := range fc.Points {
			if p.Actual == nil || *p.Actual <= 0 {
				continue
			}
			errorSum += math.Abs(*p.Actual-p.Predicted) / *p.Actual
			errorSamples++
		}
	}

	if report.ProductsForecast > 0 {
		report.AverageConfidence = confidenceSum / float64(report.ProductsForecast)
	}
	if errorSamples > 0 {
		accuracy := 1 - errorSum/float64(errorSamples)
		report.ForecastAccuracy = math.Max(0, math.Min(1, accuracy))
	}

	for _, product := range products {
		status, err := s.reorders.CheckReorderStatus(product.ID)
		if err != nil || !status.Calculated {
			continue
		}
		if status.NeedsReorder {
			report.NeedingReorder++
		}
		if status.Urgency == domain.UrgencyCritical {
			report.CriticalProducts++
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(cache.KeyPerformanceReport, report, cache.TTLDashboard); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache performance report")
		}
	}

	return report, nil
}

// GetSeasonalTrends averages the monthly seasonal index across all product
// profiles and smooths it with a short moving average.
func (s *Service) GetSeasonalTrends() (*SeasonalTrendReport, error) {
	if s.cache != nil {
		var cached SeasonalTrendReport
		if hit, err := s.cache.Get(cache.KeySeasonalTrends, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	profiles := s.forecasts.Profiles()

	indices := make([]float64, 12)
	counts := make([]int, 12)
	for _, profile := range profiles {
		for m := 0; m < 12; m++ {
			indices[m] += profile.Seasonal.Monthly[m]
			counts[m]++
		}
	}

	means := make([]float64, 12)
	for m := 0; m < 12; m++ {
		if counts[m] > 0 {
			means[m] = indices[m] / float64(counts[m])
		} else {
			means[m] = 1.0
		}
	}

	smoothed := talib.Sma(means, smoothingWindow)

	report := &SeasonalTrendReport{
		GeneratedAt: time.Now().UTC(),
		Months:      make([]MonthTrend, 12),
	}

	peak, trough := 0, 0
	for m := 0; m < 12; m++ {
		sm := smoothed[m]
		if m < smoothingWindow-1 {
			// The moving average has no value for the first window-1 slots
			sm = means[m]
		}
		report.Months[m] = MonthTrend{
			Month:    time.Month(m + 1),
			Index:    means[m],
			Smoothed: sm,
		}
		if means[m] > means[peak] {
			peak = m
		}
		if means[m] < means[trough] {
			trough = m
		}
	}
	report.PeakMonth = time.Month(peak + 1)
	report.TroughMonth = time.Month(trough + 1)

	if s.cache != nil {
		if err := s.cache.Set(cache.KeySeasonalTrends, report, cache.TTLDashboard); err != nil {
			s.log.Warn().Err(err).Msg("Failed to cache seasonal trends")
		}
	}

	return report, nil
}

// GetCategoryPerformance aggregates fulfilled sales by category over the
// trailing year.
func (s *Service) GetCategoryPerformance() ([]catalog.CategorySales, error) {
	since := time.Now().AddDate(-1, 0, 0)
	result, err := s.sales.CategoryPerformanceSince(since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category performance: %w", err)
	}
	return result, nil
}
