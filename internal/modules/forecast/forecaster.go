// Package forecast combines a trend-following smoother with a seasonally
// adjusted component into per-day demand forecasts with decaying confidence.
package forecast

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Model constants. The blend weights and smoothing constants are fixed;
// they are not tuned per product.
const (
	ModelTag = "holt-seasonal-v1"

	alphaLevel = 0.3 // Holt level smoothing
	betaTrend  = 0.1 // Holt trend smoothing

	trendWeight    = 0.6
	seasonalWeight = 0.4

	// ConfidenceCap - the model never claims near-certainty.
	ConfidenceCap = 0.95

	// minRecordsForConfidence - below this, confidence is pinned to 0.5.
	minRecordsForConfidence = 10

	// confidenceDecayPerDay - linear confidence decay for future projections.
	confidenceDecayPerDay = 0.01

	// perturbationSpan - future points are jittered by up to ±10%.
	perturbationSpan = 0.10
)

// Forecaster fits combined trend+seasonal forecasts from series profiles.
// The perturbation RNG is shared across concurrent projection calls and
// guarded by rngMu; rand.Rand is not safe for concurrent use.
type Forecaster struct {
	rngMu sync.Mutex
	rng   *rand.Rand
	log   zerolog.Logger
}

// NewForecaster creates a forecaster. The seed feeds the projection
// perturbation; fixed seeds give reproducible projections in tests.
func NewForecaster(seed int64, log zerolog.Logger) *Forecaster {
	return &Forecaster{
		rng: rand.New(rand.NewSource(seed)),
		log: log.With().Str("component", "forecaster").Logger(),
	}
}

// Fit builds the fitted historical forecast for a profile. Returns nil for
// an empty series; callers surface that as "no forecast available".
func (f *Forecaster) Fit(profile *domain.ProductSeriesProfile) *domain.DemandForecast {
	if profile == nil || len(profile.Records) == 0 {
		return nil
	}

	records := profile.Records
	quantities := make([]float64, len(records))
	for i, rec := range records {
		quantities[i] = rec.QuantitySold
	}

	trendPreds := holtPredictions(quantities)
	seasonalAdj := seasonalAdjusted(records, profile.Seasonal)
	confidence := seriesConfidence(len(records), profile.Trends.Volatility)

	// Combine index-by-index over the overlapping length of both series.
	n := len(trendPreds)
	if len(seasonalAdj) < n {
		n = len(seasonalAdj)
	}

	points := make([]domain.ForecastPoint, n)
	for i := 0; i < n; i++ {
		actual := quantities[i]
		points[i] = domain.ForecastPoint{
			Date:       records[i].Date,
			Predicted:  trendWeight*trendPreds[i] + seasonalWeight*seasonalAdj[i],
			Actual:     &actual,
			Confidence: confidence,
		}
	}

	return &domain.DemandForecast{
		ProductID:   profile.ProductID,
		Points:      points,
		Confidence:  confidence,
		Model:       ModelTag,
		LastUpdated: time.Now().UTC(),
	}
}

// Project extends a fitted forecast into the future for the given horizon.
// Each future day applies that calendar date's monthly and weekly factors,
// a small random perturbation, and linear confidence decay (floor at 0).
// Output quantities are never negative and rounded to whole units.
func (f *Forecaster) Project(fitted *domain.DemandForecast, seasonal domain.SeasonalPatterns, days int) []domain.ForecastPoint {
	if fitted == nil || len(fitted.Points) == 0 || days <= 0 {
		return nil
	}

	last := fitted.Points[len(fitted.Points)-1]
	baseline := last.Predicted
	perturbations := f.perturbations(days)

	points := make([]domain.ForecastPoint, 0, days)
	for d := 1; d <= days; d++ {
		date := last.Date.AddDate(0, 0, d)

		monthlyFactor := seasonal.Monthly[int(date.Month())-1]
		weeklyFactor := seasonal.Weekly[int(date.Weekday())]

		predicted := baseline * monthlyFactor * weeklyFactor * perturbations[d-1]
		predicted = math.Round(math.Max(0, predicted))

		confidence := fitted.Confidence - confidenceDecayPerDay*float64(d)
		if confidence < 0 {
			confidence = 0
		}

		points = append(points, domain.ForecastPoint{
			Date:       date,
			Predicted:  predicted,
			Confidence: confidence,
		})
	}

	return points
}

// perturbations draws n ±10% jitter factors under the RNG lock.
func (f *Forecaster) perturbations(n int) []float64 {
	f.rngMu.Lock()
	defer f.rngMu.Unlock()

	out := make([]float64, n)
	for i := range out {
		out[i] = 1 + (f.rng.Float64()*2-1)*perturbationSpan
	}
	return out
}

// holtPredictions runs Holt's double exponential smoothing over the series
// and returns the one-step-ahead prediction at each point. The prediction
// for index i is level+trend from the previous step; index 0 has no prior
// state and predicts the first observation itself.
func holtPredictions(quantities []float64) []float64 {
	preds := make([]float64, len(quantities))

	level := quantities[0]
	trend := 0.0
	preds[0] = level

	for i := 1; i < len(quantities); i++ {
		preds[i] = level + trend

		newLevel := alphaLevel*quantities[i] + (1-alphaLevel)*(level+trend)
		trend = betaTrend*(newLevel-level) + (1-betaTrend)*trend
		level = newLevel
	}

	return preds
}

// seasonalAdjusted computes the seasonally adjusted demand for each record:
// actual quantity scaled by the mean of its monthly and weekly index.
func seasonalAdjusted(records []domain.HistoricalSalesRecord, seasonal domain.SeasonalPatterns) []float64 {
	adjusted := make([]float64, len(records))
	for i, rec := range records {
		monthly := seasonal.Monthly[int(rec.Seasonality.Month)-1]
		weekly := seasonal.Weekly[int(rec.Seasonality.DayOfWeek)]
		factor := (monthly + weekly) / 2
		adjusted[i] = rec.QuantitySold * factor
	}
	return adjusted
}

// seriesConfidence scores a fitted series: data quality (record count,
// saturating at 100) discounted by relative volatility, capped at 0.95.
// Series shorter than 10 records get a fixed 0.5.
func seriesConfidence(recordCount int, volatility float64) float64 {
	if recordCount < minRecordsForConfidence {
		return 0.5
	}

	dataQuality := math.Min(float64(recordCount)/100.0, 1.0)
	volatilityPenalty := math.Max(0, 1-2*volatility)

	confidence := dataQuality * volatilityPenalty
	if confidence > ConfidenceCap {
		confidence = ConfidenceCap
	}
	if confidence < 0 {
		confidence = 0
	}

	return confidence
}
