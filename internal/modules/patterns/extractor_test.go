package patterns

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
)

func dailyRecords(productID string, start time.Time, quantities []float64) []domain.HistoricalSalesRecord {
	records := make([]domain.HistoricalSalesRecord, len(quantities))
	for i, qty := range quantities {
		day := domain.DayOf(start.AddDate(0, 0, i))
		records[i] = domain.HistoricalSalesRecord{
			ProductID:    productID,
			Date:         day,
			QuantitySold: qty,
			Revenue:      qty * 10,
			OrderCount:   1,
			Seasonality: domain.SeasonalityTag{
				Month:     day.Month(),
				DayOfWeek: day.Weekday(),
				Quarter:   domain.QuarterOf(day),
			},
		}
	}
	return records
}

func TestBuildProfile_SeasonalVectorsNormalizeToMeanOne(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	quantities := make([]float64, 120)
	for i := range quantities {
		quantities[i] = float64(3 + i%5)
	}

	profile := e.BuildProfile("prod-espresso", dailyRecords("prod-espresso", start, quantities))
	require.NotNil(t, profile)

	var monthlySum, weeklySum, quarterlySum float64
	for _, v := range profile.Seasonal.Monthly {
		monthlySum += v
	}
	for _, v := range profile.Seasonal.Weekly {
		weeklySum += v
	}
	for _, v := range profile.Seasonal.Quarterly {
		quarterlySum += v
	}

	assert.InDelta(t, 12.0, monthlySum, 1e-6)
	assert.InDelta(t, 7.0, weeklySum, 1e-6)
	assert.InDelta(t, 4.0, quarterlySum, 1e-6)
}

func TestBuildProfile_ZeroSalesKeepIdentityVectors(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	profile := e.BuildProfile("prod-idle", dailyRecords("prod-idle", start, make([]float64, 20)))
	require.NotNil(t, profile)

	assert.Equal(t, domain.DefaultSeasonalPatterns(), profile.Seasonal)
}

func TestBuildProfile_ShortSeriesSkipsTrends(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	profile := e.BuildProfile("prod-new", dailyRecords("prod-new", start, []float64{4, 5, 6}))
	require.NotNil(t, profile)

	assert.False(t, profile.Trends.Computed)
	assert.Zero(t, profile.Trends.Growth)
	assert.Zero(t, profile.Trends.Volatility)
	assert.Zero(t, profile.Trends.Cyclicality)
}

func TestBuildProfile_EmptySeriesDoesNotPanic(t *testing.T) {
	e := NewExtractor(zerolog.Nop())

	profile := e.BuildProfile("prod-empty", nil)
	require.NotNil(t, profile)
	assert.False(t, profile.Trends.Computed)
	assert.Equal(t, domain.DefaultSeasonalPatterns(), profile.Seasonal)
}

func TestExtractTrends_GrowthSlope(t *testing.T) {
	e := NewExtractor(zerolog.Nop())
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// Strictly linear series: quantity = 10 + 2*day
	quantities := make([]float64, 30)
	for i := range quantities {
		quantities[i] = 10 + 2*float64(i)
	}

	profile := e.BuildProfile("prod-growing", dailyRecords("prod-growing", start, quantities))
	require.True(t, profile.Trends.Computed)
	assert.InDelta(t, 2.0, profile.Trends.Growth, 1e-9)
}

func TestExtractTrends_ConstantSeriesHasZeroVolatility(t *testing.T) {
	e := NewExtractor(zerolog.Nop())
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	quantities := make([]float64, 30)
	for i := range quantities {
		quantities[i] = 12
	}

	profile := e.BuildProfile("prod-flat", dailyRecords("prod-flat", start, quantities))
	require.True(t, profile.Trends.Computed)
	assert.InDelta(t, 0.0, profile.Trends.Growth, 1e-9)
	assert.InDelta(t, 0.0, profile.Trends.Volatility, 1e-9)
}

func TestExtractTrends_ZeroDaysContributeNoChangeSamples(t *testing.T) {
	e := NewExtractor(zerolog.Nop())
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	// Zeroes interleaved with sales must not produce divide-by-zero ratios
	profile := e.BuildProfile("prod-gappy",
		dailyRecords("prod-gappy", start, []float64{5, 0, 5, 0, 5, 0, 5, 0, 5, 0}))
	require.True(t, profile.Trends.Computed)
	assert.False(t, profile.Trends.Volatility != profile.Trends.Volatility, "volatility must not be NaN")
}

func TestExtractTrends_SeasonalSeriesHasHigherCyclicality(t *testing.T) {
	e := NewExtractor(zerolog.Nop())
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	flat := make([]float64, 180)
	for i := range flat {
		flat[i] = 10
	}
	// Alternating strong and weak months
	seasonal := make([]float64, 180)
	for i := range seasonal {
		month := start.AddDate(0, 0, i).Month()
		if month%2 == 0 {
			seasonal[i] = 20
		} else {
			seasonal[i] = 2
		}
	}

	flatProfile := e.BuildProfile("prod-flat", dailyRecords("prod-flat", start, flat))
	seasonalProfile := e.BuildProfile("prod-seasonal", dailyRecords("prod-seasonal", start, seasonal))

	assert.Greater(t, seasonalProfile.Trends.Cyclicality, flatProfile.Trends.Cyclicality)
}

func TestBuildProfiles_BuildsOneProfilePerProduct(t *testing.T) {
	e := NewExtractor(zerolog.Nop())
	start := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	history := map[string][]domain.HistoricalSalesRecord{
		"prod-a": dailyRecords("prod-a", start, []float64{1, 2, 3}),
		"prod-b": dailyRecords("prod-b", start, []float64{7, 7, 7, 7, 7, 7, 7, 7}),
	}

	profiles := e.BuildProfiles(history)
	require.Len(t, profiles, 2)
	assert.Equal(t, "prod-a", profiles["prod-a"].ProductID)
	assert.False(t, profiles["prod-a"].Trends.Computed)
	assert.True(t, profiles["prod-b"].Trends.Computed)
}
