package analytics

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/modules/catalog"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/history"
	"github.com/stockwell/replenish/internal/modules/patterns"
	"github.com/stockwell/replenish/internal/modules/reorder"
	apptest "github.com/stockwell/replenish/internal/testing"
)

// memoryCache is an in-process domain.Cache that ignores TTLs.
type memoryCache struct {
	entries map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (c *memoryCache) Get(key string, dest interface{}) (bool, error) {
	data, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memoryCache) Set(key string, value interface{}, _ time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = data
	return nil
}

// fittedState runs the aggregation pipeline over a year of constant demand
// (10 units/day) for one product and returns the resulting services.
func fittedState(t *testing.T, productID string, stock int) (*forecast.Service, *reorder.Service, *apptest.StaticProductStore) {
	t.Helper()
	log := zerolog.Nop()

	source := &apptest.StaticSalesSource{
		Lines: apptest.ConstantSalesLines(productID, 365, 10, 18.50, time.Now().UTC()),
	}
	aggregated, err := history.NewAggregator(source, apptest.NopCache{}, 365, log).Aggregate()
	require.NoError(t, err)

	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)
	forecasts.Refit(patterns.NewExtractor(log).BuildProfiles(aggregated))

	store := apptest.NewStaticProductStore([]domain.Product{{
		ID:           productID,
		Name:         "Espresso Beans 1kg",
		Category:     "coffee",
		CountInStock: stock,
		LeadTimeDays: 7,
		UnitPrice:    18.50,
		AutoReorder:  true,
		IsActive:     true,
	}})

	reorders := reorder.NewService(store, log)
	reorders.Recalculate(forecasts.Snapshot())

	return forecasts, reorders, store
}

func newService(forecasts *forecast.Service, reorders *reorder.Service, store domain.ProductStore, c domain.Cache) *Service {
	return NewService(forecasts, reorders, store, nil, c, zerolog.Nop())
}

func TestAnalyzeInventoryPerformance_EmptyState(t *testing.T) {
	log := zerolog.Nop()
	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	reorders := reorder.NewService(store, log)

	svc := newService(forecasts, reorders, store, nil)

	report, err := svc.AnalyzeInventoryPerformance()
	require.NoError(t, err)
	assert.Equal(t, 3, report.ProductsTracked)
	assert.Equal(t, 0, report.ProductsForecast)
	assert.Equal(t, 0.0, report.AverageConfidence)
	assert.Equal(t, 0.0, report.ForecastAccuracy)
	assert.Equal(t, 0, report.NeedingReorder)
	assert.Equal(t, 0, report.CriticalProducts)
}

func TestAnalyzeInventoryPerformance_FittedCatalog(t *testing.T) {
	// Constant 10/day demand, 7 day lead time: reorder point near 70.
	// Stock 30 is well under half of that, so the product is critical.
	forecasts, reorders, store := fittedState(t, "prod-espresso", 30)

	svc := newService(forecasts, reorders, store, nil)

	report, err := svc.AnalyzeInventoryPerformance()
	require.NoError(t, err)
	assert.Equal(t, 1, report.ProductsTracked)
	assert.Equal(t, 1, report.ProductsForecast)
	assert.Greater(t, report.AverageConfidence, 0.0)
	assert.LessOrEqual(t, report.AverageConfidence, forecast.ConfidenceCap)
	assert.Greater(t, report.ForecastAccuracy, 0.9, "constant demand should fit tightly")
	assert.Equal(t, 1, report.NeedingReorder)
	assert.Equal(t, 1, report.CriticalProducts)
}

func TestAnalyzeInventoryPerformance_WellStockedProduct(t *testing.T) {
	forecasts, reorders, store := fittedState(t, "prod-espresso", 500)

	svc := newService(forecasts, reorders, store, nil)

	report, err := svc.AnalyzeInventoryPerformance()
	require.NoError(t, err)
	assert.Equal(t, 0, report.NeedingReorder)
	assert.Equal(t, 0, report.CriticalProducts)
}

func TestAnalyzeInventoryPerformance_ServedFromCache(t *testing.T) {
	forecasts, reorders, store := fittedState(t, "prod-espresso", 30)
	c := newMemoryCache()

	svc := newService(forecasts, reorders, store, c)

	first, err := svc.AnalyzeInventoryPerformance()
	require.NoError(t, err)
	require.Equal(t, 1, first.ProductsForecast)

	// Wipe the forecast state; the cached report should still be served.
	forecasts.Refit(map[string]*domain.ProductSeriesProfile{})

	second, err := svc.AnalyzeInventoryPerformance()
	require.NoError(t, err)
	assert.Equal(t, first.ProductsForecast, second.ProductsForecast)
	assert.Equal(t, first.NeedingReorder, second.NeedingReorder)
}

func TestGetSeasonalTrends_NoProfiles(t *testing.T) {
	log := zerolog.Nop()
	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)
	store := apptest.NewStaticProductStore(nil)

	svc := newService(forecasts, reorder.NewService(store, log), store, nil)

	report, err := svc.GetSeasonalTrends()
	require.NoError(t, err)
	require.Len(t, report.Months, 12)

	for _, m := range report.Months {
		assert.Equal(t, 1.0, m.Index)
		assert.InDelta(t, 1.0, m.Smoothed, 1e-9)
	}
	assert.Equal(t, time.January, report.PeakMonth)
	assert.Equal(t, time.January, report.TroughMonth)
}

func TestGetSeasonalTrends_PeakAndTrough(t *testing.T) {
	log := zerolog.Nop()
	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)

	seasonal := domain.DefaultSeasonalPatterns()
	seasonal.Monthly[time.December-1] = 2.0
	seasonal.Monthly[time.June-1] = 0.4
	forecasts.Refit(map[string]*domain.ProductSeriesProfile{
		"prod-espresso": {ProductID: "prod-espresso", Seasonal: seasonal},
	})

	store := apptest.NewStaticProductStore(nil)
	svc := newService(forecasts, reorder.NewService(store, log), store, nil)

	report, err := svc.GetSeasonalTrends()
	require.NoError(t, err)
	assert.Equal(t, time.December, report.PeakMonth)
	assert.Equal(t, time.June, report.TroughMonth)

	// The first window-1 slots have no moving average and fall back to the
	// raw index.
	assert.Equal(t, report.Months[0].Index, report.Months[0].Smoothed)
	assert.Equal(t, report.Months[1].Index, report.Months[1].Smoothed)

	// March averages January through March, all 1.0.
	assert.InDelta(t, 1.0, report.Months[2].Smoothed, 1e-9)
	// December averages October, November, and the 2.0 December index.
	assert.InDelta(t, (1.0+1.0+2.0)/3, report.Months[11].Smoothed, 1e-9)
}

func TestGetSeasonalTrends_AveragesAcrossProducts(t *testing.T) {
	log := zerolog.Nop()
	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)

	high := domain.DefaultSeasonalPatterns()
	high.Monthly[0] = 3.0
	flat := domain.DefaultSeasonalPatterns()
	forecasts.Refit(map[string]*domain.ProductSeriesProfile{
		"prod-a": {ProductID: "prod-a", Seasonal: high},
		"prod-b": {ProductID: "prod-b", Seasonal: flat},
	})

	store := apptest.NewStaticProductStore(nil)
	svc := newService(forecasts, reorder.NewService(store, log), store, nil)

	report, err := svc.GetSeasonalTrends()
	require.NoError(t, err)
	assert.InDelta(t, 2.0, report.Months[0].Index, 1e-9)
	assert.InDelta(t, 1.0, report.Months[1].Index, 1e-9)
}

func TestGetCategoryPerformance_TrailingYear(t *testing.T) {
	db, cleanup := apptest.NewTestDB(t, "catalog")
	t.Cleanup(cleanup)

	log := zerolog.Nop()
	sales := catalog.NewSalesRepository(db.Conn(), log)

	recent := time.Now().UTC().AddDate(0, -1, 0)
	ancient := time.Now().UTC().AddDate(-2, 0, 0)
	require.NoError(t, sales.InsertOrderLine(domain.OrderLine{
		ProductID: "prod-espresso", Quantity: 2, UnitPrice: 18.50, Revenue: 37.00,
		Category: "coffee", OrderedAt: recent,
	}))
	require.NoError(t, sales.InsertOrderLine(domain.OrderLine{
		ProductID: "prod-espresso", Quantity: 9, UnitPrice: 18.50, Revenue: 166.50,
		Category: "coffee", OrderedAt: ancient,
	}))

	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)
	store := apptest.NewStaticProductStore(nil)
	svc := NewService(forecasts, reorder.NewService(store, log), store, sales, nil, log)

	report, err := svc.GetCategoryPerformance()
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, "coffee", report[0].Category)
	assert.Equal(t, 37.00, report[0].Revenue)
	assert.Equal(t, 1, report[0].OrderCount)
}
