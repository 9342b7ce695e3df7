package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
	"github.com/stockwell/replenish/internal/modules/forecast"
	"github.com/stockwell/replenish/internal/modules/history"
	"github.com/stockwell/replenish/internal/modules/patterns"
	"github.com/stockwell/replenish/internal/modules/reorder"
	"github.com/stockwell/replenish/internal/monitor"
	apptest "github.com/stockwell/replenish/internal/testing"
)

func newEngine(t *testing.T, source domain.SalesHistorySource, store domain.ProductStore) (*Engine, *forecast.Service, *reorder.Service) {
	t.Helper()
	log := zerolog.Nop()
	aggregator := history.NewAggregator(source, apptest.NopCache{}, 365, log)
	extractor := patterns.NewExtractor(log)
	forecasts := forecast.NewService(forecast.NewForecaster(1, log), log)
	reorders := reorder.NewService(store, log)
	return New(aggregator, extractor, forecasts, reorders, log), forecasts, reorders
}

func TestRetrain_PopulatesForecastsAndReorderState(t *testing.T) {
	store := NewOfflineProductStore()
	eng, forecasts, reorders := newEngine(t, NewOfflineSalesSource(OfflineProducts()), store)

	require.NoError(t, eng.Retrain())
	assert.False(t, forecasts.LastRefit().IsZero())

	for _, p := range OfflineProducts() {
		f, err := forecasts.GetDemandForecast(p.ID, 14)
		require.NoError(t, err, p.ID)
		assert.Len(t, f.Points, 14)
		assert.Greater(t, f.Confidence, 0.0)

		status, err := reorders.CheckReorderStatus(p.ID)
		require.NoError(t, err, p.ID)
		assert.True(t, status.Calculated)
		assert.Greater(t, status.ReorderPoint, 0)
	}
}

func TestRetrain_UnknownProductHasNoForecast(t *testing.T) {
	eng, forecasts, reorders := newEngine(t, NewOfflineSalesSource(OfflineProducts()), NewOfflineProductStore())

	require.NoError(t, eng.Retrain())

	_, err := forecasts.GetDemandForecast("prod-never-sold", 7)
	assert.ErrorIs(t, err, domain.ErrNoForecast)

	_, err = reorders.CheckReorderStatus("prod-never-sold")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestRetrain_SourceErrorLeavesPreviousStateIntact(t *testing.T) {
	source := &flakySource{inner: NewOfflineSalesSource(OfflineProducts())}
	eng, forecasts, _ := newEngine(t, source, NewOfflineProductStore())

	require.NoError(t, eng.Retrain())
	firstRefit := forecasts.LastRefit()
	require.False(t, firstRefit.IsZero())

	source.err = errors.New("catalog database unreachable")
	err := eng.Retrain()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to aggregate sales history")

	// Last-known-good forecasts survive the failed retrain.
	assert.True(t, forecasts.LastRefit().Equal(firstRefit))
	for _, p := range OfflineProducts() {
		_, err := forecasts.GetDemandForecast(p.ID, 7)
		assert.NoError(t, err, p.ID)
	}
	assert.False(t, eng.Busy())
}

func TestRetrain_ConcurrentCallRejected(t *testing.T) {
	source := &blockingSource{
		inner:   NewOfflineSalesSource(OfflineProducts()),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	eng, _, _ := newEngine(t, source, NewOfflineProductStore())

	done := make(chan error, 1)
	go func() { done <- eng.Retrain() }()

	<-source.entered
	assert.True(t, eng.Busy())
	assert.ErrorIs(t, eng.Retrain(), domain.ErrRetrainInProgress)
	assert.ErrorIs(t, eng.RetrainAsync(), domain.ErrRetrainInProgress)

	close(source.release)
	require.NoError(t, <-done)
	assert.False(t, eng.Busy())

	// Once the first run finishes the engine accepts work again.
	require.NoError(t, eng.Retrain())
}

func TestOfflineSalesSource_Deterministic(t *testing.T) {
	since := time.Now().UTC().AddDate(0, 0, -30)

	first, err := NewOfflineSalesSource(OfflineProducts()).FulfilledOrderLinesSince(since)
	require.NoError(t, err)
	second, err := NewOfflineSalesSource(OfflineProducts()).FulfilledOrderLinesSince(since)
	require.NoError(t, err)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)

	for _, l := range first {
		assert.GreaterOrEqual(t, l.Quantity, 1.0)
		assert.Equal(t, l.Quantity*l.UnitPrice, l.Revenue)
	}
}

func TestOfflineProductStore_ListLowStockProducts(t *testing.T) {
	// The offline store must serve the stock monitor's scan interface.
	var lister monitor.LowStockLister = NewOfflineProductStore()

	// Synthetic stocks: espresso 40, grinder 12, filter 80.
	low, err := lister.ListLowStockProducts(50)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "offline-grinder", low[0].ID)
	assert.Equal(t, "offline-espresso", low[1].ID)

	low, err = lister.ListLowStockProducts(5)
	require.NoError(t, err)
	assert.Empty(t, low)

	low, err = lister.ListLowStockProducts(1000)
	require.NoError(t, err)
	assert.Len(t, low, 3)
}

func TestOfflineProductStore_ReorderBookkeeping(t *testing.T) {
	store := NewOfflineProductStore()

	at := time.Date(2026, 8, 20, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.IncrementReorderCount("offline-espresso", at))

	p, err := store.GetProduct("offline-espresso")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReorderCount)
	require.NotNil(t, p.LastReorderDate)
	assert.True(t, p.LastReorderDate.Equal(at))

	err = store.IncrementReorderCount("offline-missing", at)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

// flakySource fails on demand, delegating to the wrapped source otherwise.
type flakySource struct {
	inner domain.SalesHistorySource
	err   error
}

func (s *flakySource) FulfilledOrderLinesSince(since time.Time) ([]domain.OrderLine, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.inner.FulfilledOrderLinesSince(since)
}

// blockingSource parks the retrain goroutine until released.
type blockingSource struct {
	inner   domain.SalesHistorySource
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *blockingSource) FulfilledOrderLinesSince(since time.Time) ([]domain.OrderLine, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	return s.inner.FulfilledOrderLinesSince(since)
}
