package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
)

func TestAppend_CapacityDropsOldestFirst(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())

	for i := 0; i < 150; i++ {
		l.Append(TypeLowStock, fmt.Sprintf("prod-%d", i), "low stock", nil)
	}

	assert.Equal(t, DefaultCapacity, l.Len())

	// Newest first; the oldest 50 were dropped
	recent := l.Recent(DefaultCapacity)
	require.Len(t, recent, DefaultCapacity)
	assert.Equal(t, "prod-149", recent[0].ProductID)
	assert.Equal(t, "prod-50", recent[len(recent)-1].ProductID)
}

func TestRecent_DefaultLimitAndOrdering(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())

	for i := 0; i < 30; i++ {
		l.Append(TypeLowStock, fmt.Sprintf("prod-%d", i), "low stock", nil)
	}

	recent := l.Recent(0)
	require.Len(t, recent, DefaultRetrieveLimit)
	assert.Equal(t, "prod-29", recent[0].ProductID)
	assert.Equal(t, "prod-10", recent[len(recent)-1].ProductID)
}

func TestRecent_LimitLargerThanLog(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())
	l.Append(TypeAutoReorder, "prod-a", "order created", nil)

	recent := l.Recent(500)
	assert.Len(t, recent, 1)
}

func TestSubscribe_ReceivesLiveAlerts(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())

	ch, cancel := l.Subscribe()
	defer cancel()

	appended := l.Append(TypeLowStock, "prod-espresso", "low stock", nil)

	select {
	case got := <-ch:
		assert.Equal(t, appended.ID, got.ID)
		assert.Equal(t, "prod-espresso", got.ProductID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the alert")
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())

	ch, cancel := l.Subscribe()
	cancel()

	l.Append(TypeLowStock, "prod-a", "low stock", nil)

	_, open := <-ch
	assert.False(t, open, "cancelled subscriber channel must be closed")
}

func TestHelpers_PopulatePayloads(t *testing.T) {
	l := NewLog(DefaultCapacity, zerolog.Nop())

	l.LowStockAlert("prod-a", 3, 50, domain.UrgencyCritical)
	l.AutoReorderAlert("prod-a", "po-1", 120, domain.UrgencyCritical)
	l.ForecastStaleAlert(72 * time.Hour)

	recent := l.Recent(3)
	require.Len(t, recent, 3)
	assert.Equal(t, TypeForecastStale, recent[0].Type)
	assert.Equal(t, TypeAutoReorder, recent[1].Type)
	assert.Equal(t, TypeLowStock, recent[2].Type)
	assert.Equal(t, "po-1", recent[1].Payload["order_id"])
}
