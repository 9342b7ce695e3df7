package reorder

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
	apptest "github.com/stockwell/replenish/internal/testing"
)

func TestCheckReorderStatus_UnknownProduct(t *testing.T) {
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	svc := NewService(store, zerolog.Nop())

	_, err := svc.CheckReorderStatus("prod-unknown")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCheckReorderStatus_NotCalculated(t *testing.T) {
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	svc := NewService(store, zerolog.Nop())

	status, err := svc.CheckReorderStatus("prod-espresso")
	require.NoError(t, err)
	assert.False(t, status.Calculated)
	assert.False(t, status.NeedsReorder)
}

func TestRecalculate_ThenCheckStatus(t *testing.T) {
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	svc := NewService(store, zerolog.Nop())

	// prod-grinder: stock 5, constant demand 2/day, lead time 21 days.
	// Lead-time demand 42 dwarfs the on-hand stock.
	svc.Recalculate(map[string]*domain.DemandForecast{
		"prod-grinder": constantForecast("prod-grinder", 30, 2),
	})

	status, err := svc.CheckReorderStatus("prod-grinder")
	require.NoError(t, err)
	assert.True(t, status.Calculated)
	assert.True(t, status.NeedsReorder)
	assert.Equal(t, 42, status.ReorderPoint)
	assert.Equal(t, domain.UrgencyCritical, status.Urgency)

	info, err := svc.Info("prod-grinder")
	require.NoError(t, err)
	assert.Equal(t, 42, info.ReorderPoint)
}

func TestRecalculate_SkipsProductsMissingFromCatalog(t *testing.T) {
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	svc := NewService(store, zerolog.Nop())

	svc.Recalculate(map[string]*domain.DemandForecast{
		"prod-vanished": constantForecast("prod-vanished", 30, 5),
	})

	_, err := svc.Info("prod-vanished")
	assert.ErrorIs(t, err, domain.ErrNotCalculated)
}

func TestRecalculate_ReplacesPreviousState(t *testing.T) {
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	svc := NewService(store, zerolog.Nop())

	svc.Recalculate(map[string]*domain.DemandForecast{
		"prod-espresso": constantForecast("prod-espresso", 30, 10),
	})
	svc.Recalculate(map[string]*domain.DemandForecast{
		"prod-grinder": constantForecast("prod-grinder", 30, 2),
	})

	_, err := svc.Info("prod-espresso")
	assert.ErrorIs(t, err, domain.ErrNotCalculated)

	_, err = svc.Info("prod-grinder")
	assert.NoError(t, err)
}
