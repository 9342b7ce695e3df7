package orders

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
	apptest "github.com/stockwell/replenish/internal/testing"
)

func newOrderRepo(t *testing.T) *Repository {
	t.Helper()
	db, cleanup := apptest.NewTestDB(t, "orders")
	t.Cleanup(cleanup)
	return NewRepository(db.Conn(), zerolog.Nop())
}

func persistedOrder(id, productID string) *PurchaseOrder {
	expected := time.Now().UTC().AddDate(0, 0, 14).Truncate(time.Second)
	order := &PurchaseOrder{
		ID:               id,
		ProductID:        productID,
		Supplier:         "BrewTech",
		OrderQuantity:    25,
		UnitCost:         8.40,
		Status:           StatusPending,
		Urgency:          domain.UrgencyMedium,
		AIGenerated:      true,
		Confidence:       0.88,
		ReorderPoint:     60,
		CurrentStock:     12,
		OrderDate:        time.Now().UTC().Truncate(time.Second),
		ExpectedDelivery: &expected,
	}
	order.appendAudit("created", "auto_reorder", "")
	return order
}

func TestRepository_CreateAndGetRoundTrip(t *testing.T) {
	repo := newOrderRepo(t)

	order := persistedOrder("po-1", "prod-espresso")
	require.NoError(t, repo.Create(order))

	got, err := repo.Get("po-1")
	require.NoError(t, err)

	assert.Equal(t, order.ProductID, got.ProductID)
	assert.Equal(t, order.Supplier, got.Supplier)
	assert.Equal(t, order.OrderQuantity, got.OrderQuantity)
	assert.Equal(t, order.UnitCost, got.UnitCost)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, domain.UrgencyMedium, got.Urgency)
	assert.True(t, got.AIGenerated)
	assert.Equal(t, order.ReorderPoint, got.ReorderPoint)
	require.NotNil(t, got.ExpectedDelivery)
	assert.Equal(t, order.ExpectedDelivery.Unix(), got.ExpectedDelivery.Unix())
	require.Len(t, got.Audit, 1)
	assert.Equal(t, "created", got.Audit[0].Action)
}

func TestRepository_GetUnknownOrder(t *testing.T) {
	repo := newOrderRepo(t)

	_, err := repo.Get("po-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestRepository_UpdatePersistsTransitionAndAudit(t *testing.T) {
	repo := newOrderRepo(t)

	order := persistedOrder("po-2", "prod-grinder")
	require.NoError(t, repo.Create(order))

	auditOffset := len(order.Audit)
	require.NoError(t, order.Approve("alex"))
	require.NoError(t, repo.Update(order, auditOffset))

	got, err := repo.Get("po-2")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
	assert.Equal(t, "alex", got.ApprovedBy)
	require.NotNil(t, got.ApprovedDate)
	require.Len(t, got.Audit, 2)
	assert.Equal(t, "approved", got.Audit[1].Action)
}

func TestRepository_ListNewestFirstWithStatusFilter(t *testing.T) {
	repo := newOrderRepo(t)

	older := persistedOrder("po-old", "prod-a")
	older.OrderDate = time.Now().UTC().Add(-48 * time.Hour)
	require.NoError(t, repo.Create(older))

	newer := persistedOrder("po-new", "prod-b")
	require.NoError(t, repo.Create(newer))

	cancelled := persistedOrder("po-cancelled", "prod-c")
	require.NoError(t, cancelled.Cancel("alex", "dup"))
	require.NoError(t, repo.Create(cancelled))

	all, err := repo.List("", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "po-old", all[2].ID, "oldest order listed last")

	pending, err := repo.List(StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	limited, err := repo.List("", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRepository_HasOpenOrder(t *testing.T) {
	repo := newOrderRepo(t)

	order := persistedOrder("po-3", "prod-espresso")
	require.NoError(t, repo.Create(order))

	open, err := repo.HasOpenOrder("prod-espresso")
	require.NoError(t, err)
	assert.True(t, open)

	open, err = repo.HasOpenOrder("prod-other")
	require.NoError(t, err)
	assert.False(t, open)

	// Terminal orders no longer block new drafts
	auditOffset := len(order.Audit)
	require.NoError(t, order.Cancel("alex", ""))
	require.NoError(t, repo.Update(order, auditOffset))

	open, err = repo.HasOpenOrder("prod-espresso")
	require.NoError(t, err)
	assert.False(t, open)
}

func TestRepository_TrackingAndMetricsRoundTrip(t *testing.T) {
	repo := newOrderRepo(t)

	order := persistedOrder("po-4", "prod-grinder")
	require.NoError(t, repo.Create(order))

	auditOffset := len(order.Audit)
	require.NoError(t, order.Approve("a"))
	require.NoError(t, order.MarkOrdered("a"))
	require.NoError(t, order.UpdateTracking("DHL", "TRACK-42"))
	require.NoError(t, order.MarkShipped("a"))
	require.NoError(t, order.MarkDelivered("warehouse"))
	require.NoError(t, repo.Update(order, auditOffset))

	got, err := repo.Get("po-4")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.Tracking)
	assert.Equal(t, "DHL", got.Tracking.Carrier)
	assert.Equal(t, "TRACK-42", got.Tracking.TrackingNumber)
	require.NotNil(t, got.Metrics)
	assert.Equal(t, 1.0, got.Metrics.DeliveryAccuracy)
	require.NotNil(t, got.ActualDelivery)
}
