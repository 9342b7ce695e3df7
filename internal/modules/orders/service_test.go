package orders

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
	apptest "github.com/stockwell/replenish/internal/testing"
)

func newOrderService(t *testing.T) (*Service, *Repository, *apptest.StaticProductStore) {
	t.Helper()
	repo := newOrderRepo(t)
	store := apptest.NewStaticProductStore(apptest.NewProductFixtures())
	return NewService(repo, store, zerolog.Nop()), repo, store
}

func TestService_ApproveBumpsReorderCounter(t *testing.T) {
	svc, repo, store := newOrderService(t)

	require.NoError(t, repo.Create(persistedOrder("po-1", "prod-espresso")))

	order, err := svc.Approve("po-1", "alex")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, order.Status)

	product, err := store.GetProduct("prod-espresso")
	require.NoError(t, err)
	assert.Equal(t, 1, product.ReorderCount)
	assert.NotNil(t, product.LastReorderDate)
}

func TestService_ApproveSurvivesCounterFailure(t *testing.T) {
	svc, repo, store := newOrderService(t)
	store.IncErr = errors.New("catalog unavailable")

	require.NoError(t, repo.Create(persistedOrder("po-2", "prod-espresso")))

	// The counter bump is best-effort: approval succeeds regardless
	order, err := svc.Approve("po-2", "alex")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, order.Status)

	got, err := svc.Get("po-2")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestService_CancelAfterApprove(t *testing.T) {
	svc, repo, _ := newOrderService(t)

	require.NoError(t, repo.Create(persistedOrder("po-3", "prod-grinder")))

	_, err := svc.Approve("po-3", "alex")
	require.NoError(t, err)

	order, err := svc.Cancel("po-3", "alex", "supplier out of stock")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, order.Status)

	// Audit trail carries the full history
	got, err := svc.Get("po-3")
	require.NoError(t, err)
	require.Len(t, got.Audit, 3)
	assert.Equal(t, "cancelled", got.Audit[2].Action)
	assert.Equal(t, "supplier out of stock", got.Audit[2].Details)
}

func TestService_ApproveAfterCancelFails(t *testing.T) {
	svc, repo, _ := newOrderService(t)

	require.NoError(t, repo.Create(persistedOrder("po-4", "prod-grinder")))

	_, err := svc.Cancel("po-4", "alex", "")
	require.NoError(t, err)

	_, err = svc.Approve("po-4", "alex")
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)
}

func TestService_FullLifecycle(t *testing.T) {
	svc, repo, _ := newOrderService(t)

	require.NoError(t, repo.Create(persistedOrder("po-5", "prod-espresso")))

	_, err := svc.Approve("po-5", "alex")
	require.NoError(t, err)
	_, err = svc.MarkOrdered("po-5", "alex")
	require.NoError(t, err)
	_, err = svc.UpdateTracking("po-5", "UPS", "1Z999")
	require.NoError(t, err)
	_, err = svc.MarkShipped("po-5", "system")
	require.NoError(t, err)

	order, err := svc.MarkDelivered("po-5", "warehouse")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, order.Status)
	require.NotNil(t, order.Metrics)

	got, err := svc.Get("po-5")
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, got.Status)
	require.NotNil(t, got.Tracking)
	assert.Equal(t, "UPS", got.Tracking.Carrier)
}

func TestService_UnknownOrder(t *testing.T) {
	svc, _, _ := newOrderService(t)

	_, err := svc.Get("po-missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	_, err = svc.Approve("po-missing", "alex")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
