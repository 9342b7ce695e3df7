package catalog

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwell/replenish/internal/domain"
	apptest "github.com/stockwell/replenish/internal/testing"
)

func newProductRepo(t *testing.T) *ProductRepository {
	t.Helper()
	db, cleanup := apptest.NewTestDB(t, "catalog")
	t.Cleanup(cleanup)
	return NewProductRepository(db.Conn(), zerolog.Nop())
}

func seedFixtures(t *testing.T, repo *ProductRepository) {
	t.Helper()
	for _, p := range apptest.NewProductFixtures() {
		require.NoError(t, repo.Upsert(p))
	}
}

func TestUpsertAndGetProduct_RoundTrip(t *testing.T) {
	repo := newProductRepo(t)

	reordered := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	in := domain.Product{
		ID:              "prod-kettle",
		Name:            "Gooseneck Kettle",
		Category:        "equipment",
		Supplier:        "BrewTech",
		CountInStock:    12,
		LeadTimeDays:    14,
		UnitPrice:       64.00,
		AutoReorder:     true,
		IsActive:        true,
		LastReorderDate: &reordered,
		ReorderCount:    3,
	}
	require.NoError(t, repo.Upsert(in))

	got, err := repo.GetProduct("prod-kettle")
	require.NoError(t, err)
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Category, got.Category)
	assert.Equal(t, in.Supplier, got.Supplier)
	assert.Equal(t, in.CountInStock, got.CountInStock)
	assert.Equal(t, in.LeadTimeDays, got.LeadTimeDays)
	assert.Equal(t, in.UnitPrice, got.UnitPrice)
	assert.True(t, got.AutoReorder)
	assert.True(t, got.IsActive)
	require.NotNil(t, got.LastReorderDate)
	assert.True(t, got.LastReorderDate.Equal(reordered))
	assert.Equal(t, 3, got.ReorderCount)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := newProductRepo(t)

	_, err := repo.GetProduct("prod-missing")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestUpsert_UpdatesExistingRow(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	updated := apptest.NewProductFixtures()[0]
	updated.CountInStock = 999
	updated.UnitPrice = 21.00
	require.NoError(t, repo.Upsert(updated))

	got, err := repo.GetProduct(updated.ID)
	require.NoError(t, err)
	assert.Equal(t, 999, got.CountInStock)
	assert.Equal(t, 21.00, got.UnitPrice)
}

func TestListActiveProducts_ExcludesInactive(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	products, err := repo.ListActiveProducts()
	require.NoError(t, err)
	require.Len(t, products, 3)

	for _, p := range products {
		assert.True(t, p.IsActive)
		assert.NotEqual(t, "prod-retired-mug", p.ID)
	}
}

func TestListLowStockProducts_FiltersByThreshold(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	// Fixtures: espresso 40, grinder 5, filter 200, retired-mug 3 (inactive).
	products, err := repo.ListLowStockProducts(10)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "prod-grinder", products[0].ID)
}

func TestListLowStockProducts_SortedByStock(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	products, err := repo.ListLowStockProducts(100)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "prod-grinder", products[0].ID)
	assert.Equal(t, "prod-espresso", products[1].ID)
}

func TestUpdateStock(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	require.NoError(t, repo.UpdateStock("prod-espresso", 75))

	got, err := repo.GetProduct("prod-espresso")
	require.NoError(t, err)
	assert.Equal(t, 75, got.CountInStock)
}

func TestUpdateStock_UnknownProduct(t *testing.T) {
	repo := newProductRepo(t)

	err := repo.UpdateStock("prod-missing", 10)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestIncrementReorderCount(t *testing.T) {
	repo := newProductRepo(t)
	seedFixtures(t, repo)

	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, repo.IncrementReorderCount("prod-espresso", at))
	require.NoError(t, repo.IncrementReorderCount("prod-espresso", at.AddDate(0, 0, 1)))

	got, err := repo.GetProduct("prod-espresso")
	require.NoError(t, err)
	assert.Equal(t, 2, got.ReorderCount)
	require.NotNil(t, got.LastReorderDate)
	assert.True(t, got.LastReorderDate.Equal(at.AddDate(0, 0, 1)))
}

func TestIncrementReorderCount_UnknownProduct(t *testing.T) {
	repo := newProductRepo(t)

	err := repo.IncrementReorderCount("prod-missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
