package engine

import (
	"math"
	"sort"
	"time"

	"github.com/stockwell/replenish/internal/domain"
)

// OfflineSalesSource is a deterministic synthetic sales source used when the
// catalog database is unreachable or the engine runs in offline mode. It
// produces a year of smoothly seasonal demand per product so the rest of the
// pipeline can be exercised without real data.
type OfflineSalesSource struct {
	products []domain.Product
}

// NewOfflineSalesSource creates a synthetic source for the given products.
func NewOfflineSalesSource(products []domain.Product) *OfflineSalesSource {
	return &OfflineSalesSource{products: products}
}

// FulfilledOrderLinesSince generates one order line per product per day from
// since until today. Demand follows an annual sine cycle with a small
// product-specific phase shift, so patterns are stable across runs.
func (o *OfflineSalesSource) FulfilledOrderLinesSince(since time.Time) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine

	end := domain.DayOf(time.Now().UTC())
	for day := domain.DayOf(since); !day.After(end); day = day.AddDate(0, 0, 1) {
		for i, product := range o.products {
			phase := float64(i) * math.Pi / 4
			cycle := 1 + 0.4*math.Sin(2*math.Pi*float64(day.YearDay())/365+phase)
			qty := int(math.Round(8 * cycle))
			if qty < 1 {
				qty = 1
			}
			lines = append(lines, domain.OrderLine{
				ProductID: product.ID,
				Quantity:  float64(qty),
				UnitPrice: product.UnitPrice,
				Revenue:   float64(qty) * product.UnitPrice,
				Category:  product.Category,
				OrderedAt: day,
			})
		}
	}

	return lines, nil
}

// OfflineProductStore serves the synthetic catalog in offline mode.
// Reorder bookkeeping is kept in memory and lost on restart.
type OfflineProductStore struct {
	products map[string]*domain.Product
}

// NewOfflineProductStore creates a store over the synthetic catalog.
func NewOfflineProductStore() *OfflineProductStore {
	store := &OfflineProductStore{products: make(map[string]*domain.Product)}
	for _, p := range OfflineProducts() {
		product := p
		store.products[p.ID] = &product
	}
	return store
}

// GetProduct returns the product or ErrProductNotFound.
func (o *OfflineProductStore) GetProduct(id string) (*domain.Product, error) {
	product, ok := o.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	copied := *product
	return &copied, nil
}

// ListActiveProducts returns all synthetic products.
func (o *OfflineProductStore) ListActiveProducts() ([]domain.Product, error) {
	out := make([]domain.Product, 0, len(o.products))
	for _, p := range o.products {
		out = append(out, *p)
	}
	return out, nil
}

// ListLowStockProducts returns active synthetic products whose stock is
// below the threshold, lowest stock first. Serves the stock monitor in
// offline mode.
func (o *OfflineProductStore) ListLowStockProducts(threshold int) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range o.products {
		if p.IsActive && p.CountInStock < threshold {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CountInStock < out[j].CountInStock
	})
	return out, nil
}

// IncrementReorderCount bumps the in-memory reorder counter.
func (o *OfflineProductStore) IncrementReorderCount(id string, at time.Time) error {
	product, ok := o.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	product.ReorderCount++
	stamped := at
	product.LastReorderDate = &stamped
	return nil
}

// OfflineProducts is the synthetic catalog used in offline mode.
func OfflineProducts() []domain.Product {
	return []domain.Product{
		{ID: "offline-espresso", Name: "Espresso Beans 1kg", Category: "coffee", UnitPrice: 24.0, CountInStock: 40, LeadTimeDays: 7, AutoReorder: true, IsActive: true},
		{ID: "offline-grinder", Name: "Burr Grinder", Category: "equipment", UnitPrice: 129.0, CountInStock: 12, LeadTimeDays: 14, AutoReorder: true, IsActive: true},
		{ID: "offline-filter", Name: "Paper Filters 100pk", Category: "accessories", UnitPrice: 6.5, CountInStock: 80, LeadTimeDays: 5, AutoReorder: false, IsActive: true},
	}
}
