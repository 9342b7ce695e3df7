package testing

import (
	"math"
	"time"

	"github.com/stockwell/replenish/internal/domain"
)

// NewProductFixtures returns a set of test products covering the interesting
// configurations: auto-reorder on/off, generous and zero lead times, inactive.
func NewProductFixtures() []domain.Product {
	return []domain.Product{
		{
			ID:           "prod-espresso",
			Name:         "Espresso Beans 1kg",
			Category:     "coffee",
			Supplier:     "Aroma Imports",
			CountInStock: 40,
			LeadTimeDays: 7,
			UnitPrice:    18.50,
			AutoReorder:  true,
			IsActive:     true,
		},
		{
			ID:           "prod-grinder",
			Name:         "Burr Grinder",
			Category:     "equipment",
			Supplier:     "BrewTech",
			CountInStock: 5,
			LeadTimeDays: 21,
			UnitPrice:    149.00,
			AutoReorder:  true,
			IsActive:     true,
		},
		{
			ID:           "prod-filter",
			Name:         "Paper Filters 100pk",
			Category:     "consumables",
			Supplier:     "BrewTech",
			CountInStock: 200,
			LeadTimeDays: 0, // Unset; optimizer defaults to 7
			UnitPrice:    4.25,
			AutoReorder:  false,
			IsActive:     true,
		},
		{
			ID:           "prod-retired-mug",
			Name:         "Discontinued Mug",
			Category:     "merch",
			Supplier:     "",
			CountInStock: 3,
			LeadTimeDays: 14,
			UnitPrice:    9.99,
			AutoReorder:  true,
			IsActive:     false,
		},
	}
}

// ConstantSalesLines builds one fulfilled order line per day with a fixed
// quantity, ending the day before `end`. Useful for zero-variability scenarios.
func ConstantSalesLines(productID string, days int, quantity float64, unitPrice float64, end time.Time) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, days)
	for i := days; i >= 1; i-- {
		day := domain.DayOf(end.AddDate(0, 0, -i))
		lines = append(lines, domain.OrderLine{
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: unitPrice,
			Revenue:   quantity * unitPrice,
			Category:  "test",
			OrderedAt: day.Add(12 * time.Hour),
		})
	}
	return lines
}

// SeasonalSalesLines builds a daily sales series with a weekly sinusoidal
// demand cycle around a base quantity. Quantities are kept strictly positive.
func SeasonalSalesLines(productID string, days int, base float64, amplitude float64, unitPrice float64, end time.Time) []domain.OrderLine {
	lines := make([]domain.OrderLine, 0, days)
	for i := days; i >= 1; i-- {
		day := domain.DayOf(end.AddDate(0, 0, -i))
		qty := base + amplitude*math.Sin(2*math.Pi*float64(day.Weekday())/7)
		if qty < 1 {
			qty = 1
		}
		qty = math.Round(qty)
		lines = append(lines, domain.OrderLine{
			ProductID: productID,
			Quantity:  qty,
			UnitPrice: unitPrice,
			Revenue:   qty * unitPrice,
			Category:  "test",
			OrderedAt: day.Add(10 * time.Hour),
		})
	}
	return lines
}

// StaticSalesSource is an in-memory SalesHistorySource for tests.
type StaticSalesSource struct {
	Lines []domain.OrderLine
	Err   error
}

// FulfilledOrderLinesSince filters the static lines by timestamp.
func (s *StaticSalesSource) FulfilledOrderLinesSince(since time.Time) ([]domain.OrderLine, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	var out []domain.OrderLine
	for _, l := range s.Lines {
		if !l.OrderedAt.Before(since) {
			out = append(out, l)
		}
	}
	return out, nil
}

// StaticProductStore is an in-memory ProductStore for tests.
type StaticProductStore struct {
	Products map[string]*domain.Product
	IncErr   error
}

// NewStaticProductStore builds a store from a slice of products.
func NewStaticProductStore(products []domain.Product) *StaticProductStore {
	m := make(map[string]*domain.Product, len(products))
	for i := range products {
		p := products[i]
		m[p.ID] = &p
	}
	return &StaticProductStore{Products: m}
}

// GetProduct returns the product or domain.ErrProductNotFound.
func (s *StaticProductStore) GetProduct(id string) (*domain.Product, error) {
	p, ok := s.Products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

// ListActiveProducts returns all active products.
func (s *StaticProductStore) ListActiveProducts() ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range s.Products {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	return out, nil
}

// IncrementReorderCount bumps the counter in memory.
func (s *StaticProductStore) IncrementReorderCount(id string, at time.Time) error {
	if s.IncErr != nil {
		return s.IncErr
	}
	p, ok := s.Products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.ReorderCount++
	t := at
	p.LastReorderDate = &t
	return nil
}

// NopCache is a Cache implementation that stores nothing.
type NopCache struct{}

// Get always reports a miss.
func (NopCache) Get(string, interface{}) (bool, error) { return false, nil }

// Set discards the value.
func (NopCache) Set(string, interface{}, time.Duration) error { return nil }
