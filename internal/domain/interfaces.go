package domain

import "time"

// SalesHistorySource provides fulfilled order line items for the trailing
// history window. Implemented by the catalog sales repository and by the
// offline synthetic source used in degraded mode.
type SalesHistorySource interface {
	// FulfilledOrderLinesSince returns all fulfilled order lines with an
	// order timestamp at or after since, in no particular order.
	FulfilledOrderLinesSince(since time.Time) ([]OrderLine, error)
}

// ProductStore provides read access to the live product catalog plus the
// best-effort reorder bookkeeping performed on order approval.
type ProductStore interface {
	// GetProduct returns the product or ErrProductNotFound.
	GetProduct(id string) (*Product, error)

	// ListActiveProducts returns all active products.
	ListActiveProducts() ([]Product, error)

	// IncrementReorderCount bumps the product's reorder counter and
	// refreshes its last reorder date. Failures here must not fail the
	// caller's operation (best-effort side effect of order approval).
	IncrementReorderCount(id string, at time.Time) error
}

// Cache is a generic TTL key/value cache. Get reports whether a live
// (non-expired) entry was found and decoded into dest.
type Cache interface {
	Get(key string, dest interface{}) (bool, error)
	Set(key string, value interface{}, ttl time.Duration) error
}
