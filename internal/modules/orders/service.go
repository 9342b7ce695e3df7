package orders

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Service exposes the purchase-order lifecycle operations over the
// repository: approve, cancel, tracking updates, delivery. Each operation
// loads the order, applies the in-memory transition, and persists the
// result with its new audit entries.
type Service struct {
	repo     *Repository
	products domain.ProductStore
	log      zerolog.Logger
}

// NewService creates a new order lifecycle service.
func NewService(repo *Repository, products domain.ProductStore, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		log:      log.With().Str("service", "orders").Logger(),
	}
}

// Get loads a purchase order with its audit trail.
func (s *Service) Get(id string) (*PurchaseOrder, error) {
	return s.repo.Get(id)
}

// List returns purchase orders, newest first, optionally filtered by status.
func (s *Service) List(status Status, limit int) ([]*PurchaseOrder, error) {
	return s.repo.List(status, limit)
}

// Approve transitions a pending order to approved. As a best-effort side
// effect the product's reorder counter is bumped; a failure there is logged
// and does not fail the approval.
func (s *Service) Approve(id, actor string) (*PurchaseOrder, error) {
	order, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	auditOffset := len(order.Audit)
	if err := order.Approve(actor); err != nil {
		return nil, err
	}

	if err := s.repo.Update(order, auditOffset); err != nil {
		return nil, fmt.Errorf("failed to persist approval: %w", err)
	}

	if err := s.products.IncrementReorderCount(order.ProductID, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).
			Str("order_id", id).
			Str("product_id", order.ProductID).
			Msg("Failed to update product reorder counter")
	}

	s.log.Info().Str("order_id", id).Str("actor", actor).Msg("Purchase order approved")
	return order, nil
}

// Cancel transitions any non-terminal order to cancelled.
func (s *Service) Cancel(id, actor, reason string) (*PurchaseOrder, error) {
	order, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	auditOffset := len(order.Audit)
	if err := order.Cancel(actor, reason); err != nil {
		return nil, err
	}

	if err := s.repo.Update(order, auditOffset); err != nil {
		return nil, fmt.Errorf("failed to persist cancellation: %w", err)
	}

	s.log.Info().Str("order_id", id).Str("actor", actor).Str("reason", reason).Msg("Purchase order cancelled")
	return order, nil
}

// MarkOrdered records that the order was placed with the supplier.
func (s *Service) MarkOrdered(id, actor string) (*PurchaseOrder, error) {
	return s.apply(id, func(o *PurchaseOrder) error { return o.MarkOrdered(actor) })
}

// MarkShipped records that the supplier shipped the order.
func (s *Service) MarkShipped(id, actor string) (*PurchaseOrder, error) {
	return s.apply(id, func(o *PurchaseOrder) error { return o.MarkShipped(actor) })
}

// UpdateTracking sets tracking fields on an ordered/shipped order.
func (s *Service) UpdateTracking(id, carrier, trackingNumber string) (*PurchaseOrder, error) {
	return s.apply(id, func(o *PurchaseOrder) error { return o.UpdateTracking(carrier, trackingNumber) })
}

// MarkDelivered completes the order and computes delivery metrics.
func (s *Service) MarkDelivered(id, actor string) (*PurchaseOrder, error) {
	return s.apply(id, func(o *PurchaseOrder) error { return o.MarkDelivered(actor) })
}

// apply loads, transitions, and persists an order.
func (s *Service) apply(id string, fn func(*PurchaseOrder) error) (*PurchaseOrder, error) {
	order, err := s.repo.Get(id)
	if err != nil {
		return nil, err
	}

	auditOffset := len(order.Audit)
	if err := fn(order); err != nil {
		return nil, err
	}

	if err := s.repo.Update(order, auditOffset); err != nil {
		return nil, fmt.Errorf("failed to persist order update: %w", err)
	}

	return order, nil
}
