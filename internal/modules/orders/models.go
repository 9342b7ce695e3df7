// Package orders implements the purchase-order lifecycle and the automated
// order generator that turns reorder signals into purchase-order drafts.
package orders

import (
	"fmt"
	"time"

	"github.com/stockwell/replenish/internal/domain"
)

// Status is the purchase-order lifecycle state.
// Orders only move forward or to cancelled; terminal states are final.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusOrdered   Status = "ordered"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// statusRank orders the forward progression of the lifecycle.
var statusRank = map[Status]int{
	StatusPending:   0,
	StatusApproved:  1,
	StatusOrdered:   2,
	StatusShipped:   3,
	StatusDelivered: 4,
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether a transition from s to target is legal:
// one step forward in the lifecycle, or to cancelled from any non-terminal state.
func (s Status) CanTransitionTo(target Status) bool {
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}

	from, okFrom := statusRank[s]
	to, okTo := statusRank[target]
	return okFrom && okTo && to == from+1
}

// AuditEntry is one append-only audit log record for a purchase order.
type AuditEntry struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingInfo holds shipment tracking fields, settable in ordered/shipped.
type TrackingInfo struct {
	Carrier        string    `json:"carrier"`
	TrackingNumber string    `json:"tracking_number"`
	LastUpdate     time.Time `json:"last_update"`
}

// DeliveryMetrics are computed once an order is delivered.
type DeliveryMetrics struct {
	LeadTimeDays     int     `json:"lead_time_days"`    // Actual days from order to delivery
	DeliveryAccuracy float64 `json:"delivery_accuracy"` // 1 on/before expected, 0.5 late
	CostVariance     float64 `json:"cost_variance"`
}

// PurchaseOrder is a request to restock a product. Orders are created by the
// generator or a human action, mutated only through lifecycle transitions,
// and never deleted.
type PurchaseOrder struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Supplier  string `json:"supplier"`

	OrderQuantity int     `json:"order_quantity"`
	UnitCost      float64 `json:"unit_cost"`

	Status  Status         `json:"status"`
	Urgency domain.Urgency `json:"urgency"`

	AIGenerated bool    `json:"ai_generated"`
	Confidence  float64 `json:"confidence"`

	// Snapshot of the reorder state at creation time
	ReorderPoint int `json:"reorder_point"`
	CurrentStock int `json:"current_stock"`

	OrderDate        time.Time  `json:"order_date"`
	ExpectedDelivery *time.Time `json:"expected_delivery,omitempty"`
	ActualDelivery   *time.Time `json:"actual_delivery,omitempty"`
	ApprovedDate     *time.Time `json:"approved_date,omitempty"`
	ApprovedBy       string     `json:"approved_by,omitempty"`

	Tracking     *TrackingInfo    `json:"tracking,omitempty"`
	QualityCheck string           `json:"quality_check,omitempty"`
	Metrics      *DeliveryMetrics `json:"metrics,omitempty"`

	Audit []AuditEntry `json:"audit"`
}

// TotalCost is always order quantity times unit cost at read time.
func (o *PurchaseOrder) TotalCost() float64 {
	return float64(o.OrderQuantity) * o.UnitCost
}

// appendAudit records a lifecycle action on the order.
func (o *PurchaseOrder) appendAudit(action, actor, details string) {
	o.Audit = append(o.Audit, AuditEntry{
		Action:    action,
		Actor:     actor,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

// transition moves the order to target or returns ErrIllegalTransition,
// leaving the order unchanged.
func (o *PurchaseOrder) transition(target Status) error {
	if !o.Status.CanTransitionTo(target) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrIllegalTransition, o.Status, target)
	}
	o.Status = target
	return nil
}

// Approve moves a pending order to approved, stamping the approver.
func (o *PurchaseOrder) Approve(actor string) error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: approve from %s", domain.ErrIllegalTransition, o.Status)
	}
	if err := o.transition(StatusApproved); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.ApprovedDate = &now
	o.ApprovedBy = actor
	o.appendAudit("approved", actor, "")
	return nil
}

// Cancel moves any non-terminal order to cancelled with a reason.
func (o *PurchaseOrder) Cancel(actor, reason string) error {
	if err := o.transition(StatusCancelled); err != nil {
		return err
	}
	o.appendAudit("cancelled", actor, reason)
	return nil
}

// MarkOrdered records that the order was placed with the supplier.
func (o *PurchaseOrder) MarkOrdered(actor string) error {
	if err := o.transition(StatusOrdered); err != nil {
		return err
	}
	o.appendAudit("ordered", actor, "")
	return nil
}

// MarkShipped records that the supplier shipped the order.
func (o *PurchaseOrder) MarkShipped(actor string) error {
	if err := o.transition(StatusShipped); err != nil {
		return err
	}
	o.appendAudit("shipped", actor, "")
	return nil
}

// UpdateTracking sets tracking fields. Legal only in ordered/shipped.
func (o *PurchaseOrder) UpdateTracking(carrier, trackingNumber string) error {
	if o.Status != StatusOrdered && o.Status != StatusShipped {
		return fmt.Errorf("%w: tracking update in %s", domain.ErrIllegalTransition, o.Status)
	}

	o.Tracking = &TrackingInfo{
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		LastUpdate:     time.Now().UTC(),
	}
	o.appendAudit("tracking_updated", "", fmt.Sprintf("%s %s", carrier, trackingNumber))
	return nil
}

// MarkDelivered completes the order, stamping actual delivery and computing
// post-delivery metrics. Illegal from cancelled (or any terminal state).
func (o *PurchaseOrder) MarkDelivered(actor string) error {
	if err := o.transition(StatusDelivered); err != nil {
		return err
	}

	now := time.Now().UTC()
	o.ActualDelivery = &now

	accuracy := 1.0
	if o.ExpectedDelivery != nil && now.After(*o.ExpectedDelivery) {
		accuracy = 0.5
	}

	o.Metrics = &DeliveryMetrics{
		LeadTimeDays:     int(now.Sub(o.OrderDate).Hours() / 24),
		DeliveryAccuracy: accuracy,
	}
	o.appendAudit("delivered", actor, "")
	return nil
}
