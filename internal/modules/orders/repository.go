package orders

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/database"
	"github.com/stockwell/replenish/internal/domain"
)

// ErrOrderNotFound - the purchase order does not exist.
var ErrOrderNotFound = errors.New("purchase order not found")

// orderColumns is the list of columns for the purchase_orders table.
// Column order must match scanOrder().
const orderColumns = `id, product_id, supplier, order_quantity, unit_cost, status, urgency,
	ai_generated, confidence, reorder_point, current_stock,
	order_date, expected_delivery, actual_delivery, approved_date, approved_by,
	carrier, tracking_number, tracking_updated, quality_check,
	lead_time_actual, delivery_accuracy, cost_variance`

// Repository persists purchase orders and their append-only audit trail
// in the orders database (ledger profile).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new purchase order repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "purchase_order").Logger(),
	}
}

// Create inserts a new purchase order with its initial audit entries.
func (r *Repository) Create(order *PurchaseOrder) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		now := time.Now().Unix()

		query := fmt.Sprintf(`
			INSERT INTO purchase_orders (%s, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, orderColumns)

		_, err := tx.Exec(query,
			order.ID, order.ProductID, order.Supplier,
			order.OrderQuantity, order.UnitCost,
			string(order.Status), string(order.Urgency),
			boolToInt(order.AIGenerated), order.Confidence,
			order.ReorderPoint, order.CurrentStock,
			order.OrderDate.Unix(),
			unixPtr(order.ExpectedDelivery), unixPtr(order.ActualDelivery), unixPtr(order.ApprovedDate),
			order.ApprovedBy,
			trackingCarrier(order), trackingNumber(order), trackingUpdated(order),
			order.QualityCheck,
			metricsLeadTime(order), metricsAccuracy(order), metricsCostVariance(order),
			now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert purchase order %s: %w", order.ID, err)
		}

		return insertAuditEntries(tx, order.ID, order.Audit)
	})
}

// Update persists the current state of an order after a lifecycle
// transition, appending any audit entries newer than auditOffset.
func (r *Repository) Update(order *PurchaseOrder, auditOffset int) error {
	return database.WithTransaction(r.db, func(tx *sql.Tx) error {
		query := `
			UPDATE purchase_orders SET
				order_quantity = ?, unit_cost = ?, status = ?, urgency = ?,
				expected_delivery = ?, actual_delivery = ?, approved_date = ?, approved_by = ?,
				carrier = ?, tracking_number = ?, tracking_updated = ?, quality_check = ?,
				lead_time_actual = ?, delivery_accuracy = ?, cost_variance = ?,
				updated_at = ?
			WHERE id = ?
		`

		result, err := tx.Exec(query,
			order.OrderQuantity, order.UnitCost,
			string(order.Status), string(order.Urgency),
			unixPtr(order.ExpectedDelivery), unixPtr(order.ActualDelivery), unixPtr(order.ApprovedDate),
			order.ApprovedBy,
			trackingCarrier(order), trackingNumber(order), trackingUpdated(order),
			order.QualityCheck,
			metricsLeadTime(order), metricsAccuracy(order), metricsCostVariance(order),
			time.Now().Unix(),
			order.ID,
		)
		if err != nil {
			return fmt.Errorf("failed to update purchase order %s: %w", order.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return ErrOrderNotFound
		}

		if auditOffset < len(order.Audit) {
			return insertAuditEntries(tx, order.ID, order.Audit[auditOffset:])
		}
		return nil
	})
}

// Get loads a purchase order with its audit trail.
func (r *Repository) Get(id string) (*PurchaseOrder, error) {
	query := fmt.Sprintf("SELECT %s FROM purchase_orders WHERE id = ?", orderColumns)

	order, err := scanOrder(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order %s: %w", id, err)
	}

	audit, err := r.loadAudit(id)
	if err != nil {
		return nil, err
	}
	order.Audit = audit

	return order, nil
}

// List returns purchase orders, newest first, optionally filtered by status.
func (r *Repository) List(status Status, limit int) ([]*PurchaseOrder, error) {
	if limit <= 0 {
		limit = 100
	}

	var rows *sql.Rows
	var err error
	if status != "" {
		query := fmt.Sprintf(
			"SELECT %s FROM purchase_orders WHERE status = ? ORDER BY order_date DESC LIMIT ?",
			orderColumns,
		)
		rows, err = r.db.Query(query, string(status), limit)
	} else {
		query := fmt.Sprintf(
			"SELECT %s FROM purchase_orders ORDER BY order_date DESC LIMIT ?",
			orderColumns,
		)
		rows, err = r.db.Query(query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []*PurchaseOrder
	for rows.Next() {
		order, err := scanOrderFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchase orders: %w", err)
	}

	return orders, nil
}

// HasOpenOrder reports whether the product already has a non-terminal
// purchase order. Used to avoid generating duplicate drafts.
func (r *Repository) HasOpenOrder(productID string) (bool, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM purchase_orders WHERE product_id = ? AND status NOT IN ('delivered', 'cancelled')",
		productID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check open orders for %s: %w", productID, err)
	}
	return count > 0, nil
}

// loadAudit reads the audit trail for an order, oldest first.
func (r *Repository) loadAudit(orderID string) ([]AuditEntry, error) {
	rows, err := r.db.Query(
		"SELECT action, actor, details, created_at FROM purchase_order_audit WHERE order_id = ? ORDER BY id",
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit for %s: %w", orderID, err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt int64
		if err := rows.Scan(&e.Action, &e.Actor, &e.Details, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}

func insertAuditEntries(tx *sql.Tx, orderID string, entries []AuditEntry) error {
	for _, e := range entries {
		_, err := tx.Exec(
			"INSERT INTO purchase_order_audit (order_id, action, actor, details, created_at) VALUES (?, ?, ?, ?, ?)",
			orderID, e.Action, e.Actor, e.Details, e.Timestamp.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert audit entry for %s: %w", orderID, err)
		}
	}
	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row *sql.Row) (*PurchaseOrder, error) {
	return scanOrderFrom(row)
}

func scanOrderFromRows(rows *sql.Rows) (*PurchaseOrder, error) {
	return scanOrderFrom(rows)
}

func scanOrderFrom(s rowScanner) (*PurchaseOrder, error) {
	var o PurchaseOrder
	var status, urgency string
	var aiGenerated int
	var orderDate int64
	var expectedDelivery, actualDelivery, approvedDate, trackingUpdatedAt sql.NullInt64
	var carrier, trackingNum string
	var leadTimeActual sql.NullInt64
	var deliveryAccuracy, costVariance sql.NullFloat64

	err := s.Scan(
		&o.ID, &o.ProductID, &o.Supplier,
		&o.OrderQuantity, &o.UnitCost, &status, &urgency,
		&aiGenerated, &o.Confidence, &o.ReorderPoint, &o.CurrentStock,
		&orderDate, &expectedDelivery, &actualDelivery, &approvedDate, &o.ApprovedBy,
		&carrier, &trackingNum, &trackingUpdatedAt, &o.QualityCheck,
		&leadTimeActual, &deliveryAccuracy, &costVariance,
	)
	if err != nil {
		return nil, err
	}

	o.Status = Status(status)
	o.Urgency = domain.Urgency(urgency)
	o.AIGenerated = aiGenerated != 0
	o.OrderDate = time.Unix(orderDate, 0).UTC()
	o.ExpectedDelivery = timePtr(expectedDelivery)
	o.ActualDelivery = timePtr(actualDelivery)
	o.ApprovedDate = timePtr(approvedDate)

	if carrier != "" || trackingNum != "" {
		tracking := &TrackingInfo{Carrier: carrier, TrackingNumber: trackingNum}
		if t := timePtr(trackingUpdatedAt); t != nil {
			tracking.LastUpdate = *t
		}
		o.Tracking = tracking
	}

	if leadTimeActual.Valid || deliveryAccuracy.Valid {
		o.Metrics = &DeliveryMetrics{
			LeadTimeDays:     int(leadTimeActual.Int64),
			DeliveryAccuracy: deliveryAccuracy.Float64,
			CostVariance:     costVariance.Float64,
		}
	}

	return &o, nil
}

func unixPtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func trackingCarrier(o *PurchaseOrder) string {
	if o.Tracking == nil {
		return ""
	}
	return o.Tracking.Carrier
}

func trackingNumber(o *PurchaseOrder) string {
	if o.Tracking == nil {
		return ""
	}
	return o.Tracking.TrackingNumber
}

func trackingUpdated(o *PurchaseOrder) interface{} {
	if o.Tracking == nil || o.Tracking.LastUpdate.IsZero() {
		return nil
	}
	return o.Tracking.LastUpdate.Unix()
}

func metricsLeadTime(o *PurchaseOrder) interface{} {
	if o.Metrics == nil {
		return nil
	}
	return o.Metrics.LeadTimeDays
}

func metricsAccuracy(o *PurchaseOrder) interface{} {
	if o.Metrics == nil {
		return nil
	}
	return o.Metrics.DeliveryAccuracy
}

func metricsCostVariance(o *PurchaseOrder) interface{} {
	if o.Metrics == nil {
		return nil
	}
	return o.Metrics.CostVariance
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
