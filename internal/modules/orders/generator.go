package orders

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// WholesaleFraction is the assumed supplier cost as a fraction of retail
// unit price when estimating draft order costs.
const WholesaleFraction = 0.6

// ReorderChecker answers reorder-status questions for the generator.
// Implemented by the reorder service.
type ReorderChecker interface {
	CheckReorderStatus(productID string) (*domain.ReorderStatus, error)
}

// AlertSink receives generated-order notifications.
// Implemented by the alert log.
type AlertSink interface {
	AutoReorderAlert(productID string, orderID string, quantity int, urgency domain.Urgency)
}

// Generator scans reorder-enabled products and emits purchase-order drafts
// for those whose reorder check trips with sufficient confidence.
type Generator struct {
	products            domain.ProductStore
	checker             ReorderChecker
	repo                *Repository
	alerts              AlertSink
	confidenceThreshold float64
	log                 zerolog.Logger
}

// NewGenerator creates a new automated order generator.
// confidenceThreshold gates generation (0.8 by default upstream).
func NewGenerator(
	products domain.ProductStore,
	checker ReorderChecker,
	repo *Repository,
	alerts AlertSink,
	confidenceThreshold float64,
	log zerolog.Logger,
) *Generator {
	return &Generator{
		products:            products,
		checker:             checker,
		repo:                repo,
		alerts:              alerts,
		confidenceThreshold: confidenceThreshold,
		log:                 log.With().Str("component", "order_generator").Logger(),
	}
}

// GenerateAutomatedOrders creates pending purchase-order drafts for every
// active auto-reorder product whose stock is at or below its reorder point
// and whose forecast confidence clears the threshold. Products with an open
// (non-terminal) order are skipped. Per-product failures are logged and do
// not abort the scan.
func (g *Generator) GenerateAutomatedOrders() ([]*PurchaseOrder, error) {
	products, err := g.products.ListActiveProducts()
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}

	var generated []*PurchaseOrder
	for _, product := range products {
		if !product.AutoReorder {
			continue
		}

		order, err := g.generateForProduct(&product)
		if err != nil {
			g.log.Error().Err(err).Str("product_id", product.ID).Msg("Failed to generate order")
			continue
		}
		if order != nil {
			generated = append(generated, order)
		}
	}

	if len(generated) > 0 {
		g.log.Info().Int("orders", len(generated)).Msg("Automated purchase orders generated")
	}

	return generated, nil
}

// generateForProduct runs the reorder check for one product and persists a
// draft when it trips. Returns (nil, nil) when no order is warranted.
func (g *Generator) generateForProduct(product *domain.Product) (*PurchaseOrder, error) {
	status, err := g.checker.CheckReorderStatus(product.ID)
	if err != nil {
		return nil, fmt.Errorf("reorder check failed: %w", err)
	}

	if !status.Calculated || !status.NeedsReorder {
		return nil, nil
	}
	if status.Confidence <= g.confidenceThreshold {
		g.log.Debug().
			Str("product_id", product.ID).
			Float64("confidence", status.Confidence).
			Msg("Reorder needed but confidence below threshold")
		return nil, nil
	}

	open, err := g.repo.HasOpenOrder(product.ID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, nil
	}

	order := g.newDraft(product, status)
	if err := g.repo.Create(order); err != nil {
		return nil, err
	}

	if g.alerts != nil {
		g.alerts.AutoReorderAlert(product.ID, order.ID, order.OrderQuantity, order.Urgency)
	}

	g.log.Info().
		Str("product_id", product.ID).
		Str("order_id", order.ID).
		Int("quantity", order.OrderQuantity).
		Str("urgency", string(order.Urgency)).
		Msg("Purchase order draft created")

	return order, nil
}

// newDraft builds a pending purchase order from a tripped reorder check.
// Quantity is the recommended EOQ; unit cost assumes the wholesale fraction
// of retail price; expected delivery follows the product's lead time.
func (g *Generator) newDraft(product *domain.Product, status *domain.ReorderStatus) *PurchaseOrder {
	now := time.Now().UTC()

	leadTime := product.LeadTimeDays
	if leadTime <= 0 {
		leadTime = 7
	}
	expected := now.AddDate(0, 0, leadTime)

	order := &PurchaseOrder{
		ID:            uuid.NewString(),
		ProductID:     product.ID,
		Supplier:      product.Supplier,
		OrderQuantity: status.RecommendedOrderQuantity,
		UnitCost:      product.UnitPrice * WholesaleFraction,
		Status:        StatusPending,
		Urgency:       status.Urgency,
		AIGenerated:   true,
		Confidence:    status.Confidence,
		ReorderPoint:  status.ReorderPoint,
		CurrentStock:  status.CurrentStock,
		OrderDate:     now,

		ExpectedDelivery: &expected,
	}
	order.appendAudit("created", "auto_reorder", fmt.Sprintf("stock %d at reorder point %d", status.CurrentStock, status.ReorderPoint))

	return order
}
