package reorder

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Service owns the per-product ReorderInfo map. It is recomputed whenever
// forecasts are refreshed and read through accessors by the order generator,
// the stock monitor, and the HTTP layer.
type Service struct {
	products domain.ProductStore

	mu   sync.RWMutex
	info map[string]*domain.ReorderInfo

	log zerolog.Logger
}

// NewService creates a new reorder service.
func NewService(products domain.ProductStore, log zerolog.Logger) *Service {
	return &Service{
		products: products,
		info:     make(map[string]*domain.ReorderInfo),
		log:      log.With().Str("service", "reorder").Logger(),
	}
}

// Recalculate replaces all reorder parameters from the given forecasts.
// Products without a forecast get no entry; CheckReorderStatus reports
// them as not calculated.
func (s *Service) Recalculate(forecasts map[string]*domain.DemandForecast) {
	info := make(map[string]*domain.ReorderInfo, len(forecasts))

	for productID, forecast := range forecasts {
		product, err := s.products.GetProduct(productID)
		if err != nil {
			// History can reference products since removed from the catalog.
			s.log.Debug().Str("product_id", productID).Err(err).Msg("Skipping reorder calculation")
			continue
		}

		if calculated := Calculate(product, forecast); calculated != nil {
			info[productID] = calculated
		}
	}

	s.mu.Lock()
	s.info = info
	s.mu.Unlock()

	s.log.Info().Int("products", len(info)).Msg("Reorder parameters recalculated")
}

// Info returns the reorder parameters for a product, or
// domain.ErrNotCalculated if none have been computed.
func (s *Service) Info(productID string) (*domain.ReorderInfo, error) {
	s.mu.RLock()
	info, ok := s.info[productID]
	s.mu.RUnlock()

	if !ok {
		return nil, domain.ErrNotCalculated
	}
	return info, nil
}

// CheckReorderStatus reports whether the product's current stock has fallen
// to or below its reorder point, along with the control parameters for
// display. Products without computed parameters report Calculated=false
// rather than inferring a default.
func (s *Service) CheckReorderStatus(productID string) (*domain.ReorderStatus, error) {
	product, err := s.products.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	info, err := s.Info(productID)
	if err != nil {
		return &domain.ReorderStatus{
			ProductID:  productID,
			Calculated: false,
		}, nil
	}

	return &domain.ReorderStatus{
		ProductID:                productID,
		Calculated:               true,
		NeedsReorder:             product.CountInStock <= info.ReorderPoint,
		CurrentStock:             product.CountInStock,
		ReorderPoint:             info.ReorderPoint,
		RecommendedOrderQuantity: info.EconomicOrderQuantity,
		Urgency:                  ClassifyUrgency(product.CountInStock, info.ReorderPoint),
		Confidence:               info.Confidence,
	}, nil
}
