// Package reorder derives inventory control parameters from demand
// forecasts: safety stock, reorder point, and economic order quantity.
package reorder

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/stockwell/replenish/internal/domain"
)

// Control constants for the 95% service level and EOQ cost model.
const (
	// ServiceLevelZ - z-score for a 95% service level.
	ServiceLevelZ = 1.645

	// DefaultLeadTimeDays is used when a product has no lead time configured.
	DefaultLeadTimeDays = 7

	// OrderingCost is the fixed cost per purchase order, in currency units.
	OrderingCost = 50.0

	// HoldingCostRate is the annual carrying-cost rate applied to unit price.
	HoldingCostRate = 0.20

	// DefaultEOQ is returned when holding cost is degenerate (free or
	// unpriced products) instead of dividing by zero.
	DefaultEOQ = 100

	// recentWindow - average daily demand is taken over the most recent
	// forecast points, up to this many.
	recentWindow = 30
)

// Calculate derives ReorderInfo from a product's forecast and lead time.
// demandVariability is the standard deviation of all forecast point values
// (absolute units); it is a distinct quantity from the relative volatility
// used in forecast confidence and the two are never interchanged.
func Calculate(product *domain.Product, forecast *domain.DemandForecast) *domain.ReorderInfo {
	if forecast == nil || len(forecast.Points) == 0 {
		return nil
	}

	leadTime := product.LeadTimeDays
	if leadTime <= 0 {
		leadTime = DefaultLeadTimeDays
	}

	predictions := make([]float64, len(forecast.Points))
	for i, p := range forecast.Points {
		predictions[i] = p.Predicted
	}

	// Average daily demand over the most recent window
	recent := predictions
	if len(recent) > recentWindow {
		recent = recent[len(recent)-recentWindow:]
	}
	avgDaily := stat.Mean(recent, nil)

	leadTimeDemand := avgDaily * float64(leadTime)

	var variability float64
	if len(predictions) >= 2 {
		variability = stat.StdDev(predictions, nil)
	}

	safetyStock := ServiceLevelZ * math.Sqrt(float64(leadTime)) * variability

	reorderPoint := int(math.Ceil(leadTimeDemand + safetyStock))
	if reorderPoint < 0 {
		reorderPoint = 0
	}

	return &domain.ReorderInfo{
		ProductID:             product.ID,
		ReorderPoint:          reorderPoint,
		SafetyStock:           safetyStock,
		EconomicOrderQuantity: CalculateEOQ(avgDaily, product.UnitPrice),
		LeadTimeDemand:        leadTimeDemand,
		AverageDailyDemand:    avgDaily,
		DemandVariability:     variability,
		Confidence:            forecast.Confidence,
		LastCalculated:        time.Now().UTC(),
	}
}

// CalculateEOQ computes the economic order quantity for the given average
// daily demand and unit price. A non-positive holding cost falls back to
// the documented default instead of a division error.
func CalculateEOQ(avgDailyDemand, unitPrice float64) int {
	holdingCost := unitPrice * HoldingCostRate
	if holdingCost <= 0 {
		return DefaultEOQ
	}

	annualDemand := avgDailyDemand * 365
	eoq := math.Sqrt((2 * annualDemand * OrderingCost) / holdingCost)

	result := int(math.Round(eoq))
	if result < 1 {
		result = 1
	}
	return result
}

// ClassifyUrgency maps the stock-to-reorder-point ratio onto an urgency
// level. A zero reorder point means demand is effectively nil; only an
// empty shelf is urgent then.
func ClassifyUrgency(currentStock, reorderPoint int) domain.Urgency {
	if reorderPoint <= 0 {
		if currentStock <= 0 {
			return domain.UrgencyCritical
		}
		return domain.UrgencyLow
	}

	ratio := float64(currentStock) / float64(reorderPoint)
	switch {
	case ratio <= 0.5:
		return domain.UrgencyCritical
	case ratio <= 0.8:
		return domain.UrgencyHigh
	case ratio <= 1.0:
		return domain.UrgencyMedium
	default:
		return domain.UrgencyLow
	}
}
