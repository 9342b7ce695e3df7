// Package domain provides core domain models and types for the
// demand-forecasting and automated-reorder engine.
package domain

import "time"

// SeasonalityTag captures the calendar context of a sales day.
type SeasonalityTag struct {
	Month     time.Month   `json:"month"`
	DayOfWeek time.Weekday `json:"day_of_week"`
	Quarter   int          `json:"quarter"` // 1-4
}

// HistoricalSalesRecord is one aggregated sales day for a product.
// Records are immutable once created by the aggregator.
type HistoricalSalesRecord struct {
	ProductID    string         `json:"product_id"`
	Date         time.Time      `json:"date"` // Midnight UTC of the sales day
	QuantitySold float64        `json:"quantity_sold"`
	Revenue      float64        `json:"revenue"`
	OrderCount   int            `json:"order_count"`
	Category     string         `json:"category"`
	UnitPrice    float64        `json:"unit_price"` // Revenue-weighted average for the day
	Seasonality  SeasonalityTag `json:"seasonality"`
}

// SeasonalPatterns holds normalized seasonal index vectors.
// Each vector is rescaled so its arithmetic mean is 1.0; degenerate
// inputs leave the vector at its all-ones default.
type SeasonalPatterns struct {
	Monthly   [12]float64 `json:"monthly"`
	Weekly    [7]float64  `json:"weekly"`
	Quarterly [4]float64  `json:"quarterly"`
}

// DefaultSeasonalPatterns returns identity seasonal vectors (factor 1.0 per slot).
func DefaultSeasonalPatterns() SeasonalPatterns {
	var p SeasonalPatterns
	for i := range p.Monthly {
		p.Monthly[i] = 1.0
	}
	for i := range p.Weekly {
		p.Weekly[i] = 1.0
	}
	for i := range p.Quarterly {
		p.Quarterly[i] = 1.0
	}
	return p
}

// TrendStats holds trend statistics extracted from a product's sales series.
type TrendStats struct {
	// Growth is the linear-regression slope of daily quantity over the series.
	Growth float64 `json:"growth"`
	// Volatility is the standard deviation of successive relative daily changes.
	Volatility float64 `json:"volatility"`
	// Cyclicality is the variance-to-mean ratio of monthly aggregated quantity.
	Cyclicality float64 `json:"cyclicality"`
	// Computed is false for products with fewer than the minimum records;
	// such profiles keep default zero trends without erroring.
	Computed bool `json:"computed"`
}

// ProductSeriesProfile is the per-product analytical profile built by the
// pattern extractor. Rebuilt wholesale on every retrain, never mutated in place.
type ProductSeriesProfile struct {
	ProductID string                  `json:"product_id"`
	Records   []HistoricalSalesRecord `json:"records"` // Date ascending
	Seasonal  SeasonalPatterns        `json:"seasonal"`
	Trends    TrendStats              `json:"trends"`
}

// ForecastPoint is a single day of a demand forecast.
// Actual is set for fitted historical points and nil for future projections.
type ForecastPoint struct {
	Date       time.Time `json:"date"`
	Predicted  float64   `json:"predicted"`
	Actual     *float64  `json:"actual,omitempty"`
	Confidence float64   `json:"confidence"`
}

// DemandForecast is the combined trend+seasonal forecast for one product.
type DemandForecast struct {
	ProductID   string          `json:"product_id"`
	Points      []ForecastPoint `json:"points"` // Date ascending
	Confidence  float64         `json:"confidence"`
	Model       string          `json:"model"`
	LastUpdated time.Time       `json:"last_updated"`
}

// ReorderInfo holds the inventory control parameters derived from a forecast.
type ReorderInfo struct {
	ProductID string `json:"product_id"`
	// ReorderPoint = ceil(LeadTimeDemand + SafetyStock), never negative.
	ReorderPoint          int       `json:"reorder_point"`
	SafetyStock           float64   `json:"safety_stock"`
	EconomicOrderQuantity int       `json:"economic_order_quantity"`
	LeadTimeDemand        float64   `json:"lead_time_demand"`
	AverageDailyDemand    float64   `json:"average_daily_demand"`
	DemandVariability     float64   `json:"demand_variability"`
	Confidence            float64   `json:"confidence"`
	LastCalculated        time.Time `json:"last_calculated"`
}

// Urgency classifies how pressing a reorder is, from the ratio of
// current stock to reorder point.
type Urgency string

const (
	UrgencyCritical Urgency = "critical" // stock/ROP <= 0.5
	UrgencyHigh     Urgency = "high"     // stock/ROP <= 0.8
	UrgencyMedium   Urgency = "medium"   // stock/ROP <= 1.0
	UrgencyLow      Urgency = "low"      // stock/ROP > 1.0
)

// ReorderStatus is the caller-facing answer to "does this product need reordering?".
// Calculated is false when no ReorderInfo exists yet for the product; in that
// case no other field carries meaning.
type ReorderStatus struct {
	ProductID                string  `json:"product_id"`
	Calculated               bool    `json:"calculated"`
	NeedsReorder             bool    `json:"needs_reorder"`
	CurrentStock             int     `json:"current_stock"`
	ReorderPoint             int     `json:"reorder_point"`
	RecommendedOrderQuantity int     `json:"recommended_order_quantity"`
	Urgency                  Urgency `json:"urgency"`
	Confidence               float64 `json:"confidence"`
}

// Product is the live catalog snapshot consumed from the product store.
type Product struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Category        string     `json:"category"`
	Supplier        string     `json:"supplier"`
	CountInStock    int        `json:"count_in_stock"`
	LeadTimeDays    int        `json:"lead_time_days"` // 0 means unset; optimizer defaults to 7
	UnitPrice       float64    `json:"unit_price"`
	AutoReorder     bool       `json:"auto_reorder"`
	IsActive        bool       `json:"is_active"`
	LastReorderDate *time.Time `json:"last_reorder_date,omitempty"`
	ReorderCount    int        `json:"reorder_count"`
}

// OrderLine is one fulfilled order line item from the sales history source.
type OrderLine struct {
	ProductID string    `json:"product_id"`
	Quantity  float64   `json:"quantity"`
	UnitPrice float64   `json:"unit_price"`
	Revenue   float64   `json:"revenue"`
	Category  string    `json:"category"`
	OrderedAt time.Time `json:"ordered_at"`
}

// QuarterOf returns the calendar quarter (1-4) for a time.
func QuarterOf(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// DayOf truncates a time to midnight UTC, the canonical sales-day key.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
