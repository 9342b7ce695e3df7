// Package alerts provides the bounded in-memory inventory alert log and
// the live subscription hub behind the websocket stream.
package alerts

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// Alert types appended by the monitor loop and the order generator.
const (
	TypeLowStock      = "low_stock"
	TypeAutoReorder   = "auto_reorder"
	TypeForecastStale = "forecast_stale"
)

// DefaultCapacity bounds the retained log; oldest entries drop first.
const DefaultCapacity = 100

// DefaultRetrieveLimit is the number of alerts returned when the caller
// does not specify one.
const DefaultRetrieveLimit = 20

// Alert is one inventory alert.
type Alert struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	ProductID string                 `json:"product_id,omitempty"`
	Message   string                 `json:"message"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Read      bool                   `json:"read"`
}

// Log is a bounded, append-only alert ring. Retrieval is newest-first.
// Appends also fan out to live subscribers; a slow subscriber misses
// alerts rather than blocking the appender.
type Log struct {
	mu       sync.Mutex
	entries  []Alert // Insertion order, oldest first
	capacity int

	subs   map[int]chan Alert
	nextID int

	log zerolog.Logger
}

// NewLog creates an alert log with the given capacity (DefaultCapacity if
// non-positive).
func NewLog(capacity int, log zerolog.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		capacity: capacity,
		subs:     make(map[int]chan Alert),
		log:      log.With().Str("component", "alert_log").Logger(),
	}
}

// Append adds an alert, dropping the oldest entry once capacity is reached.
func (l *Log) Append(alertType, productID, message string, payload map[string]interface{}) Alert {
	alert := Alert{
		ID:        uuid.NewString(),
		Type:      alertType,
		ProductID: productID,
		Message:   message,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}

	l.mu.Lock()
	l.entries = append(l.entries, alert)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[len(l.entries)-l.capacity:]
	}
	for _, ch := range l.subs {
		select {
		case ch <- alert:
		default:
			// Subscriber buffer full; drop rather than block
		}
	}
	l.mu.Unlock()

	l.log.Debug().Str("type", alertType).Str("product_id", productID).Msg(message)
	return alert
}

// Recent returns the most recent limit alerts, newest first.
// A non-positive limit uses DefaultRetrieveLimit.
func (l *Log) Recent(limit int) []Alert {
	if limit <= 0 {
		limit = DefaultRetrieveLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.entries)
	if limit > n {
		limit = n
	}

	out := make([]Alert, limit)
	for i := 0; i < limit; i++ {
		out[i] = l.entries[n-1-i]
	}
	return out
}

// Len returns the number of retained alerts.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Subscribe registers a live alert channel. The returned cancel function
// unregisters and closes it.
func (l *Log) Subscribe() (<-chan Alert, func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	ch := make(chan Alert, 16)
	l.subs[id] = ch
	l.mu.Unlock()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// LowStockAlert appends a low_stock alert from a tripped reorder check.
func (l *Log) LowStockAlert(productID string, currentStock, reorderPoint int, urgency domain.Urgency) {
	l.Append(TypeLowStock, productID, "Product stock at or below reorder point", map[string]interface{}{
		"current_stock": currentStock,
		"reorder_point": reorderPoint,
		"urgency":       string(urgency),
	})
}

// AutoReorderAlert appends an auto_reorder alert for a generated draft.
// Satisfies the order generator's AlertSink.
func (l *Log) AutoReorderAlert(productID string, orderID string, quantity int, urgency domain.Urgency) {
	l.Append(TypeAutoReorder, productID, "Automated purchase order draft created", map[string]interface{}{
		"order_id": orderID,
		"quantity": quantity,
		"urgency":  string(urgency),
	})
}

// ForecastStaleAlert appends a forecast_stale alert when forecasts have not
// been refreshed within the expected cadence.
func (l *Log) ForecastStaleAlert(age time.Duration) {
	l.Append(TypeForecastStale, "", "Forecasts have not been refreshed recently", map[string]interface{}{
		"age_hours": int(age.Hours()),
	})
}
