package catalog

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// SalesRepository reads fulfilled order lines from the catalog database.
// It implements domain.SalesHistorySource.
type SalesRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSalesRepository creates a new sales repository.
func NewSalesRepository(db *sql.DB, log zerolog.Logger) *SalesRepository {
	return &SalesRepository{
		db:  db,
		log: log.With().Str("repo", "sales").Logger(),
	}
}

// FulfilledOrderLinesSince returns all fulfilled order lines with an order
// timestamp at or after since.
func (r *SalesRepository) FulfilledOrderLinesSince(since time.Time) ([]domain.OrderLine, error) {
	query := `
		SELECT product_id, quantity, unit_price, revenue, category, ordered_at
		FROM order_lines
		WHERE status = 'fulfilled' AND ordered_at >= ?
		ORDER BY ordered_at
	`

	rows, err := r.db.Query(query, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query fulfilled order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		var orderedAt int64
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.UnitPrice, &l.Revenue, &l.Category, &orderedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		l.OrderedAt = time.Unix(orderedAt, 0).UTC()
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order lines: %w", err)
	}

	return lines, nil
}

// InsertOrderLine appends a fulfilled order line. Used by seeding and tests.
func (r *SalesRepository) InsertOrderLine(l domain.OrderLine) error {
	query := `
		INSERT INTO order_lines (product_id, quantity, unit_price, revenue, category, status, ordered_at)
		VALUES (?, ?, ?, ?, ?, 'fulfilled', ?)
	`

	_, err := r.db.Exec(query, l.ProductID, l.Quantity, l.UnitPrice, l.Revenue, l.Category, l.OrderedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert order line for %s: %w", l.ProductID, err)
	}

	return nil
}

// CategorySales is one row of the category performance report.
type CategorySales struct {
	Category   string  `json:"category"`
	Revenue    float64 `json:"revenue"`
	Quantity   float64 `json:"quantity"`
	OrderCount int     `json:"order_count"`
	Products   int     `json:"products"`
}

// CategoryPerformanceSince aggregates fulfilled sales by category.
func (r *SalesRepository) CategoryPerformanceSince(since time.Time) ([]CategorySales, error) {
	query := `
		SELECT category,
		       SUM(revenue) AS revenue,
		       SUM(quantity) AS quantity,
		       COUNT(*) AS order_count,
		       COUNT(DISTINCT product_id) AS products
		FROM order_lines
		WHERE status = 'fulfilled' AND ordered_at >= ?
		GROUP BY category
		ORDER BY revenue DESC
	`

	rows, err := r.db.Query(query, since.Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query category performance: %w", err)
	}
	defer rows.Close()

	var result []CategorySales
	for rows.Next() {
		var c CategorySales
		if err := rows.Scan(&c.Category, &c.Revenue, &c.Quantity, &c.OrderCount, &c.Products); err != nil {
			return nil, fmt.Errorf("failed to scan category sales: %w", err)
		}
		result = append(result, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category sales: %w", err)
	}

	return result, nil
}
