// Package catalog provides repositories over the catalog database:
// the live product snapshot and the fulfilled order-line sales history.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stockwell/replenish/internal/domain"
)

// productColumns is the list of columns for the products table.
// Used to avoid SELECT * which can break when schema changes.
// Column order must match scanProduct().
const productColumns = `id, name, category, supplier, count_in_stock, lead_time_days, unit_price, auto_reorder, is_active, last_reorder_date, reorder_count`

// ProductRepository handles product database operations.
type ProductRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *sql.DB, log zerolog.Logger) *ProductRepository {
	return &ProductRepository{
		db:  db,
		log: log.With().Str("repo", "product").Logger(),
	}
}

// GetProduct returns the product or domain.ErrProductNotFound.
func (r *ProductRepository) GetProduct(id string) (*domain.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE id = ?", productColumns)

	p, err := scanProduct(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	return p, nil
}

// ListActiveProducts returns all active products ordered by id.
func (r *ProductRepository) ListActiveProducts() ([]domain.Product, error) {
	query := fmt.Sprintf("SELECT %s FROM products WHERE is_active = 1 ORDER BY id", productColumns)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProductFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// ListLowStockProducts returns active products whose stock is below the threshold.
// Used by the stock monitor.
func (r *ProductRepository) ListLowStockProducts(threshold int) ([]domain.Product, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM products WHERE is_active = 1 AND count_in_stock < ? ORDER BY count_in_stock",
		productColumns,
	)

	rows, err := r.db.Query(query, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProductFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	return products, nil
}

// Upsert inserts or replaces a product row. Used by seeding and tests.
func (r *ProductRepository) Upsert(p domain.Product) error {
	now := time.Now().Unix()

	var lastReorder interface{}
	if p.LastReorderDate != nil {
		lastReorder = p.LastReorderDate.Unix()
	}

	query := `
		INSERT INTO products
		(id, name, category, supplier, count_in_stock, lead_time_days, unit_price,
		 auto_reorder, is_active, last_reorder_date, reorder_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			supplier = excluded.supplier,
			count_in_stock = excluded.count_in_stock,
			lead_time_days = excluded.lead_time_days,
			unit_price = excluded.unit_price,
			auto_reorder = excluded.auto_reorder,
			is_active = excluded.is_active,
			updated_at = excluded.updated_at
	`

	_, err := r.db.Exec(query,
		p.ID, p.Name, p.Category, p.Supplier,
		p.CountInStock, p.LeadTimeDays, p.UnitPrice,
		boolToInt(p.AutoReorder), boolToInt(p.IsActive),
		lastReorder, p.ReorderCount, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ID, err)
	}

	return nil
}

// UpdateStock sets the current stock count for a product.
func (r *ProductRepository) UpdateStock(id string, countInStock int) error {
	result, err := r.db.Exec(
		"UPDATE products SET count_in_stock = ?, updated_at = ? WHERE id = ?",
		countInStock, time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update stock for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// IncrementReorderCount bumps the product's reorder counter and refreshes its
// last reorder date. Best-effort side effect of order approval; the caller
// logs failures and continues.
func (r *ProductRepository) IncrementReorderCount(id string, at time.Time) error {
	result, err := r.db.Exec(
		"UPDATE products SET reorder_count = reorder_count + 1, last_reorder_date = ?, updated_at = ? WHERE id = ?",
		at.Unix(), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment reorder count for %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

// rowScanner abstracts sql.Row and sql.Rows for shared scan logic.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row *sql.Row) (*domain.Product, error) {
	return scanProductFrom(row)
}

func scanProductFromRows(rows *sql.Rows) (*domain.Product, error) {
	return scanProductFrom(rows)
}

func scanProductFrom(s rowScanner) (*domain.Product, error) {
	var p domain.Product
	var autoReorder, isActive int
	var lastReorder sql.NullInt64

	err := s.Scan(
		&p.ID, &p.Name, &p.Category, &p.Supplier,
		&p.CountInStock, &p.LeadTimeDays, &p.UnitPrice,
		&autoReorder, &isActive, &lastReorder, &p.ReorderCount,
	)
	if err != nil {
		return nil, err
	}

	p.AutoReorder = autoReorder != 0
	p.IsActive = isActive != 0
	if lastReorder.Valid {
		t := time.Unix(lastReorder.Int64, 0).UTC()
		p.LastReorderDate = &t
	}

	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
