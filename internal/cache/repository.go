// Package cache provides a persistent TTL key/value cache backed by SQLite.
// Values are stored as msgpack-encoded blobs with expiration timestamps.
// A stale or missing cache read is always acceptable; callers recompute.
package cache

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Well-known cache keys and TTLs.
const (
	KeyAggregatedHistory = "aggregated_history" // Aggregator output, per retrain window
	KeySeasonalTrends    = "seasonal_trends"    // Dashboard seasonal trend report
	KeyPerformanceReport = "performance_report" // Inventory performance dashboard

	// TTLHistory - underlying sales data changes slowly relative to the
	// forecast refresh cadence.
	TTLHistory = time.Hour
	// TTLDashboard - advisory freshness for analytics reports.
	TTLDashboard = 15 * time.Minute
)

// Repository provides TTL cache operations over the cache database.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Set stores a value with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert entries.
func (r *Repository) Set(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value for %s: %w", key, err)
	}

	expiresAt := time.Now().Add(ttl).Unix()

	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO cache_entries (key, data, expires_at) VALUES (?, ?, ?)",
		key, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}

	return nil
}

// Get decodes a live (non-expired) entry into dest.
// Returns (false, nil) if the key does not exist or the entry has expired.
func (r *Repository) Get(key string, dest interface{}) (bool, error) {
	now := time.Now().Unix()

	var data []byte
	err := r.db.QueryRow(
		"SELECT data FROM cache_entries WHERE key = ? AND expires_at > ?",
		key, now,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache entry %s: %w", key, err)
	}

	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM cache_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete cache entry %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	now := time.Now().Unix()

	result, err := r.db.Exec("DELETE FROM cache_entries WHERE expires_at < ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
