// Package calculations provides a TTL cache for expensive statistics results.
package calculations

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/quantfolio/quantfolio/internal/database"
)

// TTLCovariance is how long estimated covariance results stay valid.
const TTLCovariance = 24 * time.Hour

// Cache stores msgpack-encoded calculation results in cache.db.
type Cache struct {
	db  *database.DB
	log zerolog.Logger
}

// NewCache creates a new calculation cache.
func NewCache(db *database.DB, log zerolog.Logger) *Cache {
	return &Cache{
		db:  db,
		log: log.With().Str("component", "calc_cache").Logger(),
	}
}

// Get loads a cached value into dest. It returns false on a miss, an expired
// entry, or a decode failure (the caller recalculates in all three cases).
func (c *Cache) Get(category, key string, dest interface{}) bool {
	var blob []byte
	var expiresAt int64

	err := c.db.QueryRow(
		`SELECT value, expires_at FROM calc_cache WHERE category = ? AND key = ?`,
		category, key,
	).Scan(&blob, &expiresAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			c.log.Warn().Err(err).Str("category", category).Msg("Cache read failed")
		}
		return false
	}

	if time.Now().Unix() >= expiresAt {
		return false
	}

	if err := msgpack.Unmarshal(blob, dest); err != nil {
		c.log.Warn().Err(err).Str("category", category).Msg("Failed to decode cached value, recalculating")
		return false
	}

	return true
}

// Set stores a value with a TTL, replacing any previous entry.
func (c *Cache) Set(category, key string, value interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	_, err = c.db.Exec(
		`INSERT INTO calc_cache (category, key, value, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(category, key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		category, key, blob, time.Now().Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Purge removes expired entries.
func (c *Cache) Purge() error {
	res, err := c.db.Exec(`DELETE FROM calc_cache WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to purge cache: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.log.Debug().Int64("removed", n).Msg("Purged expired cache entries")
	}

	return nil
}
