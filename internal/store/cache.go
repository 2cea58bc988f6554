package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotInCache signals an absent (or expired) cache key. It is
// control flow, not a failure: callers compute the value, CacheSet it,
// and carry on. A structural miss signal keeps legitimately cached
// empty values unambiguous.
var ErrNotInCache = errors.New("key not in cache")

// CacheGet unmarshals the cached JSON value for key into dest.
// Returns ErrNotInCache when the key is absent, or when a TTL is
// configured and the entry is older than it.
func (s *SQLiteStore) CacheGet(key string, dest any) error {
	var value string
	var lastUpdated time.Time
	err := s.db.QueryRow("SELECT value, last_updated FROM cache WHERE key = ?", key).Scan(&value, &lastUpdated)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotInCache
		}
		return fmt.Errorf("failed to query cache: %w", err)
	}

	if s.cacheTTL > 0 && time.Since(lastUpdated) > s.cacheTTL {
		return ErrNotInCache
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("failed to unmarshal cached value for %s: %w", key, err)
	}
	return nil
}

// CacheSet stores value under key, overwriting any existing entry.
func (s *SQLiteStore) CacheSet(key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for %s: %w", key, err)
	}

	_, err = s.db.Exec(
		"INSERT INTO cache (key, value, last_updated) VALUES (?, ?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value, last_updated = excluded.last_updated",
		key, string(encoded), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store cache entry for %s: %w", key, err)
	}
	return nil
}
