package store

import (
	"database/sql"
	"time"
)

// The cache table holds per-URL format listings so repeated format queries
// do not re-run the external tool.

func (db *DB) GetFormatCache(url string) ([]byte, error) {
	type cacheRow struct {
		ExpiresAt sql.NullTime `db:"expires_at"`
		Data      []byte       `db:"data"`
	}

	var row cacheRow
	err := db.Get(&row, "SELECT data, expires_at FROM cache WHERE key = ?", url)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if row.ExpiresAt.Valid && time.Now().After(row.ExpiresAt.Time) {
		_, _ = db.Exec("DELETE FROM cache WHERE key = ?", url)
		return nil, nil
	}

	return row.Data, nil
}

func (db *DB) SetFormatCache(url string, data []byte, ttl time.Duration) error {
	// A zero or negative ttl stores an already-expired entry.
	expiresAt := time.Now().Add(ttl)

	_, err := db.Exec(`
		INSERT INTO cache (key, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, url, data, expiresAt)
	return err
}
