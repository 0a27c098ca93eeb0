package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// APIKey identifies a caller of the service.
type APIKey struct {
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	ID           string    `db:"id" json:"id"`
	Key          string    `db:"key" json:"key,omitempty"`
	Name         string    `db:"name" json:"name"`
	Revoked      bool      `db:"revoked" json:"revoked"`
	RequestCount int64     `db:"request_count" json:"request_count"`
}

func (db *DB) CreateKey(name string) (*APIKey, error) {
	k := &APIKey{
		ID:        uuid.New().String(),
		Key:       uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
	}

	query := `INSERT INTO api_keys (id, key, name, revoked, request_count, created_at)
		VALUES (:id, :key, :name, :revoked, :request_count, :created_at)`
	if _, err := db.NamedExec(query, k); err != nil {
		return nil, err
	}
	return k, nil
}

// GetByKey resolves a key string to its record. Returns nil when the key is
// unknown.
func (db *DB) GetByKey(key string) (*APIKey, error) {
	k := &APIKey{}
	err := db.Get(k, `SELECT id, key, name, revoked, request_count, created_at FROM api_keys WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return k, nil
}

func (db *DB) ListKeys() ([]*APIKey, error) {
	var keys []*APIKey
	err := db.Select(&keys, `SELECT id, name, revoked, request_count, created_at FROM api_keys ORDER BY created_at DESC`)
	return keys, err
}

func (db *DB) RevokeKey(id string) error {
	_, err := db.Exec(`UPDATE api_keys SET revoked = 1 WHERE id = ?`, id)
	return err
}

func (db *DB) DeleteKey(id string) error {
	_, err := db.Exec(`DELETE FROM api_keys WHERE id = ?`, id)
	return err
}

func (db *DB) IncrementKeyUsage(id string) error {
	_, err := db.Exec(`UPDATE api_keys SET request_count = request_count + 1 WHERE id = ?`, id)
	return err
}
