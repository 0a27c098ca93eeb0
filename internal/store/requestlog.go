package store

import "time"

// RequestLogEntry records one completed HTTP request.
type RequestLogEntry struct {
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	KeyID      string    `db:"key_id" json:"key_id"`
	Method     string    `db:"method" json:"method"`
	Path       string    `db:"path" json:"path"`
	ID         int64     `db:"id" json:"id"`
	Status     int       `db:"status" json:"status"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
}

func (db *DB) InsertRequestLog(entry *RequestLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	query := `INSERT INTO request_log (key_id, method, path, status, duration_ms, created_at)
		VALUES (:key_id, :method, :path, :status, :duration_ms, :created_at)`
	_, err := db.NamedExec(query, entry)
	return err
}

func (db *DB) ListRequestLog(limit int) ([]*RequestLogEntry, error) {
	var entries []*RequestLogEntry
	err := db.Select(&entries, `SELECT id, key_id, method, path, status, duration_ms, created_at
		FROM request_log ORDER BY id DESC LIMIT ?`, limit)
	return entries, err
}

// PruneRequestLog drops entries older than the cutoff.
func (db *DB) PruneRequestLog(cutoff time.Time) error {
	_, err := db.Exec(`DELETE FROM request_log WHERE created_at < ?`, cutoff)
	return err
}
