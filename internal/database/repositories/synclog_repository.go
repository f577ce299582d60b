package repositories

import (
	"database/sql"

	"tally-agent/internal/database"
)

type SyncLogRepository struct {
	db *sql.DB
}

func NewSyncLogRepository(db *sql.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Append adds an audit entry. Callers treat this as fire-and-forget; a failed
// append is logged by the caller but never fails the primary operation.
func (r *SyncLogRepository) Append(action, details string) error {
	query := `
        INSERT INTO sync_log (action, details)
        VALUES (?, ?)
    `
	_, err := r.db.Exec(query, action, details)
	return err
}

// List returns the most recent audit entries, newest first.
func (r *SyncLogRepository) List(limit int) ([]database.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
        SELECT id, action, details, created_at
        FROM sync_log
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `
	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []database.SyncLogEntry
	for rows.Next() {
		var e database.SyncLogEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
