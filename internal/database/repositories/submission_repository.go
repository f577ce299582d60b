package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"tally-agent/internal/database"
)

type SubmissionRepository struct {
	db *sql.DB
}

func NewSubmissionRepository(db *sql.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Enqueue durably persists a new submission in the pending state. The insert
// must complete before any network attempt is made; a failure here is fatal to
// the submit operation and is propagated to the caller.
func (r *SubmissionRepository) Enqueue(payload, imageBase64 string) (*database.PendingSubmission, error) {
	now := time.Now().UTC()

	query := `
        INSERT INTO pending_submissions (payload, image_base64, sync_state, retry_count, last_error, created_at)
        VALUES (?, ?, ?, 0, '', ?)
    `
	result, err := r.db.Exec(query, payload, imageBase64, database.SyncStatePending, now)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue submission: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read submission id: %w", err)
	}

	return &database.PendingSubmission{
		LocalID:     id,
		Payload:     payload,
		ImageBase64: imageBase64,
		SyncState:   database.SyncStatePending,
		CreatedAt:   now,
	}, nil
}

// ListPending returns all unsynced submissions in creation order.
func (r *SubmissionRepository) ListPending() ([]database.PendingSubmission, error) {
	query := `
        SELECT local_id, payload, image_base64, sync_state, retry_count, last_error, created_at, synced_at
        FROM pending_submissions
        WHERE sync_state = ?
        ORDER BY created_at ASC, local_id ASC
    `

	rows, err := r.db.Query(query, database.SyncStatePending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []database.PendingSubmission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}

	return subs, rows.Err()
}

// Get returns a single submission by its local id.
func (r *SubmissionRepository) Get(localID int64) (*database.PendingSubmission, error) {
	query := `
        SELECT local_id, payload, image_base64, sync_state, retry_count, last_error, created_at, synced_at
        FROM pending_submissions
        WHERE local_id = ?
    `
	return scanSubmission(r.db.QueryRow(query, localID))
}

// MarkSynced transitions a submission to the synced state and stamps synced_at.
// The state guard makes the call idempotent: a second call matches no rows and
// leaves the record untouched.
func (r *SubmissionRepository) MarkSynced(localID int64) error {
	query := `
        UPDATE pending_submissions
        SET sync_state = ?, synced_at = ?
        WHERE local_id = ? AND sync_state = ?
    `
	_, err := r.db.Exec(query, database.SyncStateSynced, time.Now().UTC(), localID, database.SyncStatePending)
	return err
}

// MarkFailed records a transmission failure. The submission stays pending and
// will be retried on the next sweep.
func (r *SubmissionRepository) MarkFailed(localID int64, errMsg string) error {
	query := `
        UPDATE pending_submissions
        SET retry_count = retry_count + 1, last_error = ?
        WHERE local_id = ? AND sync_state = ?
    `
	_, err := r.db.Exec(query, errMsg, localID, database.SyncStatePending)
	return err
}

// CountPending returns the number of unsynced submissions.
func (r *SubmissionRepository) CountPending() (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM pending_submissions WHERE sync_state = ?",
		database.SyncStatePending,
	).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSubmission(row rowScanner) (*database.PendingSubmission, error) {
	var sub database.PendingSubmission
	var image, lastError sql.NullString
	var syncedAt sql.NullTime

	err := row.Scan(&sub.LocalID, &sub.Payload, &image, &sub.SyncState,
		&sub.RetryCount, &lastError, &sub.CreatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}

	sub.ImageBase64 = image.String
	sub.LastError = lastError.String
	if syncedAt.Valid {
		t := syncedAt.Time
		sub.SyncedAt = &t
	}

	return &sub, nil
}
