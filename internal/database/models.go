package database

import "time"

// Sync states for a pending submission. A record is created PENDING and moves
// to SYNCED exactly once; there is no transition back.
const (
	SyncStatePending = "pending"
	SyncStateSynced  = "synced"
)

// Sync log action tags.
const (
	LogActionSubmit      = "submit"
	LogActionSyncSuccess = "sync_success"
	LogActionSyncFail    = "sync_fail"
)

// PendingSubmission is one queued vote tally report. The payload is an opaque
// serialized VoteSubmission and is never inspected or rewritten after enqueue.
type PendingSubmission struct {
	LocalID     int64      `db:"local_id" json:"local_id"`
	Payload     string     `db:"payload" json:"payload"`
	ImageBase64 string     `db:"image_base64" json:"image_base64,omitempty"`
	SyncState   string     `db:"sync_state" json:"sync_state"`
	RetryCount  int        `db:"retry_count" json:"retry_count"`
	LastError   string     `db:"last_error" json:"last_error,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	SyncedAt    *time.Time `db:"synced_at" json:"synced_at,omitempty"`
}

// SyncLogEntry is an append-only audit record of queue activity.
type SyncLogEntry struct {
	ID        int64     `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CachedCandidate is a read-only candidate entry refreshed on prefetch.
type CachedCandidate struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	PartyName      string `db:"party_name" json:"party_name"`
	Symbol         string `db:"symbol" json:"symbol,omitempty"`
	ConstituencyID string `db:"constituency_id" json:"constituency_id"`
	IsPinned       bool   `db:"is_pinned" json:"is_pinned"`
	DisplayOrder   int    `db:"display_order" json:"display_order"`
}

// CachedParty is a read-only party entry refreshed on prefetch.
type CachedParty struct {
	ID        string `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	NameShort string `db:"name_short" json:"name_short,omitempty"`
	Symbol    string `db:"symbol" json:"symbol,omitempty"`
}

// CachedPollingStation is a read-only polling station entry.
type CachedPollingStation struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	WardID         string `db:"ward_id" json:"ward_id"`
	WardNumber     int    `db:"ward_number" json:"ward_number"`
	LocalLevelName string `db:"local_level_name" json:"local_level_name"`
}

// CachedPollingBooth is a read-only polling booth entry.
type CachedPollingBooth struct {
	ID                    string `db:"id" json:"id"`
	BoothNumber           string `db:"booth_number" json:"booth_number"`
	TotalRegisteredVoters int    `db:"total_registered_voters" json:"total_registered_voters"`
	PollingStationID      string `db:"polling_station_id" json:"polling_station_id"`
	PollingStationName    string `db:"polling_station_name" json:"polling_station_name"`
}
