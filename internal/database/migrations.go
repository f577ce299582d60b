package database

import (
	"database/sql"
	"fmt"
)

// RunMigrations executes database migrations
func RunMigrations(db *sql.DB) error {
	migrations := []string{
		createPendingSubmissionsTable,
		createSyncLogTable,
		createCandidatesTable,
		createPartiesTable,
		createPollingStationsTable,
		createPollingBoothsTable,
		createIndices,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %v", i+1, err)
		}
	}

	return nil
}

// Database schema definitions
const createPendingSubmissionsTable = `
CREATE TABLE IF NOT EXISTS pending_submissions (
    local_id INTEGER PRIMARY KEY AUTOINCREMENT,
    payload TEXT NOT NULL,
    image_base64 TEXT,
    sync_state VARCHAR(20) NOT NULL DEFAULT 'pending',
    retry_count INTEGER NOT NULL DEFAULT 0,
    last_error TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    synced_at TIMESTAMP
);`

const createSyncLogTable = `
CREATE TABLE IF NOT EXISTS sync_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action VARCHAR(50) NOT NULL,
    details TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

const createCandidatesTable = `
CREATE TABLE IF NOT EXISTS candidates (
    id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    party_name VARCHAR(255),
    symbol VARCHAR(100),
    constituency_id VARCHAR(50) NOT NULL,
    is_pinned BOOLEAN DEFAULT FALSE,
    display_order INTEGER DEFAULT 0
);`

const createPartiesTable = `
CREATE TABLE IF NOT EXISTS parties (
    id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    name_short VARCHAR(50),
    symbol VARCHAR(100)
);`

const createPollingStationsTable = `
CREATE TABLE IF NOT EXISTS polling_stations (
    id VARCHAR(50) PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    ward_id VARCHAR(50) NOT NULL,
    ward_number INTEGER DEFAULT 0,
    local_level_name VARCHAR(255)
);`

const createPollingBoothsTable = `
CREATE TABLE IF NOT EXISTS polling_booths (
    id VARCHAR(50) PRIMARY KEY,
    booth_number VARCHAR(50) NOT NULL,
    total_registered_voters INTEGER DEFAULT 0,
    polling_station_id VARCHAR(50) NOT NULL,
    polling_station_name VARCHAR(255)
);`

const createIndices = `
CREATE INDEX IF NOT EXISTS idx_pending_submissions_state ON pending_submissions(sync_state, created_at);
CREATE INDEX IF NOT EXISTS idx_sync_log_action ON sync_log(action, created_at);
CREATE INDEX IF NOT EXISTS idx_candidates_constituency ON candidates(constituency_id);
CREATE INDEX IF NOT EXISTS idx_stations_ward ON polling_stations(ward_id);
CREATE INDEX IF NOT EXISTS idx_booths_station ON polling_booths(polling_station_id);
`
