package repositories

import (
	"database/sql"

	"tally-agent/internal/database"
)

// CacheRepository holds the read-through reference data refreshed on login.
// All upserts replace wholesale by primary key; there is no deletion tracking.
type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

func (r *CacheRepository) UpsertCandidates(candidates []database.CachedCandidate) error {
	query := `
        INSERT OR REPLACE INTO candidates (id, name, party_name, symbol, constituency_id, is_pinned, display_order)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	return r.upsert(query, len(candidates), func(stmt *sql.Stmt, i int) error {
		c := candidates[i]
		_, err := stmt.Exec(c.ID, c.Name, c.PartyName, c.Symbol, c.ConstituencyID, c.IsPinned, c.DisplayOrder)
		return err
	})
}

func (r *CacheRepository) UpsertParties(parties []database.CachedParty) error {
	query := `
        INSERT OR REPLACE INTO parties (id, name, name_short, symbol)
        VALUES (?, ?, ?, ?)
    `
	return r.upsert(query, len(parties), func(stmt *sql.Stmt, i int) error {
		p := parties[i]
		_, err := stmt.Exec(p.ID, p.Name, p.NameShort, p.Symbol)
		return err
	})
}

func (r *CacheRepository) UpsertStations(stations []database.CachedPollingStation) error {
	query := `
        INSERT OR REPLACE INTO polling_stations (id, name, ward_id, ward_number, local_level_name)
        VALUES (?, ?, ?, ?, ?)
    `
	return r.upsert(query, len(stations), func(stmt *sql.Stmt, i int) error {
		s := stations[i]
		_, err := stmt.Exec(s.ID, s.Name, s.WardID, s.WardNumber, s.LocalLevelName)
		return err
	})
}

func (r *CacheRepository) UpsertBooths(booths []database.CachedPollingBooth) error {
	query := `
        INSERT OR REPLACE INTO polling_booths (id, booth_number, total_registered_voters, polling_station_id, polling_station_name)
        VALUES (?, ?, ?, ?, ?)
    `
	return r.upsert(query, len(booths), func(stmt *sql.Stmt, i int) error {
		b := booths[i]
		_, err := stmt.Exec(b.ID, b.BoothNumber, b.TotalRegisteredVoters, b.PollingStationID, b.PollingStationName)
		return err
	})
}

// upsert runs a prepared statement for each record inside one transaction.
func (r *CacheRepository) upsert(query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(query)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if err := exec(stmt, i); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (r *CacheRepository) CandidatesByConstituency(constituencyID string) ([]database.CachedCandidate, error) {
	query := `
        SELECT id, name, party_name, symbol, constituency_id, is_pinned, display_order
        FROM candidates
        WHERE constituency_id = ?
        ORDER BY display_order ASC
    `
	rows, err := r.db.Query(query, constituencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []database.CachedCandidate
	for rows.Next() {
		var c database.CachedCandidate
		if err := rows.Scan(&c.ID, &c.Name, &c.PartyName, &c.Symbol, &c.ConstituencyID, &c.IsPinned, &c.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CacheRepository) Parties() ([]database.CachedParty, error) {
	query := `
        SELECT id, name, name_short, symbol
        FROM parties
        ORDER BY name ASC
    `
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []database.CachedParty
	for rows.Next() {
		var p database.CachedParty
		if err := rows.Scan(&p.ID, &p.Name, &p.NameShort, &p.Symbol); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CacheRepository) StationsByWard(wardID string) ([]database.CachedPollingStation, error) {
	query := `
        SELECT id, name, ward_id, ward_number, local_level_name
        FROM polling_stations
        WHERE ward_id = ?
        ORDER BY name ASC
    `
	rows, err := r.db.Query(query, wardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []database.CachedPollingStation
	for rows.Next() {
		var s database.CachedPollingStation
		if err := rows.Scan(&s.ID, &s.Name, &s.WardID, &s.WardNumber, &s.LocalLevelName); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *CacheRepository) BoothsByStation(stationID string) ([]database.CachedPollingBooth, error) {
	query := `
        SELECT id, booth_number, total_registered_voters, polling_station_id, polling_station_name
        FROM polling_booths
        WHERE polling_station_id = ?
        ORDER BY booth_number ASC
    `
	rows, err := r.db.Query(query, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []database.CachedPollingBooth
	for rows.Next() {
		var b database.CachedPollingBooth
		if err := rows.Scan(&b.ID, &b.BoothNumber, &b.TotalRegisteredVoters, &b.PollingStationID, &b.PollingStationName); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
