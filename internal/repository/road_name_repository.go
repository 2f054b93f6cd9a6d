package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/sumo-flow-backend/internal/database"
	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// RoadNameRepository stores the authoritative road name to edge mapping
type RoadNameRepository struct {
	db *sql.DB
}

// NewRoadNameRepository creates a new road name repository
func NewRoadNameRepository(db *sql.DB) *RoadNameRepository {
	return &RoadNameRepository{db: db}
}

// Upsert writes entries keyed by (road name, geopoint) in one transaction.
// An existing resolved edge id is never replaced by an empty one.
func (r *RoadNameRepository) Upsert(entries []models.RoadNameEntry) error {
	now := time.Now().Unix()
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO road_names (road_name, geopoint, edge_id, source_row, distance_m, method, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(road_name, geopoint) DO UPDATE SET
				edge_id = CASE WHEN excluded.edge_id = '' THEN road_names.edge_id ELSE excluded.edge_id END,
				method = CASE WHEN excluded.edge_id = '' THEN road_names.method ELSE excluded.method END,
				distance_m = CASE WHEN excluded.edge_id = '' THEN road_names.distance_m ELSE excluded.distance_m END,
				source_row = excluded.source_row,
				updated_at = excluded.updated_at
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare road name upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			if _, err := stmt.Exec(e.RoadName, e.GeoPoint, e.EdgeID, e.SourceRow, e.Distance, e.Method, now); err != nil {
				return fmt.Errorf("failed to upsert road name %q: %w", e.RoadName, err)
			}
		}
		return nil
	})
}

// List returns entries in insertion order; unresolvedOnly keeps those without edge id
func (r *RoadNameRepository) List(unresolvedOnly bool, limit, offset int) ([]models.RoadNameEntry, error) {
	query := `
		SELECT id, road_name, geopoint, edge_id, source_row, distance_m, method, updated_at
		FROM road_names
	`
	if unresolvedOnly {
		query += " WHERE edge_id = ''"
	}
	query += " ORDER BY id LIMIT ? OFFSET ?"

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list road names: %w", err)
	}
	defer rows.Close()

	entries := []models.RoadNameEntry{}
	for rows.Next() {
		var e models.RoadNameEntry
		if err := rows.Scan(&e.ID, &e.RoadName, &e.GeoPoint, &e.EdgeID, &e.SourceRow, &e.Distance, &e.Method, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan road name: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Counts returns the total and unresolved number of entries
func (r *RoadNameRepository) Counts() (total, unresolved int, err error) {
	err = r.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN edge_id = '' THEN 1 ELSE 0 END), 0)
		FROM road_names
	`).Scan(&total, &unresolved)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count road names: %w", err)
	}
	return total, unresolved, nil
}
