package models

// RoadKey is a distinct (road name, geopoint) pair
type RoadKey struct {
	RoadName string `json:"road_name"`
	GeoPoint string `json:"geopoint"`
}

// RoadNameEntry maps a (road name, geopoint) pair to a network edge
type RoadNameEntry struct {
	ID int64 `json:"id,omitempty" db:"id"`

	RoadName string `json:"road_name" db:"road_name"`
	GeoPoint string `json:"geopoint" db:"geopoint"`

	// EdgeID is empty while the pair is unresolved
	EdgeID string `json:"edge_id" db:"edge_id"`

	// SourceRow is the flow-table row where the pair first appeared
	SourceRow int `json:"source_row" db:"source_row"`

	// Distance to the selected edge in network units (meters), 0 when backfilled
	Distance float64 `json:"distance" db:"distance_m"`

	// Method records how the edge was chosen
	Method string `json:"method" db:"method"`

	UpdatedAt int64 `json:"updated_at,omitempty" db:"updated_at"` // Unix timestamp
}

// Key returns the (road name, geopoint) pair of the entry
func (e *RoadNameEntry) Key() RoadKey {
	return RoadKey{RoadName: e.RoadName, GeoPoint: e.GeoPoint}
}

// Resolved reports whether the entry carries an edge identifier
func (e *RoadNameEntry) Resolved() bool {
	return e.EdgeID != ""
}

// Match method constants
const (
	MatchMethodName     = "name"     // exact (case-insensitive) road name match
	MatchMethodType     = "type"     // first edge of an accepted road type
	MatchMethodBackfill = "backfill" // copied from a same-named entry
	MatchMethodNone     = ""
)
