package mapping

import (
	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// BackfillReport counts the outcome of a backfill pass
type BackfillReport struct {
	Filled     int `json:"filled"`
	Unresolved int `json:"unresolved"`
}

// Backfill gives every entry lacking an edge id the first edge id, in slice
// order, of another entry with the same road name. Entries left without an id
// are counted, not removed. Running it again changes nothing.
func Backfill(entries []models.RoadNameEntry) BackfillReport {
	first := make(map[string]string)
	for _, e := range entries {
		if !e.Resolved() {
			continue
		}
		if _, ok := first[e.RoadName]; !ok {
			first[e.RoadName] = e.EdgeID
		}
	}

	var report BackfillReport
	for i := range entries {
		e := &entries[i]
		if e.Resolved() {
			continue
		}
		if id, ok := first[e.RoadName]; ok {
			e.EdgeID = id
			e.Method = models.MatchMethodBackfill
			e.Distance = 0
			report.Filled++
			continue
		}
		report.Unresolved++
	}
	return report
}

// UnresolvedError returns the pairs still lacking an edge id, or nil
func UnresolvedError(entries []models.RoadNameEntry) *models.UnresolvedMappingError {
	var keys []models.RoadKey
	for _, e := range entries {
		if !e.Resolved() {
			keys = append(keys, e.Key())
		}
	}
	if len(keys) == 0 {
		return nil
	}
	return &models.UnresolvedMappingError{Count: len(keys), Keys: keys}
}

// MergeUnresolved appends the mapper's unresolved pairs, with empty edge ids,
// after the resolved entries so a backfill pass can rescue them
func MergeUnresolved(res *Result) []models.RoadNameEntry {
	out := make([]models.RoadNameEntry, 0, len(res.Entries)+len(res.Unresolved))
	out = append(out, res.Entries...)
	for _, u := range res.Unresolved {
		e := u.Entry
		e.EdgeID = ""
		e.Method = models.MatchMethodNone
		out = append(out, e)
	}
	return out
}
