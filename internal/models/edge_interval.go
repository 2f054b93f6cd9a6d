package models

// EdgeCount is the entered-vehicle count for one edge
type EdgeCount struct {
	EdgeID  string `json:"edge_id"`
	Entered int    `json:"entered"`
}

// EdgeInterval is a time window with one entered count per edge.
// Begin and End are offsets in seconds.
type EdgeInterval struct {
	Begin int         `json:"begin"`
	End   int         `json:"end"`
	Edges []EdgeCount `json:"edges"`
}

// Counts returns the interval as an edge id -> count map
func (iv *EdgeInterval) Counts() map[string]int {
	out := make(map[string]int, len(iv.Edges))
	for _, e := range iv.Edges {
		out[e.EdgeID] += e.Entered
	}
	return out
}

// Total returns the sum of all entered counts
func (iv *EdgeInterval) Total() int {
	total := 0
	for _, e := range iv.Edges {
		total += e.Entered
	}
	return total
}
