// Package network reads SUMO network descriptions and answers
// radius-bounded nearest-edge queries against them.
package network

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Lane is one lane of an edge
type Lane struct {
	ID     string
	Index  int
	Length float64
	Shape  orb.LineString
}

// Edge is a directed road segment of the network
type Edge struct {
	ID    string
	Name  string
	Type  string
	Shape orb.LineString
	Lanes []Lane
}

// FirstLaneID returns the id of lane 0, falling back to SUMO's "<edge>_0" naming
func (e *Edge) FirstLaneID() string {
	for _, l := range e.Lanes {
		if l.Index == 0 {
			return l.ID
		}
	}
	return e.ID + "_0"
}

// Candidate is an edge found near a query point
type Candidate struct {
	Edge     *Edge
	Distance float64
}

// Location is the georeference of the network
type Location struct {
	NetOffset     orb.Point
	ProjParameter string
	projection    Projection
}

// Network is a loaded network description
type Network struct {
	Location Location
	Edges    []*Edge

	index *Index
}

// New builds a network from edges; used by the loader and by tests
func New(loc Location, edges []*Edge) (*Network, error) {
	proj, err := ParseProjection(loc.ProjParameter)
	if err != nil {
		return nil, err
	}
	loc.projection = proj

	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.ID]; dup {
			return nil, fmt.Errorf("duplicate edge id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return &Network{Location: loc, Edges: edges, index: NewIndex(edges)}, nil
}

// ConvertLonLat converts a WGS84 coordinate to network XY
func (n *Network) ConvertLonLat(lon, lat float64) (orb.Point, error) {
	if n.Location.projection == nil {
		return orb.Point{}, ErrNoProjection
	}
	x, y, err := n.Location.projection.Forward(lon, lat)
	if err != nil {
		return orb.Point{}, err
	}
	return orb.Point{x + n.Location.NetOffset[0], y + n.Location.NetOffset[1]}, nil
}

// NearestEdges returns edges within radius of p, ascending by distance
func (n *Network) NearestEdges(p orb.Point, radius float64) []Candidate {
	return n.index.Within(p, radius)
}
