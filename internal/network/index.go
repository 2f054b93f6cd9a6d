package network

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/quadtree"
)

// indexed places an edge in the quadtree at the center of its bound
type indexed struct {
	center orb.Point
	edge   *Edge
}

func (i indexed) Point() orb.Point { return i.center }

// Index answers radius queries over edge shapes
type Index struct {
	tree *quadtree.Quadtree
	// reach is the largest center-to-corner distance of any edge bound
	reach float64
	size  int
}

// NewIndex indexes edges that carry a shape
func NewIndex(edges []*Edge) *Index {
	idx := &Index{}

	var bound orb.Bound
	first := true
	for _, e := range edges {
		if len(e.Shape) == 0 {
			continue
		}
		if first {
			bound = e.Shape.Bound()
			first = false
		} else {
			bound = bound.Union(e.Shape.Bound())
		}
	}
	if first {
		return idx
	}

	idx.tree = quadtree.New(bound.Pad(1))
	for _, e := range edges {
		if len(e.Shape) == 0 {
			continue
		}
		b := e.Shape.Bound()
		c := b.Center()
		if r := planar.Distance(c, b.Max); r > idx.reach {
			idx.reach = r
		}
		if err := idx.tree.Add(indexed{center: c, edge: e}); err == nil {
			idx.size++
		}
	}
	return idx
}

// Len returns the number of indexed edges
func (idx *Index) Len() int {
	return idx.size
}

// Within returns edges whose shape lies within radius of p, nearest first.
// Ties keep edge id order so results are deterministic.
func (idx *Index) Within(p orb.Point, radius float64) []Candidate {
	if idx.tree == nil || radius < 0 {
		return nil
	}

	search := orb.Bound{Min: p, Max: p}.Pad(radius + idx.reach)
	var out []Candidate
	for _, hit := range idx.tree.InBound(nil, search) {
		e := hit.(indexed).edge
		d := shapeDistance(e.Shape, p)
		if d <= radius {
			out = append(out, Candidate{Edge: e, Distance: d})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		return out[i].Edge.ID < out[j].Edge.ID
	})
	return out
}

func shapeDistance(shape orb.LineString, p orb.Point) float64 {
	switch len(shape) {
	case 0:
		return math.Inf(1)
	case 1:
		return planar.Distance(shape[0], p)
	default:
		return planar.DistanceFrom(shape, p)
	}
}
