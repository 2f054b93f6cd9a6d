// Package mapping resolves sensor road names to network edges and joins
// the flow table to the resolved edge ids.
package mapping

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/network"
	"github.com/jengzang/sumo-flow-backend/internal/spatial"
	"github.com/jengzang/sumo-flow-backend/internal/sumoxml"
)

// DefaultRadius is the search radius around a sensor, in network units
const DefaultRadius = 25.0

// EdgeLocator converts coordinates into network space and answers
// radius-bounded nearest-edge queries. *network.Network implements it.
type EdgeLocator interface {
	ConvertLonLat(lon, lat float64) (orb.Point, error)
	NearestEdges(p orb.Point, radius float64) []network.Candidate
}

// Options configures the mapper
type Options struct {
	Radius        float64
	ExcludedTypes []string

	LoopPos  float64
	LoopFreq int
	LoopFile string
}

// DefaultOptions returns the stock radius, exclusion set and loop settings
func DefaultOptions(excluded []string) Options {
	return Options{
		Radius:        DefaultRadius,
		ExcludedTypes: excluded,
		LoopPos:       sumoxml.DefaultLoopPos,
		LoopFreq:      sumoxml.DefaultLoopFreq,
		LoopFile:      sumoxml.DefaultLoopFile,
	}
}

// Unresolved is a pair the mapper could not place on the network
type Unresolved struct {
	Entry  models.RoadNameEntry `json:"entry"`
	Reason string               `json:"reason"`
}

// Result is the output of one mapping pass
type Result struct {
	Entries    []models.RoadNameEntry
	Detectors  []sumoxml.InductionLoop
	Unresolved []Unresolved
}

// Mapper assigns network edges to (road name, geopoint) pairs
type Mapper struct {
	locator  EdgeLocator
	opts     Options
	excluded map[string]struct{}
	log      logrus.FieldLogger
}

// NewMapper creates a mapper over locator
func NewMapper(locator EdgeLocator, opts Options, log logrus.FieldLogger) *Mapper {
	if opts.Radius <= 0 {
		opts.Radius = DefaultRadius
	}
	if opts.LoopFreq <= 0 {
		opts.LoopFreq = sumoxml.DefaultLoopFreq
	}
	if opts.LoopFile == "" {
		opts.LoopFile = sumoxml.DefaultLoopFile
	}
	excluded := make(map[string]struct{}, len(opts.ExcludedTypes))
	for _, t := range opts.ExcludedTypes {
		excluded[t] = struct{}{}
	}
	return &Mapper{
		locator:  locator,
		opts:     opts,
		excluded: excluded,
		log:      log.WithField("component", "mapper"),
	}
}

// Dedupe returns the distinct (road name, geopoint) pairs of t in
// first-appearance order, each carrying the row of its first occurrence
func Dedupe(t *models.FlowTable) []models.RoadNameEntry {
	if t == nil {
		return nil
	}
	seen := make(map[models.RoadKey]struct{})
	var out []models.RoadNameEntry
	for _, rec := range t.Records {
		key := rec.RoadKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, models.RoadNameEntry{RoadName: key.RoadName, GeoPoint: key.GeoPoint, SourceRow: rec.Row})
	}
	return out
}

// Map resolves every pair. A network without georeference is fatal; a
// single pair that cannot be placed is logged and reported as unresolved.
func (m *Mapper) Map(pairs []models.RoadNameEntry) (*Result, error) {
	res := &Result{}
	for _, pair := range pairs {
		entry, chosen, reason, err := m.resolve(pair)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			m.log.WithFields(logrus.Fields{
				"road":     pair.RoadName,
				"geopoint": pair.GeoPoint,
				"reason":   reason,
			}).Warn("road name not mapped")
			res.Unresolved = append(res.Unresolved, Unresolved{Entry: pair, Reason: reason})
			continue
		}
		res.Entries = append(res.Entries, entry)
		res.Detectors = append(res.Detectors, m.detector(entry, chosen))
	}

	m.log.WithFields(logrus.Fields{
		"pairs":      len(pairs),
		"resolved":   len(res.Entries),
		"unresolved": len(res.Unresolved),
	}).Info("road names mapped")
	return res, nil
}

func (m *Mapper) resolve(pair models.RoadNameEntry) (models.RoadNameEntry, *network.Edge, string, error) {
	p, err := spatial.ParseGeoPoint(pair.GeoPoint)
	if err != nil {
		return pair, nil, err.Error(), nil
	}
	xy, err := m.locator.ConvertLonLat(p.Lon, p.Lat)
	if err != nil {
		if errors.Is(err, network.ErrNoProjection) {
			return pair, nil, "", fmt.Errorf("cannot place sensors: %w", err)
		}
		return pair, nil, err.Error(), nil
	}

	candidates := m.locator.NearestEdges(xy, m.opts.Radius)
	if len(candidates) == 0 {
		return pair, nil, fmt.Sprintf("no edge within %gm", m.opts.Radius), nil
	}
	chosen, method, ok := Select(candidates, pair.RoadName, m.excluded)
	if !ok {
		return pair, nil, "only excluded road types nearby", nil
	}

	pair.EdgeID = chosen.Edge.ID
	pair.Distance = chosen.Distance
	pair.Method = method
	return pair, chosen.Edge, "", nil
}

// Select picks an edge from candidates sorted by distance: the first whose
// name equals roadName ignoring case, otherwise the first whose type is not
// excluded.
func Select(candidates []network.Candidate, roadName string, excluded map[string]struct{}) (network.Candidate, string, bool) {
	want := strings.ToLower(strings.TrimSpace(roadName))
	if want != "" {
		for _, c := range candidates {
			if strings.ToLower(c.Edge.Name) == want {
				return c, models.MatchMethodName, true
			}
		}
	}
	for _, c := range candidates {
		if _, skip := excluded[c.Edge.Type]; !skip {
			return c, models.MatchMethodType, true
		}
	}
	return network.Candidate{}, models.MatchMethodNone, false
}

// detector places a loop on lane 0 of the chosen edge
func (m *Mapper) detector(e models.RoadNameEntry, chosen *network.Edge) sumoxml.InductionLoop {
	return sumoxml.InductionLoop{
		ID:   strconv.Itoa(e.SourceRow) + "_0",
		Lane: chosen.FirstLaneID(),
		Pos:  m.opts.LoopPos,
		Freq: m.opts.LoopFreq,
		File: m.opts.LoopFile,
	}
}
