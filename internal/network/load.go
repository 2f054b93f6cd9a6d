package network

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

type xmlLocation struct {
	NetOffset     string `xml:"netOffset,attr"`
	ProjParameter string `xml:"projParameter,attr"`
}

type xmlLane struct {
	ID     string  `xml:"id,attr"`
	Index  int     `xml:"index,attr"`
	Length float64 `xml:"length,attr"`
	Shape  string  `xml:"shape,attr"`
}

type xmlEdge struct {
	ID       string    `xml:"id,attr"`
	Function string    `xml:"function,attr"`
	Name     string    `xml:"name,attr"`
	Type     string    `xml:"type,attr"`
	Shape    string    `xml:"shape,attr"`
	Lanes    []xmlLane `xml:"lane"`
}

// LoadFile reads a .net.xml network description
func LoadFile(path string) (*Network, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &models.MissingInputError{Path: path, WrappedErr: err}
		}
		return nil, fmt.Errorf("failed to open network %s: %w", path, err)
	}
	defer f.Close()

	n, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("network %s: %w", path, err)
	}
	return n, nil
}

// Load streams a network description, skipping internal (junction) edges
func Load(r io.Reader) (*Network, error) {
	dec := xml.NewDecoder(r)

	var loc Location
	var edges []*Edge

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse network: %w", err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "location":
			var xl xmlLocation
			if err := dec.DecodeElement(&xl, &start); err != nil {
				return nil, fmt.Errorf("failed to decode location: %w", err)
			}
			offset, err := parsePoint(xl.NetOffset)
			if err != nil && xl.NetOffset != "" {
				return nil, fmt.Errorf("invalid netOffset: %w", err)
			}
			loc = Location{NetOffset: offset, ProjParameter: xl.ProjParameter}

		case "edge":
			var xe xmlEdge
			if err := dec.DecodeElement(&xe, &start); err != nil {
				return nil, fmt.Errorf("failed to decode edge: %w", err)
			}
			if xe.Function == "internal" || strings.HasPrefix(xe.ID, ":") {
				continue
			}
			e, err := buildEdge(xe)
			if err != nil {
				return nil, err
			}
			edges = append(edges, e)
		}
	}

	return New(loc, edges)
}

func buildEdge(xe xmlEdge) (*Edge, error) {
	e := &Edge{ID: xe.ID, Name: xe.Name, Type: xe.Type}

	for _, xl := range xe.Lanes {
		shape, err := parseShape(xl.Shape)
		if err != nil {
			return nil, fmt.Errorf("lane %s: %w", xl.ID, err)
		}
		e.Lanes = append(e.Lanes, Lane{ID: xl.ID, Index: xl.Index, Length: xl.Length, Shape: shape})
	}

	if xe.Shape != "" {
		shape, err := parseShape(xe.Shape)
		if err != nil {
			return nil, fmt.Errorf("edge %s: %w", xe.ID, err)
		}
		e.Shape = shape
	} else {
		for _, l := range e.Lanes {
			if l.Index == 0 {
				e.Shape = l.Shape
				break
			}
		}
	}
	return e, nil
}

// parseShape parses "x1,y1 x2,y2 ..." (an optional z component is ignored)
func parseShape(value string) (orb.LineString, error) {
	fields := strings.Fields(value)
	shape := make(orb.LineString, 0, len(fields))
	for _, f := range fields {
		p, err := parsePoint(f)
		if err != nil {
			return nil, err
		}
		shape = append(shape, p)
	}
	return shape, nil
}

func parsePoint(value string) (orb.Point, error) {
	parts := strings.Split(value, ",")
	if len(parts) < 2 {
		return orb.Point{}, fmt.Errorf("invalid position %q", value)
	}
	x, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid position %q: %w", value, err)
	}
	y, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("invalid position %q: %w", value, err)
	}
	return orb.Point{x, y}, nil
}
