// Package sumoxml encodes the simulator input files written by the pipeline.
package sumoxml

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jengzang/sumo-flow-backend/internal/fsutil"
	"github.com/jengzang/sumo-flow-backend/internal/models"
)

type xmlEdgeData struct {
	XMLName   xml.Name      `xml:"data"`
	Intervals []xmlInterval `xml:"interval"`
}

type xmlInterval struct {
	Begin string        `xml:"begin,attr"`
	End   string        `xml:"end,attr"`
	Edges []xmlEdgeStat `xml:"edge"`
}

type xmlEdgeStat struct {
	ID      string `xml:"id,attr"`
	Entered string `xml:"entered,attr"`
}

// WriteEdgeData encodes intervals as an edge data document
func WriteEdgeData(w io.Writer, intervals ...models.EdgeInterval) error {
	doc := xmlEdgeData{Intervals: make([]xmlInterval, 0, len(intervals))}
	for _, iv := range intervals {
		xi := xmlInterval{
			Begin: strconv.Itoa(iv.Begin),
			End:   strconv.Itoa(iv.End),
			Edges: make([]xmlEdgeStat, 0, len(iv.Edges)),
		}
		for _, e := range iv.Edges {
			if e.EdgeID == "" {
				return fmt.Errorf("interval %d-%d: edge without id", iv.Begin, iv.End)
			}
			xi.Edges = append(xi.Edges, xmlEdgeStat{ID: e.EdgeID, Entered: strconv.Itoa(e.Entered)})
		}
		doc.Intervals = append(doc.Intervals, xi)
	}
	return encode(w, doc)
}

// WriteEdgeDataFile writes intervals to path, creating parent directories
func WriteEdgeDataFile(path string, intervals ...models.EdgeInterval) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteEdgeData(w, intervals...)
	})
}

// ReadEdgeData decodes an edge data document
func ReadEdgeData(r io.Reader) ([]models.EdgeInterval, error) {
	var doc xmlEdgeData
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode edge data: %w", err)
	}

	out := make([]models.EdgeInterval, 0, len(doc.Intervals))
	for _, xi := range doc.Intervals {
		begin, err := parseSeconds(xi.Begin)
		if err != nil {
			return nil, &models.FormatError{Field: "interval begin", Value: xi.Begin, Reason: err.Error()}
		}
		end, err := parseSeconds(xi.End)
		if err != nil {
			return nil, &models.FormatError{Field: "interval end", Value: xi.End, Reason: err.Error()}
		}
		iv := models.EdgeInterval{Begin: begin, End: end, Edges: make([]models.EdgeCount, 0, len(xi.Edges))}
		for _, xe := range xi.Edges {
			n, err := strconv.Atoi(xe.Entered)
			if err != nil {
				return nil, &models.FormatError{Field: "entered", Value: xe.Entered, Reason: "edge " + xe.ID}
			}
			iv.Edges = append(iv.Edges, models.EdgeCount{EdgeID: xe.ID, Entered: n})
		}
		out = append(out, iv)
	}
	return out, nil
}

// ReadEdgeDataFile decodes the edge data document at path
func ReadEdgeDataFile(path string) ([]models.EdgeInterval, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &models.MissingInputError{Path: path, WrappedErr: err}
		}
		return nil, err
	}
	defer f.Close()
	return ReadEdgeData(f)
}

// parseSeconds accepts "3600" as well as the "3600.00" spelling SUMO writes
func parseSeconds(value string) (int, error) {
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("expected seconds")
	}
	return int(f), nil
}

func encode(w io.Writer, doc any) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func writeFile(path string, write func(io.Writer) error) error {
	return fsutil.WriteAtomic(path, write)
}
