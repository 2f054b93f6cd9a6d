package dataset

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// RoadNameColumns names the road name table columns
type RoadNameColumns struct {
	RoadName string
	GeoPoint string
	EdgeID   string
}

// DefaultRoadNameColumns mirrors the flow dataset naming
func DefaultRoadNameColumns() RoadNameColumns {
	return RoadNameColumns{RoadName: "Nome via", GeoPoint: "geopoint", EdgeID: "edge_id"}
}

// ReadRoadNamesFile loads a road name table written by WriteRoadNamesFile
func ReadRoadNamesFile(path string, cols RoadNameColumns) ([]models.RoadNameEntry, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := ReadRoadNames(f, cols)
	if err != nil {
		return nil, fmt.Errorf("road names %s: %w", path, err)
	}
	return entries, nil
}

// ReadRoadNames parses a road name table. A missing edge id column is
// treated as all entries unresolved.
func ReadRoadNames(r io.Reader, cols RoadNameColumns) ([]models.RoadNameEntry, error) {
	raw, err := readTable(r)
	if err != nil {
		return nil, err
	}
	roadIdx, ok := raw.col(cols.RoadName)
	if !ok {
		return nil, &models.FormatError{Field: "header", Value: cols.RoadName, Reason: "missing road name column"}
	}
	geoIdx, ok := raw.col(cols.GeoPoint)
	if !ok {
		return nil, &models.FormatError{Field: "header", Value: cols.GeoPoint, Reason: "missing geopoint column"}
	}
	edgeIdx, ok := raw.col(cols.EdgeID)
	if !ok {
		edgeIdx = -1
	}
	rowIdx, ok := raw.col("source_row")
	if !ok {
		rowIdx = -1
	}

	entries := make([]models.RoadNameEntry, 0, len(raw.rows))
	for n, row := range raw.rows {
		e := models.RoadNameEntry{
			RoadName:  cell(row, roadIdx),
			GeoPoint:  cell(row, geoIdx),
			EdgeID:    cell(row, edgeIdx),
			SourceRow: n,
		}
		if v := cell(row, rowIdx); v != "" {
			if src, err := strconv.Atoi(v); err == nil {
				e.SourceRow = src
			}
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// WriteRoadNamesFile writes entries to path in file order
func WriteRoadNamesFile(path string, entries []models.RoadNameEntry, cols RoadNameColumns) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRoadNames(w, entries, cols)
	})
}

// WriteRoadNames writes entries to w
func WriteRoadNames(w io.Writer, entries []models.RoadNameEntry, cols RoadNameColumns) error {
	header := []string{cols.RoadName, cols.GeoPoint, cols.EdgeID, "source_row"}
	return writeRows(w, header, func(emit func([]string) error) error {
		for _, e := range entries {
			if err := emit([]string{e.RoadName, e.GeoPoint, e.EdgeID, strconv.Itoa(e.SourceRow)}); err != nil {
				return err
			}
		}
		return nil
	})
}
