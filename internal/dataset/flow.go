package dataset

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// FlowColumns names the flow dataset columns
type FlowColumns struct {
	Date       string
	SensorCode string
	StationID  string
	RoadName   string
	Direction  string
	Longitude  string
	Latitude   string
	GeoPoint   string
	EdgeID     string
}

// DefaultFlowColumns returns the column names of the Bologna open-data feed
func DefaultFlowColumns() FlowColumns {
	return FlowColumns{
		Date:       "data",
		SensorCode: "codice_spira",
		StationID:  "ID_univoco_stazione_spira",
		RoadName:   "Nome via",
		Direction:  "direzione",
		Longitude:  "longitudine",
		Latitude:   "latitudine",
		GeoPoint:   "geopoint",
		EdgeID:     "edge_id",
	}
}

// ReadFlowFile loads a flow dataset from path
func ReadFlowFile(path string, cols FlowColumns, log logrus.FieldLogger) (*models.FlowTable, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	t, err := ReadFlow(f, cols, log)
	if err != nil {
		return nil, fmt.Errorf("flow dataset %s: %w", path, err)
	}
	return t, nil
}

// ReadFlow parses a flow dataset. Rows with an unparseable date or count are
// logged and skipped; a header lacking a required column is fatal.
func ReadFlow(r io.Reader, cols FlowColumns, log logrus.FieldLogger) (*models.FlowTable, error) {
	raw, err := readTable(r)
	if err != nil {
		return nil, err
	}

	required := map[string]string{
		"date":      cols.Date,
		"sensor":    cols.SensorCode,
		"road name": cols.RoadName,
		"geopoint":  cols.GeoPoint,
	}
	for label, name := range required {
		if _, ok := raw.col(name); !ok {
			return nil, &models.FormatError{Field: "header", Value: name, Reason: "missing " + label + " column"}
		}
	}

	hourIdx := make([]int, models.HoursPerDay)
	for h, name := range models.HourColumns() {
		i, ok := raw.col(name)
		if !ok {
			return nil, &models.FormatError{Field: "header", Value: name, Reason: "missing hourly count column"}
		}
		hourIdx[h] = i
	}

	optional := func(name string) int {
		if i, ok := raw.col(name); ok {
			return i
		}
		return -1
	}
	dateIdx, _ := raw.col(cols.Date)
	sensorIdx, _ := raw.col(cols.SensorCode)
	roadIdx, _ := raw.col(cols.RoadName)
	geoIdx, _ := raw.col(cols.GeoPoint)
	stationIdx := optional(cols.StationID)
	dirIdx := optional(cols.Direction)
	lonIdx := optional(cols.Longitude)
	latIdx := optional(cols.Latitude)
	edgeIdx := optional(cols.EdgeID)

	table := &models.FlowTable{Records: make([]models.FlowRecord, 0, len(raw.rows))}
	skipped := 0

	for n, row := range raw.rows {
		date, layout, err := models.ParseDate(cell(row, dateIdx))
		if err != nil {
			skipped++
			log.WithField("row", n+1).WithError(err).Warn("skipping flow row")
			continue
		}

		rec := models.FlowRecord{
			Row:        n,
			Date:       date,
			DateLayout: layout,
			SensorCode: cell(row, sensorIdx),
			StationID:  cell(row, stationIdx),
			RoadName:   cell(row, roadIdx),
			Direction:  cell(row, dirIdx),
			GeoPoint:   cell(row, geoIdx),
			EdgeID:     cell(row, edgeIdx),
		}

		bad := false
		for h, i := range hourIdx {
			count, err := parseCount(cell(row, i))
			if err != nil {
				bad = true
				log.WithFields(logrus.Fields{"row": n + 1, "column": models.HourColumn(h)}).WithError(err).Warn("skipping flow row")
				break
			}
			rec.Counts[h] = count
		}
		if bad {
			skipped++
			continue
		}

		lon, lonErr := parseDecimal(cell(row, lonIdx))
		lat, latErr := parseDecimal(cell(row, latIdx))
		if lonErr == nil && latErr == nil {
			rec.Longitude, rec.Latitude, rec.HasCoords = lon, lat, true
		}

		table.Records = append(table.Records, rec)
	}

	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("flow dataset contained malformed rows")
	}
	return table, nil
}

// WriteFlowFile writes records with the canonical column set. The edge id
// column is emitted when withEdge is true.
func WriteFlowFile(path string, t *models.FlowTable, cols FlowColumns, withEdge bool) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteFlow(w, t, cols, withEdge)
	})
}

// WriteFlow writes records to w
func WriteFlow(w io.Writer, t *models.FlowTable, cols FlowColumns, withEdge bool) error {
	header := []string{cols.Date, cols.SensorCode}
	header = append(header, models.HourColumns()...)
	header = append(header, cols.RoadName, cols.Direction, cols.Longitude, cols.Latitude, cols.GeoPoint, cols.StationID)
	if withEdge {
		header = append(header, cols.EdgeID)
	}

	return writeRows(w, header, func(emit func([]string) error) error {
		for i := range t.Records {
			rec := &t.Records[i]
			row := make([]string, 0, len(header))
			row = append(row, rec.FormattedDate(), rec.SensorCode)
			for _, c := range rec.Counts {
				row = append(row, strconv.Itoa(c))
			}
			lon, lat := "", ""
			if rec.HasCoords {
				lon = strconv.FormatFloat(rec.Longitude, 'f', -1, 64)
				lat = strconv.FormatFloat(rec.Latitude, 'f', -1, 64)
			}
			row = append(row, rec.RoadName, rec.Direction, lon, lat, rec.GeoPoint, rec.StationID)
			if withEdge {
				row = append(row, rec.EdgeID)
			}
			if err := emit(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// parseCount parses a non-negative vehicle count. Integral floats such as
// "12.0" are accepted since spreadsheet exports write them.
func parseCount(value string) (int, error) {
	if value == "" {
		return 0, fmt.Errorf("empty count")
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative count %d", n)
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || f != math.Trunc(f) {
		return 0, fmt.Errorf("invalid count %q", value)
	}
	return int(f), nil
}

// parseDecimal accepts both "11.34" and the Italian "11,34"
func parseDecimal(value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64)
}
