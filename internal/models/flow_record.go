package models

import (
	"fmt"
	"strings"
	"time"
)

// HoursPerDay is the number of hourly count columns in a flow record
const HoursPerDay = 24

// Date layouts accepted in the open-data feeds
const (
	DateLayoutDMY = "02/01/2006" // flow dataset, e.g. 01/02/2024
	DateLayoutISO = "2006-01-02" // normalized form, sorts lexicographically
	DateLayoutMDY = "01/02/2006" // date range bounds
)

// FlowRecord is one sensor, one calendar date and its 24 hourly vehicle counts
type FlowRecord struct {
	// Row is the position of the record in the source file (0-based, header excluded)
	Row int `json:"row"`

	Date       time.Time `json:"date"`
	DateLayout string    `json:"-"` // layout used when writing Date back out

	SensorCode string `json:"sensor_code"` // codice_spira
	StationID  string `json:"station_id"`  // ID_univoco_stazione_spira

	Counts [HoursPerDay]int `json:"counts"`

	RoadName  string  `json:"road_name"`
	Direction string  `json:"direction"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	HasCoords bool    `json:"-"`
	GeoPoint  string  `json:"geopoint"` // "lat,lon"

	// EdgeID is set by the flow linker
	EdgeID string `json:"edge_id,omitempty"`
}

// DateKey returns the calendar date in year-month-day order
func (r *FlowRecord) DateKey() string {
	return r.Date.Format(DateLayoutISO)
}

// FormattedDate returns the date in the layout it is stored with
func (r *FlowRecord) FormattedDate() string {
	layout := r.DateLayout
	if layout == "" {
		layout = DateLayoutISO
	}
	return r.Date.Format(layout)
}

// RoadKey identifies the (road name, geopoint) pair of the record
func (r *FlowRecord) RoadKey() RoadKey {
	return RoadKey{RoadName: r.RoadName, GeoPoint: r.GeoPoint}
}

// HourColumn returns the header name of the hourly count column for hour h (0-23)
func HourColumn(h int) string {
	return fmt.Sprintf("%02d:00-%02d:00", h, h+1)
}

// HourColumns returns all 24 hourly column names in order
func HourColumns() []string {
	cols := make([]string, HoursPerDay)
	for h := 0; h < HoursPerDay; h++ {
		cols[h] = HourColumn(h)
	}
	return cols
}

// ParseDate parses a feed date written either as dd/mm/yyyy or yyyy-mm-dd.
// It returns the layout that matched so the value can be written back unchanged.
func ParseDate(value string) (time.Time, string, error) {
	value = strings.TrimSpace(value)
	for _, layout := range []string{DateLayoutISO, DateLayoutDMY} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", &FormatError{Field: "date", Value: value, Reason: "expected dd/mm/yyyy or yyyy-mm-dd"}
}

// FlowTable is an in-memory flow dataset handed from one stage to the next
type FlowTable struct {
	Records []FlowRecord
}

// Len returns the number of records
func (t *FlowTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// AccuracyRecord holds per-hour reliability cells for one sensor and date
type AccuracyRecord struct {
	Row        int
	Date       time.Time
	SensorCode string
	Columns    []string // names of the percentage columns, in file order
	Cells      []string // raw cell values such as "96%"
}

// DateKey returns the calendar date in year-month-day order
func (r *AccuracyRecord) DateKey() string {
	return r.Date.Format(DateLayoutISO)
}
