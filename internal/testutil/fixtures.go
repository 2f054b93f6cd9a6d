// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// Logger returns a logger that discards output
func Logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// FlowRow describes one row of a test flow dataset
type FlowRow struct {
	Date      string
	Sensor    string
	Counts    [models.HoursPerDay]int
	RoadName  string
	Direction string
	GeoPoint  string
	Station   string
}

// Hours builds a count array where hour h carries value base+h
func Hours(base int) [models.HoursPerDay]int {
	var c [models.HoursPerDay]int
	for h := range c {
		c[h] = base + h
	}
	return c
}

// FlowCSV renders rows as a ';'-delimited flow dataset with the default columns
func FlowCSV(rows ...FlowRow) string {
	var b strings.Builder
	header := []string{"data", "codice_spira"}
	header = append(header, models.HourColumns()...)
	header = append(header, "Nome via", "direzione", "longitudine", "latitudine", "geopoint", "ID_univoco_stazione_spira")
	b.WriteString(strings.Join(header, ";"))
	b.WriteString("\n")

	for _, r := range rows {
		cells := []string{r.Date, r.Sensor}
		for _, c := range r.Counts {
			cells = append(cells, strconv.Itoa(c))
		}
		lat, lon := "", ""
		if parts := strings.Split(r.GeoPoint, ","); len(parts) == 2 {
			lat, lon = parts[0], parts[1]
		}
		cells = append(cells, r.RoadName, r.Direction, lon, lat, r.GeoPoint, r.Station)
		b.WriteString(strings.Join(cells, ";"))
		b.WriteString("\n")
	}
	return b.String()
}

// AccuracyCSV renders an accuracy dataset; every hour of a row carries the same value
func AccuracyCSV(rows ...[3]string) string {
	var b strings.Builder
	header := []string{"data", "codice_spira"}
	header = append(header, models.HourColumns()...)
	b.WriteString(strings.Join(header, ";"))
	b.WriteString("\n")
	for _, r := range rows {
		cells := []string{r[0], r[1]}
		for h := 0; h < models.HoursPerDay; h++ {
			cells = append(cells, r[2])
		}
		b.WriteString(strings.Join(cells, ";"))
		b.WriteString("\n")
	}
	return b.String()
}

// WriteFile writes content under dir and returns the full path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
