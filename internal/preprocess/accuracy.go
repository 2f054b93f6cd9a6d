// Package preprocess holds the table-level cleaning stages that run before
// road names are mapped onto the network.
package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// AccuracyOptions configures FilterByAccuracy
type AccuracyOptions struct {
	// Threshold is the minimum accepted percentage for every hour, within [0,100]
	Threshold int
	// Strict turns a malformed percentage cell into a fatal FormatError
	// instead of dropping the accuracy row
	Strict bool
}

// AccuracyReport summarizes one accuracy filter pass
type AccuracyReport struct {
	AccuracyRows  int `json:"accuracy_rows"`
	AcceptedPairs int `json:"accepted_pairs"`
	MalformedRows int `json:"malformed_rows"`
	InputRows     int `json:"input_rows"`
	RetainedRows  int `json:"retained_rows"`
}

type sensorDay struct {
	date   string
	sensor string
}

// FilterByAccuracy keeps the flow records whose (date, sensor) pair has every
// hourly accuracy value at or above the threshold. Dates are compared on their
// calendar value so both feed spellings match.
func FilterByAccuracy(flow *models.FlowTable, accuracy []models.AccuracyRecord, opts AccuracyOptions, log logrus.FieldLogger) (*models.FlowTable, AccuracyReport, error) {
	report := AccuracyReport{AccuracyRows: len(accuracy), InputRows: flow.Len()}

	if opts.Threshold < 0 || opts.Threshold > 100 {
		return nil, report, fmt.Errorf("accuracy threshold must be within [0,100], got %d", opts.Threshold)
	}
	if len(accuracy) == 0 {
		return nil, report, &models.EmptyResultError{Stage: "accuracy", Detail: "accuracy dataset has no rows"}
	}

	accepted := make(map[sensorDay]struct{}, len(accuracy))
	for i := range accuracy {
		rec := &accuracy[i]
		ok, err := meetsThreshold(rec, opts.Threshold)
		if err != nil {
			if opts.Strict {
				return nil, report, err
			}
			report.MalformedRows++
			log.WithFields(logrus.Fields{"row": rec.Row + 1, "sensor": rec.SensorCode}).WithError(err).Warn("skipping accuracy row")
			continue
		}
		if ok {
			accepted[sensorDay{rec.DateKey(), rec.SensorCode}] = struct{}{}
		}
	}
	report.AcceptedPairs = len(accepted)

	out := &models.FlowTable{Records: make([]models.FlowRecord, 0, flow.Len())}
	if flow != nil {
		for _, rec := range flow.Records {
			if _, ok := accepted[sensorDay{rec.DateKey(), rec.SensorCode}]; ok {
				out.Records = append(out.Records, rec)
			}
		}
	}
	report.RetainedRows = out.Len()

	log.WithFields(logrus.Fields{
		"threshold":      opts.Threshold,
		"accepted_pairs": report.AcceptedPairs,
		"retained":       report.RetainedRows,
		"dropped":        report.InputRows - report.RetainedRows,
	}).Info("accuracy filter done")
	return out, report, nil
}

// meetsThreshold checks every percentage cell of rec. All cells are parsed so a
// malformed value is reported even when an earlier hour already failed.
func meetsThreshold(rec *models.AccuracyRecord, threshold int) (bool, error) {
	ok := true
	for i, value := range rec.Cells {
		pct, err := ParsePercent(value)
		if err != nil {
			field := "accuracy"
			if i < len(rec.Columns) {
				field = "accuracy " + rec.Columns[i]
			}
			return false, &models.FormatError{Field: field, Value: value, Row: rec.Row + 1, Reason: err.Error()}
		}
		if pct < threshold {
			ok = false
		}
	}
	return ok, nil
}

// ParsePercent parses an "<int>%" accuracy value
func ParsePercent(value string) (int, error) {
	value = strings.TrimSpace(value)
	digits, found := strings.CutSuffix(value, "%")
	if !found {
		return 0, fmt.Errorf("expected <int>%%")
	}
	if digits == "" || strings.ContainsAny(digits, "+- ") {
		return 0, fmt.Errorf("expected <int>%%")
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("expected <int>%%")
	}
	return n, nil
}
