package dataset

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// ReadAccuracyFile loads the loop accuracy dataset from path
func ReadAccuracyFile(path, dateColumn, sensorColumn string, log logrus.FieldLogger) ([]models.AccuracyRecord, error) {
	f, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	recs, err := ReadAccuracy(f, dateColumn, sensorColumn, log)
	if err != nil {
		return nil, fmt.Errorf("accuracy dataset %s: %w", path, err)
	}
	return recs, nil
}

// ReadAccuracy parses the accuracy dataset. Every column other than the two
// key columns is a percentage column; cells are kept raw for the filter.
func ReadAccuracy(r io.Reader, dateColumn, sensorColumn string, log logrus.FieldLogger) ([]models.AccuracyRecord, error) {
	raw, err := readTable(r)
	if err != nil {
		return nil, err
	}

	dateIdx, ok := raw.col(dateColumn)
	if !ok {
		return nil, &models.FormatError{Field: "header", Value: dateColumn, Reason: "missing date column"}
	}
	sensorIdx, ok := raw.col(sensorColumn)
	if !ok {
		return nil, &models.FormatError{Field: "header", Value: sensorColumn, Reason: "missing sensor column"}
	}

	var valueIdx []int
	var columns []string
	for i, name := range raw.header {
		if i == dateIdx || i == sensorIdx {
			continue
		}
		valueIdx = append(valueIdx, i)
		columns = append(columns, name)
	}

	recs := make([]models.AccuracyRecord, 0, len(raw.rows))
	for n, row := range raw.rows {
		date, _, err := models.ParseDate(cell(row, dateIdx))
		if err != nil {
			log.WithField("row", n+1).WithError(err).Warn("skipping accuracy row")
			continue
		}
		rec := models.AccuracyRecord{
			Row:        n,
			Date:       date,
			SensorCode: cell(row, sensorIdx),
			Columns:    columns,
			Cells:      make([]string, len(valueIdx)),
		}
		for j, i := range valueIdx {
			rec.Cells[j] = cell(row, i)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
