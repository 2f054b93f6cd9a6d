package mapping

import (
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
)

// LinkReport counts the outcome of a link pass
type LinkReport struct {
	InputRows  int `json:"input_rows"`
	LinkedRows int `json:"linked_rows"`
	Dropped    int `json:"dropped"`
}

// Link annotates each flow record with the edge id of the first resolved
// entry matching its exact (road name, geopoint). Records without a resolved
// match are dropped; an empty result is an EmptyResultError.
func Link(t *models.FlowTable, entries []models.RoadNameEntry, log logrus.FieldLogger) (*models.FlowTable, LinkReport, error) {
	lookup := make(map[models.RoadKey]string, len(entries))
	for _, e := range entries {
		if !e.Resolved() {
			continue
		}
		if _, ok := lookup[e.Key()]; !ok {
			lookup[e.Key()] = e.EdgeID
		}
	}

	report := LinkReport{InputRows: t.Len()}
	out := &models.FlowTable{Records: make([]models.FlowRecord, 0, t.Len())}
	if t != nil {
		for _, rec := range t.Records {
			edge, ok := lookup[rec.RoadKey()]
			if !ok {
				report.Dropped++
				continue
			}
			rec.EdgeID = edge
			out.Records = append(out.Records, rec)
		}
	}
	report.LinkedRows = out.Len()

	log.WithFields(logrus.Fields{
		"component": "linker",
		"linked":    report.LinkedRows,
		"dropped":   report.Dropped,
	}).Info("flow linked to edges")

	if out.Len() == 0 {
		return nil, report, &models.EmptyResultError{Stage: "link", Detail: "no flow record matched a resolved road name"}
	}
	return out, report, nil
}
