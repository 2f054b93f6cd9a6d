package service

import (
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/dataset"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/pipeline"
)

// EdgeDataService renders edge data intervals from the last processed flow table
type EdgeDataService struct {
	cfg  *config.Config
	cols dataset.FlowColumns
	log  logrus.FieldLogger
}

// NewEdgeDataService creates a new edge data service
func NewEdgeDataService(cfg *config.Config, log logrus.FieldLogger) *EdgeDataService {
	cols := dataset.DefaultFlowColumns()
	cols.Date = cfg.Pipeline.DateColumn
	cols.SensorCode = cfg.Pipeline.SensorColumn
	return &EdgeDataService{
		cfg:  cfg,
		cols: cols,
		log:  log.WithField("component", "edgedata-service"),
	}
}

// Render aggregates the processed flow table for date and slot. Empty values
// fall back to the configured edge data date and slot.
func (s *EdgeDataService) Render(date, slot string) (models.EdgeInterval, error) {
	if date == "" {
		date = s.cfg.Pipeline.EdgeDataDate
	}
	if slot == "" {
		slot = s.cfg.Pipeline.EdgeDataSlot
	}

	t, err := dataset.ReadFlowFile(s.cfg.Paths.ProcessedFlow, s.cols, s.log)
	if err != nil {
		return models.EdgeInterval{}, err
	}
	return pipeline.Render(t, date, slot, s.cfg.Pipeline.EdgeDataDuration)
}
