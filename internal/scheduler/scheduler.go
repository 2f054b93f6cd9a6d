package scheduler

import (
	"errors"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/service"
)

// RunStarter starts a pipeline run in the background
type RunStarter interface {
	StartRun(trigger string, params map[string]interface{}) (*models.PipelineRun, error)
}

// Scheduler periodically triggers pipeline runs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	runs      RunStarter
	interval  time.Duration
	log       logrus.FieldLogger
}

// New creates a new Scheduler.
func New(interval time.Duration, runs RunStarter, log logrus.FieldLogger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		runs:      runs,
		interval:  interval,
		log:       log.WithField("component", "scheduler"),
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
// The first run fires one interval after start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("no pipeline interval configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).WaitForSchedule().Do(s.Tick)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.log.WithField("interval", s.interval).Info("pipeline schedule started")
	return nil
}

// Tick starts one run, skipping it while another run is active
func (s *Scheduler) Tick() {
	run, err := s.runs.StartRun(models.RunTriggerScheduler, nil)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		s.log.Info("pipeline run still active; skipping tick")
	case err != nil:
		s.log.WithError(err).Error("failed to start scheduled run")
	default:
		s.log.WithField("run_id", run.ID).Info("scheduled pipeline run started")
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
