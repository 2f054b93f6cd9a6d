package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/pipeline"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
)

// ErrRunInProgress is returned when a run is requested while another is active
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Runner executes one pipeline run; *pipeline.Engine satisfies it
type Runner interface {
	Run(ctx context.Context, progress pipeline.ProgressFunc) (*pipeline.Result, error)
}

// RunnerFactory builds the runner for one run from its effective config
type RunnerFactory func(cfg *config.Config) Runner

// EngineFactory builds a pipeline engine per run
func EngineFactory(log logrus.FieldLogger, opts ...pipeline.Option) RunnerFactory {
	return func(cfg *config.Config) Runner {
		return pipeline.NewEngine(cfg, log, opts...)
	}
}

// metadataKeys are recorded with a run but never change its config
var metadataKeys = map[string]bool{
	"requested_by": true,
	"args":         true,
}

// Guard admits at most one run at a time
type Guard interface {
	TryAcquire() bool
	Release()
	Busy() bool
}

// PipelineService handles pipeline run business logic
type PipelineService struct {
	cfg       *config.Config
	runs      *repository.PipelineRunRepository
	roads     *repository.RoadNameRepository
	newRunner RunnerFactory
	guard     Guard
	log       logrus.FieldLogger

	// ctx is canceled on shutdown; background runs derive from it
	ctx context.Context
	wg  sync.WaitGroup
}

// NewPipelineService creates a new pipeline service. Every run gets a copy of
// cfg with its parameters applied, handed to newRunner.
func NewPipelineService(ctx context.Context, cfg *config.Config, runs *repository.PipelineRunRepository,
	roads *repository.RoadNameRepository, newRunner RunnerFactory, guard Guard, log logrus.FieldLogger) *PipelineService {
	return &PipelineService{
		cfg:       cfg,
		runs:      runs,
		roads:     roads,
		newRunner: newRunner,
		guard:     guard,
		log:       log.WithField("component", "pipeline-service"),
		ctx:       ctx,
	}
}

// StartRun creates a run record and executes the pipeline in the background
func (s *PipelineService) StartRun(trigger string, params map[string]interface{}) (*models.PipelineRun, error) {
	runner, err := s.runnerFor(params)
	if err != nil {
		return nil, err
	}
	if !s.guard.TryAcquire() {
		return nil, ErrRunInProgress
	}

	run, err := s.createRun(trigger, params)
	if err != nil {
		s.guard.Release()
		return nil, err
	}

	// the worker owns run from here; callers get a snapshot
	snapshot := *run
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.guard.Release()
		s.execute(s.ctx, run, runner)
	}()

	return &snapshot, nil
}

// RunSync executes the pipeline in the caller's goroutine and returns the
// stored run together with the engine result
func (s *PipelineService) RunSync(ctx context.Context, trigger string, params map[string]interface{}) (*models.PipelineRun, *pipeline.Result, error) {
	runner, err := s.runnerFor(params)
	if err != nil {
		return nil, nil, err
	}
	if !s.guard.TryAcquire() {
		return nil, nil, ErrRunInProgress
	}
	defer s.guard.Release()

	run, err := s.createRun(trigger, params)
	if err != nil {
		return nil, nil, err
	}
	res, err := s.execute(ctx, run, runner)
	return run, res, err
}

// Busy reports whether a run is active
func (s *PipelineService) Busy() bool {
	return s.guard.Busy()
}

// Wait blocks until background runs have finished
func (s *PipelineService) Wait() {
	s.wg.Wait()
}

// GetRun retrieves a run by ID
func (s *PipelineService) GetRun(id int64) (*models.PipelineRun, error) {
	return s.runs.GetByID(id)
}

// ListRuns lists runs newest first
func (s *PipelineService) ListRuns(status string, limit, offset int) ([]*models.PipelineRun, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.runs.List(status, limit, offset)
}

// runnerFor validates params against a copy of the base config
func (s *PipelineService) runnerFor(params map[string]interface{}) (Runner, error) {
	overrides := make(map[string]interface{}, len(params))
	for k, v := range params {
		if !metadataKeys[k] {
			overrides[k] = v
		}
	}
	cfg, err := s.cfg.WithOverrides(overrides)
	if err != nil {
		return nil, err
	}
	return s.newRunner(cfg), nil
}

func (s *PipelineService) createRun(trigger string, params map[string]interface{}) (*models.PipelineRun, error) {
	run := &models.PipelineRun{
		Trigger: trigger,
		Status:  models.RunStatusPending,
	}
	if params != nil {
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize params: %w", err)
		}
		run.ParamsJSON = string(b)
	}
	if err := s.runs.Create(run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// execute drives one run to completion and persists its outcome
func (s *PipelineService) execute(ctx context.Context, run *models.PipelineRun, runner Runner) (*pipeline.Result, error) {
	log := s.log.WithFields(logrus.Fields{"run_id": run.ID, "trigger": run.Trigger})
	log.Info("pipeline run started")
	start := time.Now()

	if err := s.runs.MarkRunning(run.ID); err != nil {
		log.WithError(err).Error("failed to mark run running")
	}
	run.Status = models.RunStatusRunning

	progress := func(stage string, percent int) {
		run.CurrentStage, run.ProgressPercent = stage, percent
		if err := s.runs.UpdateProgress(run.ID, stage, percent); err != nil {
			log.WithError(err).Warn("failed to record progress")
		}
	}

	res, err := runner.Run(ctx, progress)
	if err != nil {
		log.WithError(err).Error("pipeline run failed")
		run.Status, run.ErrorMessage = models.RunStatusFailed, err.Error()
		if markErr := s.runs.MarkFailed(run.ID, err.Error()); markErr != nil {
			log.WithError(markErr).Error("failed to mark run failed")
		}
		return nil, err
	}

	if err := s.roads.Upsert(res.Entries); err != nil {
		log.WithError(err).Warn("failed to store road names")
	}

	rep := res.Report
	run.InputRows = rep.InputRows
	run.AccurateRows = rep.Accuracy.RetainedRows
	run.LinkedRows = rep.Link.LinkedRows
	run.RoadNames = rep.RoadNames
	run.UnresolvedRoad = len(rep.Unresolved)
	if summary, err := json.Marshal(rep); err == nil {
		run.ResultSummary = string(summary)
	} else {
		log.WithError(err).Warn("failed to serialize run summary")
	}
	if err := s.runs.MarkCompleted(run); err != nil {
		log.WithError(err).Error("failed to mark run completed")
		return res, err
	}

	log.WithFields(logrus.Fields{
		"linked_rows": run.LinkedRows,
		"unresolved":  run.UnresolvedRoad,
		"elapsed":     time.Since(start).Round(time.Millisecond),
	}).Info("pipeline run completed")
	return res, nil
}
