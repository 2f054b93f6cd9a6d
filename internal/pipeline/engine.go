// Package pipeline chains the preprocessing stages: accuracy filter,
// normalizer, road-to-network mapper, backfill, linker and aggregator,
// optionally followed by scenario planning.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/aggregate"
	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/dataset"
	"github.com/jengzang/sumo-flow-backend/internal/mapping"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/network"
	"github.com/jengzang/sumo-flow-backend/internal/preprocess"
	"github.com/jengzang/sumo-flow-backend/internal/scenario"
	"github.com/jengzang/sumo-flow-backend/internal/stats"
	"github.com/jengzang/sumo-flow-backend/internal/sumoxml"
)

// Stage names, in execution order
const (
	StageLoad      = "load"
	StageAccuracy  = "accuracy"
	StageNormalize = "normalize"
	StageMap       = "map"
	StageBackfill  = "backfill"
	StageLink      = "link"
	StageAggregate = "aggregate"
	StageScenario  = "scenario"
)

var stageProgress = map[string]int{
	StageLoad:      0,
	StageAccuracy:  10,
	StageNormalize: 25,
	StageMap:       35,
	StageBackfill:  60,
	StageLink:      65,
	StageAggregate: 75,
	StageScenario:  90,
}

// ProgressFunc is told when a stage starts
type ProgressFunc func(stage string, percent int)

// NetworkLoader opens the network used to place sensors
type NetworkLoader func(path string) (mapping.EdgeLocator, error)

// Report summarizes a run; it is persisted as the run's result summary
type Report struct {
	InputRows   int                        `json:"input_rows"`
	Accuracy    preprocess.AccuracyReport  `json:"accuracy"`
	Normalize   preprocess.NormalizeReport `json:"normalize"`
	RoadNames   int                        `json:"road_names"`
	Mapped      int                        `json:"mapped"`
	MatchDist   stats.Summary              `json:"match_distance_m"`
	Detectors   int                        `json:"detectors"`
	Backfill    mapping.BackfillReport     `json:"backfill"`
	Unresolved  []models.RoadKey           `json:"unresolved,omitempty"`
	Link        mapping.LinkReport         `json:"link"`
	EdgeCount   int                        `json:"edge_count"`
	EdgeTotal   int                        `json:"edge_total"`
	EdgeFlow    stats.Summary              `json:"edge_flow"`
	DailyFiles  int                        `json:"daily_files"`
	HourlyFiles int                        `json:"hourly_files"`
	Scenarios   []scenario.Scenario        `json:"scenarios,omitempty"`
}

// Result is the output of a successful run
type Result struct {
	Report  Report
	Linked  *models.FlowTable
	Entries []models.RoadNameEntry
	// Unresolved is informational; a run with unresolved entries still succeeds
	Unresolved *models.UnresolvedMappingError
}

// Engine runs the pipeline with one configuration
type Engine struct {
	cfg      *config.Config
	log      logrus.FieldLogger
	loadNet  NetworkLoader
	runner   scenario.CommandRunner
	flowCols dataset.FlowColumns
	roadCols dataset.RoadNameColumns
}

// Option customizes an Engine
type Option func(*Engine)

// WithNetworkLoader replaces the .net.xml loader
func WithNetworkLoader(fn NetworkLoader) Option {
	return func(e *Engine) { e.loadNet = fn }
}

// WithCommandRunner replaces the subprocess runner used for scenarios
func WithCommandRunner(r scenario.CommandRunner) Option {
	return func(e *Engine) { e.runner = r }
}

// NewEngine creates an engine
func NewEngine(cfg *config.Config, log logrus.FieldLogger, opts ...Option) *Engine {
	e := &Engine{
		cfg: cfg,
		log: log.WithField("component", "pipeline"),
		loadNet: func(path string) (mapping.EdgeLocator, error) {
			return network.LoadFile(path)
		},
		runner:   scenario.ExecRunner{},
		flowCols: dataset.DefaultFlowColumns(),
		roadCols: dataset.DefaultRoadNameColumns(),
	}
	e.flowCols.Date = cfg.Pipeline.DateColumn
	e.flowCols.SensorCode = cfg.Pipeline.SensorColumn
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes every stage in order. Stage failures abort the run; per-record
// anomalies are logged by the stages and counted in the report.
func (e *Engine) Run(ctx context.Context, progress ProgressFunc) (res *Result, err error) {
	if progress == nil {
		progress = func(string, int) {}
	}
	defer func() {
		status := models.RunStatusCompleted
		if err != nil {
			status = models.RunStatusFailed
		}
		runsTotal.WithLabelValues(status).Inc()
	}()

	res = &Result{}
	rep := &res.Report
	p := e.cfg.Paths
	opts := e.cfg.Pipeline

	var flow *models.FlowTable
	var accuracy []models.AccuracyRecord
	if err := e.stage(ctx, StageLoad, progress, func() (int, error) {
		var err error
		flow, err = dataset.ReadFlowFile(p.FlowInput, e.flowCols, e.log)
		if err != nil {
			return 0, err
		}
		accuracy, err = dataset.ReadAccuracyFile(p.AccuracyInput, opts.DateColumn, opts.SensorColumn, e.log)
		if err != nil {
			return 0, err
		}
		rep.InputRows = flow.Len()
		return flow.Len(), nil
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, StageAccuracy, progress, func() (int, error) {
		var err error
		flow, rep.Accuracy, err = preprocess.FilterByAccuracy(flow, accuracy, preprocess.AccuracyOptions{
			Threshold: opts.AccuracyThreshold,
			Strict:    opts.StrictAccuracy,
		}, e.log)
		if err != nil {
			return 0, err
		}
		if err := dataset.WriteFlowFile(p.AccurateFlow, flow, e.flowCols, false); err != nil {
			return 0, err
		}
		return flow.Len(), nil
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, StageNormalize, progress, func() (int, error) {
		rep.Normalize = preprocess.Normalize(flow, preprocess.NormalizeOptions{GeoTolerance: opts.GeoTolerance}, e.log)
		if opts.RangeStart != "" {
			var err error
			flow, err = preprocess.FilterDateRange(flow, opts.RangeStart, opts.RangeEnd)
			if err != nil {
				return 0, err
			}
		}
		preprocess.Reorder(flow)
		if flow.Len() == 0 {
			return 0, &models.EmptyResultError{Stage: StageNormalize, Detail: "no record left after accuracy and date filters"}
		}
		if opts.GenerateDaily {
			for _, d := range preprocess.Dates(flow) {
				path := filepath.Join(p.DailyFlowDir, preprocess.DailyFileName(d))
				if err := dataset.WriteFlowFile(path, preprocess.DailyFilter(flow, d), e.flowCols, false); err != nil {
					return 0, err
				}
				rep.DailyFiles++
			}
		}
		return flow.Len(), nil
	}); err != nil {
		return nil, err
	}

	var mapped *mapping.Result
	if err := e.stage(ctx, StageMap, progress, func() (int, error) {
		locator, err := e.loadNet(p.Network)
		if err != nil {
			return 0, err
		}
		mopts := mapping.DefaultOptions(opts.ExcludedTypes)
		mopts.Radius = opts.SearchRadius
		pairs := mapping.Dedupe(flow)
		rep.RoadNames = len(pairs)

		mapped, err = mapping.NewMapper(locator, mopts, e.log).Map(pairs)
		if err != nil {
			return 0, err
		}
		rep.Mapped = len(mapped.Entries)
		dist := make([]float64, 0, len(mapped.Entries))
		for _, en := range mapped.Entries {
			dist = append(dist, en.Distance)
		}
		rep.MatchDist = stats.Summarize(dist)
		rep.Detectors = len(mapped.Detectors)
		if err := sumoxml.WriteDetectorsFile(p.Detectors, mapped.Detectors); err != nil {
			return 0, err
		}
		return len(mapped.Entries), nil
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, StageBackfill, progress, func() (int, error) {
		res.Entries = mapping.MergeUnresolved(mapped)
		rep.Backfill = mapping.Backfill(res.Entries)
		res.Unresolved = mapping.UnresolvedError(res.Entries)
		if res.Unresolved != nil {
			rep.Unresolved = res.Unresolved.Keys
			e.log.WithField("count", res.Unresolved.Count).Warn(res.Unresolved.Error())
		}
		unresolvedRoads.Set(float64(rep.Backfill.Unresolved))
		if err := dataset.WriteRoadNamesFile(p.RoadNames, res.Entries, e.roadCols); err != nil {
			return 0, err
		}
		return len(res.Entries) - rep.Backfill.Unresolved, nil
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, StageLink, progress, func() (int, error) {
		var err error
		res.Linked, rep.Link, err = mapping.Link(flow, res.Entries, e.log)
		if err != nil {
			return 0, err
		}
		if err := dataset.WriteFlowFile(p.ProcessedFlow, res.Linked, e.flowCols, true); err != nil {
			return 0, err
		}
		return res.Linked.Len(), nil
	}); err != nil {
		return nil, err
	}

	if err := e.stage(ctx, StageAggregate, progress, func() (int, error) {
		iv, err := e.aggregate(res.Linked)
		if err != nil {
			return 0, err
		}
		rep.EdgeCount, rep.EdgeTotal = len(iv.Edges), iv.Total()
		flows := make([]float64, 0, len(iv.Edges))
		for _, ec := range iv.Edges {
			flows = append(flows, float64(ec.Entered))
		}
		rep.EdgeFlow = stats.Summarize(flows)
		if err := sumoxml.WriteEdgeDataFile(p.EdgeData, iv); err != nil {
			return 0, err
		}
		if opts.GenerateHourly {
			from, to, err := e.hourlyRange(res.Linked)
			if err != nil {
				return 0, err
			}
			files, err := aggregate.WriteHourly(p.HourlyEdgeDir, aggregate.AggregateHourly(res.Linked, from, to), e.log)
			rep.HourlyFiles = len(files)
			if err != nil {
				return 0, err
			}
		}
		return len(iv.Edges), nil
	}); err != nil {
		return nil, err
	}

	if e.cfg.Scenario.Generate {
		if err := e.stage(ctx, StageScenario, progress, func() (int, error) {
			var err error
			rep.Scenarios, err = e.PlanScenarios(ctx)
			return len(rep.Scenarios), err
		}); err != nil {
			return nil, err
		}
	}

	progress("done", 100)
	e.log.WithFields(logrus.Fields{
		"input":      rep.InputRows,
		"linked":     rep.Link.LinkedRows,
		"edges":      rep.EdgeCount,
		"unresolved": rep.Backfill.Unresolved,
	}).Info("pipeline finished")
	return res, nil
}

// stage runs fn with timing, row metrics and error wrapping
func (e *Engine) stage(ctx context.Context, name string, progress ProgressFunc, fn func() (int, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s stage: %w", name, err)
	}
	progress(name, stageProgress[name])

	start := time.Now()
	rows, err := fn()
	stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		e.log.WithField("stage", name).WithError(err).Error("stage failed")
		return fmt.Errorf("%s stage: %w", name, err)
	}
	stageRows.WithLabelValues(name).Set(float64(rows))
	e.log.WithFields(logrus.Fields{"stage": name, "rows": rows, "elapsed": time.Since(start).Round(time.Millisecond)}).Debug("stage done")
	return nil
}

// aggregate builds the single configured edge data interval
func (e *Engine) aggregate(t *models.FlowTable) (models.EdgeInterval, error) {
	return Render(t, e.cfg.Pipeline.EdgeDataDate, e.cfg.Pipeline.EdgeDataSlot, e.cfg.Pipeline.EdgeDataDuration)
}

// Render aggregates t for a date (dd/mm/yyyy or yyyy-mm-dd) and slot
func Render(t *models.FlowTable, date, slot string, duration int) (models.EdgeInterval, error) {
	d, _, err := models.ParseDate(date)
	if err != nil {
		return models.EdgeInterval{}, err
	}
	s, err := aggregate.ParseSlot(slot)
	if err != nil {
		return models.EdgeInterval{}, err
	}
	return aggregate.Aggregate(t, d, s, aggregate.Options{Duration: duration}), nil
}

// hourlyRange returns the configured date range, or the span of the table
func (e *Engine) hourlyRange(t *models.FlowTable) (time.Time, time.Time, error) {
	opts := e.cfg.Pipeline
	if opts.RangeStart != "" {
		from, err := preprocess.ParseRangeBound(opts.RangeStart)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to, err := preprocess.ParseRangeBound(opts.RangeEnd)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return from, to, nil
	}
	dates := preprocess.Dates(t)
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, &models.EmptyResultError{Stage: StageAggregate}
	}
	return dates[0], dates[len(dates)-1], nil
}

// Planner returns the scenario planner and, when simulation is enabled, the
// simulator built from the engine configuration
func (e *Engine) Planner() (*scenario.Planner, *scenario.Simulator) {
	sc := e.cfg.Scenario
	planner := scenario.NewPlanner(scenario.Options{
		ToolsPath:     sc.ToolsPath,
		PythonBin:     sc.PythonBin,
		NetworkPath:   e.cfg.Paths.Network,
		CollectionDir: sc.CollectionDir,
		TotalVehicles: sc.TotalVehicles,
		MinLoops:      sc.MinLoops,
		Congestioned:  sc.Congestioned,
	}, e.runner, e.log)

	var sim *scenario.Simulator
	if sc.RunSimulation {
		sim = scenario.NewSimulator(scenario.SimulatorOptions{
			Binary:    sc.SumoBinary,
			GUIBinary: sc.SumoGUIBinary,
			Config:    sc.SumoConfig,
			ActiveGUI: sc.ActiveGUI,
		}, e.runner, e.log)
	}
	return planner, sim
}

// PlanScenarios plans one scenario per hourly edge data file
func (e *Engine) PlanScenarios(ctx context.Context) ([]scenario.Scenario, error) {
	planner, sim := e.Planner()
	return planner.PlanAll(ctx, e.cfg.Paths.HourlyEdgeDir, sim)
}
