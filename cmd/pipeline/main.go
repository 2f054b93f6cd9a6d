package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/database"
	"github.com/jengzang/sumo-flow-backend/internal/middleware"
	"github.com/jengzang/sumo-flow-backend/internal/models"
	"github.com/jengzang/sumo-flow-backend/internal/pipeline"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
	"github.com/jengzang/sumo-flow-backend/internal/service"
)

var (
	planOnly  = flag.Bool("plan-only", false, "Skip preprocessing and plan scenarios from the hourly edge data folder")
	edgeFile  = flag.String("edgedata", "", "Plan a single scenario from this edge data file")
	scenarios = flag.Bool("scenarios", false, "Plan scenarios after preprocessing")
	simulate  = flag.Bool("simulate", false, "Run the simulator on every planned scenario")
	noDB      = flag.Bool("no-db", false, "Do not record the run in the database")
	logLevel  = flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	printJSON = flag.Bool("json", false, "Print the run report as JSON")
	issueTok  = flag.String("issue-token", "", "Print an API token for this subject signed with JWT_SECRET and exit")
	tokenTTL  = flag.Duration("token-ttl", 24*time.Hour, "Validity of the token printed by -issue-token")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *scenarios {
		cfg.Scenario.Generate = true
	}
	if *simulate {
		cfg.Scenario.RunSimulation = true
	}
	log := cfg.NewLogger()

	if *issueTok != "" {
		if err := printToken(os.Stdout, cfg.JWTSecret, *issueTok, *tokenTTL); err != nil {
			log.WithError(err).Fatal("Failed to issue token")
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := pipeline.NewEngine(cfg, log)

	switch {
	case *edgeFile != "":
		planner, sim := engine.Planner()
		sc, err := planner.PlanOne(ctx, *edgeFile, time.Now())
		if err != nil {
			log.WithError(err).Fatal("Scenario planning failed")
		}
		if sim != nil {
			if err := sim.Run(ctx, sc.Routes, ""); err != nil {
				log.WithError(err).Fatal("Simulation failed")
			}
		}
		emit(sc, log)
		return

	case *planOnly:
		planned, err := engine.PlanScenarios(ctx)
		if err != nil {
			log.WithError(err).Fatal("Scenario planning failed")
		}
		log.WithField("scenarios", len(planned)).Info("Scenarios planned")
		emit(planned, log)
		return
	}

	res, err := run(ctx, cfg, engine, log)
	if err != nil {
		var missing *models.MissingInputError
		if errors.As(err, &missing) {
			log.WithField("path", missing.Path).Error("Input file not found")
		}
		log.WithError(err).Fatal("Pipeline run failed")
	}
	if res.Unresolved != nil {
		log.WithField("entries", res.Unresolved.Count).Warn(res.Unresolved.Error())
	}
	emit(res.Report, log)
}

// run executes the pipeline, recording it in the database unless -no-db is set
func run(ctx context.Context, cfg *config.Config, engine *pipeline.Engine, log *logrus.Logger) (*pipeline.Result, error) {
	if *noDB {
		return engine.Run(ctx, nil)
	}

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	svc := service.NewPipelineService(ctx, cfg,
		repository.NewPipelineRunRepository(db),
		repository.NewRoadNameRepository(db),
		func(*config.Config) service.Runner { return engine },
		middleware.NewRunGuard(), log)
	rec, res, err := svc.RunSync(ctx, models.RunTriggerCLI, map[string]interface{}{"args": os.Args[1:]})
	if rec != nil {
		log.WithField("run_id", rec.ID).Info("Run recorded")
	}
	return res, err
}

// printToken writes an operator token for subject accepted by the API's auth middleware
func printToken(w io.Writer, secret, subject string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", ttl)
	}
	tok, err := middleware.IssueToken(secret, subject, "operator", ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, tok)
	return err
}

func emit(v interface{}, log *logrus.Logger) {
	if !*printJSON {
		return
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode report")
	}
}
