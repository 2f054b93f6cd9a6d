package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/api"
	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/database"
	"github.com/jengzang/sumo-flow-backend/internal/handler"
	"github.com/jengzang/sumo-flow-backend/internal/middleware"
	"github.com/jengzang/sumo-flow-backend/internal/repository"
	"github.com/jengzang/sumo-flow-backend/internal/scheduler"
	"github.com/jengzang/sumo-flow-backend/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	log := cfg.NewLogger()
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(database.Config{Path: cfg.DBPath}, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	runRepo := repository.NewPipelineRunRepository(db)
	roadRepo := repository.NewRoadNameRepository(db)
	if n, err := runRepo.FailInterrupted(); err != nil {
		log.WithError(err).Warn("Failed to close interrupted runs")
	} else if n > 0 {
		log.WithField("runs", n).Warn("Marked interrupted runs as failed")
	}

	// 初始化服务
	guard := middleware.NewRunGuard()
	pipelineSvc := service.NewPipelineService(ctx, cfg, runRepo, roadRepo, service.EngineFactory(log), guard, log)

	// 定时任务
	sched := scheduler.New(cfg.PipelineInterval, pipelineSvc, log)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}
	defer sched.Stop()

	// 初始化路由
	router := api.SetupRouter(cfg, api.Handlers{
		Pipeline:  handler.NewPipelineHandler(pipelineSvc),
		RoadNames: handler.NewRoadNameHandler(service.NewRoadNameService(roadRepo)),
		EdgeData:  handler.NewEdgeDataHandler(service.NewEdgeDataService(cfg, log)),
		Guard:     guard,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 启动服务器
	go func() {
		log.WithField("addr", cfg.Port).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown failed")
	}

	// 等待后台运行结束，ctx 已取消，运行会在当前阶段后退出
	pipelineSvc.Wait()
}
