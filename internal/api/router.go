package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/jengzang/sumo-flow-backend/internal/config"
	"github.com/jengzang/sumo-flow-backend/internal/handler"
	"github.com/jengzang/sumo-flow-backend/internal/middleware"
)

// Handlers 路由依赖的处理器
type Handlers struct {
	Pipeline  *handler.PipelineHandler
	RoadNames *handler.RoadNameHandler
	EdgeData  *handler.EdgeDataHandler
	Guard     *middleware.RunGuard
}

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config, h Handlers, log logrus.FieldLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(log))

	// CORS 中间件
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "SUMO flow backend is running",
			"busy":    h.Guard.Busy(),
			"running": h.Guard.Since().Round(time.Second).String(),
		})
	})

	// Prometheus 指标
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API 路由组
	api := r.Group("/api/v1")
	{
		// 预处理流水线
		runs := api.Group("/pipeline/runs")
		{
			runs.GET("", h.Pipeline.ListRuns)
			runs.GET("/:id", h.Pipeline.GetRun)
			runs.POST("",
				middleware.Auth(cfg.JWTSecret),
				middleware.RateLimit(middleware.NewRateLimiter(6, time.Minute)),
				middleware.RejectWhileBusy(h.Guard),
				h.Pipeline.StartRun,
			)
		}

		// 道路名称与 edge 映射
		api.GET("/road-names", h.RoadNames.List)

		// edge data 渲染
		api.GET("/edgedata", h.EdgeData.Get)
	}

	return r
}
