package router

import (
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"report-tracker/config"
	"report-tracker/controllers"
	"report-tracker/global"
	"report-tracker/middlewares"
	"report-tracker/services"
)

func newReportController() *controllers.ReportController {
	mdConf := config.AppConfig.MarketData
	prices := services.NewAlphaVantageClient(services.AlphaVantageConfig{
		BaseURL:         mdConf.BaseURL,
		APIKey:          mdConf.APIKey,
		Timeout:         time.Duration(mdConf.TimeoutSeconds) * time.Second,
		CacheTTL:        time.Duration(mdConf.CacheTTLMinutes) * time.Minute,
		BenchmarkSymbol: mdConf.BenchmarkSymbol,
		BenchmarkName:   mdConf.BenchmarkName,
	}, global.RedisDB)

	service := services.NewReportService(services.NewGormReportStore(global.DB), prices)
	service.SetHoldBand(config.AppConfig.Analysis.HoldBandPct)
	service.UseBenchmark(prices)

	return controllers.NewReportController(service)
}

func InitRouter() *gin.Engine {
	r := gin.Default()

	allowedOrigins := []string{"http://localhost:5173", "http://localhost:8080"}
	if raw := os.Getenv("FRONTEND_ORIGINS"); raw != "" {
		split := strings.Split(raw, ",")
		allowedOrigins = allowedOrigins[:0]
		for _, v := range split {
			trimmed := strings.TrimSpace(v)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
		if len(allowedOrigins) == 0 {
			allowedOrigins = []string{"*"}
		}
	}

	allowCreds := true
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		allowCreds = false
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: allowCreds,
		MaxAge:           12 * time.Hour,
	}))

	// Public health endpoint for liveness/readiness checks
	r.GET("/api/health", controllers.Health)

	auth := r.Group("/api/auth")
	{
		auth.POST("/login", controllers.Login)
		auth.POST("/register", controllers.Register)
	}

	rc := newReportController()

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		reports := api.Group("/reports")
		{
			reports.POST("", rc.CreateReport)
			reports.GET("", rc.GetReports)
			reports.GET("/summary", rc.GetPerformanceSummary)
			reports.POST("/:id/reevaluate", rc.ReEvaluateReport)
			reports.GET("/:id/performance", rc.GetReportPerformance)
			reports.DELETE("/:id", rc.DeleteReport)
		}
	}

	return r
}
