package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-kiosk-api/api/swagger"
	"github.com/noah-isme/sma-kiosk-api/internal/handler"
	"github.com/noah-isme/sma-kiosk-api/internal/middleware"
	"github.com/noah-isme/sma-kiosk-api/internal/models"
	"github.com/noah-isme/sma-kiosk-api/internal/repository"
	"github.com/noah-isme/sma-kiosk-api/internal/service"
	"github.com/noah-isme/sma-kiosk-api/pkg/cache"
	"github.com/noah-isme/sma-kiosk-api/pkg/config"
	"github.com/noah-isme/sma-kiosk-api/pkg/database"
	"github.com/noah-isme/sma-kiosk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-kiosk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-kiosk-api/pkg/middleware/requestid"
)

// @title SMA Kiosk API
// @version 0.1.0
// @description Attendance kiosk backend: check-ins, lateness classification and daily stats
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	attendanceRepo := repository.NewAttendanceRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	configRepo := repository.NewConfigurationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr, cfg.Stats.CacheEnabled && redisClient != nil)

	auditSvc := service.NewAuditService(auditRepo, logr, service.AuditServiceConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
	})
	rootCtx, stopAudit := context.WithCancel(context.Background())
	auditSvc.Start(rootCtx)
	defer func() {
		stopAudit()
		auditSvc.Stop()
	}()

	configSvc := service.NewConfigurationService(configRepo, auditSvc, logr, service.ConfigurationServiceConfig{
		DefaultWorkStartTime:        cfg.Attendance.WorkStartTime,
		DefaultLateThresholdMinutes: cfg.Attendance.LateThresholdMinutes,
	})
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, configSvc, auditSvc, cacheSvc, metricsSvc, validate, logr, service.AttendanceServiceConfig{
		StatsCacheTTL: cfg.Stats.CacheTTL,
	})
	studentSvc := service.NewStudentService(studentRepo, auditSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	exportSvc := service.NewExportService(attendanceRepo, logr)

	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	configHandler := handler.NewConfigurationHandler(configSvc)
	authHandler := handler.NewAuthHandler(authSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/auth/login", authHandler.Login)
		api.POST("/attendance/check-in", attendanceHandler.CheckIn)
		api.GET("/attendance/daily", attendanceHandler.DailyStats)
		api.GET("/attendance/history/:studentId", attendanceHandler.History)

		admin := api.Group("")
		admin.Use(middleware.JWT(authSvc))
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSupervisor))
		{
			admin.POST("/attendance/absent", attendanceHandler.MarkAbsent)
			admin.PATCH("/attendance/records/:id", attendanceHandler.Correct)
			admin.GET("/attendance/export/daily", exportHandler.DailyReport)

			admin.GET("/students", studentHandler.List)
			admin.POST("/students", studentHandler.Create)
			admin.GET("/students/:id", studentHandler.Get)
			admin.PUT("/students/:id", studentHandler.Update)
			admin.DELETE("/students/:id", studentHandler.Delete)

			admin.GET("/configuration", configHandler.List)
			admin.GET("/configuration/:key", configHandler.Get)
			admin.PUT("/configuration/:key", configHandler.Update)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	logr.Info("server stopped", zap.String("addr", addr))
}
