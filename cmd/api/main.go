package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-center-api/api/swagger"
	"github.com/noah-isme/tutor-center-api/internal/handler"
	"github.com/noah-isme/tutor-center-api/internal/middleware"
	"github.com/noah-isme/tutor-center-api/internal/models"
	"github.com/noah-isme/tutor-center-api/internal/repository"
	"github.com/noah-isme/tutor-center-api/internal/service"
	"github.com/noah-isme/tutor-center-api/pkg/cache"
	"github.com/noah-isme/tutor-center-api/pkg/config"
	"github.com/noah-isme/tutor-center-api/pkg/database"
	"github.com/noah-isme/tutor-center-api/pkg/export"
	"github.com/noah-isme/tutor-center-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-center-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-center-api/pkg/middleware/requestid"
)

// @title Tutor Center API
// @version 1.0.0
// @description Tutoring-center administration backend
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// the roster cache degrades to pass-through without Redis
		logr.Sugar().Warnw("redis unavailable, continuing without roster cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	eventRepo := repository.NewSessionEventRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutor-center-api",
	})
	studentSvc := service.NewStudentService(studentRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(ledgerRepo, studentRepo, eventRepo, cacheRepo, metricsSvc, logr, service.AttendanceServiceConfig{
		PricePerSession: cfg.Billing.PricePerSession,
		Currency:        cfg.Billing.Currency,
	})
	reconcilerSvc := service.NewReconcilerService(ledgerRepo, studentRepo, eventRepo, cacheRepo, metricsSvc, validate, logr, service.ReconcilerServiceConfig{
		PricePerSession: cfg.Billing.PricePerSession,
		Currency:        cfg.Billing.Currency,
	})
	ledgerSvc := service.NewLedgerService(ledgerRepo, studentRepo, eventRepo, cacheRepo, metricsSvc, logr, service.LedgerServiceConfig{
		PricePerSession: cfg.Billing.PricePerSession,
		Currency:        cfg.Billing.Currency,
		RosterCacheTTL:  cfg.Ledger.RosterCacheTTL,
		EventHistoryMax: cfg.Ledger.EventHistoryMax,
	})
	exportSvc := service.NewExportService(ledgerRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr, cfg.Billing.PricePerSession, cfg.Billing.Currency)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	ledgerHandler := handler.NewLedgerHandler(reconcilerSvc, ledgerSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
		}

		protected := api.Group("")
		protected.Use(middleware.JWT(authSvc))
		{
			protected.GET("/students", studentHandler.List)
			protected.GET("/students/:id", studentHandler.Get)
			protected.GET("/students/:id/ledger", ledgerHandler.Statement)
			protected.GET("/ledgers", ledgerHandler.Roster)
			protected.GET("/ledgers/export", ledgerHandler.Export)

			admin := protected.Group("")
			admin.Use(middleware.RBAC(models.RoleAdmin, models.RoleSuperAdmin))
			{
				admin.POST("/students", studentHandler.Create)
				admin.PUT("/students/:id", studentHandler.Update)
				admin.DELETE("/students/:id", studentHandler.Delete)
				admin.POST("/students/:id/attendance", attendanceHandler.Mark)
				admin.POST("/students/:id/ledger/settle", ledgerHandler.Settle)
				admin.PUT("/students/:id/ledger", ledgerHandler.Override)
			}
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Info("server starting", zap.String("addr", addr), zap.String("env", cfg.Env))
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
