package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/jecrcuniv/nodues-api/api/swagger"
	"github.com/jecrcuniv/nodues-api/internal/handler"
	"github.com/jecrcuniv/nodues-api/internal/middleware"
	"github.com/jecrcuniv/nodues-api/internal/models"
	"github.com/jecrcuniv/nodues-api/internal/repository"
	"github.com/jecrcuniv/nodues-api/internal/service"
	"github.com/jecrcuniv/nodues-api/pkg/cache"
	"github.com/jecrcuniv/nodues-api/pkg/config"
	"github.com/jecrcuniv/nodues-api/pkg/database"
	"github.com/jecrcuniv/nodues-api/pkg/export"
	"github.com/jecrcuniv/nodues-api/pkg/jobs"
	"github.com/jecrcuniv/nodues-api/pkg/logger"
	corsmiddleware "github.com/jecrcuniv/nodues-api/pkg/middleware/cors"
	reqidmiddleware "github.com/jecrcuniv/nodues-api/pkg/middleware/requestid"
	"github.com/jecrcuniv/nodues-api/pkg/storage"
)

// @title JECRC No Dues API
// @version 1.0.0
// @description Multi-department no-dues clearance workflow
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
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching and rate limiting degrade", "error", err)
		redisClient = nil
	}

	// Repositories.
	appRepo := repository.NewApplicationRepository(db)
	statusRepo := repository.NewStatusRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	reappRepo := repository.NewReapplicationRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)
	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	certStore, err := storage.NewLocalStorage(cfg.Certificates.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init certificate storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Certificates.SignedURLSecret, cfg.Certificates.SignedURLTTL)
	renderer := export.NewCertificateRenderer(cfg.Certificates.InstitutionName, cfg.Certificates.InstitutionMotto)

	notifSvc := service.NewNotificationService(outboxRepo, service.NewLogSender(logr), metricsSvc, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, cfg.Notifications.Enabled)

	certSvc := service.NewCertificateService(appRepo, statusRepo, renderer, certStore, signer, notifSvc, metricsSvc, logr, service.CertificateServiceConfig{
		BackfillBatch: cfg.Certificates.BackfillBatchSize,
	})

	clearanceSvc := service.NewClearanceService(appRepo, statusRepo, deptRepo, reappRepo, cacheRepo, certSvc, notifSvc, auditRepo, metricsSvc, logr, service.ClearanceServiceConfig{
		MaxReapplications: cfg.Clearance.MaxReapplications,
		BulkActionLimit:   cfg.Clearance.BulkActionLimit,
		StatusCacheTTL:    cfg.Clearance.StatusCacheTTL,
	})

	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "nodues-api",
	})

	deptSvc := service.NewDepartmentService(deptRepo, statusRepo, logr)
	verifySvc := service.NewVerificationService(appRepo, statusRepo, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notifSvc.Start(ctx)
	defer notifSvc.Stop()
	if err := notifSvc.RecoverPending(ctx); err != nil {
		logr.Sugar().Warnw("failed to recover pending notifications", "error", err)
	}

	// Handlers.
	clearanceHandler := handler.NewClearanceHandler(clearanceSvc, validate)
	staffHandler := handler.NewStaffHandler(clearanceSvc, validate)
	certificateHandler := handler.NewCertificateHandler(certSvc, verifySvc)
	departmentHandler := handler.NewDepartmentHandler(deptSvc, validate)
	authHandler := handler.NewAuthHandler(authSvc)
	auditHandler := handler.NewAuditHandler(auditRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	submitLimit := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	actionLimit := gin.HandlerFunc(func(c *gin.Context) { c.Next() })
	if cfg.RateLimit.Enabled {
		submitLimit = middleware.RateLimit(redisClient, logr, "submit", cfg.RateLimit.SubmitPerMinute, time.Minute)
		actionLimit = middleware.RateLimit(redisClient, logr, "action", cfg.RateLimit.ActionPerMinute, time.Minute)
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.POST("/applications", submitLimit, clearanceHandler.Submit)
		api.GET("/applications/:registrationNo/status", clearanceHandler.Status)
		api.POST("/applications/reapply", submitLimit, clearanceHandler.Reapply)
		api.POST("/certificates/verify", certificateHandler.Verify)
		api.GET("/certificates/download", certificateHandler.Download)
		api.GET("/departments", departmentHandler.List)

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
			auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
		}

		staff := api.Group("/staff", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin, models.RoleDepartment))
		{
			staff.GET("/applications", staffHandler.List)
			staff.POST("/applications/:id/action", actionLimit, staffHandler.Action)
			staff.POST("/applications/bulk-approve", actionLimit, staffHandler.BulkApprove)
			staff.GET("/applications/:id/reapplications", staffHandler.History)
			staff.GET("/departments/:name/stats", departmentHandler.QueueStats)
		}

		admin := api.Group("/admin", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
		{
			admin.POST("/departments", departmentHandler.Create)
			admin.PATCH("/departments/:name", departmentHandler.Update)
			admin.POST("/departments/:name/remind", staffHandler.Remind)
			admin.POST("/applications/:id/certificate/regenerate", certificateHandler.Regenerate)
			admin.POST("/certificates/backfill", certificateHandler.Backfill)
			admin.GET("/audit-logs", auditHandler.List)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
