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

	_ "github.com/noah-isme/survey-api/api/swagger"
	"github.com/noah-isme/survey-api/internal/handler"
	internalmiddleware "github.com/noah-isme/survey-api/internal/middleware"
	"github.com/noah-isme/survey-api/internal/repository"
	"github.com/noah-isme/survey-api/internal/service"
	"github.com/noah-isme/survey-api/pkg/cache"
	"github.com/noah-isme/survey-api/pkg/config"
	"github.com/noah-isme/survey-api/pkg/database"
	"github.com/noah-isme/survey-api/pkg/events"
	"github.com/noah-isme/survey-api/pkg/jobs"
	"github.com/noah-isme/survey-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/survey-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/survey-api/pkg/middleware/requestid"
	"github.com/noah-isme/survey-api/pkg/storage"
)

// @title Survey API
// @version 1.0.0
// @description Campaigns, forms, respondent submissions and reports.
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Sugar().Fatalw("failed to migrate database", "error", err)
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		// Reports fall back to direct aggregation when redis is down.
		logr.Sugar().Warnw("redis unavailable, report cache disabled", "error", err)
	}

	bus, err := events.NewBus(cfg.Events, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to init event bus", "error", err)
	}
	defer bus.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	formRepo := repository.NewFormRepository(db)
	sectionRepo := repository.NewSectionRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	exportJobRepo := repository.NewExportJobRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		defer redisClient.Close() //nolint:errcheck
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Reports.CacheTTL, logr, cfg.Reports.CacheEnabled)
	}

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "survey-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	accessSvc := service.NewAccessService(campaignRepo, memberRepo, formRepo, logr)
	campaignSvc := service.NewCampaignService(campaignRepo, accessSvc, userRepo, validate, logr)
	memberSvc := service.NewMemberService(memberRepo, userRepo, accessSvc, userRepo, validate, logr)
	formSvc := service.NewFormService(formRepo, sectionRepo, questionRepo, accessSvc, bus, metricsSvc, userRepo, validate, logr, service.FormServiceConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		APIPrefix:     cfg.APIPrefix,
	})
	sectionSvc := service.NewSectionService(sectionRepo, accessSvc, validate, logr)
	questionSvc := service.NewQuestionService(questionRepo, sectionRepo, accessSvc, userRepo, validate, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, formRepo, questionRepo, accessSvc, bus, metricsSvc, userRepo, validate, logr)
	reportSvc := service.NewReportService(formRepo, questionRepo, submissionRepo, accessSvc, cacheSvc, metricsSvc, cfg.Reports.CacheTTL, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, campaignRepo, memberRepo, logr)

	fileStorage, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(reportSvc, fileStorage, signer, metricsSvc, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	exportWorker := service.NewExportWorker(exportJobRepo, exportSvc, metricsSvc, cfg.Exports.WorkerRetries, logr)
	exportQueue := jobs.NewQueue("report-exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: cfg.Exports.WorkerRetries,
		RetryDelay: 2 * time.Second,
		Logger:     logr,
	})
	exportQueue.Start(ctx)
	defer exportQueue.Stop()

	exportJobSvc := service.NewExportJobService(exportJobRepo, accessSvc, exportQueue, exportSvc, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
		MaxRetries:      cfg.Exports.WorkerRetries,
	})
	exportJobSvc.RecoverPendingJobs(ctx)
	go exportJobSvc.StartCleanup(ctx)

	if err := reportSvc.Subscribe(ctx, bus); err != nil {
		logr.Sugar().Fatalw("failed to subscribe report cache", "error", err)
	}
	if err := notificationSvc.Subscribe(ctx, bus); err != nil {
		logr.Sugar().Fatalw("failed to subscribe notifications", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(corsmiddleware.Config{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		PublicPrefixes: []string{
			cfg.APIPrefix + "/public/",
			cfg.APIPrefix + "/submissions/",
			cfg.APIPrefix + "/exports/download/",
		},
		PublicSuffixes: []string{"/submissions"},
	}))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))
	r.Use(internalmiddleware.WithResponseMeta())

	checks := []handler.ReadinessCheck{{Name: "postgres", Probe: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{
			Name:     "redis",
			Optional: true,
			Probe:    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	metricsHandler := handler.NewMetricsHandler(metricsSvc, checks...)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Campaigns:     handler.NewCampaignHandler(campaignSvc, memberSvc, accessSvc),
		Forms:         handler.NewFormHandler(formSvc, sectionSvc),
		PublicForms:   handler.NewPublicFormHandler(formSvc),
		Questions:     handler.NewQuestionHandler(questionSvc),
		Submissions:   handler.NewSubmissionHandler(submissionSvc),
		Reports:       handler.NewReportHandler(reportSvc, exportSvc, exportJobSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
	}, authSvc, userRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "events", cfg.Events.Driver)
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
