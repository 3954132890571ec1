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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/admission-agent-api/api/swagger"
	"github.com/noah-isme/admission-agent-api/internal/handler"
	"github.com/noah-isme/admission-agent-api/internal/repository"
	"github.com/noah-isme/admission-agent-api/internal/service"
	"github.com/noah-isme/admission-agent-api/migrations"
	"github.com/noah-isme/admission-agent-api/pkg/boardresult"
	"github.com/noah-isme/admission-agent-api/pkg/cache"
	"github.com/noah-isme/admission-agent-api/pkg/config"
	"github.com/noah-isme/admission-agent-api/pkg/database"
	"github.com/noah-isme/admission-agent-api/pkg/fetch"
	"github.com/noah-isme/admission-agent-api/pkg/jobs"
	"github.com/noah-isme/admission-agent-api/pkg/logger"
	"github.com/noah-isme/admission-agent-api/pkg/storage"
)

// @title Admission Agent API
// @version 1.0.0
// @description University admission assistant: eligibility, auto-apply agent, wallet and circular ingestion
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		logr.Sugar().Fatalw("database unavailable", "error", err)
	}
	defer db.Close() //nolint:errcheck
	if cfg.Database.AutoMigrate {
		if _, err := database.Migrate(ctx, db, migrations.Files, logr); err != nil {
			logr.Sugar().Fatalw("database migration failed", "error", err)
		}
	}

	var redisClient *redis.Client
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	} else {
		redisClient = client
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	circularRepo := repository.NewCircularRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	jobRepo := repository.NewAnalysisJobRepository(db)
	checkRepo := repository.NewRequirementCheckRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, redisClient != nil)

	store, err := storage.NewObjectStore(cfg.AdmitCards)
	if err != nil {
		logr.Sugar().Fatalw("admit card storage unavailable", "backend", cfg.AdmitCards.Backend, "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.AdmitCards.SignedURLSecret, cfg.AdmitCards.SignedURLTTL)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "admission-agent-api",
		SingleSession:      cfg.JWT.SingleSession,
		AdminInviteCode:    cfg.JWT.AdminInviteCode,
	})
	boardClient := boardresult.NewClient(cfg.BoardResult.BaseURL, cfg.BoardResult.Timeout, logr)
	studentSvc := service.NewStudentService(studentRepo, boardClient, validate, logr)
	circularSvc := service.NewCircularService(circularRepo, cacheSvc, logr)
	eligibilitySvc := service.NewEligibilityService(circularRepo, studentRepo, cacheSvc, cfg.Eligibility.CacheTTL, logr)
	admitCardSvc := service.NewAdmitCardService(applicationRepo, studentRepo, circularRepo, store, signer, nil, cfg.AdmitCards.Retention, logr)
	workflowSvc := service.NewWorkflowService(applicationRepo, studentRepo, circularRepo, ledgerRepo, admitCardSvc, metrics, nil, cfg.Workflow, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, studentRepo, circularRepo, notificationRepo, workflowSvc, cfg.Workflow.MarksRequired, validate, logr)
	walletSvc := service.NewWalletService(ledgerRepo, studentRepo, metrics, cfg.Wallet, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, studentRepo, circularRepo, validate, logr)
	checkSvc := service.NewRequirementCheckService(checkRepo, studentRepo, circularRepo, validate, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Aggregates:    analyticsRepo,
		Students:      studentRepo,
		Eligibility:   eligibilitySvc,
		Applications:  applicationSvc,
		Wallet:        walletSvc,
		Notifications: notificationSvc,
		Cache:         cacheSvc,
		Logger:        logr,
		Config:        service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	worker := service.NewAnalyzeWorker(
		jobRepo,
		circularRepo,
		fetch.New(fetch.Options{Timeout: cfg.Analyzer.FetchTimeout, MaxBytes: cfg.Analyzer.MaxDocumentBytes, Logger: logr}),
		studentRepo,
		notificationRepo,
		cacheSvc,
		metrics,
		logr,
	)
	analyzeQueue := jobs.NewQueue(service.AnalyzeJobType, worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Analyzer.WorkerConcurrency,
		MaxRetries: cfg.Analyzer.WorkerRetries,
		DeadLetter: worker.DeadLetter,
		Logger:     logr,
	})
	metrics.TrackQueueDepth(analyzeQueue.Depth)
	analyzerSvc := service.NewAnalyzerService(jobRepo, circularRepo, analyzeQueue, validate, logr)
	if cfg.Analyzer.Enabled {
		analyzeQueue.Start(ctx)
	}

	reminderSvc := service.NewReminderService(applicationRepo, circularRepo, notificationRepo, cacheSvc, metrics, cfg.Reminders, logr)
	if err := reminderSvc.Register(cfg.AdmitCards.CleanupSchedule, "admit_card_cleanup", admitCardSvc.Cleanup); err != nil {
		logr.Warn("admit card cleanup not scheduled", zap.Error(err))
	}
	if err := reminderSvc.Register(cfg.JWT.PurgeSchedule, "session_purge", authSvc.PurgeExpiredSessions); err != nil {
		logr.Warn("session purge not scheduled", zap.Error(err))
	}
	if cfg.Reminders.Enabled {
		if err := reminderSvc.Start(); err != nil {
			logr.Sugar().Fatalw("reminder scheduler failed", "error", err)
		}
	}

	if cfg.Catalog.SeedFile != "" {
		if _, err := circularSvc.SeedCatalog(ctx, cfg.Catalog.SeedFile); err != nil {
			logr.Warn("circular catalog not seeded", zap.String("path", cfg.Catalog.SeedFile), zap.Error(err))
		}
	}

	r := newRouter(cfg, logr, metrics, authSvc, userRepo, routeHandlers{
		auth:          handler.NewAuthHandler(authSvc),
		students:      handler.NewStudentHandler(studentSvc),
		circulars:     handler.NewCircularHandler(circularSvc),
		eligibility:   handler.NewEligibilityHandler(eligibilitySvc),
		applications:  handler.NewApplicationHandler(applicationSvc),
		workflow:      handler.NewWorkflowHandler(workflowSvc),
		wallet:        handler.NewWalletHandler(walletSvc),
		notifications: handler.NewNotificationHandler(notificationSvc),
		checks:        handler.NewRequirementCheckHandler(checkSvc),
		analyzer:      handler.NewAnalyzerHandler(analyzerSvc),
		admitCards:    handler.NewAdmitCardHandler(admitCardSvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		metrics:       handler.NewMetricsHandler(metrics, readinessChecks(db, redisClient)...),
	})

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
	logr.Sugar().Infow("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	workflowSvc.Shutdown()
	reminderSvc.Stop()
	if cfg.Analyzer.Enabled {
		analyzeQueue.Stop()
	}
	logr.Sugar().Infow("server stopped")
}

func readinessChecks(db *sqlx.DB, redisClient *redis.Client) []handler.ReadinessCheck {
	checks := []handler.ReadinessCheck{{Name: "postgres", Probe: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{
			Name:     "redis",
			Optional: true,
			Probe: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}
