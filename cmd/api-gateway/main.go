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

	_ "github.com/noah-isme/internship-affectation/api/swagger"
	"github.com/noah-isme/internship-affectation/internal/affectation"
	"github.com/noah-isme/internship-affectation/internal/handler"
	internalmiddleware "github.com/noah-isme/internship-affectation/internal/middleware"
	"github.com/noah-isme/internship-affectation/internal/repository"
	"github.com/noah-isme/internship-affectation/internal/service"
	"github.com/noah-isme/internship-affectation/pkg/cache"
	"github.com/noah-isme/internship-affectation/pkg/config"
	"github.com/noah-isme/internship-affectation/pkg/database"
	"github.com/noah-isme/internship-affectation/pkg/jobs"
	"github.com/noah-isme/internship-affectation/pkg/logger"
	corsmiddleware "github.com/noah-isme/internship-affectation/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/internship-affectation/pkg/middleware/requestid"
	"github.com/noah-isme/internship-affectation/pkg/storage"
)

// @title Internship Affectation API
// @version 1.0.0
// @description Assigns internship students to hospitals across the twelve periods of the year
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	var metrics *service.MetricsService
	if cfg.EnableMetrics {
		metrics = service.NewMetricsService()
	}

	var cacheRepo service.CacheRepository
	if cfg.Statistics.CacheEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, statistics cache disabled", zap.Error(err))
		}
		redisRepo := repository.NewCacheRepository(client, "affectation", logger.Component(logr, "cache"))
		defer redisRepo.Close() //nolint:errcheck
		cacheRepo = redisRepo
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Statistics.CacheTTL, logger.Component(logr, "cache"), cfg.Statistics.CacheEnabled)

	store, err := storage.New(ctx, cfg.Exports)
	if err != nil {
		return fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)

	affectations := repository.NewAffectationRepository(db)
	source := repository.NewSQLDatasetSource(
		repository.NewInternshipCatalogRepository(db),
		repository.NewInternshipStudentRepository(db),
	)
	exportSvc := service.NewExportService(affectations, store, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, metrics, logger.Component(logr, "export"))

	engine := affectation.NewEngine(service.EngineOptions(cfg.Affectation), logger.Component(logr, "engine"))
	affectationSvc := service.NewAffectationService(source, affectations, db, engine, cacheSvc, metrics, exportSvc,
		validator.New(), logger.Component(logr, "affectation"), service.AffectationSettings(cfg))

	queue := jobs.NewQueue("affectation", service.NewAffectationWorker(affectationSvc, logr).Handle, jobs.QueueConfig{
		Workers:    cfg.Affectation.JobWorkers,
		MaxRetries: cfg.Affectation.JobRetries,
		ResultTTL:  cfg.Affectation.JobTTL,
		Logger:     logger.Component(logr, "jobs"),
	})
	queue.Start(ctx)
	defer queue.Stop()
	affectationSvc.UseQueue(queue)

	go cleanupExports(ctx, exportSvc, cfg.Exports.CleanupInterval, logr)

	metricsHandler := handler.NewMetricsHandler(metrics, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics, "/metrics"))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metrics != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.NewAffectationHandler(affectationSvc).Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupExports(ctx context.Context, exports *service.ExportService, interval time.Duration, logr *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := exports.Cleanup(); err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
			}
		}
	}
}
