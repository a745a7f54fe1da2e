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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/course-ledger-api/internal/repository"
	"github.com/noah-isme/course-ledger-api/internal/repository/migrations"
	"github.com/noah-isme/course-ledger-api/internal/service"
	"github.com/noah-isme/course-ledger-api/pkg/cache"
	"github.com/noah-isme/course-ledger-api/pkg/config"
	"github.com/noah-isme/course-ledger-api/pkg/database"
	"github.com/noah-isme/course-ledger-api/pkg/jobs"
	"github.com/noah-isme/course-ledger-api/pkg/logger"
	"github.com/noah-isme/course-ledger-api/pkg/storage"
)

// @title Course Ledger API
// @version 1.0.0
// @description Course selection capacity and grading engine
// @BasePath /api/v1
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

	ledger, db, err := openLedger(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open ledger", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	var redisClient *redis.Client
	if cfg.Catalog.CacheEnabled || cfg.Exports.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache and exports disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	cacheSvc := service.NewCacheService(nil, metricsSvc, cfg.Catalog.CacheTTL, logr, false)
	if redisClient != nil {
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), metricsSvc, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled)
	}

	catalogSvc := service.NewCatalogService(ledger, cacheSvc, cfg.Catalog.CacheTTL, logr)
	services := apiServices{
		auth: service.NewAuthService(service.AuthConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Expiry: cfg.JWT.Expiration,
		}),
		catalog:     catalogSvc,
		enrollments: service.NewEnrollmentService(ledger, catalogSvc, metricsSvc, validate, logr),
		grades:      service.NewGradeService(ledger, metricsSvc, validate, logr),
		statistics:  service.NewStatisticsService(ledger, logr),
		metrics:     metricsSvc,
		ready:       readiness(db, redisClient),
	}

	var queue *jobs.Queue
	if cfg.Exports.Enabled && redisClient != nil {
		fileStore, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.Error(err))
		}
		exporter := service.NewExportService(ledger, fileStore, nil, logr)

		var reports *service.ReportService
		queue = jobs.NewQueue("grade-sheets", func(ctx context.Context, job jobs.Job) error {
			return reports.Process(ctx, job)
		}, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 5 * time.Second,
			Logger:     logr,
			OnGiveUp: func(job jobs.Job, err error) {
				reports.HandleGiveUp(job, err)
			},
		})
		reports = service.NewReportService(
			repository.NewExportJobRepository(redisClient, cfg.Exports.ResultTTL),
			queue, exporter, metricsSvc, validate, logr,
			service.ReportServiceConfig{ResultTTL: cfg.Exports.ResultTTL},
		)
		queue.Start(ctx)
		reports.StartCleanup(ctx)
		services.reports = reports
	}

	r := newRouter(cfg, logr, services)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("ledger", cfg.Ledger.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if queue != nil {
		queue.Stop()
	}
}

func openLedger(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Ledger, *sqlx.DB, error) {
	if cfg.UsesMemoryLedger() {
		logr.Warn("using in-memory ledger; state is lost on restart")
		return repository.NewMemoryLedger(cfg.Ledger.TxTimeout), nil, nil
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(ctx, db, migrations.FS, logr)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		logr.Info("schema migrated", zap.Int64("version", version))
	}
	return repository.NewSQLLedger(db, cfg.Ledger.TxTimeout, logr), db, nil
}

func readiness(db *sqlx.DB, client *redis.Client) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("database: %w", err)
			}
		}
		if client != nil {
			if err := client.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
