package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/user/imagescraper-service/internal/adapter/blob"
	"github.com/user/imagescraper-service/internal/adapter/chromedp_browser"
	"github.com/user/imagescraper-service/internal/adapter/memory"
	"github.com/user/imagescraper-service/internal/adapter/postgres"
	redis_adapter "github.com/user/imagescraper-service/internal/adapter/redis"
	"github.com/user/imagescraper-service/internal/delivery/http/handler"
	"github.com/user/imagescraper-service/internal/delivery/http/router"
	"github.com/user/imagescraper-service/internal/repository"
	"github.com/user/imagescraper-service/internal/scraper"
	"github.com/user/imagescraper-service/internal/usecase"
	"github.com/user/imagescraper-service/pkg/config"
	"github.com/user/imagescraper-service/pkg/logger"
	"github.com/user/imagescraper-service/pkg/proxy"
	"go.uber.org/zap"
)

const (
	shutdownTimeout = 30 * time.Second
	sweepInterval   = 5 * time.Minute
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	// --- Logger ---
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		zap.NewExample().Fatal("could not build logger", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()
	if err := postgres.EnsureSchema(ctx, dbpool); err != nil {
		log.Fatal("unable to prepare database schema", zap.Error(err))
	}
	log.Info("postgreSQL connection pool established")

	// --- Task store ---
	tasks, closeTasks := newTaskStore(ctx, cfg, log)
	defer closeTasks()

	// --- Blob storage ---
	blobs, err := blob.NewMinioRepo(blob.Config{
		Endpoint:        cfg.BlobEndpoint,
		AccessKeyID:     cfg.BlobAccessKeyID,
		SecretAccessKey: cfg.BlobSecretAccessKey,
		Bucket:          cfg.BlobBucket,
		PublicURL:       cfg.BlobPublicURL,
		Region:          cfg.BlobRegion,
		UseSSL:          cfg.BlobUseSSL,
	})
	if err != nil {
		log.Fatal("unable to configure blob storage", zap.Error(err))
	}

	// --- Scraper ---
	identities, err := proxy.NewManager(cfg.ProxyURLs, cfg.UserAgentList())
	if err != nil {
		log.Fatal("invalid proxy configuration", zap.Error(err))
	}
	images := postgres.NewImageRepo(dbpool)
	browsers := chromedp_browser.NewFactory(chromedp_browser.Config{
		Headless:        cfg.Headless,
		UserAgent:       cfg.UserAgent,
		PageLoadTimeout: cfg.PageLoadTimeout,
		SettleDelay:     cfg.SettleDelay,
		RetryDelay:      cfg.RetryDelay,
	}, identities, log.Named("browser"))
	pipeline := scraper.NewPipeline(scraper.PipelineConfig{
		DownloadTimeout:   cfg.DownloadTimeout,
		MaxImageBytes:     cfg.MaxImageBytes,
		RequestsPerSecond: cfg.DownloadRPS,
		UserAgent:         cfg.UserAgent,
		Identities:        identities,
	}, blobs, images, log.Named("pipeline"))
	orchestrator := scraper.NewOrchestrator(scraper.Config{
		Sites:              scraper.DefaultSites(),
		ScrollTimes:        cfg.ScrollTimes,
		ElementWaitTimeout: cfg.ElementWaitTimeout,
		RetryDelay:         cfg.RetryDelay,
	}, browsers, images, pipeline, log.Named("scraper"))

	// --- Use Cases ---
	taskManager := usecase.NewTaskManager(orchestrator, tasks, usecase.TaskManagerConfig{
		DefaultMaxImages:   cfg.DefaultMaxImages,
		MaxImagesPerScrape: cfg.MaxImagesPerScrape,
		MaxConcurrentRuns:  cfg.MaxConcurrentRuns,
	}, log.Named("tasks"))
	imageQuerier := usecase.NewImageQuerier(images, log.Named("images"))

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(taskManager, imageQuerier, map[string]handler.Pinger{
		"postgres": images,
		"tasks":    tasks,
		"blob":     blobs,
	}, log.Named("http"))

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log.Named("http")),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 70 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("could not listen on port", zap.String("port", cfg.ServerPort), zap.Error(err))
		}
	}()
	log.Info("server started", zap.String("port", cfg.ServerPort))

	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	// Cancel in-flight runs so they close their browsers and record a final status.
	if err := taskManager.Shutdown(shutdownCtx); err != nil {
		log.Error("scrape runs did not finish in time", zap.Error(err))
	}

	log.Info("server exiting")
}

// newTaskStore returns the Redis task store when REDIS_ADDR is set and an
// in-process one otherwise.
func newTaskStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.TaskRepository, func()) {
	if cfg.RedisAddr == "" {
		store := memory.NewTaskRepo(cfg.TaskTTL)
		sweepCtx, cancel := context.WithCancel(ctx)
		go store.RunSweeper(sweepCtx, sweepInterval)
		log.Info("using in-memory task store")
		return store, cancel
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("unable to connect to Redis", zap.Error(err))
	}
	log.Info("redis connection established")
	return redis_adapter.NewTaskRepo(rdb, cfg.TaskTTL), func() { _ = rdb.Close() }
}
