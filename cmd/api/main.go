package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wishlane/wishlane-backend/api/controllers"
	"github.com/wishlane/wishlane-backend/api/routes"
	"github.com/wishlane/wishlane-backend/internal/crawlerlog"
	"github.com/wishlane/wishlane-backend/internal/enrich"
	"github.com/wishlane/wishlane-backend/internal/inference"
	"github.com/wishlane/wishlane-backend/internal/photos"
	"github.com/wishlane/wishlane-backend/internal/quota"
	"github.com/wishlane/wishlane-backend/internal/scraper"
	"github.com/wishlane/wishlane-backend/internal/search"
	"github.com/wishlane/wishlane-backend/internal/wishes"
	"github.com/wishlane/wishlane-backend/pkg/config"
	"github.com/wishlane/wishlane-backend/pkg/db"
	"github.com/wishlane/wishlane-backend/pkg/flickr"
	"github.com/wishlane/wishlane-backend/pkg/logger"
	"github.com/wishlane/wishlane-backend/pkg/metrics"
	"github.com/wishlane/wishlane-backend/pkg/migrate"
	"github.com/wishlane/wishlane-backend/pkg/pubsub"
	"github.com/wishlane/wishlane-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	wishesService, err := wishes.NewService(wishes.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wishes service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	dispatcher, err := buildDispatcher(context.Background(), cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to create enrichment dispatcher", err)
		os.Exit(1)
	}
	defer dispatcher.Close()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	readiness := map[string]controllers.Pinger{
		"database": dbClient,
		"redis":    redisClient,
	}

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, wishesService, dispatcher, registry, readiness),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "server shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

// buildDispatcher publishes to the broker when one is configured; otherwise
// it runs the whole pipeline in-process on a bounded worker pool.
func buildDispatcher(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
) (enrich.Dispatcher, error) {
	if cfg.PubSub.Enabled() {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, err
		}
		return enrich.NewBrokerDispatcher(pubsubClient, logg)
	}

	pipeline, err := buildPipeline(ctx, cfg, logg, dbClient, redisClient, registry)
	if err != nil {
		return nil, err
	}
	return enrich.NewPoolDispatcher(pipeline, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logg)
}

func buildPipeline(
	ctx context.Context,
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	registry *prometheus.Registry,
) (*enrich.Pipeline, error) {
	gate, err := quota.NewGate(dbClient.DB(), cfg.Pipeline.DailyLimit)
	if err != nil {
		return nil, err
	}

	recorder, err := crawlerlog.NewRecorder(dbClient.DB(), logg)
	if err != nil {
		return nil, err
	}

	searcher, err := search.NewClient(ctx, cfg.Search, logg)
	if err != nil {
		return nil, err
	}

	engine, err := inference.NewEngine(cfg.OpenAI, logg)
	if err != nil {
		return nil, err
	}

	storeParams := photos.StoreParams{
		Cache:    redisClient,
		Logger:   logg,
		Uploads:  cfg.Uploads,
		Photoset: cfg.Flickr.PhotosetTitle,
		Timeout:  cfg.Pipeline.ImageTimeout,
	}
	if cfg.Flickr.Enabled() {
		backend, err := flickr.NewClient(cfg.Flickr)
		if err != nil {
			return nil, err
		}
		storeParams.Backend = backend
	}
	photoStore, err := photos.NewStore(storeParams)
	if err != nil {
		return nil, err
	}

	return enrich.NewPipeline(enrich.PipelineParams{
		Repo:             wishes.NewRepository(dbClient.DB()),
		Quota:            gate,
		Recorder:         recorder,
		Scraper:          scraper.New(cfg.Pipeline.ScrapeTimeout),
		Searcher:         searcher,
		Engine:           engine,
		Photos:           photoStore,
		Locker:           redisClient,
		Metrics:          metrics.NewPipelineMetrics(registry),
		Logger:           logg,
		InferenceTimeout: cfg.Pipeline.InferenceTimeout,
	})
}
