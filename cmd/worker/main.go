package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

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
	"github.com/wishlane/wishlane-backend/pkg/pubsub"
	"github.com/wishlane/wishlane-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "enrich-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	if !cfg.PubSub.Enabled() {
		logg.Error(ctx, "resource not working: pubsub", errors.New("enrich topic is not configured"))
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "enrich-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)

	gate, err := quota.NewGate(dbClient.DB(), cfg.Pipeline.DailyLimit)
	requireResource(ctx, logg, "quota gate", err)

	recorder, err := crawlerlog.NewRecorder(dbClient.DB(), logg)
	requireResource(ctx, logg, "crawler log recorder", err)

	searcher, err := search.NewClient(context.Background(), cfg.Search, logg)
	requireResource(ctx, logg, "search client", err)

	engine, err := inference.NewEngine(cfg.OpenAI, logg)
	requireResource(ctx, logg, "inference engine", err)

	storeParams := photos.StoreParams{
		Cache:    redisClient,
		Logger:   logg,
		Uploads:  cfg.Uploads,
		Photoset: cfg.Flickr.PhotosetTitle,
		Timeout:  cfg.Pipeline.ImageTimeout,
	}
	if cfg.Flickr.Enabled() {
		backend, err := flickr.NewClient(cfg.Flickr)
		requireResource(ctx, logg, "photo backend", err)
		storeParams.Backend = backend
	}
	photoStore, err := photos.NewStore(storeParams)
	requireResource(ctx, logg, "photo store", err)

	pipeline, err := enrich.NewPipeline(enrich.PipelineParams{
		Repo:             wishes.NewRepository(dbClient.DB()),
		Quota:            gate,
		Recorder:         recorder,
		Scraper:          scraper.New(cfg.Pipeline.ScrapeTimeout),
		Searcher:         searcher,
		Engine:           engine,
		Photos:           photoStore,
		Locker:           redisClient,
		Metrics:          metrics.NewPipelineMetrics(prometheus.NewRegistry()),
		Logger:           logg,
		InferenceTimeout: cfg.Pipeline.InferenceTimeout,
	})
	requireResource(ctx, logg, "enrichment pipeline", err)

	consumer, err := enrich.NewConsumer(pipeline, pubsubClient.EnrichSubscription(), logg)
	requireResource(ctx, logg, "enrich consumer", err)

	service, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		PubSub:   pubsubClient,
		Consumer: consumer,
	})
	requireResource(ctx, logg, "worker service", err)
	defer func() {
		if err := service.Close(); err != nil {
			logg.Error(ctx, "error closing worker resources", err)
		}
	}()

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "enrichment worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "enrichment worker not working", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "enrichment worker shut down")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
