package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/config"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/db"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/events"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/handler"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/metrics"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/provider"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/router"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg == nil {
		return
	}

	middleware.InitLogger(cfg.LogLevel, "outlier-api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if !cfg.SkipMigrate {
		version, dirty, err := db.Migrate(pool)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("schema migrated")
	}

	metrics.Init(pool)

	videoRepo := repository.NewVideoRepo(pool)
	channelRepo := repository.NewChannelRepo(pool)
	keywordRepo := repository.NewKeywordRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	statsRepo := repository.NewStatsRepo(pool)

	if cfg.KeywordsFile != "" {
		seed, err := config.LoadKeywords(cfg.KeywordsFile)
		if err != nil {
			log.Fatal().Err(err).Str("file", cfg.KeywordsFile).Msg("failed to load keyword seed file")
		}
		n, err := keywordRepo.UpsertKeywords(ctx, seed)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to seed keywords")
		}
		log.Info().Int("keywords", n).Msg("keyword seed applied")
	}

	cache := service.NewCacheService(cfg.RedisURL)
	defer cache.Close()

	var quota service.QuotaCounter = repository.NewJobQuota(jobRepo)
	if rdb := cache.Client(); rdb != nil {
		quota = repository.NewRedisQuota(rdb)
	} else {
		log.Warn().Msg("quota: redis unavailable, counting units from ingestion_jobs")
	}

	primary, secondary := buildProviders(ctx, cfg)

	publisher, err := events.Connect(cfg.NatsURL)
	if err != nil {
		log.Warn().Err(err).Msg("nats: connection failed, job events disabled")
		publisher = &events.Publisher{}
	}
	defer publisher.Close()

	ingestCfg := service.IngestConfig{
		BatchSize:       cfg.KeywordBatchSize,
		Cooldown:        cfg.KeywordCooldown,
		DailyCap:        cfg.DailyQuotaCap,
		ProviderTimeout: cfg.ProviderTimeout,
		RunBudget:       cfg.IngestRunBudget,
		Location:        cfg.QuotaLocation(),
	}
	ingestSvc := service.NewIngestService(jobRepo, keywordRepo, videoRepo, quota, ingestCfg).
		WithProviders(primary, secondary).
		WithEvents(publisher).
		WithCache(cache)
	if cfg.IngestSecret == "" {
		log.Warn().Msg("INGEST_SECRET not set, the ingestion trigger will refuse every call")
	}

	var worker *service.IngestWorker
	if cfg.IngestCron != "" {
		worker, err = service.NewIngestWorker(ingestSvc.AsRunner(), cfg.IngestCron)
		if err != nil {
			log.Fatal().Err(err).Str("schedule", cfg.IngestCron).Msg("invalid ingest cron schedule")
		}
		worker.Start(ctx)
	}

	searchSvc := service.NewSearchService(videoRepo, cache, cfg.SearchCacheTTL)
	statsSvc := service.NewStatsService(statsRepo, keywordRepo, jobRepo, quota, ingestCfg)

	app := fiber.New(fiber.Config{
		AppName:      "Outlier Finder API",
		ServerHeader: "outlier-finder",
		ReadTimeout:  10 * time.Second,
		// The ingestion trigger runs synchronously within its run budget.
		WriteTimeout: cfg.IngestRunBudget + 15*time.Second,
	})

	router.Setup(app, &router.Handlers{
		Search:  handler.NewSearchHandler(searchSvc),
		Ingest:  handler.NewIngestHandler(ingestSvc, jobRepo),
		Video:   handler.NewVideoHandler(videoRepo),
		Channel: handler.NewChannelHandler(channelRepo, videoRepo),
		Stats:   handler.NewStatsHandler(statsSvc),
		Health:  handler.NewHealthHandler(pool, cache.Client(), ingestSvc.Configured).WithEvents(publisher.Enabled),
	}, router.Options{
		CORSOrigins:  cfg.AllowedOrigins(),
		IngestSecret: cfg.IngestSecret,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		if worker != nil {
			worker.Stop()
		}
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			log.Error().Err(err).Msg("server shutdown")
		}
	}()

	log.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Msg("outlier finder starting")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: cfg.IsProduction()}); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// buildProviders wires the primary YouTube provider and the optional scraper
// fallback. The scraper is never used without a primary.
func buildProviders(ctx context.Context, cfg *config.Config) (provider.Provider, provider.Provider) {
	var primary, secondary provider.Provider

	if cfg.YouTubeAPIKey != "" {
		yt, err := provider.NewYouTubeProvider(ctx, cfg.YouTubeAPIKey, cfg.YouTubeMaxResults)
		if err != nil {
			log.Error().Err(err).Msg("youtube: client init failed, primary provider disabled")
		} else {
			primary = yt
		}
	} else {
		log.Warn().Msg("YOUTUBE_API_KEY not set, primary provider disabled")
	}

	if cfg.ScraperURL != "" {
		client := &http.Client{Timeout: cfg.ProviderTimeout}
		secondary = provider.NewScraperProvider(cfg.ScraperURL, cfg.ScraperAPIKey, cfg.ScraperRPS, client)
	}

	return primary, secondary
}
