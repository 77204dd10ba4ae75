package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/handler"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Search  *handler.SearchHandler
	Ingest  *handler.IngestHandler
	Video   *handler.VideoHandler
	Channel *handler.ChannelHandler
	Stats   *handler.StatsHandler
	Health  *handler.HealthHandler
}

// Options carries the request-level settings the router needs.
type Options struct {
	CORSOrigins  []string
	IngestSecret string
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewRequestLogger())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics sit outside the API group and its rate limits.
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	searchLimit := middleware.NewSearchRateLimiter()
	readLimit := middleware.NewReadRateLimiter()
	ingestLimit := middleware.NewIngestRateLimiter()

	api := app.Group("/api")

	api.Get("/search", searchLimit.Handler(), h.Search.Search)

	api.Get("/videos/:videoId", readLimit.Handler(), h.Video.GetByVideoID)
	api.Get("/channels/:channelId", readLimit.Handler(), h.Channel.GetByChannelID)
	api.Get("/stats", readLimit.Handler(), h.Stats.GetStats)

	// Ingestion is bearer protected. The rate limit runs first so bad tokens
	// are throttled too.
	ingest := api.Group("/ingest", ingestLimit.Handler(), middleware.RequireBearer(opts.IngestSecret))
	ingest.Post("/run", h.Ingest.Run)
	ingest.Get("/jobs", h.Ingest.Jobs)
}
