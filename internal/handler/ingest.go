package handler

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/service"
)

type IngestRunner interface {
	Run(ctx context.Context, trigger string) (*model.IngestionJob, error)
	Configured() bool
}

type JobLister interface {
	Recent(ctx context.Context, limit int) ([]model.IngestionJob, error)
}

type IngestHandler struct {
	runner IngestRunner
	jobs   JobLister
}

func NewIngestHandler(runner IngestRunner, jobs JobLister) *IngestHandler {
	return &IngestHandler{runner: runner, jobs: jobs}
}

// Run handles POST /api/ingest/run. The request body is ignored.
func (h *IngestHandler) Run(c fiber.Ctx) error {
	if !h.runner.Configured() {
		return misconfigured(c)
	}

	job, err := h.runner.Run(c.Context(), service.TriggerHTTP)
	switch {
	case errors.Is(err, service.ErrIngestNotConfigured):
		return misconfigured(c)
	case err != nil && repository.IsUnavailable(err):
		log.Error().Err(err).Msg("ingest: data store unavailable")
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Data store temporarily unavailable")
	case err != nil:
		log.Error().Err(err).Msg("ingest: run failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Ingestion job failed")
	}

	errs := job.Metadata.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.JSON(model.IngestRunResponse{
		JobID:             job.ID,
		Status:            job.Status,
		QuotaUnitsUsed:    job.QuotaUnitsUsed,
		KeywordsProcessed: job.Metadata.KeywordsProcessed,
		VideosUpserted:    job.Metadata.VideosUpserted,
		StoppedForQuota:   job.Metadata.StoppedForQuota,
		Errors:            errs,
	})
}

// Jobs handles GET /api/ingest/jobs?limit=N
func (h *IngestHandler) Jobs(c fiber.Ctx) error {
	limit, msg := middleware.ValidateLimit(fiber.Query[string](c, "limit"), middleware.DefaultJobLimit, middleware.MaxJobLimit)
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_LIMIT", msg)
	}

	jobs, err := h.jobs.Recent(c.Context(), limit)
	if err != nil {
		return storeError(c, err, "No jobs", "Failed to list jobs")
	}
	if jobs == nil {
		jobs = []model.IngestionJob{}
	}
	return c.JSON(fiber.Map{"jobs": jobs})
}

func misconfigured(c fiber.Ctx) error {
	log.Error().Msg("ingest: no primary provider configured")
	return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "SERVER_MISCONFIGURED", "Ingestion provider is not configured")
}
