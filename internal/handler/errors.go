package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
)

// storeError maps a service error onto the API envelope. Database outages get
// a distinct 503 so callers can retry; raw error text never reaches clients.
func storeError(c fiber.Ctx, err error, notFound, failed string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return middleware.ErrorResponse(c, fiber.StatusNotFound, "NOT_FOUND", notFound)
	case repository.IsUnavailable(err):
		log.Error().Err(err).Str("path", c.Path()).Msg("data store unavailable")
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Data store temporarily unavailable")
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", failed)
	}
}
