package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/service"
)

type Searcher interface {
	Search(ctx context.Context, query, mode string) (*service.SearchResponse, error)
}

type SearchHandler struct {
	svc Searcher
}

func NewSearchHandler(svc Searcher) *SearchHandler {
	return &SearchHandler{svc: svc}
}

// Search handles GET /api/search?q=<query>&mode=momentum|proven
func (h *SearchHandler) Search(c fiber.Ctx) error {
	query, msg := middleware.ValidateQuery(fiber.Query[string](c, "q"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_QUERY", msg)
	}
	mode, msg := middleware.ValidateMode(fiber.Query[string](c, "mode"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_MODE", msg)
	}

	resp, err := h.svc.Search(c.Context(), query, mode)
	if err != nil {
		return storeError(c, err, "No results", "Failed to run search")
	}
	return c.JSON(resp)
}
