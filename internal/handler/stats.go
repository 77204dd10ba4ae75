package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/service"
)

type StatsGetter interface {
	Get(ctx context.Context) (*service.StatsResponse, error)
}

type StatsHandler struct {
	svc StatsGetter
}

func NewStatsHandler(svc StatsGetter) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(c fiber.Ctx) error {
	stats, err := h.svc.Get(c.Context())
	if err != nil {
		return storeError(c, err, "No statistics", "Failed to fetch statistics")
	}
	return c.JSON(stats)
}
