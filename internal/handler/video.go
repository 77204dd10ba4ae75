package handler

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

type VideoFinder interface {
	FindByVideoID(ctx context.Context, videoID string) (*model.EnrichedVideo, error)
}

type VideoHandler struct {
	videos VideoFinder
}

func NewVideoHandler(videos VideoFinder) *VideoHandler {
	return &VideoHandler{videos: videos}
}

// GetByVideoID handles GET /api/videos/:videoId
func (h *VideoHandler) GetByVideoID(c fiber.Ctx) error {
	videoID, msg := middleware.ValidateVideoID(c.Params("videoId"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_VIDEO_ID", msg)
	}

	video, err := h.videos.FindByVideoID(c.Context(), videoID)
	if err != nil {
		return storeError(c, err, "Video not found", "Failed to lookup video")
	}
	return c.JSON(model.NewVideoResponse(*video))
}
