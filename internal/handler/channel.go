package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/middleware"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

const channelTopVideos = 10

type ChannelFinder interface {
	FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error)
}

type ChannelVideoFinder interface {
	FindByChannel(ctx context.Context, channelID string, limit int) ([]model.EnrichedVideo, error)
}

type ChannelHandler struct {
	channels ChannelFinder
	videos   ChannelVideoFinder
}

func NewChannelHandler(channels ChannelFinder, videos ChannelVideoFinder) *ChannelHandler {
	return &ChannelHandler{channels: channels, videos: videos}
}

// GetByChannelID handles GET /api/channels/:channelId
func (h *ChannelHandler) GetByChannelID(c fiber.Ctx) error {
	channelID, msg := middleware.ValidateChannelID(c.Params("channelId"))
	if msg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_CHANNEL_ID", msg)
	}

	ch, err := h.channels.FindByChannelID(c.Context(), channelID)
	if err != nil {
		return storeError(c, err, "Channel not found", "Failed to lookup channel")
	}
	videos, err := h.videos.FindByChannel(c.Context(), channelID, channelTopVideos)
	if err != nil {
		return storeError(c, err, "Channel not found", "Failed to lookup channel videos")
	}

	resp := model.ChannelResponse{
		ChannelID:       ch.ChannelID,
		Title:           ch.Title,
		SubscriberCount: ch.SubscriberCount,
		TopVideos:       make([]model.VideoResponse, 0, len(videos)),
		LastUpdated:     ch.LastUpdated.UTC().Format(time.RFC3339),
	}
	for _, v := range videos {
		resp.TopVideos = append(resp.TopVideos, model.NewVideoResponse(v))
	}
	return c.JSON(resp)
}
