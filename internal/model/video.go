package model

import "time"

// Video is a point-in-time snapshot of a video and its derived metrics.
type Video struct {
	VideoID            string     `json:"videoId"`
	ChannelID          string     `json:"channelId"`
	Title              string     `json:"title"`
	ThumbnailURL       string     `json:"thumbnailUrl,omitempty"`
	ViewCount          int64      `json:"viewCount"`
	LikeCount          *int64     `json:"likeCount,omitempty"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	ViralityMultiplier float64    `json:"viralityMultiplier"`
	ViewsPerDay        *float64   `json:"viewsPerDay,omitempty"`
	LikeRatio          *float64   `json:"likeRatio,omitempty"`
	OutlierScore       *float64   `json:"outlierScore,omitempty"`
	Tiers              []string   `json:"tiers,omitempty"`
	LastUpdated        time.Time  `json:"lastUpdated"`
}

// EnrichedVideo is a video joined with the channel data its metrics were
// computed against. Providers return it; the search planner reads it back.
type EnrichedVideo struct {
	Video
	ChannelTitle    string `json:"channelTitle,omitempty"`
	SubscriberCount int64  `json:"subscriberCount"`
}

// Channel extracts the channel row carried by the video.
func (v EnrichedVideo) Channel() Channel {
	return Channel{
		ChannelID:       v.ChannelID,
		Title:           v.ChannelTitle,
		SubscriberCount: v.SubscriberCount,
	}
}

// VideoResponse is the API response for video lookups and search results.
type VideoResponse struct {
	VideoID            string     `json:"videoId"`
	Title              string     `json:"title"`
	ThumbnailURL       string     `json:"thumbnailUrl,omitempty"`
	ChannelID          string     `json:"channelId"`
	ChannelTitle       string     `json:"channelTitle,omitempty"`
	SubscriberCount    int64      `json:"subscriberCount"`
	ViewCount          int64      `json:"viewCount"`
	PublishedAt        *time.Time `json:"publishedAt,omitempty"`
	ViralityMultiplier float64    `json:"viralityMultiplier"`
	ViewsPerDay        *float64   `json:"viewsPerDay,omitempty"`
	LikeRatio          *float64   `json:"likeRatio,omitempty"`
	OutlierScore       float64    `json:"outlierScore"`
	Tiers              []string   `json:"tiers"`
	LastUpdated        time.Time  `json:"lastUpdated"`
}

// NewVideoResponse builds the API shape from a stored video.
func NewVideoResponse(v EnrichedVideo) VideoResponse {
	resp := VideoResponse{
		VideoID:            v.VideoID,
		Title:              v.Title,
		ThumbnailURL:       v.ThumbnailURL,
		ChannelID:          v.ChannelID,
		ChannelTitle:       v.ChannelTitle,
		SubscriberCount:    v.SubscriberCount,
		ViewCount:          v.ViewCount,
		PublishedAt:        v.PublishedAt,
		ViralityMultiplier: v.ViralityMultiplier,
		ViewsPerDay:        v.ViewsPerDay,
		LikeRatio:          v.LikeRatio,
		Tiers:              v.Tiers,
		LastUpdated:        v.LastUpdated,
	}
	if v.OutlierScore != nil {
		resp.OutlierScore = *v.OutlierScore
	}
	if resp.Tiers == nil {
		resp.Tiers = []string{}
	}
	return resp
}
