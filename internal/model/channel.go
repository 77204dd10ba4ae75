package model

import "time"

// Channel represents a YouTube channel referenced by at least one ingested video.
type Channel struct {
	ChannelID       string    `json:"channelId"`
	Title           string    `json:"title,omitempty"`
	SubscriberCount int64     `json:"subscriberCount"`
	LastUpdated     time.Time `json:"lastUpdated"`
}

// ChannelResponse is the API response for channel lookups.
type ChannelResponse struct {
	ChannelID       string          `json:"channelId"`
	Title           string          `json:"title,omitempty"`
	SubscriberCount int64           `json:"subscriberCount"`
	TopVideos       []VideoResponse `json:"topVideos"`
	LastUpdated     string          `json:"lastUpdated"`
}
