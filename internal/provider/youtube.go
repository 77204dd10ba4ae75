package provider

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/scoring"
)

// Data API unit costs per call kind.
const (
	searchCost  = 100
	videosCost  = 1
	channelCost = 1

	maxIDsPerCall = 50
)

// YouTubeProvider is the quota-metered primary provider backed by the
// YouTube Data API v3.
type YouTubeProvider struct {
	svc        *youtube.Service
	maxResults int64
	now        func() time.Time
}

// NewYouTubeProvider builds a Data API client authenticated with apiKey.
// Extra options are appended after the key, so tests can point the client at
// a local endpoint.
func NewYouTubeProvider(ctx context.Context, apiKey string, maxResults int, opts ...option.ClientOption) (*YouTubeProvider, error) {
	if maxResults <= 0 || maxResults > maxIDsPerCall {
		maxResults = 25
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &YouTubeProvider{svc: svc, maxResults: int64(maxResults), now: time.Now}, nil
}

func (p *YouTubeProvider) Name() string { return "youtube" }

func (p *YouTubeProvider) EstimatedCost() int { return searchCost + videosCost + channelCost }

// SearchAndEnrich runs one search call, then fetches video and channel
// details for the hits in parallel.
func (p *YouTubeProvider) SearchAndEnrich(ctx context.Context, query string) (*Result, error) {
	search, err := p.svc.Search.List([]string{"snippet"}).
		Q(query).
		Type("video").
		MaxResults(p.maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, wrapAPIError("search", err)
	}

	res := &Result{QuotaUnitsUsed: searchCost}
	var videoIDs, channelIDs []string
	seenChannel := make(map[string]bool)
	for _, item := range search.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videoIDs = append(videoIDs, item.Id.VideoId)
		if ch := item.Snippet.ChannelId; ch != "" && !seenChannel[ch] {
			seenChannel[ch] = true
			channelIDs = append(channelIDs, ch)
		}
	}
	if len(videoIDs) == 0 {
		return res, nil
	}

	var (
		videos   []*youtube.Video
		channels map[string]*youtube.Channel
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resp, err := p.svc.Videos.List([]string{"snippet", "statistics"}).
			Id(videoIDs...).
			Context(gctx).
			Do()
		if err != nil {
			return wrapAPIError("videos", err)
		}
		videos = resp.Items
		return nil
	})
	g.Go(func() error {
		channels = make(map[string]*youtube.Channel, len(channelIDs))
		if len(channelIDs) == 0 {
			return nil
		}
		resp, err := p.svc.Channels.List([]string{"snippet", "statistics"}).
			Id(channelIDs...).
			Context(gctx).
			Do()
		if err != nil {
			return wrapAPIError("channels", err)
		}
		for _, ch := range resp.Items {
			channels[ch.Id] = ch
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res.QuotaUnitsUsed += videosCost
	if len(channelIDs) > 0 {
		res.QuotaUnitsUsed += channelCost
	}

	now := p.now().UTC()
	res.Videos = make([]model.EnrichedVideo, 0, len(videos))
	for _, v := range videos {
		if v.Snippet == nil {
			continue
		}
		ev := model.EnrichedVideo{
			Video: model.Video{
				VideoID:      v.Id,
				ChannelID:    v.Snippet.ChannelId,
				Title:        v.Snippet.Title,
				ThumbnailURL: thumbnailURL(v.Snippet.Thumbnails),
				PublishedAt:  scoring.ParseTimestamp(v.Snippet.PublishedAt),
				LastUpdated:  now,
			},
			ChannelTitle: v.Snippet.ChannelTitle,
		}
		if st := v.Statistics; st != nil {
			ev.ViewCount = int64(st.ViewCount)
			// The API omits likeCount when likes are hidden; zero is indistinguishable.
			if st.LikeCount > 0 {
				likes := int64(st.LikeCount)
				ev.LikeCount = &likes
			}
		}
		if ch, ok := channels[ev.ChannelID]; ok {
			if ch.Snippet != nil && ch.Snippet.Title != "" {
				ev.ChannelTitle = ch.Snippet.Title
			}
			if ch.Statistics != nil && !ch.Statistics.HiddenSubscriberCount {
				ev.SubscriberCount = int64(ch.Statistics.SubscriberCount)
			}
		}
		scoring.Enrich(&ev, now)
		res.Videos = append(res.Videos, ev)
	}
	return res, nil
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func wrapAPIError(call string, err error) error {
	if IsQuotaError(err) {
		return fmt.Errorf("youtube %s: %w: %v", call, ErrQuotaExceeded, err)
	}
	return fmt.Errorf("youtube %s: %w", call, err)
}
