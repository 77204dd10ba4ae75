package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/scoring"
)

// ScraperProvider is the quota-free secondary provider. It calls an external
// scraping backend once per keyword and normalizes its loosely typed items.
type ScraperProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
	retry   RetryConfig
	now     func() time.Time
}

// NewScraperProvider paces outbound calls to rps requests per second.
func NewScraperProvider(baseURL, apiKey string, rps float64, client *http.Client) *ScraperProvider {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if rps <= 0 {
		rps = 1
	}
	return &ScraperProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		retry:   DefaultRetryConfig,
		now:     time.Now,
	}
}

func (p *ScraperProvider) Name() string { return "scraper" }

func (p *ScraperProvider) EstimatedCost() int { return 0 }

func (p *ScraperProvider) SearchAndEnrich(ctx context.Context, query string) (*Result, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("scraper rate limit wait: %w", err)
	}

	reqURL := p.baseURL + "?" + url.Values{"q": {query}}.Encode()
	resp, err := retryHTTP(ctx, p.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}
		return p.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("scraper request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("scraper: %w", ErrQuotaExceeded)
	}
	if resp.StatusCode != http.StatusOK {
		// Body is dropped so upstream content never reaches job metadata.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("scraper: unexpected status %d", resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("scraper: decode response: %w", err)
	}

	now := p.now().UTC()
	items := extractItems(payload)
	res := &Result{Videos: make([]model.EnrichedVideo, 0, len(items))}
	for _, item := range items {
		ev, ok := normalizeItem(item, now)
		if !ok {
			continue
		}
		scoring.Enrich(&ev, now)
		res.Videos = append(res.Videos, ev)
	}
	return res, nil
}

// extractItems accepts a bare array or an object wrapping one.
func extractItems(payload any) []map[string]any {
	var raw []any
	switch v := payload.(type) {
	case []any:
		raw = v
	case map[string]any:
		for _, key := range []string{"items", "results", "videos", "data"} {
			if arr, ok := v[key].([]any); ok {
				raw = arr
				break
			}
		}
	}
	items := make([]map[string]any, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items
}

var (
	idKeys           = []string{"videoId", "video_id", "id"}
	titleKeys        = []string{"title", "name"}
	channelIDKeys    = []string{"channelId", "channel_id", "authorId", "author_id"}
	channelTitleKeys = []string{"channelTitle", "channel_title", "channelName", "channel_name", "author"}
	viewKeys         = []string{"viewCount", "view_count", "views"}
	likeKeys         = []string{"likeCount", "like_count", "likes"}
	subscriberKeys   = []string{"subscriberCount", "subscriber_count", "subscribers", "channelSubscribers", "channel_subscribers"}
	publishedKeys    = []string{"publishedAt", "published_at", "uploadDate", "upload_date", "published"}
	thumbnailKeys    = []string{"thumbnailUrl", "thumbnail_url", "thumbnail"}
)

// normalizeItem reads fields by fallback keys. Missing numbers become zero
// and missing dates stay unknown; only an item with no id is rejected.
func normalizeItem(item map[string]any, now time.Time) (model.EnrichedVideo, bool) {
	id := stringField(item, idKeys)
	if id == "" {
		if nested, ok := item["id"].(map[string]any); ok {
			id = stringField(nested, []string{"videoId"})
		}
	}
	if id == "" {
		return model.EnrichedVideo{}, false
	}

	ev := model.EnrichedVideo{
		Video: model.Video{
			VideoID:      id,
			ChannelID:    stringField(item, channelIDKeys),
			Title:        stringField(item, titleKeys),
			ThumbnailURL: thumbnailField(item),
			PublishedAt:  scoring.ParseTimestamp(stringField(item, publishedKeys)),
			LastUpdated:  now,
		},
		ChannelTitle: stringField(item, channelTitleKeys),
	}
	if ch, ok := item["channel"].(map[string]any); ok {
		if ev.ChannelID == "" {
			ev.ChannelID = stringField(ch, []string{"id", "channelId"})
		}
		if ev.ChannelTitle == "" {
			ev.ChannelTitle = stringField(ch, []string{"title", "name"})
		}
		if subs, ok := countField(ch, subscriberKeys); ok {
			ev.SubscriberCount = subs
		}
	}
	if views, ok := countField(item, viewKeys); ok {
		ev.ViewCount = views
	}
	if likes, ok := countField(item, likeKeys); ok {
		ev.LikeCount = &likes
	}
	if subs, ok := countField(item, subscriberKeys); ok {
		ev.SubscriberCount = subs
	}
	return ev, true
}

func stringField(m map[string]any, keys []string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func thumbnailField(m map[string]any) string {
	if s := stringField(m, thumbnailKeys); s != "" {
		return s
	}
	if arr, ok := m["thumbnails"].([]any); ok {
		for _, t := range arr {
			if tm, ok := t.(map[string]any); ok {
				if s := stringField(tm, []string{"url"}); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func countField(m map[string]any, keys []string) (int64, bool) {
	for _, k := range keys {
		if n, ok := parseCount(m[k]); ok {
			return n, true
		}
	}
	return 0, false
}

var countSuffixes = map[byte]float64{'k': 1e3, 'm': 1e6, 'b': 1e9}

// parseCount accepts JSON numbers and display strings like "1,234",
// "1.2M views" or "15K".
func parseCount(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		if n < 0 || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(n), true
	case string:
		s := strings.ToLower(strings.TrimSpace(n))
		s = strings.TrimSuffix(s, " views")
		s = strings.TrimSuffix(s, " subscribers")
		s = strings.ReplaceAll(s, ",", "")
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		mult := 1.0
		if f, ok := countSuffixes[s[len(s)-1]]; ok {
			mult = f
			s = s[:len(s)-1]
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return 0, false
		}
		return int64(math.Round(f * mult)), true
	}
	return 0, false
}
