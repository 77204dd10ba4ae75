package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func newTestYouTube(t *testing.T, handler http.HandlerFunc) *YouTubeProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewYouTubeProvider(context.Background(), "test-key", 10, option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	p.now = func() time.Time { return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestYouTubeProvider_SearchAndEnrich(t *testing.T) {
	var calls atomic.Int32
	p := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			assert.Equal(t, "minecraft builds", r.URL.Query().Get("q"))
			assert.Equal(t, "video", r.URL.Query().Get("type"))
			fmt.Fprint(w, `{"items":[
				{"id":{"videoId":"v1"},"snippet":{"channelId":"c1","title":"Big"}},
				{"id":{"videoId":"v2"},"snippet":{"channelId":"c2","title":"Small"}},
				{"id":{"channelId":"skip"},"snippet":{"channelId":"c3"}}
			]}`)
		case strings.HasSuffix(r.URL.Path, "/videos"):
			fmt.Fprint(w, `{"items":[
				{"id":"v1","snippet":{"channelId":"c1","title":"Big","publishedAt":"2026-03-05T00:00:00Z",
					"thumbnails":{"high":{"url":"https://img/v1.jpg"}}},
				 "statistics":{"viewCount":"5000","likeCount":"250"}},
				{"id":"v2","snippet":{"channelId":"c2","title":"Small","publishedAt":"2026-03-05T00:00:00Z"},
				 "statistics":{"viewCount":"300"}}
			]}`)
		case strings.HasSuffix(r.URL.Path, "/channels"):
			fmt.Fprint(w, `{"items":[
				{"id":"c1","snippet":{"title":"Chan One"},"statistics":{"subscriberCount":"100"}},
				{"id":"c2","snippet":{"title":"Chan Two"},"statistics":{"subscriberCount":"1000"}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	})

	res, err := p.SearchAndEnrich(context.Background(), "minecraft builds")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 102, res.QuotaUnitsUsed)
	require.Len(t, res.Videos, 2)

	v1 := res.Videos[0]
	assert.Equal(t, "v1", v1.VideoID)
	assert.Equal(t, "Chan One", v1.ChannelTitle)
	assert.Equal(t, int64(100), v1.SubscriberCount)
	assert.InDelta(t, 50.0, v1.ViralityMultiplier, 1e-9)
	require.NotNil(t, v1.ViewsPerDay)
	assert.InDelta(t, 500.0, *v1.ViewsPerDay, 1e-9)
	require.NotNil(t, v1.LikeRatio)
	assert.InDelta(t, 0.05, *v1.LikeRatio, 1e-9)
	assert.Equal(t, "https://img/v1.jpg", v1.ThumbnailURL)

	v2 := res.Videos[1]
	assert.InDelta(t, 0.3, v2.ViralityMultiplier, 1e-9)
	assert.Nil(t, v2.LikeRatio)
}

func TestYouTubeProvider_EmptySearchCostsSearchOnly(t *testing.T) {
	p := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/search") {
			t.Errorf("unexpected call to %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	res, err := p.SearchAndEnrich(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Equal(t, 100, res.QuotaUnitsUsed)
	assert.Empty(t, res.Videos)
}

func TestYouTubeProvider_QuotaError(t *testing.T) {
	p := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error":{"code":403,"message":"The request cannot be completed because you have exceeded your quota.",
			"errors":[{"reason":"quotaExceeded","domain":"youtube.quota"}]}}`)
	})

	_, err := p.SearchAndEnrich(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.True(t, IsQuotaError(err))
}

func TestYouTubeProvider_ServerErrorIsNotQuota(t *testing.T) {
	p := newTestYouTube(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"bad request"}}`)
	})

	_, err := p.SearchAndEnrich(context.Background(), "anything")
	require.Error(t, err)
	assert.False(t, IsQuotaError(err))
}

func TestIsQuotaError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"sentinel", fmt.Errorf("wrapped: %w", ErrQuotaExceeded), true},
		{"api 429", &googleapi.Error{Code: 429}, true},
		{"api 403 rate reason", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}}}, true},
		{"api 403 forbidden", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "forbidden"}}}, false},
		{"message", errors.New("daily Quota exhausted"), true},
		{"other", errors.New("connection reset"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsQuotaError(tt.err))
		})
	}
}
