package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/pkg/hash"
)

const searchGenerationKey = "search:gen"

// CacheService is a Redis cache-aside layer for search responses. Keys embed
// a generation number, so bumping the generation invalidates every cached
// search at once.
type CacheService struct {
	rdb *redis.Client
}

// NewCacheService connects to redisURL. If the URL is empty or unreachable it
// returns a CacheService with a nil client and cache operations become no-ops.
func NewCacheService(redisURL string) *CacheService {
	if redisURL == "" {
		log.Info().Msg("redis: no URL configured, caching disabled")
		return &CacheService{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis: invalid URL, caching disabled")
		return &CacheService{}
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis: connection failed, caching disabled")
		rdb.Close()
		return &CacheService{}
	}

	log.Info().Msg("redis: connected, caching enabled")
	return &CacheService{rdb: rdb}
}

// NewCacheServiceWithClient wraps an existing client.
func NewCacheServiceWithClient(rdb *redis.Client) *CacheService {
	return &CacheService{rdb: rdb}
}

// Client returns the underlying Redis client. May be nil.
func (c *CacheService) Client() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

func (c *CacheService) enabled() bool {
	return c != nil && c.rdb != nil
}

// GetSearch returns a cached search response, or nil on a miss.
func (c *CacheService) GetSearch(ctx context.Context, mode, query string) ([]byte, error) {
	if !c.enabled() {
		return nil, nil
	}
	key, err := c.searchKey(ctx, mode, query)
	if err != nil {
		return nil, err
	}
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// SetSearch stores a search response under the current generation.
func (c *CacheService) SetSearch(ctx context.Context, mode, query string, data any, ttl time.Duration) error {
	if !c.enabled() || ttl <= 0 {
		return nil
	}
	key, err := c.searchKey(ctx, mode, query)
	if err != nil {
		return err
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, key, b, ttl).Err()
}

// BumpSearchGeneration invalidates all cached searches. Old entries expire on
// their own TTL.
func (c *CacheService) BumpSearchGeneration(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Incr(ctx, searchGenerationKey).Err()
}

// Close shuts down the Redis connection.
func (c *CacheService) Close() error {
	if !c.enabled() {
		return nil
	}
	return c.rdb.Close()
}

func (c *CacheService) searchKey(ctx context.Context, mode, query string) (string, error) {
	gen, err := c.rdb.Get(ctx, searchGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return searchKey(gen, mode, query), nil
}

func searchKey(gen int64, mode, query string) string {
	normalized := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("search:v%d:%s:%s", gen, mode, hash.ShortHash(normalized, 16))
}
