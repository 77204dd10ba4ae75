package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

// MaxCandidates caps the candidate pool a single search reads.
const MaxCandidates = 500

const videoColumns = `
	v.video_id, v.channel_id, v.title, COALESCE(v.thumbnail_url, ''), v.view_count, v.like_count,
	v.published_at, v.virality_multiplier, v.views_per_day, v.like_ratio, v.outlier_score,
	v.tiers, v.last_updated, COALESCE(c.title, ''), COALESCE(c.subscriber_count, 0)`

type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

// SaveResult counts rows written by SaveIngested.
type SaveResult struct {
	Channels int
	Videos   int
	Skipped  int
}

// SaveIngested upserts the channels and videos of one provider result and
// attaches every video to keywordID, all in one transaction. Videos without a
// channel id cannot satisfy the foreign key and are skipped.
func (r *VideoRepo) SaveIngested(ctx context.Context, keywordID int64, videos []model.EnrichedVideo) (SaveResult, error) {
	var res SaveResult
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return res, classify(err)
	}
	defer tx.Rollback(ctx)

	channels := make(map[string]model.Channel)
	var order []string
	var keep []model.EnrichedVideo
	for _, v := range videos {
		if v.VideoID == "" || v.ChannelID == "" {
			res.Skipped++
			continue
		}
		if _, ok := channels[v.ChannelID]; !ok {
			order = append(order, v.ChannelID)
		}
		channels[v.ChannelID] = v.Channel()
		keep = append(keep, v)
	}

	batch := &pgx.Batch{}
	for _, id := range order {
		queueChannelUpsert(batch, channels[id])
	}
	for _, v := range keep {
		queueVideoUpsert(batch, v)
		batch.Queue(`
			INSERT INTO video_keywords (video_id, keyword_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, v.VideoID, keywordID)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return res, classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return res, classify(err)
	}
	res.Channels = len(order)
	res.Videos = len(keep)
	return res, nil
}

func queueVideoUpsert(b *pgx.Batch, v model.EnrichedVideo) {
	b.Queue(`
		INSERT INTO videos (video_id, channel_id, title, thumbnail_url, view_count, like_count,
		                    published_at, virality_multiplier, views_per_day, like_ratio,
		                    outlier_score, tiers, last_updated)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, NOW())
		ON CONFLICT (video_id) DO UPDATE SET
			channel_id          = EXCLUDED.channel_id,
			title               = EXCLUDED.title,
			thumbnail_url       = COALESCE(EXCLUDED.thumbnail_url, videos.thumbnail_url),
			view_count          = EXCLUDED.view_count,
			like_count          = EXCLUDED.like_count,
			published_at        = COALESCE(EXCLUDED.published_at, videos.published_at),
			virality_multiplier = EXCLUDED.virality_multiplier,
			views_per_day       = EXCLUDED.views_per_day,
			like_ratio          = EXCLUDED.like_ratio,
			outlier_score       = EXCLUDED.outlier_score,
			tiers               = EXCLUDED.tiers,
			last_updated        = NOW()`,
		v.VideoID, v.ChannelID, v.Title, v.ThumbnailURL, v.ViewCount, v.LikeCount,
		v.PublishedAt, v.ViralityMultiplier, v.ViewsPerDay, v.LikeRatio,
		v.OutlierScore, v.Tiers,
	)
}

// FindCandidates returns videos attached to any keyword whose text contains
// query, case-insensitively. Most-viewed first, capped at limit.
func (r *VideoRepo) FindCandidates(ctx context.Context, query string, limit int) ([]model.EnrichedVideo, error) {
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}
	sql := `
		SELECT` + videoColumns + `
		FROM videos v
		LEFT JOIN channels c ON c.channel_id = v.channel_id
		WHERE EXISTS (
			SELECT 1 FROM video_keywords vk
			JOIN keywords k ON k.id = vk.keyword_id
			WHERE vk.video_id = v.video_id
			  AND k.keyword ILIKE '%' || $1::text || '%' ESCAPE '\'
		)
		ORDER BY v.view_count DESC, v.video_id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, escapeLike(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, classify(err)
	}
	return scanVideos(rows)
}

// FindByVideoID returns a single stored video with its channel.
func (r *VideoRepo) FindByVideoID(ctx context.Context, videoID string) (*model.EnrichedVideo, error) {
	sql := `
		SELECT` + videoColumns + `
		FROM videos v
		LEFT JOIN channels c ON c.channel_id = v.channel_id
		WHERE v.video_id = $1`

	v, err := scanVideo(r.pool.QueryRow(ctx, sql, videoID))
	if err != nil {
		return nil, classify(err)
	}
	return v, nil
}

// FindByChannel returns a channel's videos with the highest multiplier first.
func (r *VideoRepo) FindByChannel(ctx context.Context, channelID string, limit int) ([]model.EnrichedVideo, error) {
	sql := `
		SELECT` + videoColumns + `
		FROM videos v
		LEFT JOIN channels c ON c.channel_id = v.channel_id
		WHERE v.channel_id = $1
		ORDER BY v.virality_multiplier DESC, v.view_count DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, sql, channelID, limit)
	if err != nil {
		return nil, classify(err)
	}
	return scanVideos(rows)
}

func scanVideo(row pgx.Row) (*model.EnrichedVideo, error) {
	var v model.EnrichedVideo
	err := row.Scan(
		&v.VideoID, &v.ChannelID, &v.Title, &v.ThumbnailURL, &v.ViewCount, &v.LikeCount,
		&v.PublishedAt, &v.ViralityMultiplier, &v.ViewsPerDay, &v.LikeRatio, &v.OutlierScore,
		&v.Tiers, &v.LastUpdated, &v.ChannelTitle, &v.SubscriberCount,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVideos(rows pgx.Rows) ([]model.EnrichedVideo, error) {
	defer rows.Close()
	var videos []model.EnrichedVideo
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, classify(err)
		}
		videos = append(videos, *v)
	}
	return videos, classify(rows.Err())
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
