package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

// FindByChannelID returns a single channel by exact ID.
func (r *ChannelRepo) FindByChannelID(ctx context.Context, channelID string) (*model.Channel, error) {
	query := `
		SELECT channel_id, COALESCE(title, ''), subscriber_count, last_updated
		FROM channels
		WHERE channel_id = $1`

	var ch model.Channel
	err := r.pool.QueryRow(ctx, query, channelID).Scan(
		&ch.ChannelID, &ch.Title, &ch.SubscriberCount, &ch.LastUpdated,
	)
	if err != nil {
		return nil, classify(err)
	}
	return &ch, nil
}

// queueChannelUpsert overwrites the subscriber count; no history is kept.
// An empty title never replaces a known one.
func queueChannelUpsert(b *pgx.Batch, ch model.Channel) {
	b.Queue(`
		INSERT INTO channels (channel_id, title, subscriber_count, last_updated)
		VALUES ($1, NULLIF($2, ''), $3, NOW())
		ON CONFLICT (channel_id) DO UPDATE SET
			title            = COALESCE(EXCLUDED.title, channels.title),
			subscriber_count = EXCLUDED.subscriber_count,
			last_updated     = NOW()`,
		ch.ChannelID, ch.Title, ch.SubscriberCount,
	)
}
