package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Totals are the row counts reported by the stats endpoint.
type Totals struct {
	Channels      int64 `json:"channels"`
	Videos        int64 `json:"videos"`
	Keywords      int64 `json:"keywords"`
	BreakoutCount int64 `json:"breakoutVideos"`
	Jobs          int64 `json:"jobs"`
}

type StatsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) *StatsRepo {
	return &StatsRepo{pool: pool}
}

func (r *StatsRepo) Totals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM channels),
			(SELECT COUNT(*) FROM videos),
			(SELECT COUNT(*) FROM keywords),
			(SELECT COUNT(*) FROM videos WHERE 'breakout' = ANY(tiers)),
			(SELECT COUNT(*) FROM ingestion_jobs)`).
		Scan(&t.Channels, &t.Videos, &t.Keywords, &t.BreakoutCount, &t.Jobs)
	if err != nil {
		return nil, classify(err)
	}
	return &t, nil
}
