package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

type KeywordRepo struct {
	pool *pgxpool.Pool
}

func NewKeywordRepo(pool *pgxpool.Pool) *KeywordRepo {
	return &KeywordRepo{pool: pool}
}

// DueKeywords returns up to limit keywords that were never ingested or whose
// cooldown has elapsed, highest priority first, then longest idle.
func (r *KeywordRepo) DueKeywords(ctx context.Context, limit int, cooldown time.Duration) ([]model.Keyword, error) {
	query := `
		SELECT id, keyword, niche, priority, last_ingested_at
		FROM keywords
		WHERE last_ingested_at IS NULL
		   OR last_ingested_at <= NOW() - make_interval(secs => $1)
		ORDER BY priority DESC, last_ingested_at ASC NULLS FIRST, id
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, cooldown.Seconds(), limit)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var keywords []model.Keyword
	for rows.Next() {
		var k model.Keyword
		if err := rows.Scan(&k.ID, &k.Keyword, &k.Niche, &k.Priority, &k.LastIngestedAt); err != nil {
			return nil, classify(err)
		}
		keywords = append(keywords, k)
	}
	return keywords, classify(rows.Err())
}

// CountDue reports how many keywords are currently due.
func (r *KeywordRepo) CountDue(ctx context.Context, cooldown time.Duration) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM keywords
		WHERE last_ingested_at IS NULL
		   OR last_ingested_at <= NOW() - make_interval(secs => $1)`,
		cooldown.Seconds()).Scan(&n)
	return n, classify(err)
}

// MarkIngested stamps the keyword so it is skipped until the cooldown passes.
func (r *KeywordRepo) MarkIngested(ctx context.Context, keywordID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE keywords SET last_ingested_at = NOW() WHERE id = $1`, keywordID)
	return classify(err)
}

// UpsertKeywords inserts seed keywords keyed by (keyword, niche). Existing
// rows only get their priority updated; ingestion history is preserved.
func (r *KeywordRepo) UpsertKeywords(ctx context.Context, keywords []model.Keyword) (int, error) {
	batch := &pgx.Batch{}
	n := 0
	for _, k := range keywords {
		text := strings.TrimSpace(k.Keyword)
		if text == "" {
			continue
		}
		batch.Queue(`
			INSERT INTO keywords (keyword, niche, priority)
			VALUES ($1, $2, $3)
			ON CONFLICT (keyword, niche) DO UPDATE SET priority = EXCLUDED.priority`,
			text, strings.TrimSpace(k.Niche), k.Priority)
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return 0, classify(err)
	}
	return n, nil
}
