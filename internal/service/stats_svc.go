package service

import (
	"context"
	"fmt"
	"time"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
)

type TotalsStore interface {
	Totals(ctx context.Context) (*repository.Totals, error)
}

type DueCounter interface {
	CountDue(ctx context.Context, cooldown time.Duration) (int, error)
}

type JobLister interface {
	Recent(ctx context.Context, limit int) ([]model.IngestionJob, error)
}

// QuotaStatus is today's unit usage against the configured cap.
type QuotaStatus struct {
	Used      int       `json:"used"`
	Cap       int       `json:"cap"`
	Remaining int       `json:"remaining"`
	DayStart  time.Time `json:"dayStart"`
	Available bool      `json:"available"`
}

type StatsResponse struct {
	Totals      repository.Totals   `json:"totals"`
	DueKeywords int                 `json:"dueKeywords"`
	Quota       QuotaStatus         `json:"quota"`
	LatestJob   *model.IngestionJob `json:"latestJob"`
}

// StatsService assembles the operational snapshot served by /api/stats.
type StatsService struct {
	totals   TotalsStore
	due      DueCounter
	jobs     JobLister
	quota    QuotaCounter
	cap      int
	cooldown time.Duration
	loc      *time.Location
	now      func() time.Time
}

func NewStatsService(totals TotalsStore, due DueCounter, jobs JobLister, quota QuotaCounter, cfg IngestConfig) *StatsService {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		totals:   totals,
		due:      due,
		jobs:     jobs,
		quota:    quota,
		cap:      cfg.DailyCap,
		cooldown: cfg.Cooldown,
		loc:      loc,
		now:      time.Now,
	}
}

// Get returns the current snapshot. Store failures are returned; a quota
// counter failure only marks the quota block unavailable.
func (s *StatsService) Get(ctx context.Context) (*StatsResponse, error) {
	totals, err := s.totals.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("load totals: %w", err)
	}
	due, err := s.due.CountDue(ctx, s.cooldown)
	if err != nil {
		return nil, fmt.Errorf("count due keywords: %w", err)
	}
	recent, err := s.jobs.Recent(ctx, 1)
	if err != nil {
		return nil, fmt.Errorf("load latest job: %w", err)
	}

	resp := &StatsResponse{
		Totals:      *totals,
		DueKeywords: due,
		Quota: QuotaStatus{
			Cap:      s.cap,
			DayStart: quotaDayStart(s.now(), s.loc),
		},
	}
	if len(recent) > 0 {
		resp.LatestJob = &recent[0]
	}

	if used, err := s.quota.Used(ctx, resp.Quota.DayStart); err == nil {
		resp.Quota.Used = used
		resp.Quota.Remaining = max(s.cap-used, 0)
		resp.Quota.Available = true
	}
	return resp, nil
}
