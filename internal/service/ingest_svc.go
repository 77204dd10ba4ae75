package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/metrics"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/provider"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/scoring"
)

// ErrIngestNotConfigured is returned when a run is requested but no primary
// provider exists.
var ErrIngestNotConfigured = errors.New("ingestion provider not configured")

// Trigger sources recorded on the job row.
const (
	TriggerHTTP = "http"
	TriggerCron = "cron"
)

const (
	maxErrorMessageLen = 500
	finalWriteTimeout  = 5 * time.Second
)

type JobStore interface {
	Create(ctx context.Context, job *model.IngestionJob) error
	Complete(ctx context.Context, id string, units int, meta model.JobMetadata) error
	Fail(ctx context.Context, id string, units int, meta model.JobMetadata, msg string) error
}

type KeywordStore interface {
	DueKeywords(ctx context.Context, limit int, cooldown time.Duration) ([]model.Keyword, error)
	MarkIngested(ctx context.Context, keywordID int64) error
}

type VideoStore interface {
	SaveIngested(ctx context.Context, keywordID int64, videos []model.EnrichedVideo) (repository.SaveResult, error)
}

// QuotaCounter is the shared per-day unit counter. Reads and increments are
// not atomic together, so concurrent runs may overshoot the cap slightly.
type QuotaCounter interface {
	Used(ctx context.Context, dayStart time.Time) (int, error)
	Add(ctx context.Context, dayStart time.Time, jobID string, units int) error
}

type JobPublisher interface {
	PublishJob(ctx context.Context, job model.IngestionJob)
}

// SearchInvalidator drops cached search responses after new data lands.
type SearchInvalidator interface {
	BumpSearchGeneration(ctx context.Context) error
}

type IngestConfig struct {
	BatchSize       int
	Cooldown        time.Duration
	DailyCap        int
	ProviderTimeout time.Duration
	RunBudget       time.Duration
	Location        *time.Location
}

// IngestService runs keyword ingestion jobs.
type IngestService struct {
	jobs      JobStore
	keywords  KeywordStore
	videos    VideoStore
	quota     QuotaCounter
	primary   provider.Provider
	secondary provider.Provider
	events    JobPublisher
	cache     SearchInvalidator
	cfg       IngestConfig
	now       func() time.Time
	newID     func() string
}

func NewIngestService(jobs JobStore, keywords KeywordStore, videos VideoStore, quota QuotaCounter, cfg IngestConfig) *IngestService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &IngestService{
		jobs:     jobs,
		keywords: keywords,
		videos:   videos,
		quota:    quota,
		cfg:      cfg,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// WithProviders sets the primary and optional secondary provider.
func (s *IngestService) WithProviders(primary, secondary provider.Provider) *IngestService {
	s.primary = primary
	s.secondary = secondary
	return s
}

func (s *IngestService) WithEvents(p JobPublisher) *IngestService {
	s.events = p
	return s
}

func (s *IngestService) WithCache(c SearchInvalidator) *IngestService {
	s.cache = c
	return s
}

// Configured reports whether a primary provider is available.
func (s *IngestService) Configured() bool {
	return s.primary != nil
}

// runState is threaded through one run. useSecondary is a one-way latch.
type runState struct {
	jobID        string
	dayStart     time.Time
	baseline     int
	units        int
	useSecondary bool
	meta         model.JobMetadata
}

func (st *runState) recordError(msg string) {
	st.meta.Errors = append(st.meta.Errors, msg)
}

// Run executes one ingestion job. The returned job reflects the persisted
// terminal state. A non-nil error means the job failed or could not be
// recorded at all.
func (s *IngestService) Run(ctx context.Context, trigger string) (*model.IngestionJob, error) {
	if s.primary == nil {
		return nil, ErrIngestNotConfigured
	}

	start := s.now()
	job := &model.IngestionJob{
		ID:        s.newID(),
		Status:    model.JobRunning,
		JobType:   model.JobTypeKeywordIngest,
		Trigger:   trigger,
		StartedAt: start.UTC(),
		Metadata: model.JobMetadata{
			Providers: map[string]string{},
			Errors:    []string{},
		},
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create ingestion job: %w", err)
	}

	st := &runState{
		jobID:    job.ID,
		dayStart: quotaDayStart(start, s.cfg.Location),
		meta:     job.Metadata,
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.RunBudget)
	defer cancel()

	runErr := s.runKeywords(ctx, runCtx, st)

	// The run context may be spent; the final write still has to land.
	writeCtx, cancelWrite := context.WithTimeout(context.WithoutCancel(ctx), finalWriteTimeout)
	defer cancelWrite()

	job.QuotaUnitsUsed = st.units
	job.Metadata = st.meta
	completedAt := s.now().UTC()
	job.CompletedAt = &completedAt

	if runErr != nil {
		msg := truncate(runErr.Error(), maxErrorMessageLen)
		job.Status = model.JobFailed
		job.ErrorMessage = &msg
		if err := s.jobs.Fail(writeCtx, job.ID, st.units, st.meta, msg); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("ingest: could not record job failure")
		}
		log.Error().Err(runErr).Str("job_id", job.ID).Int("units", st.units).Msg("ingest: job failed")
	} else {
		job.Status = model.JobCompleted
		if err := s.jobs.Complete(writeCtx, job.ID, st.units, st.meta); err != nil {
			log.Error().Err(err).Str("job_id", job.ID).Msg("ingest: could not record job completion")
			return job, fmt.Errorf("complete ingestion job: %w", err)
		}
		log.Info().
			Str("job_id", job.ID).
			Str("trigger", trigger).
			Int("units", st.units).
			Int("keywords", st.meta.KeywordsProcessed).
			Int("videos", st.meta.VideosUpserted).
			Bool("stopped_for_quota", st.meta.StoppedForQuota).
			Int("errors", len(st.meta.Errors)).
			Msg("ingest: job completed")
	}

	metrics.JobsTotal.WithLabelValues(job.Status).Inc()
	metrics.JobDuration.Observe(s.now().Sub(start).Seconds())

	if st.meta.VideosUpserted > 0 && s.cache != nil {
		if err := s.cache.BumpSearchGeneration(writeCtx); err != nil {
			log.Warn().Err(err).Msg("ingest: could not invalidate search cache")
		}
	}
	if s.events != nil {
		s.events.PublishJob(writeCtx, *job)
	}

	if runErr != nil {
		return job, runErr
	}
	return job, nil
}

// runKeywords processes due keywords sequentially. Only data-store outages and
// cancellation of the caller's context are returned; every other failure is
// recorded on the run state.
func (s *IngestService) runKeywords(parent, ctx context.Context, st *runState) error {
	baseline, err := s.quota.Used(ctx, st.dayStart)
	if err != nil {
		return fmt.Errorf("read quota counter: %w", err)
	}
	st.baseline = baseline

	keywords, err := s.keywords.DueKeywords(ctx, s.cfg.BatchSize, s.cfg.Cooldown)
	if err != nil {
		return fmt.Errorf("load due keywords: %w", err)
	}
	if len(keywords) == 0 {
		log.Info().Str("job_id", st.jobID).Msg("ingest: no keywords due")
		return nil
	}

	for i, kw := range keywords {
		if err := parent.Err(); err != nil {
			return err
		}
		if ctx.Err() != nil {
			st.recordError(fmt.Sprintf("run budget exhausted; %d keywords not processed", len(keywords)-i))
			return nil
		}

		p := s.primary
		if st.useSecondary {
			p = s.secondary
		}

		if p == s.primary {
			used := s.quotaUsed(ctx, st)
			if used+p.EstimatedCost() > s.cfg.DailyCap {
				if s.secondary == nil {
					st.meta.StoppedForQuota = true
					st.recordError(fmt.Sprintf("%s: skipped, daily quota cap reached (%d of %d units used)", kw.Keyword, used, s.cfg.DailyCap))
					log.Warn().Str("job_id", st.jobID).Int("used", used).Int("cap", s.cfg.DailyCap).Msg("ingest: quota cap reached, stopping run")
					return nil
				}
				log.Info().Str("job_id", st.jobID).Int("used", used).Msg("ingest: quota cap reached, switching to secondary provider")
				st.useSecondary = true
				p = s.secondary
			}
		}

		res, err := s.call(ctx, p, kw.Keyword)
		if err != nil {
			if p != s.primary || !provider.IsQuotaError(err) {
				st.recordError(fmt.Sprintf("%s: %s: %v", kw.Keyword, p.Name(), err))
				continue
			}
			if s.secondary == nil {
				s.charge(ctx, st, p, p.EstimatedCost())
				st.meta.StoppedForQuota = true
				st.recordError(fmt.Sprintf("%s: %s: %v", kw.Keyword, p.Name(), err))
				log.Warn().Str("job_id", st.jobID).Msg("ingest: upstream quota exhausted, stopping run")
				return nil
			}

			st.useSecondary = true
			fallback, ferr := s.call(ctx, s.secondary, kw.Keyword)
			if ferr != nil {
				st.recordError(fmt.Sprintf("%s: %s quota exceeded (%v); %s failed: %v",
					kw.Keyword, p.Name(), err, s.secondary.Name(), ferr))
				s.charge(ctx, st, p, p.EstimatedCost())
				continue
			}
			res, p = fallback, s.secondary
		}

		s.charge(ctx, st, p, res.QuotaUnitsUsed)
		st.meta.Providers[kw.Keyword] = p.Name()

		if err := s.persist(ctx, st, kw, res.Videos); err != nil {
			if perr := parent.Err(); perr != nil {
				return perr
			}
			// A write cut off by the run budget is not a store outage.
			if ctx.Err() != nil {
				st.recordError(fmt.Sprintf("run budget exhausted; %d keywords not processed", len(keywords)-i))
				return nil
			}
			if repository.IsUnavailable(err) {
				return err
			}
			st.meta.KeywordsProcessed++
			st.recordError(fmt.Sprintf("%s: persist: %v", kw.Keyword, err))
			continue
		}
		st.meta.KeywordsProcessed++
		log.Debug().
			Str("job_id", st.jobID).
			Str("keyword", kw.Keyword).
			Str("provider", p.Name()).
			Int("videos", len(res.Videos)).
			Int("units", res.QuotaUnitsUsed).
			Msg("ingest: keyword done")
	}
	return nil
}

// persist writes a keyword's videos and stamps the keyword. A result with no
// videos still stamps it, so an exhausted keyword waits out its cooldown.
func (s *IngestService) persist(ctx context.Context, st *runState, kw model.Keyword, videos []model.EnrichedVideo) error {
	if len(videos) > 0 {
		scoring.ClassifyBatch(videos, s.now())
		saved, err := s.videos.SaveIngested(ctx, kw.ID, videos)
		if err != nil {
			return err
		}
		st.meta.VideosUpserted += saved.Videos
		st.meta.ChannelsUpserted += saved.Channels
		metrics.VideosUpserted.Add(float64(saved.Videos))
	}
	return s.keywords.MarkIngested(ctx, kw.ID)
}

func (s *IngestService) call(ctx context.Context, p provider.Provider, query string) (*provider.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()

	res, err := p.SearchAndEnrich(callCtx, query)
	if err != nil {
		kind := "error"
		if provider.IsQuotaError(err) {
			kind = "quota"
		} else if errors.Is(err, context.DeadlineExceeded) {
			kind = "timeout"
		}
		metrics.ProviderErrors.WithLabelValues(p.Name(), kind).Inc()
		return nil, err
	}
	if res == nil {
		res = &provider.Result{}
	}
	return res, nil
}

// quotaUsed prefers the shared counter and falls back to the local view when
// the counter cannot be read.
func (s *IngestService) quotaUsed(ctx context.Context, st *runState) int {
	used, err := s.quota.Used(ctx, st.dayStart)
	if err != nil {
		log.Warn().Err(err).Str("job_id", st.jobID).Msg("ingest: quota counter unreadable, using local count")
		return st.baseline + st.units
	}
	return used
}

func (s *IngestService) charge(ctx context.Context, st *runState, p provider.Provider, units int) {
	if units <= 0 {
		return
	}
	st.units += units
	metrics.QuotaUnits.WithLabelValues(p.Name()).Add(float64(units))
	if err := s.quota.Add(ctx, st.dayStart, st.jobID, units); err != nil {
		log.Warn().Err(err).Str("job_id", st.jobID).Int("units", units).Msg("ingest: could not increment quota counter")
	}
}

// quotaDayStart returns midnight of t's day in loc.
func quotaDayStart(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
