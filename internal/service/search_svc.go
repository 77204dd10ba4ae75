package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/metrics"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/repository"
	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/scoring"
)

// Search modes.
const (
	ModeMomentum = "momentum"
	ModeProven   = "proven"
)

// Search result tiers.
const (
	SearchStrict   = "strict"
	SearchExpanded = "expanded"
	SearchNone     = "none"
)

// Acceptance thresholds. Windows apply in momentum mode only.
const (
	strictMultiplier   = 3.0
	strictWindowDays   = 60
	expandedMultiplier = 2.5
	expandedWindowDays = 90

	nearMissMin        = 2.5
	nearMissMax        = 3.0
	nearMissWindowDays = 90
	nearMissLimit      = 3

	risingMin        = 2.0
	risingMax        = 3.0
	risingWindowDays = 60
	risingLimit      = 10
	risingTier       = "RISING"
)

type CandidateStore interface {
	FindCandidates(ctx context.Context, query string, limit int) ([]model.EnrichedVideo, error)
}

// TierPolicy describes one acceptance tier and how many candidates passed it.
type TierPolicy struct {
	MinMultiplier float64 `json:"minMultiplier"`
	WindowDays    int     `json:"windowDays,omitempty"`
	Evaluated     bool    `json:"evaluated"`
	Count         int     `json:"count"`
}

type NearMiss struct {
	model.VideoResponse
	Reason string `json:"reason"`
}

type RisingSignal struct {
	model.VideoResponse
	Tier string `json:"tier"`
}

type SearchResponse struct {
	Query          string                 `json:"query"`
	Mode           string                 `json:"mode"`
	SearchType     string                 `json:"searchType"`
	Results        []model.VideoResponse  `json:"results"`
	Strict         TierPolicy             `json:"strict"`
	Expanded       TierPolicy             `json:"expanded"`
	NearMisses     []NearMiss             `json:"nearMisses,omitempty"`
	RisingSignals  []RisingSignal         `json:"risingSignals,omitempty"`
	NicheAnalysis  *scoring.NicheAnalysis `json:"nicheAnalysis,omitempty"`
	CandidateCount int                    `json:"candidateCount"`
	GeneratedAt    time.Time              `json:"generatedAt"`
}

// SearchService answers outlier queries from stored data only. It never
// reaches an ingestion provider.
type SearchService struct {
	store CandidateStore
	cache *CacheService
	ttl   time.Duration
	now   func() time.Time
}

func NewSearchService(store CandidateStore, cache *CacheService, ttl time.Duration) *SearchService {
	return &SearchService{store: store, cache: cache, ttl: ttl, now: time.Now}
}

// Search runs the planner for query in mode. Cached responses are served when
// available; cache failures fall through to the store.
func (s *SearchService) Search(ctx context.Context, query, mode string) (*SearchResponse, error) {
	query = strings.TrimSpace(query)
	if mode == "" {
		mode = ModeMomentum
	}

	if data, err := s.cache.GetSearch(ctx, mode, query); err != nil {
		log.Warn().Err(err).Msg("search: cache read failed")
	} else if data != nil {
		var cached SearchResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			metrics.CacheHits.Inc()
			return &cached, nil
		}
	}
	metrics.CacheMisses.Inc()

	candidates, err := s.store.FindCandidates(ctx, query, repository.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}

	resp := plan(query, mode, candidates, s.now().UTC())
	metrics.SearchesTotal.WithLabelValues(mode, resp.SearchType).Inc()

	if err := s.cache.SetSearch(ctx, mode, query, resp, s.ttl); err != nil {
		log.Warn().Err(err).Msg("search: cache write failed")
	}
	return resp, nil
}

// plan applies the two-tier acceptance policy to candidates. Strict is
// evaluated first; expanded is only consulted when strict is empty.
func plan(query, mode string, candidates []model.EnrichedVideo, now time.Time) *SearchResponse {
	momentum := mode != ModeProven
	pool := make([]model.EnrichedVideo, len(candidates))
	copy(pool, candidates)
	for i := range pool {
		scoring.Enrich(&pool[i], now)
	}

	resp := &SearchResponse{
		Query:          query,
		Mode:           mode,
		SearchType:     SearchNone,
		Results:        []model.VideoResponse{},
		Strict:         TierPolicy{MinMultiplier: strictMultiplier, Evaluated: true},
		Expanded:       TierPolicy{MinMultiplier: expandedMultiplier},
		CandidateCount: len(pool),
		GeneratedAt:    now,
	}
	if momentum {
		resp.Strict.WindowDays = strictWindowDays
		resp.Expanded.WindowDays = expandedWindowDays
	}

	accepted := filter(pool, func(v model.EnrichedVideo) bool {
		return v.ViralityMultiplier >= strictMultiplier && inWindow(v, momentum, strictWindowDays, now)
	})
	resp.Strict.Count = len(accepted)
	if len(accepted) > 0 {
		resp.SearchType = SearchStrict
	} else {
		resp.Expanded.Evaluated = true
		accepted = filter(pool, func(v model.EnrichedVideo) bool {
			return v.ViralityMultiplier >= expandedMultiplier && inWindow(v, momentum, expandedWindowDays, now)
		})
		resp.Expanded.Count = len(accepted)
		if len(accepted) > 0 {
			resp.SearchType = SearchExpanded
		}
	}

	agg := scoring.Aggregate(accepted)
	for i := range accepted {
		v := &accepted[i]
		v.Tiers = scoring.Classify(scoring.ClassifyInput{
			Views:              v.ViewCount,
			Subscribers:        v.SubscriberCount,
			ViewsPerDay:        v.ViewsPerDay,
			LikeRatio:          v.LikeRatio,
			NicheAvgMultiplier: agg.AvgMultiplier,
			NicheAvgLikeRatio:  agg.AvgLikeRatio,
			BreakoutCount:      agg.BreakoutCount,
		}).Names()
	}
	sortResults(accepted)
	for _, v := range accepted {
		resp.Results = append(resp.Results, model.NewVideoResponse(v))
	}

	inResults := make(map[string]bool, len(accepted))
	for _, v := range accepted {
		inResults[v.VideoID] = true
	}

	near := filter(pool, func(v model.EnrichedVideo) bool {
		return !inResults[v.VideoID] &&
			v.ViralityMultiplier >= nearMissMin && v.ViralityMultiplier < nearMissMax &&
			inWindow(v, momentum, nearMissWindowDays, now)
	})
	sortByMultiplier(near)
	for i, v := range near {
		if i == nearMissLimit {
			break
		}
		resp.NearMisses = append(resp.NearMisses, NearMiss{
			VideoResponse: model.NewVideoResponse(v),
			Reason:        fmt.Sprintf("%.1fx_multiplier", v.ViralityMultiplier),
		})
	}

	rising := filter(pool, func(v model.EnrichedVideo) bool {
		return !inResults[v.VideoID] &&
			v.ViralityMultiplier >= risingMin && v.ViralityMultiplier < risingMax &&
			inWindow(v, momentum, risingWindowDays, now)
	})
	sortByMultiplier(rising)
	for i, v := range rising {
		if i == risingLimit {
			break
		}
		resp.RisingSignals = append(resp.RisingSignals, RisingSignal{
			VideoResponse: model.NewVideoResponse(v),
			Tier:          risingTier,
		})
	}

	if len(accepted) == 0 && len(pool) > 0 {
		resp.NicheAnalysis = scoring.AnalyzeNiche(query, pool, now)
	}
	return resp
}

// inWindow applies the momentum publish-date window. Unknown dates never pass
// a momentum window.
func inWindow(v model.EnrichedVideo, momentum bool, days int, now time.Time) bool {
	return !momentum || scoring.PublishedWithin(v.PublishedAt, days, now)
}

func filter(videos []model.EnrichedVideo, keep func(model.EnrichedVideo) bool) []model.EnrichedVideo {
	var out []model.EnrichedVideo
	for _, v := range videos {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// sortResults orders by outlier score, then multiplier, then views.
func sortResults(videos []model.EnrichedVideo) {
	sort.SliceStable(videos, func(i, j int) bool {
		a, b := videos[i], videos[j]
		as, bs := score(a), score(b)
		if as != bs {
			return as > bs
		}
		if a.ViralityMultiplier != b.ViralityMultiplier {
			return a.ViralityMultiplier > b.ViralityMultiplier
		}
		return a.ViewCount > b.ViewCount
	})
}

func sortByMultiplier(videos []model.EnrichedVideo) {
	sort.SliceStable(videos, func(i, j int) bool {
		if videos[i].ViralityMultiplier != videos[j].ViralityMultiplier {
			return videos[i].ViralityMultiplier > videos[j].ViralityMultiplier
		}
		return videos[i].ViewCount > videos[j].ViewCount
	})
}

func score(v model.EnrichedVideo) float64 {
	if v.OutlierScore == nil {
		return 0
	}
	return *v.OutlierScore
}
