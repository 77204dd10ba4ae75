package scoring

import (
	"time"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

// Tier is a single qualitative classification. Tiers combine into a TierSet.
type Tier uint8

const (
	TierBreakout Tier = 1 << iota
	TierEmerging
	TierHighSignal
	TierNicheOutlier
)

var tierNames = []struct {
	tier Tier
	name string
}{
	{TierBreakout, "breakout"},
	{TierEmerging, "emerging"},
	{TierHighSignal, "high_signal"},
	{TierNicheOutlier, "niche_outlier"},
}

func (t Tier) String() string {
	for _, tn := range tierNames {
		if tn.tier == t {
			return tn.name
		}
	}
	return "unknown"
}

// TierSet is an additive set of tiers.
type TierSet uint8

func (s TierSet) Has(t Tier) bool { return s&TierSet(t) != 0 }

func (s TierSet) Add(t Tier) TierSet { return s | TierSet(t) }

// Names returns the set members in canonical order.
func (s TierSet) Names() []string {
	names := make([]string, 0, len(tierNames))
	for _, tn := range tierNames {
		if s.Has(tn.tier) {
			names = append(names, tn.name)
		}
	}
	return names
}

// Classification thresholds.
const (
	breakoutMultiplier     = 3.0
	breakoutMinViews       = 1_000
	emergingMinViewsPerDay = 500
	emergingMinDailyReach  = 0.1
	highSignalLikeFactor   = 1.5
	nicheOutlierMultiplier = 2.0
	nicheOutlierFactor     = 3.0
)

// ClassifyInput carries one video's metrics plus the aggregates of the result
// set it belongs to.
type ClassifyInput struct {
	Views       int64
	Subscribers int64
	ViewsPerDay *float64
	LikeRatio   *float64

	NicheAvgMultiplier *float64
	NicheAvgLikeRatio  *float64
	BreakoutCount      int
}

// Classify returns every tier the video qualifies for.
func Classify(in ClassifyInput) TierSet {
	var tiers TierSet
	multiplier := ViralityMultiplier(in.Views, in.Subscribers)

	isBreakout := multiplier >= breakoutMultiplier && in.Views >= breakoutMinViews
	if isBreakout {
		tiers = tiers.Add(TierBreakout)
	}

	if in.ViewsPerDay != nil && *in.ViewsPerDay > emergingMinViewsPerDay {
		audience := float64(max(in.Subscribers, subscriberFloor))
		if *in.ViewsPerDay/audience > emergingMinDailyReach {
			tiers = tiers.Add(TierEmerging)
		}
	}

	if in.LikeRatio != nil && in.NicheAvgLikeRatio != nil && in.Views >= breakoutMinViews &&
		*in.LikeRatio > highSignalLikeFactor**in.NicheAvgLikeRatio {
		tiers = tiers.Add(TierHighSignal)
	}

	// Only meaningful in a weak niche: any breakout in the set suppresses it.
	if in.BreakoutCount == 0 && !isBreakout && in.NicheAvgMultiplier != nil &&
		multiplier >= nicheOutlierMultiplier &&
		multiplier >= nicheOutlierFactor**in.NicheAvgMultiplier {
		tiers = tiers.Add(TierNicheOutlier)
	}

	return tiers
}

// IsBreakout reports whether the raw counts clear the breakout bar.
func IsBreakout(views, subscribers int64) bool {
	return ViralityMultiplier(views, subscribers) >= breakoutMultiplier && views >= breakoutMinViews
}

// SetAggregates holds the niche-scoped values shared by every video in a set.
type SetAggregates struct {
	AvgMultiplier *float64
	AvgLikeRatio  *float64
	BreakoutCount int
}

// Aggregate computes niche aggregates over a result set.
func Aggregate(videos []model.EnrichedVideo) SetAggregates {
	multipliers := make([]float64, 0, len(videos))
	ratios := make([]float64, 0, len(videos))
	var agg SetAggregates
	for _, v := range videos {
		multipliers = append(multipliers, v.ViralityMultiplier)
		if v.LikeRatio != nil {
			ratios = append(ratios, *v.LikeRatio)
		}
		if IsBreakout(v.ViewCount, v.SubscriberCount) {
			agg.BreakoutCount++
		}
	}
	agg.AvgMultiplier = NicheAverageMultiplier(multipliers, DefaultTopN)
	agg.AvgLikeRatio = AverageLikeRatio(ratios)
	return agg
}

// Enrich recomputes the per-video derived fields from raw counts. Tiers are
// cleared; they only hold relative to the set a video is classified with.
func Enrich(v *model.EnrichedVideo, now time.Time) {
	v.Tiers = nil
	v.ViralityMultiplier = ViralityMultiplier(v.ViewCount, v.SubscriberCount)
	v.ViewsPerDay = ViewsPerDay(v.ViewCount, v.PublishedAt, now)
	v.LikeRatio = LikeRatio(v.LikeCount, v.ViewCount)
	score := CompositeOutlierScore(v.ViewCount, v.SubscriberCount, v.PublishedAt, now)
	v.OutlierScore = &score
}

// ClassifyBatch enriches and classifies videos in place using aggregates
// computed over the batch itself.
func ClassifyBatch(videos []model.EnrichedVideo, now time.Time) {
	for i := range videos {
		Enrich(&videos[i], now)
	}
	agg := Aggregate(videos)
	for i := range videos {
		v := &videos[i]
		v.Tiers = Classify(ClassifyInput{
			Views:              v.ViewCount,
			Subscribers:        v.SubscriberCount,
			ViewsPerDay:        v.ViewsPerDay,
			LikeRatio:          v.LikeRatio,
			NicheAvgMultiplier: agg.AvgMultiplier,
			NicheAvgLikeRatio:  agg.AvgLikeRatio,
			BreakoutCount:      agg.BreakoutCount,
		}).Names()
	}
}
