package scoring

import (
	"math"
	"sort"
	"strings"
	"time"
)

const (
	// subscriberFloor stands in for the audience when a channel hides or
	// lacks its subscriber count.
	subscriberFloor = 100

	// minSamples is the smallest sample set an average is reported for.
	minSamples = 5

	// DefaultTopN is the canonical slice size for niche average multipliers.
	DefaultTopN = 10
)

// ViralityMultiplier returns views relative to channel size.
//
//	views / subscribers          when subscribers > 0
//	views / max(subscribers,100) otherwise
func ViralityMultiplier(views, subscribers int64) float64 {
	if views <= 0 {
		return 0
	}
	if subscribers <= 0 {
		return float64(views) / subscriberFloor
	}
	return float64(views) / float64(subscribers)
}

// ViewsPerDay returns the average daily views since publication, or nil when
// the publish date is unknown or not in the past.
func ViewsPerDay(views int64, publishedAt *time.Time, now time.Time) *float64 {
	if publishedAt == nil || publishedAt.IsZero() {
		return nil
	}
	days := now.Sub(*publishedAt).Hours() / 24
	if days <= 0 {
		return nil
	}
	if views < 0 {
		views = 0
	}
	v := float64(views) / days
	return &v
}

// LikeRatio returns likes/views clamped to [0,1], or nil when either side is
// unknown.
func LikeRatio(likes *int64, views int64) *float64 {
	if likes == nil || views <= 0 || *likes < 0 {
		return nil
	}
	r := math.Min(float64(*likes)/float64(views), 1)
	return &r
}

// AverageLikeRatio averages ratios inside [0,1]. Fewer than five valid samples
// yields nil.
func AverageLikeRatio(ratios []float64) *float64 {
	var sum float64
	n := 0
	for _, r := range ratios {
		if math.IsNaN(r) || r < 0 || r > 1 {
			continue
		}
		sum += r
		n++
	}
	if n < minSamples {
		return nil
	}
	avg := sum / float64(n)
	return &avg
}

// NicheAverageMultiplier averages the topN highest positive multipliers.
// topN <= 0 uses DefaultTopN. Fewer than five valid samples yields nil.
func NicheAverageMultiplier(multipliers []float64, topN int) *float64 {
	if topN <= 0 {
		topN = DefaultTopN
	}
	valid := make([]float64, 0, len(multipliers))
	for _, m := range multipliers {
		if m > 0 && !math.IsInf(m, 0) && !math.IsNaN(m) {
			valid = append(valid, m)
		}
	}
	if len(valid) < minSamples {
		return nil
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(valid)))
	if len(valid) > topN {
		valid = valid[:topN]
	}
	var sum float64
	for _, m := range valid {
		sum += m
	}
	avg := sum / float64(len(valid))
	return &avg
}

// CompositeOutlierScore blends virality, absolute scale, recency and channel
// size into a single ranking value:
//
//	base       = views / max(subscribers, 1)
//	confidence = log10(views)
//	freshness  = 1.5 (<7d), 1.2 (<30d), 1.0 (<=90d or unknown), 0.7 (older)
//	penalty    = 0.5 (>1M subs), 0.7 (>100k subs), 1.0 otherwise
func CompositeOutlierScore(views, subscribers int64, publishedAt *time.Time, now time.Time) float64 {
	if views <= 0 {
		return 0
	}
	base := float64(views) / float64(max(subscribers, 1))
	confidence := math.Log10(float64(views))

	score := base * confidence * freshnessFactor(publishedAt, now) * channelPenalty(subscribers)
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0
	}
	return score
}

func freshnessFactor(publishedAt *time.Time, now time.Time) float64 {
	if publishedAt == nil || publishedAt.IsZero() {
		return 1.0
	}
	days := now.Sub(*publishedAt).Hours() / 24
	switch {
	case days < 7:
		return 1.5
	case days < 30:
		return 1.2
	case days <= 90:
		return 1.0
	default:
		return 0.7
	}
}

func channelPenalty(subscribers int64) float64 {
	switch {
	case subscribers > 1_000_000:
		return 0.5
	case subscribers > 100_000:
		return 0.7
	default:
		return 1.0
	}
}

// PublishedWithin reports whether publishedAt falls inside the last days days.
// Unknown publish dates never qualify.
func PublishedWithin(publishedAt *time.Time, days int, now time.Time) bool {
	if publishedAt == nil || publishedAt.IsZero() {
		return false
	}
	return publishedAt.After(now.AddDate(0, 0, -days))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"20060102",
}

// ParseTimestamp parses the date shapes upstream payloads use. Unparseable or
// empty input yields nil.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
