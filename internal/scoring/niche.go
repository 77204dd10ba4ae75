package scoring

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

// NicheState is the diagnostic label for a niche with no qualifying videos.
type NicheState string

const (
	NicheSaturated   NicheState = "SATURATED"
	NicheQuiet       NicheState = "QUIET"
	NicheEmerging    NicheState = "EMERGING"
	NicheEventDriven NicheState = "EVENT_DRIVEN"
	NicheDeclining   NicheState = "DECLINING"
)

const (
	velocityWindowDays   = 30
	burstMinSameDay      = 3
	declineMaxCandidates = 10
	declineWindowDays    = 90
	declineMultiplier    = 2.5
	saturatedMedianSubs  = 100_000
	saturatedMaxStdDev   = 1.0
	saturatedMaxPeak     = 2.0
	emergingMinVelocity  = 0.5
	emergingMinPeak      = 1.5
	maxSuggestions       = 3
)

var eventTerms = regexp.MustCompile(`(?i)\b(gaming|game|games|tech|ai|release|released|launch|update|patch|season|trailer|leak|leaks|announcement|iphone|android|gpt|event|news|review)\b`)

var formatWords = []string{"shorts", "tutorial"}

// NicheSignals are the raw statistics the decision table reads.
type NicheSignals struct {
	CandidateCount    int     `json:"candidateCount"`
	AvgSubscribers    float64 `json:"avgSubscribers"`
	MedianSubscribers float64 `json:"medianSubscribers"`
	MaxMultiplier     float64 `json:"maxMultiplier"`
	MultiplierStdDev  float64 `json:"multiplierStdDev"`
	UploadVelocity    float64 `json:"uploadVelocity"`
	EventVocabulary   bool    `json:"eventVocabulary"`
	Bursty            bool    `json:"bursty"`
	Declining         bool    `json:"declining"`
}

// NicheAnalysis is returned alongside an empty result set.
type NicheAnalysis struct {
	State            NicheState   `json:"state"`
	Explanation      string       `json:"explanation"`
	Difficulty       string       `json:"difficulty"`
	Signals          NicheSignals `json:"signals"`
	SuggestedQueries []string     `json:"suggestedQueries"`
}

// AnalyzeNiche diagnoses why a query produced no qualifying videos. It reads
// the unfiltered candidate pool. An empty pool yields nil.
func AnalyzeNiche(query string, candidates []model.EnrichedVideo, now time.Time) *NicheAnalysis {
	if len(candidates) == 0 {
		return nil
	}
	sig := computeSignals(query, candidates, now)
	state, explanation, difficulty := decide(sig)
	return &NicheAnalysis{
		State:            state,
		Explanation:      explanation,
		Difficulty:       difficulty,
		Signals:          sig,
		SuggestedQueries: SuggestQueries(query),
	}
}

func computeSignals(query string, candidates []model.EnrichedVideo, now time.Time) NicheSignals {
	sig := NicheSignals{
		CandidateCount:  len(candidates),
		EventVocabulary: eventTerms.MatchString(query),
	}

	var subs []float64
	multipliers := make([]float64, 0, len(candidates))
	recent := 0
	perDay := make(map[string]int)
	recentPeak := false

	for _, c := range candidates {
		if c.SubscriberCount > 0 {
			subs = append(subs, float64(c.SubscriberCount))
		}
		multipliers = append(multipliers, c.ViralityMultiplier)
		if c.ViralityMultiplier > sig.MaxMultiplier {
			sig.MaxMultiplier = c.ViralityMultiplier
		}
		if PublishedWithin(c.PublishedAt, velocityWindowDays, now) {
			recent++
		}
		if c.PublishedAt != nil && !c.PublishedAt.IsZero() {
			perDay[c.PublishedAt.UTC().Format("2006-01-02")]++
		}
		if c.ViralityMultiplier >= declineMultiplier && PublishedWithin(c.PublishedAt, declineWindowDays, now) {
			recentPeak = true
		}
	}

	sig.AvgSubscribers = mean(subs)
	sig.MedianSubscribers = median(subs)
	sig.MultiplierStdDev = stdDev(multipliers)
	sig.UploadVelocity = float64(recent) / float64(len(candidates))
	for _, n := range perDay {
		if n >= burstMinSameDay {
			sig.Bursty = true
			break
		}
	}
	sig.Declining = len(candidates) < declineMaxCandidates && !recentPeak
	return sig
}

// decide evaluates the table top to bottom; the first matching row wins.
func decide(s NicheSignals) (NicheState, string, string) {
	switch {
	case s.EventVocabulary && s.Bursty:
		return NicheEventDriven,
			"Views cluster around specific releases or events. Outliers appear in short windows after news breaks.",
			"timing-dependent"
	case s.MedianSubscribers >= saturatedMedianSubs && (s.MultiplierStdDev < saturatedMaxStdDev || s.MaxMultiplier < saturatedMaxPeak):
		return NicheSaturated,
			"Large channels dominate and perform close to their audience size. Small channels rarely break through.",
			"hard"
	case s.Declining:
		return NicheDeclining,
			"Few videos and no recent standouts. Interest in this topic appears to be fading.",
			"hard"
	case s.UploadVelocity >= emergingMinVelocity && s.MaxMultiplier >= emergingMinPeak:
		return NicheEmerging,
			"Most uploads are recent and some already outperform their channels. Breakouts may be close.",
			"moderate"
	default:
		return NicheQuiet,
			"Videos perform roughly in line with channel size. There is room for a standout but no current momentum.",
			"moderate"
	}
}

// SuggestQueries derives up to three alternate queries by toggling format
// words on the original terms.
func SuggestQueries(query string) []string {
	terms := strings.Fields(strings.ToLower(strings.TrimSpace(query)))
	if len(terms) == 0 {
		return []string{}
	}
	original := strings.Join(terms, " ")

	var base []string
	present := make(map[string]bool)
	for _, t := range terms {
		isFormat := false
		for _, f := range formatWords {
			if t == f {
				present[f] = true
				isFormat = true
			}
		}
		if !isFormat {
			base = append(base, t)
		}
	}

	var candidates []string
	for _, f := range formatWords {
		if present[f] {
			candidates = append(candidates, strings.Join(without(terms, f), " "))
		} else {
			candidates = append(candidates, original+" "+f)
		}
	}
	candidates = append(candidates, strings.Join(base, " "))

	out := make([]string, 0, maxSuggestions)
	seen := map[string]bool{original: true, "": true}
	for _, c := range candidates {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}

func without(terms []string, word string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t != word {
			out = append(out, t)
		}
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// stdDev is the population standard deviation.
func stdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(xs)))
}
