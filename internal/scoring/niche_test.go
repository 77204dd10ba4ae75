package scoring

import (
	"reflect"
	"testing"
	"time"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

func candidate(multiplier float64, subs int64, published *time.Time) model.EnrichedVideo {
	return model.EnrichedVideo{
		Video: model.Video{
			ViewCount:          int64(multiplier * float64(max(subs, 100))),
			ViralityMultiplier: multiplier,
			PublishedAt:        published,
		},
		SubscriberCount: subs,
	}
}

func TestAnalyzeNiche_EmptyPool(t *testing.T) {
	if got := AnalyzeNiche("anything", nil, now); got != nil {
		t.Errorf("empty pool: got %+v, want nil", got)
	}
}

func TestAnalyzeNiche_EventDriven(t *testing.T) {
	sameDay := ptrTime(now.AddDate(0, 0, -200))
	var pool []model.EnrichedVideo
	for i := 0; i < 12; i++ {
		pool = append(pool, candidate(1.0, 500_000, sameDay))
	}
	// Saturated conditions also hold; event-driven is evaluated first.
	got := AnalyzeNiche("new iphone release", pool, now)
	if got.State != NicheEventDriven {
		t.Errorf("state = %s, want EVENT_DRIVEN", got.State)
	}
}

func TestAnalyzeNiche_Saturated(t *testing.T) {
	var pool []model.EnrichedVideo
	for i := 0; i < 12; i++ {
		pool = append(pool, candidate(1.2, 500_000, ptrTime(now.AddDate(0, 0, -i*7))))
	}
	got := AnalyzeNiche("sourdough bread", pool, now)
	if got.State != NicheSaturated {
		t.Errorf("state = %s, want SATURATED", got.State)
	}
	if got.Difficulty != "hard" {
		t.Errorf("difficulty = %s, want hard", got.Difficulty)
	}
	if got.Signals.MedianSubscribers != 500_000 {
		t.Errorf("median = %f, want 500000", got.Signals.MedianSubscribers)
	}
}

func TestAnalyzeNiche_Declining(t *testing.T) {
	old := ptrTime(now.AddDate(-1, 0, 0))
	pool := []model.EnrichedVideo{
		candidate(2.8, 1_000, old),
		candidate(1.0, 2_000, ptrTime(now.AddDate(0, 0, -10))),
		candidate(0.5, 3_000, nil),
	}
	got := AnalyzeNiche("sourdough bread", pool, now)
	if got.State != NicheDeclining {
		t.Errorf("state = %s, want DECLINING", got.State)
	}
	if !got.Signals.Declining {
		t.Error("declining signal should be set")
	}
}

func TestAnalyzeNiche_RecentPeakIsNotDeclining(t *testing.T) {
	pool := []model.EnrichedVideo{
		candidate(2.6, 1_000, ptrTime(now.AddDate(0, 0, -40))),
		candidate(1.0, 2_000, ptrTime(now.AddDate(0, 0, -200))),
	}
	got := AnalyzeNiche("sourdough bread", pool, now)
	if got.Signals.Declining {
		t.Error("a 2.6x video inside 90 days should clear the decline signal")
	}
}

func TestAnalyzeNiche_Emerging(t *testing.T) {
	var pool []model.EnrichedVideo
	for i := 0; i < 12; i++ {
		pool = append(pool, candidate(1.8, 5_000, ptrTime(now.AddDate(0, 0, -(i%6)-1))))
	}
	got := AnalyzeNiche("sourdough bread", pool, now)
	if got.State != NicheEmerging {
		t.Errorf("state = %s, want EMERGING (signals %+v)", got.State, got.Signals)
	}
}

func TestAnalyzeNiche_Quiet(t *testing.T) {
	var pool []model.EnrichedVideo
	for i := 0; i < 12; i++ {
		pool = append(pool, candidate(1.0, 5_000, ptrTime(now.AddDate(0, 0, -(i*20)-1))))
	}
	got := AnalyzeNiche("sourdough bread", pool, now)
	if got.State != NicheQuiet {
		t.Errorf("state = %s, want QUIET (signals %+v)", got.State, got.Signals)
	}
	if got.Explanation == "" {
		t.Error("explanation should not be empty")
	}
}

func TestAnalyzeNiche_SubscriberStatsIgnoreZero(t *testing.T) {
	pool := []model.EnrichedVideo{
		candidate(1, 0, nil),
		candidate(1, 100, nil),
		candidate(1, 300, nil),
	}
	got := AnalyzeNiche("x", pool, now)
	if !almostEqual(got.Signals.AvgSubscribers, 200) {
		t.Errorf("avg subs = %f, want 200", got.Signals.AvgSubscribers)
	}
	if !almostEqual(got.Signals.MedianSubscribers, 200) {
		t.Errorf("median subs = %f, want 200", got.Signals.MedianSubscribers)
	}
}

func TestStdDev(t *testing.T) {
	if got := stdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}); !almostEqual(got, 2) {
		t.Errorf("stdDev = %f, want 2", got)
	}
}

func TestSuggestQueries(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"Minecraft Builds", []string{"minecraft builds shorts", "minecraft builds tutorial"}},
		{"minecraft shorts", []string{"minecraft", "minecraft shorts tutorial"}},
		{"excel tutorial shorts", []string{"excel tutorial", "excel shorts", "excel"}},
		{"   ", []string{}},
	}
	for _, tt := range tests {
		got := SuggestQueries(tt.query)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("SuggestQueries(%q) = %v, want %v", tt.query, got, tt.want)
		}
		if len(got) > 3 {
			t.Errorf("SuggestQueries(%q) returned %d suggestions", tt.query, len(got))
		}
	}
}
