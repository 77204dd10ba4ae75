package scoring

import (
	"testing"
	"time"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

func ptrFloat(f float64) *float64 { return &f }

func TestClassify_Breakout(t *testing.T) {
	tiers := Classify(ClassifyInput{Views: 10_000, Subscribers: 1_000})
	if !tiers.Has(TierBreakout) {
		t.Errorf("multiplier 10 with 10k views should be breakout, got %v", tiers.Names())
	}

	// Multiplier is high but the view floor is not met.
	tiers = Classify(ClassifyInput{Views: 900, Subscribers: 0})
	if tiers.Has(TierBreakout) {
		t.Error("900 views should not be breakout")
	}
}

func TestClassify_Emerging(t *testing.T) {
	tests := []struct {
		name string
		vpd  *float64
		subs int64
		want bool
	}{
		{"fast on small channel", ptrFloat(600), 1_000, true},
		{"floor applies", ptrFloat(600), 0, true},
		{"too slow", ptrFloat(500), 100, false},
		{"fast but channel too big", ptrFloat(600), 10_000, false},
		{"unknown velocity", nil, 100, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(ClassifyInput{Views: 5_000, Subscribers: tt.subs, ViewsPerDay: tt.vpd}).Has(TierEmerging)
			if got != tt.want {
				t.Errorf("emerging = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_HighSignal(t *testing.T) {
	in := ClassifyInput{
		Views:             2_000,
		Subscribers:       10_000,
		LikeRatio:         ptrFloat(0.08),
		NicheAvgLikeRatio: ptrFloat(0.04),
	}
	if !Classify(in).Has(TierHighSignal) {
		t.Error("0.08 > 1.5*0.04 should be high_signal")
	}

	in.LikeRatio = ptrFloat(0.06)
	if Classify(in).Has(TierHighSignal) {
		t.Error("0.06 is exactly 1.5x and must not qualify")
	}

	in.LikeRatio = ptrFloat(0.08)
	in.NicheAvgLikeRatio = nil
	if Classify(in).Has(TierHighSignal) {
		t.Error("unknown niche average must not qualify")
	}

	in.NicheAvgLikeRatio = ptrFloat(0.04)
	in.Views = 999
	if Classify(in).Has(TierHighSignal) {
		t.Error("below view floor must not qualify")
	}
}

func TestClassify_NicheOutlier(t *testing.T) {
	in := ClassifyInput{
		Views:              350,
		Subscribers:        100,
		NicheAvgMultiplier: ptrFloat(1.0),
	}
	tiers := Classify(in)
	if !tiers.Has(TierNicheOutlier) {
		t.Errorf("multiplier 3.5 with niche avg 1.0 should be niche_outlier, got %v", tiers.Names())
	}
	if tiers.Has(TierBreakout) {
		t.Error("350 views is below the breakout floor")
	}

	in.BreakoutCount = 1
	if Classify(in).Has(TierNicheOutlier) {
		t.Error("niche_outlier must not apply when the set has a breakout")
	}

	in.BreakoutCount = 0
	in.NicheAvgMultiplier = ptrFloat(1.5)
	if Classify(in).Has(TierNicheOutlier) {
		t.Error("3.5 < 3*1.5 must not qualify")
	}

	in.NicheAvgMultiplier = nil
	if Classify(in).Has(TierNicheOutlier) {
		t.Error("unknown niche average must not qualify")
	}
}

func TestClassify_NicheOutlierExcludesBreakout(t *testing.T) {
	tiers := Classify(ClassifyInput{Views: 10_000, Subscribers: 1_000, NicheAvgMultiplier: ptrFloat(1.0)})
	if tiers.Has(TierNicheOutlier) {
		t.Error("a breakout video is never also niche_outlier")
	}
}

func TestClassify_TiersAreAdditive(t *testing.T) {
	tiers := Classify(ClassifyInput{
		Views:             20_000,
		Subscribers:       1_000,
		ViewsPerDay:       ptrFloat(2_000),
		LikeRatio:         ptrFloat(0.1),
		NicheAvgLikeRatio: ptrFloat(0.03),
	})
	want := []string{"breakout", "emerging", "high_signal"}
	got := tiers.Names()
	if len(got) != len(want) {
		t.Fatalf("tiers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tiers[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTierSet_Names(t *testing.T) {
	s := TierSet(0).Add(TierNicheOutlier).Add(TierBreakout)
	got := s.Names()
	if len(got) != 2 || got[0] != "breakout" || got[1] != "niche_outlier" {
		t.Errorf("names = %v, want [breakout niche_outlier]", got)
	}
	if names := TierSet(0).Names(); names == nil || len(names) != 0 {
		t.Errorf("empty set names = %#v, want empty slice", names)
	}
}

func TestEnrich_ClearsStoredTiers(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	published := now.AddDate(0, 0, -10)
	v := model.EnrichedVideo{
		Video: model.Video{
			VideoID:     "v",
			ViewCount:   2_700,
			PublishedAt: &published,
			Tiers:       []string{"breakout"},
		},
		SubscriberCount: 1_000,
	}
	Enrich(&v, now)
	if v.Tiers != nil {
		t.Errorf("tiers = %v, want cleared", v.Tiers)
	}
	if v.ViralityMultiplier != 2.7 {
		t.Errorf("multiplier = %v, want 2.7", v.ViralityMultiplier)
	}
}

func TestClassifyBatch(t *testing.T) {
	published := now.AddDate(0, 0, -5)
	videos := []model.EnrichedVideo{
		{Video: model.Video{VideoID: "a", ViewCount: 5_000, PublishedAt: &published}, SubscriberCount: 100},
		{Video: model.Video{VideoID: "b", ViewCount: 300, PublishedAt: &published}, SubscriberCount: 1_000},
	}
	ClassifyBatch(videos, now)

	if !almostEqual(videos[0].ViralityMultiplier, 50) {
		t.Errorf("multiplier a = %f, want 50", videos[0].ViralityMultiplier)
	}
	if !almostEqual(videos[1].ViralityMultiplier, 0.3) {
		t.Errorf("multiplier b = %f, want 0.3", videos[1].ViralityMultiplier)
	}
	if videos[0].ViewsPerDay == nil || !almostEqual(*videos[0].ViewsPerDay, 1_000) {
		t.Errorf("views/day a = %v, want 1000", videos[0].ViewsPerDay)
	}
	if videos[0].OutlierScore == nil || *videos[0].OutlierScore <= 0 {
		t.Error("outlier score should be set and positive")
	}
	if len(videos[0].Tiers) == 0 || videos[0].Tiers[0] != "breakout" {
		t.Errorf("tiers a = %v, want breakout first", videos[0].Tiers)
	}
	if len(videos[1].Tiers) != 0 {
		t.Errorf("tiers b = %v, want none", videos[1].Tiers)
	}
}

func TestAggregate(t *testing.T) {
	var videos []model.EnrichedVideo
	for i := 1; i <= 6; i++ {
		videos = append(videos, model.EnrichedVideo{
			Video: model.Video{
				ViewCount:          int64(i * 1_000),
				ViralityMultiplier: float64(i),
				LikeRatio:          ptrFloat(0.05),
			},
			SubscriberCount: 1_000,
		})
	}
	agg := Aggregate(videos)
	if agg.AvgMultiplier == nil || !almostEqual(*agg.AvgMultiplier, 3.5) {
		t.Errorf("avg multiplier = %v, want 3.5", agg.AvgMultiplier)
	}
	if agg.AvgLikeRatio == nil || !almostEqual(*agg.AvgLikeRatio, 0.05) {
		t.Errorf("avg like ratio = %v, want 0.05", agg.AvgLikeRatio)
	}
	// 3000/1000 .. 6000/1000 clear the breakout bar.
	if agg.BreakoutCount != 4 {
		t.Errorf("breakout count = %d, want 4", agg.BreakoutCount)
	}
}
