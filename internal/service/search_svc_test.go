package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/PatchLore/youtube-outlier-finder-sub000/internal/model"
)

func ids(videos []model.VideoResponse) []string {
	out := make([]string, len(videos))
	for i, v := range videos {
		out[i] = v.VideoID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPlan_StrictWins(t *testing.T) {
	pool := []model.EnrichedVideo{
		rawVideo("strict", "c1", 4000, 1000, 10),   // 4.0x, recent
		rawVideo("expanded", "c2", 2700, 1000, 10), // 2.7x
		rawVideo("old", "c3", 9000, 1000, 200),     // 9.0x, outside momentum window
	}
	resp := plan("cooking", ModeMomentum, pool, testNow)

	if resp.SearchType != SearchStrict {
		t.Fatalf("searchType = %q, want strict", resp.SearchType)
	}
	if !equalIDs(ids(resp.Results), []string{"strict"}) {
		t.Errorf("results = %v, want [strict]", ids(resp.Results))
	}
	if resp.Expanded.Evaluated {
		t.Error("expanded tier should not be evaluated when strict has results")
	}
	if resp.Strict.Count != 1 || resp.Strict.WindowDays != 60 {
		t.Errorf("strict policy = %+v", resp.Strict)
	}
	if resp.NicheAnalysis != nil {
		t.Error("niche analysis should only run for empty results")
	}
	if len(resp.NearMisses) != 1 || resp.NearMisses[0].VideoID != "expanded" {
		t.Fatalf("near misses = %+v", resp.NearMisses)
	}
	if resp.NearMisses[0].Reason != "2.7x_multiplier" {
		t.Errorf("reason = %q", resp.NearMisses[0].Reason)
	}
}

func TestPlan_FallsBackToExpanded(t *testing.T) {
	pool := []model.EnrichedVideo{
		rawVideo("a", "c1", 2600, 1000, 80), // 2.6x, inside 90d
		rawVideo("b", "c2", 2900, 1000, 30), // 2.9x
		rawVideo("c", "c3", 1000, 1000, 5),  // 1.0x
	}
	resp := plan("woodworking", ModeMomentum, pool, testNow)

	if resp.SearchType != SearchExpanded {
		t.Fatalf("searchType = %q, want expanded", resp.SearchType)
	}
	if !resp.Strict.Evaluated || resp.Strict.Count != 0 {
		t.Errorf("strict policy = %+v, want evaluated with 0", resp.Strict)
	}
	if !resp.Expanded.Evaluated || resp.Expanded.Count != 2 {
		t.Errorf("expanded policy = %+v", resp.Expanded)
	}
	if !equalIDs(ids(resp.Results), []string{"b", "a"}) {
		t.Errorf("results = %v, want [b a]", ids(resp.Results))
	}
	// Everything in [2.5,3) already made the result set.
	if len(resp.NearMisses) != 0 {
		t.Errorf("near misses = %+v, want none", resp.NearMisses)
	}
	// Both sub-3x candidates are already results.
	if len(resp.RisingSignals) != 0 {
		t.Errorf("rising = %+v, want none", resp.RisingSignals)
	}
}

func TestPlan_NoneRunsNicheAnalysis(t *testing.T) {
	pool := []model.EnrichedVideo{
		rawVideo("a", "c1", 2100, 1000, 10), // 2.1x rising
		rawVideo("b", "c2", 500, 1000, 10),
	}
	resp := plan("knitting", ModeMomentum, pool, testNow)

	if resp.SearchType != SearchNone {
		t.Fatalf("searchType = %q, want none", resp.SearchType)
	}
	if len(resp.Results) != 0 || resp.Results == nil {
		t.Errorf("results should be an empty, non-nil slice")
	}
	if resp.NicheAnalysis == nil {
		t.Fatal("expected niche analysis")
	}
	if resp.NicheAnalysis.Signals.CandidateCount != 2 {
		t.Errorf("niche analysis should read the full pool, got %d", resp.NicheAnalysis.Signals.CandidateCount)
	}
	if len(resp.RisingSignals) != 1 || resp.RisingSignals[0].VideoID != "a" || resp.RisingSignals[0].Tier != "RISING" {
		t.Errorf("rising = %+v", resp.RisingSignals)
	}
}

func TestPlan_EmptyPool(t *testing.T) {
	resp := plan("nothing", ModeMomentum, nil, testNow)
	if resp.SearchType != SearchNone || resp.NicheAnalysis != nil || resp.CandidateCount != 0 {
		t.Errorf("unexpected response for empty pool: %+v", resp)
	}
}

func TestPlan_ProvenIgnoresWindows(t *testing.T) {
	pool := []model.EnrichedVideo{
		rawVideo("old", "c1", 9000, 1000, 400),
	}
	undated := rawVideo("undated", "c2", 5000, 1000, 0)
	undated.PublishedAt = nil
	pool = append(pool, undated)

	momentum := plan("chess", ModeMomentum, pool, testNow)
	if momentum.SearchType != SearchNone {
		t.Errorf("momentum searchType = %q, want none", momentum.SearchType)
	}

	proven := plan("chess", ModeProven, pool, testNow)
	if proven.SearchType != SearchStrict {
		t.Fatalf("proven searchType = %q, want strict", proven.SearchType)
	}
	if proven.Strict.WindowDays != 0 {
		t.Errorf("proven mode should carry no window, got %d", proven.Strict.WindowDays)
	}
	if len(proven.Results) != 2 {
		t.Errorf("proven results = %v", ids(proven.Results))
	}
}

func TestPlan_OrderingAndClassification(t *testing.T) {
	pool := []model.EnrichedVideo{
		rawVideo("small", "c1", 5000, 1000, 40), // 5x, older
		rawVideo("huge", "c2", 50000, 1000, 2),  // 50x, fresh
		rawVideo("mid", "c3", 10000, 1000, 20),  // 10x
	}
	resp := plan("bonsai", ModeMomentum, pool, testNow)

	if !equalIDs(ids(resp.Results), []string{"huge", "mid", "small"}) {
		t.Errorf("results = %v, want [huge mid small]", ids(resp.Results))
	}
	for _, r := range resp.Results {
		if len(r.Tiers) == 0 || r.Tiers[0] != "breakout" {
			t.Errorf("%s tiers = %v, want breakout first", r.VideoID, r.Tiers)
		}
		if r.OutlierScore <= 0 {
			t.Errorf("%s outlier score = %v", r.VideoID, r.OutlierScore)
		}
	}
}

func TestPlan_NearMissAndRisingLimits(t *testing.T) {
	pool := []model.EnrichedVideo{rawVideo("hit", "h", 10000, 1000, 1)}
	for i := 0; i < 5; i++ {
		v := rawVideo("near"+string(rune('a'+i)), "n", int64(2500+i*100), 1000, 10)
		pool = append(pool, v)
	}
	for i := 0; i < 12; i++ {
		v := rawVideo("rise"+string(rune('a'+i)), "r", int64(2000+i*10), 1000, 10)
		pool = append(pool, v)
	}
	resp := plan("pottery", ModeMomentum, pool, testNow)

	if len(resp.NearMisses) != 3 {
		t.Fatalf("near misses = %d, want 3", len(resp.NearMisses))
	}
	if resp.NearMisses[0].VideoID != "neare" {
		t.Errorf("first near miss = %s, want highest multiplier", resp.NearMisses[0].VideoID)
	}
	if len(resp.RisingSignals) != 10 {
		t.Errorf("rising = %d, want 10", len(resp.RisingSignals))
	}
	if resp.RisingSignals[0].VideoID != "neare" {
		t.Errorf("rising should be led by the highest sub-3x candidate, got %s", resp.RisingSignals[0].VideoID)
	}
}

func TestPlan_SideListsDropStoredTiers(t *testing.T) {
	stale := rawVideo("n1", "c2", 2700, 1000, 10) // 2.7x
	stale.Tiers = []string{"breakout", "niche_outlier"}
	pool := []model.EnrichedVideo{
		rawVideo("hit", "c1", 5000, 1000, 10), // 5.0x
		stale,
	}
	resp := plan("cooking", ModeMomentum, pool, testNow)

	if len(resp.NearMisses) != 1 || len(resp.RisingSignals) != 1 {
		t.Fatalf("near misses = %d, rising = %d, want 1 and 1", len(resp.NearMisses), len(resp.RisingSignals))
	}
	if tiers := resp.NearMisses[0].Tiers; len(tiers) != 0 {
		t.Errorf("near miss tiers = %v, want none", tiers)
	}
	if tiers := resp.RisingSignals[0].Tiers; len(tiers) != 0 {
		t.Errorf("rising tiers = %v, want none", tiers)
	}
	if len(stale.Tiers) != 2 {
		t.Errorf("candidate tiers mutated: %v", stale.Tiers)
	}
}

func TestPlan_DoesNotMutateCandidates(t *testing.T) {
	pool := []model.EnrichedVideo{rawVideo("a", "c1", 4000, 1000, 10)}
	plan("x", ModeMomentum, pool, testNow)
	if pool[0].ViralityMultiplier != 0 || pool[0].Tiers != nil {
		t.Error("plan must not modify the caller's slice")
	}
}

type fakeCandidates struct {
	videos []model.EnrichedVideo
	calls  int
	err    error
}

func (f *fakeCandidates) FindCandidates(context.Context, string, int) ([]model.EnrichedVideo, error) {
	f.calls++
	return f.videos, f.err
}

func TestSearch_CachesResponses(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCacheServiceWithClient(rdb)

	store := &fakeCandidates{videos: []model.EnrichedVideo{rawVideo("a", "c1", 4000, 1000, 10)}}
	svc := NewSearchService(store, cache, time.Minute)
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	first, err := svc.Search(ctx, "Cooking ", "")
	if err != nil {
		t.Fatal(err)
	}
	if first.Mode != ModeMomentum {
		t.Errorf("mode = %q, want momentum default", first.Mode)
	}
	second, err := svc.Search(ctx, "cooking", ModeMomentum)
	if err != nil {
		t.Fatal(err)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1 (second served from cache)", store.calls)
	}
	if !equalIDs(ids(first.Results), ids(second.Results)) {
		t.Error("cached response differs")
	}

	if err := cache.BumpSearchGeneration(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Search(ctx, "cooking", ModeMomentum); err != nil {
		t.Fatal(err)
	}
	if store.calls != 2 {
		t.Errorf("store calls = %d, want 2 after invalidation", store.calls)
	}
}

func TestSearch_WithoutCache(t *testing.T) {
	store := &fakeCandidates{}
	svc := NewSearchService(store, NewCacheService(""), time.Minute)
	resp, err := svc.Search(context.Background(), "q", ModeProven)
	if err != nil {
		t.Fatal(err)
	}
	if resp.SearchType != SearchNone {
		t.Errorf("searchType = %q", resp.SearchType)
	}
}

func TestSearch_StoreError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewSearchService(&fakeCandidates{err: boom}, nil, time.Minute)
	if _, err := svc.Search(context.Background(), "q", ModeMomentum); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}
