package analysis

import (
	"testing"
	"time"

	"casewatch/pkg/scheduler"
)

func statsWith(sources ...scheduler.SourceStats) scheduler.Stats {
	stats := scheduler.Stats{
		TotalSources:      len(sources),
		LevelDistribution: make(map[scheduler.FrequencyLevel]int),
		Sources:           sources,
		GeneratedAt:       time.Now(),
	}
	for _, src := range sources {
		stats.LevelDistribution[src.Level]++
	}
	return stats
}

func findRec(recs []Recommendation, recType string) (Recommendation, bool) {
	for _, rec := range recs {
		if rec.Type == recType {
			return rec, true
		}
	}
	return Recommendation{}, false
}

func healthySource(key string) scheduler.SourceStats {
	return scheduler.SourceStats{
		SourceKey:      key,
		Level:          scheduler.LevelNormal,
		Efficiency:     0.9,
		SampleCount:    10,
		HasSamples:     true,
		StalenessHours: 1,
	}
}

func TestEvaluateHealthyFleet(t *testing.T) {
	engine := NewRecommendationEngine()

	recs := engine.Evaluate(statsWith(
		healthySource("a"), healthySource("b"), healthySource("c"),
	))
	if len(recs) != 0 {
		t.Errorf("healthy fleet should yield no findings, got %+v", recs)
	}
}

func TestEvaluateLowEfficiency(t *testing.T) {
	engine := NewRecommendationEngine()

	weak := healthySource("weak")
	weak.Efficiency = 0.2
	recs := engine.Evaluate(statsWith(healthySource("a"), healthySource("b"), weak))

	rec, ok := findRec(recs, TypeOptimizeSchedules)
	if !ok {
		t.Fatalf("expected %s finding, got %+v", TypeOptimizeSchedules, recs)
	}
	if len(rec.AffectedSources) != 1 || rec.AffectedSources[0] != "weak" {
		t.Errorf("unexpected affected sources: %v", rec.AffectedSources)
	}
	if rec.Priority != PriorityMedium {
		t.Errorf("expected medium priority, got %s", rec.Priority)
	}
}

func TestEvaluateStaleSources(t *testing.T) {
	engine := NewRecommendationEngine()

	stale := healthySource("stale")
	stale.StalenessHours = 30
	silent := healthySource("silent")
	silent.HasSamples = false
	silent.SampleCount = 0

	recs := engine.Evaluate(statsWith(healthySource("a"), stale, silent))

	rec, ok := findRec(recs, TypeCheckConnectivity)
	if !ok {
		t.Fatalf("expected %s finding, got %+v", TypeCheckConnectivity, recs)
	}
	if len(rec.AffectedSources) != 2 {
		t.Errorf("expected 2 affected sources, got %v", rec.AffectedSources)
	}
	if rec.Priority != PriorityHigh {
		t.Errorf("stale sources are high priority, got %s", rec.Priority)
	}
}

func TestEvaluateCriticalOverload(t *testing.T) {
	engine := NewRecommendationEngine()

	a, b, c := healthySource("a"), healthySource("b"), healthySource("c")
	a.Level = scheduler.LevelCritical
	b.Level = scheduler.LevelCritical
	recs := engine.Evaluate(statsWith(a, b, c))

	if _, ok := findRec(recs, TypeReviewCriticalCoverage); !ok {
		t.Errorf("expected %s finding when critical share exceeds half, got %+v",
			TypeReviewCriticalCoverage, recs)
	}

	// Exactly half does not trigger
	d := healthySource("d")
	recs = engine.Evaluate(statsWith(a, b, c, d))
	if _, ok := findRec(recs, TypeReviewCriticalCoverage); ok {
		t.Error("half critical share must not trigger the finding")
	}
}

func TestEvaluateThinCoverage(t *testing.T) {
	engine := NewRecommendationEngine()

	recs := engine.Evaluate(statsWith(healthySource("a"), healthySource("b")))
	rec, ok := findRec(recs, TypeExpandSources)
	if !ok {
		t.Fatalf("expected %s finding for 2 sources, got %+v", TypeExpandSources, recs)
	}
	if rec.Priority != PriorityLow {
		t.Errorf("expected low priority, got %s", rec.Priority)
	}
}

func TestEvaluateOrdersByPriority(t *testing.T) {
	engine := NewRecommendationEngine()

	stale := healthySource("stale")
	stale.StalenessHours = 48
	recs := engine.Evaluate(statsWith(stale))

	if len(recs) < 2 {
		t.Fatalf("expected multiple findings, got %+v", recs)
	}
	if recs[0].Type != TypeCheckConnectivity {
		t.Errorf("high priority finding should come first, got %s", recs[0].Type)
	}
}
