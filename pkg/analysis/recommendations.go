package analysis

import (
	"fmt"
	"sort"
	"time"

	"casewatch/pkg/scheduler"
)

// Recommendation priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Recommendation types
const (
	TypeOptimizeSchedules      = "optimize_schedules"
	TypeCheckConnectivity      = "check_source_connectivity"
	TypeReviewCriticalCoverage = "review_critical_schedules"
	TypeExpandSources          = "expand_sources"
)

const (
	lowEfficiencyThreshold = 0.5
	staleSampleHours       = 24.0
	criticalShareCeiling   = 0.5
	minSourceCount         = 3
)

// Recommendation is one advisory finding over the schedule table
type Recommendation struct {
	Type            string   `json:"type"`
	Priority        string   `json:"priority"`
	Message         string   `json:"message"`
	Action          string   `json:"action"`
	AffectedSources []string `json:"affected_sources,omitempty"`
}

// RecommendationEngine produces advisory findings from scheduling
// stats. Findings never mutate schedules; they surface conditions an
// operator should look at.
type RecommendationEngine struct{}

// NewRecommendationEngine creates a recommendation engine
func NewRecommendationEngine() *RecommendationEngine {
	return &RecommendationEngine{}
}

// Evaluate runs every rule against the stats snapshot. Findings come
// back ordered high priority first, ties by type name.
func (e *RecommendationEngine) Evaluate(stats scheduler.Stats) []Recommendation {
	var recs []Recommendation

	if rec, ok := e.lowEfficiency(stats); ok {
		recs = append(recs, rec)
	}
	if rec, ok := e.staleSources(stats); ok {
		recs = append(recs, rec)
	}
	if rec, ok := e.criticalOverload(stats); ok {
		recs = append(recs, rec)
	}
	if rec, ok := e.thinCoverage(stats); ok {
		recs = append(recs, rec)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		ri, rj := priorityRank(recs[i].Priority), priorityRank(recs[j].Priority)
		if ri != rj {
			return ri < rj
		}
		return recs[i].Type < recs[j].Type
	})

	return recs
}

// lowEfficiency flags sources whose collected data is mostly unchanged
// or erroring, so their polling budget is being wasted
func (e *RecommendationEngine) lowEfficiency(stats scheduler.Stats) (Recommendation, bool) {
	var affected []string
	for _, src := range stats.Sources {
		if src.HasSamples && src.Efficiency < lowEfficiencyThreshold {
			affected = append(affected, src.SourceKey)
		}
	}
	if len(affected) == 0 {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:     TypeOptimizeSchedules,
		Priority: PriorityMedium,
		Message: fmt.Sprintf("%d source(s) run below %.0f%% collection efficiency",
			len(affected), lowEfficiencyThreshold*100),
		Action:          "review polling frequency for the affected sources",
		AffectedSources: affected,
	}, true
}

// staleSources flags sources with no sample inside the staleness bound
func (e *RecommendationEngine) staleSources(stats scheduler.Stats) (Recommendation, bool) {
	var affected []string
	for _, src := range stats.Sources {
		if !src.HasSamples || src.StalenessHours > staleSampleHours {
			affected = append(affected, src.SourceKey)
		}
	}
	if len(affected) == 0 {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:     TypeCheckConnectivity,
		Priority: PriorityHigh,
		Message: fmt.Sprintf("%d source(s) have produced no data in the last %s",
			len(affected), time.Duration(staleSampleHours)*time.Hour),
		Action:          "verify source endpoints are reachable and collections are completing",
		AffectedSources: affected,
	}, true
}

// criticalOverload flags a schedule table where critical sources
// outnumber half the fleet, which defeats the tiering
func (e *RecommendationEngine) criticalOverload(stats scheduler.Stats) (Recommendation, bool) {
	if stats.TotalSources == 0 {
		return Recommendation{}, false
	}

	critical := stats.LevelDistribution[scheduler.LevelCritical]
	if float64(critical)/float64(stats.TotalSources) <= criticalShareCeiling {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:     TypeReviewCriticalCoverage,
		Priority: PriorityMedium,
		Message: fmt.Sprintf("%d of %d sources are at critical frequency",
			critical, stats.TotalSources),
		Action: "raise urgency thresholds or lower the critical slot limit",
	}, true
}

// thinCoverage flags a fleet too small for meaningful awareness coverage
func (e *RecommendationEngine) thinCoverage(stats scheduler.Stats) (Recommendation, bool) {
	if stats.TotalSources >= minSourceCount {
		return Recommendation{}, false
	}

	return Recommendation{
		Type:     TypeExpandSources,
		Priority: PriorityLow,
		Message: fmt.Sprintf("only %d source(s) configured, coverage is thin",
			stats.TotalSources),
		Action: "add more data sources to broaden coverage",
	}, true
}

func priorityRank(priority string) int {
	switch priority {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}
