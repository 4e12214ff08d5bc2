package scheduler

import (
	"fmt"

	"casewatch/pkg/config"
	"casewatch/pkg/metrics"
)

// AdaptiveFactors lists the factor names attached to every schedule
// decision, in reporting order
var AdaptiveFactors = []string{
	"change_rate",
	"error_rate",
	"urgency_score",
	"response_time",
	"system_load",
}

// Policy maps aggregated metrics and an activity pattern to a frequency
// level. Pure decision function; thresholds come from configuration.
type Policy struct {
	ErrorRateCeiling float64
	UrgencyThreshold float64
	LoadThreshold    float64
}

// NewPolicy builds a policy from the scheduler configuration
func NewPolicy(cfg *config.SchedulerConfig) Policy {
	return Policy{
		ErrorRateCeiling: cfg.ErrorRateCeiling,
		UrgencyThreshold: cfg.UrgencyThreshold,
		LoadThreshold:    cfg.LoadThreshold,
	}
}

// Decision is the outcome of one policy evaluation
type Decision struct {
	Level   FrequencyLevel
	Reason  string
	Factors map[string]float64
}

var patternBaseLevel = map[ActivityPattern]FrequencyLevel{
	PatternBurst:    LevelHigh,
	PatternPeriodic: LevelNormal,
	PatternSteady:   LevelNormal,
	PatternSporadic: LevelLow,
	PatternDormant:  LevelMinimal,
}

// Decide evaluates the policy rules in order; the first applicable
// rule wins. The error-rate ceiling takes precedence over urgency.
func (p Policy) Decide(agg metrics.Aggregate, pattern ActivityPattern) Decision {
	factors := map[string]float64{
		"change_rate":   agg.ChangeRate,
		"error_rate":    agg.ErrorRate,
		"urgency_score": agg.MaxUrgencyScore,
		"response_time": agg.AvgResponseTimeMS,
		"system_load":   agg.AvgSystemLoad,
	}

	if agg.ErrorRate >= p.ErrorRateCeiling {
		return Decision{Level: LevelNormal, Reason: ReasonErrorBackoff, Factors: factors}
	}

	if agg.MaxUrgencyScore >= p.UrgencyThreshold {
		return Decision{Level: LevelCritical, Reason: ReasonHighUrgency, Factors: factors}
	}

	level := patternBaseLevel[pattern]
	reason := fmt.Sprintf("%s activity pattern", pattern)

	if agg.AvgSystemLoad >= p.LoadThreshold &&
		(level == LevelCritical || level == LevelHigh) {
		level = level.Demote()
		reason = ReasonLoadThrottle
	}

	return Decision{Level: level, Reason: reason, Factors: factors}
}
