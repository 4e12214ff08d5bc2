package scheduler

import (
	"fmt"
	"time"
)

// FrequencyLevel is the discrete scheduling tier controlling how often
// a source is polled. Levels are ordered from most to least aggressive.
type FrequencyLevel string

const (
	LevelCritical FrequencyLevel = "critical"
	LevelHigh     FrequencyLevel = "high"
	LevelNormal   FrequencyLevel = "normal"
	LevelLow      FrequencyLevel = "low"
	LevelMinimal  FrequencyLevel = "minimal"
)

// Levels lists all frequency levels, most aggressive first
var Levels = []FrequencyLevel{LevelCritical, LevelHigh, LevelNormal, LevelLow, LevelMinimal}

var levelRank = map[FrequencyLevel]int{
	LevelCritical: 0,
	LevelHigh:     1,
	LevelNormal:   2,
	LevelLow:      3,
	LevelMinimal:  4,
}

// Valid reports whether the level is one of the known tiers
func (l FrequencyLevel) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

// MoreAggressiveThan reports whether l polls more often than other
func (l FrequencyLevel) MoreAggressiveThan(other FrequencyLevel) bool {
	return levelRank[l] < levelRank[other]
}

// Demote returns the level one step less aggressive; minimal stays put
func (l FrequencyLevel) Demote() FrequencyLevel {
	rank, ok := levelRank[l]
	if !ok || rank >= len(Levels)-1 {
		return LevelMinimal
	}
	return Levels[rank+1]
}

// ActivityPattern is the qualitative shape of a source's recent change
// history. Recomputed from the metrics window each cycle, never stored.
type ActivityPattern string

const (
	PatternBurst    ActivityPattern = "burst"
	PatternSteady   ActivityPattern = "steady"
	PatternPeriodic ActivityPattern = "periodic"
	PatternSporadic ActivityPattern = "sporadic"
	PatternDormant  ActivityPattern = "dormant"
)

// Patterns lists all activity patterns in tie-break order
var Patterns = []ActivityPattern{PatternDormant, PatternBurst, PatternPeriodic, PatternSteady, PatternSporadic}

// IntervalTable binds each frequency level to its fixed run interval.
// The mapping comes from configuration and is never inferred.
type IntervalTable map[FrequencyLevel]int

// NewIntervalTable builds the table from the configuration mapping
func NewIntervalTable(minutes map[string]int) (IntervalTable, error) {
	table := make(IntervalTable, len(Levels))
	for _, level := range Levels {
		m, ok := minutes[string(level)]
		if !ok || m <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLevel, level)
		}
		table[level] = m
	}
	return table, nil
}

// Minutes returns the configured interval for a level
func (t IntervalTable) Minutes(level FrequencyLevel) int {
	return t[level]
}

// Interval returns the configured interval as a duration
func (t IntervalTable) Interval(level FrequencyLevel) time.Duration {
	return time.Duration(t[level]) * time.Minute
}

// Floor returns the tightest interval in the table (the critical floor)
func (t IntervalTable) Floor() time.Duration {
	return t.Interval(LevelCritical)
}

// Source is one external data source as loaded from configuration.
// Immutable during a scheduling cycle.
type Source struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// Outcome is the terminal result of one dispatcher job run
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeTimeout Outcome = "timeout"
)

// ScheduleEntry is the committed schedule for one source. Owned
// exclusively by the Manager; callers always receive copies.
type ScheduleEntry struct {
	SourceKey       string             `json:"source_key"`
	SourceName      string             `json:"source_name"`
	Level           FrequencyLevel     `json:"frequency_level"`
	IntervalMinutes int                `json:"interval_minutes"`
	LastRunAt       time.Time          `json:"last_run_at"`
	NextRunAt       time.Time          `json:"next_run_at"`
	Reason          string             `json:"reason"`
	Factors         map[string]float64 `json:"adaptive_factors,omitempty"`
}

// Due reports whether the entry's next run time has elapsed
func (e ScheduleEntry) Due(now time.Time) bool {
	return !e.NextRunAt.After(now)
}

// SourceStats is the per-source slice of the Stats report
type SourceStats struct {
	SourceKey      string         `json:"source_key"`
	SourceName     string         `json:"source_name"`
	Level          FrequencyLevel `json:"frequency_level"`
	Efficiency     float64        `json:"efficiency"`
	SampleCount    int            `json:"sample_count"`
	HasSamples     bool           `json:"has_samples"`
	StalenessHours float64        `json:"staleness_hours"`
}

// Stats is the aggregated scheduling report
type Stats struct {
	TotalSources      int                    `json:"total_sources"`
	LevelDistribution map[FrequencyLevel]int `json:"frequency_distribution"`
	Sources           []SourceStats          `json:"sources"`
	GeneratedAt       time.Time              `json:"generated_at"`
}

// Reason strings attached to schedule decisions. These are part of the
// caller-visible contract and round-trip through the legacy text format.
const (
	ReasonErrorBackoff  = "elevated error rate, backing off"
	ReasonHighUrgency   = "high urgency signal"
	ReasonLoadThrottle  = "system load throttle"
	ReasonCriticalSlots = "critical-slot limit reached"
	ReasonBreakerOpen   = "circuit breaker open after repeated failures"
	ReasonForcedRun     = "operator forced immediate run"
)
