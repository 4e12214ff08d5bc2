package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"casewatch/pkg/config"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"

	"go.uber.org/zap"
)

// Manager owns the per-source schedule table and its state machine:
// Idle -> Due (next run time elapsed) -> Running (claimed by the
// dispatcher) -> {Success, Failed, TimedOut} -> Idle. Single-writer,
// multiple-reader discipline; readers receive copies of the table.
type Manager struct {
	mu sync.RWMutex

	sources    map[string]Source
	entries    map[string]*ScheduleEntry
	running    map[string]bool
	failStreak map[string]int
	breaker    map[string]bool

	store            *metrics.Store
	policy           Policy
	intervals        IntervalTable
	windowHours      int
	maxCritical      int
	breakerThreshold int

	now func() time.Time
}

// NewManager creates a schedule manager for the configured sources
func NewManager(cfg *config.Config, store *metrics.Store) (*Manager, error) {
	sc := cfg.GetSchedulerConfig()

	intervals, err := NewIntervalTable(sc.IntervalMinutes)
	if err != nil {
		return nil, fmt.Errorf("failed to build interval table: %w", err)
	}

	sources := make(map[string]Source, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources[src.Key] = Source{Key: src.Key, Name: src.Name, Enabled: src.Enabled}
	}

	return &Manager{
		sources:          sources,
		entries:          make(map[string]*ScheduleEntry, len(sources)),
		running:          make(map[string]bool),
		failStreak:       make(map[string]int),
		breaker:          make(map[string]bool),
		store:            store,
		policy:           NewPolicy(sc),
		intervals:        intervals,
		windowHours:      sc.WindowHours,
		maxCritical:      sc.MaxCriticalSources,
		breakerThreshold: cfg.GetDispatcherConfig().BreakerThreshold,
		now:              time.Now,
	}, nil
}

// SetClock overrides the time source, used by tests
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// RestoreEntries loads previously persisted schedule entries for
// currently configured sources. Entries with an unknown source or
// frequency level are skipped.
func (m *Manager) RestoreEntries(entries []ScheduleEntry) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	restored := 0
	for _, entry := range entries {
		if _, ok := m.sources[entry.SourceKey]; !ok {
			continue
		}
		if !entry.Level.Valid() {
			continue
		}
		e := entry
		m.entries[e.SourceKey] = &e
		restored++
	}
	return restored
}

// Intervals exposes the configured interval table
func (m *Manager) Intervals() IntervalTable {
	return m.intervals
}

// UpdateSchedules recomputes every enabled source's schedule: metrics
// aggregate, pattern classification, frequency policy, then the global
// critical-slot cap, all inside one pass so demotions cannot race.
// Idempotent; per-source failures are isolated.
func (m *Manager) UpdateSchedules() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	type candidate struct {
		source   Source
		decision Decision
	}

	candidates := make([]candidate, 0, len(m.sources))
	for _, src := range m.sources {
		if !src.Enabled {
			continue
		}

		decision, err := m.decideLocked(src.Key)
		if err != nil {
			logger.Warn("Skipping source during schedule update",
				zap.String("source_key", src.Key), zap.Error(err))
			continue
		}

		candidates = append(candidates, candidate{source: src, decision: decision})
	}

	// Global critical-slot cap: keep the highest-urgency sources, demote
	// the rest to high. Ties break on source key for determinism.
	critical := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if c.decision.Level == LevelCritical {
			critical = append(critical, i)
		}
	}
	if len(critical) > m.maxCritical {
		sort.Slice(critical, func(a, b int) bool {
			ua := candidates[critical[a]].decision.Factors["urgency_score"]
			ub := candidates[critical[b]].decision.Factors["urgency_score"]
			if ua != ub {
				return ua > ub
			}
			return candidates[critical[a]].source.Key < candidates[critical[b]].source.Key
		})
		for _, idx := range critical[m.maxCritical:] {
			candidates[idx].decision.Level = LevelHigh
			candidates[idx].decision.Reason = ReasonCriticalSlots
		}
	}

	for _, c := range candidates {
		m.commitLocked(c.source, c.decision, now)
	}

	logger.Debug("Schedules updated", zap.Int("sources", len(candidates)))
	return nil
}

// AnalyzeSource returns the would-be schedule entry for one source
// without committing it. The global critical-slot cap is not applied;
// it only exists within a full update pass.
func (m *Manager) AnalyzeSource(key string) (ScheduleEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src, ok := m.sources[key]
	if !ok {
		return ScheduleEntry{}, fmt.Errorf("%w: %s", ErrSourceNotFound, key)
	}

	decision, err := m.decideLocked(key)
	if err != nil {
		return ScheduleEntry{}, err
	}

	return m.buildEntry(src, decision, m.now()), nil
}

// MarkRunning claims a source for execution. Fails when the source is
// unknown or already running; the conflict is the single-flight guard.
func (m *Manager) MarkRunning(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sources[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, key)
	}
	if m.running[key] {
		return fmt.Errorf("%w: %s", ErrAlreadyRunning, key)
	}

	m.running[key] = true
	return nil
}

// MarkComplete releases a source after a run and advances its schedule.
// Success clears the failure streak; the configured number of
// consecutive failures or timeouts opens the circuit breaker, pinning
// the source at minimal until the next success.
func (m *Manager) MarkComplete(key string, outcome Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.sources[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, key)
	}

	delete(m.running, key)

	switch outcome {
	case OutcomeSuccess:
		m.failStreak[key] = 0
		if m.breaker[key] {
			delete(m.breaker, key)
			logger.Info("Circuit breaker cleared", zap.String("source_key", key))
		}
	case OutcomeFailure, OutcomeTimeout:
		m.failStreak[key]++
		if m.failStreak[key] >= m.breakerThreshold && !m.breaker[key] {
			m.breaker[key] = true
			logger.Warn("Circuit breaker opened",
				zap.String("source_key", key),
				zap.Int("failures", m.failStreak[key]))
		}
	default:
		return fmt.Errorf("unknown outcome %q for source %s", outcome, key)
	}

	now := m.now()
	entry, ok := m.entries[key]
	if !ok {
		decision, err := m.decideLocked(key)
		if err != nil {
			decision = Decision{Level: LevelNormal, Reason: "no metrics history"}
		}
		built := m.buildEntry(src, decision, now)
		entry = &built
		m.entries[key] = entry
	}

	level := entry.Level
	reason := entry.Reason
	if m.breaker[key] {
		level = LevelMinimal
		reason = ReasonBreakerOpen
	}

	entry.Level = level
	entry.Reason = reason
	entry.IntervalMinutes = m.intervals.Minutes(level)
	entry.LastRunAt = now
	entry.NextRunAt = now.Add(m.intervals.Interval(level))

	return nil
}

// ForceRun schedules an immediate run for a source. This is the only
// operation allowed to pull a committed next run time backward.
func (m *Manager) ForceRun(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.sources[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSourceNotFound, key)
	}

	now := m.now()
	entry, ok := m.entries[key]
	if !ok {
		decision, err := m.decideLocked(key)
		if err != nil {
			decision = Decision{Level: LevelNormal, Reason: ReasonForcedRun}
		}
		built := m.buildEntry(src, decision, now)
		entry = &built
		m.entries[key] = entry
	}

	entry.NextRunAt = now
	entry.Reason = ReasonForcedRun

	logger.Info("Forced immediate run", zap.String("source_key", key))
	return nil
}

// CurrentSchedules returns a copy of the schedule table, one entry per
// enabled source that has been scheduled
func (m *Manager) CurrentSchedules() []ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]ScheduleEntry, 0, len(m.entries))
	for key, entry := range m.entries {
		src, ok := m.sources[key]
		if !ok || !src.Enabled {
			continue
		}
		entries = append(entries, *entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].SourceKey < entries[j].SourceKey
	})

	return entries
}

// DueSources returns the enabled, not-running sources whose next run
// time has elapsed, ordered earliest first with ties broken by key
func (m *Manager) DueSources(now time.Time) []ScheduleEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var due []ScheduleEntry
	for key, entry := range m.entries {
		src, ok := m.sources[key]
		if !ok || !src.Enabled || m.running[key] {
			continue
		}
		if entry.Due(now) {
			due = append(due, *entry)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextRunAt.Equal(due[j].NextRunAt) {
			return due[i].NextRunAt.Before(due[j].NextRunAt)
		}
		return due[i].SourceKey < due[j].SourceKey
	})

	return due
}

// IsRunning reports whether a source currently holds a run claim
func (m *Manager) IsRunning(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running[key]
}

// BreakerOpen reports whether a source's circuit breaker is open
func (m *Manager) BreakerOpen(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.breaker[key]
}

// FailStreak returns a source's count of consecutive failed runs
func (m *Manager) FailStreak(key string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failStreak[key]
}

// Sources returns the configured source table
func (m *Manager) Sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sources := make([]Source, 0, len(m.sources))
	for _, src := range m.sources {
		sources = append(sources, src)
	}
	sort.Slice(sources, func(i, j int) bool {
		return sources[i].Key < sources[j].Key
	})
	return sources
}

// Stats aggregates scheduling counters across all enabled sources
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	stats := Stats{
		LevelDistribution: make(map[FrequencyLevel]int),
		GeneratedAt:       now,
	}

	for key, src := range m.sources {
		if !src.Enabled {
			continue
		}
		stats.TotalSources++

		level := LevelNormal
		if entry, ok := m.entries[key]; ok {
			level = entry.Level
		}
		stats.LevelDistribution[level]++

		agg, err := m.store.Aggregate(key, m.windowHours)
		if err != nil {
			continue
		}

		srcStats := SourceStats{
			SourceKey:   key,
			SourceName:  src.Name,
			Level:       level,
			Efficiency:  agg.ChangeRate * (1 - agg.ErrorRate),
			SampleCount: agg.SampleCount,
		}
		if agg.SampleCount > 0 {
			srcStats.HasSamples = true
			srcStats.StalenessHours = now.Sub(agg.LastSampleAt).Hours()
		}

		stats.Sources = append(stats.Sources, srcStats)
	}

	sort.Slice(stats.Sources, func(i, j int) bool {
		return stats.Sources[i].SourceKey < stats.Sources[j].SourceKey
	})

	return stats
}

// decideLocked runs classification and policy for one source; the
// circuit breaker overrides the policy output. Caller holds the lock.
func (m *Manager) decideLocked(key string) (Decision, error) {
	agg, err := m.store.Aggregate(key, m.windowHours)
	if err != nil {
		return Decision{}, err
	}

	window, err := m.store.Window(key, m.windowHours)
	if err != nil {
		return Decision{}, err
	}

	decision := m.policy.Decide(agg, ClassifyPattern(window))

	if m.breaker[key] {
		decision.Level = LevelMinimal
		decision.Reason = ReasonBreakerOpen
	}

	return decision, nil
}

// commitLocked writes a decision into the schedule table. The next run
// time is recomputed only when the level changes or no entry exists, so
// repeated updates are idempotent and never push an unrun source's slot
// forward; a level change repositions the slot from the last run.
func (m *Manager) commitLocked(src Source, decision Decision, now time.Time) {
	interval := m.intervals.Interval(decision.Level)

	existing, ok := m.entries[src.Key]
	if ok && existing.Level == decision.Level {
		existing.Reason = decision.Reason
		existing.Factors = decision.Factors
		return
	}

	entry := ScheduleEntry{
		SourceKey:       src.Key,
		SourceName:      src.Name,
		Level:           decision.Level,
		IntervalMinutes: m.intervals.Minutes(decision.Level),
		Reason:          decision.Reason,
		Factors:         decision.Factors,
	}

	if ok {
		entry.LastRunAt = existing.LastRunAt
	}

	if entry.LastRunAt.IsZero() {
		entry.NextRunAt = now.Add(interval)
	} else {
		entry.NextRunAt = entry.LastRunAt.Add(interval)
	}

	m.entries[src.Key] = &entry
}

// buildEntry renders a decision as an uncommitted schedule entry
func (m *Manager) buildEntry(src Source, decision Decision, now time.Time) ScheduleEntry {
	entry := ScheduleEntry{
		SourceKey:       src.Key,
		SourceName:      src.Name,
		Level:           decision.Level,
		IntervalMinutes: m.intervals.Minutes(decision.Level),
		Reason:          decision.Reason,
		Factors:         decision.Factors,
	}

	if existing, ok := m.entries[src.Key]; ok {
		entry.LastRunAt = existing.LastRunAt
	}

	if entry.LastRunAt.IsZero() {
		entry.NextRunAt = now.Add(m.intervals.Interval(decision.Level))
	} else {
		entry.NextRunAt = entry.LastRunAt.Add(m.intervals.Interval(decision.Level))
	}

	return entry
}
