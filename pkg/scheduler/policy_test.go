package scheduler

import (
	"testing"

	"casewatch/pkg/config"
	"casewatch/pkg/metrics"
)

func testPolicy() Policy {
	return NewPolicy(config.NewSchedulerConfig())
}

func TestDecideHighUrgency(t *testing.T) {
	p := testPolicy()

	d := p.Decide(metrics.Aggregate{MaxUrgencyScore: 0.95, ChangeRate: 0.1}, PatternSporadic)
	if d.Level != LevelCritical {
		t.Errorf("expected critical, got %s", d.Level)
	}
	if d.Reason != ReasonHighUrgency {
		t.Errorf("expected %q, got %q", ReasonHighUrgency, d.Reason)
	}
}

func TestDecideErrorBackoffBeatsUrgency(t *testing.T) {
	p := testPolicy()

	d := p.Decide(metrics.Aggregate{ErrorRate: 0.4, MaxUrgencyScore: 0.99}, PatternDormant)
	if d.Level != LevelNormal {
		t.Errorf("expected normal, got %s", d.Level)
	}
	if d.Reason != ReasonErrorBackoff {
		t.Errorf("expected %q, got %q", ReasonErrorBackoff, d.Reason)
	}
}

func TestDecideElevatedErrorsNeverAggressive(t *testing.T) {
	p := testPolicy()

	rates := []float64{0.3, 0.5, 0.8, 1.0}
	urgencies := []float64{0, 0.5, 0.95, 1.0}
	for _, errorRate := range rates {
		for _, urgency := range urgencies {
			for _, pattern := range Patterns {
				d := p.Decide(metrics.Aggregate{ErrorRate: errorRate, MaxUrgencyScore: urgency}, pattern)
				if d.Level.MoreAggressiveThan(LevelNormal) {
					t.Errorf("error rate %.2f, urgency %.2f, pattern %s: got %s, more aggressive than normal",
						errorRate, urgency, pattern, d.Level)
				}
			}
		}
	}
}

func TestDecidePatternBaseLevels(t *testing.T) {
	p := testPolicy()

	cases := map[ActivityPattern]FrequencyLevel{
		PatternBurst:    LevelHigh,
		PatternPeriodic: LevelNormal,
		PatternSteady:   LevelNormal,
		PatternSporadic: LevelLow,
		PatternDormant:  LevelMinimal,
	}
	for pattern, want := range cases {
		d := p.Decide(metrics.Aggregate{ChangeRate: 0.2}, pattern)
		if d.Level != want {
			t.Errorf("pattern %s: expected %s, got %s", pattern, want, d.Level)
		}
		wantReason := string(pattern) + " activity pattern"
		if d.Reason != wantReason {
			t.Errorf("pattern %s: expected reason %q, got %q", pattern, wantReason, d.Reason)
		}
	}
}

func TestDecideLoadThrottle(t *testing.T) {
	p := testPolicy()

	d := p.Decide(metrics.Aggregate{AvgSystemLoad: 0.9}, PatternBurst)
	if d.Level != LevelNormal {
		t.Errorf("burst under load: expected normal, got %s", d.Level)
	}
	if d.Reason != ReasonLoadThrottle {
		t.Errorf("expected %q, got %q", ReasonLoadThrottle, d.Reason)
	}

	// Load only throttles pattern-derived levels, not urgency escalation
	d = p.Decide(metrics.Aggregate{MaxUrgencyScore: 0.95, AvgSystemLoad: 0.9}, PatternBurst)
	if d.Level != LevelCritical {
		t.Errorf("urgent under load: expected critical, got %s", d.Level)
	}

	// Quiet tiers are unaffected
	d = p.Decide(metrics.Aggregate{AvgSystemLoad: 0.9}, PatternSporadic)
	if d.Level != LevelLow {
		t.Errorf("sporadic under load: expected low, got %s", d.Level)
	}
}

func TestDecideFactorsCoverAllNames(t *testing.T) {
	p := testPolicy()

	d := p.Decide(metrics.Aggregate{ChangeRate: 0.5, ErrorRate: 0.1, MaxUrgencyScore: 0.3, AvgResponseTimeMS: 120, AvgSystemLoad: 0.2}, PatternSteady)
	for _, name := range AdaptiveFactors {
		if _, ok := d.Factors[name]; !ok {
			t.Errorf("decision factors missing %q", name)
		}
	}
	if len(d.Factors) != len(AdaptiveFactors) {
		t.Errorf("expected %d factors, got %d", len(AdaptiveFactors), len(d.Factors))
	}
}

func TestIntervalTableDefaults(t *testing.T) {
	table, err := NewIntervalTable(config.NewSchedulerConfig().IntervalMinutes)
	if err != nil {
		t.Fatalf("NewIntervalTable failed: %v", err)
	}

	want := map[FrequencyLevel]int{
		LevelCritical: 15,
		LevelHigh:     60,
		LevelNormal:   360,
		LevelLow:      1440,
		LevelMinimal:  4320,
	}
	for level, minutes := range want {
		if got := table.Minutes(level); got != minutes {
			t.Errorf("level %s: expected %d min, got %d", level, minutes, got)
		}
	}

	// Intervals must be strictly ordered by aggressiveness
	for i := 1; i < len(Levels); i++ {
		if table.Minutes(Levels[i]) <= table.Minutes(Levels[i-1]) {
			t.Errorf("interval for %s should exceed %s", Levels[i], Levels[i-1])
		}
	}
}

func TestIntervalTableRejectsIncomplete(t *testing.T) {
	_, err := NewIntervalTable(map[string]int{"critical": 15})
	if err == nil {
		t.Error("expected error for incomplete interval table")
	}
}
