package command

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"casewatch/pkg/config"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"
)

var cmdBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSetup(t *testing.T, keys ...string) (*Executor, *metrics.Store) {
	t.Helper()

	cfg := &config.Config{
		Scheduler:  config.NewSchedulerConfig(),
		Dispatcher: config.NewDispatcherConfig(),
		Server:     config.NewServerConfig(),
	}
	for _, key := range keys {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{
			Key: key, Name: key, Enabled: true,
		})
	}

	store := metrics.NewStore(keys, metrics.DefaultWindowHours, 0)
	store.SetClock(func() time.Time { return cmdBase })

	manager, err := scheduler.NewManager(cfg, store)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	manager.SetClock(func() time.Time { return cmdBase })

	return NewExecutor(cfg, manager, store), store
}

func TestValidateUnknownKind(t *testing.T) {
	err := Command{Kind: "reticulate_splines"}.Validate()
	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestValidateMissingFields(t *testing.T) {
	if err := (Command{Kind: KindAnalyzeSource}).Validate(); !errors.Is(err, ErrMissingSourceKey) {
		t.Errorf("analyze without source: expected ErrMissingSourceKey, got %v", err)
	}
	if err := (Command{Kind: KindRecordMetrics}).Validate(); !errors.Is(err, ErrMissingSample) {
		t.Errorf("record without sample: expected ErrMissingSample, got %v", err)
	}
	if err := (Command{Kind: KindCurrentSchedules, Format: "xml"}).Validate(); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExecuteUnknownKindRejected(t *testing.T) {
	executor, _ := testSetup(t, "a")

	outcome := executor.Execute(context.Background(), Command{Kind: "nope"})
	if outcome.Success {
		t.Fatal("unknown kind must not succeed")
	}
	if !errors.Is(outcome.Err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", outcome.Err)
	}
}

func TestExecuteUpdateThenCurrentSchedules(t *testing.T) {
	executor, store := testSetup(t, "amber_alerts")

	if err := store.Record(metrics.Sample{
		SourceKey: "amber_alerts", Timestamp: cmdBase.Add(-time.Hour),
		RecordsProcessed: 10, RecordsChanged: 5, UrgencyScore: 0.95,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	outcome := executor.Execute(context.Background(), Command{Kind: KindUpdateSchedules})
	if !outcome.Success {
		t.Fatalf("update_schedules failed: %s", outcome.Error)
	}

	entries, ok := outcome.Data.([]scheduler.ScheduleEntry)
	if !ok || len(entries) != 1 {
		t.Fatalf("unexpected update payload: %+v", outcome.Data)
	}
	if entries[0].Level != scheduler.LevelCritical {
		t.Errorf("expected critical, got %s", entries[0].Level)
	}
	if entries[0].IntervalMinutes != 15 {
		t.Errorf("expected 15 min, got %d", entries[0].IntervalMinutes)
	}
	if entries[0].Reason != scheduler.ReasonHighUrgency {
		t.Errorf("expected %q, got %q", scheduler.ReasonHighUrgency, entries[0].Reason)
	}

	text := executor.Execute(context.Background(), Command{
		Kind: KindCurrentSchedules, Format: FormatText,
	})
	if !text.Success {
		t.Fatalf("current_schedules failed: %s", text.Error)
	}
	body, _ := text.Data.(string)
	want := "amber_alerts: critical (15 min) - high urgency signal"
	if !strings.Contains(body, want) {
		t.Errorf("text schedules missing %q, got %q", want, body)
	}
}

func TestExecuteErrorBackoffScenario(t *testing.T) {
	executor, store := testSetup(t, "florida_fdle")

	if err := store.Record(metrics.Sample{
		SourceKey: "florida_fdle", Timestamp: cmdBase.Add(-time.Hour),
		RecordsProcessed: 10, RecordsChanged: 2, ErrorsCount: 4, UrgencyScore: 0.99,
	}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	outcome := executor.Execute(context.Background(), Command{
		Kind: KindAnalyzeSource, SourceKey: "florida_fdle",
	})
	if !outcome.Success {
		t.Fatalf("analyze_source failed: %s", outcome.Error)
	}

	entry, ok := outcome.Data.(scheduler.ScheduleEntry)
	if !ok {
		t.Fatalf("unexpected analyze payload: %+v", outcome.Data)
	}
	if entry.Level != scheduler.LevelNormal {
		t.Errorf("expected normal, got %s", entry.Level)
	}
	if entry.Reason != scheduler.ReasonErrorBackoff {
		t.Errorf("expected %q, got %q", scheduler.ReasonErrorBackoff, entry.Reason)
	}
}

func TestExecuteAnalyzeUnknownSource(t *testing.T) {
	executor, _ := testSetup(t, "a")

	outcome := executor.Execute(context.Background(), Command{
		Kind: KindAnalyzeSource, SourceKey: "nobody",
	})
	if outcome.Success {
		t.Fatal("unknown source must not succeed")
	}
	if !errors.Is(outcome.Err, scheduler.ErrSourceNotFound) {
		t.Errorf("expected ErrSourceNotFound, got %v", outcome.Err)
	}
}

func TestExecuteRecordMetrics(t *testing.T) {
	executor, store := testSetup(t, "a")

	outcome := executor.Execute(context.Background(), Command{
		Kind:      KindRecordMetrics,
		SourceKey: "a",
		Sample:    &metrics.Sample{RecordsProcessed: 5, RecordsChanged: 2},
	})
	if !outcome.Success {
		t.Fatalf("record_metrics failed: %s", outcome.Error)
	}

	window, err := store.Window("a", 0)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(window) != 1 {
		t.Errorf("expected 1 sample, got %d", len(window))
	}
}

func TestExecuteRecordMetricsInvalid(t *testing.T) {
	executor, _ := testSetup(t, "a")

	outcome := executor.Execute(context.Background(), Command{
		Kind:      KindRecordMetrics,
		SourceKey: "a",
		Sample:    &metrics.Sample{RecordsProcessed: -1},
	})
	if outcome.Success {
		t.Fatal("invalid sample must not succeed")
	}
	if !errors.Is(outcome.Err, metrics.ErrInvalidSample) {
		t.Errorf("expected ErrInvalidSample, got %v", outcome.Err)
	}
}

func TestExecuteStatsCapabilities(t *testing.T) {
	executor, _ := testSetup(t, "a")

	outcome := executor.Execute(context.Background(), Command{Kind: KindStats})
	if !outcome.Success {
		t.Fatalf("stats failed: %s", outcome.Error)
	}

	report, ok := outcome.Data.(StatsReport)
	if !ok {
		t.Fatalf("unexpected stats payload: %+v", outcome.Data)
	}

	if len(report.Capabilities.FrequencyLevels) != 5 {
		t.Errorf("expected 5 frequency levels, got %d", len(report.Capabilities.FrequencyLevels))
	}
	if len(report.Capabilities.ActivityPatterns) != 5 {
		t.Errorf("expected 5 activity patterns, got %d", len(report.Capabilities.ActivityPatterns))
	}
	if len(report.Capabilities.AdaptiveFactors) != 5 {
		t.Errorf("expected 5 adaptive factors, got %d", len(report.Capabilities.AdaptiveFactors))
	}
	if report.Stats.TotalSources != 1 {
		t.Errorf("expected 1 source in stats, got %d", report.Stats.TotalSources)
	}
}

func TestExecuteDeadlineCancelsRun(t *testing.T) {
	executor, _ := testSetup(t, "a")
	// A deadline already in the past: the handler must observe the
	// cancelled run context and refuse to do the work.
	executor.queryTimeout = -time.Second

	outcome := executor.Execute(context.Background(), Command{Kind: KindStats})
	if outcome.Success {
		t.Fatal("expired deadline must not succeed")
	}
	if !outcome.Timeout {
		t.Errorf("expected a timeout outcome, got %+v", outcome)
	}
	if !errors.Is(outcome.Err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", outcome.Err)
	}
}

func TestMutatingClassification(t *testing.T) {
	mutating := map[string]bool{
		KindUpdateSchedules:  true,
		KindRecordMetrics:    true,
		KindAnalyzeSource:    false,
		KindCurrentSchedules: false,
		KindStats:            false,
	}
	for kind, want := range mutating {
		if got := (Command{Kind: kind}).Mutating(); got != want {
			t.Errorf("Mutating(%s) = %v, want %v", kind, got, want)
		}
	}
}
