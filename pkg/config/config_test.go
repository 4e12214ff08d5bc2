package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func validTestConfig() *Config {
	cfg := getDefaultConfig()
	cfg.Sources = []SourceConfig{
		{Key: "ncmec_missing", Name: "NCMEC Missing Persons", Enabled: true},
		{Key: "amber_alerts", Name: "Amber Alerts Feed", Enabled: true},
	}
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	if err := validTestConfig().ValidateConfig(); err != nil {
		t.Errorf("default configuration should validate, got %v", err)
	}
}

func TestDefaultIntervalTable(t *testing.T) {
	sc := NewSchedulerConfig()

	want := map[string]int{
		LevelCritical: 15,
		LevelHigh:     60,
		LevelNormal:   360,
		LevelLow:      1440,
		LevelMinimal:  4320,
	}
	for level, minutes := range want {
		if got := sc.IntervalMinutes[level]; got != minutes {
			t.Errorf("level %s: expected %d, got %d", level, minutes, got)
		}
	}
}

func TestValidateRejectsMissingLevel(t *testing.T) {
	cfg := validTestConfig()
	delete(cfg.Scheduler.IntervalMinutes, LevelLow)

	err := cfg.ValidateConfig()
	if !errors.Is(err, ErrSchedulerConfig) {
		t.Errorf("expected ErrSchedulerConfig, got %v", err)
	}
}

func TestValidateRejectsUnorderedIntervals(t *testing.T) {
	cfg := validTestConfig()
	cfg.Scheduler.IntervalMinutes[LevelHigh] = 5 // tighter than critical

	if err := cfg.ValidateConfig(); !errors.Is(err, ErrSchedulerConfig) {
		t.Errorf("expected ErrSchedulerConfig, got %v", err)
	}
}

func TestValidateRejectsBadThreshold(t *testing.T) {
	cfg := validTestConfig()
	cfg.Scheduler.UrgencyThreshold = 1.5

	if err := cfg.ValidateConfig(); !errors.Is(err, ErrSchedulerConfig) {
		t.Errorf("expected ErrSchedulerConfig, got %v", err)
	}
}

func TestValidateRejectsDuplicateSource(t *testing.T) {
	cfg := validTestConfig()
	cfg.Sources = append(cfg.Sources, SourceConfig{Key: "amber_alerts", Name: "Duplicate"})

	if err := cfg.ValidateConfig(); !errors.Is(err, ErrSourceConfig) {
		t.Errorf("expected ErrSourceConfig, got %v", err)
	}
}

func TestValidateRejectsZeroWorkers(t *testing.T) {
	cfg := validTestConfig()
	cfg.Dispatcher.Workers = 0

	if err := cfg.ValidateConfig(); !errors.Is(err, ErrDispatcherConfig) {
		t.Errorf("expected ErrDispatcherConfig, got %v", err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.GetSchedulerConfig().WindowHours != 168 {
		t.Errorf("expected default window of 168h, got %d", cfg.GetSchedulerConfig().WindowHours)
	}
}

func TestLoadConfigYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	original := validTestConfig()
	original.Scheduler.MaxCriticalSources = 5
	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.GetSchedulerConfig().MaxCriticalSources != 5 {
		t.Errorf("expected max critical 5, got %d", loaded.GetSchedulerConfig().MaxCriticalSources)
	}
	if len(loaded.Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(loaded.Sources))
	}
}

func TestLoadConfigRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("x = 1"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadConfig(path); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}

func TestFindSource(t *testing.T) {
	cfg := validTestConfig()

	src, ok := cfg.FindSource("amber_alerts")
	if !ok || src.Name != "Amber Alerts Feed" {
		t.Errorf("FindSource failed: %+v %v", src, ok)
	}
	if _, ok := cfg.FindSource("nobody"); ok {
		t.Error("unknown key should not be found")
	}
}
