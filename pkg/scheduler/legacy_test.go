package scheduler

import (
	"errors"
	"reflect"
	"testing"
)

func TestFormatEntry(t *testing.T) {
	entry := ScheduleEntry{
		SourceKey:       "amber_alerts",
		Level:           LevelCritical,
		IntervalMinutes: 15,
		Reason:          ReasonHighUrgency,
	}
	want := "amber_alerts: critical (15 min) - high urgency signal"
	if got := FormatEntry(entry); got != want {
		t.Errorf("FormatEntry:\n got %q\nwant %q", got, want)
	}
}

func TestParseEntryRoundTrip(t *testing.T) {
	entries := []ScheduleEntry{
		{SourceKey: "amber_alerts", Level: LevelCritical, IntervalMinutes: 15, Reason: ReasonHighUrgency},
		{SourceKey: "florida_fdle", Level: LevelNormal, IntervalMinutes: 360, Reason: ReasonErrorBackoff},
		{SourceKey: "ncmec_missing", Level: LevelLow, IntervalMinutes: 1440, Reason: "sporadic activity pattern"},
		{SourceKey: "texas_dps", Level: LevelMinimal, IntervalMinutes: 4320, Reason: ReasonBreakerOpen},
	}

	for _, entry := range entries {
		parsed, err := ParseEntry(FormatEntry(entry))
		if err != nil {
			t.Fatalf("ParseEntry(%q) failed: %v", FormatEntry(entry), err)
		}
		if !reflect.DeepEqual(parsed, entry) {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", parsed, entry)
		}
	}
}

func TestParseEntryTrailingNewline(t *testing.T) {
	parsed, err := ParseEntry("site_x: high (60 min) - burst activity pattern\n")
	if err != nil {
		t.Fatalf("ParseEntry failed: %v", err)
	}
	if parsed.SourceKey != "site_x" || parsed.Level != LevelHigh {
		t.Errorf("unexpected entry: %+v", parsed)
	}
}

func TestParseEntryMalformed(t *testing.T) {
	lines := []string{
		"",
		"garbage",
		"site_x: urgent (60 min) - unknown level",
		"site_x: high (sixty min) - non-numeric interval",
		"site_x high (60 min) - missing colon",
		"site_x: high (60 min) missing dash",
	}
	for _, line := range lines {
		if _, err := ParseEntry(line); !errors.Is(err, ErrMalformedEntry) {
			t.Errorf("ParseEntry(%q): expected ErrMalformedEntry, got %v", line, err)
		}
	}
}

func TestFormatParseEntriesMultiLine(t *testing.T) {
	entries := []ScheduleEntry{
		{SourceKey: "a", Level: LevelHigh, IntervalMinutes: 60, Reason: "burst activity pattern"},
		{SourceKey: "b", Level: LevelMinimal, IntervalMinutes: 4320, Reason: "dormant activity pattern"},
	}

	parsed, err := ParseEntries(FormatEntries(entries) + "\n")
	if err != nil {
		t.Fatalf("ParseEntries failed: %v", err)
	}
	if len(parsed) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(parsed))
	}
	for i := range entries {
		if !reflect.DeepEqual(parsed[i], entries[i]) {
			t.Errorf("entry %d mismatch: got %+v want %+v", i, parsed[i], entries[i])
		}
	}
}
