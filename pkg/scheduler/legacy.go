package scheduler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Legacy line format consumed by older tooling:
//
//	<source_key>: <level> (<interval> min) - <reason>
//
// FormatEntry and ParseEntry are exact inverses for any valid entry so
// schedules can round-trip through the text surface.
var legacyLine = regexp.MustCompile(`^([^:\s]+): (critical|high|normal|low|minimal) \((\d+) min\) - (.+)$`)

// FormatEntry renders one schedule entry as a legacy text line
func FormatEntry(entry ScheduleEntry) string {
	return fmt.Sprintf("%s: %s (%d min) - %s",
		entry.SourceKey, entry.Level, entry.IntervalMinutes, entry.Reason)
}

// FormatEntries renders the schedule table, one line per entry
func FormatEntries(entries []ScheduleEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, FormatEntry(entry))
	}
	return strings.Join(lines, "\n")
}

// ParseEntry parses a legacy text line back into a schedule entry.
// Only the fields the format carries are populated; timestamps and
// adaptive factors are lost in the text form.
func ParseEntry(line string) (ScheduleEntry, error) {
	match := legacyLine.FindStringSubmatch(strings.TrimRight(line, "\r\n"))
	if match == nil {
		return ScheduleEntry{}, fmt.Errorf("%w: %q", ErrMalformedEntry, line)
	}

	interval, err := strconv.Atoi(match[3])
	if err != nil {
		return ScheduleEntry{}, fmt.Errorf("%w: bad interval in %q", ErrMalformedEntry, line)
	}

	return ScheduleEntry{
		SourceKey:       match[1],
		Level:           FrequencyLevel(match[2]),
		IntervalMinutes: interval,
		Reason:          match[4],
	}, nil
}

// ParseEntries parses a multi-line legacy schedule dump, skipping
// blank lines. Any malformed line fails the whole parse.
func ParseEntries(text string) ([]ScheduleEntry, error) {
	var entries []ScheduleEntry
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseEntry(line)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
