package scheduler

import (
	"testing"
	"time"

	"casewatch/pkg/metrics"
)

var patternBase = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func sampleAt(offset time.Duration, processed, changed int) metrics.Sample {
	return metrics.Sample{
		SourceKey:        "src",
		Timestamp:        patternBase.Add(offset),
		RecordsProcessed: processed,
		RecordsChanged:   changed,
	}
}

func TestClassifyPatternDormant(t *testing.T) {
	if got := ClassifyPattern(nil); got != PatternDormant {
		t.Errorf("empty window: expected dormant, got %s", got)
	}

	window := []metrics.Sample{
		sampleAt(0, 10, 0),
		sampleAt(1*time.Hour, 10, 0),
		sampleAt(2*time.Hour, 10, 0),
	}
	if got := ClassifyPattern(window); got != PatternDormant {
		t.Errorf("no changes: expected dormant, got %s", got)
	}
}

func TestClassifyPatternBurst(t *testing.T) {
	// Three of five changes cluster inside 10% of the elapsed window
	window := []metrics.Sample{
		sampleAt(0, 10, 5),
		sampleAt(1*time.Hour, 10, 5),
		sampleAt(2*time.Hour, 10, 5),
		sampleAt(50*time.Hour, 10, 5),
		sampleAt(100*time.Hour, 10, 5),
	}
	if got := ClassifyPattern(window); got != PatternBurst {
		t.Errorf("expected burst, got %s", got)
	}
}

func TestClassifyPatternBurstSingleInstant(t *testing.T) {
	window := []metrics.Sample{sampleAt(0, 10, 5)}
	if got := ClassifyPattern(window); got != PatternBurst {
		t.Errorf("single changed sample: expected burst, got %s", got)
	}
}

func TestClassifyPatternPeriodic(t *testing.T) {
	// Changes regularly spaced every 10 hours
	window := []metrics.Sample{
		sampleAt(0, 100, 1),
		sampleAt(10*time.Hour, 100, 1),
		sampleAt(20*time.Hour, 100, 1),
		sampleAt(30*time.Hour, 100, 1),
		sampleAt(40*time.Hour, 100, 1),
	}
	if got := ClassifyPattern(window); got != PatternPeriodic {
		t.Errorf("expected periodic, got %s", got)
	}
}

func TestClassifyPatternSteady(t *testing.T) {
	// Irregular spacing, but most records change
	window := []metrics.Sample{
		sampleAt(0, 10, 10),
		sampleAt(7*time.Hour, 10, 10),
		sampleAt(9*time.Hour, 10, 10),
		sampleAt(30*time.Hour, 10, 10),
	}
	if got := ClassifyPattern(window); got != PatternSteady {
		t.Errorf("expected steady, got %s", got)
	}
}

func TestClassifyPatternSporadic(t *testing.T) {
	window := []metrics.Sample{
		sampleAt(0, 10, 1),
		sampleAt(5*time.Hour, 10, 0),
		sampleAt(20*time.Hour, 10, 0),
		sampleAt(55*time.Hour, 10, 1),
		sampleAt(90*time.Hour, 10, 0),
	}
	if got := ClassifyPattern(window); got != PatternSporadic {
		t.Errorf("expected sporadic, got %s", got)
	}
}
