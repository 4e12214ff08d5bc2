package metrics

import (
	"errors"
	"testing"
	"time"
)

var testBase = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore([]string{"ncmec_missing", "state_a"}, DefaultWindowHours, 15*time.Minute)
	s.SetClock(func() time.Time { return testBase })
	return s
}

func TestRecordAndWindow(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 3; i++ {
		sample := Sample{
			SourceKey:        "ncmec_missing",
			Timestamp:        testBase.Add(-time.Duration(i) * time.Hour),
			RecordsProcessed: 10,
			RecordsChanged:   i,
		}
		if err := s.Record(sample); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	window, err := s.Window("ncmec_missing", 0)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("expected 3 samples in window, got %d", len(window))
	}

	// Window must come back oldest first
	for i := 1; i < len(window); i++ {
		if window[i].Timestamp.Before(window[i-1].Timestamp) {
			t.Errorf("window is not ordered at index %d", i)
		}
	}
}

func TestRecordUnknownSource(t *testing.T) {
	s := newTestStore(t)

	err := s.Record(Sample{SourceKey: "nobody", RecordsProcessed: 1})
	if !errors.Is(err, ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestRecordRejectsInvalidSamples(t *testing.T) {
	s := newTestStore(t)

	cases := []struct {
		name   string
		sample Sample
	}{
		{"negative processed", Sample{SourceKey: "state_a", RecordsProcessed: -1}},
		{"changed exceeds processed", Sample{SourceKey: "state_a", RecordsProcessed: 1, RecordsChanged: 2}},
		{"urgency above one", Sample{SourceKey: "state_a", UrgencyScore: 1.5}},
		{"negative response time", Sample{SourceKey: "state_a", ResponseTimeMS: -10}},
	}
	for _, tc := range cases {
		if err := s.Record(tc.sample); !errors.Is(err, ErrInvalidSample) {
			t.Errorf("%s: expected ErrInvalidSample, got %v", tc.name, err)
		}
	}
}

func TestRecordSpacingFloor(t *testing.T) {
	s := newTestStore(t)

	first := Sample{SourceKey: "state_a", Timestamp: testBase.Add(-time.Hour), RecordsProcessed: 1}
	if err := s.Record(first); err != nil {
		t.Fatalf("first Record failed: %v", err)
	}

	tooClose := first
	tooClose.Timestamp = first.Timestamp.Add(5 * time.Minute)
	if err := s.Record(tooClose); !errors.Is(err, ErrSampleTooSoon) {
		t.Errorf("expected ErrSampleTooSoon, got %v", err)
	}

	farEnough := first
	farEnough.Timestamp = first.Timestamp.Add(15 * time.Minute)
	if err := s.Record(farEnough); err != nil {
		t.Errorf("sample at the spacing floor should be accepted, got %v", err)
	}
}

func TestAggregate(t *testing.T) {
	s := newTestStore(t)

	samples := []Sample{
		{SourceKey: "state_a", Timestamp: testBase.Add(-2 * time.Hour), RecordsProcessed: 10, RecordsChanged: 5, ErrorsCount: 0, ResponseTimeMS: 100, UrgencyScore: 0.2, SystemLoad: 0.5},
		{SourceKey: "state_a", Timestamp: testBase.Add(-1 * time.Hour), RecordsProcessed: 10, RecordsChanged: 10, ErrorsCount: 2, ResponseTimeMS: 300, UrgencyScore: 0.8, SystemLoad: 0.3},
	}
	for _, sample := range samples {
		if err := s.Record(sample); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	agg, err := s.Aggregate("state_a", 0)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if agg.SampleCount != 2 {
		t.Errorf("expected 2 samples, got %d", agg.SampleCount)
	}
	if agg.ChangeRate != 0.75 {
		t.Errorf("expected change rate 0.75, got %v", agg.ChangeRate)
	}
	if agg.ErrorRate != 0.1 {
		t.Errorf("expected error rate 0.1, got %v", agg.ErrorRate)
	}
	if agg.AvgResponseTimeMS != 200 {
		t.Errorf("expected avg response 200ms, got %v", agg.AvgResponseTimeMS)
	}
	if agg.MaxUrgencyScore != 0.8 {
		t.Errorf("expected max urgency 0.8, got %v", agg.MaxUrgencyScore)
	}
	if diff := agg.AvgSystemLoad - 0.4; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected avg load 0.4, got %v", agg.AvgSystemLoad)
	}
	if !agg.LastSampleAt.Equal(testBase.Add(-1 * time.Hour)) {
		t.Errorf("wrong last sample time: %v", agg.LastSampleAt)
	}
}

func TestAggregateEmptyWindow(t *testing.T) {
	s := newTestStore(t)

	agg, err := s.Aggregate("state_a", 0)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if agg.SampleCount != 0 || agg.ChangeRate != 0 || agg.ErrorRate != 0 {
		t.Errorf("expected zero aggregate for empty window, got %+v", agg)
	}
}

func TestPruneBoundsWindow(t *testing.T) {
	s := newTestStore(t)

	inside := Sample{SourceKey: "state_a", Timestamp: testBase.Add(-100 * time.Hour), RecordsProcessed: 1}
	outside := Sample{SourceKey: "state_a", Timestamp: testBase.Add(-200 * time.Hour), RecordsProcessed: 1}
	for _, sample := range []Sample{inside, outside} {
		if err := s.Record(sample); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	removed := s.Prune(DefaultWindowHours)
	if removed != 1 {
		t.Fatalf("expected 1 pruned sample, got %d", removed)
	}

	window, err := s.Window("state_a", DefaultWindowHours)
	if err != nil {
		t.Fatalf("Window failed: %v", err)
	}
	if len(window) != 1 {
		t.Errorf("expected 1 sample left, got %d", len(window))
	}
}

func TestRestoreSkipsInvalid(t *testing.T) {
	s := newTestStore(t)

	restored := s.Restore([]Sample{
		{SourceKey: "state_a", Timestamp: testBase.Add(-time.Hour), RecordsProcessed: 1},
		{SourceKey: "nobody", Timestamp: testBase.Add(-time.Hour), RecordsProcessed: 1},
		{SourceKey: "state_a", Timestamp: testBase.Add(-2 * time.Hour), RecordsProcessed: -1},
	})
	if restored != 1 {
		t.Errorf("expected 1 restored sample, got %d", restored)
	}
}

func TestRecordHookFiresOnAccept(t *testing.T) {
	s := newTestStore(t)

	var got []Sample
	s.SetRecordHook(func(sample Sample) { got = append(got, sample) })

	if err := s.Record(Sample{SourceKey: "state_a", RecordsProcessed: 1}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Record(Sample{SourceKey: "nobody", RecordsProcessed: 1}); err == nil {
		t.Fatal("expected rejection for unknown source")
	}

	if len(got) != 1 {
		t.Fatalf("hook should fire once, fired %d times", len(got))
	}
	if got[0].Timestamp.IsZero() {
		t.Error("hook should see the filled-in timestamp")
	}
}
