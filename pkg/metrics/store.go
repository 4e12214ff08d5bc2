package metrics

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultWindowHours is the retention window for samples (7 days)
const DefaultWindowHours = 168

// Sample is one observation reported by a collector after a run,
// successful or not. Samples are immutable once recorded.
type Sample struct {
	SourceKey        string    `json:"source_key"`
	Timestamp        time.Time `json:"timestamp"`
	RecordsProcessed int       `json:"records_processed"`
	RecordsChanged   int       `json:"records_changed"`
	ErrorsCount      int       `json:"errors_count"`
	ResponseTimeMS   float64   `json:"response_time_ms"`
	UrgencyScore     float64   `json:"urgency_score"`
	SystemLoad       float64   `json:"system_load"`
}

// Changed reports whether the run observed any record changes
func (s Sample) Changed() bool {
	return s.RecordsChanged > 0
}

// Aggregate holds rolling statistics over a source's metrics window
type Aggregate struct {
	ChangeRate        float64   `json:"change_rate"`
	ErrorRate         float64   `json:"error_rate"`
	AvgResponseTimeMS float64   `json:"avg_response_time_ms"`
	MaxUrgencyScore   float64   `json:"max_urgency_score"`
	AvgSystemLoad     float64   `json:"avg_system_load"`
	SampleCount       int       `json:"sample_count"`
	LastSampleAt      time.Time `json:"last_sample_at"`
}

// Store is an append-only time-series of per-source samples bounded to
// a rolling window. Writers and readers share one RWMutex; all reads
// copy out so callers never hold references into the table.
type Store struct {
	mu          sync.RWMutex
	samples     map[string][]Sample
	known       map[string]bool
	windowHours int
	minSpacing  time.Duration
	now         func() time.Time
	onRecord    func(Sample)
}

// NewStore creates a metrics store for the given source keys. The
// minSpacing floor is the critical-level interval: no two samples for
// one source may sit closer together than that.
func NewStore(sourceKeys []string, windowHours int, minSpacing time.Duration) *Store {
	if windowHours <= 0 {
		windowHours = DefaultWindowHours
	}

	known := make(map[string]bool, len(sourceKeys))
	for _, key := range sourceKeys {
		known[key] = true
	}

	return &Store{
		samples:     make(map[string][]Sample, len(sourceKeys)),
		known:       known,
		windowHours: windowHours,
		minSpacing:  minSpacing,
		now:         time.Now,
	}
}

// SetClock overrides the time source, used by tests
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetRecordHook installs a callback invoked after every accepted
// sample, outside the store lock. Used for write-through persistence.
func (s *Store) SetRecordHook(hook func(Sample)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRecord = hook
}

// Record appends a sample after validating it
func (s *Store) Record(sample Sample) error {
	if err := validateSample(sample); err != nil {
		return err
	}

	sample, err := s.record(sample)
	if err != nil {
		return err
	}

	if s.onRecord != nil {
		s.onRecord(sample)
	}
	return nil
}

func (s *Store) record(sample Sample) (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.known[sample.SourceKey] {
		return Sample{}, fmt.Errorf("%w: %s", ErrUnknownSource, sample.SourceKey)
	}

	if sample.Timestamp.IsZero() {
		sample.Timestamp = s.now()
	}

	existing := s.samples[sample.SourceKey]
	if s.minSpacing > 0 {
		for _, prev := range existing {
			delta := sample.Timestamp.Sub(prev.Timestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta < s.minSpacing {
				return Sample{}, fmt.Errorf("%w: %s at %s", ErrSampleTooSoon,
					sample.SourceKey, sample.Timestamp.Format(time.RFC3339))
			}
		}
	}

	existing = append(existing, sample)
	// Keep the series ordered; out-of-order timestamps are legal input
	sort.Slice(existing, func(i, j int) bool {
		return existing[i].Timestamp.Before(existing[j].Timestamp)
	})
	s.samples[sample.SourceKey] = s.pruneLocked(existing)

	return sample, nil
}

// Restore loads previously persisted samples, skipping any that no
// longer validate against the current source table
func (s *Store) Restore(samples []Sample) int {
	restored := 0
	for _, sample := range samples {
		if err := validateSample(sample); err != nil {
			continue
		}
		if _, err := s.record(sample); err == nil {
			restored++
		}
	}
	return restored
}

// Window returns the ordered samples for a source within the window
func (s *Store) Window(sourceKey string, windowHours int) ([]Sample, error) {
	if windowHours <= 0 {
		windowHours = s.windowHours
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.known[sourceKey] {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, sourceKey)
	}

	cutoff := s.now().Add(-time.Duration(windowHours) * time.Hour)
	var window []Sample
	for _, sample := range s.samples[sourceKey] {
		if sample.Timestamp.After(cutoff) {
			window = append(window, sample)
		}
	}

	return window, nil
}

// Aggregate computes rolling statistics for a source over the window.
// An empty window yields a zero aggregate with SampleCount=0.
func (s *Store) Aggregate(sourceKey string, windowHours int) (Aggregate, error) {
	window, err := s.Window(sourceKey, windowHours)
	if err != nil {
		return Aggregate{}, err
	}

	var agg Aggregate
	if len(window) == 0 {
		return agg, nil
	}

	var processed, changed, errs int
	var responseSum, loadSum float64
	for _, sample := range window {
		processed += sample.RecordsProcessed
		changed += sample.RecordsChanged
		errs += sample.ErrorsCount
		responseSum += sample.ResponseTimeMS
		loadSum += sample.SystemLoad
		if sample.UrgencyScore > agg.MaxUrgencyScore {
			agg.MaxUrgencyScore = sample.UrgencyScore
		}
	}

	if processed > 0 {
		agg.ChangeRate = float64(changed) / float64(processed)
		agg.ErrorRate = float64(errs) / float64(processed)
	}
	agg.AvgResponseTimeMS = responseSum / float64(len(window))
	agg.AvgSystemLoad = loadSum / float64(len(window))
	agg.SampleCount = len(window)
	agg.LastSampleAt = window[len(window)-1].Timestamp

	return agg, nil
}

// LastSampleAt returns the newest sample timestamp for a source
func (s *Store) LastSampleAt(sourceKey string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.samples[sourceKey]
	if len(series) == 0 {
		return time.Time{}, false
	}
	return series[len(series)-1].Timestamp, true
}

// Prune drops samples older than the given horizon for every source and
// returns how many were removed. Idempotent.
func (s *Store) Prune(olderThanHours int) int {
	if olderThanHours <= 0 {
		olderThanHours = s.windowHours
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-time.Duration(olderThanHours) * time.Hour)
	removed := 0
	for key, series := range s.samples {
		kept := series[:0]
		for _, sample := range series {
			if sample.Timestamp.After(cutoff) {
				kept = append(kept, sample)
			} else {
				removed++
			}
		}
		s.samples[key] = kept
	}

	return removed
}

// pruneLocked trims one series to the window; caller holds the lock
func (s *Store) pruneLocked(series []Sample) []Sample {
	cutoff := s.now().Add(-time.Duration(s.windowHours) * time.Hour)
	kept := series[:0]
	for _, sample := range series {
		if sample.Timestamp.After(cutoff) {
			kept = append(kept, sample)
		}
	}
	return kept
}

func validateSample(sample Sample) error {
	if sample.SourceKey == "" {
		return fmt.Errorf("%w: source_key is required", ErrInvalidSample)
	}
	if sample.RecordsProcessed < 0 {
		return fmt.Errorf("%w: records_processed cannot be negative", ErrInvalidSample)
	}
	if sample.RecordsChanged < 0 {
		return fmt.Errorf("%w: records_changed cannot be negative", ErrInvalidSample)
	}
	if sample.RecordsChanged > sample.RecordsProcessed {
		return fmt.Errorf("%w: records_changed cannot exceed records_processed", ErrInvalidSample)
	}
	if sample.ErrorsCount < 0 {
		return fmt.Errorf("%w: errors_count cannot be negative", ErrInvalidSample)
	}
	if sample.ResponseTimeMS < 0 {
		return fmt.Errorf("%w: response_time_ms cannot be negative", ErrInvalidSample)
	}
	if sample.UrgencyScore < 0 || sample.UrgencyScore > 1 {
		return fmt.Errorf("%w: urgency_score must be within [0,1]", ErrInvalidSample)
	}
	if sample.SystemLoad < 0 || sample.SystemLoad > 1 {
		return fmt.Errorf("%w: system_load must be within [0,1]", ErrInvalidSample)
	}
	return nil
}
