package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"casewatch/pkg/collector"
	"casewatch/pkg/config"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const runHistoryLimit = 100

// RunSink receives completed run records for durable storage
type RunSink interface {
	SaveRun(run JobRun) error
}

// Alerter pushes operator alerts on breaker transitions
type Alerter interface {
	SendBreakerAlert(ctx context.Context, sourceKey string, failures int) error
	SendRecoveryAlert(ctx context.Context, sourceKey string) error
}

// LoadFunc reports the current system load as a 0..1 fraction. The
// default is dispatcher saturation, in-flight runs over pool width.
type LoadFunc func() float64

// JobRun records one collection run dispatched for a source
type JobRun struct {
	ID         string            `json:"id"`
	SourceKey  string            `json:"source_key"`
	Outcome    scheduler.Outcome `json:"outcome"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Error      string            `json:"error,omitempty"`
}

// Dispatcher executes due collection runs on a bounded worker pool.
// Run claims go through the schedule manager, so a source can never
// execute twice concurrently regardless of tick overlap.
type Dispatcher struct {
	manager  *scheduler.Manager
	store    *metrics.Store
	registry *collector.Registry
	sources  map[string]config.SourceConfig

	slots          chan struct{}
	workers        int
	collectTimeout time.Duration
	loadFunc       LoadFunc
	inFlight       atomic.Int64

	wg sync.WaitGroup

	mu      sync.Mutex
	runs    map[string]*JobRun
	sink    RunSink
	alerter Alerter
	alerted map[string]bool

	now func() time.Time
}

// NewDispatcher creates a dispatcher over the manager's schedule table
func NewDispatcher(cfg *config.Config, manager *scheduler.Manager, store *metrics.Store, registry *collector.Registry) *Dispatcher {
	dc := cfg.GetDispatcherConfig()

	sources := make(map[string]config.SourceConfig, len(cfg.Sources))
	for _, src := range cfg.Sources {
		sources[src.Key] = src
	}

	d := &Dispatcher{
		manager:        manager,
		store:          store,
		registry:       registry,
		sources:        sources,
		slots:          make(chan struct{}, dc.Workers),
		workers:        dc.Workers,
		collectTimeout: time.Duration(dc.CollectTimeout) * time.Second,
		runs:           make(map[string]*JobRun),
		alerted:        make(map[string]bool),
		now:            time.Now,
	}
	d.loadFunc = d.saturation
	return d
}

// SetLoadFunc replaces the system load source recorded on samples
func (d *Dispatcher) SetLoadFunc(fn LoadFunc) {
	if fn != nil {
		d.loadFunc = fn
	}
}

// SetClock overrides the time source, used by tests
func (d *Dispatcher) SetClock(now func() time.Time) {
	d.now = now
}

// SetRunSink mirrors completed runs to durable storage
func (d *Dispatcher) SetRunSink(sink RunSink) {
	d.sink = sink
}

// SetAlerter enables operator alerts on breaker open and recovery
func (d *Dispatcher) SetAlerter(alerter Alerter) {
	d.alerter = alerter
}

// Tick dispatches due sources while worker slots are free. A source is
// only claimed after its slot is held, so sources beyond the pool width
// stay due and untouched until a later tick. The call returns once the
// claimed runs have been handed to workers, not when they finish.
func (d *Dispatcher) Tick(ctx context.Context) int {
	ticksTotal.Inc()

	dispatched := 0
	for _, entry := range d.manager.DueSources(d.now()) {
		if ctx.Err() != nil {
			return dispatched
		}

		select {
		case d.slots <- struct{}{}:
		default:
			// Pool is full; the remaining due sources wait for the
			// next tick.
			return dispatched
		}

		if err := d.manager.MarkRunning(entry.SourceKey); err != nil {
			<-d.slots
			if errors.Is(err, scheduler.ErrAlreadyRunning) {
				continue
			}
			logger.Warn("Failed to claim run",
				zap.String("source_key", entry.SourceKey), zap.Error(err))
			continue
		}

		dispatched++
		d.wg.Add(1)
		go func(entry scheduler.ScheduleEntry) {
			defer d.wg.Done()
			defer func() { <-d.slots }()
			d.run(ctx, entry)
		}(entry)
	}

	return dispatched
}

// Drain waits for all in-flight runs to finish
func (d *Dispatcher) Drain() {
	d.wg.Wait()
}

// RecentRuns returns the retained run history, newest first
func (d *Dispatcher) RecentRuns() []JobRun {
	d.mu.Lock()
	defer d.mu.Unlock()

	runs := make([]JobRun, 0, len(d.runs))
	for _, run := range d.runs {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	return runs
}

// run executes one collection with the configured timeout and feeds
// the outcome back into the metrics store and schedule manager
func (d *Dispatcher) run(ctx context.Context, entry scheduler.ScheduleEntry) {
	job := &JobRun{
		ID:        uuid.New().String(),
		SourceKey: entry.SourceKey,
		StartedAt: d.now(),
	}

	d.inFlight.Add(1)
	runsInFlight.Inc()
	defer func() {
		d.inFlight.Add(-1)
		runsInFlight.Dec()
	}()

	runCtx, cancel := context.WithTimeout(ctx, d.collectTimeout)
	defer cancel()
	runCtx = logger.WithSourceKey(logger.WithRunID(runCtx, job.ID), entry.SourceKey)

	result, err := d.collect(runCtx, entry.SourceKey)
	elapsed := d.now().Sub(job.StartedAt)

	outcome := scheduler.OutcomeSuccess
	if err != nil {
		outcome = scheduler.OutcomeFailure
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = scheduler.OutcomeTimeout
		}
		job.Error = err.Error()
		logger.FromContext(runCtx).Warn("Collection run failed",
			zap.String("outcome", string(outcome)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
	} else {
		logger.FromContext(runCtx).Info("Collection run completed",
			zap.Int("records_processed", result.RecordsProcessed),
			zap.Int("records_changed", result.RecordsChanged),
			zap.Duration("elapsed", elapsed))
	}

	job.Outcome = outcome
	job.FinishedAt = job.StartedAt.Add(elapsed)

	sample := metrics.Sample{
		SourceKey:      entry.SourceKey,
		Timestamp:      job.FinishedAt,
		ResponseTimeMS: float64(elapsed.Milliseconds()),
		SystemLoad:     d.loadFunc(),
	}
	if result != nil {
		sample.RecordsProcessed = result.RecordsProcessed
		sample.RecordsChanged = result.RecordsChanged
		sample.UrgencyScore = result.UrgencyScore
	}
	if outcome != scheduler.OutcomeSuccess {
		sample.ErrorsCount = 1
	}

	if recordErr := d.store.Record(sample); recordErr != nil {
		logger.FromContext(runCtx).Warn("Failed to record run sample", zap.Error(recordErr))
	}

	d.finish(entry.SourceKey, outcome)
	d.notifyBreaker(runCtx, entry.SourceKey)
	d.remember(job)

	if d.sink != nil {
		if sinkErr := d.sink.SaveRun(*job); sinkErr != nil {
			logger.FromContext(runCtx).Warn("Failed to persist run record", zap.Error(sinkErr))
		}
	}

	runsTotal.WithLabelValues(entry.SourceKey, string(outcome)).Inc()
	runDuration.WithLabelValues(entry.SourceKey).Observe(elapsed.Seconds())
}

func (d *Dispatcher) collect(ctx context.Context, sourceKey string) (*collector.Result, error) {
	src, ok := d.sources[sourceKey]
	if !ok {
		return nil, fmt.Errorf("source %s is not configured", sourceKey)
	}

	c, err := d.registry.Lookup(sourceKey)
	if err != nil {
		return nil, err
	}

	result, err := c.Collect(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("collection for %s timed out: %w", sourceKey, context.DeadlineExceeded)
		}
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) finish(sourceKey string, outcome scheduler.Outcome) {
	if err := d.manager.MarkComplete(sourceKey, outcome); err != nil {
		logger.Error("Failed to complete run",
			zap.String("source_key", sourceKey), zap.Error(err))
	}
}

// notifyBreaker fires an operator alert when a source's breaker opens
// and a recovery alert when it closes again. Each transition alerts
// once; repeated failures while the breaker stays open are silent.
func (d *Dispatcher) notifyBreaker(ctx context.Context, sourceKey string) {
	if d.alerter == nil {
		return
	}

	open := d.manager.BreakerOpen(sourceKey)

	d.mu.Lock()
	changed := open != d.alerted[sourceKey]
	d.alerted[sourceKey] = open
	d.mu.Unlock()
	if !changed {
		return
	}

	// The run context may already be past its deadline here.
	alertCtx := context.WithoutCancel(ctx)
	var err error
	if open {
		err = d.alerter.SendBreakerAlert(alertCtx, sourceKey, d.manager.FailStreak(sourceKey))
	} else {
		err = d.alerter.SendRecoveryAlert(alertCtx, sourceKey)
	}
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to send breaker alert", zap.Error(err))
	}
}

// remember retains the run in bounded history, evicting oldest first
func (d *Dispatcher) remember(job *JobRun) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.runs[job.ID] = job
	if len(d.runs) <= runHistoryLimit {
		return
	}

	oldestID := ""
	var oldestAt time.Time
	for id, run := range d.runs {
		if oldestID == "" || run.StartedAt.Before(oldestAt) {
			oldestID = id
			oldestAt = run.StartedAt
		}
	}
	delete(d.runs, oldestID)
}

// saturation is the default load signal: in-flight runs over pool width
func (d *Dispatcher) saturation() float64 {
	if d.workers <= 0 {
		return 0
	}
	return float64(d.inFlight.Load()) / float64(d.workers)
}
