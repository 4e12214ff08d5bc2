package dispatcher

import (
	"context"
	"fmt"

	"casewatch/pkg/config"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PersistenceSink mirrors schedule updates and pruning to durable
// storage. A nil sink disables mirroring.
type PersistenceSink interface {
	SaveSchedules(entries []scheduler.ScheduleEntry) error
	PruneSamples(windowHours int) error
}

// Runner drives the scheduling loop: periodic schedule recomputation,
// dispatch ticks, and metrics pruning, each on its own cron entry
type Runner struct {
	cron       *cron.Cron
	ctx        context.Context
	manager    *scheduler.Manager
	dispatcher *Dispatcher
	store      *metrics.Store
	sc         *config.SchedulerConfig
	dc         *config.DispatcherConfig
	sink       PersistenceSink
}

// NewRunner creates the scheduling loop from configuration
func NewRunner(ctx context.Context, cfg *config.Config, manager *scheduler.Manager, dispatcher *Dispatcher, store *metrics.Store) (*Runner, error) {
	r := &Runner{
		cron:       cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		ctx:        ctx,
		manager:    manager,
		dispatcher: dispatcher,
		store:      store,
		sc:         cfg.GetSchedulerConfig(),
		dc:         cfg.GetDispatcherConfig(),
	}

	if err := r.register(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Runner) register() error {
	if _, err := r.cron.AddFunc(r.sc.UpdateEvery, r.updateSchedules); err != nil {
		return fmt.Errorf("failed to register schedule update job: %w", err)
	}
	if _, err := r.cron.AddFunc(r.dc.TickEvery, r.tick); err != nil {
		return fmt.Errorf("failed to register dispatch tick job: %w", err)
	}
	if _, err := r.cron.AddFunc(r.sc.PruneEvery, r.prune); err != nil {
		return fmt.Errorf("failed to register prune job: %w", err)
	}
	return nil
}

// Start computes the initial schedule table, then runs the loop until
// the context is cancelled. In-flight runs are drained on shutdown.
func (r *Runner) Start() error {
	logger.Info("Starting scheduling loop",
		zap.String("update_every", r.sc.UpdateEvery),
		zap.String("tick_every", r.dc.TickEvery),
		zap.String("prune_every", r.sc.PruneEvery))

	if err := r.manager.UpdateSchedules(); err != nil {
		return fmt.Errorf("initial schedule update failed: %w", err)
	}
	r.persistSchedules()

	r.cron.Start()

	<-r.ctx.Done()
	return r.Shutdown()
}

// Shutdown stops the loop and waits for running collections to finish
func (r *Runner) Shutdown() error {
	logger.Info("Stopping scheduling loop")

	stopCtx := r.cron.Stop()
	<-stopCtx.Done()

	r.dispatcher.Drain()

	logger.Info("Scheduling loop stopped")
	return nil
}

// SetSink mirrors schedule table updates and prunes to durable storage
func (r *Runner) SetSink(sink PersistenceSink) {
	r.sink = sink
}

func (r *Runner) updateSchedules() {
	if err := r.manager.UpdateSchedules(); err != nil {
		logger.Error("Scheduled update failed", zap.Error(err))
		return
	}
	r.persistSchedules()
}

func (r *Runner) persistSchedules() {
	if r.sink == nil {
		return
	}
	if err := r.sink.SaveSchedules(r.manager.CurrentSchedules()); err != nil {
		logger.Warn("Failed to persist schedule table", zap.Error(err))
	}
}

func (r *Runner) tick() {
	if n := r.dispatcher.Tick(r.ctx); n > 0 {
		logger.Debug("Dispatched due sources", zap.Int("count", n))
	}
}

func (r *Runner) prune() {
	if removed := r.store.Prune(r.sc.WindowHours); removed > 0 {
		logger.Debug("Pruned metrics samples", zap.Int("removed", removed))
	}
	if r.sink != nil {
		if err := r.sink.PruneSamples(r.sc.WindowHours); err != nil {
			logger.Warn("Failed to prune persisted samples", zap.Error(err))
		}
	}
}
