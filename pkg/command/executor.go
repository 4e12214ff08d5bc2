package command

import (
	"context"
	"errors"
	"time"

	"casewatch/pkg/analysis"
	"casewatch/pkg/config"
	"casewatch/pkg/logger"
	"casewatch/pkg/metrics"
	"casewatch/pkg/scheduler"

	"go.uber.org/zap"
)

// Executor runs typed commands against the scheduler with per-class
// deadlines. A command that overruns its deadline reports a timeout
// outcome and the run context is cancelled under the worker.
type Executor struct {
	manager *scheduler.Manager
	store   *metrics.Store
	engine  *analysis.RecommendationEngine

	mutationTimeout time.Duration
	queryTimeout    time.Duration
}

// NewExecutor creates a command executor
func NewExecutor(cfg *config.Config, manager *scheduler.Manager, store *metrics.Store) *Executor {
	sc := cfg.GetServerConfig()
	return &Executor{
		manager:         manager,
		store:           store,
		engine:          analysis.NewRecommendationEngine(),
		mutationTimeout: time.Duration(sc.MutationTimeout) * time.Second,
		queryTimeout:    time.Duration(sc.QueryTimeout) * time.Second,
	}
}

// Execute validates and runs one command under its deadline
func (e *Executor) Execute(ctx context.Context, cmd Command) Outcome {
	if err := cmd.Validate(); err != nil {
		return Outcome{Kind: cmd.Kind, Error: err.Error(), Err: err}
	}

	timeout := e.queryTimeout
	if cmd.Mutating() {
		timeout = e.mutationTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		data interface{}
		err  error
	}
	done := make(chan reply, 1)
	go func() {
		data, err := e.run(runCtx, cmd)
		done <- reply{data: data, err: err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, context.DeadlineExceeded) {
			return Outcome{Kind: cmd.Kind, Timeout: true, Error: r.err.Error(), Err: r.err}
		}
		if r.err != nil {
			return Outcome{Kind: cmd.Kind, Error: r.err.Error(), Err: r.err}
		}
		return Outcome{Kind: cmd.Kind, Success: true, Data: r.data}
	case <-runCtx.Done():
		logger.Warn("Command deadline exceeded",
			zap.String("kind", cmd.Kind),
			zap.Duration("timeout", timeout))
		return Outcome{
			Kind:    cmd.Kind,
			Timeout: true,
			Error:   runCtx.Err().Error(),
			Err:     runCtx.Err(),
		}
	}
}

func (e *Executor) run(ctx context.Context, cmd Command) (interface{}, error) {
	// The deadline may already have passed while the command waited
	// for scheduling; don't start work that nobody will collect.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cmd.Kind {
	case KindUpdateSchedules:
		if err := e.manager.UpdateSchedules(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return e.manager.CurrentSchedules(), nil

	case KindAnalyzeSource:
		entry, err := e.manager.AnalyzeSource(cmd.SourceKey)
		if err != nil {
			return nil, err
		}
		return entry, nil

	case KindRecordMetrics:
		sample := *cmd.Sample
		if sample.SourceKey == "" {
			sample.SourceKey = cmd.SourceKey
		}
		if err := e.store.Record(sample); err != nil {
			return nil, err
		}
		return sample, nil

	case KindCurrentSchedules:
		entries := e.manager.CurrentSchedules()
		if cmd.Format == FormatText {
			return scheduler.FormatEntries(entries), nil
		}
		return entries, nil

	case KindStats:
		stats := e.manager.Stats()
		return StatsReport{
			Stats:           stats,
			Recommendations: e.engine.Evaluate(stats),
			Capabilities:    describeCapabilities(),
		}, nil

	default:
		return nil, errors.New("unreachable command kind")
	}
}

// StatsReport is the stats command payload: the aggregated counters
// plus advisory recommendations and the scheduler's capability sets
type StatsReport struct {
	Stats           scheduler.Stats           `json:"stats"`
	Recommendations []analysis.Recommendation `json:"recommendations"`
	Capabilities    Capabilities              `json:"capabilities"`
}

// Capabilities lists the value sets the scheduler operates over
type Capabilities struct {
	FrequencyLevels  []scheduler.FrequencyLevel  `json:"frequency_levels"`
	ActivityPatterns []scheduler.ActivityPattern `json:"activity_patterns"`
	AdaptiveFactors  []string                    `json:"adaptive_factors"`
}

func describeCapabilities() Capabilities {
	return Capabilities{
		FrequencyLevels:  scheduler.Levels,
		ActivityPatterns: scheduler.Patterns,
		AdaptiveFactors:  scheduler.AdaptiveFactors,
	}
}
