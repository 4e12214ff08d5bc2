package command

import (
	"errors"
	"fmt"

	"casewatch/pkg/metrics"
)

// Command kinds
const (
	KindUpdateSchedules  = "update_schedules"
	KindAnalyzeSource    = "analyze_source"
	KindRecordMetrics    = "record_metrics"
	KindCurrentSchedules = "current_schedules"
	KindStats            = "stats"
)

// Output formats for current_schedules
const (
	FormatJSON = "json"
	FormatText = "text"
)

var (
	// ErrUnknownCommand means the command kind is not recognized
	ErrUnknownCommand = errors.New("unknown command kind")
	// ErrMissingSourceKey means a per-source command omitted its target
	ErrMissingSourceKey = errors.New("command requires a source_key")
	// ErrMissingSample means record_metrics carried no sample
	ErrMissingSample = errors.New("record_metrics requires a sample")
)

// Command is one typed request against the scheduler. Kind selects
// the operation; the payload fields only apply to the kinds that
// document them.
type Command struct {
	Kind      string          `json:"kind"`
	SourceKey string          `json:"source_key,omitempty"`
	Sample    *metrics.Sample `json:"sample,omitempty"`
	Format    string          `json:"format,omitempty"`
}

// Mutating reports whether the command changes scheduler state.
// Mutations and queries run under different deadlines.
func (c Command) Mutating() bool {
	switch c.Kind {
	case KindUpdateSchedules, KindRecordMetrics:
		return true
	default:
		return false
	}
}

// Validate checks the command shape before execution
func (c Command) Validate() error {
	switch c.Kind {
	case KindUpdateSchedules, KindStats:
		return nil
	case KindAnalyzeSource:
		if c.SourceKey == "" {
			return fmt.Errorf("%w: %s", ErrMissingSourceKey, c.Kind)
		}
		return nil
	case KindRecordMetrics:
		if c.Sample == nil {
			return ErrMissingSample
		}
		if c.Sample.SourceKey == "" && c.SourceKey == "" {
			return fmt.Errorf("%w: %s", ErrMissingSourceKey, c.Kind)
		}
		return nil
	case KindCurrentSchedules:
		if c.Format != "" && c.Format != FormatJSON && c.Format != FormatText {
			return fmt.Errorf("unknown schedule format %q", c.Format)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, c.Kind)
	}
}

// Outcome is the uniform result envelope for a command. Err keeps the
// typed error for callers that map errors onto transports; Error is
// its rendered form for the wire.
type Outcome struct {
	Kind    string      `json:"kind"`
	Success bool        `json:"success"`
	Timeout bool        `json:"timeout,omitempty"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Err     error       `json:"-"`
}
