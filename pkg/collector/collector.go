package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"casewatch/pkg/config"
)

var (
	// ErrNoCollector means no collector is registered for a source key
	ErrNoCollector = errors.New("no collector registered for source")
	// ErrDisabled means the source is configured but disabled
	ErrDisabled = errors.New("source is disabled")
)

// Result is the outcome of one collection run against a source
type Result struct {
	RecordsProcessed int
	RecordsChanged   int
	UrgencyScore     float64
}

// Collector fetches data from one source. Implementations must honor
// context cancellation; the dispatcher enforces the run deadline.
type Collector interface {
	Collect(ctx context.Context, source config.SourceConfig) (*Result, error)
}

// Func adapts a plain function to the Collector interface
type Func func(ctx context.Context, source config.SourceConfig) (*Result, error)

// Collect calls the wrapped function
func (f Func) Collect(ctx context.Context, source config.SourceConfig) (*Result, error) {
	return f(ctx, source)
}

// Registry maps source keys to collectors, with an optional fallback
// used for keys that have no dedicated collector
type Registry struct {
	mu       sync.RWMutex
	byKey    map[string]Collector
	fallback Collector
}

// NewRegistry creates an empty collector registry
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[string]Collector)}
}

// Register binds a collector to a source key, replacing any previous one
func (r *Registry) Register(sourceKey string, c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byKey[sourceKey] = c
}

// SetFallback sets the collector used when no per-source one exists
func (r *Registry) SetFallback(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = c
}

// Lookup resolves the collector for a source key
func (r *Registry) Lookup(sourceKey string) (Collector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if c, ok := r.byKey[sourceKey]; ok {
		return c, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoCollector, sourceKey)
}
