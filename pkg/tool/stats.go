package tool

import (
	"context"
	"sync"
	"time"
)

// Counters is one tool's accumulated invocation statistics (spec §4.G
// "Statistics"), grounded on the same RWMutex-guarded-map pattern as
// Registry/pkg/config/llm.go, generalized to per-key counters.
type Counters struct {
	Invocations  int
	Errors       int
	TotalTimeMs  int64
}

// Stats tracks per-tool counters across a Registry, resettable per spec.
type Stats struct {
	mu       sync.RWMutex
	counters map[string]Counters
}

// NewStats returns an empty stats tracker.
func NewStats() *Stats {
	return &Stats{counters: make(map[string]Counters)}
}

// Get returns a copy of one tool's counters.
func (s *Stats) Get(name string) Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[name]
}

// Reset clears every counter.
func (s *Stats) Reset() {
	s.mu.Lock()
	s.counters = make(map[string]Counters)
	s.mu.Unlock()
}

func (s *Stats) record(name string, elapsed time.Duration, failed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.counters[name]
	c.Invocations++
	c.TotalTimeMs += elapsed.Milliseconds()
	if failed {
		c.Errors++
	}
	s.counters[name] = c
}

// InvokeToolMonitored is the "monitored invoke variant" of spec §4.G,
// updating s's counters around a normal InvokeTool call.
func InvokeToolMonitored(ctx context.Context, s *Stats, t Tool, input map[string]any, opts InvokeOptions) (map[string]any, error) {
	start := time.Now()
	out, err := InvokeTool(ctx, t, input, opts)
	s.record(t.Name, time.Since(start), err != nil)
	return out, err
}
