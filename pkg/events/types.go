// Package events implements the instrumentation side channel of spec
// §6: a publish-only stream of structured records, consumed externally.
//
// Grounded on pkg/events/manager.go's subscriber-map-under-RWMutex
// pattern, reduced from WebSocket/Postgres NOTIFY fan-out (there is no
// external transport here, no catchup, no LISTEN/UNLISTEN) to a plain
// in-process pub/sub: every loom component that wants to observe
// instrumentation subscribes a channel directly.
package events

// Kinds are spec §6's canonical instrumentation event kinds.
const (
	KindModuleExec            = "module/exec"
	KindOptimizationIteration = "optimization/iteration"
	KindBackendRequest        = "backend/request"
	KindBackendResponse       = "backend/response"
	KindValidationError       = "validation/error"
	KindPerformanceMetric     = "performance/metric"
)

// Event is one instrumentation record.
type Event struct {
	Kind      string
	TimeMs    int64
	Fields    map[string]any
}
