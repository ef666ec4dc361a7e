// Package storage implements the five-operation persistence contract of
// spec §4.C (create_run/append_metric/load_run/load_history) behind two
// interchangeable backends, dispatched by URL scheme via MakeStorage.
//
// Registry-by-name dispatch pattern grounded on pkg/config/llm.go; the
// embedded-SQL backend's migration mechanism is grounded on
// pkg/database/client.go's go:embed + golang-migrate + source/iofs flow,
// retargeted from Postgres/ent to SQLite.
package storage

import (
	"context"
	"fmt"
	"strings"
)

// MetricRow is one appended iteration record (spec §3 Run).
type MetricRow struct {
	Iter    int
	Score   float64
	Payload map[string]any
}

// Storage is the persistence contract every backend implements.
type Storage interface {
	CreateRun(ctx context.Context, pipelineSnapshot map[string]any) (string, error)
	AppendMetric(ctx context.Context, runID string, iter int, score float64, payload map[string]any) error
	LoadRun(ctx context.Context, runID string) (map[string]any, bool, error)
	LoadHistory(ctx context.Context, runID string) ([]MetricRow, error)
}

// ErrStorageUnavailable is spec §6's StorageUnavailable kind.
var ErrStorageUnavailable = fmt.Errorf("storage: unavailable")

// Config configures MakeStorage.
type Config struct {
	URL string // "sqlite://<path>" | "sqlite://:memory:" | "file://<dir>"
}

// DefaultURL matches spec §4.C's default when unset.
const DefaultURL = "file://./runs"

// MakeStorage dispatches on cfg.URL's scheme (spec §4.C factory).
func MakeStorage(cfg Config) (Storage, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}
	switch {
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLiteStorage(strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "file://"):
		return NewFileTreeStorage(strings.TrimPrefix(url, "file://"))
	default:
		return nil, fmt.Errorf("%w: unrecognized scheme in %q", ErrStorageUnavailable, url)
	}
}
