package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"
)

//go:embed migrations
var migrationsFS embed.FS

// sqliteStorage is the embedded-SQL backend of spec §4.C: two tables,
// runs and metrics, the layout of §6's "Persisted state". Grounded on
// pkg/database/client.go's NewClient/runMigrations, retargeted from
// Postgres+ent to a direct database/sql connection over SQLite.
type sqliteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) a SQLite database at path —
// path may be a filesystem path or ":memory:" — and applies migrations
// idempotently (spec §4.C: "Migration is idempotent").
func NewSQLiteStorage(path string) (*sqliteStorage, error) {
	dsn := path
	if dsn == "" {
		dsn = ":memory:"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // spec §5: "embedded SQL backend is single-writer-safe"

	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	return &sqliteStorage{db: db}, nil
}

// runMigrations mirrors pkg/database/client.go's runMigrations: build a
// migrate.Migrate from the embedded source, apply Up(), and close only
// the source driver — never m.Close(), which would close the shared *sql.DB.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite3 migrate driver: %w", err)
	}
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "loom", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return sourceDriver.Close()
}

func (s *sqliteStorage) CreateRun(ctx context.Context, pipelineSnapshot map[string]any) (string, error) {
	id := uuid.NewString()
	blob, err := encode(pipelineSnapshot)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, pipeline_blob) VALUES (?, ?, ?)`,
		id, time.Now().UnixMilli(), blob)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

func (s *sqliteStorage) AppendMetric(ctx context.Context, runID string, iter int, score float64, payload map[string]any) error {
	blob, err := encode(payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metrics (run_id, iter, score, payload) VALUES (?, ?, ?, ?)`,
		runID, iter, score, blob)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *sqliteStorage) LoadRun(ctx context.Context, runID string) (map[string]any, bool, error) {
	var blob string
	err := s.db.QueryRowContext(ctx, `SELECT pipeline_blob FROM runs WHERE id = ?`, runID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	snapshot, err := decode(blob)
	if err != nil {
		return nil, false, err
	}
	return snapshot, true, nil
}

func (s *sqliteStorage) LoadHistory(ctx context.Context, runID string) ([]MetricRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT iter, score, payload FROM metrics WHERE run_id = ? ORDER BY iter ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []MetricRow
	for rows.Next() {
		var r MetricRow
		var blob string
		if err := rows.Scan(&r.Iter, &r.Score, &blob); err != nil {
			return nil, err
		}
		payload, err := decode(blob)
		if err != nil {
			return nil, err
		}
		r.Payload = payload
		out = append(out, r)
	}
	return out, rows.Err()
}
