package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// fileTreeStorage is the zero-dependency backend of spec §4.C: one
// directory per run under root, a pipeline snapshot file and a history
// file, the latter rewritten atomically (write-temp, rename) on every
// append so a crash mid-write never corrupts history. This is the
// default backend (spec §4.C DefaultURL = "file://./runs").
type fileTreeStorage struct {
	root string
}

// NewFileTreeStorage ensures root exists and returns a backend rooted there.
func NewFileTreeStorage(root string) (*fileTreeStorage, error) {
	if root == "" {
		root = "./runs"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return &fileTreeStorage{root: root}, nil
}

func (s *fileTreeStorage) runDir(runID string) string {
	return filepath.Join(s.root, runID)
}

func (s *fileTreeStorage) pipelinePath(runID string) string {
	return filepath.Join(s.runDir(runID), "pipeline.yaml")
}

func (s *fileTreeStorage) historyPath(runID string) string {
	return filepath.Join(s.runDir(runID), "history.yaml")
}

func (s *fileTreeStorage) CreateRun(ctx context.Context, pipelineSnapshot map[string]any) (string, error) {
	id := uuid.NewString()
	dir := s.runDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	blob, err := encode(pipelineSnapshot)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(s.pipelinePath(id), []byte(blob), 0o644); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := writeAtomic(s.historyPath(id), []byte("rows: []\n")); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return id, nil
}

// historyFile is the on-disk shape of history.yaml, kept as a thin
// wrapper so encode/decode's map[string]any contract still applies.
type historyFile struct {
	Rows []historyRow `yaml:"rows"`
}

type historyRow struct {
	Iter    int            `yaml:"iter"`
	Score   float64        `yaml:"score"`
	Payload map[string]any `yaml:"payload"`
}

func (s *fileTreeStorage) AppendMetric(ctx context.Context, runID string, iter int, score float64, payload map[string]any) error {
	if _, err := os.Stat(s.runDir(runID)); err != nil {
		return fmt.Errorf("%w: run %q not found", ErrStorageUnavailable, runID)
	}
	hist, err := s.readHistory(runID)
	if err != nil {
		return err
	}
	hist.Rows = append(hist.Rows, historyRow{Iter: iter, Score: score, Payload: payload})
	raw, err := marshalHistory(hist)
	if err != nil {
		return err
	}
	if err := writeAtomic(s.historyPath(runID), raw); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *fileTreeStorage) LoadRun(ctx context.Context, runID string) (map[string]any, bool, error) {
	raw, err := os.ReadFile(s.pipelinePath(runID))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	snapshot, err := decode(string(raw))
	if err != nil {
		return nil, false, err
	}
	return snapshot, true, nil
}

func (s *fileTreeStorage) LoadHistory(ctx context.Context, runID string) ([]MetricRow, error) {
	hist, err := s.readHistory(runID)
	if err != nil {
		return nil, err
	}
	out := make([]MetricRow, 0, len(hist.Rows))
	for _, r := range hist.Rows {
		out = append(out, MetricRow{Iter: r.Iter, Score: r.Score, Payload: r.Payload})
	}
	return out, nil
}

func (s *fileTreeStorage) readHistory(runID string) (historyFile, error) {
	raw, err := os.ReadFile(s.historyPath(runID))
	if os.IsNotExist(err) {
		return historyFile{}, nil
	}
	if err != nil {
		return historyFile{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return unmarshalHistory(raw)
}

func marshalHistory(h historyFile) ([]byte, error) {
	return yaml.Marshal(h)
}

func unmarshalHistory(raw []byte) (historyFile, error) {
	var h historyFile
	if err := yaml.Unmarshal(raw, &h); err != nil {
		return historyFile{}, err
	}
	return h, nil
}

// writeAtomic writes to a temp file in the same directory and renames
// it into place, so a reader never observes a partially written file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
