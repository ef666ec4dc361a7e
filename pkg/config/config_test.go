package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesBuiltinDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "file://./runs", cfg.Storage)
	require.Equal(t, 8, cfg.Parallelism)
	require.Equal(t, "mock", cfg.Backend.Provider)
}

func TestLoadMergesYAMLFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: sqlite://./loom.db\nbackend:\n  provider: openai\n  model: gpt-4o\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sqlite://./loom.db", cfg.Storage)
	require.Equal(t, "openai", cfg.Backend.Provider)
	require.Equal(t, "gpt-4o", cfg.Backend.Model)
}

func TestLoadToleratesMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/loom.yaml")
	require.NoError(t, err)
	require.Equal(t, Default().Storage, cfg.Storage)
}

func TestEnvOverridesDefaultsAndParallelismIsCapped(t *testing.T) {
	t.Setenv("STORAGE", "file:///tmp/override")
	t.Setenv("PARALLELISM", "999")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "file:///tmp/override", cfg.Storage)
	require.Equal(t, MaxParallelism, cfg.Parallelism)
}

func TestSlogLevelMapsTraceToDebug(t *testing.T) {
	cfg := &Config{LogLevel: "trace"}
	require.Equal(t, -4, int(cfg.SlogLevel()))
}
