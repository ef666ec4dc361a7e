package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileTreeRoundTripsRunAndHistory(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileTreeStorage(dir)
	require.NoError(t, err)
	testRoundTrip(t, s)
}

func TestSQLiteRoundTripsRunAndHistory(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	testRoundTrip(t, s)
}

func testRoundTrip(t *testing.T, s Storage) {
	ctx := context.Background()

	id, err := s.CreateRun(ctx, map[string]any{"name": "demo", "stages": 3})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	snapshot, found, err := s.LoadRun(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "demo", snapshot["name"])

	require.NoError(t, s.AppendMetric(ctx, id, 0, 0.5, map[string]any{"note": "first"}))
	require.NoError(t, s.AppendMetric(ctx, id, 1, 0.8, map[string]any{"note": "second"}))

	history, err := s.LoadHistory(ctx, id)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, 0, history[0].Iter)
	require.Equal(t, 1, history[1].Iter)
	require.Less(t, history[0].Score, history[1].Score)
}

func TestFileTreeLoadRunMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileTreeStorage(dir)
	require.NoError(t, err)

	_, found, err := s.LoadRun(context.Background(), "does-not-exist")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSQLiteMigrationIsIdempotent(t *testing.T) {
	s, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, runMigrations(s.db))
}

func TestMakeStorageDispatchesByScheme(t *testing.T) {
	dir := t.TempDir()

	s, err := MakeStorage(Config{URL: "file://" + dir})
	require.NoError(t, err)
	_, ok := s.(*fileTreeStorage)
	require.True(t, ok)

	s2, err := MakeStorage(Config{URL: "sqlite://:memory:"})
	require.NoError(t, err)
	_, ok = s2.(*sqliteStorage)
	require.True(t, ok)

	_, err = MakeStorage(Config{URL: "bogus://nope"})
	require.ErrorIs(t, err, ErrStorageUnavailable)
}
