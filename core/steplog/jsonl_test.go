package steplog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONLStoreAppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "steps.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []Record{
		{Timestamp: base, EpisodeID: "a", Step: 1, Feasible: true, Schedule: map[string][]float64{"A": {16}}},
		{Timestamp: base.Add(time.Minute), EpisodeID: "a", Step: 2, Feasible: false},
		{Timestamp: base.Add(2 * time.Minute), EpisodeID: "b", Step: 1, Feasible: true, Done: true},
	}
	for _, r := range recs {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []float64{16}, all[0].Schedule["A"])

	a, err := store.Query(ctx, Query{EpisodeID: "a"})
	require.NoError(t, err)
	assert.Len(t, a, 2)

	bad, err := store.Query(ctx, Query{InfeasibleOnly: true})
	require.NoError(t, err)
	require.Len(t, bad, 1)
	assert.Equal(t, 2, bad[0].Step)

	window, err := store.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "a", window[0].EpisodeID)
}

func TestJSONLStoreSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n{\"episode_id\":\"x\",\"step\":4}\n"), 0o644))
	store, err := NewJSONLStore(path)
	require.NoError(t, err)

	recs, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, 4, recs[0].Step)
}

func TestJSONLStoreCanceledContext(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "steps.jsonl"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.Append(ctx, Record{}), context.Canceled)
}
