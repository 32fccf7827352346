package splitter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"figurehub/pkg/shardstore"
)

func writeSource(t *testing.T, records []map[string]any) string {
	t.Helper()
	b, err := json.Marshal(records)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "products.json")
	require.NoError(t, os.WriteFile(path, b, 0o644))
	return path
}

func sampleSource(t *testing.T) string {
	return writeSource(t, []map[string]any{
		{"id": "p1", "series": "Animal Series", "release_date": "2023-04-01"},
		{"id": "p2", "series": "Marine Series", "release_date": "2022-01-15"},
		{"id": "p3", "series": "Animal Series", "release_date": "2021-06-20"},
		{"id": "p4", "series": "Animal Series", "release_date": "2022-09-09"},
	})
}

func newStore(t *testing.T) *shardstore.Store {
	dir := t.TempDir()
	return shardstore.New(filepath.Join(dir, "catalog"), filepath.Join(dir, "backups"))
}

func TestSplitGroupsBySluggedSeries(t *testing.T) {
	store := newStore(t)

	plan, err := Split(context.Background(), sampleSource(t), store, Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, plan.TotalRecords)
	require.Len(t, plan.Shards, 2)
	assert.Equal(t, "animal-series", plan.Shards[0].Name)
	assert.Equal(t, "Animal Series", plan.Shards[0].Series)
	assert.Equal(t, 3, plan.Shards[0].Records)
	assert.Equal(t, "marine-series", plan.Shards[1].Name)

	names, err := store.ShardNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"animal-series", "marine-series"}, names)
}

func TestSplitOrdersByReleaseDate(t *testing.T) {
	store := newStore(t)

	_, err := Split(context.Background(), sampleSource(t), store, Options{})
	require.NoError(t, err)

	records, err := store.ReadRaw("animal-series")
	require.NoError(t, err)
	var ids []string
	for _, rec := range records {
		ids = append(ids, rec["id"].(string))
	}
	assert.Equal(t, []string{"p3", "p4", "p1"}, ids)
}

func TestSplitWritesManifest(t *testing.T) {
	store := newStore(t)

	_, err := Split(context.Background(), sampleSource(t), store, Options{})
	require.NoError(t, err)

	m, err := store.ReadManifest()
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, 2, m.TotalShards)
	assert.Equal(t, 4, m.TotalRecords)
}

func TestSplitBacksUpSource(t *testing.T) {
	store := newStore(t)
	src := sampleSource(t)

	plan, err := Split(context.Background(), src, store, Options{})
	require.NoError(t, err)
	require.NotEmpty(t, plan.Snapshot)

	orig, err := os.ReadFile(src)
	require.NoError(t, err)
	backed, err := os.ReadFile(filepath.Join(plan.Snapshot, filepath.Base(src)))
	require.NoError(t, err)
	assert.Equal(t, orig, backed)
}

func TestDryRunWritesNothing(t *testing.T) {
	store := newStore(t)

	plan, err := Split(context.Background(), sampleSource(t), store, Options{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, plan.Snapshot)
	require.Len(t, plan.Shards, 2)

	_, err = os.Stat(store.Dir)
	assert.True(t, os.IsNotExist(err), "dry run must not create the shard dir")
}

func TestSplitUncategorizedAndCollisions(t *testing.T) {
	store := newStore(t)
	src := writeSource(t, []map[string]any{
		{"id": "p1", "release_date": "2023-01-01"},
		{"id": "p2", "series": "Animal Series!", "release_date": "2023-01-02"},
		{"id": "p3", "series": "Animal Series", "release_date": "2023-01-03"},
	})

	plan, err := Split(context.Background(), src, store, Options{})
	require.NoError(t, err)
	require.Len(t, plan.Shards, 2)
	assert.Equal(t, "animal-series", plan.Shards[0].Name)
	assert.Equal(t, 2, plan.Shards[0].Records, "labels that normalize alike merge into one shard")
	assert.Equal(t, "uncategorized", plan.Shards[1].Name)
}

func TestSplitMalformedSource(t *testing.T) {
	store := newStore(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not an array"), 0o644))

	_, err := Split(context.Background(), path, store, Options{})
	require.Error(t, err)
}
