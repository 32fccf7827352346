package shardstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNumber(s string) json.Number { return json.Number(s) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "catalog"), filepath.Join(dir, "backups"))
	require.NoError(t, os.MkdirAll(s.Dir, 0o755))
	return s
}

func writeShardFile(t *testing.T, s *Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(s.ShardPath(name), []byte(content), 0o644))
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Animal Series 4", "animal-series-4"},
		{"Sonny Angel: Marine Series", "sonny-angel-marine-series"},
		{"  BLIND/BOX  2024!! ", "blind-box-2024"},
		{"already-slugged", "already-slugged"},
		{"", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slug(tt.in), "Slug(%q)", tt.in)
	}
}

func TestSlugStable(t *testing.T) {
	// The series-to-shard mapping must be reproducible across runs or a
	// re-split would scatter records into new shards.
	for i := 0; i < 3; i++ {
		assert.Equal(t, "animal-series-4", Slug("Animal Series 4"))
	}
}

func TestWriteReadRawRoundtrip(t *testing.T) {
	s := newTestStore(t)

	records := []map[string]any{
		{"id": "p1", "name": "Rabbit", "price": mustNumber("780")},
		{"id": "p2", "name": "Penguin", "price": mustNumber("780.5")},
	}
	require.NoError(t, s.WriteRaw("animals", records))

	got, err := s.ReadRaw("animals")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p1", got[0]["id"])
	// json.Number keeps the original formatting through a rewrite
	assert.Equal(t, mustNumber("780"), got[0]["price"])
	assert.Equal(t, mustNumber("780.5"), got[1]["price"])
}

func TestWriteRawDiffableFormat(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteRaw("x", []map[string]any{{"b": "2", "a": "1"}}))

	b, err := os.ReadFile(s.ShardPath("x"))
	require.NoError(t, err)
	// pretty-printed, keys sorted, trailing newline
	assert.Equal(t, "[\n  {\n    \"a\": \"1\",\n    \"b\": \"2\"\n  }\n]\n", string(b))
}

func TestReadRawParseError(t *testing.T) {
	s := newTestStore(t)
	writeShardFile(t, s, "broken", "{not json")

	_, err := s.ReadRaw("broken")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "broken", pe.Shard)
}

func TestShardNamesScanFallback(t *testing.T) {
	s := newTestStore(t)
	writeShardFile(t, s, "b-series", "[]")
	writeShardFile(t, s, "a-series", "[]")
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, "notes.txt"), []byte("x"), 0o644))

	names, err := s.ShardNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a-series", "b-series"}, names)
}

func TestShardNamesManifestOrder(t *testing.T) {
	s := newTestStore(t)
	writeShardFile(t, s, "a-series", "[]")
	writeShardFile(t, s, "b-series", "[]")

	manifest := `{
  "generated_at": "2025-01-01T00:00:00Z",
  "total_shards": 2,
  "total_records": 0,
  "shards": [
    {"name": "b-series", "file": "b-series.json", "records": 0, "updated_at": "2025-01-01T00:00:00Z"},
    {"name": "a-series", "file": "a-series.json", "records": 0, "updated_at": "2025-01-01T00:00:00Z"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, ManifestFile), []byte(manifest), 0o644))

	names, err := s.ShardNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"b-series", "a-series"}, names, "manifest order wins while it matches the directory")
}

func TestShardNamesStaleManifest(t *testing.T) {
	s := newTestStore(t)
	writeShardFile(t, s, "a-series", "[]")
	writeShardFile(t, s, "b-series", "[]")

	manifest := `{
  "generated_at": "2025-01-01T00:00:00Z",
  "total_shards": 1,
  "total_records": 0,
  "shards": [
    {"name": "gone", "file": "gone.json", "records": 0, "updated_at": "2025-01-01T00:00:00Z"}
  ]
}`
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir, ManifestFile), []byte(manifest), 0o644))

	names, err := s.ShardNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"a-series", "b-series"}, names, "stale manifest falls back to the directory scan")
}

func TestRegenerateManifest(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteRaw("animals", []map[string]any{{"id": "p1"}, {"id": "p2"}}))
	require.NoError(t, s.WriteRaw("marine", []map[string]any{{"id": "p3"}}))

	m, err := s.RegenerateManifest()
	require.NoError(t, err)
	assert.Equal(t, 2, m.TotalShards)
	assert.Equal(t, 3, m.TotalRecords)
	require.Len(t, m.Shards, 2)
	assert.Equal(t, "animals", m.Shards[0].Name)
	assert.Equal(t, 2, m.Shards[0].Records)

	// and it reads back
	got, err := s.ReadManifest()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 3, got.TotalRecords)
}

func TestReadManifestAbsent(t *testing.T) {
	s := newTestStore(t)
	m, err := s.ReadManifest()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSnapshotCopiesEverything(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteRaw("animals", []map[string]any{{"id": "p1"}}))
	_, err := s.RegenerateManifest()
	require.NoError(t, err)

	extra := filepath.Join(t.TempDir(), "source.json")
	require.NoError(t, os.WriteFile(extra, []byte("[]"), 0o644))

	dir, err := s.Snapshot(extra)
	require.NoError(t, err)

	orig, err := os.ReadFile(s.ShardPath("animals"))
	require.NoError(t, err)
	copied, err := os.ReadFile(filepath.Join(dir, "animals.json"))
	require.NoError(t, err)
	assert.Equal(t, orig, copied)

	_, err = os.Stat(filepath.Join(dir, ManifestFile))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "source.json"))
	assert.NoError(t, err)
}

func TestSnapshotMissingExtraFails(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.WriteRaw("animals", []map[string]any{{"id": "p1"}}))

	_, err := s.Snapshot(filepath.Join(t.TempDir(), "does-not-exist.json"))
	var se *SnapshotError
	require.ErrorAs(t, err, &se)
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	assert.ErrorIs(t, &ParseError{Shard: "s", Err: inner}, inner)
	assert.ErrorIs(t, &WriteError{Shard: "s", Err: inner}, inner)
	assert.ErrorIs(t, &SnapshotError{Dir: "d", Err: inner}, inner)
}
