package shardstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"

	"figurehub/pkg/models"
)

// ManifestFile is the manifest's file name inside the shard directory.
const ManifestFile = "manifest.json"

// Store is the on-disk shard set: one pretty-printed JSON file per series
// plus a derived manifest. Files are rewritten whole and atomically; the
// manifest can always be regenerated from the shard files and is never the
// source of truth for record data.
type Store struct {
	Dir       string // shard files + manifest.json
	BackupDir string // one subdirectory per snapshot
}

func New(dir, backupDir string) *Store {
	return &Store{Dir: dir, BackupDir: backupDir}
}

// Manifest summarizes the shard set.
type Manifest struct {
	GeneratedAt  time.Time       `json:"generated_at"`
	TotalShards  int             `json:"total_shards"`
	TotalRecords int             `json:"total_records"`
	Shards       []ManifestShard `json:"shards"`
}

type ManifestShard struct {
	Name      string    `json:"name"`
	File      string    `json:"file"`
	Records   int       `json:"records"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Slug normalizes a series label into a shard name: lower-cased, runs of
// non-alphanumeric characters collapsed to a single dash. Must stay stable
// across runs or re-splitting would scatter records into new shards.
func Slug(series string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(series)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ShardPath returns the file path for a shard name.
func (s *Store) ShardPath(name string) string {
	return filepath.Join(s.Dir, name+".json")
}

// ShardNames enumerates the shard set. The manifest drives the order when it
// is present and still matches the directory contents; otherwise the
// directory scan wins, sorted lexicographically so repeated loads see the
// same order.
func (s *Store) ShardNames() ([]string, error) {
	scanned, err := s.scanShards()
	if err != nil {
		return nil, err
	}

	m, err := s.ReadManifest()
	if err != nil || m == nil {
		return scanned, nil
	}

	fromManifest := make([]string, 0, len(m.Shards))
	for _, sh := range m.Shards {
		fromManifest = append(fromManifest, sh.Name)
	}
	if sameNameSet(fromManifest, scanned) {
		return fromManifest, nil
	}
	// stale manifest: trust the files
	return scanned, nil
}

func (s *Store) scanShards() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return nil, fmt.Errorf("scan shard dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == ManifestFile {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

func sameNameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	for _, n := range b {
		if _, ok := set[n]; !ok {
			return false
		}
	}
	return true
}

// ReadRaw decodes a shard into generic records for the mutation engine.
// Numbers are kept as json.Number so a rewrite does not reformat them.
func (s *Store) ReadRaw(name string) ([]map[string]any, error) {
	b, err := os.ReadFile(s.ShardPath(name))
	if err != nil {
		return nil, fmt.Errorf("read shard %q: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, &ParseError{Shard: name, Err: err}
	}
	return records, nil
}

// ReadProducts decodes a shard into the typed record form used by the query
// engine. Fields the model does not know about are ignored, not lost: the
// file on disk keeps them.
func (s *Store) ReadProducts(name string) ([]models.Product, error) {
	b, err := os.ReadFile(s.ShardPath(name))
	if err != nil {
		return nil, fmt.Errorf("read shard %q: %w", name, err)
	}
	var records []models.Product
	if err := json.Unmarshal(b, &records); err != nil {
		return nil, &ParseError{Shard: name, Err: err}
	}
	return records, nil
}

// WriteRaw rewrites a shard file in full, preserving record order. The
// output is pretty-printed with sorted keys so version-control diffs stay
// reviewable. The write is atomic: readers never observe a torn file.
func (s *Store) WriteRaw(name string, records []map[string]any) error {
	b, err := marshalPretty(records)
	if err != nil {
		return &WriteError{Shard: name, Err: err}
	}
	if err := atomic.WriteFile(s.ShardPath(name), bytes.NewReader(b)); err != nil {
		return &WriteError{Shard: name, Err: err}
	}
	return nil
}

func marshalPretty(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadManifest returns the manifest, or nil without error when absent.
func (s *Store) ReadManifest() (*Manifest, error) {
	b, err := os.ReadFile(filepath.Join(s.Dir, ManifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// RegenerateManifest rebuilds the manifest from the shard files on disk and
// writes it. Shards that fail to parse are counted with zero records rather
// than failing the rebuild.
func (s *Store) RegenerateManifest() (*Manifest, error) {
	names, err := s.scanShards()
	if err != nil {
		return nil, err
	}

	m := &Manifest{GeneratedAt: time.Now().UTC()}
	for _, name := range names {
		sh := ManifestShard{Name: name, File: name + ".json"}
		if records, err := s.ReadRaw(name); err == nil {
			sh.Records = len(records)
		}
		if fi, err := os.Stat(s.ShardPath(name)); err == nil {
			sh.UpdatedAt = fi.ModTime().UTC()
		}
		m.TotalRecords += sh.Records
		m.Shards = append(m.Shards, sh)
	}
	m.TotalShards = len(m.Shards)

	b, err := marshalPretty(m)
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(s.Dir, ManifestFile), bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}
	return m, nil
}
