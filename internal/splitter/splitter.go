// Package splitter partitions a monolithic catalog file into the per-series
// shard layout and emits the manifest. It is the one-time migration path in
// front of everything else: the loader and mutation engine both assume the
// store it produces.
package splitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"sort"

	"figurehub/pkg/shardstore"
)

// Options controls a split run. DryRun computes and returns the grouping
// without writing anything, so an operator can check shard boundaries
// before committing.
type Options struct {
	DryRun bool
}

// ShardPlan is one shard the split will produce (or produced).
type ShardPlan struct {
	Name    string `json:"name"`
	Series  string `json:"series"`
	Records int    `json:"records"`
}

// Plan reports a split run.
type Plan struct {
	Source       string      `json:"source"`
	Snapshot     string      `json:"snapshot,omitempty"` // empty on dry runs
	TotalRecords int         `json:"total_records"`
	Shards       []ShardPlan `json:"shards"`
}

// Split reads a monolithic JSON array of records from sourcePath, groups it
// by slugged series label, and writes one shard per group, records ordered
// by release date ascending. The source file is copied into a backup
// snapshot before any shard is written.
func Split(ctx context.Context, sourcePath string, store *shardstore.Store, opts Options) (*Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	records, err := readSource(sourcePath)
	if err != nil {
		return nil, err
	}

	groups := make(map[string][]map[string]any)
	labels := make(map[string]string)
	for _, rec := range records {
		series, _ := rec["series"].(string)
		name := shardstore.Slug(series)
		if name == "" {
			name = "uncategorized"
		}
		if prev, ok := labels[name]; ok && prev != series {
			log.Printf("[splitter] series %q and %q both normalize to shard %q, merging", prev, series, name)
		} else {
			labels[name] = series
		}
		groups[name] = append(groups[name], rec)
	}

	plan := &Plan{Source: sourcePath, TotalRecords: len(records)}
	for name, recs := range groups {
		sortByReleaseDate(recs)
		plan.Shards = append(plan.Shards, ShardPlan{Name: name, Series: labels[name], Records: len(recs)})
	}
	sort.Slice(plan.Shards, func(i, j int) bool { return plan.Shards[i].Name < plan.Shards[j].Name })

	if opts.DryRun {
		return plan, nil
	}

	if err := os.MkdirAll(store.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create shard dir: %w", err)
	}

	snapDir, err := store.Snapshot(sourcePath)
	if err != nil {
		return nil, err
	}
	plan.Snapshot = snapDir

	for _, sh := range plan.Shards {
		if err := store.WriteRaw(sh.Name, groups[sh.Name]); err != nil {
			return plan, err
		}
	}
	if _, err := store.RegenerateManifest(); err != nil {
		return plan, err
	}
	return plan, nil
}

func readSource(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var records []map[string]any
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	return records, nil
}

// ISO dates compare correctly as strings; records without one sort first.
func sortByReleaseDate(records []map[string]any) {
	sort.SliceStable(records, func(i, j int) bool {
		a, _ := records[i]["release_date"].(string)
		b, _ := records[j]["release_date"].(string)
		return a < b
	})
}
