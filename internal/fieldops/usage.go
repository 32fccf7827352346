package fieldops

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"figurehub/pkg/shardstore"
)

// FieldUsage is how widely one field name is populated across the store.
// A fraction well under 1.0 for a field that should be everywhere usually
// means a rollout stopped partway.
type FieldUsage struct {
	Field    string  `json:"field"`
	Count    int     `json:"count"`
	Fraction float64 `json:"fraction"`
}

// UsageReport is the store-wide field census.
type UsageReport struct {
	TotalRecords  int          `json:"total_records"`
	SkippedShards []string     `json:"skipped_shards,omitempty"`
	Fields        []FieldUsage `json:"fields"`
}

// FieldUsage scans every shard and reports, per field name, how many
// records carry it. Read-only, so shards are scanned concurrently and a
// malformed shard is skipped with a warning like the loader does.
func (e *Engine) FieldUsage(ctx context.Context) (*UsageReport, error) {
	names, err := e.store.ShardNames()
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		counts  = make(map[string]int)
		total   int
		skipped []string
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			records, err := e.store.ReadRaw(name)
			if err != nil {
				var pe *shardstore.ParseError
				if errors.As(err, &pe) {
					log.Printf("[fieldops] usage scan skipping shard %q: %v", name, pe.Err)
					mu.Lock()
					skipped = append(skipped, name)
					mu.Unlock()
					return nil
				}
				return err
			}

			local := make(map[string]int)
			for _, rec := range records {
				for field := range rec {
					local[field]++
				}
			}

			mu.Lock()
			total += len(records)
			for field, n := range local {
				counts[field] += n
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &UsageReport{TotalRecords: total, SkippedShards: skipped}
	sort.Strings(rep.SkippedShards)
	for field, n := range counts {
		u := FieldUsage{Field: field, Count: n}
		if total > 0 {
			u.Fraction = float64(n) / float64(total)
		}
		rep.Fields = append(rep.Fields, u)
	}
	sort.Slice(rep.Fields, func(i, j int) bool { return rep.Fields[i].Field < rep.Fields[j].Field })
	return rep, nil
}
