package catalog

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"figurehub/pkg/models"
	"figurehub/pkg/shardstore"
)

// Source is what the loader needs from the shard store. It is an interface
// so tests can count underlying reads and inject malformed shards.
type Source interface {
	ShardNames() ([]string, error)
	ReadProducts(name string) ([]models.Product, error)
}

// ShardIssue records a shard that was skipped during a load.
type ShardIssue struct {
	Shard  string `json:"shard"`
	Reason string `json:"reason"`
}

// Collection is the merged, in-memory union of all shards. It is immutable
// once built: a mutation swaps in a whole new Collection via Invalidate +
// reload, it never edits one in place, so queries can read it without locks.
type Collection struct {
	Records []models.Product
	Skipped []ShardIssue

	byID map[string]int
}

// Get looks up a record by id.
func (c *Collection) Get(id string) (models.Product, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Product{}, false
	}
	return c.Records[i], true
}

// Series returns the distinct series labels, sorted.
func (c *Collection) Series() []string {
	counts := c.SeriesCounts()
	out := make([]string, 0, len(counts))
	for s := range counts {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SeriesCounts returns the number of records per series label.
func (c *Collection) SeriesCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range c.Records {
		counts[r.Series]++
	}
	return counts
}

// Loader merges the shard store into a Collection on first use and serves
// the cached result until Invalidate. Concurrent Load calls before the
// first completes share a single underlying read: the pending load is
// fanned out to every waiter instead of each one re-reading the files.
type Loader struct {
	src Source

	group  singleflight.Group
	mu     sync.Mutex
	cached *Collection
	gen    uint64 // bumped by Invalidate so a stale in-flight load cannot re-populate the cache
}

func NewLoader(src Source) *Loader {
	return &Loader{src: src}
}

// Load returns the merged collection, reading the shard files at most once
// per cache generation.
func (l *Loader) Load() (*Collection, error) {
	l.mu.Lock()
	cached, gen := l.cached, l.gen
	l.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	key := fmt.Sprintf("load-%d", gen)
	v, err, _ := l.group.Do(key, func() (any, error) {
		col, err := l.readAll()
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		if l.gen == gen {
			l.cached = col
		}
		l.mu.Unlock()
		return col, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Collection), nil
}

// Invalidate drops the cached collection and detaches any in-flight load,
// so the next Load performs a fresh read. Callers invoke this after every
// successful mutation or split.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.group.Forget(fmt.Sprintf("load-%d", l.gen))
	l.cached = nil
	l.gen++
	l.mu.Unlock()
}

func (l *Loader) readAll() (*Collection, error) {
	names, err := l.src.ShardNames()
	if err != nil {
		return nil, fmt.Errorf("enumerate shards: %w", err)
	}

	col := &Collection{byID: make(map[string]int)}
	for _, name := range names {
		records, err := l.src.ReadProducts(name)
		if err != nil {
			var pe *shardstore.ParseError
			if errors.As(err, &pe) {
				// One corrupt shard must not take the whole catalog offline.
				log.Printf("[catalog] skipping shard %q: %v", name, pe.Err)
				col.Skipped = append(col.Skipped, ShardIssue{Shard: name, Reason: pe.Err.Error()})
				continue
			}
			return nil, err
		}
		for _, r := range records {
			if _, dup := col.byID[r.ID]; dup {
				// Cross-shard id collisions keep the first-loaded record so
				// the outcome does not depend on which shard changed last.
				log.Printf("[catalog] duplicate id %q in shard %q, keeping first occurrence", r.ID, name)
				continue
			}
			col.byID[r.ID] = len(col.Records)
			col.Records = append(col.Records, r)
		}
	}
	return col, nil
}
