// Package fieldops applies bulk schema changes to every shard in the
// store: add, rename, or remove a field, or recompute one with a caller
// supplied transform. Every run snapshots the whole store first and writes
// shards one at a time, so a failure partway through always leaves either
// the old file or the new file, plus a backup to restore from.
package fieldops

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"figurehub/pkg/shardstore"
)

// Store is the slice of the shard store the engine needs. shardstore.Store
// satisfies it; tests substitute failing writers.
type Store interface {
	ShardNames() ([]string, error)
	ReadRaw(name string) ([]map[string]any, error)
	WriteRaw(name string, records []map[string]any) error
	Snapshot(extra ...string) (string, error)
	RegenerateManifest() (*shardstore.Manifest, error)
}

// Transform recomputes a field from its prior value and the whole record.
// value is nil when the record lacks the field. It must be pure: the engine
// may be re-run against a restored backup after a partial failure.
type Transform func(value any, record map[string]any) any

// ShardResult is the outcome for one shard that was written.
type ShardResult struct {
	Shard   string `json:"shard"`
	Records int    `json:"records"`
	Changed int    `json:"changed"`
}

// Report describes a mutation run. On partial failure Shards holds what was
// written before the failing shard and Remaining what was not touched,
// starting with the shard that failed; Snapshot is the restore path.
type Report struct {
	RunID          string        `json:"run_id"`
	Snapshot       string        `json:"snapshot"`
	Shards         []ShardResult `json:"shards"`
	Remaining      []string      `json:"remaining,omitempty"`
	RecordsChanged int           `json:"records_changed"`
}

// Engine serializes mutations behind a process-wide lock. The store is
// single-writer; two overlapping runs would observe each other's
// half-written state.
type Engine struct {
	mu    sync.Mutex
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// AddField sets name to defaultValue on every record that lacks it.
// Records that already carry the field keep their value, which is what
// makes the operation idempotent.
func (e *Engine) AddField(ctx context.Context, name string, defaultValue any) (*Report, error) {
	if name == "" {
		return nil, errors.New("field name required")
	}
	return e.run(ctx, func(rec map[string]any) bool {
		if _, ok := rec[name]; ok {
			return false
		}
		rec[name] = defaultValue
		return true
	})
}

// RenameField moves oldName's value to newName on every record that has
// oldName. An existing newName value is overwritten (last write wins); use
// FieldUsage first if that would lose data you care about.
func (e *Engine) RenameField(ctx context.Context, oldName, newName string) (*Report, error) {
	if oldName == "" || newName == "" {
		return nil, errors.New("field names required")
	}
	if oldName == newName {
		return nil, errors.New("old and new field names are identical")
	}
	return e.run(ctx, func(rec map[string]any) bool {
		v, ok := rec[oldName]
		if !ok {
			return false
		}
		rec[newName] = v
		delete(rec, oldName)
		return true
	})
}

// RemoveField deletes name from every record, present or not.
func (e *Engine) RemoveField(ctx context.Context, name string) (*Report, error) {
	if name == "" {
		return nil, errors.New("field name required")
	}
	return e.run(ctx, func(rec map[string]any) bool {
		if _, ok := rec[name]; !ok {
			return false
		}
		delete(rec, name)
		return true
	})
}

// UpdateField replaces name's value with fn(current, record) on every
// record. Records lacking the field see a nil current value.
func (e *Engine) UpdateField(ctx context.Context, name string, fn Transform) (*Report, error) {
	if name == "" {
		return nil, errors.New("field name required")
	}
	if fn == nil {
		return nil, errors.New("transform required")
	}
	return e.run(ctx, func(rec map[string]any) bool {
		old := rec[name]
		next := fn(old, rec)
		rec[name] = next
		return !reflect.DeepEqual(old, next)
	})
}

// run is the shared shape of every mutation: enumerate, snapshot, then
// read/transform/write each shard in order. Cancellation is honored up to
// the point the first shard write begins; after that the run must finish
// or fail on its own, since aborting mid-loop is exactly the partial state
// the snapshot exists to avoid creating on purpose.
func (e *Engine) run(ctx context.Context, mutate func(map[string]any) bool) (*Report, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names, err := e.store.ShardNames()
	if err != nil {
		return nil, fmt.Errorf("enumerate shards: %w", err)
	}

	snapDir, err := e.store.Snapshot()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rep := &Report{RunID: uuid.NewString(), Snapshot: snapDir}
	for i, name := range names {
		records, err := e.store.ReadRaw(name)
		if err != nil {
			rep.Remaining = append(rep.Remaining, names[i:]...)
			return rep, err
		}

		changed := 0
		for _, rec := range records {
			if mutate(rec) {
				changed++
			}
		}

		if err := e.store.WriteRaw(name, records); err != nil {
			rep.Remaining = append(rep.Remaining, names[i:]...)
			return rep, err
		}
		rep.Shards = append(rep.Shards, ShardResult{Shard: name, Records: len(records), Changed: changed})
		rep.RecordsChanged += changed
	}

	// The manifest is derived, so a failure here does not lose data.
	if _, err := e.store.RegenerateManifest(); err != nil {
		log.Printf("[fieldops] manifest regeneration failed after run %s: %v", rep.RunID, err)
	}
	return rep, nil
}
