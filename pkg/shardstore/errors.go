package shardstore

import "fmt"

// ParseError means one shard file's content is malformed. Loaders are
// expected to skip the shard and keep going; the rest of the store is fine.
type ParseError struct {
	Shard string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("shard %q: parse: %v", e.Shard, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// WriteError means a shard rewrite failed partway through a mutation run.
// Shards written before it are newer than the rest; the backup snapshot
// taken at the start of the run is the restore path.
type WriteError struct {
	Shard string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("shard %q: write: %v", e.Shard, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// SnapshotError means the pre-mutation backup could not be created or
// verified. Nothing in the store has been touched when this is returned.
type SnapshotError struct {
	Dir string
	Err error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot %q: %v", e.Dir, e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }
