package shardstore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// snapshotLayout produces directory names that sort chronologically.
const snapshotLayout = "20060102-150405.000"

// Snapshot copies every shard file plus the manifest (when present) into a
// new timestamped directory under BackupDir, along with any extra files the
// caller wants preserved, and verifies the copies before returning. The
// snapshot directory is never modified afterwards.
//
// Mutations call this first and must not touch the store unless it
// succeeds.
func (s *Store) Snapshot(extra ...string) (string, error) {
	names, err := s.ShardNames()
	if err != nil {
		return "", &SnapshotError{Err: err}
	}

	var sources []string
	for _, name := range names {
		sources = append(sources, s.ShardPath(name))
	}
	if _, err := os.Stat(filepath.Join(s.Dir, ManifestFile)); err == nil {
		sources = append(sources, filepath.Join(s.Dir, ManifestFile))
	}
	sources = append(sources, extra...)

	dir, err := s.newSnapshotDir()
	if err != nil {
		return "", err
	}

	for _, src := range sources {
		if err := copyFile(src, filepath.Join(dir, filepath.Base(src))); err != nil {
			return "", &SnapshotError{Dir: dir, Err: err}
		}
	}

	// Verify before anyone is allowed to overwrite the originals.
	for _, src := range sources {
		want, err := os.Stat(src)
		if err != nil {
			return "", &SnapshotError{Dir: dir, Err: err}
		}
		got, err := os.Stat(filepath.Join(dir, filepath.Base(src)))
		if err != nil {
			return "", &SnapshotError{Dir: dir, Err: err}
		}
		if got.Size() != want.Size() {
			return "", &SnapshotError{Dir: dir, Err: fmt.Errorf("copy of %s is %d bytes, want %d", filepath.Base(src), got.Size(), want.Size())}
		}
	}

	return dir, nil
}

// newSnapshotDir picks the next free timestamped directory. Back-to-back
// runs can land on the same millisecond, so wait the clock out rather than
// reusing a name.
func (s *Store) newSnapshotDir() (string, error) {
	for i := 0; i < 1000; i++ {
		dir := filepath.Join(s.BackupDir, time.Now().UTC().Format(snapshotLayout))
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", &SnapshotError{Dir: dir, Err: err}
			}
			return dir, nil
		}
		time.Sleep(time.Millisecond)
	}
	return "", &SnapshotError{Dir: s.BackupDir, Err: fmt.Errorf("could not allocate a snapshot directory")}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	return out.Close()
}
