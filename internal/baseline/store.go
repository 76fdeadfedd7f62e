package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound means no baseline has ever been committed. Callers must treat
// this as "drift check cannot run", which is distinct from zero drift.
var ErrNotFound = errors.New("baseline not found")

// Store persists the baseline as a JSON file via atomic replace. A concurrent
// reader observes either the previous complete baseline or the new one, never
// a partial write.
type Store struct {
	path      string
	backupDir string
	log       *zap.Logger
}

func NewStore(path, backupDir string, log *zap.Logger) *Store {
	return &Store{path: path, backupDir: backupDir, log: log}
}

// Load reads the committed baseline. ErrNotFound when none exists; any other
// error is a real I/O or decode failure.
func (s *Store) Load() (*Baseline, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode baseline %s: %w", s.path, err)
	}
	return &b, nil
}

// Commit fingerprints the given environment and atomically replaces the
// persisted baseline. The previous baseline, if any, is copied to a
// timestamped backup first; backup failure is logged but does not abort the
// commit.
func (s *Store) Commit(env map[string]string, source string, now time.Time) (*Baseline, error) {
	b := Compute(env, source, now)
	if err := s.backupExisting(now); err != nil && s.log != nil {
		s.log.Warn("baseline backup failed", zap.Error(err))
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Store) backupExisting(now time.Time) error {
	if s.backupDir == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := os.MkdirAll(s.backupDir, 0o755); err != nil {
		return err
	}
	name := fmt.Sprintf("baseline_%s.json", now.UTC().Format("20060102_150405"))
	return writeFileAtomic(filepath.Join(s.backupDir, name), data)
}

// writeFileAtomic writes to a temp file in the target directory, syncs, and
// renames over the destination. A failed write leaves the previous file
// untouched and removes its temp artifact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
