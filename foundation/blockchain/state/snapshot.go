package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Snapshot renders the chain in the snapshot text layout.
func (s *State) Snapshot() []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Snapshot()
}

// Restore replaces the chain with the snapshot content. The UTXO set is
// rebuilt by replay and pending transactions that no longer apply are
// evicted. On failure the running chain is left untouched.
func (s *State) Restore(data []byte) error {
	return s.write(func() error {
		if err := s.db.Restore(data); err != nil {
			return err
		}

		s.adjustedAt = -1
		evicted := s.mempool.EvictSpent(s.db.HasUTXO)
		s.evHandler("state: Restore: blocks[%d] difficulty[%d] evicted[%d]", s.db.Len(), s.db.Difficulty(), len(evicted))

		s.persistChain()

		return nil
	})
}

// =============================================================================

// SaveSnapshotFile writes the snapshot to the path. The content is written
// to a temporary file first and renamed into place.
func (s *State) SaveSnapshotFile(path string) error {
	data := s.Snapshot()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("snapshot dir: %s: %w", err, database.ErrPersistence)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("snapshot write: %s: %w", err, database.ErrPersistence)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("snapshot rename: %s: %w", err, database.ErrPersistence)
	}

	return nil
}

// LoadSnapshotFile restores the chain from the path. A missing file leaves
// the chain at genesis and is not an error.
func (s *State) LoadSnapshotFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.evHandler("state: LoadSnapshotFile: no snapshot at %s", path)
			return nil
		}
		return fmt.Errorf("snapshot read: %s: %w", err, database.ErrPersistence)
	}

	return s.Restore(data)
}
