// Package memory implements the ability to keep a durable copy of the chain
// in memory using maps. It is used by tests and when no data directory is
// configured.
package memory

import (
	"sort"
	"sync"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Memory represents the storage implementation for keeping blocks and the
// pending transactions in memory. This implements the state.Storage
// interface.
type Memory struct {
	mu      sync.RWMutex
	blocks  map[string]database.WireBlock
	mempool []database.WireTx
	closed  bool
}

// New constructs a Memory value for use.
func New() *Memory {
	return &Memory{
		blocks: make(map[string]database.WireBlock),
	}
}

// Close in this implementation has nothing to release.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// InsertBlock stores the block keyed by its hash. Inserting the same block
// twice leaves a single copy.
func (m *Memory) InsertBlock(block database.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blocks[block.Hash()] = database.NewWireBlock(block)
	return nil
}

// UpsertMempool replaces the stored set of pending transactions.
func (m *Memory) UpsertMempool(pending []database.Tx) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mempool = make([]database.WireTx, len(pending))
	for i, tx := range pending {
		m.mempool[i] = database.NewWireTx(tx)
	}

	return nil
}

// Blocks returns the stored blocks ordered by index.
func (m *Memory) Blocks() []database.WireBlock {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]database.WireBlock, 0, len(m.blocks))
	for _, wb := range m.blocks {
		blocks = append(blocks, wb)
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	return blocks
}

// Mempool returns the stored pending transactions.
func (m *Memory) Mempool() []database.WireTx {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]database.WireTx{}, m.mempool...)
}

// Closed reports whether Close was called.
func (m *Memory) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.closed
}
