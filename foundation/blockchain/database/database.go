// Package database handles the in memory chain of blocks and the set of
// unspent transaction outputs produced by applying those blocks.
package database

import (
	"fmt"
	"sync"

	"github.com/toychain/utxonode/foundation/blockchain/genesis"
)

// Database manages the chain and the UTXO set derived from it.
type Database struct {
	mu sync.RWMutex

	genesis    genesis.Genesis
	difficulty uint
	blocks     []Block
	utxos      *UTXOSet
}

// New constructs a database holding only the genesis block.
func New(gen genesis.Genesis) *Database {
	return &Database{
		genesis:    gen,
		difficulty: gen.Difficulty,
		blocks:     []Block{NewGenesisBlock()},
		utxos:      NewUTXOSet(),
	}
}

// Len returns the number of blocks in the chain including genesis.
func (db *Database) Len() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// LatestBlock returns the head of the chain.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// GetBlock returns the block at the specified index.
func (db *Database) GetBlock(index uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if index >= uint64(len(db.blocks)) {
		return Block{}, fmt.Errorf("block %d: %w", index, ErrNotFound)
	}
	return db.blocks[index], nil
}

// Blocks returns a copy of the chain.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return append([]Block(nil), db.blocks...)
}

// Difficulty returns the difficulty currently enforced for new blocks.
func (db *Database) Difficulty() uint {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.difficulty
}

// =============================================================================

// HasUTXO reports whether the output is unspent.
func (db *Database) HasUTXO(op OutPoint) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Has(op.TxID, op.Index)
}

// GetUTXO returns the unspent output.
func (db *Database) GetUTXO(op OutPoint) (TxOutput, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Get(op.TxID, op.Index)
}

// BalanceOf returns the value held by the address.
func (db *Database) BalanceOf(address string) uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.BalanceOf(address)
}

// Balances returns the value held by every address.
func (db *Database) Balances() map[string]uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Balances()
}

// EntriesFor returns the unspent outputs of the address in insertion order.
func (db *Database) EntriesFor(address string) []UTXO {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.EntriesFor(address)
}

// UTXOs returns every unspent output in insertion order.
func (db *Database) UTXOs() []UTXO {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.All()
}

// TotalValue returns the value held across the UTXO set.
func (db *Database) TotalValue() uint64 {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.utxos.Total()
}

// =============================================================================

// AdjustDifficulty compares the time it took to mine the last interval of
// blocks with the target and moves the difficulty by one step. The
// adjustment is skipped until the chain holds more than one interval of
// blocks. Block timestamps are trusted as recorded.
func (db *Database) AdjustDifficulty() (from uint, to uint) {
	db.mu.Lock()
	defer db.mu.Unlock()

	from = db.difficulty
	interval := db.genesis.AdjustInterval
	if interval < 1 || len(db.blocks) <= interval {
		return from, from
	}

	head := db.blocks[len(db.blocks)-1]
	start := db.blocks[len(db.blocks)-1-interval]

	actual := head.timestamp - start.timestamp
	expected := db.genesis.BlockTimeTarget * int64(interval)

	switch {
	case actual < expected/2:
		if db.difficulty < genesis.MaxDifficulty {
			db.difficulty++
		}
	case actual > expected*2:
		if db.difficulty > 1 {
			db.difficulty--
		}
	}

	return from, db.difficulty
}

// ValidateNextBlock checks the block can extend the current head.
func (db *Database) ValidateNextBlock(block Block) error {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.validateNext(block)
}

// AppendBlock validates the block against the head, applies its
// transactions to the UTXO set and appends it. Nothing changes when any
// check fails.
func (db *Database) AppendBlock(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.validateNext(block); err != nil {
		return err
	}

	if err := db.utxos.ApplyTransactions(block.trans, db.genesis.MiningReward); err != nil {
		return fmt.Errorf("block[%d]: %w", block.index, err)
	}

	db.blocks = append(db.blocks, block)
	return nil
}

func (db *Database) validateNext(block Block) error {
	head := db.blocks[len(db.blocks)-1]

	if block.index != uint64(len(db.blocks)) {
		return fmt.Errorf("block index %d, expected %d: %w", block.index, len(db.blocks), ErrStaleBlock)
	}

	if block.prevHash != head.hash {
		return fmt.Errorf("block[%d]: parent %s, head is %s: %w", block.index, block.prevHash, head.hash, ErrStaleBlock)
	}

	if !block.IsHashValid() {
		return fmt.Errorf("block[%d]: hash %s does not match content: %w", block.index, block.hash, ErrChainIntegrity)
	}

	if !block.IsSolved(block.difficulty) {
		return fmt.Errorf("block[%d]: hash does not meet recorded difficulty %d: %w", block.index, block.difficulty, ErrChainIntegrity)
	}

	if !block.IsSolved(db.difficulty) {
		return fmt.Errorf("block[%d]: hash does not meet enforced difficulty %d: %w", block.index, db.difficulty, ErrChainIntegrity)
	}

	return nil
}

// =============================================================================

// ValidateChain checks every link of the chain and replays every
// transaction from genesis into a fresh UTXO set.
func (db *Database) ValidateChain() ChainReport {
	db.mu.RLock()
	defer db.mu.RUnlock()

	report, _ := validateChain(db.blocks, db.genesis.MiningReward)
	return report
}

// IsChainValid reports whether ValidateChain found no problem.
func (db *Database) IsChainValid() bool {
	return db.ValidateChain().Valid
}

// Snapshot renders the chain in the snapshot layout.
func (db *Database) Snapshot() []byte {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return EncodeSnapshot(db.difficulty, db.blocks)
}

// Restore replaces the chain with the snapshot content. The UTXO set is
// rebuilt by replaying every block. On any failure the current chain is
// left untouched.
func (db *Database) Restore(data []byte) error {
	difficulty, blocks, err := DecodeSnapshot(data)
	if err != nil {
		return err
	}

	if difficulty > genesis.MaxDifficulty {
		return fmt.Errorf("restore: difficulty %d above %d: %w", difficulty, genesis.MaxDifficulty, ErrChainIntegrity)
	}

	report, utxos := validateChain(blocks, db.genesis.MiningReward)
	if !report.Valid {
		return fmt.Errorf("restore: %s: %w", report.Reason(), ErrChainIntegrity)
	}

	if difficulty < 1 {
		difficulty = 1
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	db.blocks = blocks
	db.utxos = utxos
	db.difficulty = difficulty

	return nil
}
