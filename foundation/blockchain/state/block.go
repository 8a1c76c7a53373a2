package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// MineNewBlock attempts to create a new block with a proper hash that can become
// the next block in the chain. The block carries a coinbase paying the miner
// followed by every pending transaction. The nonce search runs outside the
// writer so reads and submissions continue while mining.
func (s *State) MineNewBlock(ctx context.Context, miner string, onProgress database.ProgressFunc) (database.Block, error) {
	if miner == "" || strings.ContainsAny(miner, " \t\r\n") {
		return database.Block{}, fmt.Errorf("miner address %q: %w", miner, database.ErrInvalidTransaction)
	}

	s.evHandler("state: MineNewBlock: MINING: prepare block: miner[%s]", miner)

	var block database.Block
	var difficulty uint
	err := s.write(func() error {
		s.adjustDifficulty()

		head := s.db.LatestBlock()
		trans := append([]database.Tx{database.NewCoinbaseTx(miner, s.genesis.MiningReward)}, s.mempool.PickBest(-1)...)

		block = database.NewBlock(head.Index()+1, trans, head.Hash())
		difficulty = s.db.Difficulty()
		return nil
	})
	if err != nil {
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: perform POW: blk[%d] difficulty[%d] trans[%d]", block.Index(), difficulty, len(block.Transactions()))

	if err := block.Mine(ctx, difficulty, onProgress); err != nil {
		return database.Block{}, err
	}

	// Just check one more time we were not cancelled.
	if ctx.Err() != nil {
		return database.Block{}, ctx.Err()
	}

	s.evHandler("state: MineNewBlock: MINING: commit: blk[%d] hash[%s] nonce[%d]", block.Index(), block.Hash(), block.Nonce())

	if err := s.write(func() error { return s.commit(block) }); err != nil {
		return database.Block{}, err
	}

	s.blockEvent(block)
	s.Worker.SignalShareBlock(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer, validates it and
// if that passes, adds the block to the local blockchain. Only the block that
// extends the current head is accepted.
func (s *State) ProcessProposedBlock(wb database.WireBlock) error {
	s.evHandler("state: ProcessProposedBlock: started: prevBlk[%s]: newBlk[%s]: numTrans[%d]", wb.PreviousHash, wb.Hash, len(wb.Transactions))
	defer s.evHandler("state: ProcessProposedBlock: completed: newBlk[%s]", wb.Hash)

	block, err := wb.Validate()
	if err != nil {
		return err
	}

	err = s.write(func() error {
		if block.Index() == uint64(s.db.Len()) {
			s.adjustDifficulty()
		}
		return s.commit(block)
	})
	if err != nil {
		return err
	}

	s.blockEvent(block)

	return nil
}

// =============================================================================

// adjustDifficulty runs the difficulty adjustment once per interval boundary.
// Must be called by the writer.
func (s *State) adjustDifficulty() {
	n := s.db.Len()
	if n%s.genesis.AdjustInterval != 0 || s.adjustedAt == n {
		return
	}
	s.adjustedAt = n

	from, to := s.db.AdjustDifficulty()
	if from != to {
		s.evHandler("state: adjustDifficulty: len[%d]: difficulty %d -> %d", n, from, to)
	}
}

// commit validates the block against the head, applies it and cleans up the
// mempool. Must be called by the writer.
func (s *State) commit(block database.Block) error {
	if err := s.db.AppendBlock(block); err != nil {
		return err
	}

	removed := s.mempool.RemoveIncluded(block.Transactions())
	evicted := s.mempool.EvictSpent(s.db.HasUTXO)
	s.evHandler("state: commit: blk[%d]: removed[%d] evicted[%d] pending[%d]", block.Index(), removed, len(evicted), s.mempool.Count())

	s.persistBlock(block)
	s.Worker.SignalSnapshot()

	return nil
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	data, err := json.Marshal(block)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"hash":%q,"block":%s}`, block.Hash(), string(data))
}

// txEvent provides a specific event about a new pending transaction.
func (s *State) txEvent(tx database.Tx) {
	data, err := json.Marshal(tx)
	if err != nil {
		data = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: tx: %s`, string(data))
}
