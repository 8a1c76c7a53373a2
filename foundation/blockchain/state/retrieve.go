package state

import (
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/blockchain/peer"
)

// RetrieveHost returns a copy of host information.
func (s *State) RetrieveHost() string {
	return s.host
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.LatestBlock()
}

// RetrieveChain returns a copy of every block in the chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Blocks()
}

// RetrieveBlocksFrom returns a copy of the blocks starting at the index.
func (s *State) RetrieveBlocksFrom(from uint64) []database.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	blocks := s.db.Blocks()
	if from >= uint64(len(blocks)) {
		return nil
	}

	return blocks[from:]
}

// RetrieveDifficulty returns the difficulty enforced for the next block.
func (s *State) RetrieveDifficulty() uint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Difficulty()
}

// RetrieveMempool returns a copy of the mempool.
func (s *State) RetrieveMempool() []database.Tx {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.mempool.Copy()
}

// RetrieveKnownPeers retrieves a copy of the known peer list.
func (s *State) RetrieveKnownPeers() []peer.Peer {
	return s.knownPeers.Copy(s.host)
}

// RetrieveStatus returns the status this node reports to its peers.
func (s *State) RetrieveStatus() peer.PeerStatus {
	s.mu.RLock()
	head := s.db.LatestBlock()
	difficulty := s.db.Difficulty()
	s.mu.RUnlock()

	return peer.PeerStatus{
		LatestBlockHash:  head.Hash(),
		LatestBlockIndex: head.Index(),
		Difficulty:       difficulty,
		KnownPeers:       s.RetrieveKnownPeers(),
	}
}
