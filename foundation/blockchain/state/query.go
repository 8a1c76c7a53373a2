package state

import (
	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// QueryBalance returns the value held by the address.
func (s *State) QueryBalance(address string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.BalanceOf(address)
}

// QueryBalances returns the value held by every address with a balance.
func (s *State) QueryBalances() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.Balances()
}

// QueryUTXOs returns the unspent outputs owned by the address. An empty
// address returns the whole set.
func (s *State) QueryUTXOs(address string) []database.UTXO {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if address == "" {
		return s.db.UTXOs()
	}
	return s.db.EntriesFor(address)
}

// QueryTotalValue returns the value held across the UTXO set.
func (s *State) QueryTotalValue() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.TotalValue()
}

// ValidateChain revalidates every block and replays every transaction.
func (s *State) ValidateChain() database.ChainReport {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.db.ValidateChain()
}

// IsChainValid reports whether the chain passes a full revalidation.
func (s *State) IsChainValid() bool {
	return s.ValidateChain().Valid
}
