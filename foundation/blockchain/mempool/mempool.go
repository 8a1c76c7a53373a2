// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Set of error variables for pool admission.
var (
	ErrReserved  = errors.New("output already reserved by a pending transaction")
	ErrDuplicate = errors.New("transaction already pending")
)

// Mempool represents the ordered cache of pending transactions. Every output
// spent by a pending transaction is reserved so no other pending transaction
// can spend it.
type Mempool struct {
	mu       sync.RWMutex
	pool     []database.Tx
	ids      map[string]struct{}
	reserved map[database.OutPoint]string
}

// New constructs an empty mempool.
func New() *Mempool {
	return &Mempool{
		ids:      make(map[string]struct{}),
		reserved: make(map[database.OutPoint]string),
	}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends the transaction to the end of the pool. It is rejected when
// already pending or when any of its inputs is reserved.
func (mp *Mempool) Add(tx database.Tx) (int, error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.ids[tx.ID()]; exists {
		return len(mp.pool), fmt.Errorf("tx[%s]: %w", tx.ID(), ErrDuplicate)
	}

	inputs := tx.Inputs()
	seen := make(map[database.OutPoint]struct{}, len(inputs))
	for _, in := range inputs {
		op := in.OutPoint()
		if owner, exists := mp.reserved[op]; exists {
			return len(mp.pool), fmt.Errorf("tx[%s]: input %s held by tx[%s]: %w", tx.ID(), op, owner, ErrReserved)
		}
		if _, exists := seen[op]; exists {
			return len(mp.pool), fmt.Errorf("tx[%s]: input %s listed twice: %w", tx.ID(), op, ErrReserved)
		}
		seen[op] = struct{}{}
	}

	for op := range seen {
		mp.reserved[op] = tx.ID()
	}
	mp.ids[tx.ID()] = struct{}{}
	mp.pool = append(mp.pool, tx)

	return len(mp.pool), nil
}

// Has reports whether the transaction is pending.
func (mp *Mempool) Has(txID string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.ids[txID]
	return exists
}

// IsReserved reports whether a pending transaction spends the output.
func (mp *Mempool) IsReserved(op database.OutPoint) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.reserved[op]
	return exists
}

// Copy returns the pending transactions in insertion order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return append([]database.Tx(nil), mp.pool...)
}

// PickBest returns up to howMany transactions for the next block in
// insertion order. A value of -1 returns the whole pool.
func (mp *Mempool) PickBest(howMany int) []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany < 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	return append([]database.Tx(nil), mp.pool[:howMany]...)
}

// RemoveIncluded drops every pending transaction that is part of the
// specified set and returns the number removed.
func (mp *Mempool) RemoveIncluded(trans []database.Tx) int {
	included := make(map[string]struct{}, len(trans))
	for _, tx := range trans {
		included[tx.ID()] = struct{}{}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	removed := mp.filter(func(tx database.Tx) bool {
		_, exists := included[tx.ID()]
		return !exists
	})

	return len(removed)
}

// EvictSpent drops every pending transaction with an input the unspent
// function no longer reports as spendable and returns them.
func (mp *Mempool) EvictSpent(unspent func(op database.OutPoint) bool) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	return mp.filter(func(tx database.Tx) bool {
		for _, in := range tx.Inputs() {
			if !unspent(in.OutPoint()) {
				return false
			}
		}
		return true
	})
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = nil
	mp.ids = make(map[string]struct{})
	mp.reserved = make(map[database.OutPoint]string)
}

// =============================================================================

// filter keeps the transactions for which keep returns true, releases the
// reservations of the others and returns them. The caller must hold the
// write lock.
func (mp *Mempool) filter(keep func(tx database.Tx) bool) []database.Tx {
	var kept, dropped []database.Tx
	for _, tx := range mp.pool {
		if keep(tx) {
			kept = append(kept, tx)
			continue
		}

		dropped = append(dropped, tx)
		delete(mp.ids, tx.ID())
		for _, in := range tx.Inputs() {
			delete(mp.reserved, in.OutPoint())
		}
	}
	mp.pool = kept

	return dropped
}
