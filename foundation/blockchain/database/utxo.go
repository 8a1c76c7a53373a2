package database

import (
	"fmt"
	"sort"
)

// UTXO is an unspent output along with the outpoint that identifies it.
type UTXO struct {
	OutPoint
	Output TxOutput `json:"output"`
}

type entry struct {
	output TxOutput
	seq    uint64
}

// UTXOSet maps outpoints to the outputs that have been produced and not yet
// spent. Entries remember their insertion order so coin selection is
// deterministic. The set is not safe for concurrent use; the Database owns
// the locking.
type UTXOSet struct {
	entries map[OutPoint]entry
	seq     uint64
}

// NewUTXOSet constructs an empty set.
func NewUTXOSet() *UTXOSet {
	return &UTXOSet{
		entries: make(map[OutPoint]entry),
	}
}

// Add records a new unspent output.
func (us *UTXOSet) Add(txID string, index int, output TxOutput) {
	us.seq++
	us.entries[OutPoint{TxID: txID, Index: index}] = entry{output: output, seq: us.seq}
}

// Remove deletes the output and reports whether it existed.
func (us *UTXOSet) Remove(txID string, index int) bool {
	op := OutPoint{TxID: txID, Index: index}
	if _, exists := us.entries[op]; !exists {
		return false
	}

	delete(us.entries, op)
	return true
}

// Has reports whether the output exists and is unspent.
func (us *UTXOSet) Has(txID string, index int) bool {
	_, exists := us.entries[OutPoint{TxID: txID, Index: index}]
	return exists
}

// Get returns the unspent output.
func (us *UTXOSet) Get(txID string, index int) (TxOutput, error) {
	e, exists := us.entries[OutPoint{TxID: txID, Index: index}]
	if !exists {
		return TxOutput{}, fmt.Errorf("utxo %s:%d: %w", txID, index, ErrNotFound)
	}
	return e.output, nil
}

// Len returns the number of unspent outputs.
func (us *UTXOSet) Len() int {
	return len(us.entries)
}

// BalanceOf sums the amounts of every entry owned by the address.
func (us *UTXOSet) BalanceOf(address string) uint64 {
	var balance uint64
	for _, e := range us.entries {
		if e.output.Address == address {
			balance += e.output.Amount
		}
	}
	return balance
}

// Balances returns the balance of every address holding value.
func (us *UTXOSet) Balances() map[string]uint64 {
	balances := make(map[string]uint64)
	for _, e := range us.entries {
		balances[e.output.Address] += e.output.Amount
	}
	return balances
}

// Total returns the value held across the whole set.
func (us *UTXOSet) Total() uint64 {
	var total uint64
	for _, e := range us.entries {
		total += e.output.Amount
	}
	return total
}

// EntriesFor returns the entries owned by the address in insertion order.
func (us *UTXOSet) EntriesFor(address string) []UTXO {
	return us.filter(func(out TxOutput) bool { return out.Address == address })
}

// All returns every entry in insertion order.
func (us *UTXOSet) All() []UTXO {
	return us.filter(func(TxOutput) bool { return true })
}

// Copy returns a deep copy of the set.
func (us *UTXOSet) Copy() *UTXOSet {
	cpy := UTXOSet{
		entries: make(map[OutPoint]entry, len(us.entries)),
		seq:     us.seq,
	}
	for op, e := range us.entries {
		cpy.entries[op] = e
	}
	return &cpy
}

func (us *UTXOSet) filter(match func(TxOutput) bool) []UTXO {
	type ordered struct {
		utxo UTXO
		seq  uint64
	}

	var list []ordered
	for op, e := range us.entries {
		if match(e.output) {
			list = append(list, ordered{utxo: UTXO{OutPoint: op, Output: e.output}, seq: e.seq})
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].seq < list[j].seq })

	utxos := make([]UTXO, len(list))
	for i, o := range list {
		utxos[i] = o.utxo
	}
	return utxos
}

// =============================================================================

// ApplyTransactions validates the transactions of a block in order and then
// applies them. Either every transaction is applied or the set is left
// untouched. Only the first transaction may be a coinbase and it must mint
// exactly the reward. Ordinary transactions must spend existing outputs and
// conserve value exactly.
func (us *UTXOSet) ApplyTransactions(txs []Tx, reward uint64) error {
	st := stage{
		base:    us,
		spent:   make(map[OutPoint]bool),
		created: make(map[OutPoint]TxOutput),
	}

	for i, tx := range txs {
		if err := st.apply(i, tx, reward); err != nil {
			return err
		}
	}

	st.commit()
	return nil
}

// stage accumulates the effects of a block so they can be checked before
// anything is written to the base set.
type stage struct {
	base    *UTXOSet
	spent   map[OutPoint]bool
	created map[OutPoint]TxOutput
	order   []OutPoint
}

func (st *stage) lookup(op OutPoint) (TxOutput, bool) {
	if st.spent[op] {
		return TxOutput{}, false
	}
	if out, exists := st.created[op]; exists {
		return out, true
	}
	if e, exists := st.base.entries[op]; exists {
		return e.output, true
	}
	return TxOutput{}, false
}

func (st *stage) apply(pos int, tx Tx, reward uint64) error {
	totalOut, ok := tx.SumOutputs()
	if !ok {
		return fmt.Errorf("tx[%s]: output amounts overflow: %w", tx.ID(), ErrChainIntegrity)
	}

	if tx.IsCoinbase() {
		if pos != 0 {
			return fmt.Errorf("tx[%s]: coinbase at position %d: %w", tx.ID(), pos, ErrChainIntegrity)
		}
		if totalOut != reward {
			return fmt.Errorf("tx[%s]: coinbase mints %d, reward is %d: %w", tx.ID(), totalOut, reward, ErrChainIntegrity)
		}
	}

	var totalIn uint64
	for _, in := range tx.inputs {
		op := in.OutPoint()
		out, exists := st.lookup(op)
		if !exists {
			return fmt.Errorf("tx[%s]: input %s is spent or missing: %w", tx.ID(), op, ErrChainIntegrity)
		}
		if totalIn, ok = AddAmount(totalIn, out.Amount); !ok {
			return fmt.Errorf("tx[%s]: input amounts overflow: %w", tx.ID(), ErrChainIntegrity)
		}
		st.spent[op] = true
	}

	if !tx.IsCoinbase() && totalIn != totalOut {
		return fmt.Errorf("tx[%s]: inputs %d, outputs %d: %w", tx.ID(), totalIn, totalOut, ErrChainIntegrity)
	}

	for i, out := range tx.outputs {
		op := OutPoint{TxID: tx.id, Index: i}
		if _, exists := st.lookup(op); exists || st.spent[op] {
			return fmt.Errorf("tx[%s]: output %d already applied: %w", tx.ID(), i, ErrChainIntegrity)
		}
		st.created[op] = out
		st.order = append(st.order, op)
	}

	return nil
}

func (st *stage) commit() {
	for op := range st.spent {
		if _, exists := st.base.entries[op]; exists {
			delete(st.base.entries, op)
		}
	}

	for _, op := range st.order {
		if st.spent[op] {
			continue
		}
		st.base.Add(op.TxID, op.Index, st.created[op])
	}
}
