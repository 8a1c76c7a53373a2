package database

import (
	"encoding/json"
	"fmt"
	"strings"
)

// WireTx is the raw transaction record exchanged between nodes and stored in
// snapshots. Field names follow the peer protocol.
type WireTx struct {
	ID      string     `json:"tx_id" validate:"required,len=64,hexadecimal"`
	Inputs  []TxInput  `json:"inputs" validate:"dive"`
	Outputs []TxOutput `json:"outputs" validate:"required,min=1,dive"`
}

// NewWireTx converts a transaction into its wire form.
func NewWireTx(tx Tx) WireTx {
	inputs := tx.Inputs()
	if inputs == nil {
		inputs = []TxInput{}
	}

	return WireTx{
		ID:      tx.ID(),
		Inputs:  inputs,
		Outputs: tx.Outputs(),
	}
}

// ToTx converts the wire record into a transaction. The id of an ordinary
// transaction is recomputed and must match. A coinbase id can't be
// recomputed and is taken as given.
func (w WireTx) ToTx() (Tx, error) {
	if w.ID == "" {
		return Tx{}, fmt.Errorf("missing id: %w", ErrInvalidTransaction)
	}
	if len(w.Outputs) == 0 {
		return Tx{}, fmt.Errorf("tx[%s]: no outputs: %w", w.ID, ErrInvalidTransaction)
	}

	for _, in := range w.Inputs {
		if in.TxID == "" || in.OutputIndex < 0 || hasSpace(in.TxID) || hasSpace(in.Signature) {
			return Tx{}, fmt.Errorf("tx[%s]: malformed input %s: %w", w.ID, in.OutPoint(), ErrInvalidTransaction)
		}
	}
	for _, out := range w.Outputs {
		if out.Address == "" || hasSpace(out.Address) {
			return Tx{}, fmt.Errorf("tx[%s]: malformed output address %q: %w", w.ID, out.Address, ErrInvalidTransaction)
		}
	}

	tx := Tx{
		id:      w.ID,
		inputs:  append([]TxInput(nil), w.Inputs...),
		outputs: append([]TxOutput(nil), w.Outputs...),
	}

	if !tx.HasValidID() {
		return Tx{}, fmt.Errorf("tx[%s]: id does not match content: %w", w.ID, ErrInvalidTransaction)
	}

	if _, ok := tx.SumOutputs(); !ok {
		return Tx{}, fmt.Errorf("tx[%s]: output amounts overflow: %w", w.ID, ErrInvalidTransaction)
	}

	return tx, nil
}

// MarshalJSON renders the transaction in its wire form.
func (tx Tx) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewWireTx(tx))
}

// =============================================================================

// WireBlock is the raw block record as received from a peer. It must pass
// Validate before it is treated as chain data.
type WireBlock struct {
	Index        uint64   `json:"index"`
	Timestamp    int64    `json:"timestamp"`
	PreviousHash string   `json:"previousHash" validate:"required"`
	Hash         string   `json:"hash" validate:"required,len=64,hexadecimal"`
	Nonce        uint64   `json:"nonce"`
	Difficulty   uint     `json:"difficulty"`
	Transactions []WireTx `json:"transactions" validate:"dive"`
}

// NewWireBlock converts a block into its wire form.
func NewWireBlock(b Block) WireBlock {
	trans := make([]WireTx, len(b.trans))
	for i, tx := range b.trans {
		trans[i] = NewWireTx(tx)
	}

	return WireBlock{
		Index:        b.index,
		Timestamp:    b.timestamp,
		PreviousHash: b.prevHash,
		Hash:         b.hash,
		Nonce:        b.nonce,
		Difficulty:   b.difficulty,
		Transactions: trans,
	}
}

// Validate rebuilds the block from the raw fields and recomputes its hash.
// The submitted hash is never trusted: it must equal the recomputed hash and
// satisfy the recorded difficulty.
func (w WireBlock) Validate() (Block, error) {
	b, err := w.toBlock()
	if err != nil {
		return Block{}, err
	}

	if !b.IsHashValid() {
		return Block{}, fmt.Errorf("block[%d]: hash %s does not match content: %w", w.Index, w.Hash, ErrChainIntegrity)
	}

	if !b.IsSolved(b.difficulty) {
		return Block{}, fmt.Errorf("block[%d]: hash %s does not meet difficulty %d: %w", w.Index, w.Hash, w.Difficulty, ErrChainIntegrity)
	}

	return b, nil
}

// toBlock builds a block keeping the recorded hash so it can be checked
// later. Used by Validate and by snapshot restore.
func (w WireBlock) toBlock() (Block, error) {
	trans := make([]Tx, len(w.Transactions))
	for i, wtx := range w.Transactions {
		tx, err := wtx.ToTx()
		if err != nil {
			return Block{}, fmt.Errorf("block[%d]: %w", w.Index, err)
		}
		trans[i] = tx
	}

	b := Block{
		index:      w.Index,
		timestamp:  w.Timestamp,
		prevHash:   w.PreviousHash,
		hash:       w.Hash,
		nonce:      w.Nonce,
		difficulty: w.Difficulty,
		trans:      trans,
	}

	return b, nil
}

func hasSpace(s string) bool {
	return strings.ContainsAny(s, " \t\r\n")
}
