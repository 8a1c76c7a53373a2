package database

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/bits"
	"strings"

	"github.com/google/uuid"
)

// OutPoint identifies a single output of a prior transaction.
type OutPoint struct {
	TxID  string `json:"txId"`
	Index int    `json:"outputIndex"`
}

// String implements the fmt.Stringer interface.
func (op OutPoint) String() string {
	return fmt.Sprintf("%s:%d", op.TxID, op.Index)
}

// TxInput references exactly one prior output. The signature is carried as
// an opaque string and is never interpreted by the ledger.
type TxInput struct {
	TxID        string `json:"txId"`
	OutputIndex int    `json:"outputIndex"`
	Signature   string `json:"signature"`
}

// OutPoint returns the output this input spends.
func (in TxInput) OutPoint() OutPoint {
	return OutPoint{TxID: in.TxID, Index: in.OutputIndex}
}

// TxOutput assigns an amount of value to an address.
type TxOutput struct {
	Address string `json:"address"`
	Amount  uint64 `json:"amount"`
}

// =============================================================================

// Tx is an immutable transaction. The id is the content hash of the inputs
// and outputs so two transactions with the same content share an id, except
// for coinbase transactions which mix in random entropy when created.
type Tx struct {
	id      string
	inputs  []TxInput
	outputs []TxOutput
}

// NewTx constructs a transaction from the inputs and outputs and computes
// its id.
func NewTx(inputs []TxInput, outputs []TxOutput) Tx {
	tx := Tx{
		inputs:  append([]TxInput(nil), inputs...),
		outputs: append([]TxOutput(nil), outputs...),
	}
	tx.id = calculateTxID(tx.inputs, tx.outputs, "")

	return tx
}

// NewCoinbaseTx constructs the reward transaction for a mined block. Two
// rewards to the same address for the same amount still get distinct ids.
func NewCoinbaseTx(address string, reward uint64) Tx {
	tx := Tx{
		outputs: []TxOutput{{Address: address, Amount: reward}},
	}
	tx.id = calculateTxID(nil, tx.outputs, uuid.NewString())

	return tx
}

// ID returns the transaction id.
func (tx Tx) ID() string {
	return tx.id
}

// Inputs returns a copy of the transaction inputs.
func (tx Tx) Inputs() []TxInput {
	return append([]TxInput(nil), tx.inputs...)
}

// Outputs returns a copy of the transaction outputs.
func (tx Tx) Outputs() []TxOutput {
	return append([]TxOutput(nil), tx.outputs...)
}

// IsCoinbase reports whether this transaction mints new value.
func (tx Tx) IsCoinbase() bool {
	return len(tx.inputs) == 0
}

// TotalOut returns the sum of the output amounts. The sum is only
// meaningful for a transaction whose outputs passed SumOutputs.
func (tx Tx) TotalOut() uint64 {
	total, _ := tx.SumOutputs()
	return total
}

// SumOutputs returns the sum of the output amounts and false when the sum
// doesn't fit in 64 bits.
func (tx Tx) SumOutputs() (uint64, bool) {
	var total uint64
	for _, out := range tx.outputs {
		var ok bool
		if total, ok = AddAmount(total, out.Amount); !ok {
			return 0, false
		}
	}
	return total, true
}

// AddAmount adds an amount to a running total and returns false on
// overflow.
func AddAmount(total uint64, amount uint64) (uint64, bool) {
	sum, carry := bits.Add64(total, amount, 0)
	return sum, carry == 0
}

// HasValidID recomputes the id from the content. Coinbase ids can't be
// recomputed since the entropy is not retained, so they always pass.
func (tx Tx) HasValidID() bool {
	if tx.IsCoinbase() {
		return tx.id != ""
	}
	return tx.id == calculateTxID(tx.inputs, tx.outputs, "")
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	id := tx.id
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("TX[%s] ins[%d] outs[%d]", id, len(tx.inputs), len(tx.outputs))
}

// serialize produces the canonical form used when hashing a block.
func (tx Tx) serialize() string {
	return tx.id + "[" + content(tx.inputs, tx.outputs) + "]"
}

// =============================================================================

func content(inputs []TxInput, outputs []TxOutput) string {
	var b strings.Builder
	for _, in := range inputs {
		fmt.Fprintf(&b, "%s:%d:%s;", in.TxID, in.OutputIndex, in.Signature)
	}
	b.WriteString("|")
	for _, out := range outputs {
		fmt.Fprintf(&b, "%d:%s;", out.Amount, out.Address)
	}
	return b.String()
}

func calculateTxID(inputs []TxInput, outputs []TxOutput, entropy string) string {
	data := content(inputs, outputs)
	if entropy != "" {
		data += "|" + entropy
	}

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
