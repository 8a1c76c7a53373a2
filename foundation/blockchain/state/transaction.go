package state

import (
	"fmt"
	"strings"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/mempool"
)

// Transfer is a request to move value between two addresses. The signature
// is copied onto every input without being interpreted.
type Transfer struct {
	From      string
	To        string
	Amount    int64
	Signature string
}

// SubmitTransfer builds a transaction from the unspent outputs of the sender
// and places it in the mempool. Outputs already reserved by a pending
// transaction are skipped.
func (s *State) SubmitTransfer(tr Transfer) (database.Tx, error) {
	if tr.Amount <= 0 {
		return database.Tx{}, fmt.Errorf("amount %d: %w", tr.Amount, database.ErrInvalidAmount)
	}

	for _, field := range []string{tr.From, tr.To} {
		if field == "" || strings.ContainsAny(field, " \t\r\n") {
			return database.Tx{}, fmt.Errorf("address %q: %w", field, database.ErrInvalidTransaction)
		}
	}
	if strings.ContainsAny(tr.Signature, " \t\r\n") {
		return database.Tx{}, fmt.Errorf("signature contains whitespace: %w", database.ErrInvalidTransaction)
	}

	var tx database.Tx
	err := s.write(func() error {
		amount := uint64(tr.Amount)

		var inputs []database.TxInput
		var total uint64
		for _, utxo := range s.db.EntriesFor(tr.From) {
			if s.mempool.IsReserved(utxo.OutPoint) {
				continue
			}

			inputs = append(inputs, database.TxInput{
				TxID:        utxo.TxID,
				OutputIndex: utxo.Index,
				Signature:   tr.Signature,
			})
			var ok bool
			if total, ok = database.AddAmount(total, utxo.Output.Amount); !ok {
				return fmt.Errorf("address %s: balance overflow: %w", tr.From, database.ErrInvalidTransaction)
			}

			if total >= amount {
				break
			}
		}

		if total < amount {
			return fmt.Errorf("address %s has %d available, %d requested: %w", tr.From, total, amount, database.ErrInsufficientFunds)
		}

		outputs := []database.TxOutput{{Address: tr.To, Amount: amount}}
		if change := total - amount; change > 0 {
			outputs = append(outputs, database.TxOutput{Address: tr.From, Amount: change})
		}

		tx = database.NewTx(inputs, outputs)
		if _, err := s.mempool.Add(tx); err != nil {
			return err
		}

		s.persistMempool()
		return nil
	})
	if err != nil {
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransfer: %s: from[%s] to[%s] amount[%d]", tx, tr.From, tr.To, tr.Amount)
	s.txEvent(tx)

	s.Worker.SignalShareTx(tx)

	return tx, nil
}

// UpsertNodeTransaction accepts a transaction from a node for inclusion. The
// id is recomputed, every input must be unspent and not reserved, and the
// outputs must conserve the value of the inputs.
func (s *State) UpsertNodeTransaction(wtx database.WireTx) error {
	tx, err := wtx.ToTx()
	if err != nil {
		return err
	}

	if tx.IsCoinbase() {
		return fmt.Errorf("tx[%s]: coinbase outside a block: %w", tx.ID(), database.ErrInvalidTransaction)
	}

	if err := s.verifier.Verify(tx); err != nil {
		return fmt.Errorf("tx[%s]: %s: %w", tx.ID(), err, database.ErrInvalidTransaction)
	}

	err = s.write(func() error {
		if s.mempool.Has(tx.ID()) {
			return fmt.Errorf("tx[%s]: %w", tx.ID(), mempool.ErrDuplicate)
		}

		var totalIn uint64
		for _, in := range tx.Inputs() {
			out, err := s.db.GetUTXO(in.OutPoint())
			if err != nil {
				return fmt.Errorf("tx[%s]: input %s is not spendable: %w", tx.ID(), in.OutPoint(), database.ErrInvalidTransaction)
			}
			var ok bool
			if totalIn, ok = database.AddAmount(totalIn, out.Amount); !ok {
				return fmt.Errorf("tx[%s]: input amounts overflow: %w", tx.ID(), database.ErrInvalidTransaction)
			}
		}

		totalOut, ok := tx.SumOutputs()
		if !ok || totalIn != totalOut {
			return fmt.Errorf("tx[%s]: inputs %d, outputs %d: %w", tx.ID(), totalIn, totalOut, database.ErrInvalidTransaction)
		}

		if _, err := s.mempool.Add(tx); err != nil {
			return err
		}

		s.persistMempool()
		return nil
	})
	if err != nil {
		return err
	}

	s.evHandler("state: UpsertNodeTransaction: accepted %s", tx)
	s.txEvent(tx)

	return nil
}
