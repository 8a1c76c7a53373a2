package commands

import (
	"fmt"
	"io"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Transactions prints the committed transactions, or only those paying to
// or spending from the specified address.
func Transactions(w io.Writer, address string, db *database.Database) error {
	for _, block := range db.Blocks() {
		for _, tx := range block.Transactions() {
			if address != "" && !touches(db, tx, address) {
				continue
			}

			fmt.Fprintf(w, "Block: %d  ID: %s  Inputs: %d  Total: %d\n", block.Index(), tx.ID(), len(tx.Inputs()), tx.TotalOut())
			for _, out := range tx.Outputs() {
				fmt.Fprintf(w, "    -> %s  %d\n", out.Address, out.Amount)
			}
		}
	}

	return nil
}

// touches reports whether the transaction pays the address or spends an
// output the address received in an earlier block.
func touches(db *database.Database, tx database.Tx, address string) bool {
	for _, out := range tx.Outputs() {
		if out.Address == address {
			return true
		}
	}

	spent := make(map[database.OutPoint]bool)
	for _, in := range tx.Inputs() {
		spent[in.OutPoint()] = true
	}

	for _, block := range db.Blocks() {
		for _, prev := range block.Transactions() {
			for i, out := range prev.Outputs() {
				if out.Address == address && spent[database.OutPoint{TxID: prev.ID(), Index: i}] {
					return true
				}
			}
		}
	}

	return false
}
