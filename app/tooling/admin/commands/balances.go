// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Balances prints the balance of every address, or only the one specified.
func Balances(w io.Writer, address string, db *database.Database) error {
	fmt.Fprintf(w, "LatestBlockHash: %s\n\n", db.LatestBlock().Hash())

	if address != "" {
		fmt.Fprintf(w, "Address: %s  Balance: %d\n", address, db.BalanceOf(address))
		return nil
	}

	bals := db.Balances()

	addrs := make([]string, 0, len(bals))
	for addr := range bals {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	for _, addr := range addrs {
		fmt.Fprintf(w, "Address: %s  Balance: %d\n", addr, bals[addr])
	}
	fmt.Fprintf(w, "\nTotal: %d\n", db.TotalValue())

	return nil
}
