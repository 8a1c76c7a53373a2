package commands

import (
	"fmt"
	"io"

	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Validate prints the outcome of a full chain validation.
func Validate(w io.Writer, db *database.Database) error {
	report := db.ValidateChain()

	for _, br := range report.Blocks {
		fmt.Fprintf(w, "Block: %d  Hash: %s  Link: %t  Hash: %t  Difficulty: %t\n", br.Index, br.Hash, br.LinkValid, br.HashValid, br.DifficultyValid)
	}
	if report.ReplayError != "" {
		fmt.Fprintf(w, "Replay: %s\n", report.ReplayError)
	}

	fmt.Fprintf(w, "\nValid: %t (%s)\n", report.Valid, report.Reason())

	if !report.Valid {
		return database.ErrChainIntegrity
	}

	return nil
}
