package database

import (
	"fmt"
)

// BlockReport records the checks performed on a single block.
type BlockReport struct {
	Index           uint64 `json:"index"`
	Hash            string `json:"hash"`
	HashValid       bool   `json:"hashValid"`
	LinkValid       bool   `json:"linkValid"`
	DifficultyValid bool   `json:"difficultyValid"`
	Valid           bool   `json:"valid"`
}

// ChainReport is the outcome of a full chain validation.
type ChainReport struct {
	Blocks      []BlockReport `json:"blocks"`
	ReplayError string        `json:"replayError,omitempty"`
	Valid       bool          `json:"valid"`
}

// Reason returns a short description of the first problem found.
func (cr ChainReport) Reason() string {
	if cr.Valid {
		return "chain is valid"
	}

	for _, br := range cr.Blocks {
		switch {
		case !br.LinkValid:
			return fmt.Sprintf("block[%d] is not linked to its parent", br.Index)
		case !br.HashValid:
			return fmt.Sprintf("block[%d] hash does not match content", br.Index)
		case !br.DifficultyValid:
			return fmt.Sprintf("block[%d] hash does not meet its difficulty", br.Index)
		}
	}

	if cr.ReplayError != "" {
		return cr.ReplayError
	}
	return "chain is empty"
}

// validateChain checks every block against its parent and replays the
// transactions into a fresh UTXO set. The rebuilt set is returned so a
// restore doesn't need a second replay.
func validateChain(blocks []Block, reward uint64) (ChainReport, *UTXOSet) {
	report := ChainReport{
		Blocks: make([]BlockReport, len(blocks)),
		Valid:  len(blocks) > 0,
	}

	for i, b := range blocks {
		br := BlockReport{
			Index:           b.index,
			Hash:            b.hash,
			HashValid:       b.IsHashValid(),
			DifficultyValid: b.IsSolved(b.difficulty),
		}

		switch i {
		case 0:
			br.LinkValid = b.index == 0 && b.prevHash == GenesisPrevHash && len(b.trans) == 0
		default:
			br.LinkValid = b.index == uint64(i) && b.prevHash == blocks[i-1].hash
		}

		br.Valid = br.HashValid && br.LinkValid && br.DifficultyValid
		if !br.Valid {
			report.Valid = false
		}
		report.Blocks[i] = br
	}

	utxos := NewUTXOSet()
	for _, b := range blocks {
		if err := utxos.ApplyTransactions(b.trans, reward); err != nil {
			report.ReplayError = fmt.Sprintf("block[%d]: %s", b.index, err)
			report.Valid = false
			break
		}
	}

	return report, utxos
}
