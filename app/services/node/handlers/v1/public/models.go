package public

import (
	"github.com/toychain/utxonode/foundation/blockchain/database"
)

type transferRequest struct {
	From      string `json:"from" validate:"required,token"`
	To        string `json:"to" validate:"required,token"`
	Amount    int64  `json:"amount"`
	Signature string `json:"signature" validate:"token"`
}

type jobRequest struct {
	Miner string `json:"miner" validate:"required,token"`
}

type jobResponse struct {
	JobID string `json:"job_id"`
}

type balance struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

type balances struct {
	LatestBlock string    `json:"latest_block"`
	Uncommitted int       `json:"uncommitted"`
	Total       uint64    `json:"total"`
	Balances    []balance `json:"balances"`
}

type utxo struct {
	TxID    string `json:"txId"`
	Index   int    `json:"outputIndex"`
	Address string `json:"address"`
	Name    string `json:"name"`
	Amount  uint64 `json:"amount"`
}

type tx struct {
	ID      string   `json:"tx_id"`
	Inputs  []input  `json:"inputs"`
	Outputs []output `json:"outputs"`
	Total   uint64   `json:"total"`
}

type input struct {
	TxID        string `json:"txId"`
	OutputIndex int    `json:"outputIndex"`
	Signature   string `json:"signature"`
}

type output struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Amount  uint64 `json:"amount"`
}

type block struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"`
	PreviousHash string `json:"previousHash"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint   `json:"difficulty"`
	Transactions []tx   `json:"transactions"`
}

type chainReport struct {
	Valid  bool                 `json:"valid"`
	Reason string               `json:"reason"`
	Report database.ChainReport `json:"report"`
}
