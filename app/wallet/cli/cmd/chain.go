package cmd

import (
	"fmt"
	"log"
	"net/http"

	"github.com/spf13/cobra"
)

var validateOnly bool

type block struct {
	Index        uint64 `json:"index"`
	Timestamp    int64  `json:"timestamp"`
	Hash         string `json:"hash"`
	Nonce        uint64 `json:"nonce"`
	Difficulty   uint   `json:"difficulty"`
	Transactions []any  `json:"transactions"`
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain held by the node",
	Run:   chainRun,
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.Flags().BoolVarP(&validateOnly, "validate", "v", false, "Only report whether the chain is valid.")
}

func chainRun(cmd *cobra.Command, args []string) {
	if validateOnly {
		var report struct {
			Valid  bool   `json:"valid"`
			Reason string `json:"reason"`
		}
		if err := call(http.MethodGet, "/v1/chain/validate", nil, &report); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("valid: %t (%s)\n", report.Valid, report.Reason)
		return
	}

	var blocks []block
	if err := call(http.MethodGet, "/v1/chain", nil, &blocks); err != nil {
		log.Fatal(err)
	}

	for _, b := range blocks {
		fmt.Printf("#%-4d %s  nonce:%-8d diff:%d txs:%d\n", b.Index, b.Hash, b.Nonce, b.Difficulty, len(b.Transactions))
	}
}
