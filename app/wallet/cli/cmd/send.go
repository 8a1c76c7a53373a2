package cmd

import (
	"crypto/ecdsa"
	"fmt"
	"log"
	"net/http"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"
)

var (
	to     string
	amount int64
)

type transfer struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	Signature string `json:"signature"`
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send value to another address",
	Run: func(cmd *cobra.Command, args []string) {
		privateKey, address, err := loadAccount()
		if err != nil {
			log.Fatal(err)
		}

		if err := sendWithDetails(privateKey, address); err != nil {
			log.Fatal(err)
		}
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Address of the recipient.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Value to send.")
}

func sendWithDetails(privateKey *ecdsa.PrivateKey, from string) error {
	sig, err := signTransfer(privateKey, from, to, amount)
	if err != nil {
		return err
	}

	tr := transfer{
		From:      from,
		To:        to,
		Amount:    amount,
		Signature: sig,
	}

	var tx any
	if err := call(http.MethodPost, "/v1/tx/transfer", tr, &tx); err != nil {
		return err
	}

	return printJSON(tx)
}

// signTransfer produces the signature copied onto every input of the
// transaction. The node carries it without checking it.
func signTransfer(privateKey *ecdsa.PrivateKey, from string, to string, amount int64) (string, error) {
	digest := crypto.Keccak256([]byte(fmt.Sprintf("%s|%s|%d", from, to, amount)))

	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(sig), nil
}
