package main

import "github.com/toychain/utxonode/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
