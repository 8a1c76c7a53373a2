package nameservice_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/toychain/utxonode/foundation/nameservice"
)

func Test_Lookup(t *testing.T) {
	dir := t.TempDir()

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should generate a key : %v", err)
	}
	if err := crypto.SaveECDSA(filepath.Join(dir, "kennedy.ecdsa"), key); err != nil {
		t.Fatalf("Should save the key : %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	ns, err := nameservice.New(dir)
	if err != nil {
		t.Fatalf("Should build the name service : %v", err)
	}

	if got := ns.Lookup(address); got != "kennedy" {
		t.Fatalf("Should resolve the address : got %q", got)
	}
	if got := ns.Lookup("0x0"); got != "0x0" {
		t.Fatalf("Should return unknown addresses unchanged : got %q", got)
	}

	empty, err := nameservice.New(filepath.Join(dir, "missing"))
	if err != nil || len(empty.Copy()) != 0 {
		t.Fatalf("Should build an empty name service for a missing folder : %v", err)
	}
}
