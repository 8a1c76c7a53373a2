package mempool_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/mempool"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func spend(prevID string, index int, to string, amount uint64) database.Tx {
	return database.NewTx(
		[]database.TxInput{{TxID: prevID, OutputIndex: index, Signature: "sig"}},
		[]database.TxOutput{{Address: to, Amount: amount}},
	)
}

func TestCRUD(t *testing.T) {
	prev1 := strings.Repeat("1", 64)
	prev2 := strings.Repeat("2", 64)

	type table struct {
		name string
		txs  []database.Tx
	}

	tt := []table{
		{
			name: "basic",
			txs: []database.Tx{
				spend(prev1, 0, "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32", 10),
				spend(prev1, 1, "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4", 50),
				spend(prev2, 0, "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76", 100),
				spend(prev2, 1, "0x6Fe6CF3c8fF57c58d24BfC869668F48BCbDb3BD9", 10),
			},
		},
	}

	t.Log("Given the need to validate mempool api.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a set of transaction.", testID)
			{
				f := func(t *testing.T) {
					mp := mempool.New()

					for _, tx := range tst.txs {
						if _, err := mp.Add(tx); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to add new transaction : %v", failed, testID, err)
						}
						t.Logf("\t%s\tTest %d:\tShould be able to add new transaction: %s", success, testID, tx)
					}

					for i, tx := range mp.Copy() {
						if tx.ID() != tst.txs[i].ID() {
							t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, tx.ID())
							t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.txs[i].ID())
							t.Fatalf("\t%s\tTest %d:\tShould get back the insertion order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould get back the insertion order.", success, testID)

					if best := mp.PickBest(2); len(best) != 2 || best[1].ID() != tst.txs[1].ID() {
						t.Fatalf("\t%s\tTest %d:\tShould pick from the front of the pool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould pick from the front of the pool.", success, testID)

					if !mp.IsReserved(database.OutPoint{TxID: prev1, Index: 1}) {
						t.Fatalf("\t%s\tTest %d:\tShould reserve spent outputs.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould reserve spent outputs.", success, testID)

					if n := mp.RemoveIncluded(tst.txs[1:2]); n != 1 || mp.Count() != 3 {
						t.Fatalf("\t%s\tTest %d:\tShould be able to remove a transaction.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to remove a transaction.", success, testID)

					if mp.IsReserved(database.OutPoint{TxID: prev1, Index: 1}) || mp.Has(tst.txs[1].ID()) {
						t.Fatalf("\t%s\tTest %d:\tShould release the reservation.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould release the reservation.", success, testID)

					mp.Truncate()
					if mp.Count() != 0 || mp.IsReserved(database.OutPoint{TxID: prev1, Index: 0}) {
						t.Fatalf("\t%s\tTest %d:\tShould be able to truncate mempool.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould be able to truncate mempool.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestDoubleSpend(t *testing.T) {
	prev := strings.Repeat("a", 64)

	t.Log("Given the need to keep conflicting transactions out of the pool.")
	{
		mp := mempool.New()

		t.Logf("\tTest 0:\tWhen two transactions spend the same output.")
		{
			if _, err := mp.Add(spend(prev, 0, "B", 8)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the first transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the first transaction.", success)

			if _, err := mp.Add(spend(prev, 0, "C", 8)); !errors.Is(err, mempool.ErrReserved) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the second transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the second transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen the same transaction is added twice.")
		{
			if _, err := mp.Add(spend(prev, 0, "B", 8)); !errors.Is(err, mempool.ErrDuplicate) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the duplicate : %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the duplicate.", success)
		}

		t.Logf("\tTest 2:\tWhen the spent output disappears from the utxo set.")
		{
			evicted := mp.EvictSpent(func(op database.OutPoint) bool { return op.TxID != prev })
			if len(evicted) != 1 || mp.Count() != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould evict the transaction : evicted %d", failed, len(evicted))
			}
			t.Logf("\t%s\tTest 2:\tShould evict the transaction.", success)

			if _, err := mp.Add(spend(prev, 0, "C", 8)); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould free the output again : %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould free the output again.", success)
		}
	}
}
