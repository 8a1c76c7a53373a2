package state_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"testing"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/blockchain/mempool"
	"github.com/toychain/utxonode/foundation/blockchain/state"
	"github.com/toychain/utxonode/foundation/blockchain/storage/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	addrA = "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4"
	addrB = "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32"
	addrC = "0xbEE6ACE826eC3DE1B6349888B9151B92522F7F76"
)

const reward = 10

func newState(t *testing.T) *state.State {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.MiningReward = reward
	gen.AdjustInterval = 100

	return newStateWithGenesis(t, gen)
}

func newStateWithGenesis(t *testing.T, gen genesis.Genesis) *state.State {
	st, err := state.New(state.Config{
		Host:    "localhost:9080",
		Genesis: gen,
		EvHandler: func(v string, args ...any) {
			t.Logf(v, args...)
		},
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state : %v", failed, err)
	}
	t.Cleanup(func() { st.Shutdown() })

	return st
}

func mine(t *testing.T, st *state.State, miner string) database.Block {
	block, err := st.MineNewBlock(context.Background(), miner, nil)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block : %v", failed, err)
	}

	return block
}

// =============================================================================

func Test_FreshLedger(t *testing.T) {
	t.Log("Given the need to start a new ledger.")
	{
		t.Logf("\tTest 0:\tWhen no block has been mined.")
		{
			st := newState(t)

			chain := st.RetrieveChain()
			if len(chain) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould have exactly one block : got %d", failed, len(chain))
			}
			t.Logf("\t%s\tTest 0:\tShould have exactly one block.", success)

			gb := chain[0]
			if gb.Index() != 0 || gb.PrevHash() != "0" || len(gb.Transactions()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould have the genesis block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould have the genesis block.", success)

			for _, addr := range []string{addrA, addrB, "anyone"} {
				if bal := st.QueryBalance(addr); bal != 0 {
					t.Fatalf("\t%s\tTest 0:\tShould have a zero balance for %s : got %d", failed, addr, bal)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould have zero balances.", success)
		}
	}
}

func Test_TransferAndMine(t *testing.T) {
	t.Log("Given the need to move value between addresses.")
	{
		st := newState(t)
		mine(t, st, addrA)

		t.Logf("\tTest 0:\tWhen A owns one output of 10 and sends 5 to B.")
		{
			tx, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 5})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to submit the transfer : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be able to submit the transfer.", success)

			if len(tx.Inputs()) != 1 || len(tx.Outputs()) != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould have one input and two outputs : got %d/%d", failed, len(tx.Inputs()), len(tx.Outputs()))
			}
			outs := tx.Outputs()
			if outs[0] != (database.TxOutput{Address: addrB, Amount: 5}) || outs[1] != (database.TxOutput{Address: addrA, Amount: 5}) {
				t.Fatalf("\t%s\tTest 0:\tShould pay B and return change to A : %+v", failed, outs)
			}
			t.Logf("\t%s\tTest 0:\tShould pay B and return change to A.", success)

			if pending := st.RetrieveMempool(); len(pending) != 1 || pending[0].ID() != tx.ID() {
				t.Fatalf("\t%s\tTest 0:\tShould place the transaction in the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould place the transaction in the mempool.", success)
		}

		t.Logf("\tTest 1:\tWhen A mines the pending transaction.")
		{
			block := mine(t, st, addrA)

			if len(block.Transactions()) != 2 || !block.Transactions()[0].IsCoinbase() {
				t.Fatalf("\t%s\tTest 1:\tShould have a coinbase followed by the transfer.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould have a coinbase followed by the transfer.", success)

			if st.QueryBalance(addrB) != 5 || st.QueryBalance(addrA) != 5+reward {
				t.Fatalf("\t%s\tTest 1:\tShould update balances : A=%d B=%d", failed, st.QueryBalance(addrA), st.QueryBalance(addrB))
			}
			t.Logf("\t%s\tTest 1:\tShould update balances.", success)

			if len(st.RetrieveMempool()) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould clear the mempool.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould clear the mempool.", success)

			if st.QueryTotalValue() != 2*reward {
				t.Fatalf("\t%s\tTest 1:\tShould conserve value : got %d, exp %d", failed, st.QueryTotalValue(), 2*reward)
			}
			t.Logf("\t%s\tTest 1:\tShould conserve value.", success)

			if !st.IsChainValid() {
				t.Fatalf("\t%s\tTest 1:\tShould have a valid chain : %s", failed, st.ValidateChain().Reason())
			}
			t.Logf("\t%s\tTest 1:\tShould have a valid chain.", success)
		}
	}
}

func Test_DoubleSpendGuard(t *testing.T) {
	t.Log("Given the need to prevent spending the same output twice.")
	{
		st := newState(t)
		mine(t, st, addrA)

		t.Logf("\tTest 0:\tWhen A submits two transfers of 8 from one output of 10.")
		{
			if _, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 8}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the first transfer : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the first transfer.", success)

			_, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrC, Amount: 8})
			if !errors.Is(err, database.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the second transfer : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the second transfer.", success)
		}

		t.Logf("\tTest 1:\tWhen the amount is not positive.")
		{
			for _, amount := range []int64{0, -5} {
				_, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: amount})
				if !errors.Is(err, database.ErrInvalidAmount) {
					t.Fatalf("\t%s\tTest 1:\tShould reject amount %d : %v", failed, amount, err)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould reject the amounts.", success)
		}
	}
}

func Test_Conservation(t *testing.T) {
	t.Log("Given the need to mint exactly the reward per block.")
	{
		st := newState(t)

		t.Logf("\tTest 0:\tWhen mining blocks with transfers in between.")
		{
			const blocks = 6
			for i := 0; i < blocks; i++ {
				if i > 0 {
					if _, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 3}); err != nil {
						t.Fatalf("\t%s\tTest 0:\tShould be able to submit a transfer : %v", failed, err)
					}
				}
				mine(t, st, addrA)

				if got, exp := st.QueryTotalValue(), uint64(i+1)*reward; got != exp {
					t.Fatalf("\t%s\tTest 0:\tShould hold %d after %d blocks : got %d", failed, exp, i+1, got)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould grow by the reward per block.", success)

			if st.QueryBalance(addrB) != 3*(blocks-1) {
				t.Fatalf("\t%s\tTest 0:\tShould credit B : got %d", failed, st.QueryBalance(addrB))
			}
			t.Logf("\t%s\tTest 0:\tShould credit B.", success)
		}
	}
}

func Test_DifficultyRaise(t *testing.T) {
	t.Log("Given the need to raise the difficulty when blocks come too fast.")
	{
		gen := genesis.Default()
		gen.Difficulty = 1
		gen.MiningReward = reward
		gen.AdjustInterval = 5
		gen.BlockTimeTarget = 10

		st := newStateWithGenesis(t, gen)

		t.Logf("\tTest 0:\tWhen the last 5 blocks were mined within seconds.")
		{
			for len(st.RetrieveChain()) < 10 {
				mine(t, st, addrA)
			}

			if d := st.RetrieveDifficulty(); d != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould still be at difficulty 1 : got %d", failed, d)
			}
			t.Logf("\t%s\tTest 0:\tShould still be at difficulty 1.", success)

			block := mine(t, st, addrA)
			if d := st.RetrieveDifficulty(); d != 2 || block.Difficulty() != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould raise the difficulty by exactly 1 : got %d", failed, d)
			}
			t.Logf("\t%s\tTest 0:\tShould raise the difficulty by exactly 1.", success)
		}
	}
}

func Test_ProposedBlock(t *testing.T) {
	t.Log("Given the need to accept blocks from peers.")
	{
		node1 := newState(t)
		node2 := newState(t)

		block := mine(t, node1, addrA)

		t.Logf("\tTest 0:\tWhen the block extends the head.")
		{
			if err := node2.ProcessProposedBlock(database.NewWireBlock(block)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block.", success)

			if node2.QueryBalance(addrA) != reward || node2.RetrieveLatestBlock().Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould apply the block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould apply the block.", success)
		}

		t.Logf("\tTest 1:\tWhen the same block is proposed again.")
		{
			err := node2.ProcessProposedBlock(database.NewWireBlock(block))
			if !errors.Is(err, database.ErrStaleBlock) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the block as stale : %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the block as stale.", success)
		}

		t.Logf("\tTest 2:\tWhen the proposed block was tampered with.")
		{
			next := mine(t, node1, addrA)
			wb := database.NewWireBlock(next)
			wb.Transactions[0].Outputs[0].Amount = 1000

			if err := node2.ProcessProposedBlock(wb); !errors.Is(err, database.ErrChainIntegrity) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the block : %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the block.", success)

			if len(node2.RetrieveChain()) != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the chain untouched.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould leave the chain untouched.", success)
		}
	}
}

func Test_NodeTransaction(t *testing.T) {
	t.Log("Given the need to accept transactions from peers.")
	{
		node1 := newState(t)
		node2 := newState(t)

		block := mine(t, node1, addrA)
		if err := node2.ProcessProposedBlock(database.NewWireBlock(block)); err != nil {
			t.Fatalf("\t%s\tShould accept the block : %v", failed, err)
		}
		coinbase := block.Transactions()[0]

		t.Logf("\tTest 0:\tWhen the transaction spends an unspent output.")
		{
			tx, err := node1.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 4, Signature: "abcd"})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould submit on node1 : %v", failed, err)
			}

			if err := node2.UpsertNodeTransaction(database.NewWireTx(tx)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the transaction.", success)

			if err := node2.UpsertNodeTransaction(database.NewWireTx(tx)); !errors.Is(err, mempool.ErrDuplicate) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the duplicate : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the duplicate.", success)
		}

		t.Logf("\tTest 1:\tWhen the transaction spends a reserved output.")
		{
			tx := database.NewTx(
				[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0}},
				[]database.TxOutput{{Address: addrC, Amount: reward}},
			)

			if err := node2.UpsertNodeTransaction(database.NewWireTx(tx)); !errors.Is(err, mempool.ErrReserved) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the transaction doesn't conserve value.")
		{
			tx := database.NewTx(
				[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0}},
				[]database.TxOutput{{Address: addrC, Amount: reward + 1}},
			)

			if err := node1.UpsertNodeTransaction(database.NewWireTx(tx)); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 2:\tShould reject the transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould reject the transaction.", success)
		}

		t.Logf("\tTest 3:\tWhen the transaction is a coinbase.")
		{
			tx := database.NewCoinbaseTx(addrC, reward)

			if err := node2.UpsertNodeTransaction(database.NewWireTx(tx)); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 3:\tShould reject the transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould reject the transaction.", success)
		}
	}
}

func Test_OutputOverflow(t *testing.T) {
	t.Log("Given the need to reject transactions whose outputs wrap around.")
	{
		st := newState(t)
		block := mine(t, st, addrA)
		coinbase := block.Transactions()[0]

		tx := database.NewTx(
			[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0}},
			[]database.TxOutput{{Address: addrB, Amount: math.MaxUint64}, {Address: addrA, Amount: reward + 1}},
		)

		t.Logf("\tTest 0:\tWhen a node submits the transaction.")
		{
			if err := st.UpsertNodeTransaction(database.NewWireTx(tx)); !errors.Is(err, database.ErrInvalidTransaction) {
				t.Fatalf("\t%s\tTest 0:\tShould reject the transaction : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould reject the transaction.", success)

			if n := len(st.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the mempool empty : pending %d", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the mempool empty.", success)
		}

		t.Logf("\tTest 1:\tWhen a node proposes a block carrying the transaction.")
		{
			head := st.RetrieveLatestBlock()
			bad := database.NewBlock(head.Index()+1, []database.Tx{database.NewCoinbaseTx(addrA, reward), tx}, head.Hash())
			if err := bad.Mine(context.Background(), st.RetrieveDifficulty(), nil); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to mine the block : %v", failed, err)
			}

			if err := st.ProcessProposedBlock(database.NewWireBlock(bad)); err == nil {
				t.Fatalf("\t%s\tTest 1:\tShould reject the block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the block.", success)

			mine(t, st, addrA)
			if got := st.QueryTotalValue(); got != 2*reward {
				t.Fatalf("\t%s\tTest 1:\tShould conserve value : got %d, exp %d", failed, got, 2*reward)
			}
			t.Logf("\t%s\tTest 1:\tShould conserve value.", success)

			if st.QueryBalance(addrB) != 0 || !st.IsChainValid() {
				t.Fatalf("\t%s\tTest 1:\tShould keep a valid chain without the transaction.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep a valid chain without the transaction.", success)
		}
	}
}

func Test_ConcurrentWriters(t *testing.T) {
	t.Log("Given the need to serialize every ledger mutation.")
	{
		const n = 20

		t.Logf("\tTest 0:\tWhen %d transfers race for a single output of 10.", n)
		{
			st := newState(t)
			mine(t, st, addrA)

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := 0; i < n; i++ {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 8})
					errs <- err
				}()
				go func() {
					defer wg.Done()
					st.QueryBalances()
					st.RetrieveChain()
					st.RetrieveMempool()
				}()
			}
			wg.Wait()
			close(errs)

			var accepted int
			for err := range errs {
				switch {
				case err == nil:
					accepted++
				case !errors.Is(err, database.ErrInsufficientFunds):
					t.Fatalf("\t%s\tTest 0:\tShould only fail with insufficient funds : %v", failed, err)
				}
			}
			if accepted != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould accept exactly one transfer : got %d", failed, accepted)
			}
			t.Logf("\t%s\tTest 0:\tShould accept exactly one transfer.", success)

			mine(t, st, addrA)
			if st.QueryBalance(addrB) != 8 || st.QueryTotalValue() != 2*reward || !st.IsChainValid() {
				t.Fatalf("\t%s\tTest 0:\tShould apply a single spend : B=%d total=%d", failed, st.QueryBalance(addrB), st.QueryTotalValue())
			}
			t.Logf("\t%s\tTest 0:\tShould apply a single spend.", success)
		}

		t.Logf("\tTest 1:\tWhen %d nodes send conflicting transactions and the same block.", n)
		{
			node1 := newState(t)
			node2 := newState(t)

			block := mine(t, node1, addrA)
			coinbase := block.Transactions()[0]

			var wg sync.WaitGroup
			blockErrs := make(chan error, n)
			txErrs := make(chan error, n)
			for i := 0; i < n; i++ {
				tx := database.NewTx(
					[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0}},
					[]database.TxOutput{{Address: fmt.Sprintf("addr%d", i), Amount: reward}},
				)

				wg.Add(2)
				go func() {
					defer wg.Done()
					blockErrs <- node2.ProcessProposedBlock(database.NewWireBlock(block))
				}()
				go func() {
					defer wg.Done()
					txErrs <- node2.UpsertNodeTransaction(database.NewWireTx(tx))
				}()
			}
			wg.Wait()
			close(blockErrs)
			close(txErrs)

			var appended int
			for err := range blockErrs {
				switch {
				case err == nil:
					appended++
				case !errors.Is(err, database.ErrStaleBlock):
					t.Fatalf("\t%s\tTest 1:\tShould only fail with a stale block : %v", failed, err)
				}
			}
			if appended != 1 || len(node2.RetrieveChain()) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould append the block exactly once : got %d", failed, appended)
			}
			t.Logf("\t%s\tTest 1:\tShould append the block exactly once.", success)

			var pooled int
			for err := range txErrs {
				if err == nil {
					pooled++
				}
			}
			if pooled > 1 || len(node2.RetrieveMempool()) > 1 {
				t.Fatalf("\t%s\tTest 1:\tShould reserve the output at most once : got %d", failed, pooled)
			}
			t.Logf("\t%s\tTest 1:\tShould reserve the output at most once.", success)

			if node2.QueryTotalValue() != reward || !node2.IsChainValid() {
				t.Fatalf("\t%s\tTest 1:\tShould keep a valid chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep a valid chain.", success)
		}

		t.Logf("\tTest 2:\tWhen two miners prepare blocks on the same head.")
		{
			st := newState(t)
			mine(t, st, addrA)

			var ready sync.WaitGroup
			ready.Add(2)
			hold := func() database.ProgressFunc {
				var once sync.Once
				return func(hash string, nonce uint64) {
					once.Do(ready.Done)
					ready.Wait()
				}
			}

			var wg sync.WaitGroup
			errs := make(chan error, 2)
			for _, miner := range []string{addrB, addrC} {
				wg.Add(1)
				onProgress := hold()
				go func(miner string) {
					defer wg.Done()
					_, err := st.MineNewBlock(context.Background(), miner, onProgress)
					errs <- err
				}(miner)
			}
			wg.Wait()
			close(errs)

			var committed, stale int
			for err := range errs {
				switch {
				case err == nil:
					committed++
				case errors.Is(err, database.ErrStaleBlock):
					stale++
				default:
					t.Fatalf("\t%s\tTest 2:\tShould only fail with a stale block : %v", failed, err)
				}
			}
			if committed != 1 || stale != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould commit one block and reject the other : committed %d stale %d", failed, committed, stale)
			}
			t.Logf("\t%s\tTest 2:\tShould commit one block and reject the other.", success)

			if len(st.RetrieveChain()) != 3 || st.QueryTotalValue() != 2*reward || !st.IsChainValid() {
				t.Fatalf("\t%s\tTest 2:\tShould keep a valid chain : len %d total %d", failed, len(st.RetrieveChain()), st.QueryTotalValue())
			}
			t.Logf("\t%s\tTest 2:\tShould keep a valid chain.", success)
		}
	}
}

func Test_EvictSpent(t *testing.T) {
	t.Log("Given the need to drop pending transactions spent by a peer block.")
	{
		node1 := newState(t)
		node2 := newState(t)

		block := mine(t, node1, addrA)
		if err := node2.ProcessProposedBlock(database.NewWireBlock(block)); err != nil {
			t.Fatalf("\t%s\tShould accept the block : %v", failed, err)
		}
		coinbase := block.Transactions()[0]

		t.Logf("\tTest 0:\tWhen a peer block spends the output of a pending transaction.")
		{
			if _, err := node1.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 8}); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould submit on node1 : %v", failed, err)
			}

			conflict := database.NewTx(
				[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0}},
				[]database.TxOutput{{Address: addrC, Amount: reward}},
			)
			if err := node2.UpsertNodeTransaction(database.NewWireTx(conflict)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the conflict on node2 : %v", failed, err)
			}

			next := mine(t, node1, addrA)
			if err := node2.ProcessProposedBlock(database.NewWireBlock(next)); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould accept the block : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould accept the block.", success)

			if n := len(node2.RetrieveMempool()); n != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould evict the conflicting transaction : pending %d", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould evict the conflicting transaction.", success)

			if node2.QueryBalance(addrC) != 0 || node2.QueryBalance(addrB) != 8 {
				t.Fatalf("\t%s\tTest 0:\tShould follow the block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould follow the block.", success)
		}
	}
}

func Test_SnapshotRestore(t *testing.T) {
	t.Log("Given the need to persist the chain as a snapshot.")
	{
		st := newState(t)
		mine(t, st, addrA)
		if _, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 6}); err != nil {
			t.Fatalf("\t%s\tShould submit a transfer : %v", failed, err)
		}
		mine(t, st, addrB)

		path := filepath.Join(t.TempDir(), "chain.snapshot")

		t.Logf("\tTest 0:\tWhen saving and loading the snapshot file.")
		{
			if err := st.SaveSnapshotFile(path); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould save the snapshot : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould save the snapshot.", success)

			restored := newState(t)
			if err := restored.LoadSnapshotFile(path); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould load the snapshot : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould load the snapshot.", success)

			exp, got := st.RetrieveChain(), restored.RetrieveChain()
			if len(exp) != len(got) || exp[len(exp)-1].Hash() != got[len(got)-1].Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould restore the same chain.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould restore the same chain.", success)

			for _, addr := range []string{addrA, addrB} {
				if st.QueryBalance(addr) != restored.QueryBalance(addr) {
					t.Fatalf("\t%s\tTest 0:\tShould restore the balance of %s.", failed, addr)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould restore the balances.", success)
		}

		t.Logf("\tTest 1:\tWhen the snapshot file doesn't exist.")
		{
			fresh := newState(t)
			if err := fresh.LoadSnapshotFile(filepath.Join(t.TempDir(), "missing")); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould start from genesis : %v", failed, err)
			}
			if len(fresh.RetrieveChain()) != 1 {
				t.Fatalf("\t%s\tTest 1:\tShould have only the genesis block.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould start from genesis.", success)
		}

		t.Logf("\tTest 2:\tWhen the snapshot is corrupt.")
		{
			if err := st.Restore([]byte("DIFFICULTY 1\nBLOCKS 2\n")); !errors.Is(err, database.ErrChainIntegrity) {
				t.Fatalf("\t%s\tTest 2:\tShould fail with an integrity error : %v", failed, err)
			}
			if len(st.RetrieveChain()) != 3 {
				t.Fatalf("\t%s\tTest 2:\tShould leave the running chain untouched.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould leave the running chain untouched.", success)
		}
	}
}

func Test_MineCancelled(t *testing.T) {
	t.Log("Given the need to cancel a mining operation.")
	{
		st := newState(t)

		t.Logf("\tTest 0:\tWhen the context is cancelled.")
		{
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := st.MineNewBlock(ctx, addrA, nil); !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 0:\tShould return the cancellation : %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould return the cancellation.", success)

			if len(st.RetrieveChain()) != 1 || st.QueryBalance(addrA) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould leave the chain untouched.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould leave the chain untouched.", success)
		}
	}
}

// failingStore rejects every write.
type failingStore struct{}

func (failingStore) InsertBlock(database.Block) error  { return errors.New("disk full") }
func (failingStore) UpsertMempool([]database.Tx) error { return errors.New("disk full") }
func (failingStore) Close() error                      { return nil }

func Test_Storage(t *testing.T) {
	t.Log("Given the need to keep a durable copy of the chain.")
	{
		gen := genesis.Default()
		gen.Difficulty = 1
		gen.MiningReward = reward
		gen.AdjustInterval = 100

		t.Logf("\tTest 0:\tWhen blocks are mined and transfers submitted.")
		{
			store := memory.New()

			st, err := state.New(state.Config{Host: "localhost:9080", Genesis: gen, Storage: store})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be able to construct the state : %v", failed, err)
			}

			if len(store.Blocks()) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould store the genesis block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the genesis block.", success)

			block := mine(t, st, addrA)
			tx, err := st.SubmitTransfer(state.Transfer{From: addrA, To: addrB, Amount: 3})
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould submit a transfer : %v", failed, err)
			}

			blocks := store.Blocks()
			if len(blocks) != 2 || blocks[1].Hash != block.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould store the mined block.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the mined block.", success)

			pending := store.Mempool()
			if len(pending) != 1 || pending[0].ID != tx.ID() {
				t.Fatalf("\t%s\tTest 0:\tShould store the pending transfer.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould store the pending transfer.", success)

			mine(t, st, addrB)
			if len(store.Blocks()) != 3 || len(store.Mempool()) != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould clear the stored mempool after mining.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould clear the stored mempool after mining.", success)

			st.Shutdown()
			if !store.Closed() {
				t.Fatalf("\t%s\tTest 0:\tShould close the store on shutdown.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould close the store on shutdown.", success)
		}

		t.Logf("\tTest 1:\tWhen the store fails.")
		{
			st, err := state.New(state.Config{Host: "localhost:9080", Genesis: gen, Storage: failingStore{}})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the state : %v", failed, err)
			}
			defer st.Shutdown()

			mine(t, st, addrA)
			if len(st.RetrieveChain()) != 2 {
				t.Fatalf("\t%s\tTest 1:\tShould commit the block regardless.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould commit the block regardless.", success)
		}
	}
}
