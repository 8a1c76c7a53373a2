package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/storage/memory"
)

func TestInsertBlock(t *testing.T) {
	gen := database.NewGenesisBlock()

	block := database.NewBlock(1, []database.Tx{database.NewCoinbaseTx("miner", 10)}, gen.Hash())
	require.NoError(t, block.Mine(context.Background(), 1, nil))

	m := memory.New()
	require.NoError(t, m.InsertBlock(block))
	require.NoError(t, m.InsertBlock(gen))
	require.NoError(t, m.InsertBlock(block))

	blocks := m.Blocks()
	require.Len(t, blocks, 2)
	require.Equal(t, gen.Hash(), blocks[0].Hash)
	require.Equal(t, block.Hash(), blocks[1].Hash)

	got, err := blocks[1].Validate()
	require.NoError(t, err)
	require.Equal(t, block.Transactions()[0].ID(), got.Transactions()[0].ID())

	require.NoError(t, m.Close())
	require.True(t, m.Closed())
}

func TestUpsertMempool(t *testing.T) {
	coinbase := database.NewCoinbaseTx("alice", 10)
	tx := database.NewTx(
		[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0, Signature: "alice"}},
		[]database.TxOutput{{Amount: 10, Address: "bob"}},
	)

	m := memory.New()
	require.NoError(t, m.UpsertMempool([]database.Tx{coinbase, tx}))
	require.Len(t, m.Mempool(), 2)

	require.NoError(t, m.UpsertMempool([]database.Tx{tx}))
	pending := m.Mempool()
	require.Len(t, pending, 1)
	require.Equal(t, tx.ID(), pending[0].ID)

	require.NoError(t, m.UpsertMempool(nil))
	require.Empty(t, m.Mempool())
}
