package badgerdb_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/storage/badgerdb"
)

func TestInMemory(t *testing.T) {
	db, err := badgerdb.New("")
	require.NoError(t, err)
	defer db.Close()

	gen := database.NewGenesisBlock()
	block := database.NewBlock(1, []database.Tx{database.NewCoinbaseTx("miner", 10)}, gen.Hash())
	require.NoError(t, block.Mine(context.Background(), 1, nil))

	require.NoError(t, db.InsertBlock(block))
	require.NoError(t, db.InsertBlock(gen))
	require.NoError(t, db.InsertBlock(block))

	blocks, err := db.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)
	require.Equal(t, gen.Hash(), blocks[0].Hash)

	wb, err := db.Block(block.Hash())
	require.NoError(t, err)
	require.Equal(t, block.Nonce(), wb.Nonce)

	_, err = db.Block("missing")
	require.True(t, errors.Is(err, database.ErrNotFound))

	coinbase := block.Transactions()[0]
	tx := database.NewTx(
		[]database.TxInput{{TxID: coinbase.ID(), OutputIndex: 0, Signature: "miner"}},
		[]database.TxOutput{{Amount: 4, Address: "bob"}, {Amount: 6, Address: "miner"}},
	)

	require.NoError(t, db.UpsertMempool([]database.Tx{tx}))
	pending, err := db.Mempool()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, tx.ID(), pending[0].ID)

	require.NoError(t, db.UpsertMempool(nil))
	pending, err = db.Mempool()
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestReopen(t *testing.T) {
	dir := t.TempDir()

	gen := database.NewGenesisBlock()

	db, err := badgerdb.New(dir)
	require.NoError(t, err)
	require.NoError(t, db.InsertBlock(gen))
	require.NoError(t, db.Close())

	db, err = badgerdb.New(dir)
	require.NoError(t, err)
	defer db.Close()

	blocks, err := db.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.Equal(t, gen.Hash(), blocks[0].Hash)
}
