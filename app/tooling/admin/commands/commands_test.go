package commands_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/toychain/utxonode/app/tooling/admin/commands"
	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/genesis"
	"github.com/toychain/utxonode/foundation/blockchain/storage/leveldb"
)

func newDatabase(t *testing.T) *database.Database {
	gen := genesis.Default()
	gen.Difficulty = 1
	gen.AdjustInterval = 100

	db := database.New(gen)

	block := database.NewBlock(1, []database.Tx{database.NewCoinbaseTx("alice", gen.MiningReward)}, db.LatestBlock().Hash())
	require.NoError(t, block.Mine(context.Background(), 1, nil))
	require.NoError(t, db.AppendBlock(block))

	return db
}

func TestBalances(t *testing.T) {
	db := newDatabase(t)

	var buf bytes.Buffer
	require.NoError(t, commands.Balances(&buf, "", db))
	require.Contains(t, buf.String(), "Address: alice  Balance: 10")
	require.Contains(t, buf.String(), "Total: 10")
}

func TestTransactions(t *testing.T) {
	db := newDatabase(t)

	var buf bytes.Buffer
	require.NoError(t, commands.Transactions(&buf, "alice", db))
	require.Equal(t, 1, strings.Count(buf.String(), "Block: 1"))

	buf.Reset()
	require.NoError(t, commands.Transactions(&buf, "bob", db))
	require.Empty(t, buf.String())
}

func TestValidate(t *testing.T) {
	db := newDatabase(t)

	var buf bytes.Buffer
	require.NoError(t, commands.Validate(&buf, db))
	require.Contains(t, buf.String(), "Valid: true")
}

func TestStore(t *testing.T) {
	db := newDatabase(t)
	dir := filepath.Join(t.TempDir(), "leveldb")

	var buf bytes.Buffer
	require.NoError(t, commands.Store(&buf, "leveldb", dir, db))

	ldb, err := leveldb.New(dir, nil)
	require.NoError(t, err)
	defer ldb.Close()

	blocks, err := ldb.Blocks()
	require.NoError(t, err)
	require.Len(t, blocks, 2)

	require.Error(t, commands.Store(&buf, "redis", dir, db))
}
