package commands

import (
	"fmt"
	"io"

	"github.com/toychain/utxonode/foundation/blockchain/database"
	"github.com/toychain/utxonode/foundation/blockchain/storage/badgerdb"
	"github.com/toychain/utxonode/foundation/blockchain/storage/leveldb"
)

// blockStore is the part of the durable store the rebuild needs.
type blockStore interface {
	InsertBlock(block database.Block) error
	Close() error
}

// Store writes every block of the chain into the durable store of the
// specified kind.
func Store(w io.Writer, kind string, dir string, db *database.Database) error {
	if dir == "" {
		return fmt.Errorf("missing store directory")
	}

	var store blockStore
	switch kind {
	case "leveldb":
		ldb, err := leveldb.New(dir, nil)
		if err != nil {
			return err
		}
		store = ldb

	case "badger":
		bdb, err := badgerdb.New(dir)
		if err != nil {
			return err
		}
		store = bdb

	default:
		return fmt.Errorf("unknown store %q", kind)
	}
	defer store.Close()

	for _, block := range db.Blocks() {
		if err := store.InsertBlock(block); err != nil {
			return err
		}
	}

	fmt.Fprintf(w, "Stored %d blocks in %s\n", db.Len(), dir)

	return nil
}
