// Package badgerdb implements the ability to keep a durable copy of the
// chain in a Badger key value store.
package badgerdb

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Key prefixes for the two record kinds.
var (
	blockPrefix   = []byte("block/")
	mempoolPrefix = []byte("mempool/")
)

// Badger represents the storage implementation backed by Badger. This
// implements the state.Storage interface.
type Badger struct {
	db *badger.DB
}

// New opens the store in the given directory. An empty directory opens an
// in-memory store.
func New(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", dir, err)
	}

	return &Badger{db: db}, nil
}

// Close closes the store.
func (b *Badger) Close() error {
	return b.db.Close()
}

// InsertBlock stores the block keyed by its hash.
func (b *Badger) InsertBlock(block database.Block) error {
	data, err := json.Marshal(database.NewWireBlock(block))
	if err != nil {
		return fmt.Errorf("encoding block %s: %w", block.Hash(), err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(blockPrefix, block.Hash()), data)
	})
	if err != nil {
		return fmt.Errorf("writing block %s: %w", block.Hash(), err)
	}

	return nil
}

// UpsertMempool replaces the stored set of pending transactions in a single
// transaction.
func (b *Badger) UpsertMempool(pending []database.Tx) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = mempoolPrefix

		var stale [][]byte
		it := txn.NewIterator(opts)
		for it.Rewind(); it.Valid(); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}

		for _, tx := range pending {
			data, err := json.Marshal(database.NewWireTx(tx))
			if err != nil {
				return err
			}
			if err := txn.Set(key(mempoolPrefix, tx.ID()), data); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("writing mempool: %w", err)
	}

	return nil
}

// Block returns the stored block with the given hash.
func (b *Badger) Block(hash string) (database.WireBlock, error) {
	var wb database.WireBlock

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(blockPrefix, hash))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &wb)
		})
	})

	switch {
	case err == badger.ErrKeyNotFound:
		return database.WireBlock{}, fmt.Errorf("block %s: %w", hash, database.ErrNotFound)
	case err != nil:
		return database.WireBlock{}, fmt.Errorf("reading block %s: %w", hash, err)
	}

	return wb, nil
}

// Blocks returns every stored block ordered by index.
func (b *Badger) Blocks() ([]database.WireBlock, error) {
	var blocks []database.WireBlock

	err := b.db.View(func(txn *badger.Txn) error {
		return scan(txn, blockPrefix, func(val []byte) error {
			var wb database.WireBlock
			if err := json.Unmarshal(val, &wb); err != nil {
				return err
			}
			blocks = append(blocks, wb)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading blocks: %w", err)
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	return blocks, nil
}

// Mempool returns the stored pending transactions.
func (b *Badger) Mempool() ([]database.WireTx, error) {
	var pending []database.WireTx

	err := b.db.View(func(txn *badger.Txn) error {
		return scan(txn, mempoolPrefix, func(val []byte) error {
			var wtx database.WireTx
			if err := json.Unmarshal(val, &wtx); err != nil {
				return err
			}
			pending = append(pending, wtx)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading mempool: %w", err)
	}

	return pending, nil
}

// =============================================================================

func key(prefix []byte, id string) []byte {
	return append(append([]byte{}, prefix...), id...)
}

func scan(txn *badger.Txn, prefix []byte, fn func(val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}

	return nil
}
