// Package leveldb implements the ability to keep a durable copy of the chain
// in a LevelDB database.
package leveldb

import (
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	ldbErrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/toychain/utxonode/foundation/blockchain/database"
)

// Key prefixes for the two record kinds.
var (
	blockPrefix   = []byte("block/")
	mempoolPrefix = []byte("mempool/")
)

// LevelDB represents the storage implementation backed by goleveldb. This
// implements the state.Storage interface.
type LevelDB struct {
	ldb *leveldb.DB
}

// New opens the database at the given path, creating it if needed. A
// corrupted database is recovered before use.
func New(path string, evHandler func(v string, args ...any)) (*LevelDB, error) {
	ldb, err := leveldb.OpenFile(path, nil)

	if _, corrupted := err.(*ldbErrors.ErrCorrupted); corrupted {
		if evHandler != nil {
			evHandler("leveldb: corruption detected: path[%s]: %s", path, err)
		}
		ldb, err = leveldb.RecoverFile(path, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "recovering leveldb at %s", path)
		}
	}

	if err != nil {
		return nil, errors.Wrapf(err, "opening leveldb at %s", path)
	}

	return &LevelDB{ldb: ldb}, nil
}

// Close closes the database.
func (db *LevelDB) Close() error {
	return db.ldb.Close()
}

// InsertBlock stores the block keyed by its hash. It overwrites any previous
// value for that hash.
func (db *LevelDB) InsertBlock(block database.Block) error {
	data, err := json.Marshal(database.NewWireBlock(block))
	if err != nil {
		return errors.Wrapf(err, "encoding block %s", block.Hash())
	}

	key := append(append([]byte{}, blockPrefix...), block.Hash()...)
	if err := db.ldb.Put(key, data, nil); err != nil {
		return errors.Wrapf(err, "writing block %s", block.Hash())
	}

	return nil
}

// UpsertMempool replaces the stored set of pending transactions in a single
// batch.
func (db *LevelDB) UpsertMempool(pending []database.Tx) error {
	var batch leveldb.Batch

	iter := db.ldb.NewIterator(util.BytesPrefix(mempoolPrefix), nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return errors.Wrap(err, "reading mempool keys")
	}

	for _, tx := range pending {
		data, err := json.Marshal(database.NewWireTx(tx))
		if err != nil {
			return errors.Wrapf(err, "encoding tx %s", tx.ID())
		}
		batch.Put(append(append([]byte{}, mempoolPrefix...), tx.ID()...), data)
	}

	if err := db.ldb.Write(&batch, nil); err != nil {
		return errors.Wrap(err, "writing mempool")
	}

	return nil
}

// Block returns the stored block with the given hash.
func (db *LevelDB) Block(hash string) (database.WireBlock, error) {
	data, err := db.ldb.Get(append(append([]byte{}, blockPrefix...), hash...), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return database.WireBlock{}, errors.Wrapf(database.ErrNotFound, "block %s", hash)
		}
		return database.WireBlock{}, errors.Wrapf(err, "reading block %s", hash)
	}

	var wb database.WireBlock
	if err := json.Unmarshal(data, &wb); err != nil {
		return database.WireBlock{}, errors.Wrapf(err, "decoding block %s", hash)
	}

	return wb, nil
}

// Blocks returns every stored block ordered by index.
func (db *LevelDB) Blocks() ([]database.WireBlock, error) {
	var blocks []database.WireBlock

	iter := db.ldb.NewIterator(util.BytesPrefix(blockPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		var wb database.WireBlock
		if err := json.Unmarshal(iter.Value(), &wb); err != nil {
			return nil, errors.Wrapf(err, "decoding key %s", iter.Key())
		}
		blocks = append(blocks, wb)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating blocks")
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Index < blocks[j].Index
	})

	return blocks, nil
}

// Mempool returns the stored pending transactions.
func (db *LevelDB) Mempool() ([]database.WireTx, error) {
	var pending []database.WireTx

	iter := db.ldb.NewIterator(util.BytesPrefix(mempoolPrefix), nil)
	defer iter.Release()

	for iter.Next() {
		var wtx database.WireTx
		if err := json.Unmarshal(iter.Value(), &wtx); err != nil {
			return nil, errors.Wrapf(err, "decoding key %s", iter.Key())
		}
		pending = append(pending, wtx)
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrap(err, "iterating mempool")
	}

	return pending, nil
}
