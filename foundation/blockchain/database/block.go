package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// GenesisPrevHash is the previous hash recorded by the genesis block.
const GenesisPrevHash = "0"

// progressInterval is the number of nonce attempts between progress reports
// and cancellation checks.
const progressInterval = 5000

// ProgressFunc receives a sample of the mining search.
type ProgressFunc func(hash string, nonce uint64)

// =============================================================================

// Block represents a group of transactions batched together. Outside this
// package a block can only be produced by mining or by validating a wire
// record, so the stored hash always matches the content.
type Block struct {
	index      uint64
	timestamp  int64
	prevHash   string
	hash       string
	nonce      uint64
	difficulty uint
	trans      []Tx
}

// NewBlock constructs an unmined block stamped with the current time. The
// hash is computed for nonce 0.
func NewBlock(index uint64, trans []Tx, prevHash string) Block {
	b := Block{
		index:     index,
		timestamp: time.Now().UTC().Unix(),
		prevHash:  prevHash,
		trans:     append([]Tx(nil), trans...),
	}
	b.hash = b.calculateHash()

	return b
}

// NewGenesisBlock constructs the fixed first block of every chain.
func NewGenesisBlock() Block {
	b := Block{
		prevHash: GenesisPrevHash,
	}
	b.hash = b.calculateHash()

	return b
}

// Index returns the position of the block in the chain.
func (b Block) Index() uint64 { return b.index }

// Timestamp returns the unix time the block was created.
func (b Block) Timestamp() int64 { return b.timestamp }

// PrevHash returns the hash of the parent block.
func (b Block) PrevHash() string { return b.prevHash }

// Hash returns the stored hash of the block.
func (b Block) Hash() string { return b.hash }

// Nonce returns the value that solved the proof of work.
func (b Block) Nonce() uint64 { return b.nonce }

// Difficulty returns the number of leading zeros the hash was mined against.
func (b Block) Difficulty() uint { return b.difficulty }

// Transactions returns a copy of the block transactions.
func (b Block) Transactions() []Tx {
	return append([]Tx(nil), b.trans...)
}

// Mine searches for a nonce that gives the block a hash with difficulty
// leading zero hex characters. A difficulty of 0 is solved by the current
// nonce. The context is checked between batches of attempts so a search can
// be cancelled. Pointer semantics are used since the nonce is discovered.
func (b *Block) Mine(ctx context.Context, difficulty uint, onProgress ProgressFunc) error {
	b.difficulty = difficulty

	var attempts uint64
	for !isHashSolved(difficulty, b.hash) {
		b.nonce++
		b.hash = b.calculateHash()

		attempts++
		if attempts%progressInterval == 0 {
			if onProgress != nil {
				onProgress(b.hash, b.nonce)
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}

	if onProgress != nil {
		onProgress(b.hash, b.nonce)
	}

	return nil
}

// IsHashValid recomputes the hash from the stored fields and compares it to
// the stored hash.
func (b Block) IsHashValid() bool {
	return b.hash == b.calculateHash()
}

// IsSolved reports whether the stored hash satisfies the difficulty.
func (b Block) IsSolved(difficulty uint) bool {
	return isHashSolved(difficulty, b.hash)
}

// MarshalJSON renders the block in its wire form.
func (b Block) MarshalJSON() ([]byte, error) {
	return json.Marshal(NewWireBlock(b))
}

// calculateHash hashes the index, timestamp, previous hash, nonce and the
// serialized transactions. The difficulty is not part of the hash.
func (b Block) calculateHash() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d|%d|%s|%d|", b.index, b.timestamp, b.prevHash, b.nonce)
	for _, tx := range b.trans {
		sb.WriteString(tx.serialize())
	}

	hash := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(hash[:])
}

// =============================================================================

// isHashSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of 0's.
func isHashSolved(difficulty uint, hash string) bool {
	if len(hash) != sha256.Size*2 || difficulty > uint(len(hash)) {
		return false
	}

	return strings.Count(hash[:difficulty], "0") == int(difficulty)
}
