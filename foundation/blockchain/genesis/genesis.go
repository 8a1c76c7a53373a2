// Package genesis maintains access to the genesis file which holds the
// parameters every node of the network must agree on.
package genesis

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// MaxDifficulty is the number of hex characters in a block hash. A higher
// difficulty can never be solved.
const MaxDifficulty = sha256.Size * 2

// Genesis represents the genesis file.
type Genesis struct {
	Date            time.Time `json:"date"`
	Difficulty      uint      `json:"difficulty"`        // Starting number of leading zeros for a block hash.
	MiningReward    uint64    `json:"mining_reward"`     // Value minted by the coinbase of every block.
	BlockTimeTarget int64     `json:"block_time_target"` // Target number of seconds between blocks.
	AdjustInterval  int       `json:"adjust_interval"`   // Number of blocks between difficulty adjustments.
}

// Default returns the parameters used when no genesis file exists.
func Default() Genesis {
	return Genesis{
		Date:            time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		Difficulty:      3,
		MiningReward:    10,
		BlockTimeTarget: 10,
		AdjustInterval:  5,
	}
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file yields the
// default parameters.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Genesis{}, err
	}

	genesis := Default()
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis %s: %w", path, err)
	}

	if err := genesis.Validate(); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}

// Validate checks the parameters can drive a chain.
func (g Genesis) Validate() error {
	if g.Difficulty < 1 {
		return errors.New("genesis difficulty must be at least 1")
	}
	if g.Difficulty > MaxDifficulty {
		return fmt.Errorf("genesis difficulty must be at most %d", MaxDifficulty)
	}
	if g.BlockTimeTarget < 1 {
		return errors.New("genesis block time target must be at least 1 second")
	}
	if g.AdjustInterval < 1 {
		return errors.New("genesis adjust interval must be at least 1 block")
	}
	return nil
}
