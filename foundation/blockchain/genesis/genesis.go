// Package genesis maintains access to the protocol parameters shared by
// every node on the chain.
package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

// Default protocol parameters.
const (
	DefaultMineRate        = 13 * time.Second
	DefaultMiningReward    = 50
	DefaultStartingBalance = 1000
)

// Genesis represents the genesis file.
type Genesis struct {
	MineRateMS      uint64 `json:"mine_rate_ms"`     // Target time between blocks, drives the difficulty adjustment.
	MiningReward    uint64 `json:"mining_reward"`    // Reward paid to the beneficiary of every mined block.
	StartingBalance uint64 `json:"starting_balance"` // Balance given to every newly created account.
}

// Default returns the genesis values used when no file is provided.
func Default() Genesis {
	return Genesis{
		MineRateMS:      uint64(DefaultMineRate.Milliseconds()),
		MiningReward:    DefaultMiningReward,
		StartingBalance: DefaultStartingBalance,
	}
}

// MineRate returns the target time between blocks.
func (g Genesis) MineRate() time.Duration {
	return time.Duration(g.MineRateMS) * time.Millisecond
}

// =============================================================================

// Load opens and consumes the genesis file. A missing file yields the
// default values. Fields not present in the file keep their default.
func Load(path string) (Genesis, error) {
	genesis := Default()
	if path == "" {
		return genesis, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return genesis, nil
		}
		return Genesis{}, err
	}

	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, fmt.Errorf("decoding genesis file %s: %w", path, err)
	}

	if genesis.MineRateMS == 0 {
		return Genesis{}, errors.New("mine rate must be greater than zero")
	}

	return genesis, nil
}
