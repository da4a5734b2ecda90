package genesis_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
)

func Test_Load(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "genesis.json")
	if err := os.WriteFile(path, []byte(`{"mining_reward": 75}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}

	g, err := genesis.Load(path)
	if err != nil {
		t.Fatalf("Should be able to load the genesis file: %v", err)
	}

	if g.MiningReward != 75 {
		t.Fatalf("Should read the mining reward from the file, got %d.", g.MiningReward)
	}

	if g.StartingBalance != genesis.DefaultStartingBalance || g.MineRate() != 13*time.Second {
		t.Fatalf("Should keep defaults for missing fields, got %+v.", g)
	}

	g, err = genesis.Load(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("Should default when the file does not exist: %v", err)
	}
	if g != genesis.Default() {
		t.Fatalf("Should get the default genesis, got %+v.", g)
	}

	if err := os.WriteFile(path, []byte(`{"mine_rate_ms": 0}`), 0600); err != nil {
		t.Fatalf("Should be able to write the genesis file: %v", err)
	}
	if _, err := genesis.Load(path); err == nil {
		t.Fatalf("Should reject a zero mine rate.")
	}
}
