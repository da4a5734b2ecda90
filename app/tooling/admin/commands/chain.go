// Package commands contains the functionality for the set of commands
// currently supported by the admin tool.
package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/ledger"
	"go.uber.org/zap"
)

// Verify pulls the chain from the node and replays every block from genesis.
func Verify(args []string, gen genesis.Genesis, log *zap.SugaredLogger) error {
	ldg, err := replay(args[2], gen, log)
	if err != nil {
		return err
	}

	latest := ldg.LatestBlock()
	fmt.Printf("Chain is valid: blocks[%d] head[%s] stateRoot[%s]\n", ldg.Length(), latest.Hash(), ldg.StateRoot())

	return nil
}

// replay loads the chain of the node at the host into a fresh ledger.
func replay(host string, gen genesis.Genesis, log *zap.SugaredLogger) (*ledger.Ledger, error) {
	chain, err := fetchChain(host)
	if err != nil {
		return nil, err
	}

	ev := func(v string, args ...any) {
		log.Debugw(fmt.Sprintf(v, args...))
	}

	ldg := ledger.New(gen, ev)
	if len(chain) == 1 && chain[0].IsGenesis() {
		return ldg, nil
	}

	if err := ldg.ReplaceChain(chain, nil); err != nil {
		return nil, err
	}

	return ldg, nil
}

func fetchChain(host string) ([]database.Block, error) {
	client := http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(fmt.Sprintf("http://%s/v1/node/chain", host))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching chain: %s", resp.Status)
	}

	var chain []database.Block
	if err := json.NewDecoder(resp.Body).Decode(&chain); err != nil {
		return nil, fmt.Errorf("decoding chain: %w", err)
	}

	return chain, nil
}
