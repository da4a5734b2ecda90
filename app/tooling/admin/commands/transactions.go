package commands

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"go.uber.org/zap"
)

// Transactions prints the transactions of every block, optionally limited
// to the ones touching the account key given.
func Transactions(args []string, gen genesis.Genesis, log *zap.SugaredLogger) error {
	ldg, err := replay(args[2], gen, log)
	if err != nil {
		return err
	}

	var key string
	if len(args) > 3 {
		key = args[3]
	}

	for _, block := range ldg.Chain() {
		for _, tx := range block.TransactionSeries {
			if key != "" && tx.From != key && tx.To != key {
				continue
			}
			fmt.Printf("Block: %d  %s\n", block.Header.Number, tx)
		}
	}

	return nil
}
