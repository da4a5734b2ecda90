package commands

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"go.uber.org/zap"
)

// Balances prints the balance of each account key given after replaying
// the chain.
func Balances(args []string, gen genesis.Genesis, log *zap.SugaredLogger) error {
	ldg, err := replay(args[2], gen, log)
	if err != nil {
		return err
	}

	for _, key := range args[3:] {
		key, err := database.ToAccountKey(key)
		if err != nil {
			return err
		}

		account, exists, err := ldg.GetAccount(key)
		if err != nil {
			return err
		}
		if !exists {
			fmt.Printf("Account: %s  NOT FOUND\n", key)
			continue
		}

		fmt.Printf("Account: %s  Balance: %d  Contract: %t\n", key, account.Balance, account.IsContract())
	}

	return nil
}
