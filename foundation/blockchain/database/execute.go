package database

import (
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/vm"
)

// RunTransaction applies a validated transaction to the world state. Callers
// must validate the transaction against the same world state first.
func RunTransaction(tx SignedTx, db *Database) error {
	switch tx.Type() {
	case TxCreateAccount:
		return runCreateAccount(tx, db)
	case TxTransact:
		return runTransact(tx, db)
	case TxMiningReward:
		return runMiningReward(tx, db)
	}

	return fmt.Errorf("%w %q for transaction id %s", ErrTxType, tx.Type(), tx.ID)
}

// runCreateAccount stores the account under its code hash when it holds
// code and under its address otherwise.
func runCreateAccount(tx SignedTx, db *Database) error {
	account, err := tx.Account()
	if err != nil {
		return err
	}

	return db.PutAccount(account.Key(), account)
}

// runTransact moves the value between the accounts. The sender pays the
// value plus the gas used. The gas used is credited to the receiver.
func runTransact(tx SignedTx, db *Database) error {
	from, _, err := db.GetAccount(tx.From)
	if err != nil {
		return err
	}

	to, _, err := db.GetAccount(tx.To)
	if err != nil {
		return err
	}

	var gasUsed uint64
	if to.IsContract() {
		res, err := vm.New(db.StorageTrie(tx.To)).Run(to.Code)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrContractFault, err)
		}
		gasUsed = res.GasUsed
	}

	refund := tx.GasLimit - gasUsed

	from.Balance -= tx.GasLimit + tx.Value
	from.Balance += refund
	to.Balance += gasUsed + tx.Value

	if err := db.PutAccount(tx.From, from); err != nil {
		return err
	}

	return db.PutAccount(tx.To, to)
}

// runMiningReward credits the beneficiary with the reward.
func runMiningReward(tx SignedTx, db *Database) error {
	account, _, err := db.GetAccount(tx.To)
	if err != nil {
		return err
	}

	account.Balance += tx.Value

	return db.PutAccount(tx.To, account)
}
