package database

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/vm"
)

// Set of errors a transaction can be rejected with.
var (
	ErrTxType            = errors.New("incorrect transaction type")
	ErrTxSignature       = errors.New("signature does not match with sender address")
	ErrAccountSchema     = errors.New("required account data fields do not match")
	ErrAccountInvalid    = errors.New("invalid account data")
	ErrAccountExists     = errors.New("account already exists")
	ErrAccountNotFound   = errors.New("account does not exist")
	ErrAccountKey        = errors.New("invalid account key format")
	ErrSelfTransfer      = errors.New("sending money to yourself")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrBalanceOverflow   = errors.New("balance overflow")
	ErrInsufficientGas   = errors.New("insufficient gas")
	ErrContractFault     = errors.New("contract execution failed")
	ErrMiningReward      = errors.New("invalid mining reward")
)

// =============================================================================

// Validate performs the checks that don't need the world state. This is what
// is checked before a transaction is accepted into the pending pool.
func (tx SignedTx) Validate() error {
	if tx.ID == "" {
		return errors.New("transaction id is required")
	}

	switch tx.Type() {
	case TxCreateAccount:
		_, err := checkAccountData(tx)
		return err

	case TxTransact:
		if !signature.IsAddress(tx.From) {
			return fmt.Errorf("%w: from account is not properly formatted for transaction id %s", ErrTxSignature, tx.ID)
		}
		if _, err := ToAccountKey(tx.To); err != nil {
			return fmt.Errorf("to account is not properly formatted for transaction id %s", tx.ID)
		}
		if !tx.VerifySignature() {
			return fmt.Errorf("%w for transaction id %s", ErrTxSignature, tx.ID)
		}
		return nil

	case TxMiningReward:
		if _, err := ToAccountKey(tx.To); err != nil {
			return fmt.Errorf("%w: beneficiary is not properly formatted for transaction id %s", ErrMiningReward, tx.ID)
		}
		return nil
	}

	return fmt.Errorf("%w %q for transaction id %s", ErrTxType, tx.Type(), tx.ID)
}

// ValidateTransaction validates the transaction against the world state using
// the rules for its kind. The world state is not changed.
func ValidateTransaction(tx SignedTx, db *Database, reward uint64) error {
	switch tx.Type() {
	case TxCreateAccount:
		return ValidateCreateAccount(tx, db)
	case TxTransact:
		return ValidateTransact(tx, db)
	case TxMiningReward:
		return ValidateMiningReward(tx, db, reward)
	}

	return fmt.Errorf("%w %q for transaction id %s", ErrTxType, tx.Type(), tx.ID)
}

// ValidateCreateAccount checks the payload carries exactly the fields of an
// account and that no account already exists under its key.
func ValidateCreateAccount(tx SignedTx, db *Database) error {
	if tx.Type() != TxCreateAccount {
		return fmt.Errorf("%w for transaction id %s", ErrTxType, tx.ID)
	}

	account, err := checkAccountData(tx)
	if err != nil {
		return err
	}

	_, exists, err := db.GetAccount(account.Key())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("%w: key %s for transaction id %s", ErrAccountExists, account.Key(), tx.ID)
	}

	return nil
}

// ValidateTransact checks the signature, both accounts and the sender's
// funds. When the receiver is a contract its code is executed against a copy
// of its storage to measure the gas it uses.
func ValidateTransact(tx SignedTx, db *Database) error {
	if tx.Type() != TxTransact {
		return fmt.Errorf("%w for transaction id %s", ErrTxType, tx.ID)
	}

	if !tx.VerifySignature() {
		return fmt.Errorf("%w for transaction id %s", ErrTxSignature, tx.ID)
	}

	if tx.From == tx.To {
		return fmt.Errorf("%w, from %s, to %s", ErrSelfTransfer, tx.From, tx.To)
	}

	from, exists, err := db.GetAccount(tx.From)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: from account %s", ErrAccountNotFound, tx.From)
	}

	to, exists, err := db.GetAccount(tx.To)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: to account %s", ErrAccountNotFound, tx.To)
	}

	required := tx.Value + tx.GasLimit
	if required < tx.Value {
		return fmt.Errorf("%w: value and gas limit overflow for transaction id %s", ErrInsufficientFunds, tx.ID)
	}

	if from.Balance < required {
		return fmt.Errorf("%w: transaction value and gas limit %d exceeds balance %d", ErrInsufficientFunds, required, from.Balance)
	}

	// The receiver is credited at most the value plus the whole gas limit.
	if to.Balance+required < to.Balance {
		return fmt.Errorf("%w: crediting %d to account %s", ErrBalanceOverflow, required, tx.To)
	}

	if to.IsContract() {
		res, err := vm.New(db.storageCopy(tx.To)).Run(to.Code)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrContractFault, err)
		}

		if res.GasUsed > tx.GasLimit {
			return fmt.Errorf("%w: transaction needs more gas, provided %d, needs %d", ErrInsufficientGas, tx.GasLimit, res.GasUsed)
		}
	}

	return nil
}

// ValidateMiningReward checks the reward pays exactly the protocol reward to
// an existing account.
func ValidateMiningReward(tx SignedTx, db *Database, reward uint64) error {
	if tx.Type() != TxMiningReward {
		return fmt.Errorf("%w for transaction id %s", ErrTxType, tx.ID)
	}

	if tx.Value != reward {
		return fmt.Errorf("%w: provided %d does not equal the reward %d", ErrMiningReward, tx.Value, reward)
	}

	account, exists, err := db.GetAccount(tx.To)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: beneficiary %s", ErrAccountNotFound, tx.To)
	}

	if account.Balance+tx.Value < account.Balance {
		return fmt.Errorf("%w: crediting reward %d to beneficiary %s", ErrBalanceOverflow, tx.Value, tx.To)
	}

	return nil
}

// =============================================================================

// ApplyTransactionSeries validates and runs each transaction in order against
// the world state, stopping at the first failure. A series may hold at most
// one mining reward. On failure the world state holds the changes of every
// transaction before the failing one, so callers pass a copy they can drop.
func ApplyTransactionSeries(series []SignedTx, db *Database, reward uint64) error {
	var rewards int
	for _, tx := range series {
		if tx.Type() == TxMiningReward {
			rewards++
			if rewards > 1 {
				return fmt.Errorf("%w: more than one reward in the series, transaction id %s", ErrMiningReward, tx.ID)
			}
		}

		if err := ValidateTransaction(tx, db, reward); err != nil {
			return err
		}

		if err := RunTransaction(tx, db); err != nil {
			return err
		}
	}

	return nil
}

// ValidateTransactionSeries reports whether the series would apply cleanly
// on top of the world state. The world state is not changed.
func ValidateTransactionSeries(series []SignedTx, db *Database, reward uint64) error {
	return ApplyTransactionSeries(series, db.Copy(), reward)
}

// =============================================================================

// checkAccountData verifies the account payload has exactly the fields of
// an account and that its code hash is consistent with its code.
func checkAccountData(tx SignedTx) (Account, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(tx.Data.AccountData, &fields); err != nil {
		return Account{}, fmt.Errorf("%w in transaction id %s: %w", ErrAccountSchema, tx.ID, err)
	}

	if len(fields) != len(accountFields) {
		return Account{}, fmt.Errorf("%w: length does not match with received data in transaction id %s", ErrAccountSchema, tx.ID)
	}

	for _, field := range accountFields {
		if _, exists := fields[field]; !exists {
			return Account{}, fmt.Errorf("%w: field %s missing in received data for transaction id %s", ErrAccountSchema, field, tx.ID)
		}
	}

	account, err := tx.Account()
	if err != nil {
		return Account{}, fmt.Errorf("%w: %w", ErrAccountInvalid, err)
	}

	if !signature.IsAddress(account.Address) {
		return Account{}, fmt.Errorf("%w: address is not properly formatted in transaction id %s", ErrAccountInvalid, tx.ID)
	}

	if exp := NewAccount(account.Address, account.Balance, account.Code); exp.CodeHash != account.CodeHash {
		return Account{}, fmt.Errorf("%w: code hash does not match the code in transaction id %s", ErrAccountInvalid, tx.ID)
	}

	return account, nil
}
