package database_test

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/ardanlabs/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/powledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/powledger/foundation/blockchain/signature"
	"github.com/ardanlabs/powledger/foundation/blockchain/vm"
	"github.com/ethereum/go-ethereum/crypto"
)

const reward = genesis.DefaultMiningReward

// =============================================================================

func Test_CreateTx(t *testing.T) {
	pk := privateKey(t, keyA)
	account := database.NewAccountFromKey(pk, 1000, nil)

	t.Log("Given the need to construct transactions by kind.")
	{
		tx, err := database.CreateTx(database.TxArgs{Beneficiary: account.Address, Reward: reward})
		if err != nil || tx.Type() != database.TxMiningReward || tx.Value != reward || tx.Signature != database.Unset {
			t.Fatalf("\t%s\tShould construct an unsigned mining reward: %+v, %v", failed, tx, err)
		}
		t.Logf("\t%s\tShould construct an unsigned mining reward.", success)

		tx, err = database.CreateTx(database.TxArgs{Receiver: account.Address, Sender: privateKey(t, keyB), Value: 10, GasLimit: 2})
		if err != nil || tx.Type() != database.TxTransact || !tx.VerifySignature() {
			t.Fatalf("\t%s\tShould construct a signed transfer: %+v, %v", failed, tx, err)
		}
		t.Logf("\t%s\tShould construct a signed transfer.", success)

		tx, err = database.CreateTx(database.TxArgs{Account: account})
		if err != nil || tx.Type() != database.TxCreateAccount || tx.Signature != database.Unset {
			t.Fatalf("\t%s\tShould construct an account creation: %+v, %v", failed, tx, err)
		}
		got, err := tx.Account()
		if err != nil || got.Address != account.Address || got.Balance != account.Balance {
			t.Fatalf("\t%s\tShould embed the account in the transaction: %+v, %v", failed, got, err)
		}
		t.Logf("\t%s\tShould construct an account creation.", success)

		if _, err := database.CreateTx(database.TxArgs{Receiver: account.Address}); err == nil {
			t.Fatalf("\t%s\tShould require a sender for a transfer.", failed)
		}
		t.Logf("\t%s\tShould require a sender for a transfer.", success)
	}
}

func Test_CreateAccountHTML(t *testing.T) {
	contract := newContract(t, vm.MustCode(vm.PUSH, "a<b&c", vm.STOP))
	tx := createTx(t, contract)

	if !strings.Contains(string(tx.Data.AccountData), "a<b&c") {
		t.Fatalf("Should keep HTML characters unescaped in the account data: %s", tx.Data.AccountData)
	}

	data, err := signature.Marshal([]database.SignedTx{tx})
	if err != nil {
		t.Fatalf("Should be able to marshal the series: %v", err)
	}

	var series []database.SignedTx
	if err := json.Unmarshal(data, &series); err != nil {
		t.Fatalf("Should be able to unmarshal the series: %v", err)
	}

	if database.TransactionsRoot(series) != database.TransactionsRoot([]database.SignedTx{tx}) {
		t.Fatalf("Should get the same transactions root after a round trip.")
	}
}

func Test_ValidateCreateAccount(t *testing.T) {
	db := database.New()
	a := database.NewAccountFromKey(privateKey(t, keyA), 1000, nil)
	create(t, db, a)

	newAccount := database.NewAccountFromKey(privateKey(t, keyB), 1000, nil)

	type table struct {
		name string
		tx   func() database.SignedTx
		err  error
	}

	tt := []table{
		{
			name: "valid",
			tx:   func() database.SignedTx { return createTx(t, newAccount) },
		},
		{
			name: "exists",
			tx:   func() database.SignedTx { return createTx(t, a) },
			err:  database.ErrAccountExists,
		},
		{
			name: "wrong-type",
			tx: func() database.SignedTx {
				tx := createTx(t, newAccount)
				tx.Data.TransactionType = database.TxTransact
				return tx
			},
			err: database.ErrTxType,
		},
		{
			name: "extra-field",
			tx: func() database.SignedTx {
				tx := createTx(t, newAccount)
				tx.Data.AccountData = withField(t, tx.Data.AccountData, "nonce", 1)
				return tx
			},
			err: database.ErrAccountSchema,
		},
		{
			name: "renamed-field",
			tx: func() database.SignedTx {
				tx := createTx(t, newAccount)
				tx.Data.AccountData = json.RawMessage(`{"address":"` + newAccount.Address + `","balance":1,"code":[],"hash":null}`)
				return tx
			},
			err: database.ErrAccountSchema,
		},
		{
			name: "bad-code-hash",
			tx: func() database.SignedTx {
				tx := createTx(t, newAccount)
				tx.Data.AccountData = withField(t, tx.Data.AccountData, "codeHash", strings.Repeat("a", 64))
				return tx
			},
			err: database.ErrAccountInvalid,
		},
	}

	t.Log("Given the need to validate account creation.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %q case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					err := database.ValidateCreateAccount(tst.tx(), db)
					checkErr(t, testID, err, tst.err)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_ValidateTransact(t *testing.T) {
	pkA := privateKey(t, keyA)
	pkB := privateKey(t, keyB)

	db := database.New()
	a := database.NewAccountFromKey(pkA, 1000, nil)
	b := database.NewAccountFromKey(pkB, 1000, nil)
	contract := newContract(t, vm.MustCode(vm.PUSH, 1, vm.PUSH, 2, vm.ADD, vm.STOP))
	looping := newContract(t, vm.MustCode(vm.PUSH, 0, vm.JUMP, vm.STOP))
	create(t, db, a, b, contract, looping)

	missing := database.NewAccountFromKey(newKey(t), 0, nil)

	rich := database.NewAccountFromKey(newKey(t), math.MaxUint64-20, nil)
	create(t, db, rich)

	type table struct {
		name string
		tx   func() database.SignedTx
		err  error
		msg  string
	}

	tt := []table{
		{
			name: "valid",
			tx:   func() database.SignedTx { return transact(t, pkA, b.Address, 20, 0) },
		},
		{
			name: "bad-signature",
			tx: func() database.SignedTx {
				tx := transact(t, pkA, b.Address, 20, 0)
				tx.Value = 900
				return tx
			},
			err: database.ErrTxSignature,
		},
		{
			name: "wrong-type",
			tx: func() database.SignedTx {
				tx := transact(t, pkA, b.Address, 20, 0)
				tx.Data.TransactionType = database.TxMiningReward
				return tx
			},
			err: database.ErrTxType,
		},
		{
			name: "self",
			tx:   func() database.SignedTx { return transact(t, pkA, a.Address, 20, 0) },
			err:  database.ErrSelfTransfer,
		},
		{
			name: "missing-receiver",
			tx:   func() database.SignedTx { return transact(t, pkA, missing.Address, 20, 0) },
			err:  database.ErrAccountNotFound,
		},
		{
			name: "insufficient-balance",
			tx:   func() database.SignedTx { return transact(t, pkA, b.Address, 1000, 21) },
			err:  database.ErrInsufficientFunds,
			msg:  "insufficient balance: transaction value and gas limit 1021 exceeds balance 1000",
		},
		{
			name: "receiver-limit",
			tx:   func() database.SignedTx { return transact(t, pkA, rich.Address, 20, 0) },
		},
		{
			name: "receiver-overflow",
			tx:   func() database.SignedTx { return transact(t, pkA, rich.Address, 20, 1) },
			err:  database.ErrBalanceOverflow,
		},
		{
			name: "contract",
			tx:   func() database.SignedTx { return transact(t, pkA, contract.Key(), 20, 1) },
		},
		{
			name: "contract-gas",
			tx:   func() database.SignedTx { return transact(t, pkA, contract.Key(), 20, 0) },
			err:  database.ErrInsufficientGas,
		},
		{
			name: "contract-fault",
			tx:   func() database.SignedTx { return transact(t, pkA, looping.Key(), 20, 100) },
			err:  vm.ErrExecutionLimit,
		},
	}

	t.Log("Given the need to validate value transfers.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling the %q case.", testID, tst.name)
			{
				f := func(t *testing.T) {
					err := database.ValidateTransact(tst.tx(), db)
					checkErr(t, testID, err, tst.err)

					if tst.msg != "" && err.Error() != tst.msg {
						t.Logf("\t%s\tTest %d:\tgot: %s", failed, testID, err)
						t.Logf("\t%s\tTest %d:\texp: %s", failed, testID, tst.msg)
						t.Fatalf("\t%s\tTest %d:\tShould name the required amount.", failed, testID)
					}
				}

				t.Run(tst.name, f)
			}
		}
	}

	if err := database.ValidateTransact(transact(t, pkA, looping.Key(), 20, 100), db); !errors.Is(err, database.ErrContractFault) {
		t.Fatalf("Should convert an interpreter fault into a rejection, got %v.", err)
	}

	full := database.NewAccountFromKey(newKey(t), math.MaxUint64, nil)
	create(t, db, full)

	err := database.ApplyTransactionSeries([]database.SignedTx{transact(t, pkA, full.Address, 20, 0)}, db, reward)
	if !errors.Is(err, database.ErrBalanceOverflow) {
		t.Fatalf("Should refuse to apply a transfer that wraps the receiver balance, got %v.", err)
	}
	checkBalance(t, db, full.Address, math.MaxUint64)
}

func Test_ValidateMiningReward(t *testing.T) {
	db := database.New()
	a := database.NewAccountFromKey(privateKey(t, keyA), 1000, nil)
	create(t, db, a)

	if err := database.ValidateMiningReward(database.NewMiningRewardTx(a.Address, reward), db, reward); err != nil {
		t.Fatalf("Should accept the protocol reward: %v", err)
	}

	err := database.ValidateMiningReward(database.NewMiningRewardTx(a.Address, reward+1), db, reward)
	if !errors.Is(err, database.ErrMiningReward) {
		t.Fatalf("Should reject a reward that differs from the protocol reward, got %v.", err)
	}

	missing := database.NewAccountFromKey(newKey(t), 0, nil)
	err = database.ValidateMiningReward(database.NewMiningRewardTx(missing.Address, reward), db, reward)
	if !errors.Is(err, database.ErrAccountNotFound) {
		t.Fatalf("Should reject a reward to a missing account, got %v.", err)
	}

	rich := database.NewAccountFromKey(newKey(t), math.MaxUint64-reward+1, nil)
	create(t, db, rich)

	err = database.ValidateMiningReward(database.NewMiningRewardTx(rich.Address, reward), db, reward)
	if !errors.Is(err, database.ErrBalanceOverflow) {
		t.Fatalf("Should reject a reward that overflows the beneficiary balance, got %v.", err)
	}

	series := []database.SignedTx{
		database.NewMiningRewardTx(a.Address, reward),
		database.NewMiningRewardTx(a.Address, reward),
	}
	if err := database.ValidateTransactionSeries(series, db, reward); !errors.Is(err, database.ErrMiningReward) {
		t.Fatalf("Should reject a series with two rewards, got %v.", err)
	}
}

func Test_RunTransactions(t *testing.T) {
	pkA := privateKey(t, keyA)
	pkB := privateKey(t, keyB)

	a := database.NewAccountFromKey(pkA, 1000, nil)
	b := database.NewAccountFromKey(pkB, 1000, nil)
	contract := newContract(t, vm.MustCode(vm.PUSH, "bar", vm.PUSH, "foo", vm.STORE, vm.PUSH, 1, vm.PUSH, 2, vm.ADD, vm.STOP))

	db := database.New()

	t.Log("Given the need to apply transactions to the world state.")
	{
		series := []database.SignedTx{
			createTx(t, a),
			createTx(t, b),
			createTx(t, contract),
		}
		if err := database.ApplyTransactionSeries(series, db, reward); err != nil {
			t.Fatalf("\t%s\tShould be able to create the accounts: %v", failed, err)
		}
		t.Logf("\t%s\tShould be able to create the accounts.", success)

		if _, exists, _ := db.GetAccount(contract.Key()); !exists {
			t.Fatalf("\t%s\tShould store the contract under its code hash.", failed)
		}
		if _, exists, _ := db.GetAccount(contract.Address); exists {
			t.Fatalf("\t%s\tShould not store the contract under its address.", failed)
		}
		t.Logf("\t%s\tShould store the contract under its code hash.", success)

		root := db.StateRoot()
		if err := database.ApplyTransactionSeries([]database.SignedTx{transact(t, pkA, b.Address, 20, 0)}, db, reward); err != nil {
			t.Fatalf("\t%s\tShould be able to transfer value: %v", failed, err)
		}
		checkBalance(t, db, a.Address, 980)
		checkBalance(t, db, b.Address, 1020)
		if db.StateRoot() == root {
			t.Fatalf("\t%s\tShould change the state root.", failed)
		}
		t.Logf("\t%s\tShould move the value between the accounts.", success)

		storageRoot, _ := db.StorageRoot(contract.Key())
		validate := transact(t, pkB, contract.Key(), 10, 50)
		if err := database.ValidateTransact(validate, db); err != nil {
			t.Fatalf("\t%s\tShould be able to validate a contract call: %v", failed, err)
		}
		if got := db.StorageTrie(contract.Key()).RootHash(); got != storageRoot {
			t.Fatalf("\t%s\tShould not change contract storage while validating.", failed)
		}
		t.Logf("\t%s\tShould not change contract storage while validating.", success)

		if err := database.ApplyTransactionSeries([]database.SignedTx{validate}, db, reward); err != nil {
			t.Fatalf("\t%s\tShould be able to call the contract: %v", failed, err)
		}

		// The contract uses 6 gas: STORE 5 and ADD 1.
		checkBalance(t, db, b.Address, 1020-10-6)
		checkBalance(t, db, contract.Key(), 1000+10+6)
		t.Logf("\t%s\tShould charge the sender the value plus the gas used.", success)

		newRoot, _ := db.StorageRoot(contract.Key())
		if newRoot == storageRoot {
			t.Fatalf("\t%s\tShould record the new contract storage root.", failed)
		}
		var stored vm.Word
		if found, err := db.StorageTrie(contract.Key()).Get("foo", &stored); err != nil || !found || !stored.Equal(vm.Str("bar")) {
			t.Fatalf("\t%s\tShould store the contract value: %s", failed, stored)
		}
		t.Logf("\t%s\tShould persist the contract storage.", success)

		if err := database.ApplyTransactionSeries([]database.SignedTx{database.NewMiningRewardTx(a.Address, reward)}, db, reward); err != nil {
			t.Fatalf("\t%s\tShould be able to pay a reward: %v", failed, err)
		}
		checkBalance(t, db, a.Address, 980+reward)
		t.Logf("\t%s\tShould credit the reward to the beneficiary.", success)
	}
}

func Test_Copy(t *testing.T) {
	pkA := privateKey(t, keyA)
	a := database.NewAccountFromKey(pkA, 1000, nil)
	b := database.NewAccountFromKey(privateKey(t, keyB), 1000, nil)

	db := database.New()
	create(t, db, a, b)
	root := db.StateRoot()

	cp := db.Copy()
	if err := database.ApplyTransactionSeries([]database.SignedTx{transact(t, pkA, b.Address, 20, 0)}, cp, reward); err != nil {
		t.Fatalf("Should be able to transfer on the copy: %v", err)
	}

	if db.StateRoot() != root {
		t.Fatalf("Should not change the original world state through a copy.")
	}
	checkBalance(t, db, a.Address, 1000)
}

// =============================================================================

const (
	keyA = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	keyB = "8dc79feefd3b86e2f9991def0e5ccd9a5128e104682407b308594bc1032ac7f0"
)

func privateKey(t *testing.T, hexKey string) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		t.Fatalf("Should be able to load private key: %v", err)
	}
	return pk
}

func newKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("Should be able to generate a private key: %v", err)
	}
	return pk
}

func newContract(t *testing.T, code vm.Code) database.Account {
	t.Helper()

	return database.NewAccountFromKey(newKey(t), 1000, code)
}

func createTx(t *testing.T, account database.Account) database.SignedTx {
	t.Helper()

	tx, err := database.NewCreateAccountTx(account)
	if err != nil {
		t.Fatalf("Should be able to construct an account creation: %v", err)
	}
	return tx
}

func create(t *testing.T, db *database.Database, accounts ...database.Account) {
	t.Helper()

	for _, account := range accounts {
		if err := database.ApplyTransactionSeries([]database.SignedTx{createTx(t, account)}, db, reward); err != nil {
			t.Fatalf("Should be able to create account %s: %v", account.Key(), err)
		}
	}
}

func transact(t *testing.T, from *ecdsa.PrivateKey, to string, value uint64, gasLimit uint64) database.SignedTx {
	t.Helper()

	tx, err := database.NewTransactTx(from, to, value, gasLimit)
	if err != nil {
		t.Fatalf("Should be able to sign the transfer: %v", err)
	}
	return tx
}

func withField(t *testing.T, data json.RawMessage, field string, value any) json.RawMessage {
	t.Helper()

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("Should be able to decode account data: %v", err)
	}
	fields[field] = value

	out, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("Should be able to encode account data: %v", err)
	}
	return out
}

func checkBalance(t *testing.T, db *database.Database, key string, exp uint64) {
	t.Helper()

	account, exists, err := db.GetAccount(key)
	if err != nil || !exists {
		t.Fatalf("\t%s\tShould find account %s: %v", failed, key, err)
	}
	if account.Balance != exp {
		t.Logf("\t%s\tgot: %d", failed, account.Balance)
		t.Logf("\t%s\texp: %d", failed, exp)
		t.Fatalf("\t%s\tShould have the right balance for %s.", failed, key)
	}
}

func checkErr(t *testing.T, testID int, got error, exp error) {
	t.Helper()

	if exp == nil {
		if got != nil {
			t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, got)
		}
		t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)
		return
	}

	if !errors.Is(got, exp) {
		t.Logf("\t%s\tTest %d:\tgot: %v", failed, testID, got)
		t.Logf("\t%s\tTest %d:\texp: %v", failed, testID, exp)
		t.Fatalf("\t%s\tTest %d:\tShould reject the transaction.", failed, testID)
	}
	t.Logf("\t%s\tTest %d:\tShould reject the transaction.", success, testID)
}
